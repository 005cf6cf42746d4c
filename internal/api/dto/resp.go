package dto

import "time"

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

type TenantResponse struct {
	ID                 string           `json:"id"`
	Key                string           `json:"key"`
	Slug               string           `json:"slug"`
	Name               string           `json:"name"`
	CustomDomain       string           `json:"custom_domain,omitempty"`
	IsActive           bool             `json:"is_active"`
	SubscriptionStatus string           `json:"subscription_status"`
	EnabledModules     []string         `json:"enabled_modules"`
	Limits             map[string]int64 `json:"limits,omitempty"`
	AllowedOrigins     []string         `json:"allowed_origins"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type ConversationResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	Subject    string    `json:"subject"`
	Status     string    `json:"status"`
	ClientID   string    `json:"client_id"`
	AssigneeID string    `json:"assignee_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type MessageResponse struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	ConversationID string    `json:"conversation_id"`
	AuthorID       string    `json:"author_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

type AttachmentResponse struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	MessageID  string    `json:"message_id"`
	FileName   string    `json:"file_name"`
	MIMEType   string    `json:"mime_type"`
	SizeBytes  int64     `json:"size_bytes"`
	StorageKey string    `json:"storage_key"`
	CreatedAt  time.Time `json:"created_at"`
}

type SignedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

type OriginStatResponse struct {
	Origin  string `json:"origin"`
	Allowed uint64 `json:"allowed"`
	Blocked uint64 `json:"blocked"`
}

type OriginSuggestionResponse struct {
	Suggestions []string `json:"suggestions"`
}

type ListResponse[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}
