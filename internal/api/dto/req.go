package dto

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateTenantRequest struct {
	Key            string            `json:"key" binding:"required"`
	Name           string            `json:"name" binding:"required"`
	Slug           string            `json:"slug"`
	CustomDomain   string            `json:"custom_domain"`
	EnabledModules []string          `json:"enabled_modules"`
	Limits         map[string]int64  `json:"limits"`
	AllowedOrigins []string          `json:"allowed_origins"`
}

type UpdateTenantRequest struct {
	Name               *string           `json:"name"`
	CustomDomain       *string           `json:"custom_domain"`
	IsActive           *bool             `json:"is_active"`
	SubscriptionStatus *string           `json:"subscription_status"`
	EnabledModules     *[]string         `json:"enabled_modules"`
	Limits             *map[string]int64 `json:"limits"`
}

type OriginRequest struct {
	Pattern string `json:"pattern" binding:"required"`
}

type SetOriginsRequest struct {
	Patterns []string `json:"patterns" binding:"required"`
}

type CreateConversationRequest struct {
	Subject string `json:"subject" binding:"required"`
}

type PostMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

type SignAttachmentRequest struct {
	Key string `json:"key" binding:"required"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}
