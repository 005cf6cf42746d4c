package domain

import (
	"encoding/json"
	"time"
)

type ConversationStatus string

const (
	ConversationOpen     ConversationStatus = "open"
	ConversationPending  ConversationStatus = "pending"
	ConversationResolved ConversationStatus = "resolved"
	ConversationClosed   ConversationStatus = "closed"
)

// Conversation is a support thread between a client and a tenant's agents.
type Conversation struct {
	ID         string             `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TenantID   string             `gorm:"type:uuid;not null;index:idx_conversations_tenant_created,priority:1" json:"tenant_id"`
	Subject    string             `gorm:"type:text;not null" json:"subject"`
	Status     ConversationStatus `gorm:"type:text;not null;default:'open'" json:"status"`
	ClientID   string             `gorm:"type:uuid;not null" json:"client_id"`
	AssigneeID string             `gorm:"type:uuid" json:"assignee_id,omitempty"`
	Metadata   json.RawMessage    `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt  time.Time          `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP;index:idx_conversations_tenant_created,priority:2" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (c *Conversation) GetTenantID() string   { return c.TenantID }
func (c *Conversation) SetTenantID(id string) { c.TenantID = id }

// Message is a single entry in a conversation.
type Message struct {
	ID             string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TenantID       string          `gorm:"type:uuid;not null;index:idx_messages_tenant_conversation,priority:1" json:"tenant_id"`
	ConversationID string          `gorm:"type:uuid;not null;index:idx_messages_tenant_conversation,priority:2" json:"conversation_id"`
	AuthorID       string          `gorm:"type:uuid;not null" json:"author_id"`
	Body           string          `gorm:"type:text;not null" json:"body"`
	Metadata       json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time       `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) GetTenantID() string   { return m.TenantID }
func (m *Message) SetTenantID(id string) { m.TenantID = id }

// Attachment is a stored file referenced from a message. StorageKey follows
// the tenant-prefixed object key layout; access checks compare its prefix
// against the caller's tenant.
type Attachment struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TenantID   string    `gorm:"type:uuid;not null;index:idx_attachments_tenant_message,priority:1" json:"tenant_id"`
	MessageID  string    `gorm:"type:uuid;not null;index:idx_attachments_tenant_message,priority:2" json:"message_id"`
	FileName   string    `gorm:"type:text;not null" json:"file_name"`
	MIMEType   string    `gorm:"type:text" json:"mime_type"`
	SizeBytes  int64     `gorm:"not null;default:0" json:"size_bytes"`
	StorageKey string    `gorm:"type:text;not null" json:"storage_key"`
	CreatedAt  time.Time `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}

func (a *Attachment) GetTenantID() string   { return a.TenantID }
func (a *Attachment) SetTenantID(id string) { a.TenantID = id }
