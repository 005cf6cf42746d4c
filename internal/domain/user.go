package domain

import (
	"encoding/json"
	"time"
)

// User is an authenticated subject. Master users carry no tenant binding;
// every other role requires one.
type User struct {
	ID           string          `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	TenantID     string          `gorm:"type:uuid;index:idx_users_tenant_email,priority:1" json:"tenant_id,omitempty"`
	Email        string          `gorm:"type:text;not null;index:idx_users_tenant_email,priority:2,unique" json:"email"`
	Name         string          `gorm:"type:text;not null" json:"name"`
	PasswordHash string          `gorm:"type:text;not null" json:"-"`
	Role         Role            `gorm:"type:text;not null;default:'client'" json:"role"`
	Active       bool            `gorm:"not null;default:true" json:"active"`
	TokenVersion int             `gorm:"not null;default:2" json:"token_version"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time       `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"updated_at"`
	Tenant       *Tenant         `gorm:"foreignKey:TenantID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// IsMaster reports whether the user operates outside tenant scope.
func (u *User) IsMaster() bool {
	return u.Role == RoleMaster
}
