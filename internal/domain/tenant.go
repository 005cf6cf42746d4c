package domain

import (
	"maps"
	"regexp"
	"slices"
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionTrialing  SubscriptionStatus = "trialing"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// keyPattern constrains tenant keys to lowercase URL-safe ASCII.
var keyPattern = regexp.MustCompile(`^[a-z0-9._-]+$`)

func IsValidTenantKey(key string) bool {
	return key != "" && keyPattern.MatchString(key)
}

type Tenant struct {
	ID                 string             `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Key                string             `gorm:"type:text;not null;uniqueIndex" json:"key"`
	Slug               string             `gorm:"type:text;uniqueIndex" json:"slug,omitempty"`
	Name               string             `gorm:"type:text;not null" json:"name"`
	CustomDomain       string             `gorm:"type:text;index" json:"custom_domain,omitempty"`
	IsActive           bool               `gorm:"not null;default:true" json:"is_active"`
	SubscriptionStatus SubscriptionStatus `gorm:"type:text;not null;default:'trialing'" json:"subscription_status"`
	EnabledModules     []string           `gorm:"serializer:json;type:jsonb" json:"enabled_modules"`
	Limits             map[string]int64   `gorm:"serializer:json;type:jsonb" json:"limits"`
	AllowedOrigins     []string           `gorm:"serializer:json;type:jsonb" json:"allowed_origins"`
	CreatedAt          time.Time          `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// Clone returns a deep copy of the tenant. Callers may mutate the copy
// freely without affecting other holders of the record.
func (t *Tenant) Clone() *Tenant {
	out := *t
	out.EnabledModules = slices.Clone(t.EnabledModules)
	out.AllowedOrigins = slices.Clone(t.AllowedOrigins)
	out.Limits = maps.Clone(t.Limits)
	return &out
}

// SubscriptionUsable reports whether the subscription permits normal access.
func (t *Tenant) SubscriptionUsable() bool {
	switch t.SubscriptionStatus {
	case SubscriptionActive, SubscriptionTrialing:
		return true
	default:
		return false
	}
}

// ModuleEnabled reports whether a feature module is enabled for the tenant.
func (t *Tenant) ModuleEnabled(name string) bool {
	for _, m := range t.EnabledModules {
		if m == name {
			return true
		}
	}
	return false
}

// LimitFor returns the plan cap for a resource. Zero means unlimited.
func (t *Tenant) LimitFor(resource string) int64 {
	if t.Limits == nil {
		return 0
	}
	return t.Limits[resource]
}
