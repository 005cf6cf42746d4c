package middleware

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supportdeskhq/tenantcore/internal/api/dto"
	"github.com/supportdeskhq/tenantcore/internal/audit"
	"github.com/supportdeskhq/tenantcore/internal/auth"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/repository"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

const (
	claimsKey   = "auth_claims"
	identityKey = "auth_identity"
)

type AuthMiddleware struct {
	tokens  *auth.TokenService
	users   repository.UserRepository
	auditor audit.Publisher
	log     *logger.Logger
}

func NewAuthMiddleware(tokens *auth.TokenService, users repository.UserRepository, auditor audit.Publisher, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, auditor: auditor, log: log}
}

// JWTAuth verifies the bearer token and stashes the resulting identity.
// Version-2 tokens resolve entirely from claims; legacy tokens fall back to
// a user lookup and are audited for the migration cutover metric.
func (m *AuthMiddleware) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			dto.AbortWithError(c, tenant.ErrNoToken)
			return
		}

		claims, err := m.tokens.Verify(raw)
		if err != nil {
			dto.AbortWithError(c, err)
			return
		}

		identity := claims.Identity()
		if claims.Legacy() {
			identity, err = m.resolveLegacy(c, claims)
			if err != nil {
				dto.AbortWithError(c, err)
				return
			}
		}

		c.Set(claimsKey, claims)
		c.Set(identityKey, identity)
		c.Next()
	}
}

// resolveLegacy fills the tenant binding of a version-1 token from the
// subject's user record.
func (m *AuthMiddleware) resolveLegacy(c *gin.Context, claims *auth.Claims) (*tenant.Identity, error) {
	user, err := m.users.GetByID(c.Request.Context(), claims.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tenant.ErrUserNotFound
		}
		return nil, err
	}
	if !user.Active {
		return nil, tenant.ErrAccountDisabled
	}

	if m.auditor != nil {
		detail, _ := json.Marshal(map[string]any{"token_version": claims.TokenVersion})
		m.auditor.Emit(c.Request.Context(), domain.AuditEvent{
			ID:        uuid.NewString(),
			Type:      domain.AuditLegacyTokenAccepted,
			TenantID:  user.TenantID,
			SubjectID: user.ID,
			Detail:    detail,
			Timestamp: time.Now(),
		})
	}

	return &tenant.Identity{
		SubjectID: user.ID,
		Role:      user.Role,
		TenantID:  user.TenantID,
	}, nil
}

// RequireRole gates a route group on a minimum set of roles.
func (m *AuthMiddleware) RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := IdentityFrom(c)
		if identity == nil {
			dto.AbortWithError(c, tenant.ErrNoToken)
			return
		}
		for _, role := range roles {
			if identity.Role == role {
				c.Next()
				return
			}
		}
		dto.AbortWithError(c, tenant.ErrInsufficientRole)
	}
}

// IdentityFrom returns the authenticated identity, nil on public routes.
func IdentityFrom(c *gin.Context) *tenant.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*tenant.Identity); ok {
			return id
		}
	}
	return nil
}

// ClaimsFrom returns the verified token claims, nil on public routes.
func ClaimsFrom(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
