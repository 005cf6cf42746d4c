package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
)

// CurrentTokenVersion is the minimum version minted. From version 2 onward
// non-master tokens must carry the tenant id in their claims.
const CurrentTokenVersion = 2

// Claims is the signed token payload.
type Claims struct {
	SubjectID    string      `json:"subject_id"`
	Role         domain.Role `json:"role"`
	TenantID     string      `json:"tenant_id,omitempty"`
	TenantKey    string      `json:"tenant_key,omitempty"`
	TenantName   string      `json:"tenant_name,omitempty"`
	TokenVersion int         `json:"token_version"`
	jwt.RegisteredClaims
}

// Legacy reports whether the token predates tenant-bearing claims.
func (c *Claims) Legacy() bool {
	return c.TokenVersion < CurrentTokenVersion
}

// Identity converts verified claims into the resolver's input shape.
func (c *Claims) Identity() *tenant.Identity {
	return &tenant.Identity{
		SubjectID: c.SubjectID,
		Role:      c.Role,
		TenantID:  c.TenantID,
	}
}

// TokenService mints and verifies HMAC-signed tokens.
type TokenService struct {
	secret            []byte
	ttl               time.Duration
	allowLegacyTokens bool
}

func NewTokenService(secret string, ttl time.Duration, allowLegacyTokens bool) *TokenService {
	return &TokenService{
		secret:            []byte(secret),
		ttl:               ttl,
		allowLegacyTokens: allowLegacyTokens,
	}
}

// Mint issues a token for the user. Non-master users get their tenant id
// and enrichment fields embedded so requests resolve without a DB lookup.
func (s *TokenService) Mint(user *domain.User, t *domain.Tenant) (string, error) {
	now := time.Now()
	claims := Claims{
		SubjectID:    user.ID,
		Role:         user.Role,
		TokenVersion: CurrentTokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if !user.IsMaster() {
		claims.TenantID = user.TenantID
		if t != nil {
			claims.TenantKey = t.Key
			claims.TenantName = t.Name
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify parses and validates a token, enforcing the version policy.
// Version-1 tokens pass only under the migration grace flag; the caller is
// responsible for resolving their tenant via DB lookup on the subject.
func (s *TokenService) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, tenant.ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, tenant.ErrTokenExpired
		}
		return nil, tenant.ErrInvalidToken
	}

	if !domain.IsValidRole(string(claims.Role)) || claims.SubjectID == "" {
		return nil, tenant.ErrInvalidToken
	}

	if claims.Legacy() {
		if !s.allowLegacyTokens {
			return nil, tenant.ErrInvalidToken
		}
		return claims, nil
	}

	if claims.Role != domain.RoleMaster && claims.TenantID == "" {
		return nil, tenant.ErrInvalidToken
	}
	if claims.Role == domain.RoleMaster && claims.TenantID != "" {
		return nil, tenant.ErrInvalidToken
	}

	return claims, nil
}
