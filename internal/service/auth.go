package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/supportdeskhq/tenantcore/internal/auth"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/repository"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
)

// AuthService verifies credentials and mints tenant-bound tokens. Master
// users authenticate with an empty tenant id; everyone else within the
// tenant resolved for the request.
type AuthService struct {
	users    repository.UserRepository
	registry *tenant.Registry
	tokens   *auth.TokenService
}

func NewAuthService(users repository.UserRepository, registry *tenant.Registry, tokens *auth.TokenService) *AuthService {
	return &AuthService{users: users, registry: registry, tokens: tokens}
}

func (s *AuthService) Login(ctx context.Context, tenantID, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, tenantID, email)
	if err != nil {
		return "", tenant.ErrUserNotFound
	}
	if !user.Active {
		return "", tenant.ErrAccountDisabled
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", tenant.ErrUserNotFound
	}

	var t *domain.Tenant
	if !user.IsMaster() {
		t, err = s.registry.ByID(ctx, user.TenantID)
		if err != nil {
			return "", err
		}
	}
	return s.tokens.Mint(user, t)
}

// Register creates a user inside the resolved tenant. Master accounts are
// provisioned out of band, never through this path.
func (s *AuthService) Register(ctx context.Context, tenantID, email, name, password string, role domain.Role) (*domain.User, error) {
	if tenantID == "" {
		return nil, tenant.ErrTenantRequired
	}
	if role == domain.RoleMaster {
		return nil, tenant.ErrInsufficientRole
	}
	if !domain.IsValidRole(string(role)) {
		role = domain.RoleClient
	}

	if _, err := s.users.GetByEmail(ctx, tenantID, email); err == nil {
		return nil, errors.New("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, &domain.User{
		TenantID:     tenantID,
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
		TokenVersion: auth.CurrentTokenVersion,
	})
}
