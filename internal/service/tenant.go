package service

import (
	"context"
	"time"

	"github.com/supportdeskhq/tenantcore/internal/cors"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/repository"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
)

// TenantService owns the master-plane tenant lifecycle. Every mutation
// refreshes the registry cache so resolution and CORS see the change on
// the next request.
type TenantService struct {
	repo     repository.Repository
	registry *tenant.Registry
	policy   *cors.Policy
}

func NewTenantService(repo repository.Repository, registry *tenant.Registry, policy *cors.Policy) *TenantService {
	return &TenantService{repo: repo, registry: registry, policy: policy}
}

func (s *TenantService) Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	if !domain.IsValidTenantKey(t.Key) {
		return nil, tenant.ErrInvalidTenantKey.WithDetails(map[string]any{"key": t.Key})
	}
	for _, pattern := range t.AllowedOrigins {
		if err := cors.ValidatePattern(pattern); err != nil {
			return nil, err
		}
	}
	return s.repo.Tenant().Create(ctx, t)
}

func (s *TenantService) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return s.registry.ByID(ctx, id)
}

func (s *TenantService) Update(ctx context.Context, t *domain.Tenant) error {
	t.UpdatedAt = time.Now()
	if err := s.repo.Tenant().Update(ctx, t); err != nil {
		return err
	}
	s.registry.Refresh(t.ID)
	return nil
}

func (s *TenantService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Tenant().Delete(ctx, id); err != nil {
		return err
	}
	s.registry.Refresh(id)
	return nil
}

func (s *TenantService) List(ctx context.Context) ([]domain.Tenant, error) {
	return s.repo.Tenant().List(ctx)
}

// AddOrigin appends one validated pattern to a tenant's allow-list.
func (s *TenantService) AddOrigin(ctx context.Context, tenantID, pattern string) error {
	return s.policy.AddAllowed(ctx, tenantID, pattern)
}

// RemoveOrigin drops one pattern from a tenant's allow-list.
func (s *TenantService) RemoveOrigin(ctx context.Context, tenantID, pattern string) error {
	return s.policy.RemoveAllowed(ctx, tenantID, pattern)
}

// SetOrigins replaces a tenant's allow-list wholesale.
func (s *TenantService) SetOrigins(ctx context.Context, tenantID string, patterns []string) error {
	return s.policy.SetAllowed(ctx, tenantID, patterns)
}
