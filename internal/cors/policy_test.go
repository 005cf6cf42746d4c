package cors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

func TestMatchOrigin(t *testing.T) {
	cases := []struct {
		origin  string
		pattern string
		want    bool
	}{
		{"https://app.acme.com", "https://app.acme.com", true},
		{"https://app.acme.com", "https://other.acme.com", false},
		{"https://anything.example", "*", true},
		{"https://app.acme-support.com", "*.acme-support.com", true},
		{"https://deep.nested.acme-support.com", "*.acme-support.com", true},
		{"https://acme-support.com", "*.acme-support.com", true},
		{"https://acme-support.com.evil.io", "*.acme-support.com", false},
		{"http://localhost:3000", "http://localhost:*", true},
		{"http://localhost:9999", "http://localhost:*", true},
		{"https://localhost:3000", "http://localhost:*", false},
		{"https://staging.acme.io", "/^https://.*\\.acme\\.io$/", true},
		{"https://acme.io.evil.com", "/^https://.*\\.acme\\.io$/", false},
		{"https://app.acme.com", "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchOrigin(tc.origin, tc.pattern),
			"origin %q pattern %q", tc.origin, tc.pattern)
	}
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern("*"))
	assert.NoError(t, ValidatePattern("https://app.acme.com"))
	assert.NoError(t, ValidatePattern("*.acme.com"))
	assert.NoError(t, ValidatePattern("http://localhost:*"))
	assert.NoError(t, ValidatePattern("/^https://.*$/"))

	assert.Error(t, ValidatePattern(""))
	assert.Error(t, ValidatePattern("*.com"))
	assert.Error(t, ValidatePattern("//"))
	assert.Error(t, ValidatePattern("/[unclosed/"))
	assert.Error(t, ValidatePattern("not-an-origin"))
}

type policyStore struct {
	tenants map[string]*domain.Tenant
	saved   map[string][]string
}

func (s *policyStore) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	if t, ok := s.tenants[id]; ok {
		return t, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func (s *policyStore) GetByKey(ctx context.Context, key string) (*domain.Tenant, error) {
	return nil, tenant.ErrTenantNotFound
}

func (s *policyStore) GetByDomain(ctx context.Context, host string) (*domain.Tenant, error) {
	return nil, tenant.ErrTenantNotFound
}

func (s *policyStore) UpdateOrigins(ctx context.Context, tenantID string, origins []string) error {
	s.saved[tenantID] = origins
	if t, ok := s.tenants[tenantID]; ok {
		t.AllowedOrigins = origins
	}
	return nil
}

type PolicyTestSuite struct {
	suite.Suite
	store  *policyStore
	policy *Policy
}

func (s *PolicyTestSuite) SetupTest() {
	s.store = &policyStore{
		tenants: map[string]*domain.Tenant{
			"tenant-acme": {
				ID: "tenant-acme", Key: "acme", IsActive: true,
				SubscriptionStatus: domain.SubscriptionActive,
				AllowedOrigins:     []string{"https://app.acme.com", "*.acme-support.com"},
			},
		},
		saved: make(map[string][]string),
	}
	registry := tenant.NewRegistry(s.store, time.Minute, logger.NewLogger("test"))
	s.policy = NewPolicy(registry, s.store, logger.NewLogger("test"), false, nil, nil)
}

func TestPolicy(t *testing.T) {
	suite.Run(t, new(PolicyTestSuite))
}

func (s *PolicyTestSuite) TestAllowedByPattern() {
	ok, reason := s.policy.IsAllowed(context.Background(), "https://beta.acme-support.com", "tenant-acme")
	s.True(ok)
	s.Equal("pattern:*.acme-support.com", reason)
}

func (s *PolicyTestSuite) TestBlockedOriginCounted() {
	ok, reason := s.policy.IsAllowed(context.Background(), "https://evil.example", "tenant-acme")
	s.False(ok)
	s.Equal("no-match", reason)

	snapshot := s.policy.Stats().Snapshot("tenant-acme")
	s.Require().Len(snapshot, 1)
	s.Equal(uint64(1), snapshot[0].Blocked)
}

func (s *PolicyTestSuite) TestNoOriginPasses() {
	ok, reason := s.policy.IsAllowed(context.Background(), "", "tenant-acme")
	s.True(ok)
	s.Equal("no-origin", reason)
}

func (s *PolicyTestSuite) TestDevelopmentOriginBypassesTenantList() {
	registry := tenant.NewRegistry(s.store, time.Minute, logger.NewLogger("test"))
	dev := NewPolicy(registry, s.store, logger.NewLogger("test"), true, []string{"http://dev.local:9000"}, nil)

	ok, reason := dev.IsAllowed(context.Background(), "http://localhost:5173", "tenant-acme")
	s.True(ok)
	s.Equal("development", reason)

	ok, _ = dev.IsAllowed(context.Background(), "http://dev.local:9000", "tenant-acme")
	s.True(ok)
}

func (s *PolicyTestSuite) TestMasterPlaneUsesConsoleOrigins() {
	registry := tenant.NewRegistry(s.store, time.Minute, logger.NewLogger("test"))
	policy := NewPolicy(registry, s.store, logger.NewLogger("test"), false, nil,
		[]string{"https://console.supportdesk.io"})

	ok, reason := policy.IsAllowed(context.Background(), "https://console.supportdesk.io", "")
	s.True(ok)
	s.Equal("pattern:https://console.supportdesk.io", reason)

	ok, reason = policy.IsAllowed(context.Background(), "https://evil.example", "")
	s.False(ok)
	s.Equal("no-match", reason)
}

func (s *PolicyTestSuite) TestMasterPlaneBlockedWithoutConsoleList() {
	ok, reason := s.policy.IsAllowed(context.Background(), "https://console.supportdesk.io", "")
	s.False(ok)
	s.Equal("no-match", reason)
}

func (s *PolicyTestSuite) TestUnknownTenantBlocked() {
	ok, reason := s.policy.IsAllowed(context.Background(), "https://app.acme.com", "ghost")
	s.False(ok)
	s.Equal("tenant-not-found", reason)
}

func (s *PolicyTestSuite) TestAddAllowedPersistsAndRefreshes() {
	err := s.policy.AddAllowed(context.Background(), "tenant-acme", "https://new.acme.com")
	s.NoError(err)
	s.Contains(s.store.saved["tenant-acme"], "https://new.acme.com")

	// The refreshed cache must see the new pattern immediately.
	ok, _ := s.policy.IsAllowed(context.Background(), "https://new.acme.com", "tenant-acme")
	s.True(ok)
}

func (s *PolicyTestSuite) TestAddAllowedRejectsInvalidPattern() {
	err := s.policy.AddAllowed(context.Background(), "tenant-acme", "*.com")
	s.Error(err)
}

func (s *PolicyTestSuite) TestRemoveAllowed() {
	err := s.policy.RemoveAllowed(context.Background(), "tenant-acme", "https://app.acme.com")
	s.NoError(err)
	s.NotContains(s.store.saved["tenant-acme"], "https://app.acme.com")

	ok, _ := s.policy.IsAllowed(context.Background(), "https://app.acme.com", "tenant-acme")
	s.False(ok)
}
