package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

type captureAuditor struct {
	events []domain.AuditEvent
}

func (a *captureAuditor) Emit(ctx context.Context, event domain.AuditEvent) {
	a.events = append(a.events, event)
}

// Scope validation runs before any storage call, so these tests exercise the
// gateway with nil connections.
func newScopeOnlyGateway(auditor Auditor) *Gateway {
	return New(nil, nil, logger.NewLogger("test"), auditor)
}

func TestCreateRequiresScopeForScopedTables(t *testing.T) {
	g := newScopeOnlyGateway(nil)

	err := g.Create(context.Background(), &domain.Conversation{Subject: "hello"})
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
}

func TestCreateRejectsForeignTenantID(t *testing.T) {
	auditor := &captureAuditor{}
	g := newScopeOnlyGateway(auditor)
	ctx := tenant.WithTenant(context.Background(), "tenant-a")

	err := g.Create(ctx, &domain.Conversation{TenantID: "tenant-b", Subject: "hello"})
	assert.ErrorIs(t, err, tenant.ErrCrossTenantDenied)

	require.Len(t, auditor.events, 1)
	assert.Equal(t, domain.AuditCrossTenantDenied, auditor.events[0].Type)
	assert.Equal(t, "tenant-a", auditor.events[0].TenantID)
	assert.NotEmpty(t, auditor.events[0].CallSite)
}

func TestCreateUnscopedStillNeedsRowOwner(t *testing.T) {
	g := newScopeOnlyGateway(nil)
	ctx := tenant.WithMaster(context.Background(), "")

	err := g.Create(ctx, &domain.Conversation{Subject: "hello"})
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
}

func TestUnscopedEmitsBypassAudit(t *testing.T) {
	auditor := &captureAuditor{}
	g := newScopeOnlyGateway(auditor)
	ctx := tenant.WithTenant(context.Background(), "tenant-a")

	var sawBypass bool
	err := g.Unscoped(ctx, func(ctx context.Context) error {
		s, ok := tenant.ScopeFrom(ctx)
		sawBypass = ok && s.Bypass
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawBypass)

	require.Len(t, auditor.events, 1)
	assert.Equal(t, domain.AuditBypassEntered, auditor.events[0].Type)
	assert.Equal(t, "tenant-a", auditor.events[0].TenantID)
}

func TestFindRejectsForeignTenantFilter(t *testing.T) {
	auditor := &captureAuditor{}
	g := newScopeOnlyGateway(auditor)
	ctx := tenant.WithTenant(context.Background(), "tenant-a")

	var out []domain.Conversation
	err := g.Find(ctx, "conversations", &out, map[string]any{"tenant_id": "tenant-b"})
	assert.ErrorIs(t, err, tenant.ErrCrossTenantDenied)

	require.Len(t, auditor.events, 1)
	assert.Equal(t, domain.AuditCrossTenantDenied, auditor.events[0].Type)
	assert.Equal(t, "tenant-a", auditor.events[0].TenantID)
}

func TestAggregateRejectsForeignTenantFilter(t *testing.T) {
	auditor := &captureAuditor{}
	g := newScopeOnlyGateway(auditor)
	ctx := tenant.WithTenant(context.Background(), "tenant-a")

	var called bool
	var counts []int64
	err := g.Aggregate(ctx, &domain.Conversation{}, map[string]any{"tenant_id": "tenant-b"},
		func(db *gorm.DB) *gorm.DB { called = true; return db }, &counts)
	assert.ErrorIs(t, err, tenant.ErrCrossTenantDenied)
	assert.False(t, called)
	require.Len(t, auditor.events, 1)
	assert.Equal(t, domain.AuditCrossTenantDenied, auditor.events[0].Type)
}

func TestUpdatesDoesNotMutateCallerMap(t *testing.T) {
	g := newScopeOnlyGateway(nil)
	ctx := tenant.WithTenant(context.Background(), "tenant-a")

	updates := map[string]any{"tenant_id": "tenant-b"}
	n, err := g.Updates(ctx, &domain.Conversation{}, nil, updates)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Contains(t, updates, "tenant_id")
}

func TestCloneToTenantRequiresTarget(t *testing.T) {
	g := newScopeOnlyGateway(nil)
	_, err := g.CloneToTenant(context.Background(), &domain.Conversation{}, "")
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
}

func TestCloneStrippedResetsIdentity(t *testing.T) {
	src := &domain.Conversation{
		ID:        "conv-1",
		TenantID:  "tenant-a",
		Subject:   "billing question",
		Status:    domain.ConversationOpen,
		ClientID:  "client-1",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	cloned, err := cloneStripped(src)
	require.NoError(t, err)

	clone, ok := cloned.(*domain.Conversation)
	require.True(t, ok)
	assert.Empty(t, clone.ID)
	assert.True(t, clone.CreatedAt.IsZero())
	assert.True(t, clone.UpdatedAt.IsZero())
	assert.Equal(t, "billing question", clone.Subject)
	assert.Equal(t, "client-1", clone.ClientID)

	// The source keeps its identity.
	assert.Equal(t, "conv-1", src.ID)
}

func TestCloneStrippedRejectsNonPointer(t *testing.T) {
	_, err := cloneStripped(nil)
	assert.Error(t, err)
}

func TestTenantCondition(t *testing.T) {
	id, found := tenantCondition(map[string]any{"tenant_id": "tenant-a"})
	assert.True(t, found)
	assert.Equal(t, "tenant-a", id)

	id, found = tenantCondition(map[string]any{"TenantID": "tenant-b"})
	assert.True(t, found)
	assert.Equal(t, "tenant-b", id)

	_, found = tenantCondition(map[string]any{"status": "open"})
	assert.False(t, found)

	_, found = tenantCondition(nil)
	assert.False(t, found)
}

func TestStripTenantKeys(t *testing.T) {
	m, found := stripTenantKeys(map[string]any{"tenant_id": "x", "TenantID": "y", "status": "open"})
	assert.True(t, found)
	assert.Equal(t, map[string]any{"status": "open"}, m)

	m, found = stripTenantKeys(map[string]any{"status": "open"})
	assert.False(t, found)
	assert.Len(t, m, 1)

	m, found = stripTenantKeys(nil)
	assert.False(t, found)
	assert.Nil(t, m)
}

func TestCopyCondsDoesNotAliasInput(t *testing.T) {
	orig := map[string]any{"tenant_id": "tenant-a", "status": "open"}
	copied := copyConds(orig)
	stripTenantKeys(copied)

	assert.Contains(t, orig, "tenant_id")
	assert.NotContains(t, copied, "tenant_id")
	assert.Nil(t, copyConds(nil))
}
