package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeUnscoped(t *testing.T) {
	assert.True(t, Scope{Bypass: true}.Unscoped())
	assert.True(t, Scope{IsMaster: true}.Unscoped())
	assert.False(t, Scope{IsMaster: true, TenantID: "t1"}.Unscoped())
	assert.False(t, Scope{TenantID: "t1"}.Unscoped())
}

func TestCurrentTenant(t *testing.T) {
	ctx := context.Background()

	_, ok := CurrentTenant(ctx)
	assert.False(t, ok)

	id, ok := CurrentTenant(WithTenant(ctx, "t1"))
	assert.True(t, ok)
	assert.Equal(t, "t1", id)

	_, ok = CurrentTenant(WithMaster(ctx, ""))
	assert.False(t, ok)
}

func TestNestedScopesRestore(t *testing.T) {
	outer := WithTenant(context.Background(), "outer")

	err := RunAs(outer, "inner", func(inner context.Context) error {
		id, _ := CurrentTenant(inner)
		assert.Equal(t, "inner", id)
		return nil
	})
	assert.NoError(t, err)

	id, _ := CurrentTenant(outer)
	assert.Equal(t, "outer", id)
}

func TestBypassKeepsTenantForAudit(t *testing.T) {
	ctx := WithTenant(context.Background(), "t1")

	err := RunUnscoped(ctx, func(inner context.Context) error {
		scope, ok := ScopeFrom(inner)
		assert.True(t, ok)
		assert.True(t, scope.Unscoped())
		assert.Equal(t, "t1", scope.TenantID)
		return nil
	})
	assert.NoError(t, err)

	scope, _ := ScopeFrom(ctx)
	assert.False(t, scope.Bypass)
}

func TestConcurrentScopesAreIndependent(t *testing.T) {
	base := context.Background()
	done := make(chan string, 2)

	for _, id := range []string{"t1", "t2"} {
		go func(id string) {
			ctx := WithTenant(base, id)
			got, _ := CurrentTenant(ctx)
			done <- got
		}(id)
	}

	seen := map[string]bool{<-done: true, <-done: true}
	assert.True(t, seen["t1"])
	assert.True(t, seen["t2"])

	_, ok := CurrentTenant(base)
	assert.False(t, ok)
}

func TestRejectionReasons(t *testing.T) {
	assert.Equal(t, ReasonAuthenticationRequired, RejectionReason(ErrNoToken))
	assert.Equal(t, ReasonInvalidToken, RejectionReason(ErrInvalidToken))
	assert.Equal(t, ReasonUserNotFound, RejectionReason(ErrUserNotFound))
	assert.Equal(t, ReasonTenantNotIdentified, RejectionReason(ErrTenantRequired))
	assert.Equal(t, ReasonTenantNotIdentified, RejectionReason(ErrTenantNotFound))
	assert.Equal(t, ReasonTenantSuspended, RejectionReason(ErrTenantSuspended))
	assert.Equal(t, ReasonCrossTenant, RejectionReason(ErrCrossTenantDenied))
}
