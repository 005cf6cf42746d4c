package tenant

import (
	"context"

	"github.com/supportdeskhq/tenantcore/internal/domain"
)

// Ref is a tenant reference that may or may not be resolved yet. Callers
// hand the resolver raw identifiers (id, key, legacy slug); everything past
// the resolver boundary operates on resolved records only.
type Ref struct {
	id       string
	resolved *domain.Tenant
}

// RefID builds an unresolved reference from an opaque identifier.
func RefID(id string) Ref {
	return Ref{id: id}
}

// RefResolved wraps an already loaded tenant record.
func RefResolved(t *domain.Tenant) Ref {
	return Ref{resolved: t}
}

// IsZero reports whether the reference carries nothing.
func (r Ref) IsZero() bool {
	return r.id == "" && r.resolved == nil
}

// Coerce resolves the reference through the registry. Identifiers are tried
// as id first, then as key/slug. Already resolved references pass through.
func (r Ref) Coerce(ctx context.Context, reg *Registry) (*domain.Tenant, error) {
	if r.resolved != nil {
		return r.resolved, nil
	}
	if r.id == "" {
		return nil, ErrTenantNotFound
	}
	t, err := reg.ByID(ctx, r.id)
	if err == nil {
		return t, nil
	}
	return reg.ByKey(ctx, r.id)
}
