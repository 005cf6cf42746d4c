package tenant

import "context"

// Scope is the ambient tenant frame for one logical operation. It rides on
// the operation's context.Context, so concurrent requests can never observe
// each other's frame and nested scopes restore automatically when the inner
// context goes out of use.
type Scope struct {
	TenantID string
	Bypass   bool
	IsMaster bool
}

// Unscoped reports whether no tenant filter applies.
func (s Scope) Unscoped() bool {
	return s.Bypass || (s.IsMaster && s.TenantID == "")
}

type scopeKey struct{}

// WithScope returns a context carrying the given scope, shadowing any outer
// scope for the lifetime of the derived context.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithTenant scopes the context to one tenant.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return WithScope(ctx, Scope{TenantID: tenantID})
}

// WithMaster marks the context as master. With an empty tenantID the scope
// is master-unscoped; with one set it is a master override onto that tenant.
func WithMaster(ctx context.Context, tenantID string) context.Context {
	return WithScope(ctx, Scope{TenantID: tenantID, IsMaster: true})
}

// WithBypass suspends tenant filtering for operations under the derived
// context. The enclosing tenant, if any, is preserved for audit.
func WithBypass(ctx context.Context) context.Context {
	s, _ := ScopeFrom(ctx)
	s.Bypass = true
	return WithScope(ctx, s)
}

// ScopeFrom returns the current scope, or false when the operation is
// unscoped (no frame was ever entered).
func ScopeFrom(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// CurrentTenant returns the scoped tenant id, or false when none applies.
func CurrentTenant(ctx context.Context) (string, bool) {
	s, ok := ScopeFrom(ctx)
	if !ok || s.TenantID == "" {
		return "", false
	}
	return s.TenantID, true
}

// RunAs runs fn under the given tenant scope. The outer scope is untouched:
// fn receives a derived context and the caller keeps its own.
func RunAs(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	return fn(WithTenant(ctx, tenantID))
}

// RunUnscoped runs fn with tenant filtering suspended. Callers are expected
// to route bypass through the gateway, which audits every entry.
func RunUnscoped(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(WithBypass(ctx))
}
