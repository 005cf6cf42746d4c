package tenant

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/supportdeskhq/tenantcore/internal/domain"
)

// Source records which mechanism resolved the tenant, for audit and
// telemetry.
type Source string

const (
	SourceSubject        Source = "subject"
	SourceHeaderID       Source = "header-id"
	SourceHeaderKey      Source = "header-key"
	SourceSubdomain      Source = "subdomain"
	SourceDomain         Source = "domain"
	SourceQuery          Source = "query"
	SourceFallback       Source = "fallback-default"
	SourceMasterOverride Source = "master-override"
)

// RouteClass declares what a route demands from resolution.
type RouteClass string

const (
	RoutePublic       RouteClass = "public"
	RouteIdentityOnly RouteClass = "identity-only"
	RouteTenantScoped RouteClass = "tenant-scoped"
	RouteMasterOnly   RouteClass = "master-only"
)

// Identity is the authenticated subject as the resolver sees it. The auth
// layer converts verified token claims into this shape.
type Identity struct {
	SubjectID string
	Role      domain.Role
	TenantID  string
}

func (i *Identity) IsMaster() bool {
	return i != nil && i.Role == domain.RoleMaster
}

// Envelope is everything resolution may draw from. Origin-only envelopes
// (no identity) are valid input: CORS preflights on tenant-scoped routes
// resolve through host and header sources.
type Envelope struct {
	Identity        *Identity
	TenantIDHeader  string
	TenantKeyHeader string
	Origin          string
	Host            string
	QueryTenant     string
	QueryTenantID   string
	RouteClass      RouteClass

	// FallbackEligible is set by the router for routes on the migration
	// fallback allow-list; the policy flag alone is not enough.
	FallbackEligible bool
}

// Resolution is the outcome of a successful resolve.
type Resolution struct {
	Tenant   *domain.Tenant
	Source   Source
	IsMaster bool

	// Limited marks a suspended/expired subscription admitted under the
	// "limited" policy instead of being denied.
	Limited bool
}

// TenantID returns the resolved tenant id, empty for master-unscoped.
func (r *Resolution) TenantID() string {
	if r.Tenant == nil {
		return ""
	}
	return r.Tenant.ID
}

// Scope converts the resolution into a context frame.
func (r *Resolution) Scope() Scope {
	return Scope{TenantID: r.TenantID(), IsMaster: r.IsMaster}
}

// SuspendedPolicy selects the behaviour for suspended/expired subscriptions.
type SuspendedPolicy string

const (
	SuspendedDeny    SuspendedPolicy = "deny"
	SuspendedLimited SuspendedPolicy = "limited"
)

// ResolverPolicy carries the configurable knobs of resolution.
type ResolverPolicy struct {
	AllowQueryTenant   bool
	UseDefaultFallback bool
	FallbackTenantKey  string
	SuspendedPolicy    SuspendedPolicy
	ReservedSubdomains []string
}

func DefaultResolverPolicy() ResolverPolicy {
	return ResolverPolicy{
		FallbackTenantKey:  "default",
		SuspendedPolicy:    SuspendedDeny,
		ReservedSubdomains: []string{"www", "api", "localhost"},
	}
}

// Resolver deterministically chooses the tenant for an operation. The
// resolution order is total, so ties are impossible; when a tenant is
// reachable by several mechanisms the earliest one wins and Source records
// which.
type Resolver struct {
	registry *Registry
	policy   ResolverPolicy
}

func NewResolver(registry *Registry, policy ResolverPolicy) *Resolver {
	if policy.FallbackTenantKey == "" {
		policy.FallbackTenantKey = "default"
	}
	if len(policy.ReservedSubdomains) == 0 {
		policy.ReservedSubdomains = []string{"www", "api", "localhost"}
	}
	return &Resolver{registry: registry, policy: policy}
}

// Resolve walks the source list in order and validates the first hit.
func (r *Resolver) Resolve(ctx context.Context, env Envelope) (*Resolution, error) {
	res, err := r.pick(ctx, env)
	if err != nil {
		return nil, err
	}
	return r.validate(env, res)
}

func (r *Resolver) pick(ctx context.Context, env Envelope) (*Resolution, error) {
	// Master identities are unscoped unless they explicitly override.
	if env.Identity.IsMaster() {
		override := firstNonEmpty(env.TenantIDHeader, env.TenantKeyHeader, env.QueryTenantID, env.QueryTenant)
		if override == "" {
			return &Resolution{IsMaster: true}, nil
		}
		t, err := RefID(override).Coerce(ctx, r.registry)
		if err != nil {
			return nil, err
		}
		return &Resolution{Tenant: t, Source: SourceMasterOverride, IsMaster: true}, nil
	}

	// Identity-bound tenant.
	if env.Identity != nil && env.Identity.TenantID != "" {
		t, err := r.registry.ByID(ctx, env.Identity.TenantID)
		if err != nil {
			return nil, err
		}
		return &Resolution{Tenant: t, Source: SourceSubject}, nil
	}

	// Explicit headers. A header naming an unknown tenant is an error, not
	// a fall-through: the caller asked for something that does not exist.
	if env.TenantIDHeader != "" {
		t, err := r.registry.ByID(ctx, env.TenantIDHeader)
		if err != nil {
			return nil, err
		}
		return &Resolution{Tenant: t, Source: SourceHeaderID}, nil
	}
	if env.TenantKeyHeader != "" {
		t, err := r.registry.ByKey(ctx, env.TenantKeyHeader)
		if err != nil {
			return nil, err
		}
		return &Resolution{Tenant: t, Source: SourceHeaderKey}, nil
	}

	// Host-derived sources fall through silently when nothing matches.
	if sub := r.subdomain(env.Host); sub != "" {
		if t, err := r.registry.ByKey(ctx, sub); err == nil {
			return &Resolution{Tenant: t, Source: SourceSubdomain}, nil
		} else if !errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
	}
	if host := hostname(env.Host); host != "" {
		if t, err := r.registry.ByDomain(ctx, host); err == nil {
			return &Resolution{Tenant: t, Source: SourceDomain}, nil
		} else if !errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
	}

	// Development aid, off in production.
	if r.policy.AllowQueryTenant {
		if q := firstNonEmpty(env.QueryTenant, env.QueryTenantID); q != "" {
			t, err := RefID(q).Coerce(ctx, r.registry)
			if err != nil {
				return nil, err
			}
			return &Resolution{Tenant: t, Source: SourceQuery}, nil
		}
	}

	// Migration fallback, gated twice: policy flag and route allow-list.
	if r.policy.UseDefaultFallback && env.FallbackEligible {
		if t, err := r.registry.ByKey(ctx, r.policy.FallbackTenantKey); err == nil {
			return &Resolution{Tenant: t, Source: SourceFallback}, nil
		} else if !errors.Is(err, ErrTenantNotFound) {
			return nil, err
		}
	}

	return &Resolution{}, nil
}

func (r *Resolver) validate(env Envelope, res *Resolution) (*Resolution, error) {
	if res.Tenant == nil {
		if env.RouteClass == RouteTenantScoped {
			return nil, ErrTenantRequired
		}
		return res, nil
	}

	if !res.Tenant.IsActive {
		return nil, ErrTenantSuspended
	}

	if !res.Tenant.SubscriptionUsable() {
		if r.policy.SuspendedPolicy == SuspendedLimited {
			res.Limited = true
		} else if res.Tenant.SubscriptionStatus == domain.SubscriptionSuspended {
			return nil, ErrSubscriptionSuspended
		} else {
			return nil, ErrSubscriptionExpired
		}
	}

	// A non-master identity can never reach a tenant other than its own.
	if env.Identity != nil && !env.Identity.IsMaster() &&
		env.Identity.TenantID != "" && env.Identity.TenantID != res.Tenant.ID {
		return nil, ErrCrossTenantDenied
	}

	return res, nil
}

// subdomain extracts the leftmost host label when the host has the
// subdomain.domain.tld shape, skipping reserved labels.
func (r *Resolver) subdomain(host string) string {
	h := hostname(host)
	parts := strings.Split(h, ".")
	if len(parts) < 3 {
		return ""
	}
	label := parts[0]
	if slices.Contains(r.policy.ReservedSubdomains, label) {
		return ""
	}
	return label
}

func hostname(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if idx := strings.LastIndex(host, ":"); idx != -1 && !strings.Contains(host[idx:], "]") {
		host = host[:idx]
	}
	return host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
