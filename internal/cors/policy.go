package cors

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

// developmentOrigins is the built-in allow-list for local frontends,
// active only when the development flag is set.
var developmentOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://localhost:8080",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
	"http://127.0.0.1:8080",
}

// OriginStore persists per-tenant origin lists.
type OriginStore interface {
	UpdateOrigins(ctx context.Context, tenantID string, origins []string) error
}

// Policy evaluates request origins against each tenant's allow-list.
// Origin lists ride on the cached tenant record, so list caching and
// invalidation share the registry's single primitive.
type Policy struct {
	registry      *tenant.Registry
	store         OriginStore
	log           *logger.Logger
	development   bool
	extraDev      []string
	masterOrigins []string
	stats         *Stats
}

// NewPolicy builds the origin policy. masterOrigins is the operator-owned
// allow-list for requests that resolve to no tenant, such as the admin
// console hitting master-only routes.
func NewPolicy(registry *tenant.Registry, store OriginStore, log *logger.Logger, development bool, extraDevOrigins, masterOrigins []string) *Policy {
	return &Policy{
		registry:      registry,
		store:         store,
		log:           log,
		development:   development,
		extraDev:      extraDevOrigins,
		masterOrigins: masterOrigins,
		stats:         NewStats(DefaultStatsCapacity),
	}
}

// Stats exposes the per-origin counters for dashboards and Suggest.
func (p *Policy) Stats() *Stats {
	return p.stats
}

// IsAllowed reports whether the origin may reach the tenant, with a reason
// for telemetry. Counters are updated as a side effect.
func (p *Policy) IsAllowed(ctx context.Context, origin, tenantID string) (bool, string) {
	if origin == "" {
		return true, "no-origin"
	}

	if p.development && p.matchesDev(origin) {
		return true, "development"
	}

	// No resolved tenant means a master-plane request. Those are gated by
	// the operator-configured console list, not any tenant's list.
	if tenantID == "" {
		for _, pattern := range p.masterOrigins {
			if MatchOrigin(origin, pattern) {
				p.stats.RecordAllowed(tenantID, origin)
				return true, "pattern:" + pattern
			}
		}
		p.stats.RecordBlocked(tenantID, origin)
		return false, "no-match"
	}

	t, err := p.registry.ByID(ctx, tenantID)
	if err != nil {
		p.stats.RecordBlocked(tenantID, origin)
		return false, "tenant-not-found"
	}

	for _, pattern := range t.AllowedOrigins {
		if MatchOrigin(origin, pattern) {
			p.stats.RecordAllowed(tenantID, origin)
			return true, "pattern:" + pattern
		}
	}

	p.stats.RecordBlocked(tenantID, origin)
	return false, "no-match"
}

// AddAllowed appends a validated pattern to the tenant's list.
func (p *Policy) AddAllowed(ctx context.Context, tenantID, pattern string) error {
	if err := ValidatePattern(pattern); err != nil {
		return err
	}
	t, err := p.registry.ByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if slices.Contains(t.AllowedOrigins, pattern) {
		return nil
	}
	return p.persist(ctx, tenantID, append(slices.Clone(t.AllowedOrigins), pattern))
}

// RemoveAllowed deletes a pattern from the tenant's list.
func (p *Policy) RemoveAllowed(ctx context.Context, tenantID, pattern string) error {
	t, err := p.registry.ByID(ctx, tenantID)
	if err != nil {
		return err
	}
	origins := slices.DeleteFunc(slices.Clone(t.AllowedOrigins), func(s string) bool {
		return s == pattern
	})
	return p.persist(ctx, tenantID, origins)
}

// SetAllowed replaces the tenant's list wholesale.
func (p *Policy) SetAllowed(ctx context.Context, tenantID string, patterns []string) error {
	for _, pattern := range patterns {
		if err := ValidatePattern(pattern); err != nil {
			return err
		}
	}
	return p.persist(ctx, tenantID, patterns)
}

func (p *Policy) persist(ctx context.Context, tenantID string, origins []string) error {
	if err := p.store.UpdateOrigins(ctx, tenantID, origins); err != nil {
		return err
	}
	p.registry.Refresh(tenantID)
	return nil
}

func (p *Policy) matchesDev(origin string) bool {
	if slices.Contains(developmentOrigins, origin) {
		return true
	}
	return slices.Contains(p.extraDev, origin)
}

// MatchOrigin checks one origin against one pattern. Supported forms:
// exact match, "*" (everything), "*.domain.tld" (any subdomain),
// "scheme://host:*" (any port), and "/regex/" against the full origin.
func MatchOrigin(origin, pattern string) bool {
	if pattern == "" {
		return false
	}
	if pattern == "*" {
		return true
	}
	if origin == pattern {
		return true
	}

	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") && len(pattern) > 2 {
		re, err := regexp.Compile(pattern[1 : len(pattern)-1])
		return err == nil && re.MatchString(origin)
	}

	if strings.HasPrefix(pattern, "*.") {
		host := originHost(origin)
		domain := pattern[2:]
		return host != "" && (host == domain || strings.HasSuffix(host, "."+domain))
	}

	if strings.HasSuffix(pattern, ":*") {
		base := pattern[:len(pattern)-2]
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return base == u.Scheme+"://"+u.Hostname()
	}

	return false
}

// ValidatePattern rejects patterns that could never match or would match
// too much by accident.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("origin pattern must not be empty")
	}
	if pattern == "*" {
		return nil
	}
	if strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		if len(pattern) <= 2 {
			return fmt.Errorf("empty regex pattern")
		}
		if _, err := regexp.Compile(pattern[1 : len(pattern)-1]); err != nil {
			return fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		return nil
	}
	if strings.HasPrefix(pattern, "*.") {
		if !strings.Contains(pattern[2:], ".") {
			return fmt.Errorf("wildcard pattern %q needs at least domain.tld", pattern)
		}
		return nil
	}
	if strings.HasSuffix(pattern, ":*") {
		pattern = pattern[:len(pattern)-2]
	}
	u, err := url.Parse(pattern)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("origin pattern %q must be scheme://host[:port]", pattern)
	}
	return nil
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
