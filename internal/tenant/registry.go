package tenant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

// Store is the persistence surface the registry reads through.
type Store interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByKey(ctx context.Context, key string) (*domain.Tenant, error)
	GetByDomain(ctx context.Context, host string) (*domain.Tenant, error)
}

const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	tenant    *domain.Tenant
	expiresAt time.Time
}

// Registry is the authoritative tenant lookup with a read-through cache.
// Entries expire after the configured TTL; absent tenants are never cached
// so a newly provisioned tenant becomes visible immediately. All aliases of
// a tenant (id, key, legacy slug, custom domain) invalidate together.
// Lookups return a copy of the cached record, so callers can stage edits on
// the result without publishing unwritten state to concurrent readers.
type Registry struct {
	store Store
	ttl   time.Duration
	log   *logger.Logger

	mu      sync.RWMutex
	entries map[string]cacheEntry
	aliases map[string][]string // tenant id -> cache keys holding it
}

func NewRegistry(store Store, ttl time.Duration, log *logger.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Registry{
		store:   store,
		ttl:     ttl,
		log:     log,
		entries: make(map[string]cacheEntry),
		aliases: make(map[string][]string),
	}
}

// ByID looks a tenant up by its opaque id.
func (r *Registry) ByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.lookup(ctx, "id:"+id, func(ctx context.Context) (*domain.Tenant, error) {
		return r.store.GetByID(ctx, id)
	})
}

// ByKey looks a tenant up by key, accepting the historical slug as alias.
func (r *Registry) ByKey(ctx context.Context, key string) (*domain.Tenant, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil, ErrTenantNotFound
	}
	return r.lookup(ctx, "key:"+key, func(ctx context.Context) (*domain.Tenant, error) {
		return r.store.GetByKey(ctx, key)
	})
}

// ByDomain looks a tenant up by its full custom domain.
func (r *Registry) ByDomain(ctx context.Context, host string) (*domain.Tenant, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return nil, ErrTenantNotFound
	}
	return r.lookup(ctx, "domain:"+host, func(ctx context.Context) (*domain.Tenant, error) {
		return r.store.GetByDomain(ctx, host)
	})
}

// Refresh drops every cached alias of the tenant. Callers invoke it after
// any write to the tenant record or its origin list.
func (r *Registry) Refresh(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.aliases[id] {
		delete(r.entries, key)
	}
	delete(r.aliases, id)
}

func (r *Registry) lookup(ctx context.Context, cacheKey string, load func(ctx context.Context) (*domain.Tenant, error)) (*domain.Tenant, error) {
	r.mu.RLock()
	entry, ok := r.entries[cacheKey]
	r.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.tenant.Clone(), nil
	}

	t, err := load(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrTenantNotFound) {
			return nil, ErrTenantNotFound
		}
		// One retry on transient storage errors, then surface.
		t, err = load(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrTenantNotFound
			}
			return nil, err
		}
	}

	r.mu.Lock()
	r.entries[cacheKey] = cacheEntry{tenant: t.Clone(), expiresAt: time.Now().Add(r.ttl)}
	r.aliases[t.ID] = appendUnique(r.aliases[t.ID], cacheKey)
	r.mu.Unlock()

	return t.Clone(), nil
}

func appendUnique(keys []string, key string) []string {
	for _, k := range keys {
		if k == key {
			return keys
		}
	}
	return append(keys, key)
}
