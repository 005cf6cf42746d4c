package cors

import (
	"net/url"
	"sort"
	"strings"
	"sync"
)

// DefaultStatsCapacity bounds the number of (tenant, origin) counter pairs
// held in memory. Counters are best-effort and reset on restart.
const DefaultStatsCapacity = 10000

// DefaultSuggestThreshold is the minimum number of blocked requests from a
// domain's subdomains before Suggest proposes a wildcard for it.
const DefaultSuggestThreshold = 10

type counter struct {
	Allowed uint64
	Blocked uint64
}

type statKey struct {
	tenantID string
	origin   string
}

// Stats keeps bounded allow/block counters per (tenant, origin). When the
// capacity is reached, new pairs are dropped rather than evicting hot ones.
type Stats struct {
	mu       sync.Mutex
	counters map[statKey]*counter
	capacity int
}

func NewStats(capacity int) *Stats {
	if capacity <= 0 {
		capacity = DefaultStatsCapacity
	}
	return &Stats{
		counters: make(map[statKey]*counter),
		capacity: capacity,
	}
}

func (s *Stats) RecordAllowed(tenantID, origin string) {
	if c := s.counterFor(tenantID, origin); c != nil {
		c.Allowed++
	}
}

func (s *Stats) RecordBlocked(tenantID, origin string) {
	if c := s.counterFor(tenantID, origin); c != nil {
		c.Blocked++
	}
}

func (s *Stats) counterFor(tenantID, origin string) *counter {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := statKey{tenantID: tenantID, origin: origin}
	if c, ok := s.counters[key]; ok {
		return c
	}
	if len(s.counters) >= s.capacity {
		return nil
	}
	c := &counter{}
	s.counters[key] = c
	return c
}

// OriginStat is one row of the per-tenant counter snapshot.
type OriginStat struct {
	Origin  string `json:"origin"`
	Allowed uint64 `json:"allowed"`
	Blocked uint64 `json:"blocked"`
}

// Snapshot returns the tenant's counters sorted by blocked count.
func (s *Stats) Snapshot(tenantID string) []OriginStat {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []OriginStat
	for key, c := range s.counters {
		if key.tenantID == tenantID {
			out = append(out, OriginStat{Origin: key.origin, Allowed: c.Allowed, Blocked: c.Blocked})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Blocked > out[j].Blocked })
	return out
}

// Suggest proposes coarser patterns from blocked-origin statistics: when
// three or more distinct subdomains of one domain were blocked and their
// combined count clears the threshold, a *.domain.tld wildcard is offered.
func (s *Stats) Suggest(tenantID string, threshold uint64) []string {
	if threshold == 0 {
		threshold = DefaultSuggestThreshold
	}

	type domainAgg struct {
		subdomains map[string]bool
		blocked    uint64
	}
	domains := make(map[string]*domainAgg)

	s.mu.Lock()
	for key, c := range s.counters {
		if key.tenantID != tenantID || c.Blocked == 0 {
			continue
		}
		host := blockedHost(key.origin)
		parts := strings.Split(host, ".")
		if len(parts) < 3 {
			continue
		}
		domain := strings.Join(parts[1:], ".")
		agg, ok := domains[domain]
		if !ok {
			agg = &domainAgg{subdomains: make(map[string]bool)}
			domains[domain] = agg
		}
		agg.subdomains[parts[0]] = true
		agg.blocked += c.Blocked
	}
	s.mu.Unlock()

	var suggestions []string
	for domain, agg := range domains {
		if len(agg.subdomains) >= 3 && agg.blocked >= threshold {
			suggestions = append(suggestions, "*."+domain)
		}
	}
	sort.Strings(suggestions)
	return suggestions
}

func blockedHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Hostname() == "" {
		return origin
	}
	return u.Hostname()
}
