package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/supportdeskhq/tenantcore/internal/api/dto"
	"github.com/supportdeskhq/tenantcore/internal/audit"
	"github.com/supportdeskhq/tenantcore/internal/cors"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

const preflightMaxAge = "3600"

type CORSMiddleware struct {
	policy   *cors.Policy
	registry *tenant.Registry
	auditor  audit.Publisher
	log      *logger.Logger
}

func NewCORSMiddleware(policy *cors.Policy, registry *tenant.Registry, auditor audit.Publisher, log *logger.Logger) *CORSMiddleware {
	return &CORSMiddleware{policy: policy, registry: registry, auditor: auditor, log: log}
}

// Apply checks the request origin against the resolved tenant's allow-list
// exactly once, after resolution. Browsers enforce the decision via the
// reflected headers; non-browser clients without an Origin header pass.
func (m *CORSMiddleware) Apply() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		tenantID := ""
		if res := ResolutionFrom(c); res != nil {
			tenantID = res.TenantID()
		}

		allowed, reason := m.policy.IsAllowed(c.Request.Context(), origin, tenantID)
		if !allowed {
			m.log.Warnf("blocked origin %s for tenant %s (%s)", origin, tenantID, reason)
			if m.auditor != nil {
				m.auditor.Emit(c.Request.Context(), domain.AuditEvent{
					ID:        uuid.NewString(),
					Type:      domain.AuditOriginBlocked,
					TenantID:  tenantID,
					Source:    origin,
					Timestamp: time.Now(),
				})
			}
			dto.AbortWithError(c, tenant.ErrOriginNotAllowed)
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Vary", "Origin")
		c.Next()
	}
}

// Preflight answers OPTIONS requests. Preflights carry no bearer token, so
// the tenant is inferred from routing headers or the host alone.
func (m *CORSMiddleware) Preflight() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Status(http.StatusNoContent)
			return
		}

		tenantID := m.tenantHint(c)
		allowed, _ := m.policy.IsAllowed(c.Request.Context(), origin, tenantID)
		if !allowed {
			c.Status(http.StatusForbidden)
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Tenant-Id, X-Tenant-Key, X-Request-Id")
		c.Header("Access-Control-Max-Age", preflightMaxAge)
		c.Header("Vary", "Origin")
		c.Status(http.StatusNoContent)
	}
}

// tenantHint mirrors the host-based resolution steps without requiring
// authentication. Best effort; an unknown tenant just means the dev-origin
// list alone applies.
func (m *CORSMiddleware) tenantHint(c *gin.Context) string {
	if id := c.GetHeader(HeaderTenantID); id != "" {
		return id
	}
	if key := c.GetHeader(HeaderTenantKey); key != "" {
		if t, err := m.registry.ByKey(c.Request.Context(), key); err == nil {
			return t.ID
		}
		return ""
	}

	host := c.Request.Host
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	labels := strings.Split(host, ".")
	if len(labels) >= 3 {
		sub := labels[0]
		if sub != "www" && sub != "api" {
			if t, err := m.registry.ByKey(c.Request.Context(), sub); err == nil {
				return t.ID
			}
		}
	}
	if t, err := m.registry.ByDomain(c.Request.Context(), host); err == nil {
		return t.ID
	}
	return ""
}
