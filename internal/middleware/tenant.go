package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/supportdeskhq/tenantcore/internal/api/dto"
	"github.com/supportdeskhq/tenantcore/internal/audit"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

const (
	resolutionKey = "tenant_resolution"

	HeaderTenantID  = "x-tenant-id"
	HeaderTenantKey = "x-tenant-key"
	HeaderRequestID = "x-request-id"
)

type TenantMiddleware struct {
	resolver       *tenant.Resolver
	auditor        audit.Publisher
	log            *logger.Logger
	fallbackRoutes []string
}

func NewTenantMiddleware(resolver *tenant.Resolver, auditor audit.Publisher, log *logger.Logger, fallbackRoutes []string) *TenantMiddleware {
	return &TenantMiddleware{
		resolver:       resolver,
		auditor:        auditor,
		log:            log,
		fallbackRoutes: fallbackRoutes,
	}
}

// Resolve runs tenant resolution for the declared route class and installs
// the resulting scope on the request context. Every downstream gateway call
// inherits it; nothing else ever sets the scope for HTTP requests.
func (m *TenantMiddleware) Resolve(class tenant.RouteClass) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reqID := c.GetHeader(HeaderRequestID); reqID != "" {
			c.Header("X-Request-Id", reqID)
		}

		if class == tenant.RouteMasterOnly {
			identity := IdentityFrom(c)
			if identity == nil || !identity.IsMaster() {
				dto.AbortWithError(c, tenant.ErrInsufficientRole)
				return
			}
		}

		env := m.envelope(c, class)
		res, err := m.resolver.Resolve(c.Request.Context(), env)
		if err != nil {
			dto.AbortWithError(c, err)
			return
		}

		ctx := tenant.WithScope(c.Request.Context(), res.Scope())
		c.Request = c.Request.WithContext(ctx)
		c.Set(resolutionKey, res)

		if res.Tenant != nil {
			c.Header("X-Tenant-Id", res.Tenant.ID)
			c.Header("X-Tenant-Key", res.Tenant.Key)
			m.log.Debugf("resolved tenant %s via %s", res.Tenant.ID, res.Source)
		}

		// Master overrides and migration fallbacks are the two resolution
		// paths worth a durable audit trail.
		if m.auditor != nil && (res.Source == tenant.SourceMasterOverride || res.Source == tenant.SourceFallback) {
			var subject string
			if identity := IdentityFrom(c); identity != nil {
				subject = identity.SubjectID
			}
			m.auditor.Emit(ctx, domain.AuditEvent{
				ID:        uuid.NewString(),
				Type:      domain.AuditTenantResolved,
				TenantID:  res.TenantID(),
				SubjectID: subject,
				Source:    string(res.Source),
				Timestamp: time.Now(),
			})
		}

		c.Next()
	}
}

// RequireModule gates a route group on a tenant feature module.
func (m *TenantMiddleware) RequireModule(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := ResolutionFrom(c)
		if res == nil || res.Tenant == nil {
			dto.AbortWithError(c, tenant.ErrTenantRequired)
			return
		}
		if res.IsMaster {
			c.Next()
			return
		}
		if !res.Tenant.ModuleEnabled(name) {
			dto.AbortWithError(c, tenant.ErrModuleDisabled.WithDetails(map[string]any{"module": name}))
			return
		}
		c.Next()
	}
}

func (m *TenantMiddleware) envelope(c *gin.Context, class tenant.RouteClass) tenant.Envelope {
	return tenant.Envelope{
		Identity:         IdentityFrom(c),
		TenantIDHeader:   c.GetHeader(HeaderTenantID),
		TenantKeyHeader:  c.GetHeader(HeaderTenantKey),
		Origin:           c.GetHeader("Origin"),
		Host:             c.Request.Host,
		QueryTenant:      c.Query("tenant"),
		QueryTenantID:    c.Query("tenantId"),
		RouteClass:       class,
		FallbackEligible: m.fallbackEligible(c.Request.URL.Path),
	}
}

func (m *TenantMiddleware) fallbackEligible(path string) bool {
	for _, prefix := range m.fallbackRoutes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ResolutionFrom returns the request's resolution outcome, nil when the
// route skipped resolution.
func ResolutionFrom(c *gin.Context) *tenant.Resolution {
	if v, ok := c.Get(resolutionKey); ok {
		if res, ok := v.(*tenant.Resolution); ok {
			return res
		}
	}
	return nil
}
