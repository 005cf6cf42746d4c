package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/mocks"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

type TenantMiddlewareTestSuite struct {
	suite.Suite
	store   *mocks.TenantRepository
	auditor *emitRecorder
	mw      *TenantMiddleware
}

func (s *TenantMiddlewareTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.store = new(mocks.TenantRepository)
	s.auditor = &emitRecorder{}
	registry := tenant.NewRegistry(s.store, time.Minute, logger.NewLogger("test"))
	resolver := tenant.NewResolver(registry, tenant.ResolverPolicy{
		ReservedSubdomains: []string{"www", "api", "localhost"},
	})
	s.mw = NewTenantMiddleware(resolver, s.auditor, logger.NewLogger("test"), nil)
}

func (s *TenantMiddlewareTestSuite) acme() *domain.Tenant {
	return &domain.Tenant{
		ID:                 "tenant-a",
		Key:                "acme",
		Name:               "Acme Corp",
		IsActive:           true,
		SubscriptionStatus: domain.SubscriptionActive,
		EnabledModules:     []string{"conversations"},
	}
}

func (s *TenantMiddlewareTestSuite) scopedRouter(extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{s.mw.Resolve(tenant.RouteTenantScoped)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		id, _ := tenant.CurrentTenant(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"tenant": id})
	})
	r.GET("/t", handlers...)
	return r
}

func (s *TenantMiddlewareTestSuite) TestHeaderResolutionInstallsScope() {
	s.store.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil)

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("x-tenant-id", "tenant-a")
	w := httptest.NewRecorder()
	s.scopedRouter().ServeHTTP(w, req)

	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "tenant-a")
	s.Equal("tenant-a", w.Header().Get("X-Tenant-Id"))
	s.Equal("acme", w.Header().Get("X-Tenant-Key"))
}

func (s *TenantMiddlewareTestSuite) TestUnknownTenantHeaderIsNotFound() {
	s.store.On("GetByID", mock.Anything, "tenant-x").Return(nil, tenant.ErrTenantNotFound)

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("x-tenant-id", "tenant-x")
	w := httptest.NewRecorder()
	s.scopedRouter().ServeHTTP(w, req)

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *TenantMiddlewareTestSuite) TestSubdomainResolution() {
	s.store.On("GetByKey", mock.Anything, "acme").Return(s.acme(), nil)

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Host = "acme.supportdesk.io"
	w := httptest.NewRecorder()
	s.scopedRouter().ServeHTTP(w, req)

	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "tenant-a")
}

func (s *TenantMiddlewareTestSuite) TestMasterOnlyRejectsUnauthenticated() {
	r := gin.New()
	r.GET("/admin", s.mw.Resolve(tenant.RouteMasterOnly), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *TenantMiddlewareTestSuite) TestMasterOverrideAudited() {
	s.store.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil)

	r := gin.New()
	r.GET("/admin",
		func(c *gin.Context) {
			c.Set(identityKey, &tenant.Identity{SubjectID: "root", Role: domain.RoleMaster})
		},
		s.mw.Resolve(tenant.RouteMasterOnly),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("x-tenant-id", "tenant-a")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().Len(s.auditor.events, 1)
	s.Equal(domain.AuditTenantResolved, s.auditor.events[0].Type)
	s.Equal("tenant-a", s.auditor.events[0].TenantID)
	s.Equal("root", s.auditor.events[0].SubjectID)
}

func (s *TenantMiddlewareTestSuite) TestRequestIDEchoed() {
	s.store.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil)

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("x-tenant-id", "tenant-a")
	req.Header.Set("x-request-id", "req-42")
	w := httptest.NewRecorder()
	s.scopedRouter().ServeHTTP(w, req)

	s.Equal("req-42", w.Header().Get("X-Request-Id"))
}

func (s *TenantMiddlewareTestSuite) TestRequireModuleEnabled() {
	s.store.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil)

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("x-tenant-id", "tenant-a")
	w := httptest.NewRecorder()
	s.scopedRouter(s.mw.RequireModule("conversations")).ServeHTTP(w, req)

	s.Equal(http.StatusOK, w.Code)
}

func (s *TenantMiddlewareTestSuite) TestRequireModuleDisabled() {
	s.store.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil)

	req := httptest.NewRequest(http.MethodGet, "/t", nil)
	req.Header.Set("x-tenant-id", "tenant-a")
	w := httptest.NewRecorder()
	s.scopedRouter(s.mw.RequireModule("attachments")).ServeHTTP(w, req)

	s.Equal(http.StatusForbidden, w.Code)
}

func TestTenantMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(TenantMiddlewareTestSuite))
}
