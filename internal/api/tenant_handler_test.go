package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/supportdeskhq/tenantcore/internal/cors"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
)

type mockTenantAdminService struct {
	mock.Mock
}

func (m *mockTenantAdminService) Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	args := m.Called(ctx, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *mockTenantAdminService) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *mockTenantAdminService) Update(ctx context.Context, t *domain.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockTenantAdminService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockTenantAdminService) List(ctx context.Context) ([]domain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Tenant), args.Error(1)
}

func (m *mockTenantAdminService) AddOrigin(ctx context.Context, tenantID, pattern string) error {
	return m.Called(ctx, tenantID, pattern).Error(0)
}

func (m *mockTenantAdminService) RemoveOrigin(ctx context.Context, tenantID, pattern string) error {
	return m.Called(ctx, tenantID, pattern).Error(0)
}

func (m *mockTenantAdminService) SetOrigins(ctx context.Context, tenantID string, patterns []string) error {
	return m.Called(ctx, tenantID, patterns).Error(0)
}

type TenantHandlerTestSuite struct {
	suite.Suite
	service *mockTenantAdminService
	stats   *cors.Stats
	router  *gin.Engine
}

func (s *TenantHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.service = new(mockTenantAdminService)
	s.stats = cors.NewStats(100)
	handler := NewTenantHandler(s.service, s.stats)

	s.router = gin.New()
	group := s.router.Group("/admin/tenants")
	group.POST("", handler.CreateTenant)
	group.GET("", handler.ListTenants)
	group.GET("/:id", handler.GetTenant)
	group.PATCH("/:id", handler.UpdateTenant)
	group.DELETE("/:id", handler.DeleteTenant)
	group.POST("/:id/origins", handler.AddOrigin)
	group.GET("/:id/origins/stats", handler.OriginStats)
	group.GET("/:id/origins/suggestions", handler.SuggestOrigins)
}

func (s *TenantHandlerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *TenantHandlerTestSuite) TestCreateTenant() {
	s.service.On("Create", mock.Anything, mock.MatchedBy(func(t *domain.Tenant) bool {
		return t.Key == "acme" && t.Name == "Acme Corp"
	})).Return(&domain.Tenant{ID: "tenant-a", Key: "acme", Name: "Acme Corp"}, nil)

	w := s.do(http.MethodPost, "/admin/tenants", gin.H{"key": "acme", "name": "Acme Corp"})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Contains(w.Body.String(), "tenant-a")
	s.service.AssertExpectations(s.T())
}

func (s *TenantHandlerTestSuite) TestCreateTenantMissingKey() {
	w := s.do(http.MethodPost, "/admin/tenants", gin.H{"name": "Acme Corp"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.service.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *TenantHandlerTestSuite) TestGetTenantNotFound() {
	s.service.On("GetByID", mock.Anything, "tenant-x").Return(nil, tenant.ErrTenantNotFound)

	w := s.do(http.MethodGet, "/admin/tenants/tenant-x", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Contains(w.Body.String(), string(tenant.CodeTenantNotFound))
}

func (s *TenantHandlerTestSuite) TestUpdateTenantPatchesOnlyGivenFields() {
	current := &domain.Tenant{ID: "tenant-a", Key: "acme", Name: "Acme Corp", IsActive: true}
	s.service.On("GetByID", mock.Anything, "tenant-a").Return(current, nil)
	s.service.On("Update", mock.Anything, mock.MatchedBy(func(t *domain.Tenant) bool {
		return t.Name == "Acme Corporation" && t.Key == "acme" && t.IsActive
	})).Return(nil)

	w := s.do(http.MethodPatch, "/admin/tenants/tenant-a", gin.H{"name": "Acme Corporation"})
	s.Require().Equal(http.StatusOK, w.Code)
	s.service.AssertExpectations(s.T())
}

func (s *TenantHandlerTestSuite) TestDeleteTenant() {
	s.service.On("Delete", mock.Anything, "tenant-a").Return(nil)

	w := s.do(http.MethodDelete, "/admin/tenants/tenant-a", nil)
	s.Equal(http.StatusNoContent, w.Code)
	s.service.AssertExpectations(s.T())
}

func (s *TenantHandlerTestSuite) TestAddOrigin() {
	s.service.On("AddOrigin", mock.Anything, "tenant-a", "*.acme.io").Return(nil)

	w := s.do(http.MethodPost, "/admin/tenants/tenant-a/origins", gin.H{"pattern": "*.acme.io"})
	s.Equal(http.StatusNoContent, w.Code)
	s.service.AssertExpectations(s.T())
}

func (s *TenantHandlerTestSuite) TestAddOriginInvalidPattern() {
	s.service.On("AddOrigin", mock.Anything, "tenant-a", "*.com").
		Return(tenant.ErrOriginNotAllowed.WithDetails(map[string]any{"pattern": "*.com"}))

	w := s.do(http.MethodPost, "/admin/tenants/tenant-a/origins", gin.H{"pattern": "*.com"})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *TenantHandlerTestSuite) TestOriginStats() {
	s.stats.RecordBlocked("tenant-a", "https://evil.example.com")
	s.stats.RecordAllowed("tenant-a", "https://app.acme.com")
	s.stats.RecordBlocked("tenant-b", "https://other.example.com")

	w := s.do(http.MethodGet, "/admin/tenants/tenant-a/origins/stats", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "evil.example.com")
	s.NotContains(w.Body.String(), "other.example.com")
}

func (s *TenantHandlerTestSuite) TestSuggestOrigins() {
	for _, origin := range []string{
		"https://app.acme.io", "https://portal.acme.io", "https://admin.acme.io",
	} {
		for i := 0; i < 5; i++ {
			s.stats.RecordBlocked("tenant-a", origin)
		}
	}

	w := s.do(http.MethodGet, "/admin/tenants/tenant-a/origins/suggestions", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "*.acme.io")
}

func TestTenantHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TenantHandlerTestSuite))
}
