package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/supportdeskhq/tenantcore/internal/cors"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/mocks"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

type TenantServiceTestSuite struct {
	suite.Suite
	repo       *mocks.Repository
	tenantRepo *mocks.TenantRepository
	registry   *tenant.Registry
	service    *TenantService
}

func (s *TenantServiceTestSuite) SetupTest() {
	log := logger.NewLogger("test")
	s.tenantRepo = new(mocks.TenantRepository)
	s.repo = new(mocks.Repository)
	s.repo.On("Tenant").Return(s.tenantRepo).Maybe()
	s.registry = tenant.NewRegistry(s.tenantRepo, time.Minute, log)
	policy := cors.NewPolicy(s.registry, s.tenantRepo, log, false, nil, nil)
	s.service = NewTenantService(s.repo, s.registry, policy)
}

func (s *TenantServiceTestSuite) acme() *domain.Tenant {
	return &domain.Tenant{
		ID:                 "tenant-a",
		Key:                "acme",
		Name:               "Acme Corp",
		IsActive:           true,
		SubscriptionStatus: domain.SubscriptionActive,
		AllowedOrigins:     []string{"https://app.acme.com"},
	}
}

func (s *TenantServiceTestSuite) TestCreateTenant() {
	t := s.acme()
	s.tenantRepo.On("Create", mock.Anything, t).Return(t, nil)

	created, err := s.service.Create(context.Background(), t)
	s.Require().NoError(err)
	s.Equal("acme", created.Key)
	s.tenantRepo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestCreateRejectsInvalidKey() {
	t := s.acme()
	t.Key = "Acme Corp!"

	_, err := s.service.Create(context.Background(), t)
	s.ErrorIs(err, tenant.ErrInvalidTenantKey)
	s.tenantRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *TenantServiceTestSuite) TestCreateRejectsInvalidOriginPattern() {
	t := s.acme()
	t.AllowedOrigins = []string{"*.com"}

	_, err := s.service.Create(context.Background(), t)
	s.Error(err)
	s.tenantRepo.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func (s *TenantServiceTestSuite) TestGetByIDUsesRegistryCache() {
	s.tenantRepo.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil).Once()

	for i := 0; i < 3; i++ {
		t, err := s.service.GetByID(context.Background(), "tenant-a")
		s.Require().NoError(err)
		s.Equal("acme", t.Key)
	}
	s.tenantRepo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestUpdateRefreshesRegistry() {
	stale := s.acme()
	fresh := s.acme()
	fresh.Name = "Acme Corporation"

	s.tenantRepo.On("GetByID", mock.Anything, "tenant-a").Return(stale, nil).Once()
	s.tenantRepo.On("Update", mock.Anything, fresh).Return(nil).Once()
	s.tenantRepo.On("GetByID", mock.Anything, "tenant-a").Return(fresh, nil).Once()

	_, err := s.service.GetByID(context.Background(), "tenant-a")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Update(context.Background(), fresh))

	got, err := s.service.GetByID(context.Background(), "tenant-a")
	s.Require().NoError(err)
	s.Equal("Acme Corporation", got.Name)
	s.tenantRepo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestDeleteRefreshesRegistry() {
	s.tenantRepo.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil).Twice()
	s.tenantRepo.On("Delete", mock.Anything, "tenant-a").Return(nil).Once()

	_, err := s.service.GetByID(context.Background(), "tenant-a")
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(context.Background(), "tenant-a"))

	// The cached entry is gone, so the next read goes back to the store.
	_, err = s.service.GetByID(context.Background(), "tenant-a")
	s.Require().NoError(err)
	s.tenantRepo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestAddOriginPersistsValidatedPattern() {
	s.tenantRepo.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil)
	s.tenantRepo.On("UpdateOrigins", mock.Anything, "tenant-a",
		[]string{"https://app.acme.com", "*.acme.io"}).Return(nil).Once()

	err := s.service.AddOrigin(context.Background(), "tenant-a", "*.acme.io")
	s.Require().NoError(err)
	s.tenantRepo.AssertExpectations(s.T())
}

func (s *TenantServiceTestSuite) TestAddOriginRejectsInvalidPattern() {
	s.tenantRepo.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil).Maybe()

	err := s.service.AddOrigin(context.Background(), "tenant-a", "*.com")
	s.Error(err)
	s.tenantRepo.AssertNotCalled(s.T(), "UpdateOrigins", mock.Anything, mock.Anything, mock.Anything)
}

func (s *TenantServiceTestSuite) TestSetOriginsReplacesList() {
	s.tenantRepo.On("GetByID", mock.Anything, "tenant-a").Return(s.acme(), nil).Maybe()
	s.tenantRepo.On("UpdateOrigins", mock.Anything, "tenant-a",
		[]string{"https://portal.acme.com"}).Return(nil).Once()

	err := s.service.SetOrigins(context.Background(), "tenant-a", []string{"https://portal.acme.com"})
	s.Require().NoError(err)
	s.tenantRepo.AssertExpectations(s.T())
}

func TestTenantServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TenantServiceTestSuite))
}
