package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/supportdeskhq/tenantcore/internal/auth"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/mocks"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

const testPassword = "s3cret-pass"

type AuthServiceTestSuite struct {
	suite.Suite
	users      *mocks.UserRepository
	tenantRepo *mocks.TenantRepository
	tokens     *auth.TokenService
	service    *AuthService
	hash       string
}

func (s *AuthServiceTestSuite) SetupSuite() {
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	s.Require().NoError(err)
	s.hash = string(hash)
}

func (s *AuthServiceTestSuite) SetupTest() {
	s.users = new(mocks.UserRepository)
	s.tenantRepo = new(mocks.TenantRepository)
	registry := tenant.NewRegistry(s.tenantRepo, time.Minute, logger.NewLogger("test"))
	s.tokens = auth.NewTokenService("unit-test-secret", time.Hour, false)
	s.service = NewAuthService(s.users, registry, s.tokens)
}

func (s *AuthServiceTestSuite) agent() *domain.User {
	return &domain.User{
		ID:           "user-1",
		TenantID:     "tenant-a",
		Email:        "alice@acme.com",
		Name:         "Alice",
		PasswordHash: s.hash,
		Role:         domain.RoleAgent,
		Active:       true,
		TokenVersion: auth.CurrentTokenVersion,
	}
}

func (s *AuthServiceTestSuite) TestLoginMintsTenantBoundToken() {
	s.users.On("GetByEmail", mock.Anything, "tenant-a", "alice@acme.com").Return(s.agent(), nil)
	s.tenantRepo.On("GetByID", mock.Anything, "tenant-a").Return(&domain.Tenant{
		ID: "tenant-a", Key: "acme", Name: "Acme Corp",
		IsActive: true, SubscriptionStatus: domain.SubscriptionActive,
	}, nil)

	token, err := s.service.Login(context.Background(), "tenant-a", "alice@acme.com", testPassword)
	s.Require().NoError(err)

	claims, err := s.tokens.Verify(token)
	s.Require().NoError(err)
	s.Equal("user-1", claims.SubjectID)
	s.Equal("tenant-a", claims.TenantID)
	s.Equal("acme", claims.TenantKey)
	s.Equal(domain.RoleAgent, claims.Role)
}

func (s *AuthServiceTestSuite) TestLoginWrongPassword() {
	s.users.On("GetByEmail", mock.Anything, "tenant-a", "alice@acme.com").Return(s.agent(), nil)

	_, err := s.service.Login(context.Background(), "tenant-a", "alice@acme.com", "nope")
	s.ErrorIs(err, tenant.ErrUserNotFound)
}

func (s *AuthServiceTestSuite) TestLoginUnknownEmail() {
	s.users.On("GetByEmail", mock.Anything, "tenant-a", "nobody@acme.com").
		Return(nil, tenant.ErrUserNotFound)

	_, err := s.service.Login(context.Background(), "tenant-a", "nobody@acme.com", testPassword)
	s.ErrorIs(err, tenant.ErrUserNotFound)
}

func (s *AuthServiceTestSuite) TestLoginDisabledAccount() {
	disabled := s.agent()
	disabled.Active = false
	s.users.On("GetByEmail", mock.Anything, "tenant-a", "alice@acme.com").Return(disabled, nil)

	_, err := s.service.Login(context.Background(), "tenant-a", "alice@acme.com", testPassword)
	s.ErrorIs(err, tenant.ErrAccountDisabled)
}

func (s *AuthServiceTestSuite) TestLoginMasterSkipsTenantLookup() {
	master := s.agent()
	master.TenantID = ""
	master.Role = domain.RoleMaster
	s.users.On("GetByEmail", mock.Anything, "", "root@example.com").Return(master, nil)

	token, err := s.service.Login(context.Background(), "", "root@example.com", testPassword)
	s.Require().NoError(err)

	claims, err := s.tokens.Verify(token)
	s.Require().NoError(err)
	s.Empty(claims.TenantID)
	s.Equal(domain.RoleMaster, claims.Role)
	s.tenantRepo.AssertNotCalled(s.T(), "GetByID", mock.Anything, mock.Anything)
}

func (s *AuthServiceTestSuite) TestRegisterCreatesTenantUser() {
	s.users.On("GetByEmail", mock.Anything, "tenant-a", "bob@acme.com").
		Return(nil, tenant.ErrUserNotFound)
	s.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.TenantID == "tenant-a" &&
			u.Role == domain.RoleClient &&
			u.TokenVersion == auth.CurrentTokenVersion &&
			bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(testPassword)) == nil
	})).Return(&domain.User{ID: "user-2"}, nil)

	user, err := s.service.Register(context.Background(), "tenant-a", "bob@acme.com", "Bob", testPassword, domain.RoleClient)
	s.Require().NoError(err)
	s.Equal("user-2", user.ID)
	s.users.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestRegisterRequiresTenant() {
	_, err := s.service.Register(context.Background(), "", "bob@acme.com", "Bob", testPassword, domain.RoleClient)
	s.ErrorIs(err, tenant.ErrTenantRequired)
}

func (s *AuthServiceTestSuite) TestRegisterRefusesMasterRole() {
	_, err := s.service.Register(context.Background(), "tenant-a", "bob@acme.com", "Bob", testPassword, domain.RoleMaster)
	s.ErrorIs(err, tenant.ErrInsufficientRole)
}

func (s *AuthServiceTestSuite) TestRegisterDefaultsUnknownRoleToClient() {
	s.users.On("GetByEmail", mock.Anything, "tenant-a", "bob@acme.com").
		Return(nil, tenant.ErrUserNotFound)
	s.users.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Role == domain.RoleClient
	})).Return(&domain.User{ID: "user-2"}, nil)

	_, err := s.service.Register(context.Background(), "tenant-a", "bob@acme.com", "Bob", testPassword, domain.Role("superuser"))
	s.Require().NoError(err)
	s.users.AssertExpectations(s.T())
}

func (s *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	s.users.On("GetByEmail", mock.Anything, "tenant-a", "alice@acme.com").Return(s.agent(), nil)

	_, err := s.service.Register(context.Background(), "tenant-a", "alice@acme.com", "Alice", testPassword, domain.RoleClient)
	s.Error(err)
	s.users.AssertNotCalled(s.T(), "Create", mock.Anything, mock.Anything)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
