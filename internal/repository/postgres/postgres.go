package postgres

import (
	"gorm.io/gorm"

	"github.com/supportdeskhq/tenantcore/internal/config"
	"github.com/supportdeskhq/tenantcore/internal/repository"
)

type postgresRepository struct {
	writerDB   *gorm.DB
	readerDB   *gorm.DB
	tenantRepo repository.TenantRepository
	userRepo   repository.UserRepository
}

func NewPostgresRepository(dbConnections *config.DatabaseConnections) repository.Repository {
	return &postgresRepository{
		writerDB:   dbConnections.Writer,
		readerDB:   dbConnections.Reader,
		tenantRepo: NewTenantRepository(dbConnections.Writer, dbConnections.Reader),
		userRepo:   NewUserRepository(dbConnections.Writer, dbConnections.Reader),
	}
}

func (r *postgresRepository) Tenant() repository.TenantRepository {
	return r.tenantRepo
}

func (r *postgresRepository) User() repository.UserRepository {
	return r.userRepo
}
