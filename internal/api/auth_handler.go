package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/supportdeskhq/tenantcore/internal/api/dto"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/middleware"
)

//go:generate mockery --name AuthService --output ../mocks
type AuthService interface {
	Login(ctx context.Context, tenantID, email, password string) (string, error)
	Register(ctx context.Context, tenantID, email, name, password string, role domain.Role) (*domain.User, error)
}

type AuthHandler struct {
	service  AuthService
	tokenTTL int64
}

func NewAuthHandler(service AuthService, tokenTTLSeconds int64) *AuthHandler {
	return &AuthHandler{service: service, tokenTTL: tokenTTLSeconds}
}

// Login authenticates within the tenant resolved for the request. An empty
// resolution means a master login attempt.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}

	tenantID := ""
	if res := middleware.ResolutionFrom(c); res != nil {
		tenantID = res.TenantID()
	}

	token, err := h.service.Login(c.Request.Context(), tenantID, req.Email, req.Password)
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LoginResponse{Token: token, ExpiresIn: h.tokenTTL})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}

	tenantID := ""
	if res := middleware.ResolutionFrom(c); res != nil {
		tenantID = res.TenantID()
	}

	user, err := h.service.Register(c.Request.Context(), tenantID, req.Email, req.Name, req.Password, domain.Role(req.Role))
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email, "role": user.Role})
}
