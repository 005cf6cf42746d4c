package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/supportdeskhq/tenantcore/internal/api/dto"
	"github.com/supportdeskhq/tenantcore/internal/cors"
	"github.com/supportdeskhq/tenantcore/internal/domain"
)

//go:generate mockery --name TenantAdminService --output ../mocks
type TenantAdminService interface {
	Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error)
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	Update(ctx context.Context, t *domain.Tenant) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Tenant, error)
	AddOrigin(ctx context.Context, tenantID, pattern string) error
	RemoveOrigin(ctx context.Context, tenantID, pattern string) error
	SetOrigins(ctx context.Context, tenantID string, patterns []string) error
}

// TenantHandler is the master-plane admin surface. Every route behind it is
// gated on the master role by the router.
type TenantHandler struct {
	service TenantAdminService
	stats   *cors.Stats
}

func NewTenantHandler(service TenantAdminService, stats *cors.Stats) *TenantHandler {
	return &TenantHandler{service: service, stats: stats}
}

func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req dto.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), req.ToTenant())
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromTenant(created))
}

func (h *TenantHandler) GetTenant(c *gin.Context) {
	t, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTenant(t))
}

func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	var req dto.UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}

	t, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.CustomDomain != nil {
		t.CustomDomain = *req.CustomDomain
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if req.SubscriptionStatus != nil {
		t.SubscriptionStatus = domain.SubscriptionStatus(*req.SubscriptionStatus)
	}
	if req.EnabledModules != nil {
		t.EnabledModules = *req.EnabledModules
	}
	if req.Limits != nil {
		t.Limits = *req.Limits
	}

	if err := h.service.Update(c.Request.Context(), t); err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTenant(t))
}

func (h *TenantHandler) DeleteTenant(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TenantHandler) ListTenants(c *gin.Context) {
	tenants, err := h.service.List(c.Request.Context())
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTenants(tenants))
}

func (h *TenantHandler) AddOrigin(c *gin.Context) {
	var req dto.OriginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}
	if err := h.service.AddOrigin(c.Request.Context(), c.Param("id"), req.Pattern); err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TenantHandler) RemoveOrigin(c *gin.Context) {
	var req dto.OriginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}
	if err := h.service.RemoveOrigin(c.Request.Context(), c.Param("id"), req.Pattern); err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *TenantHandler) SetOrigins(c *gin.Context) {
	var req dto.SetOriginsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}
	if err := h.service.SetOrigins(c.Request.Context(), c.Param("id"), req.Patterns); err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// OriginStats returns the blocked/allowed counters for one tenant, sorted
// by blocked count.
func (h *TenantHandler) OriginStats(c *gin.Context) {
	snapshot := h.stats.Snapshot(c.Param("id"))
	c.JSON(http.StatusOK, dto.FromOriginStats(snapshot))
}

// SuggestOrigins proposes wildcard patterns from blocked-origin history.
func (h *TenantHandler) SuggestOrigins(c *gin.Context) {
	suggestions := h.stats.Suggest(c.Param("id"), 0)
	c.JSON(http.StatusOK, dto.OriginSuggestionResponse{Suggestions: suggestions})
}
