package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/middleware"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
)

const globalIPRateLimit = 10000

// Server wires handlers to routes. Each route group declares its class up
// front; the tenant middleware derives scope from it and nothing else.
type Server struct {
	auth          *AuthHandler
	tenants       *TenantHandler
	conversations *ConversationHandler
	auditTrail    *AuditHandler
	websocket     *WebSocketHandler

	authMW   *middleware.AuthMiddleware
	tenantMW *middleware.TenantMiddleware
	corsMW   *middleware.CORSMiddleware
	planMW   *middleware.PlanLimitMiddleware
}

func NewServer(
	authHandler *AuthHandler,
	tenantHandler *TenantHandler,
	conversationHandler *ConversationHandler,
	auditHandler *AuditHandler,
	websocketHandler *WebSocketHandler,
	authMW *middleware.AuthMiddleware,
	tenantMW *middleware.TenantMiddleware,
	corsMW *middleware.CORSMiddleware,
	planMW *middleware.PlanLimitMiddleware,
) *Server {
	return &Server{
		auth:          authHandler,
		tenants:       tenantHandler,
		conversations: conversationHandler,
		auditTrail:    auditHandler,
		websocket:     websocketHandler,
		authMW:        authMW,
		tenantMW:      tenantMW,
		corsMW:        corsMW,
		planMW:        planMW,
	}
}

func (s *Server) SetupRoutes(api *gin.RouterGroup) {
	api.OPTIONS("/*path", s.corsMW.Preflight())
	api.Use(s.planMW.GlobalRateLimit(globalIPRateLimit))

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public: resolution is best-effort so login can land in the tenant
	// named by the host or routing headers.
	public := api.Group("/auth",
		s.tenantMW.Resolve(tenant.RoutePublic),
		s.corsMW.Apply())
	{
		public.POST("/login", s.auth.Login)
		public.POST("/register", s.auth.Register)
	}

	// The websocket handshake authenticates and resolves on its own; HTTP
	// middleware cannot deliver rejection reasons over the socket.
	api.GET("/ws", s.websocket.HandleWebSocket)

	conversations := api.Group("/conversations",
		s.authMW.JWTAuth(),
		s.tenantMW.Resolve(tenant.RouteTenantScoped),
		s.corsMW.Apply(),
		s.planMW.TenantRateLimit(),
		s.tenantMW.RequireModule("conversations"))
	{
		conversations.POST("", s.conversations.CreateConversation)
		conversations.GET("", s.conversations.ListConversations)
		conversations.GET("/:id", s.conversations.GetConversation)
		conversations.PATCH("/:id/status", s.authMW.RequireRole(domain.RoleAdmin, domain.RoleAgent), s.conversations.UpdateStatus)
		conversations.POST("/:id/messages", s.conversations.PostMessage)
		conversations.GET("/:id/messages", s.conversations.ListMessages)
	}

	attachments := api.Group("/messages/:messageId/attachments",
		s.authMW.JWTAuth(),
		s.tenantMW.Resolve(tenant.RouteTenantScoped),
		s.corsMW.Apply(),
		s.planMW.TenantRateLimit(),
		s.tenantMW.RequireModule("attachments"))
	{
		attachments.POST("", s.conversations.UploadAttachment)
	}
	api.GET("/attachments/:attachmentId/url",
		s.authMW.JWTAuth(),
		s.tenantMW.Resolve(tenant.RouteTenantScoped),
		s.corsMW.Apply(),
		s.conversations.SignAttachment)

	// Master plane. RouteMasterOnly rejects everyone else before the
	// resolver even runs; x-tenant-id acts as a scope override here.
	admin := api.Group("/admin",
		s.authMW.JWTAuth(),
		s.tenantMW.Resolve(tenant.RouteMasterOnly),
		s.corsMW.Apply())
	{
		tenants := admin.Group("/tenants")
		{
			tenants.POST("", s.tenants.CreateTenant)
			tenants.GET("", s.tenants.ListTenants)
			tenants.GET("/:id", s.tenants.GetTenant)
			tenants.PATCH("/:id", s.tenants.UpdateTenant)
			tenants.DELETE("/:id", s.tenants.DeleteTenant)

			tenants.POST("/:id/origins", s.tenants.AddOrigin)
			tenants.DELETE("/:id/origins", s.tenants.RemoveOrigin)
			tenants.PUT("/:id/origins", s.tenants.SetOrigins)
			tenants.GET("/:id/origins/stats", s.tenants.OriginStats)
			tenants.GET("/:id/origins/suggestions", s.tenants.SuggestOrigins)
		}

		admin.GET("/audit-events", s.auditTrail.SearchEvents)
	}
}
