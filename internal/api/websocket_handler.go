package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/supportdeskhq/tenantcore/internal/audit"
	"github.com/supportdeskhq/tenantcore/internal/auth"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/realtime"
	"github.com/supportdeskhq/tenantcore/internal/repository"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

const (
	websocketReadBufferSize  = 1024
	websocketWriteBufferSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  websocketReadBufferSize,
	WriteBufferSize: websocketWriteBufferSize,
	// Origin enforcement happens in the handshake below; the browser cannot
	// read a failed upgrade's body, so rejections are sent over the socket.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler performs the realtime handshake. The connection is
// upgraded first and rejections are delivered as an error frame with a
// stable reason string, then the socket closes.
type WebSocketHandler struct {
	hub      *realtime.Hub
	tokens   *auth.TokenService
	registry *tenant.Registry
	users    repository.UserRepository
	auditor  audit.Publisher
	log      *logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, tokens *auth.TokenService, registry *tenant.Registry, users repository.UserRepository, auditor audit.Publisher, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tokens: tokens, registry: registry, users: users, auditor: auditor, log: log}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}

	client, err := h.handshake(c, conn)
	if err != nil {
		h.reject(conn, tenant.RejectionReason(err))
		return
	}

	h.hub.Register(client)
	go h.hub.WritePump(client)
	go h.hub.ReadPump(c.Request.Context(), client)
}

func (h *WebSocketHandler) handshake(c *gin.Context, conn *websocket.Conn) (*realtime.Client, error) {
	raw := connectionToken(c)
	if raw == "" {
		return nil, tenant.ErrNoToken
	}

	claims, err := h.tokens.Verify(raw)
	if err != nil {
		return nil, err
	}

	tenantID := claims.TenantID
	role := claims.Role

	if claims.Legacy() {
		user, err := h.users.GetByID(c.Request.Context(), claims.SubjectID)
		if err != nil {
			return nil, tenant.ErrUserNotFound
		}
		if !user.Active {
			return nil, tenant.ErrAccountDisabled
		}
		tenantID = user.TenantID
		role = user.Role
		h.auditor.Emit(c.Request.Context(), domain.AuditEvent{
			ID:        uuid.NewString(),
			Type:      domain.AuditLegacyTokenAccepted,
			TenantID:  tenantID,
			SubjectID: user.ID,
			Source:    "websocket",
			Timestamp: time.Now(),
		})
	}

	if role == domain.RoleMaster {
		return realtime.NewClient(conn, "", claims.SubjectID, role), nil
	}

	if tenantID == "" {
		return nil, tenant.ErrTenantRequired
	}
	t, err := h.registry.ByID(c.Request.Context(), tenantID)
	if err != nil {
		return nil, tenant.ErrTenantNotFound
	}
	if !t.IsActive || !t.SubscriptionUsable() {
		return nil, tenant.ErrTenantSuspended
	}

	return realtime.NewClient(conn, t.ID, claims.SubjectID, role), nil
}

func (h *WebSocketHandler) reject(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(5 * time.Second)
	conn.SetWriteDeadline(deadline)
	conn.WriteJSON(gin.H{"type": "error", "data": gin.H{"reason": reason}})
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), deadline)
	conn.Close()
}

func connectionToken(c *gin.Context) string {
	if t := c.Query("token"); t != "" {
		return t
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
