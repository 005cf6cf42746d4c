package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/supportdeskhq/tenantcore/internal/api/dto"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/internal/middleware"
	"github.com/supportdeskhq/tenantcore/internal/tenant"
)

const (
	defaultPageSize  = 50
	maxPageSize      = 200
	signedURLExpiry  = 15 * time.Minute
	maxAttachmentMiB = 25
)

//go:generate mockery --name ConversationService --output ../mocks
type ConversationService interface {
	Create(ctx context.Context, clientID, subject string, limits *domain.Tenant) (*domain.Conversation, error)
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	List(ctx context.Context, offset, limit int) ([]domain.Conversation, int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.ConversationStatus) error
	PostMessage(ctx context.Context, conversationID, authorID, body string) (*domain.Message, error)
	ListMessages(ctx context.Context, conversationID string, offset, limit int) ([]domain.Message, error)
	AddAttachment(ctx context.Context, messageID, fileName, mimeType string, size int64, body io.Reader) (*domain.Attachment, error)
	SignAttachment(ctx context.Context, attachmentID string, expiry time.Duration) (string, error)
}

type ConversationHandler struct {
	service ConversationService
}

func NewConversationHandler(service ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req dto.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}

	identity := middleware.IdentityFrom(c)
	if identity == nil {
		dto.AbortWithError(c, tenant.ErrNoToken)
		return
	}

	var limits *domain.Tenant
	if res := middleware.ResolutionFrom(c); res != nil {
		limits = res.Tenant
	}

	conv, err := h.service.Create(c.Request.Context(), identity.SubjectID, req.Subject, limits)
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromConversation(conv))
}

func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromConversation(conv))
}

func (h *ConversationHandler) ListConversations(c *gin.Context) {
	offset, limit := pagination(c)
	convs, total, err := h.service.List(c.Request.Context(), offset, limit)
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse[dto.ConversationResponse]{
		Items: dto.FromConversations(convs),
		Total: total,
	})
}

func (h *ConversationHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}
	if err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), domain.ConversationStatus(req.Status)); err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ConversationHandler) PostMessage(c *gin.Context) {
	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, err)
		return
	}

	identity := middleware.IdentityFrom(c)
	if identity == nil {
		dto.AbortWithError(c, tenant.ErrNoToken)
		return
	}

	msg, err := h.service.PostMessage(c.Request.Context(), c.Param("id"), identity.SubjectID, req.Body)
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromMessage(msg))
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	offset, limit := pagination(c)
	msgs, err := h.service.ListMessages(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromMessages(msgs))
}

// UploadAttachment accepts a multipart file and stores it under the
// tenant's object prefix.
func (h *ConversationHandler) UploadAttachment(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		dto.BadRequest(c, err)
		return
	}
	if fileHeader.Size > maxAttachmentMiB*1024*1024 {
		dto.AbortWithError(c, tenant.ErrPlanLimitReached.WithDetails(map[string]any{
			"resource": "attachment_size_bytes",
			"limit":    maxAttachmentMiB * 1024 * 1024,
		}))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		dto.BadRequest(c, err)
		return
	}
	defer file.Close()

	att, err := h.service.AddAttachment(
		c.Request.Context(),
		c.Param("messageId"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromAttachment(att))
}

func (h *ConversationHandler) SignAttachment(c *gin.Context) {
	url, err := h.service.SignAttachment(c.Request.Context(), c.Param("attachmentId"), signedURLExpiry)
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SignedURLResponse{
		URL:       url,
		ExpiresIn: int64(signedURLExpiry.Seconds()),
	})
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	return offset, limit
}
