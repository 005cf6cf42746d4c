package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/supportdeskhq/tenantcore/internal/api/dto"
	"github.com/supportdeskhq/tenantcore/internal/audit"
	"github.com/supportdeskhq/tenantcore/internal/domain"
	"github.com/supportdeskhq/tenantcore/pkg/utils"
)

// AuditHandler exposes the indexed audit trail to operators: legacy-token
// cutover progress, bypass review, denial forensics.
type AuditHandler struct {
	indexer *audit.Indexer
}

func NewAuditHandler(indexer *audit.Indexer) *AuditHandler {
	return &AuditHandler{indexer: indexer}
}

func (h *AuditHandler) SearchEvents(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	eventType := domain.AuditEventType(c.Query("type"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	var from, to time.Time
	if v := c.Query("from"); v != "" {
		from, _ = utils.ParseUserTime(v, false)
	}
	if v := c.Query("to"); v != "" {
		to, _ = utils.ParseUserTime(v, true)
	}

	events, err := h.indexer.Search(c.Request.Context(), tenantID, eventType, from, to, limit)
	if err != nil {
		dto.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": events, "count": len(events)})
}
