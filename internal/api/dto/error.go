package dto

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/supportdeskhq/tenantcore/internal/tenant"
)

// ErrorResponse is the envelope for every failed request. Code is stable
// and machine-readable; clients branch on it, never on the message.
type ErrorResponse struct {
	Success bool           `json:"success"`
	Code    string         `json:"code"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// AbortWithError maps a kernel error to its HTTP status and writes the
// standard envelope. Unknown errors become opaque 500s.
func AbortWithError(c *gin.Context, err error) {
	var te *tenant.Error
	if errors.As(err, &te) {
		c.AbortWithStatusJSON(te.Status(), ErrorResponse{
			Code:    string(te.Code),
			Error:   te.Message,
			Details: te.Details,
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:  "INTERNAL",
		Error: "internal server error",
	})
}

// BadRequest writes a 400 for malformed request bodies.
func BadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:  "BAD_REQUEST",
		Error: err.Error(),
	})
}
