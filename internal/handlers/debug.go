package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/internal/telemetry"
)

// DebugHandler exposes operator-only routes, registered behind a config flag.
type DebugHandler struct {
	audit *telemetry.AuditEmitter
}

// NewDebugHandler builds a DebugHandler.
func NewDebugHandler(audit *telemetry.AuditEmitter) *DebugHandler {
	return &DebugHandler{audit: audit}
}

// AuditTest emits a synthetic audit event so operators can verify the broker
// path end to end.
func (h *DebugHandler) AuditTest(c *gin.Context) {
	requestID := requestIDFromContext(c)
	h.audit.Emit(c.Request.Context(), "INFO", "audit test event", requestID, userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"status": "emitted", "request_id": requestID})
}
