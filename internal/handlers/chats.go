package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/internal/repositories"
	"chat-server/internal/telemetry"
)

// ChatHandler manages chat creation endpoints.
type ChatHandler struct {
	chats repositories.ChatRepository
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats repositories.ChatRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{chats: chats, audit: audit}
}

// StartPrivateChat resolves the deterministic private chat for the caller and
// the given participants, creating it when absent. Repeated calls with any
// permutation of the same participant set return the same chat.
func (h *ChatHandler) StartPrivateChat(c *gin.Context) {
	var req struct {
		ParticipantIDs []int `json:"participant_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	participants := append([]int{userID}, req.ParticipantIDs...)

	chat, err := h.chats.GetOrCreatePrivate(c.Request.Context(), participants)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	if h.audit != nil {
		h.audit.Emit(c.Request.Context(), "INFO", "private chat resolved", requestIDFromContext(c), userIDFromContext(c))
	}
	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID, "chat_name": chat.Name})
}
