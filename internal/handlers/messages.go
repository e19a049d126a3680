package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"chat-server/internal/models"
	"chat-server/internal/repositories"
)

// MessageHandler serves chat history and message flag updates.
type MessageHandler struct {
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(chats repositories.ChatRepository, messages repositories.MessageRepository) *MessageHandler {
	return &MessageHandler{chats: chats, messages: messages}
}

// History returns the ordered, non-deleted messages of a chat. Non-global
// chats require membership.
func (h *MessageHandler) History(c *gin.Context) {
	chatName := c.Query("chat_name")
	if chatName == "" {
		chatName = models.GlobalChatName
	}

	chat, err := h.chats.GetChatByName(c.Request.Context(), chatName)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load messages"})
		return
	}

	if !chat.IsGlobal() {
		userID := c.GetInt("userID")
		member, err := h.chats.IsMember(c.Request.Context(), chat.ID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load messages"})
			return
		}
		if !member {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
			return
		}
	}

	msgs, err := h.messages.ListChatMessages(c.Request.Context(), chat.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load messages"})
		return
	}

	out := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, gin.H{
			"id":        m.ID,
			"username":  m.Username,
			"type":      m.Type,
			"text":      m.Content,
			"timestamp": models.FormatWireTimestamp(m.Timestamp),
			"seen":      m.Seen,
		})
	}
	c.JSON(http.StatusOK, gin.H{"chat_name": chat.Name, "messages": out})
}

// MarkSeen flags a message as seen by the caller.
func (h *MessageHandler) MarkSeen(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	msg, err := h.messages.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update message"})
		return
	}

	if ok, err := h.authorized(c, msg.ChatID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update message"})
		return
	} else if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	if err := h.messages.MarkSeen(c.Request.Context(), messageID, time.Now().UTC()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": messageID, "seen": true})
}

// Delete soft-deletes a message. Only the sender may delete.
func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return
	}

	err = h.messages.SoftDelete(c.Request.Context(), messageID, c.GetInt("userID"))
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": messageID, "deleted": true})
}

func (h *MessageHandler) authorized(c *gin.Context, chatID int) (bool, error) {
	chat, err := h.chats.GetChatByName(c.Request.Context(), models.GlobalChatName)
	if err == nil && chat.ID == chatID {
		return true, nil
	}
	return h.chats.IsMember(c.Request.Context(), chatID, c.GetInt("userID"))
}
