package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-server/internal/mocks"
	"chat-server/internal/models"
	"chat-server/internal/repositories"
)

func setupMessageRouter(handler *MessageHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Set("username", "alice")
		c.Next()
	})
	r.GET("/messages", handler.History)
	r.POST("/messages/:message_id/seen", handler.MarkSeen)
	r.DELETE("/messages/:message_id", handler.Delete)
	return r
}

func setupChatRouter(handler *ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/chats/private", handler.StartPrivateChat)
	return r
}

func TestHistoryDefaultsToGlobal(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(NewMessageHandler(chatRepo, messageRepo))

	ts := time.Date(2026, 8, 29, 10, 0, 0, 500000000, time.UTC)
	chatRepo.On("GetChatByName", mock.Anything, models.GlobalChatName).
		Return(models.Chat{ID: 1, Name: models.GlobalChatName}, nil).Once()
	messageRepo.On("ListChatMessages", mock.Anything, 1).
		Return([]models.MessageWithSender{
			{Message: models.Message{ID: 2, Type: "text", Content: "hi", Timestamp: ts}, Username: "bob"},
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ChatName string `json:"chat_name"`
		Messages []struct {
			Username  string `json:"username"`
			Text      string `json:"text"`
			Timestamp string `json:"timestamp"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, models.GlobalChatName, resp.ChatName)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "bob", resp.Messages[0].Username)
	assert.Equal(t, "2026-08-29 10:00:00.500000", resp.Messages[0].Timestamp)

	// Global history needs no membership check.
	chatRepo.AssertNotCalled(t, "IsMember", mock.Anything, mock.Anything, mock.Anything)
	chatRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestHistoryPrivateRequiresMembership(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(NewMessageHandler(chatRepo, messageRepo))

	chatRepo.On("GetChatByName", mock.Anything, "private_1_2").
		Return(models.Chat{ID: 5, Name: "private_1_2", IsPrivate: true}, nil).Once()
	chatRepo.On("IsMember", mock.Anything, 5, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?chat_name=private_1_2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "ListChatMessages", mock.Anything, mock.Anything)
	chatRepo.AssertExpectations(t)
}

func TestHistoryUnknownChat(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupMessageRouter(NewMessageHandler(chatRepo, new(mocks.MessageRepositoryMock)))

	chatRepo.On("GetChatByName", mock.Anything, "nope").
		Return(models.Chat{}, repositories.ErrChatNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/messages?chat_name=nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkSeenSuccess(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(NewMessageHandler(chatRepo, messageRepo))

	messageRepo.On("GetMessage", mock.Anything, 9).
		Return(models.Message{ID: 9, ChatID: 1}, nil).Once()
	chatRepo.On("GetChatByName", mock.Anything, models.GlobalChatName).
		Return(models.Chat{ID: 1, Name: models.GlobalChatName}, nil).Once()
	messageRepo.On("MarkSeen", mock.Anything, 9, mock.Anything).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/9/seen", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestMarkSeenMissingMessage(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(NewMessageHandler(new(mocks.ChatRepositoryMock), messageRepo))

	messageRepo.On("GetMessage", mock.Anything, 404).
		Return(models.Message{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/messages/404/seen", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteMessageNotSender(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(NewMessageHandler(new(mocks.ChatRepositoryMock), messageRepo))

	messageRepo.On("SoftDelete", mock.Anything, 9, 1).
		Return(repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestDeleteMessageSuccess(t *testing.T) {
	messageRepo := new(mocks.MessageRepositoryMock)
	router := setupMessageRouter(NewMessageHandler(new(mocks.ChatRepositoryMock), messageRepo))

	messageRepo.On("SoftDelete", mock.Anything, 9, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/messages/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestStartPrivateChatIncludesCaller(t *testing.T) {
	chatRepo := new(mocks.ChatRepositoryMock)
	router := setupChatRouter(NewChatHandler(chatRepo, nil))

	chatRepo.On("GetOrCreatePrivate", mock.Anything, []int{1, 7}).
		Return(models.Chat{ID: 3, Name: "private_1_7"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/private", bytes.NewBufferString(`{"participant_ids":[7]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "private_1_7", resp["chat_name"])
	chatRepo.AssertExpectations(t)
}

func TestStartPrivateChatBadBody(t *testing.T) {
	router := setupChatRouter(NewChatHandler(new(mocks.ChatRepositoryMock), nil))

	req := httptest.NewRequest(http.MethodPost, "/chats/private", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
