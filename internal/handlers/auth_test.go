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

	"chat-server/internal/auth"
	"chat-server/internal/mocks"
	"chat-server/internal/models"
	"chat-server/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/register", handler.Register)
	r.POST("/login", handler.Login)
	return r
}

func TestRegisterSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewVerifier("secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "alice", (*string)(nil), mock.Anything).
		Return(models.User{ID: 1, Username: "alice"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(`{"username":"alice","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "alice", resp["username"])
	userRepo.AssertExpectations(t)
}

func TestRegisterDuplicate(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewVerifier("secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "alice", (*string)(nil), mock.Anything).
		Return(models.User{}, repositories.ErrUserExists).Once()

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(`{"username":"alice","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestRegisterMissingFields(t *testing.T) {
	handler := NewAuthHandler(new(mocks.UserRepositoryMock), auth.NewVerifier("secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/register", bytes.NewBufferString(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	hashed, err := auth.HashPassword("hunter2")
	require.NoError(t, err)

	userRepo := new(mocks.UserRepositoryMock)
	verifier := auth.NewVerifier("secret", time.Hour)
	handler := NewAuthHandler(userRepo, verifier, nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "alice").
		Return(models.User{ID: 7, Username: "alice", PasswordHash: hashed}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"username":"alice","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	userID, username, err := verifier.Verify(resp["access_token"])
	require.NoError(t, err)
	assert.Equal(t, 7, userID)
	assert.Equal(t, "alice", username)
	userRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	hashed, err := auth.HashPassword("hunter2")
	require.NoError(t, err)

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewVerifier("secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "alice").
		Return(models.User{ID: 7, Username: "alice", PasswordHash: hashed}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"username":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginUnknownUser(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewVerifier("secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "ghost").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(`{"username":"ghost","password":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}
