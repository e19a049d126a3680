package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-server/internal/auth"
	"chat-server/internal/repositories"
	"chat-server/internal/telemetry"
)

// AuthHandler manages registration and login.
type AuthHandler struct {
	users    repositories.UserRepository
	verifier *auth.Verifier
	audit    *telemetry.AuditEmitter
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(users repositories.UserRepository, verifier *auth.Verifier, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{users: users, verifier: verifier, audit: audit}
}

// Register creates an account.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Username string  `json:"username" binding:"required"`
		Password string  `json:"password" binding:"required"`
		Email    *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register"})
		return
	}

	user, err := h.users.CreateUser(c.Request.Context(), req.Username, req.Email, hashed)
	if err != nil {
		if errors.Is(err, repositories.ErrUserExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "username or email exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register"})
		return
	}

	h.emitAudit(c, "INFO", "user registered")
	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "username": user.Username})
}

// Login verifies credentials and issues a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetUserByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log in"})
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		h.emitAudit(c, "ERROR", "failed login")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.verifier.IssueToken(user.ID, user.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not log in"})
		return
	}

	h.emitAudit(c, "INFO", "user logged in")
	c.JSON(http.StatusOK, gin.H{"access_token": token})
}

func (h *AuthHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
