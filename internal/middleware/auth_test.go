package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-server/internal/auth"
)

func setupRouter(verifier *auth.Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", Auth(verifier), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetInt("userID"),
			"username": c.GetString("username"),
		})
	})
	return r
}

func TestAuthValidToken(t *testing.T) {
	verifier := auth.NewVerifier("secret", time.Hour)
	router := setupRouter(verifier)

	token, err := verifier.IssueToken(7, "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":7`)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestAuthMissingHeader(t *testing.T) {
	router := setupRouter(auth.NewVerifier("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMalformedHeader(t *testing.T) {
	router := setupRouter(auth.NewVerifier("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthInvalidToken(t *testing.T) {
	router := setupRouter(auth.NewVerifier("secret", time.Hour))

	token, err := auth.NewVerifier("other-secret", time.Hour).IssueToken(7, "alice")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
