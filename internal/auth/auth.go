package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload: subject carries the user id, username rides
// alongside so the ws layer never needs a user lookup.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Verifier issues and validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
	ttl    time.Duration
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret string, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), ttl: ttl}
}

// IssueToken signs a token for the user.
func (v *Verifier) IssueToken(userID int, username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	})
	return token.SignedString(v.secret)
}

// Verify validates a token and returns the user id and username. Expired,
// malformed, or wrongly signed tokens all map to ErrInvalidToken.
func (v *Verifier) Verify(tokenString string) (int, string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, "", ErrInvalidToken
	}
	userID, err := strconv.Atoi(claims.Subject)
	if err != nil || userID == 0 || claims.Username == "" {
		return 0, "", ErrInvalidToken
	}
	return userID, claims.Username, nil
}

// HashPassword hashes a password for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword compares a stored hash against a candidate password.
func CheckPassword(hashed, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
}
