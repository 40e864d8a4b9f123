// Package handler provides HTTP handlers for the API.
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/verustcode/reportdesk/internal/config"
	"github.com/verustcode/reportdesk/pkg/errors"
)

// AuthHandler verifies bearer tokens minted by the upstream auth service.
// Login is not handled here.
type AuthHandler struct {
	config config.AuthConfig
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{config: cfg}
}

// Claims represents JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	// Get username from context (set by auth middleware)
	username, exists := c.Get("username")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"code":    errors.ErrCodeUnauthorized,
			"message": "Not authenticated",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username": username,
	})
}

// ValidateToken validates a JWT token and returns the username
// Implements middleware.TokenValidator interface
func (h *AuthHandler) ValidateToken(tokenString string) (string, error) {
	if h.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if h.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(h.config.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.Username == "" {
			return claims.Subject, nil
		}
		return claims.Username, nil
	}

	return "", jwt.ErrSignatureInvalid
}

// IssueToken signs a token the way the upstream auth service does. Used by
// tests and local tooling.
func IssueToken(cfg config.AuthConfig, username string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}
