package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/trendjack/core/internal/pkg/jwt"
	"github.com/trendjack/core/internal/pkg/response"
)

const ContextKeyClient = "client"

// Auth rejects requests without a valid bearer token. Disabled, it lets
// everything through.
func Auth(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if !authenticate(c) {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}

// OptionalAuth remembers who called when a valid token is present. It
// runs ahead of the rate limiter so known clients skip it.
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c)
		c.Next()
	}
}

func authenticate(c *gin.Context) bool {
	if CurrentClient(c) != "" {
		return true
	}
	token := requestToken(c)
	if token == "" {
		return false
	}
	claims, err := jwt.Parse(token)
	if err != nil {
		return false
	}
	c.Set(ContextKeyClient, claims.Client)
	return true
}

// CurrentClient is the client name of the request's token, if any.
func CurrentClient(c *gin.Context) string {
	return c.GetString(ContextKeyClient)
}

func IsAuthenticated(c *gin.Context) bool { return CurrentClient(c) != "" }

// requestToken falls back to ?token= for EventSource clients.
func requestToken(c *gin.Context) string {
	raw := c.GetHeader("Authorization")
	if raw == "" {
		raw = c.Query("token")
	}
	return NormalizeToken(raw)
}

// NormalizeToken strips whitespace and a case-insensitive Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
