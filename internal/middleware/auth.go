package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pagemill/core/internal/pkg/response"
)

// ContextKeyAuthenticated marks requests that presented the admin token.
// Full identity management lives outside this service; the authoring surface
// only needs to know "is this the trusted editor backend or not".
const ContextKeyAuthenticated = "authenticated"

// Auth returns a middleware that enforces the static admin bearer token.
func Auth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !tokenMatches(c, token) {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyAuthenticated, true)
		c.Next()
	}
}

// OptionalAuth flags authenticated requests but does not block others. The
// cache and rate-limit middleware treat flagged requests specially.
func OptionalAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenMatches(c, token) {
			c.Set(ContextKeyAuthenticated, true)
		}
		c.Next()
	}
}

// IsAuthenticated reports whether the request carries a valid admin token.
func IsAuthenticated(c *gin.Context) bool {
	return c.GetBool(ContextKeyAuthenticated)
}

func tokenMatches(c *gin.Context, token string) bool {
	if token == "" {
		return false
	}
	presented := extractToken(c)
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1
}

func extractToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(raw), "bearer ") {
		return strings.TrimSpace(raw[len("bearer "):])
	}
	return raw
}
