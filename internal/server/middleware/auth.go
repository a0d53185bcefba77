package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthConfig holds Bearer token authentication settings.
type AuthConfig struct {
	// Token is the expected Bearer value. FORGE_SERVER_AUTH_TOKEN
	// overrides it; empty disables auth entirely.
	Token string
}

// ResolveToken returns the effective token, checking the environment
// as fallback.
func (c *AuthConfig) ResolveToken() string {
	if env := os.Getenv("FORGE_SERVER_AUTH_TOKEN"); env != "" {
		return env
	}
	return c.Token
}

// exemptPaths never require auth: liveness checks and the progress
// stream (browsers cannot attach headers to EventSource).
var exemptPaths = map[string]bool{
	"/api/health":   true,
	"/api/progress": true,
}

// BearerAuth enforces Bearer token authentication with a
// constant-time comparison. When no token is configured the
// middleware is a no-op.
func BearerAuth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cfg.ResolveToken()
		if token == "" {
			c.Next()
			return
		}
		if exemptPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing or malformed Authorization header",
			})
			return
		}

		provided := authHeader[len(prefix):]
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid bearer token",
			})
			return
		}
		c.Next()
	}
}
