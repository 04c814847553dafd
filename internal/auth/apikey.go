package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facegate/internal/observability"
)

// HeaderAPIKey carries the shared key that access terminals and
// operator tooling send on every /v1 request.
const HeaderAPIKey = "X-API-Key"

// APIKeyMiddleware guards the versioned API with a constant-time key
// check. An empty configured key disables authentication, for local
// development only; rejections are counted by reason so a
// misconfigured terminal fleet shows up on the dashboard.
func APIKeyMiddleware(apiKey string) gin.HandlerFunc {
	key := []byte(apiKey)
	return func(c *gin.Context) {
		if len(key) == 0 {
			c.Next()
			return
		}

		provided := c.GetHeader(HeaderAPIKey)
		if provided == "" {
			observability.AuthRejections.WithLabelValues("missing").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), key) != 1 {
			observability.AuthRejections.WithLabelValues("invalid").Inc()
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid API key",
			})
			return
		}

		c.Next()
	}
}
