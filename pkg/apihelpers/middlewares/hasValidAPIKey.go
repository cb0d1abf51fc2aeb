package middlewares

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const API_KEY_HEADER = "Api-Key"

// HasValidAPIKey lets a request through when any of its Api-Key headers
// matches one of validKeys. An empty validKeys list disables the check.
func HasValidAPIKey(validKeys []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(validKeys) == 0 {
			c.Next()
			return
		}

		received := c.Request.Header.Values(API_KEY_HEADER)
		for _, k := range received {
			for _, vk := range validKeys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(vk)) == 1 {
					c.Next()
					return
				}
			}
		}

		slog.Warn("request without a valid API key", slog.String("path", c.FullPath()), slog.Int("receivedKeys", len(received)))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "a valid API key is required"})
	}
}
