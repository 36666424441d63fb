package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"recording-pipeline/pkg/logger"
)

const headerAPIKey = "X-Api-Key"

// RequireAPIKey authenticates the PBX system on the ingestion endpoint.
// Comparison is constant-time.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ingestion api key not configured"})
			return
		}
		provided := c.GetHeader(headerAPIKey)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			logger.FromGin(c).Warn("api key rejected", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}
