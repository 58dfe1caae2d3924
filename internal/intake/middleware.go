package intake

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin context keys set by APIKeyAuthMiddleware.
const (
	ContextCompanyID = "webhookCompanyID"
	ContextKeyID     = "webhookKeyID"
)

// APIKeyAuthMiddleware validates the X-API-Key header and sets the company
// context on the gin context.
func APIKeyAuthMiddleware(repo *Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		key, err := repo.GetAPIKeyByHash(c.Request.Context(), HashKey(apiKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(ContextCompanyID, key.CompanyID)
		c.Set(ContextKeyID, key.ID)
		c.Next()
	}
}
