package agents

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware extracts user information from headers set by API Gateway.
// Gateway sets X-User-ID and X-User-Email after validating the session.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{
				Success: false,
				Error:   "Unauthorized: missing user authentication",
			})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		c.Set("email", c.GetHeader("X-User-Email"))

		c.Next()
	}
}

// GetUserID is a helper to extract user_id from context
func GetUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}
