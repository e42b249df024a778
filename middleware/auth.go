package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/splitbills/splitbills-api/utils"
)

const (
	contextUserID = "user_id"
	contextEmail  = "email"
)

// AuthMiddleware validates the Bearer token and stores the caller's identity
// on the gin context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing authorization header"})
			return
		}

		claims, err := utils.ParseAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(contextUserID, claims.UserID)
		c.Set(contextEmail, claims.Email)
		c.Next()
	}
}

// GetUserID returns the authenticated user's id, or "" when unauthenticated.
func GetUserID(c *gin.Context) string {
	return c.GetString(contextUserID)
}

// GetUserEmail returns the authenticated user's email.
func GetUserEmail(c *gin.Context) string {
	return c.GetString(contextEmail)
}
