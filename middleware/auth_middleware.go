package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"partnerdash/api/models"
	"partnerdash/api/utils"
)

// Context keys set by AuthRequired.
const (
	KeyUserID    = "user_id"
	KeyUserEmail = "user_email"
	KeyUserRole  = "user_role"
)

// AuthRequired accepts either the shared service key in X-API-KEY (granted
// the admin role) or a JWT from the jwt_token cookie or a Bearer header.
func AuthRequired(serviceKey string, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); serviceKey != "" && key != "" &&
			subtle.ConstantTimeCompare([]byte(key), []byte(serviceKey)) == 1 {
			c.Set(KeyUserID, 0)
			c.Set(KeyUserEmail, "service")
			c.Set(KeyUserRole, models.RoleAdmin)
			c.Next()
			return
		}

		tokenString, err := c.Cookie("jwt_token")
		if err != nil {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
			if tokenString == "" {
				logger.Debug("no JWT token found in cookie or header", zap.String("path", c.FullPath()))
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
		}
		claims, err := utils.ValidateJWT(tokenString)
		if err != nil {
			logger.Info("invalid JWT token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyUserEmail, claims.Email)
		c.Set(KeyUserRole, models.NormalizeRole(claims.Role))
		c.Next()
	}
}

// RequireRole rejects requests whose authenticated role is not one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(KeyUserRole)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: insufficient role"})
	}
}
