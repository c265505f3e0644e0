package middleware

import (
	"net/http"
	"strings"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token, rejects blacklisted tokens and loads the user
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("AuthMiddleware called")

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogError("Missing Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			utils.LogError("Invalid Bearer token format")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			utils.LogError("Invalid token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}

		var blacklisted int64
		if err := config.DB.Model(&models.BlacklistedToken{}).Where("token = ?", tokenString).Count(&blacklisted).Error; err != nil {
			utils.LogError("Failed to check token blacklist: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			c.Abort()
			return
		}
		if blacklisted > 0 {
			utils.LogError("Blacklisted token used by user %d", claims.UserID)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Session has ended, please login again"})
			c.Abort()
			return
		}

		utils.LogDebug("Authenticating user ID: %d", claims.UserID)
		var user models.User
		if err := config.DB.First(&user, claims.UserID).Error; err != nil {
			utils.LogError("User not found: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		if user.IsBlocked {
			utils.LogError("Blocked user attempted access: %d", user.ID)
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is blocked"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("token", tokenString)
		c.Set("token_expires_at", claims.ExpiresAt)
		utils.LogInfo("User %d authenticated successfully", user.ID)
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("AdminMiddleware called")

		user, ok := currentUser(c)
		if !ok {
			return
		}

		if !user.IsAdmin() {
			utils.LogSecurity("Non-admin user %d attempted admin access to %s", user.ID, c.Request.URL.Path)
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		utils.LogInfo("Admin access granted for user %d", user.ID)
		c.Next()
	}
}

// CreatorMiddleware must run after AuthMiddleware. It loads the caller's creator profile.
func CreatorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("CreatorMiddleware called")

		user, ok := currentUser(c)
		if !ok {
			return
		}

		var creator models.CreatorProfile
		if err := config.DB.Where("user_id = ?", user.ID).First(&creator).Error; err != nil {
			utils.LogError("Creator profile not found for user %d: %v", user.ID, err)
			c.JSON(http.StatusForbidden, gin.H{"error": "Creator access required"})
			c.Abort()
			return
		}

		c.Set("creator", creator)
		c.Next()
	}
}

func currentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get("user")
	if !exists {
		utils.LogError("User not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
		c.Abort()
		return models.User{}, false
	}
	user, ok := val.(models.User)
	if !ok {
		utils.LogError("Invalid user type in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user type"})
		c.Abort()
		return models.User{}, false
	}
	return user, true
}
