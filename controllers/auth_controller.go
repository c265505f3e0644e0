package controllers

import (
	"strings"
	"time"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
)

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /v1/login
func Login(c *gin.Context) {
	utils.LogInfo("Login called")
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid login request: %v", err)
		utils.BadRequest(c, "Invalid input", err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := config.DB.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		utils.LogSecurity("Login failed for unknown email %s from %s", email, c.ClientIP())
		utils.Unauthorized(c, "Invalid credentials")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		utils.LogSecurity("Login failed for user %d from %s: bad password", user.ID, c.ClientIP())
		utils.Unauthorized(c, "Invalid credentials")
		return
	}
	if user.IsBlocked {
		utils.LogSecurity("Blocked user %d attempted login", user.ID)
		utils.Forbidden(c, "Your account has been blocked")
		return
	}

	token, err := utils.GenerateToken(&user, deps.Config.JWTSecret)
	if err != nil {
		utils.LogError("Failed to generate token for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to generate token", nil)
		return
	}

	now := time.Now()
	if err := config.DB.Model(&user).Update("last_login_at", now).Error; err != nil {
		utils.LogError("Failed to update last login for user %d: %v", user.ID, err)
	}

	utils.LogInfo("User %d logged in", user.ID)
	utils.Success(c, "Login successful", gin.H{
		"token":      token,
		"expires_at": now.Add(utils.TokenTTL),
		"user": gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
			"role":       user.Role,
		},
	})
}

// POST /v1/logout
func Logout(c *gin.Context) {
	utils.LogInfo("Logout called")
	user, ok := getUser(c)
	if !ok {
		return
	}
	token := c.GetString("token")
	expiresAt, _ := c.Get("token_expires_at")
	exp, ok := expiresAt.(time.Time)
	if !ok || exp.IsZero() {
		exp = time.Now().Add(utils.TokenTTL)
	}

	blacklisted := models.BlacklistedToken{Token: token, UserID: user.ID, ExpiresAt: exp}
	if err := config.DB.Create(&blacklisted).Error; err != nil {
		utils.LogError("Failed to blacklist token for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to logout", nil)
		return
	}

	utils.LogInfo("User %d logged out", user.ID)
	utils.Success(c, "Logged out successfully", nil)
}

// GET /healthz
func Health(c *gin.Context) {
	sqlDB, err := config.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		utils.LogError("Health check failed: %v", err)
		utils.Error(c, 503, "Database unavailable", nil)
		return
	}
	utils.Success(c, "OK", gin.H{"status": "ok", "service": utils.AppName})
}
