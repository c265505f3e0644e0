package controllers

import (
	"strings"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/payhere"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm/clause"
)

// GET /v1/admin/settings/payment-mode
func GetPaymentMode(c *gin.Context) {
	utils.LogInfo("GetPaymentMode called")
	utils.Success(c, "Payment mode retrieved successfully", gin.H{"mode": currentPaymentMode(config.DB)})
}

// PUT /v1/admin/settings/payment-mode
func UpdatePaymentMode(c *gin.Context) {
	utils.LogInfo("UpdatePaymentMode called")
	admin, ok := getUser(c)
	if !ok {
		return
	}

	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if !payhere.ValidMode(mode) {
		utils.ValidationError(c, "Invalid payment mode", "mode must be live or sandbox")
		return
	}
	if creds, err := deps.Gateway.Credentials(mode); err != nil || creds.MerchantID == "" || creds.MerchantSecret == "" {
		utils.LogError("Refusing to switch to %s mode: credentials missing", mode)
		utils.BadRequest(c, "Gateway credentials for this mode are not configured", nil)
		return
	}

	setting := models.AppSetting{Key: models.SettingPaymentMode, Value: mode}
	if err := config.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error; err != nil {
		utils.LogError("Failed to store payment mode: %v", err)
		utils.InternalServerError(c, "Failed to update payment mode", nil)
		return
	}

	utils.LogSecurity("Admin %d switched payment mode to %s", admin.ID, mode)
	utils.Success(c, "Payment mode updated", gin.H{"mode": mode})
}
