package controllers

import (
	"errors"
	"time"

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateCreatorRequest promotes an existing user to creator
type CreateCreatorRequest struct {
	UserID       uint   `json:"user_id" binding:"required"`
	DisplayName  string `json:"display_name"`
	ReferralCode string `json:"referral_code" binding:"required"`
	CMOID        *uint  `json:"cmo_id"`
}

// POST /v1/admin/creators
func CreateCreator(c *gin.Context) {
	utils.LogInfo("CreateCreator called")
	var req CreateCreatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if valid, msg := utils.ValidateCode(req.ReferralCode); !valid {
		utils.ValidationError(c, "Invalid referral code", msg)
		return
	}

	// new creators start inside a protection window, like a fresh promotion
	protectedUntil := deps.Engine.ProtectionEnd(deps.Engine.Now())
	var creator models.CreatorProfile
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, req.UserID).Error; err != nil {
			return utils.NotFoundError("User not found", err)
		}
		if req.CMOID != nil {
			var cmo models.CMOProfile
			if err := tx.First(&cmo, *req.CMOID).Error; err != nil {
				return utils.NotFoundError("CMO not found", err)
			}
		}
		creator = models.CreatorProfile{
			UserID:              user.ID,
			DisplayName:         utils.SanitizeString(req.DisplayName),
			ReferralCode:        req.ReferralCode,
			CMOID:               req.CMOID,
			CurrentTierLevel:    1,
			TierProtectionUntil: &protectedUntil,
			IsActive:            true,
		}
		if creator.DisplayName == "" {
			creator.DisplayName = user.Username
		}
		if err := tx.Create(&creator).Error; err != nil {
			if commission.IsDuplicateKey(err) {
				return utils.ConflictError("Referral code or creator already exists", err)
			}
			return err
		}
		if user.Role == models.RoleStudent {
			return tx.Model(&user).Update("role", models.RoleCreator).Error
		}
		return nil
	})
	if err != nil {
		utils.LogError("Failed to create creator for user %d: %v", req.UserID, err)
		utils.RespondError(c, err)
		return
	}

	utils.LogInfo("Creator %d created with code %s", creator.ID, creator.ReferralCode)
	utils.Created(c, "Creator created successfully", gin.H{"creator": creator})
}

// GET /v1/admin/creators
func ListCreators(c *gin.Context) {
	utils.LogInfo("ListCreators called")
	query := config.DB.Model(&models.CreatorProfile{})
	if code := c.Query("code"); code != "" {
		query = query.Where("referral_code = ?", models.NormalizeCode(code))
	}
	if cmo := c.Query("cmo_id"); cmo != "" {
		query = query.Where("cmo_id = ?", cmo)
	}
	var creators []models.CreatorProfile
	paginate(c, query.Order("lifetime_paid_users DESC, id ASC"), &creators, "Creators retrieved successfully")
}

// UpdateCreatorRequest changes a creator's status or CMO
type UpdateCreatorRequest struct {
	IsActive *bool `json:"is_active"`
	CMOID    *uint `json:"cmo_id"`
	ClearCMO bool  `json:"clear_cmo"`
}

// PATCH /v1/admin/creators/:id
// A CMO change applies to future sales; recalculate-stats re-attributes payouts through the new CMO.
func UpdateCreator(c *gin.Context) {
	utils.LogInfo("UpdateCreator called")
	admin, ok := getUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateCreatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.ClearCMO {
		updates["cmo_id"] = nil
	} else if req.CMOID != nil {
		var cmo models.CMOProfile
		if err := config.DB.First(&cmo, *req.CMOID).Error; err != nil {
			utils.NotFound(c, "CMO not found")
			return
		}
		updates["cmo_id"] = *req.CMOID
	}
	if len(updates) == 0 {
		utils.BadRequest(c, "Nothing to update", nil)
		return
	}

	res := config.DB.Model(&models.CreatorProfile{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		utils.LogError("Failed to update creator %d: %v", id, res.Error)
		utils.InternalServerError(c, "Failed to update creator", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "Creator not found")
		return
	}

	var creator models.CreatorProfile
	config.DB.First(&creator, id)
	utils.LogInfo("Admin %d updated creator %d", admin.ID, id)
	utils.Success(c, "Creator updated", gin.H{"creator": creator})
}

// POST /v1/admin/cmos
func CreateCMO(c *gin.Context) {
	utils.LogInfo("CreateCMO called")
	var req struct {
		UserID uint   `json:"user_id" binding:"required"`
		Name   string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	var cmo models.CMOProfile
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, req.UserID).Error; err != nil {
			return utils.NotFoundError("User not found", err)
		}
		cmo = models.CMOProfile{UserID: user.ID, Name: utils.SanitizeString(req.Name), IsActive: true}
		if cmo.Name == "" {
			cmo.Name = user.Username
		}
		if err := tx.Create(&cmo).Error; err != nil {
			if commission.IsDuplicateKey(err) {
				return utils.ConflictError("User is already a CMO", err)
			}
			return err
		}
		if user.Role == models.RoleStudent {
			return tx.Model(&user).Update("role", models.RoleCMO).Error
		}
		return nil
	})
	if err != nil {
		utils.LogError("Failed to create CMO for user %d: %v", req.UserID, err)
		utils.RespondError(c, err)
		return
	}

	utils.LogInfo("CMO %d created for user %d", cmo.ID, cmo.UserID)
	utils.Created(c, "CMO created successfully", gin.H{"cmo": cmo})
}

// GET /v1/admin/cmos
func ListCMOs(c *gin.Context) {
	utils.LogInfo("ListCMOs called")
	var cmos []models.CMOProfile
	paginate(c, config.DB.Model(&models.CMOProfile{}).Order("id ASC"), &cmos, "CMOs retrieved successfully")
}

// CreateDiscountCodeRequest represents the request body for creating a discount code
type CreateDiscountCodeRequest struct {
	Code       string          `json:"code" binding:"required"`
	CreatorID  *uint           `json:"creator_id"`
	Type       string          `json:"type" binding:"required,oneof=flat percent"`
	Value      decimal.Decimal `json:"value" binding:"required"`
	Expiry     *time.Time      `json:"expiry"`
	UsageLimit int             `json:"usage_limit" binding:"min=0"`
}

// POST /v1/admin/discount-codes
func CreateDiscountCode(c *gin.Context) {
	utils.LogInfo("CreateDiscountCode called")
	var req CreateDiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid request format: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if valid, msg := utils.ValidateCode(req.Code); !valid {
		utils.ValidationError(c, "Invalid code", msg)
		return
	}
	if !req.Value.IsPositive() || (req.Type == models.DiscountTypePercent && req.Value.GreaterThan(decimal.NewFromInt(100))) {
		utils.ValidationError(c, "Invalid discount value", "value must be positive and percentages at most 100")
		return
	}
	if req.Expiry != nil && req.Expiry.Before(time.Now()) {
		utils.BadRequest(c, "Expiry date must be in the future", nil)
		return
	}
	if req.CreatorID != nil {
		var creator models.CreatorProfile
		if err := config.DB.First(&creator, *req.CreatorID).Error; err != nil {
			utils.NotFound(c, "Creator not found")
			return
		}
	}

	code := models.DiscountCode{
		Code:       req.Code,
		CreatorID:  req.CreatorID,
		Type:       req.Type,
		Value:      req.Value,
		Expiry:     req.Expiry,
		UsageLimit: req.UsageLimit,
		IsActive:   true,
	}
	if err := config.DB.Create(&code).Error; err != nil {
		if commission.IsDuplicateKey(err) {
			utils.Conflict(c, "Discount code already exists", nil)
			return
		}
		utils.LogError("Failed to create discount code: %v", err)
		utils.InternalServerError(c, "Failed to create discount code", nil)
		return
	}

	utils.LogInfo("Created discount code %s (ID %d)", code.Code, code.ID)
	utils.Created(c, "Discount code created successfully", gin.H{"discount_code": code})
}

// GET /v1/admin/discount-codes
func ListDiscountCodes(c *gin.Context) {
	utils.LogInfo("ListDiscountCodes called")
	query := config.DB.Model(&models.DiscountCode{})
	if creator := c.Query("creator_id"); creator != "" {
		query = query.Where("creator_id = ?", creator)
	}
	var codes []models.DiscountCode
	paginate(c, query.Order("created_at DESC"), &codes, "Discount codes retrieved successfully")
}

// PATCH /v1/admin/discount-codes/:id/toggle
func ToggleDiscountCode(c *gin.Context) {
	utils.LogInfo("ToggleDiscountCode called")
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var code models.DiscountCode
	if err := config.DB.First(&code, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Discount code not found")
			return
		}
		utils.InternalServerError(c, "Failed to load discount code", nil)
		return
	}
	code.IsActive = !code.IsActive
	if err := config.DB.Model(&code).Update("is_active", code.IsActive).Error; err != nil {
		utils.LogError("Failed to toggle discount code %d: %v", id, err)
		utils.InternalServerError(c, "Failed to update discount code", nil)
		return
	}
	utils.Success(c, "Discount code updated", gin.H{"discount_code": code})
}
