package controllers

import (
	"errors"
	"strings"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/jobs"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// POST /v1/admin/commission/evaluate-tiers
func EvaluateTiers(c *gin.Context) {
	utils.LogInfo("EvaluateTiers called")
	report, err := deps.Jobs.EvaluateTiers(c.Request.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrJobRunning) {
			utils.Conflict(c, "Tier evaluation is already running", nil)
			return
		}
		utils.LogError("Tier evaluation failed: %v", err)
		utils.InternalServerError(c, "Tier evaluation failed", err.Error())
		return
	}
	utils.Success(c, "Tier evaluation completed", gin.H{"report": report})
}

// POST /v1/admin/commission/recalculate-stats
func RecalculateStats(c *gin.Context) {
	utils.LogInfo("RecalculateStats called")
	report, err := deps.Jobs.RecalculateStats(c.Request.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrJobRunning) {
			utils.Conflict(c, "Recalculation is already running", nil)
			return
		}
		utils.LogError("Recalculation failed: %v", err)
		utils.InternalServerError(c, "Recalculation failed", err.Error())
		return
	}
	utils.Success(c, "Recalculation completed", gin.H{"report": report})
}

// GET /v1/admin/commission/tiers
func ListCommissionTiers(c *gin.Context) {
	utils.LogInfo("ListCommissionTiers called")
	var tiers []models.CommissionTier
	if err := config.DB.Order("monthly_user_threshold ASC").Find(&tiers).Error; err != nil {
		utils.LogError("Failed to load commission tiers: %v", err)
		utils.InternalServerError(c, "Failed to load commission tiers", nil)
		return
	}
	utils.Success(c, "Commission tiers retrieved successfully", gin.H{"tiers": tiers})
}

// TierInput is one row of a tier table replacement
type TierInput struct {
	TierLevel            int             `json:"tier_level" binding:"required"`
	Name                 string          `json:"name"`
	CommissionRate       decimal.Decimal `json:"commission_rate"`
	MonthlyUserThreshold int64           `json:"monthly_user_threshold"`
}

func validateTiers(input []TierInput) utils.FieldValidationErrors {
	var errs utils.FieldValidationErrors
	if len(input) == 0 {
		return append(errs, utils.FieldValidationError{Field: "tiers", Message: "at least one tier is required"})
	}
	levels := make(map[int]bool)
	thresholds := make(map[int64]bool)
	for _, t := range input {
		if t.TierLevel < 1 {
			errs = append(errs, utils.FieldValidationError{Field: "tier_level", Message: "must be 1 or greater"})
		}
		if levels[t.TierLevel] {
			errs = append(errs, utils.FieldValidationError{Field: "tier_level", Message: "levels must be unique"})
		}
		levels[t.TierLevel] = true
		if thresholds[t.MonthlyUserThreshold] {
			errs = append(errs, utils.FieldValidationError{Field: "monthly_user_threshold", Message: "thresholds must be unique"})
		}
		thresholds[t.MonthlyUserThreshold] = true
		if t.MonthlyUserThreshold < 0 {
			errs = append(errs, utils.FieldValidationError{Field: "monthly_user_threshold", Message: "must not be negative"})
		}
		if t.CommissionRate.IsNegative() || t.CommissionRate.GreaterThan(decimal.NewFromInt(1)) {
			errs = append(errs, utils.FieldValidationError{Field: "commission_rate", Message: "must be between 0 and 1"})
		}
	}
	return errs
}

// PUT /v1/admin/commission/tiers
// Replaces the whole table. Existing ledger rows keep their snapshot rates.
func ReplaceCommissionTiers(c *gin.Context) {
	utils.LogInfo("ReplaceCommissionTiers called")
	admin, ok := getUser(c)
	if !ok {
		return
	}

	var req struct {
		Tiers []TierInput `json:"tiers" binding:"required,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if errs := validateTiers(req.Tiers); len(errs) > 0 {
		utils.ValidationError(c, "Invalid tier table", errs)
		return
	}

	tiers := make([]models.CommissionTier, 0, len(req.Tiers))
	for _, t := range req.Tiers {
		tiers = append(tiers, models.CommissionTier{
			TierLevel:            t.TierLevel,
			Name:                 strings.TrimSpace(t.Name),
			CommissionRate:       t.CommissionRate,
			MonthlyUserThreshold: t.MonthlyUserThreshold,
		})
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.CommissionTier{}).Error; err != nil {
			return err
		}
		return tx.Create(&tiers).Error
	})
	if err != nil {
		utils.LogError("Failed to replace commission tiers: %v", err)
		utils.InternalServerError(c, "Failed to update commission tiers", nil)
		return
	}

	utils.LogSecurity("Admin %d replaced the commission tier table (%d tiers)", admin.ID, len(tiers))
	utils.Success(c, "Commission tiers updated", gin.H{"tiers": tiers})
}

// GET /v1/admin/cmo-payouts?month=YYYY-MM
func ListCMOPayouts(c *gin.Context) {
	utils.LogInfo("ListCMOPayouts called")
	query := config.DB.Model(&models.CMOPayout{})
	if c.Query("month") != "" {
		month, ok := parseMonth(c)
		if !ok {
			return
		}
		query = query.Where("payout_month = ?", month)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var payouts []models.CMOPayout
	paginate(c, query.Order("payout_month DESC, cmo_id ASC"), &payouts, "CMO payouts retrieved successfully")
}

// UpdatePayoutRequest adjusts a CMO payout
type UpdatePayoutRequest struct {
	BonusAmount *decimal.Decimal `json:"bonus_amount"`
	Status      string           `json:"status"`
}

// PATCH /v1/admin/cmo-payouts/:id
func UpdateCMOPayout(c *gin.Context) {
	utils.LogInfo("UpdateCMOPayout called")
	admin, ok := getUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if req.BonusAmount == nil && req.Status == "" {
		utils.BadRequest(c, "Nothing to update", nil)
		return
	}
	if req.BonusAmount != nil && req.BonusAmount.IsNegative() {
		utils.ValidationError(c, "Invalid bonus", "bonus_amount must not be negative")
		return
	}
	if req.Status != "" && req.Status != models.PayoutStatusPending && req.Status != models.PayoutStatusPaid {
		utils.ValidationError(c, "Invalid status", "status must be pending or paid")
		return
	}

	var payout models.CMOPayout
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payout, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("Payout not found", err)
			}
			return err
		}
		updates := map[string]interface{}{}
		if req.BonusAmount != nil {
			if payout.Status == models.PayoutStatusPaid {
				return utils.ConflictError("Payout is already paid", nil)
			}
			payout.BonusAmount = *req.BonusAmount
			payout.TotalCommission = payout.BaseCommissionAmount.Add(payout.BonusAmount)
			updates["bonus_amount"] = payout.BonusAmount
			updates["total_commission"] = payout.TotalCommission
		}
		if req.Status != "" && req.Status != payout.Status {
			now := deps.Engine.Now()
			payout.Status = req.Status
			updates["status"] = req.Status
			if req.Status == models.PayoutStatusPaid {
				payout.PaidAt = &now
				updates["paid_at"] = now
			} else {
				payout.PaidAt = nil
				updates["paid_at"] = nil
			}
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&models.CMOPayout{}).Where("id = ?", payout.ID).Updates(updates).Error
	})
	if err != nil {
		utils.LogError("Failed to update CMO payout %d: %v", id, err)
		utils.RespondError(c, err)
		return
	}

	utils.LogInfo("Admin %d updated CMO payout %d", admin.ID, id)
	utils.Success(c, "Payout updated", gin.H{"payout": payout})
}
