package controllers

import (
	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GET /v1/creator/dashboard
func CreatorDashboard(c *gin.Context) {
	utils.LogInfo("CreatorDashboard called")
	creator, ok := getCreator(c)
	if !ok {
		return
	}

	db := config.DB
	now := deps.Engine.Now()
	rate, err := deps.Engine.ResolveRate(c.Request.Context(), &creator, now)
	if err != nil {
		utils.LogError("Failed to resolve rate for creator %d: %v", creator.ID, err)
		utils.InternalServerError(c, "Failed to load dashboard", nil)
		return
	}

	var monthCommission struct {
		Sales      int64
		Commission decimal.Decimal
	}
	var monthRows []models.PaymentAttribution
	if err := db.Select("creator_commission_amount").
		Where("creator_id = ? AND payment_month = ?", creator.ID, commission.MonthBucket(now)).
		Find(&monthRows).Error; err != nil {
		utils.LogError("Failed to load monthly ledger for creator %d: %v", creator.ID, err)
		utils.InternalServerError(c, "Failed to load dashboard", nil)
		return
	}
	for _, row := range monthRows {
		monthCommission.Sales++
		monthCommission.Commission = monthCommission.Commission.Add(row.CreatorCommissionAmount)
	}

	var pendingWithdrawals int64
	db.Model(&models.WithdrawalRequest{}).
		Where("creator_id = ? AND status = ?", creator.ID, models.RequestStatusPending).
		Count(&pendingWithdrawals)

	var tiers []models.CommissionTier
	db.Order("monthly_user_threshold ASC").Find(&tiers)
	var next *models.CommissionTier
	for i := range tiers {
		if tiers[i].MonthlyUserThreshold > rate.MonthlyCount {
			next = &tiers[i]
			break
		}
	}

	data := gin.H{
		"creator": gin.H{
			"id":                    creator.ID,
			"display_name":          creator.DisplayName,
			"referral_code":         creator.ReferralCode,
			"current_tier_level":    creator.CurrentTierLevel,
			"tier_protection_until": creator.TierProtectionUntil,
		},
		"commission_rate":     rate.Rate,
		"effective_tier":      rate.TierLevel,
		"protected":           rate.Protected,
		"trailing_paid_users": rate.MonthlyCount,
		"lifetime_paid_users": creator.LifetimePaidUsers,
		"monthly_paid_users":  creator.MonthlyCount(commission.MonthBucket(now)),
		"available_balance":   creator.AvailableBalance,
		"total_withdrawn":     creator.TotalWithdrawn,
		"month_sales":         monthCommission.Sales,
		"month_commission":    monthCommission.Commission,
		"pending_withdrawals": pendingWithdrawals,
	}
	if next != nil {
		data["next_tier"] = gin.H{
			"tier_level":      next.TierLevel,
			"commission_rate": next.CommissionRate,
			"users_needed":    next.MonthlyUserThreshold - rate.MonthlyCount,
		}
	}
	utils.Success(c, "Dashboard retrieved successfully", data)
}

// GET /v1/creator/attributions
func ListMyAttributions(c *gin.Context) {
	utils.LogInfo("ListMyAttributions called")
	creator, ok := getCreator(c)
	if !ok {
		return
	}

	query := config.DB.Model(&models.PaymentAttribution{}).Where("creator_id = ?", creator.ID)
	if c.Query("month") != "" {
		month, ok := parseMonth(c)
		if !ok {
			return
		}
		query = query.Where("payment_month = ?", month)
	}
	var rows []models.PaymentAttribution
	paginate(c, query.Order("created_at DESC"), &rows, "Attributions retrieved successfully")
}
