package controllers

import (
	"errors"
	"strings"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WithdrawalInput is a creator's cash-out request
type WithdrawalInput struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	BankDetails string          `json:"bank_details" binding:"required"`
}

// POST /v1/creator/withdrawals
func RequestWithdrawal(c *gin.Context) {
	utils.LogInfo("RequestWithdrawal called")
	creator, ok := getCreator(c)
	if !ok {
		return
	}

	var req WithdrawalInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	amount := req.Amount.Round(2)
	if !amount.IsPositive() {
		utils.ValidationError(c, "Invalid amount", "amount must be greater than zero")
		return
	}

	var withdrawal models.WithdrawalRequest
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var pending decimal.Decimal
		var rows []models.WithdrawalRequest
		if err := tx.Where("creator_id = ? AND status = ?", creator.ID, models.RequestStatusPending).Find(&rows).Error; err != nil {
			return err
		}
		for _, r := range rows {
			pending = pending.Add(r.Amount)
		}

		var fresh models.CreatorProfile
		if err := tx.First(&fresh, creator.ID).Error; err != nil {
			return err
		}
		if amount.Add(pending).GreaterThan(fresh.AvailableBalance) {
			return utils.BadRequestError("Amount exceeds available balance", nil)
		}

		withdrawal = models.WithdrawalRequest{
			CreatorID:   creator.ID,
			Amount:      amount,
			BankDetails: strings.TrimSpace(req.BankDetails),
			Status:      models.RequestStatusPending,
		}
		return tx.Create(&withdrawal).Error
	})
	if err != nil {
		utils.LogError("Failed to create withdrawal for creator %d: %v", creator.ID, err)
		utils.RespondError(c, err)
		return
	}

	utils.LogInfo("Creator %d requested withdrawal %d of %s", creator.ID, withdrawal.ID, amount)
	utils.Created(c, "Withdrawal requested", gin.H{"withdrawal": withdrawal})
}

// GET /v1/creator/withdrawals
func ListMyWithdrawals(c *gin.Context) {
	utils.LogInfo("ListMyWithdrawals called")
	creator, ok := getCreator(c)
	if !ok {
		return
	}
	var withdrawals []models.WithdrawalRequest
	query := config.DB.Model(&models.WithdrawalRequest{}).Where("creator_id = ?", creator.ID).Order("created_at DESC")
	paginate(c, query, &withdrawals, "Withdrawals retrieved successfully")
}

// GET /v1/admin/withdrawals
func ListWithdrawals(c *gin.Context) {
	utils.LogInfo("ListWithdrawals called")
	query := config.DB.Model(&models.WithdrawalRequest{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var withdrawals []models.WithdrawalRequest
	paginate(c, query.Order("created_at DESC"), &withdrawals, "Withdrawals retrieved successfully")
}

// POST /v1/admin/withdrawals/:id/approve
func ApproveWithdrawal(c *gin.Context) {
	utils.LogInfo("ApproveWithdrawal called")
	admin, ok := getUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	now := deps.Engine.Now()
	var withdrawal models.WithdrawalRequest
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&withdrawal, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("Withdrawal not found", err)
			}
			return err
		}
		if withdrawal.Status != models.RequestStatusPending {
			return utils.ConflictError("Withdrawal is not pending", nil)
		}

		res := tx.Model(&models.CreatorProfile{}).
			Where("id = ? AND available_balance >= ?", withdrawal.CreatorID, withdrawal.Amount).
			Updates(map[string]interface{}{
				"available_balance": gorm.Expr("available_balance - ?", withdrawal.Amount),
				"total_withdrawn":   gorm.Expr("total_withdrawn + ?", withdrawal.Amount),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError("Insufficient available balance", nil)
		}

		res = tx.Model(&models.WithdrawalRequest{}).
			Where("id = ? AND status = ?", withdrawal.ID, models.RequestStatusPending).
			Updates(map[string]interface{}{
				"status":      models.RequestStatusApproved,
				"reviewed_by": admin.ID,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError("Withdrawal is not pending", nil)
		}
		withdrawal.Status = models.RequestStatusApproved
		withdrawal.ReviewedBy = &admin.ID
		withdrawal.ReviewedAt = &now
		return nil
	})
	if err != nil {
		utils.LogError("Failed to approve withdrawal %d: %v", id, err)
		utils.RespondError(c, err)
		return
	}

	utils.LogSecurity("Admin %d approved withdrawal %d (%s) for creator %d", admin.ID, id, withdrawal.Amount, withdrawal.CreatorID)
	utils.Success(c, "Withdrawal approved", gin.H{"withdrawal": withdrawal})
}

// POST /v1/admin/withdrawals/:id/reject
func RejectWithdrawal(c *gin.Context) {
	utils.LogInfo("RejectWithdrawal called")
	admin, ok := getUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		utils.BadRequest(c, "Rejection reason is required", nil)
		return
	}

	res := config.DB.Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":        models.RequestStatusRejected,
			"reject_reason": strings.TrimSpace(req.Reason),
			"reviewed_by":   admin.ID,
			"reviewed_at":   deps.Engine.Now(),
		})
	if res.Error != nil {
		utils.LogError("Failed to reject withdrawal %d: %v", id, res.Error)
		utils.InternalServerError(c, "Failed to reject withdrawal", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, "Withdrawal is not pending", nil)
		return
	}

	utils.LogInfo("Admin %d rejected withdrawal %d", admin.ID, id)
	utils.Success(c, "Withdrawal rejected", gin.H{"id": id})
}
