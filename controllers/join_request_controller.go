package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankTransferRequest is a bank-transfer join or upgrade submitted by a user
type BankTransferRequest struct {
	Tier           string          `json:"tier" binding:"required"`
	EnrollmentID   uint            `json:"enrollment_id"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	Reference      string          `json:"reference" binding:"required"`
	RefCreator     string          `json:"ref_creator"`
	DiscountCode   string          `json:"discount_code"`
	SlipURL        string          `json:"slip_url"`
}

// RejectRequest carries the mandatory rejection reason
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func bindBankTransfer(c *gin.Context) (BankTransferRequest, bool) {
	var req BankTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid bank transfer request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return req, false
	}
	req.Reference = strings.TrimSpace(req.Reference)
	if valid, msg := utils.ValidateReference(req.Reference); !valid {
		utils.ValidationError(c, "Invalid reference", msg)
		return req, false
	}
	if req.OriginalAmount.IsZero() {
		req.OriginalAmount = req.Amount
	}
	if errs := utils.ValidateAmounts(req.OriginalAmount, req.Amount); len(errs) > 0 {
		utils.ValidationError(c, "Invalid amount", errs)
		return req, false
	}
	for _, code := range []string{req.RefCreator, req.DiscountCode} {
		if valid, msg := utils.ValidateCode(code); !valid {
			utils.ValidationError(c, "Invalid code", msg)
			return req, false
		}
	}
	return req, true
}

// POST /v1/join-requests
func SubmitJoinRequest(c *gin.Context) {
	utils.LogInfo("SubmitJoinRequest called")
	user, ok := getUser(c)
	if !ok {
		return
	}
	req, ok := bindBankTransfer(c)
	if !ok {
		return
	}

	join := models.JoinRequest{
		UserID:         user.ID,
		Tier:           normalizeTier(req.Tier),
		Amount:         req.Amount.Round(2),
		OriginalAmount: req.OriginalAmount.Round(2),
		Reference:      req.Reference,
		RefCreator:     models.NormalizeCode(req.RefCreator),
		DiscountCode:   models.NormalizeCode(req.DiscountCode),
		SlipURL:        req.SlipURL,
		Status:         models.RequestStatusPending,
	}
	if err := config.DB.Create(&join).Error; err != nil {
		if commission.IsDuplicateKey(err) {
			utils.Conflict(c, "Reference already submitted", nil)
			return
		}
		utils.LogError("Failed to create join request for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to submit join request", nil)
		return
	}

	utils.LogInfo("Join request %d submitted by user %d", join.ID, user.ID)
	utils.Created(c, "Join request submitted", gin.H{"join_request": join})
}

// POST /v1/upgrade-requests
func SubmitUpgradeRequest(c *gin.Context) {
	utils.LogInfo("SubmitUpgradeRequest called")
	user, ok := getUser(c)
	if !ok {
		return
	}
	req, ok := bindBankTransfer(c)
	if !ok {
		return
	}
	if req.EnrollmentID == 0 {
		utils.BadRequest(c, "enrollment_id is required", nil)
		return
	}

	var enrollment models.Enrollment
	if err := config.DB.Where("id = ? AND user_id = ? AND is_active = ?", req.EnrollmentID, user.ID, true).First(&enrollment).Error; err != nil {
		utils.LogError("Active enrollment %d not found for user %d", req.EnrollmentID, user.ID)
		utils.NotFound(c, "Active enrollment not found")
		return
	}
	toTier := normalizeTier(req.Tier)
	if enrollment.Tier == toTier {
		utils.BadRequest(c, "Enrollment is already on this tier", nil)
		return
	}

	upgrade := models.UpgradeRequest{
		UserID:         user.ID,
		EnrollmentID:   enrollment.ID,
		FromTier:       enrollment.Tier,
		ToTier:         toTier,
		Amount:         req.Amount.Round(2),
		OriginalAmount: req.OriginalAmount.Round(2),
		Reference:      req.Reference,
		RefCreator:     models.NormalizeCode(req.RefCreator),
		DiscountCode:   models.NormalizeCode(req.DiscountCode),
		SlipURL:        req.SlipURL,
		Status:         models.RequestStatusPending,
	}
	if err := config.DB.Create(&upgrade).Error; err != nil {
		if commission.IsDuplicateKey(err) {
			utils.Conflict(c, "Reference already submitted", nil)
			return
		}
		utils.LogError("Failed to create upgrade request for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to submit upgrade request", nil)
		return
	}

	utils.LogInfo("Upgrade request %d submitted by user %d", upgrade.ID, user.ID)
	utils.Created(c, "Upgrade request submitted", gin.H{"upgrade_request": upgrade})
}

// GET /v1/admin/join-requests
func ListJoinRequests(c *gin.Context) {
	utils.LogInfo("ListJoinRequests called")
	query := config.DB.Model(&models.JoinRequest{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var requests []models.JoinRequest
	paginate(c, query.Order("created_at DESC"), &requests, "Join requests retrieved successfully")
}

// GET /v1/admin/upgrade-requests
func ListUpgradeRequests(c *gin.Context) {
	utils.LogInfo("ListUpgradeRequests called")
	query := config.DB.Model(&models.UpgradeRequest{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	var requests []models.UpgradeRequest
	paginate(c, query.Order("created_at DESC"), &requests, "Upgrade requests retrieved successfully")
}

// POST /v1/admin/join-requests/:id/approve
// Approving an already approved request re-runs the idempotent finalize.
func ApproveJoinRequest(c *gin.Context) {
	utils.LogInfo("ApproveJoinRequest called")
	admin, ok := getUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.DB
	now := deps.Engine.Now()
	var join models.JoinRequest
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&join, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("Join request not found", err)
			}
			return err
		}
		claimed, err := claimPending(tx, &models.JoinRequest{}, join.ID, join.Status, admin.ID, now)
		if err != nil || !claimed {
			return err
		}

		enrollment, err := activateEnrollment(tx, join.UserID, join.Tier, nil, now)
		if err != nil {
			return err
		}
		join.Status = models.RequestStatusApproved
		join.EnrollmentID = &enrollment.ID
		join.ReviewedBy = &admin.ID
		join.ReviewedAt = &now
		return tx.Model(&models.JoinRequest{}).Where("id = ?", join.ID).Update("enrollment_id", enrollment.ID).Error
	})
	if err == nil && join.Status != models.RequestStatusApproved {
		// another reviewer approved it first; finalize against their enrollment
		err = db.First(&join, id).Error
	}
	if err != nil {
		utils.LogError("Failed to approve join request %d: %v", id, err)
		utils.RespondError(c, err)
		return
	}

	result, err := deps.Engine.Finalize(c.Request.Context(), commission.FinalizeInput{
		OrderID:        "BANK-" + join.Reference,
		UserID:         join.UserID,
		FinalAmount:    join.Amount,
		OriginalAmount: join.OriginalAmount,
		RefCreator:     join.RefCreator,
		DiscountCode:   join.DiscountCode,
		EnrollmentID:   join.EnrollmentID,
		PaymentType:    models.PaymentTypeNew,
		Tier:           join.Tier,
		Source:         models.SourceBankJoin,
	})
	if err != nil {
		utils.LogError("Failed to finalize join request %d: %v", id, err)
		utils.RespondError(c, finalizeError(err))
		return
	}

	utils.LogInfo("Join request %d approved by admin %d", id, admin.ID)
	utils.Success(c, "Join request approved", gin.H{
		"join_request": join,
		"creator_id":   result.CreatorID,
		"commission":   result.Commission,
		"duplicate":    result.Duplicate,
	})
}

// POST /v1/admin/upgrade-requests/:id/approve
func ApproveUpgradeRequest(c *gin.Context) {
	utils.LogInfo("ApproveUpgradeRequest called")
	admin, ok := getUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	db := config.DB
	now := deps.Engine.Now()
	var upgrade models.UpgradeRequest
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&upgrade, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("Upgrade request not found", err)
			}
			return err
		}
		claimed, err := claimPending(tx, &models.UpgradeRequest{}, upgrade.ID, upgrade.Status, admin.ID, now)
		if err != nil || !claimed {
			return err
		}

		if _, err := upgradeEnrollment(tx, upgrade.EnrollmentID, upgrade.UserID, upgrade.ToTier); err != nil {
			return err
		}
		upgrade.Status = models.RequestStatusApproved
		upgrade.ReviewedBy = &admin.ID
		upgrade.ReviewedAt = &now
		return nil
	})
	if err == nil && upgrade.Status != models.RequestStatusApproved {
		err = db.First(&upgrade, id).Error
	}
	if err != nil {
		utils.LogError("Failed to approve upgrade request %d: %v", id, err)
		utils.RespondError(c, err)
		return
	}

	enrollmentID := upgrade.EnrollmentID
	result, err := deps.Engine.Finalize(c.Request.Context(), commission.FinalizeInput{
		OrderID:        "UPGRADE-" + upgrade.Reference,
		UserID:         upgrade.UserID,
		FinalAmount:    upgrade.Amount,
		OriginalAmount: upgrade.OriginalAmount,
		RefCreator:     upgrade.RefCreator,
		DiscountCode:   upgrade.DiscountCode,
		EnrollmentID:   &enrollmentID,
		PaymentType:    models.PaymentTypeUpgrade,
		Tier:           upgrade.ToTier,
		Source:         models.SourceBankUpgrade,
	})
	if err != nil {
		utils.LogError("Failed to finalize upgrade request %d: %v", id, err)
		utils.RespondError(c, finalizeError(err))
		return
	}

	utils.LogInfo("Upgrade request %d approved by admin %d", id, admin.ID)
	utils.Success(c, "Upgrade request approved", gin.H{
		"upgrade_request": upgrade,
		"creator_id":      result.CreatorID,
		"commission":      result.Commission,
		"duplicate":       result.Duplicate,
	})
}

// claimPending moves a pending request to approved with a conditional update, so of two
// concurrent reviewers only one applies the approval. It reports false when the request
// was already approved, and a conflict when it was rejected.
func claimPending(tx *gorm.DB, model interface{}, id uint, status string, adminID uint, now time.Time) (bool, error) {
	switch status {
	case models.RequestStatusRejected:
		return false, utils.ConflictError("Request was rejected", nil)
	case models.RequestStatusApproved:
		return false, nil
	}
	res := tx.Model(model).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":      models.RequestStatusApproved,
			"reviewed_by": adminID,
			"reviewed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		var current struct{ Status string }
		if err := tx.Model(model).Select("status").Where("id = ?", id).Scan(&current).Error; err != nil {
			return false, err
		}
		if current.Status == models.RequestStatusRejected {
			return false, utils.ConflictError("Request was rejected", nil)
		}
		return false, nil
	}
	return true, nil
}

// POST /v1/admin/join-requests/:id/reject
func RejectJoinRequest(c *gin.Context) {
	utils.LogInfo("RejectJoinRequest called")
	rejectRequest(c, &models.JoinRequest{}, "Join request")
}

// POST /v1/admin/upgrade-requests/:id/reject
func RejectUpgradeRequest(c *gin.Context) {
	utils.LogInfo("RejectUpgradeRequest called")
	rejectRequest(c, &models.UpgradeRequest{}, "Upgrade request")
}

func rejectRequest(c *gin.Context, model interface{}, label string) {
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

	res := config.DB.Model(model).
		Where("id = ? AND status = ?", id, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":        models.RequestStatusRejected,
			"reject_reason": strings.TrimSpace(req.Reason),
			"reviewed_by":   admin.ID,
			"reviewed_at":   deps.Engine.Now(),
		})
	if res.Error != nil {
		utils.LogError("Failed to reject %s %d: %v", strings.ToLower(label), id, res.Error)
		utils.InternalServerError(c, "Failed to reject request", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, label+" is not pending", nil)
		return
	}

	utils.LogInfo("%s %d rejected by admin %d", label, id, admin.ID)
	utils.Success(c, label+" rejected", gin.H{"id": id})
}
