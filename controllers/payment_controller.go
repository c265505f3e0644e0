package controllers

import (
	"errors"
	"strings"

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/payhere"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutRequest starts a PayHere checkout
type CheckoutRequest struct {
	OrderID        string          `json:"order_id"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	Currency       string          `json:"currency"`
	Tier           string          `json:"tier" binding:"required"`
	PaymentType    string          `json:"payment_type"`
	EnrollmentID   *uint           `json:"enrollment_id"`
	RefCreator     string          `json:"ref_creator"`
	DiscountCode   string          `json:"discount_code"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
}

// POST /v1/payments/generate-hash
func GenerateCheckoutHash(c *gin.Context) {
	utils.LogInfo("GenerateCheckoutHash called")
	user, ok := getUser(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid checkout request for user %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	if req.OriginalAmount.IsZero() {
		req.OriginalAmount = req.Amount
	}
	if errs := utils.ValidateAmounts(req.OriginalAmount, req.Amount); len(errs) > 0 {
		utils.ValidationError(c, "Invalid amount", errs)
		return
	}
	if !req.Amount.IsPositive() {
		utils.ValidationError(c, "Invalid amount", "amount must be greater than zero")
		return
	}
	for _, code := range []string{req.RefCreator, req.DiscountCode} {
		if valid, msg := utils.ValidateCode(code); !valid {
			utils.ValidationError(c, "Invalid code", msg)
			return
		}
	}

	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		req.OrderID = "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
	} else if valid, msg := utils.ValidateOrderID(req.OrderID); !valid {
		utils.ValidationError(c, "Invalid order id", msg)
		return
	}
	if req.PaymentType == "" {
		req.PaymentType = models.PaymentTypeNew
	}
	if req.Currency == "" {
		req.Currency = deps.Config.Currency
	}

	db := config.DB
	mode := currentPaymentMode(db)
	creds, err := deps.Gateway.Credentials(mode)
	if err != nil || creds.MerchantID == "" || creds.MerchantSecret == "" {
		utils.LogError("Gateway credentials missing for mode %s: %v", mode, err)
		utils.Error(c, 503, "Payment gateway is not configured", nil)
		return
	}

	var existing models.Payment
	err = db.Where("order_id = ?", req.OrderID).First(&existing).Error
	switch {
	case err == nil:
		if existing.UserID != user.ID || existing.Status != models.PaymentStatusPending {
			utils.LogError("Order %s cannot be reused by user %d", req.OrderID, user.ID)
			utils.Conflict(c, "Order already exists", nil)
			return
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		utils.LogError("Failed to check order %s: %v", req.OrderID, err)
		utils.InternalServerError(c, "Failed to create checkout", nil)
		return
	}

	payment := models.Payment{
		OrderID:        req.OrderID,
		UserID:         user.ID,
		Amount:         req.Amount.Round(2),
		OriginalAmount: req.OriginalAmount.Round(2),
		Currency:       req.Currency,
		Tier:           normalizeTier(req.Tier),
		PaymentType:    req.PaymentType,
		EnrollmentID:   req.EnrollmentID,
		RefCreator:     models.NormalizeCode(req.RefCreator),
		DiscountCode:   models.NormalizeCode(req.DiscountCode),
		Status:         models.PaymentStatusPending,
		Sandbox:        mode == payhere.ModeSandbox,
	}
	if existing.ID != 0 {
		payment.ID = existing.ID
		payment.CreatedAt = existing.CreatedAt
		err = db.Save(&payment).Error
	} else {
		err = db.Create(&payment).Error
	}
	if err != nil {
		utils.LogError("Failed to store pending payment %s: %v", req.OrderID, err)
		utils.InternalServerError(c, "Failed to create checkout", nil)
		return
	}

	hash := payhere.CheckoutHash(creds.MerchantID, payment.OrderID, payment.Amount, payment.Currency, creds.MerchantSecret)
	utils.LogInfo("Checkout hash generated for order %s (user %d, mode %s)", payment.OrderID, user.ID, mode)
	utils.Success(c, "Checkout hash generated", gin.H{
		"merchant_id": creds.MerchantID,
		"hash":        hash,
		"sandbox":     mode == payhere.ModeSandbox,
		"order_id":    payment.OrderID,
		"amount":      payhere.FormatAmount(payment.Amount),
		"currency":    payment.Currency,
	})
}

// FinalizeRequest is the body of the user and admin finalize endpoints
type FinalizeRequest struct {
	OrderID        string          `json:"order_id" binding:"required"`
	UserID         uint            `json:"user_id"`
	EnrollmentID   *uint           `json:"enrollment_id"`
	PaymentType    string          `json:"payment_type"`
	Tier           string          `json:"tier"`
	OriginalAmount decimal.Decimal `json:"original_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	RefCreator     string          `json:"ref_creator"`
	DiscountCode   string          `json:"discount_code"`
}

// POST /v1/payments/finalize-payment-user
// The caller is taken from the token; amounts come from the confirmed payment row.
func FinalizePaymentUser(c *gin.Context) {
	utils.LogInfo("FinalizePaymentUser called")
	user, ok := getUser(c)
	if !ok {
		return
	}

	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid finalize request for user %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}

	var payment models.Payment
	if err := config.DB.Where("order_id = ? AND user_id = ?", strings.TrimSpace(req.OrderID), user.ID).First(&payment).Error; err != nil {
		utils.LogError("Payment %s not found for user %d: %v", req.OrderID, user.ID, err)
		utils.NotFound(c, "Payment not found")
		return
	}
	if payment.Status != models.PaymentStatusSuccess {
		utils.LogError("Finalize requested for unconfirmed payment %s (status %s)", payment.OrderID, payment.Status)
		utils.Conflict(c, "Payment has not been confirmed", gin.H{"status": payment.Status})
		return
	}
	if !req.FinalAmount.IsZero() && !req.FinalAmount.Equal(payment.Amount) {
		utils.LogError("Finalize amount %s differs from confirmed amount %s for order %s", req.FinalAmount, payment.Amount, payment.OrderID)
	}

	in := commission.FinalizeInput{
		OrderID:        payment.OrderID,
		UserID:         user.ID,
		FinalAmount:    payment.Amount,
		OriginalAmount: payment.OriginalAmount,
		RefCreator:     firstNonEmpty(payment.RefCreator, req.RefCreator),
		DiscountCode:   firstNonEmpty(payment.DiscountCode, req.DiscountCode),
		EnrollmentID:   payment.EnrollmentID,
		PaymentType:    firstNonEmpty(payment.PaymentType, req.PaymentType),
		Tier:           firstNonEmpty(payment.Tier, normalizeTier(req.Tier)),
		Source:         models.SourceUser,
	}
	if in.EnrollmentID == nil {
		in.EnrollmentID = req.EnrollmentID
	}

	result, err := deps.Engine.Finalize(c.Request.Context(), in)
	if err != nil {
		utils.LogError("Failed to finalize order %s: %v", payment.OrderID, err)
		utils.RespondError(c, finalizeError(err))
		return
	}

	utils.Success(c, "Payment finalized", gin.H{
		"success":    true,
		"creator_id": result.CreatorID,
		"commission": result.Commission,
		"duplicate":  result.Duplicate,
	})
}

// POST /v1/admin/payments/finalize
func AdminFinalizePayment(c *gin.Context) {
	utils.LogInfo("AdminFinalizePayment called")
	admin, ok := getUser(c)
	if !ok {
		return
	}

	var req FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid admin finalize request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	if req.UserID == 0 {
		utils.BadRequest(c, "user_id is required", nil)
		return
	}
	if errs := utils.ValidateAmounts(req.OriginalAmount, req.FinalAmount); len(errs) > 0 {
		utils.ValidationError(c, "Invalid amount", errs)
		return
	}

	db := config.DB
	var target models.User
	if err := db.First(&target, req.UserID).Error; err != nil {
		utils.LogError("Admin finalize for unknown user %d", req.UserID)
		utils.NotFound(c, "User not found")
		return
	}

	orderID := strings.TrimSpace(req.OrderID)
	tier := normalizeTier(req.Tier)
	result, err := deps.Engine.Finalize(c.Request.Context(), commission.FinalizeInput{
		OrderID:        orderID,
		UserID:         target.ID,
		FinalAmount:    req.FinalAmount,
		OriginalAmount: req.OriginalAmount,
		RefCreator:     req.RefCreator,
		DiscountCode:   req.DiscountCode,
		EnrollmentID:   req.EnrollmentID,
		PaymentType:    req.PaymentType,
		Tier:           tier,
		Source:         models.SourceAdmin,
		BeforeInsert: func(tx *gorm.DB) (*uint, error) {
			enrollment, err := activateEnrollment(tx, target.ID, tier, req.EnrollmentID, deps.Engine.Now())
			if err != nil {
				return nil, err
			}
			return &enrollment.ID, nil
		},
	})
	if err != nil {
		utils.LogError("Admin %d failed to finalize order %s: %v", admin.ID, orderID, err)
		utils.RespondError(c, finalizeError(err))
		return
	}

	utils.LogInfo("Admin %d finalized order %s for user %d", admin.ID, orderID, target.ID)
	utils.Success(c, "Payment finalized", gin.H{
		"success":       true,
		"creator_id":    result.CreatorID,
		"commission":    result.Commission,
		"duplicate":     result.Duplicate,
		"enrollment_id": result.EnrollmentID,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
