package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/metrics"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/payhere"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefundRequest is the body of POST /v1/admin/refunds
type RefundRequest struct {
	PaymentID uint   `json:"payment_id" binding:"required"`
	OTP       string `json:"otp" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

// POST /v1/admin/refunds/otp
func RequestRefundOTP(c *gin.Context) {
	utils.LogInfo("RequestRefundOTP called")
	admin, ok := getUser(c)
	if !ok {
		return
	}
	if valid, msg := utils.ValidateEmail(admin.Email); !valid {
		utils.LogError("Admin %d cannot receive refund OTP: %s", admin.ID, msg)
		utils.BadRequest(c, "Your account has no usable email address", msg)
		return
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		utils.LogError("Failed to generate refund OTP: %v", err)
		utils.InternalServerError(c, "Failed to generate OTP", nil)
		return
	}
	hashed, err := utils.HashPassword(code)
	if err != nil {
		utils.LogError("Failed to hash refund OTP: %v", err)
		utils.InternalServerError(c, "Failed to generate OTP", nil)
		return
	}

	db := config.DB
	now := time.Now()
	otp := models.AdminOTP{
		UserID:    admin.ID,
		Purpose:   models.OTPPurposeRefund,
		Code:      hashed,
		ExpiresAt: now.Add(utils.OTPExpiration),
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		// one live code per admin and purpose
		if err := tx.Model(&models.AdminOTP{}).
			Where("user_id = ? AND purpose = ? AND used_at IS NULL", admin.ID, models.OTPPurposeRefund).
			Update("used_at", now).Error; err != nil {
			return err
		}
		return tx.Create(&otp).Error
	})
	if err != nil {
		utils.LogError("Failed to store refund OTP for admin %d: %v", admin.ID, err)
		utils.InternalServerError(c, "Failed to generate OTP", nil)
		return
	}

	if deps.Mailer == nil {
		utils.LogError("No mailer configured, refund OTP for admin %d not sent", admin.ID)
		utils.Error(c, 503, "Email is not configured", nil)
		return
	}
	if err := utils.SendRefundOTP(deps.Mailer, admin.Email, code); err != nil {
		utils.LogError("Failed to email refund OTP to admin %d: %v", admin.ID, err)
		utils.InternalServerError(c, "Failed to send OTP", nil)
		return
	}

	utils.LogSecurity("Refund OTP issued to admin %d", admin.ID)
	utils.Success(c, "OTP sent to your email", gin.H{"expires_at": otp.ExpiresAt})
}

// consumeRefundOTP checks code against the admin's live refund OTP and marks it used
func consumeRefundOTP(db *gorm.DB, adminID uint, code string, now time.Time) error {
	var otp models.AdminOTP
	err := db.Where("user_id = ? AND purpose = ? AND used_at IS NULL", adminID, models.OTPPurposeRefund).
		Order("created_at DESC").First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.UnauthorizedError("No active OTP, request a new one", err)
		}
		return err
	}
	if now.After(otp.ExpiresAt) {
		return utils.UnauthorizedError("OTP has expired", nil)
	}
	if !utils.CheckPassword(strings.TrimSpace(code), otp.Code) {
		return utils.UnauthorizedError("Invalid OTP", nil)
	}
	res := db.Model(&models.AdminOTP{}).Where("id = ? AND used_at IS NULL", otp.ID).Update("used_at", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.UnauthorizedError("OTP already used", nil)
	}
	return nil
}

// POST /v1/admin/refunds
// The gateway is called first; local state changes only after it accepts the refund.
func RefundPayment(c *gin.Context) {
	utils.LogInfo("RefundPayment called")
	admin, ok := getUser(c)
	if !ok {
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid refund request: %v", err)
		utils.BadRequest(c, "Invalid request", err.Error())
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		utils.BadRequest(c, "Refund reason is required", nil)
		return
	}

	db := config.DB
	now := time.Now()
	var payment models.Payment
	if err := db.First(&payment, req.PaymentID).Error; err != nil {
		utils.LogError("Refund requested for unknown payment %d", req.PaymentID)
		utils.NotFound(c, "Payment not found")
		return
	}
	if payment.Status != models.PaymentStatusSuccess {
		utils.Conflict(c, "Only successful payments can be refunded", gin.H{"status": payment.Status})
		return
	}
	if payment.GatewayPaymentID == "" {
		utils.BadRequest(c, "Payment has no gateway payment id", nil)
		return
	}

	// the code is spent only once the payment is known to be refundable
	if err := consumeRefundOTP(db, admin.ID, req.OTP, now); err != nil {
		utils.LogSecurity("Refund OTP rejected for admin %d: %v", admin.ID, err)
		metrics.RecordRefund("otp_rejected")
		utils.RespondError(c, err)
		return
	}

	mode := payhere.ModeLive
	if payment.Sandbox {
		mode = payhere.ModeSandbox
	}
	result, err := deps.Gateway.Refund(c.Request.Context(), mode, payment.GatewayPaymentID, reason)
	if err != nil {
		var gwErr *payhere.GatewayError
		if errors.As(err, &gwErr) {
			utils.LogError("Gateway rejected refund of order %s: %v", payment.OrderID, err)
			metrics.RecordRefund("rejected")
			utils.BadGateway(c, "Refund rejected by payment gateway", gin.H{"gateway_message": gwErr.Message})
			return
		}
		utils.LogError("Refund call for order %s failed: %v", payment.OrderID, err)
		metrics.RecordRefund("error")
		utils.RespondError(c, utils.BadGatewayError("Payment gateway unavailable", err))
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":        models.PaymentStatusRefunded,
			"refunded_at":   now,
			"refund_reason": reason,
		}).Error; err != nil {
			return err
		}
		if payment.EnrollmentID != nil {
			return deactivateEnrollment(tx, *payment.EnrollmentID, now)
		}
		return nil
	})
	if err != nil {
		// gateway side is already refunded
		utils.LogError("Refund of order %s accepted by gateway but local update failed: %v", payment.OrderID, err)
		metrics.RecordRefund("local_error")
		utils.InternalServerError(c, "Refund issued but local update failed", gin.H{"order_id": payment.OrderID})
		return
	}

	metrics.RecordRefund("success")
	utils.LogSecurity("Admin %d refunded order %s (%s): %s", admin.ID, payment.OrderID, mode, reason)
	notifications.Send(deps.Notifier, notifications.RefundMessage(payment.OrderID, payment.Amount, reason, admin.Username))
	publishEvent(c.Request.Context(), events.PaymentRefunded, payment.OrderID, map[string]interface{}{
		"payment_id": payment.ID,
		"order_id":   payment.OrderID,
		"user_id":    payment.UserID,
		"amount":     payment.Amount.String(),
		"reason":     reason,
		"mode":       mode,
	})

	utils.Success(c, "Payment refunded", gin.H{
		"payment_id":      payment.ID,
		"order_id":        payment.OrderID,
		"gateway_message": result.Message,
	})
}

func publishEvent(ctx context.Context, eventType, key string, payload map[string]interface{}) {
	if deps.Publisher == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := deps.Publisher.Publish(ctx, event); err != nil {
		utils.LogError("Failed to publish %s for %s: %v", eventType, key, err)
	}
}
