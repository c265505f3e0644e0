package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/metrics"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/payhere"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plain-text bodies expected by the gateway
const (
	notifyOK               = "OK"
	notifyInvalidSignature = "Invalid signature"
	notifyInternalError    = "Internal error"
	signatureInvalidReason = "signature invalid"
)

// PayHereNotification is the form PayHere posts to the notify URL
type PayHereNotification struct {
	MerchantID    string `form:"merchant_id"`
	OrderID       string `form:"order_id"`
	PaymentID     string `form:"payment_id"`
	Amount        string `form:"payhere_amount"`
	Currency      string `form:"payhere_currency"`
	StatusCode    string `form:"status_code"`
	Signature     string `form:"md5sig"`
	Tier          string `form:"custom_1"`
	Enrollment    string `form:"custom_2"`
	Method        string `form:"method"`
	StatusMessage string `form:"status_message"`
}

// POST /payhere/notify
func PayHereNotify(c *gin.Context) {
	utils.LogInfo("PayHereNotify called")

	var n PayHereNotification
	if err := c.ShouldBind(&n); err != nil {
		utils.LogError("Malformed payment notification: %v", err)
		metrics.RecordNotification("malformed")
		utils.PlainText(c, http.StatusBadRequest, notifyInvalidSignature)
		return
	}
	n.OrderID = strings.TrimSpace(n.OrderID)
	utils.LogInfo("Payment notification for order %s: status_code=%s amount=%s %s", n.OrderID, n.StatusCode, n.Amount, n.Currency)

	db := config.DB
	creds, mode, err := deps.Gateway.CredentialsForMerchant(n.MerchantID, currentPaymentMode(db))
	if err != nil {
		utils.LogError("No gateway credentials for merchant %s: %v", n.MerchantID, err)
		metrics.RecordNotification("error")
		utils.PlainText(c, http.StatusInternalServerError, notifyInternalError)
		return
	}

	if n.OrderID == "" || !payhere.VerifyNotification(n.MerchantID, n.OrderID, n.Amount, n.Currency, n.StatusCode, creds.MerchantSecret, n.Signature) {
		utils.LogSecurity("Invalid PayHere signature for order %q from %s (merchant %s, mode %s)", n.OrderID, c.ClientIP(), n.MerchantID, mode)
		metrics.RecordNotification("invalid_signature")
		markSignatureFailure(db, n.OrderID)
		notifications.Send(deps.Notifier, notifications.SignatureFailureMessage(n.OrderID, n.MerchantID, c.ClientIP()))
		utils.PlainText(c, http.StatusBadRequest, notifyInvalidSignature)
		return
	}

	statusCode, status := payhere.MapStatus(n.StatusCode)

	var payment models.Payment
	if err := db.Where("order_id = ?", n.OrderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.LogError("Payment notification for unknown order %s", n.OrderID)
			metrics.RecordNotification("unknown_order")
			utils.PlainText(c, http.StatusOK, notifyOK)
			return
		}
		utils.LogError("Failed to load payment %s: %v", n.OrderID, err)
		metrics.RecordNotification("error")
		utils.PlainText(c, http.StatusInternalServerError, notifyInternalError)
		return
	}

	if status != models.PaymentStatusSuccess {
		if err := recordPaymentStatus(db, &payment, n, statusCode, status); err != nil {
			utils.LogError("Failed to record status %s for order %s: %v", status, n.OrderID, err)
			metrics.RecordNotification("error")
			utils.PlainText(c, http.StatusInternalServerError, notifyInternalError)
			return
		}
		metrics.RecordNotification(status)
		utils.PlainText(c, http.StatusOK, notifyOK)
		return
	}

	paid, err := decimal.NewFromString(n.Amount)
	if err != nil || !paid.Equal(payment.Amount) {
		utils.LogSecurity("Amount mismatch for order %s: notified %s, expected %s", n.OrderID, n.Amount, payment.Amount.StringFixed(2))
		if err := db.Model(&payment).Where("status <> ?", models.PaymentStatusSuccess).Updates(map[string]interface{}{
			"status":         models.PaymentStatusFailed,
			"failure_reason": "amount mismatch",
		}).Error; err != nil {
			utils.LogError("Failed to mark order %s failed: %v", n.OrderID, err)
		}
		metrics.RecordNotification("amount_mismatch")
		utils.PlainText(c, http.StatusOK, notifyOK)
		return
	}

	if err := confirmPayment(db, &payment, n, statusCode, mode); err != nil {
		utils.LogError("Failed to confirm payment %s: %v", n.OrderID, err)
		metrics.RecordNotification("error")
		utils.PlainText(c, http.StatusInternalServerError, notifyInternalError)
		return
	}

	result, err := deps.Engine.Finalize(c.Request.Context(), commission.FinalizeInput{
		OrderID:        payment.OrderID,
		UserID:         payment.UserID,
		FinalAmount:    payment.Amount,
		OriginalAmount: payment.OriginalAmount,
		RefCreator:     payment.RefCreator,
		DiscountCode:   payment.DiscountCode,
		EnrollmentID:   payment.EnrollmentID,
		PaymentType:    payment.PaymentType,
		Tier:           payment.Tier,
		Source:         models.SourceWebhook,
	})
	if err != nil {
		utils.LogError("Failed to finalize order %s: %v", n.OrderID, err)
		metrics.RecordNotification("error")
		utils.PlainText(c, http.StatusInternalServerError, notifyInternalError)
		return
	}

	utils.LogInfo("Order %s finalized (duplicate=%t, commission=%s)", n.OrderID, result.Duplicate, result.Commission)
	metrics.RecordNotification(models.PaymentStatusSuccess)
	utils.PlainText(c, http.StatusOK, notifyOK)
}

// markSignatureFailure fails a pending order after a forged or corrupted notification.
// Confirmed orders are never downgraded.
func markSignatureFailure(db *gorm.DB, orderID string) {
	if orderID == "" {
		return
	}
	err := db.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusFailed,
			"failure_reason": signatureInvalidReason,
		}).Error
	if err != nil {
		utils.LogError("Failed to mark order %s as signature failure: %v", orderID, err)
	}
}

// recordPaymentStatus stores a non-success status. A confirmed payment only moves on to chargedback.
func recordPaymentStatus(db *gorm.DB, payment *models.Payment, n PayHereNotification, statusCode int, status string) error {
	if payment.Status == models.PaymentStatusSuccess && status != models.PaymentStatusChargedBack {
		utils.LogInfo("Ignoring %s notification for confirmed order %s", status, payment.OrderID)
		return nil
	}
	if payment.Status == models.PaymentStatusRefunded {
		return nil
	}
	updates := map[string]interface{}{
		"status":         status,
		"status_code":    statusCode,
		"status_message": n.StatusMessage,
		"method":         n.Method,
	}
	if n.PaymentID != "" {
		updates["gateway_payment_id"] = n.PaymentID
	}
	if status == models.PaymentStatusFailed || status == models.PaymentStatusCancelled {
		updates["failure_reason"] = n.StatusMessage
	}
	return db.Model(payment).Updates(updates).Error
}

// confirmPayment marks the payment successful and activates its enrollment, once.
// Retried notifications find the payment already confirmed and skip straight to finalize.
func confirmPayment(db *gorm.DB, payment *models.Payment, n PayHereNotification, statusCode int, mode string) error {
	if payment.Status == models.PaymentStatusSuccess {
		return nil
	}
	if payment.Status == models.PaymentStatusRefunded || payment.Status == models.PaymentStatusChargedBack {
		return utils.ConflictError("Payment can no longer be confirmed", nil)
	}

	if payment.EnrollmentID == nil {
		if id, err := strconv.ParseUint(strings.TrimSpace(n.Enrollment), 10, 64); err == nil && id > 0 {
			eid := uint(id)
			payment.EnrollmentID = &eid
		}
	}
	tier := payment.Tier
	if tier == "" {
		tier = normalizeTier(n.Tier)
	}
	now := deps.Engine.Now()

	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status <> ?", payment.ID, models.PaymentStatusSuccess).
			Updates(map[string]interface{}{
				"status":             models.PaymentStatusSuccess,
				"status_code":        statusCode,
				"status_message":     n.StatusMessage,
				"method":             n.Method,
				"gateway_payment_id": n.PaymentID,
				"sandbox":            mode == payhere.ModeSandbox,
				"failure_reason":     "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		var enrollment *models.Enrollment
		var err error
		if payment.PaymentType == models.PaymentTypeUpgrade && payment.EnrollmentID != nil {
			enrollment, err = upgradeEnrollment(tx, *payment.EnrollmentID, payment.UserID, tier)
		} else {
			enrollment, err = activateEnrollment(tx, payment.UserID, tier, payment.EnrollmentID, now)
		}
		if err != nil {
			return err
		}
		payment.EnrollmentID = &enrollment.ID
		payment.Status = models.PaymentStatusSuccess
		return tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Update("enrollment_id", enrollment.ID).Error
	})
}
