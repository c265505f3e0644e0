package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment status constants
const (
	PaymentStatusPending     = "pending"
	PaymentStatusSuccess     = "success"
	PaymentStatusFailed      = "failed"
	PaymentStatusCancelled   = "cancelled"
	PaymentStatusChargedBack = "chargedback"
	PaymentStatusRefunded    = "refunded"
)

// Payment tracks one gateway order from checkout to its final status.
// The checkout snapshot fields are what the webhook finalizes from.
type Payment struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	OrderID          string          `json:"order_id" gorm:"size:100;uniqueIndex;not null"`
	UserID           uint            `json:"user_id" gorm:"index;not null"`
	GatewayPaymentID string          `json:"payment_id" gorm:"size:100;index"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	OriginalAmount   decimal.Decimal `json:"original_amount" gorm:"type:numeric(14,2);not null"`
	Currency         string          `json:"currency" gorm:"size:3"`
	Tier             string          `json:"tier" gorm:"size:40"`
	PaymentType      string          `json:"payment_type" gorm:"size:20"`
	EnrollmentID     *uint           `json:"enrollment_id,omitempty"`
	RefCreator       string          `json:"ref_creator,omitempty" gorm:"size:32"`
	DiscountCode     string          `json:"discount_code,omitempty" gorm:"size:32"`
	Status           string          `json:"status" gorm:"size:20;index;not null"`
	StatusCode       int             `json:"status_code"`
	StatusMessage    string          `json:"status_message"`
	Method           string          `json:"method" gorm:"size:20"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	Sandbox          bool            `json:"sandbox"`
	RefundedAt       *time.Time      `json:"refunded_at,omitempty"`
	RefundReason     string          `json:"refund_reason,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
