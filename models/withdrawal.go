package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalRequest is a creator's request to cash out part of the available balance
type WithdrawalRequest struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CreatorID    uint            `gorm:"index;not null" json:"creator_id"`
	Amount       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	BankDetails  string          `json:"bank_details"`
	Status       string          `gorm:"size:20;index;not null" json:"status"` // pending, approved, rejected
	RejectReason string          `json:"reject_reason,omitempty"`
	ReviewedBy   *uint           `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
