package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrLedgerImmutable is returned when code tries to modify a written ledger row
var ErrLedgerImmutable = errors.New("payment attribution rows are append-only")

// Payment types
const (
	PaymentTypeNew     = "new"
	PaymentTypeUpgrade = "upgrade"
	PaymentTypeRenewal = "renewal"
)

// Attribution sources
const (
	SourceWebhook     = "webhook"
	SourceUser        = "user"
	SourceAdmin       = "admin"
	SourceBankJoin    = "bank_join"
	SourceBankUpgrade = "bank_upgrade"
)

// PaymentAttribution is the commission ledger: exactly one row per charged order.
// Commission rate and amount are a snapshot taken when the row is written.
type PaymentAttribution struct {
	ID                      uint            `gorm:"primaryKey" json:"id"`
	OrderID                 string          `gorm:"size:100;uniqueIndex;not null" json:"order_id"`
	UserID                  uint            `gorm:"index;not null" json:"user_id"`
	CreatorID               *uint           `gorm:"index" json:"creator_id"`
	EnrollmentID            *uint           `json:"enrollment_id,omitempty"`
	DiscountCodeID          *uint           `json:"discount_code_id,omitempty"`
	OriginalAmount          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"original_amount"`
	DiscountApplied         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"discount_applied"`
	FinalAmount             decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"final_amount"`
	CreatorCommissionRate   decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"creator_commission_rate"`
	CreatorCommissionAmount decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"creator_commission_amount"`
	PaymentMonth            time.Time       `gorm:"index;not null" json:"payment_month"`
	Tier                    string          `gorm:"size:40" json:"tier"`
	PaymentType             string          `gorm:"size:20" json:"payment_type"`
	Source                  string          `gorm:"size:20" json:"source"`
	CreatedAt               time.Time       `gorm:"index" json:"created_at"`
}

func (PaymentAttribution) TableName() string {
	return "payment_attributions"
}

func (PaymentAttribution) BeforeUpdate(tx *gorm.DB) error {
	return ErrLedgerImmutable
}

func (PaymentAttribution) BeforeDelete(tx *gorm.DB) error {
	return ErrLedgerImmutable
}
