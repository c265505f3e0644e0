package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CMOProfile is an upstream referrer earning a flat override on its creators' sales
type CMOProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CMOProfile) TableName() string {
	return "cmo_profiles"
}

// Payout status constants
const (
	PayoutStatusPending = "pending"
	PayoutStatusPaid    = "paid"
)

// CMOPayout is the monthly commission rollup of one CMO, unique per (cmo_id, payout_month)
type CMOPayout struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	CMOID                uint            `gorm:"column:cmo_id;not null;uniqueIndex:idx_cmo_payout_month" json:"cmo_id"`
	PayoutMonth          time.Time       `gorm:"not null;uniqueIndex:idx_cmo_payout_month" json:"payout_month"`
	TotalPaidUsers       int64           `gorm:"not null" json:"total_paid_users"`
	TotalCommission      decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"total_commission"`
	BaseCommissionAmount decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"base_commission_amount"`
	BonusAmount          decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"bonus_amount"`
	Status               string          `gorm:"size:20;not null" json:"status"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (CMOPayout) TableName() string {
	return "cmo_payouts"
}
