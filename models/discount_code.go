package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Discount types
const (
	DiscountTypePercent = "percent"
	DiscountTypeFlat    = "flat"
)

// DiscountCode is a checkout discount; when CreatorID is set it also attributes the sale
type DiscountCode struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Code            string          `gorm:"size:32;uniqueIndex;not null" json:"code"`
	CreatorID       *uint           `gorm:"index" json:"creator_id,omitempty"`
	Type            string          `gorm:"size:10;not null" json:"type"`
	Value           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"value"`
	Expiry          *time.Time      `json:"expiry,omitempty"`
	UsageLimit      int             `json:"usage_limit"`
	UsageCount      int             `gorm:"not null" json:"usage_count"`
	PaidConversions int             `gorm:"not null" json:"paid_conversions"`
	IsActive        bool            `gorm:"index" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (DiscountCode) TableName() string {
	return "discount_codes"
}

func (d *DiscountCode) BeforeCreate(tx *gorm.DB) error {
	d.Code = NormalizeCode(d.Code)
	return nil
}

// UsableAt reports whether the code is active, unexpired and under its usage limit
func (d DiscountCode) UsableAt(t time.Time) bool {
	if !d.IsActive {
		return false
	}
	if d.Expiry != nil && !t.Before(*d.Expiry) {
		return false
	}
	return d.UsageLimit == 0 || d.UsageCount < d.UsageLimit
}
