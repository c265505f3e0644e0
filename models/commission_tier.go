package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionTier is one bracket of the creator rate table
type CommissionTier struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	TierLevel            int             `gorm:"uniqueIndex;not null" json:"tier_level"`
	Name                 string          `json:"name"`
	CommissionRate       decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"commission_rate"`
	MonthlyUserThreshold int64           `gorm:"not null" json:"monthly_user_threshold"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

func (CommissionTier) TableName() string {
	return "commission_tiers"
}
