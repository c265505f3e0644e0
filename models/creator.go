package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreatorProfile is a content creator who refers paying users.
// Balance and counter columns are derived from the payment_attributions ledger.
type CreatorProfile struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	UserID              uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	DisplayName         string          `json:"display_name"`
	ReferralCode        string          `gorm:"size:32;uniqueIndex;not null" json:"referral_code"`
	CMOID               *uint           `gorm:"column:cmo_id;index" json:"cmo_id,omitempty"`
	CurrentTierLevel    int             `gorm:"not null" json:"current_tier_level"`
	ResolvedTierLevel   int             `json:"resolved_tier_level"`
	TierProtectionUntil *time.Time      `json:"tier_protection_until,omitempty"`
	LifetimePaidUsers   int64           `gorm:"not null" json:"lifetime_paid_users"`
	MonthlyPaidUsers    int64           `gorm:"not null" json:"monthly_paid_users"`
	MonthlyBucket       *time.Time      `json:"monthly_bucket,omitempty"`
	RollingPaidUsers    int64           `gorm:"not null" json:"rolling_paid_users"`
	AvailableBalance    decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"available_balance"`
	TotalWithdrawn      decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"total_withdrawn"`
	IsActive            bool            `gorm:"index" json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	CMO *CMOProfile `gorm:"foreignKey:CMOID" json:"cmo,omitempty"`
}

func (CreatorProfile) TableName() string {
	return "creator_profiles"
}

// BeforeCreate normalizes the referral code so the unique index is case-insensitive
func (c *CreatorProfile) BeforeCreate(tx *gorm.DB) error {
	c.ReferralCode = NormalizeCode(c.ReferralCode)
	return nil
}

// IsProtected reports whether the tier protection window is still open at t
func (c CreatorProfile) IsProtected(t time.Time) bool {
	return c.TierProtectionUntil != nil && t.Before(*c.TierProtectionUntil)
}

// MonthlyCount returns the calendar-month counter for month, or 0 when the stored counter
// belongs to an earlier month
func (c CreatorProfile) MonthlyCount(month time.Time) int64 {
	if c.MonthlyBucket == nil || !c.MonthlyBucket.Equal(month) {
		return 0
	}
	return c.MonthlyPaidUsers
}

// NormalizeCode upper-cases and trims referral and discount codes
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// UserCreatorAttribution records the first creator a user was attributed to
type UserCreatorAttribution struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatorID    uint      `gorm:"index;not null" json:"creator_id"`
	FirstOrderID string    `gorm:"size:100" json:"first_order_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func (UserCreatorAttribution) TableName() string {
	return "user_creator_attributions"
}
