package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Enrollment grants a user access to the study material of a tier
type Enrollment struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	UserID        uint       `json:"user_id" gorm:"index;not null"`
	Tier          string     `json:"tier" gorm:"size:40;not null"`
	IsActive      bool       `json:"is_active" gorm:"index"`
	ActivatedAt   *time.Time `json:"activated_at,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Request status constants
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// JoinRequest is a bank-transfer enrollment awaiting admin approval
type JoinRequest struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	UserID         uint            `json:"user_id" gorm:"index;not null"`
	Tier           string          `json:"tier" gorm:"size:40;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	OriginalAmount decimal.Decimal `json:"original_amount" gorm:"type:numeric(14,2);not null"`
	Reference      string          `json:"reference" gorm:"size:64;uniqueIndex;not null"`
	RefCreator     string          `json:"ref_creator,omitempty" gorm:"size:32"`
	DiscountCode   string          `json:"discount_code,omitempty" gorm:"size:32"`
	SlipURL        string          `json:"slip_url"`
	Status         string          `json:"status" gorm:"size:20;index;not null"`
	RejectReason   string          `json:"reject_reason,omitempty"`
	EnrollmentID   *uint           `json:"enrollment_id,omitempty"`
	ReviewedBy     *uint           `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UpgradeRequest is a bank-transfer tier upgrade of an existing enrollment
type UpgradeRequest struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	UserID         uint            `json:"user_id" gorm:"index;not null"`
	EnrollmentID   uint            `json:"enrollment_id" gorm:"index;not null"`
	FromTier       string          `json:"from_tier" gorm:"size:40"`
	ToTier         string          `json:"to_tier" gorm:"size:40;not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(14,2);not null"`
	OriginalAmount decimal.Decimal `json:"original_amount" gorm:"type:numeric(14,2);not null"`
	Reference      string          `json:"reference" gorm:"size:64;uniqueIndex;not null"`
	RefCreator     string          `json:"ref_creator,omitempty" gorm:"size:32"`
	DiscountCode   string          `json:"discount_code,omitempty" gorm:"size:32"`
	SlipURL        string          `json:"slip_url"`
	Status         string          `json:"status" gorm:"size:20;index;not null"`
	RejectReason   string          `json:"reject_reason,omitempty"`
	ReviewedBy     *uint           `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
