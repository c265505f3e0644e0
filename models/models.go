package models

import (
	"time"

	"gorm.io/gorm"
)

// Role constants
const (
	RoleStudent = "student"
	RoleCreator = "creator"
	RoleCMO     = "cmo"
	RoleAdmin   = "admin"
)

// User represents an account on the platform
type User struct {
	gorm.Model
	Username    string     `gorm:"uniqueIndex;not null" json:"username"`
	Email       string     `gorm:"uniqueIndex;not null" json:"email"`
	Password    string     `json:"-"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	Role        string     `gorm:"size:20;not null;index" json:"role"`
	IsBlocked   bool       `json:"is_blocked"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

// IsAdmin reports whether the user carries the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AdminOTP is a one-time code guarding sensitive admin actions such as refunds
type AdminOTP struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	Purpose   string     `json:"purpose" gorm:"size:40;not null"`
	Code      string     `json:"-" gorm:"not null"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"not null"`
	UsedAt    *time.Time `json:"used_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// OTP purposes
const (
	OTPPurposeRefund = "refund"
)

// AppSetting stores runtime-switchable settings such as the payment mode
type AppSetting struct {
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Setting keys
const (
	SettingPaymentMode = "payment_mode"
)
