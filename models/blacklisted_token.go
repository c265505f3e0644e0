package models

import (
	"time"

	"gorm.io/gorm"
)

// BlacklistedToken holds bearer tokens revoked on logout until they expire
type BlacklistedToken struct {
	gorm.Model
	Token     string    `gorm:"uniqueIndex;not null"`
	UserID    uint      `gorm:"index"`
	ExpiresAt time.Time `gorm:"not null;index"`
}
