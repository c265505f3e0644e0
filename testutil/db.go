// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a migrated sqlite database in the test's temp dir
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "studyhub.db") + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// SeedTiers writes the standard four-level tier table
func SeedTiers(t *testing.T, db *gorm.DB) []models.CommissionTier {
	t.Helper()
	tiers := []models.CommissionTier{
		{TierLevel: 1, Name: "Starter", CommissionRate: decimal.RequireFromString("0.08"), MonthlyUserThreshold: 0},
		{TierLevel: 2, Name: "Rising", CommissionRate: decimal.RequireFromString("0.12"), MonthlyUserThreshold: 25},
		{TierLevel: 3, Name: "Pro", CommissionRate: decimal.RequireFromString("0.15"), MonthlyUserThreshold: 100},
		{TierLevel: 4, Name: "Elite", CommissionRate: decimal.RequireFromString("0.18"), MonthlyUserThreshold: 250},
	}
	require.NoError(t, db.Create(&tiers).Error)
	return tiers
}

var userSeq int

// CreateUser inserts a user with the given role
func CreateUser(t *testing.T, db *gorm.DB, role string) models.User {
	t.Helper()
	userSeq++
	user := models.User{
		Username: fmt.Sprintf("user%d", userSeq),
		Email:    fmt.Sprintf("user%d@example.com", userSeq),
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

// CreateCreator inserts an active creator at tier 1 with the given referral code
func CreateCreator(t *testing.T, db *gorm.DB, code string, cmoID *uint) models.CreatorProfile {
	t.Helper()
	user := CreateUser(t, db, models.RoleCreator)
	creator := models.CreatorProfile{
		UserID:           user.ID,
		DisplayName:      "Creator " + code,
		ReferralCode:     code,
		CMOID:            cmoID,
		CurrentTierLevel: 1,
		AvailableBalance: decimal.Zero,
		TotalWithdrawn:   decimal.Zero,
		IsActive:         true,
	}
	require.NoError(t, db.Create(&creator).Error)
	return creator
}

// CreateCMO inserts an active CMO profile
func CreateCMO(t *testing.T, db *gorm.DB) models.CMOProfile {
	t.Helper()
	user := CreateUser(t, db, models.RoleCMO)
	cmo := models.CMOProfile{UserID: user.ID, Name: user.Username, IsActive: true}
	require.NoError(t, db.Create(&cmo).Error)
	return cmo
}

// CreateAttribution writes a ledger row directly, bypassing Finalize
func CreateAttribution(t *testing.T, db *gorm.DB, orderID string, creatorID uint, amount, rate decimal.Decimal, at time.Time) models.PaymentAttribution {
	t.Helper()
	at = at.UTC()
	row := models.PaymentAttribution{
		OrderID:                 orderID,
		UserID:                  1,
		CreatorID:               &creatorID,
		OriginalAmount:          amount,
		DiscountApplied:         decimal.Zero,
		FinalAmount:             amount,
		CreatorCommissionRate:   rate,
		CreatorCommissionAmount: amount.Mul(rate),
		PaymentMonth:            time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC),
		PaymentType:             models.PaymentTypeNew,
		Source:                  models.SourceAdmin,
		CreatedAt:               at,
	}
	require.NoError(t, db.Create(&row).Error)
	return row
}
