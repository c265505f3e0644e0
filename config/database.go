package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Govind-619/StudyHub/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the postgres connection, migrates the schema and seeds the tier table
func InitDB(cfg *Config) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	DB = db

	if err := Migrate(DB); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}

	if err := SeedCommissionTiers(DB, cfg.TierSeedFile); err != nil {
		panic(fmt.Sprintf("Failed to seed commission tiers: %v", err))
	}
}

// Migrate auto-migrates every table of the service
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.AdminOTP{},
		&models.AppSetting{},
		&models.BlacklistedToken{},
		&models.CMOProfile{},
		&models.CreatorProfile{},
		&models.UserCreatorAttribution{},
		&models.CommissionTier{},
		&models.CMOPayout{},
		&models.DiscountCode{},
		&models.PaymentAttribution{},
		&models.Payment{},
		&models.Enrollment{},
		&models.JoinRequest{},
		&models.UpgradeRequest{},
		&models.WithdrawalRequest{},
	)
}

type tierSeed struct {
	Tiers []struct {
		Level     int    `yaml:"tier_level"`
		Name      string `yaml:"name"`
		Rate      string `yaml:"commission_rate"`
		Threshold int64  `yaml:"monthly_user_threshold"`
	} `yaml:"tiers"`
}

// LoadCommissionTiers parses a tier table from YAML
func LoadCommissionTiers(data []byte) ([]models.CommissionTier, error) {
	var seed tierSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse tier file: %w", err)
	}

	tiers := make([]models.CommissionTier, 0, len(seed.Tiers))
	for _, t := range seed.Tiers {
		rate, err := decimal.NewFromString(t.Rate)
		if err != nil {
			return nil, fmt.Errorf("tier %d: invalid commission_rate %q: %w", t.Level, t.Rate, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("tier %d: commission_rate must be within [0,1]", t.Level)
		}
		tiers = append(tiers, models.CommissionTier{
			TierLevel:            t.Level,
			Name:                 t.Name,
			CommissionRate:       rate,
			MonthlyUserThreshold: t.Threshold,
		})
	}
	return tiers, nil
}

// SeedCommissionTiers fills an empty commission_tiers table from the YAML seed file.
// A missing file leaves the table empty so the default two-step rates apply.
func SeedCommissionTiers(db *gorm.DB, path string) error {
	var count int64
	if err := db.Model(&models.CommissionTier{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	tiers, err := LoadCommissionTiers(data)
	if err != nil {
		return err
	}
	if len(tiers) == 0 {
		return nil
	}
	return db.Create(&tiers).Error
}
