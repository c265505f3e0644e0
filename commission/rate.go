package commission

import (
	"context"
	"sort"
	"time"

	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Rate is the outcome of resolving a creator's commission rate at one instant
type Rate struct {
	Rate         decimal.Decimal `json:"rate"`
	TierLevel    int             `json:"tier_level"`
	Protected    bool            `json:"protected"`
	MonthlyCount int64           `json:"monthly_count"`
}

// SelectTier returns the highest tier whose threshold is met by count, preferring the higher
// level on equal thresholds. When no threshold is met the lowest tier applies.
// It returns false only when tiers is empty.
func SelectTier(tiers []models.CommissionTier, count int64) (models.CommissionTier, bool) {
	if len(tiers) == 0 {
		return models.CommissionTier{}, false
	}
	sorted := make([]models.CommissionTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MonthlyUserThreshold != sorted[j].MonthlyUserThreshold {
			return sorted[i].MonthlyUserThreshold < sorted[j].MonthlyUserThreshold
		}
		return sorted[i].TierLevel < sorted[j].TierLevel
	})

	selected := sorted[0]
	for _, t := range sorted {
		if t.MonthlyUserThreshold > count {
			break
		}
		selected = t
	}
	return selected, true
}

// tierFor applies SelectTier, falling back to the two-step default when no tiers exist
func (e *Engine) tierFor(tiers []models.CommissionTier, count int64) (int, decimal.Decimal) {
	if t, ok := SelectTier(tiers, count); ok {
		return t.TierLevel, t.CommissionRate
	}
	if count >= e.cfg.DefaultHighThreshold {
		return 2, e.cfg.DefaultHighRate
	}
	return 1, e.cfg.DefaultLowRate
}

// protectedRate is the configured rate of tier level 2, or the fallback when that tier is missing
func (e *Engine) protectedRate(tiers []models.CommissionTier) decimal.Decimal {
	for _, t := range tiers {
		if t.TierLevel == protectedTier {
			return t.CommissionRate
		}
	}
	return e.cfg.ProtectedRate
}

func (e *Engine) loadTiers(ctx context.Context, db *gorm.DB) ([]models.CommissionTier, error) {
	var tiers []models.CommissionTier
	err := db.WithContext(ctx).Order("monthly_user_threshold ASC, tier_level ASC").Find(&tiers).Error
	return tiers, err
}

// trailingCount counts ledger rows of the creator created in the window ending at asOf
func (e *Engine) trailingCount(ctx context.Context, db *gorm.DB, creatorID uint, asOf time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&models.PaymentAttribution{}).
		Where("creator_id = ? AND created_at >= ?", creatorID, asOf.UTC().Add(-e.cfg.Window)).
		Count(&count).Error
	return count, err
}

// ResolveRate computes the commission rate that applies to creator at asOf.
// A creator inside its protection window gets the protected rate regardless of volume.
func (e *Engine) ResolveRate(ctx context.Context, creator *models.CreatorProfile, asOf time.Time) (Rate, error) {
	tiers, err := e.loadTiers(ctx, e.db)
	if err != nil {
		return Rate{}, utils.WrapError(err, "load commission tiers")
	}

	if creator.IsProtected(asOf) {
		return Rate{Rate: e.protectedRate(tiers), TierLevel: protectedTier, Protected: true}, nil
	}

	count, err := e.trailingCount(ctx, e.db, creator.ID, asOf)
	if err != nil {
		return Rate{}, utils.WrapError(err, "count trailing attributions")
	}
	level, rate := e.tierFor(tiers, count)

	if level != creator.ResolvedTierLevel {
		if err := e.db.WithContext(ctx).Model(&models.CreatorProfile{}).
			Where("id = ?", creator.ID).
			Update("resolved_tier_level", level).Error; err != nil {
			utils.LogError("Failed to cache resolved tier %d for creator %d: %v", level, creator.ID, err)
		} else {
			creator.ResolvedTierLevel = level
		}
	}

	return Rate{Rate: rate, TierLevel: level, MonthlyCount: count}, nil
}
