package commission

import (
	"context"
	"fmt"
	"time"

	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/metrics"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/utils"
	"gorm.io/gorm"
)

// EvaluationReport summarizes one tier evaluation run
type EvaluationReport struct {
	Evaluated int       `json:"evaluated"`
	Promoted  int       `json:"promoted"`
	Demoted   int       `json:"demoted"`
	Unchanged int       `json:"unchanged"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Errors    []string  `json:"errors,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// EvaluateTiers re-derives the tier of every active creator from its trailing window.
// Protected creators are skipped. A failure on one creator is recorded and the run continues.
func (e *Engine) EvaluateTiers(ctx context.Context) (*EvaluationReport, error) {
	started := time.Now()
	now := e.Now()
	report := &EvaluationReport{StartedAt: now}
	utils.LogInfo("Tier evaluation started at %s", now.Format(time.RFC3339))

	tiers, err := e.loadTiers(ctx, e.db)
	if err != nil {
		return nil, utils.WrapError(err, "load commission tiers")
	}

	if err := e.rollMonthlyCounters(ctx, now); err != nil {
		return nil, err
	}

	var batch []models.CreatorProfile
	result := e.db.WithContext(ctx).Where("is_active = ?", true).
		FindInBatches(&batch, e.cfg.BatchSize, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				if err := ctx.Err(); err != nil {
					return err
				}
				e.evaluateCreator(ctx, &batch[i], tiers, now, report)
			}
			return nil
		})
	report.Duration = time.Since(started).String()
	if result.Error != nil {
		return report, utils.WrapError(result.Error, "iterate creators")
	}

	utils.LogInfo("Tier evaluation finished: evaluated=%d promoted=%d demoted=%d unchanged=%d skipped=%d failed=%d",
		report.Evaluated, report.Promoted, report.Demoted, report.Unchanged, report.Skipped, report.Failed)
	return report, nil
}

// rollMonthlyCounters zeroes monthly counters that still belong to an earlier month
func (e *Engine) rollMonthlyCounters(ctx context.Context, now time.Time) error {
	month := MonthBucket(now)
	res := e.db.WithContext(ctx).Model(&models.CreatorProfile{}).
		Where("monthly_bucket IS NULL OR monthly_bucket < ?", month).
		Updates(map[string]interface{}{
			"monthly_paid_users": 0,
			"monthly_bucket":     month,
		})
	if res.Error != nil {
		return utils.WrapError(res.Error, "roll monthly counters")
	}
	if res.RowsAffected > 0 {
		utils.LogInfo("Reset monthly counters of %d creators for %s", res.RowsAffected, month.Format("2006-01"))
	}
	return nil
}

func (e *Engine) evaluateCreator(ctx context.Context, creator *models.CreatorProfile, tiers []models.CommissionTier,
	now time.Time, report *EvaluationReport) {
	if creator.IsProtected(now) {
		report.Skipped++
		return
	}
	report.Evaluated++

	fail := func(err error) {
		report.Failed++
		report.Errors = append(report.Errors, fmt.Sprintf("creator %d: %v", creator.ID, err))
		utils.LogError("Tier evaluation failed for creator %d: %v", creator.ID, err)
	}

	count, err := e.trailingCount(ctx, e.db, creator.ID, now)
	if err != nil {
		fail(err)
		return
	}
	level, rate := e.tierFor(tiers, count)
	oldLevel := creator.CurrentTierLevel

	updates := map[string]interface{}{"rolling_paid_users": count}
	eventType := ""
	switch {
	case level > oldLevel:
		updates["current_tier_level"] = level
		updates["tier_protection_until"] = e.ProtectionEnd(now)
		eventType = events.TierPromoted
	case level < oldLevel:
		updates["current_tier_level"] = level
		eventType = events.TierDemoted
	}

	if err := e.db.WithContext(ctx).Model(&models.CreatorProfile{}).Where("id = ?", creator.ID).Updates(updates).Error; err != nil {
		fail(err)
		return
	}

	switch eventType {
	case events.TierPromoted:
		report.Promoted++
		metrics.RecordTierChange("promoted")
	case events.TierDemoted:
		report.Demoted++
		metrics.RecordTierChange("demoted")
	default:
		report.Unchanged++
		return
	}

	utils.LogInfo("Creator %d moved from tier %d to tier %d (trailing count %d)", creator.ID, oldLevel, level, count)
	e.publish(ctx, eventType, fmt.Sprint(creator.ID), map[string]interface{}{
		"creator_id":    creator.ID,
		"referral_code": creator.ReferralCode,
		"from_level":    oldLevel,
		"to_level":      level,
		"rate":          rate.String(),
		"monthly_count": count,
	})
	notifications.Send(e.notifier, notifications.TierChangeMessage(creator.ReferralCode, oldLevel, level))
}
