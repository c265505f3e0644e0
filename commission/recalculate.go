package commission

import (
	"context"
	"time"

	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecalculationReport summarizes a full rebuild of derived balances
type RecalculationReport struct {
	Attributions    int64           `json:"attributions"`
	Creators        int             `json:"creators"`
	CMOPayouts      int             `json:"cmo_payouts"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	StartedAt       time.Time       `json:"started_at"`
	Duration        string          `json:"duration"`
}

type creatorTotals struct {
	lifetime   int64
	monthly    int64
	commission decimal.Decimal
}

type payoutKey struct {
	cmoID uint
	month time.Time
}

type payoutTotals struct {
	users      int64
	commission decimal.Decimal
}

// RecalculateStats rebuilds every creator's counters and balance, and every CMO payout's base
// figures, from the ledger alone. The rebuild runs in one transaction.
func (e *Engine) RecalculateStats(ctx context.Context) (*RecalculationReport, error) {
	started := time.Now()
	now := e.Now()
	currentMonth := MonthBucket(now)
	report := &RecalculationReport{StartedAt: now, TotalCommission: decimal.Zero}
	utils.LogInfo("Recalculation started at %s", now.Format(time.RFC3339))

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var creators []models.CreatorProfile
		if err := tx.Select("id", "cmo_id", "total_withdrawn").Find(&creators).Error; err != nil {
			return utils.WrapError(err, "load creators")
		}
		cmoOf := make(map[uint]*uint, len(creators))
		withdrawn := make(map[uint]decimal.Decimal, len(creators))
		for _, c := range creators {
			cmoOf[c.ID] = c.CMOID
			withdrawn[c.ID] = c.TotalWithdrawn
		}

		if err := tx.Model(&models.CreatorProfile{}).Where("1 = 1").Updates(map[string]interface{}{
			"lifetime_paid_users": 0,
			"monthly_paid_users":  0,
			"monthly_bucket":      currentMonth,
			"available_balance":   decimal.Zero,
		}).Error; err != nil {
			return utils.WrapError(err, "reset creator stats")
		}

		totals := make(map[uint]*creatorTotals)
		payouts := make(map[payoutKey]*payoutTotals)

		var rows []models.PaymentAttribution
		res := tx.Model(&models.PaymentAttribution{}).Where("creator_id IS NOT NULL").
			FindInBatches(&rows, e.cfg.BatchSize, func(_ *gorm.DB, _ int) error {
				for _, row := range rows {
					report.Attributions++
					id := *row.CreatorID
					t, ok := totals[id]
					if !ok {
						t = &creatorTotals{commission: decimal.Zero}
						totals[id] = t
					}
					t.lifetime++
					if !row.PaymentMonth.Before(currentMonth) {
						t.monthly++
					}
					t.commission = t.commission.Add(row.CreatorCommissionAmount)
					report.TotalCommission = report.TotalCommission.Add(row.CreatorCommissionAmount)

					if cmoID := cmoOf[id]; cmoID != nil {
						key := payoutKey{cmoID: *cmoID, month: MonthBucket(row.PaymentMonth)}
						p, ok := payouts[key]
						if !ok {
							p = &payoutTotals{commission: decimal.Zero}
							payouts[key] = p
						}
						p.users++
						p.commission = p.commission.Add(row.FinalAmount.Mul(e.cfg.CMORate).Round(ledgerScale))
					}
				}
				return ctx.Err()
			})
		if res.Error != nil {
			return utils.WrapError(res.Error, "stream attributions")
		}

		for id, t := range totals {
			balance := t.commission.Sub(withdrawn[id])
			if balance.IsNegative() {
				balance = decimal.Zero
			}
			if err := tx.Model(&models.CreatorProfile{}).Where("id = ?", id).Updates(map[string]interface{}{
				"lifetime_paid_users": t.lifetime,
				"monthly_paid_users":  t.monthly,
				"available_balance":   balance,
			}).Error; err != nil {
				return utils.WrapError(err, "write creator stats")
			}
		}
		report.Creators = len(totals)

		if err := tx.Model(&models.CMOPayout{}).Where("1 = 1").Updates(map[string]interface{}{
			"total_paid_users":       0,
			"base_commission_amount": decimal.Zero,
			"total_commission":       gorm.Expr("bonus_amount"),
		}).Error; err != nil {
			return utils.WrapError(err, "reset cmo payouts")
		}

		for key, p := range payouts {
			payout := models.CMOPayout{
				CMOID:                key.cmoID,
				PayoutMonth:          key.month,
				TotalPaidUsers:       p.users,
				TotalCommission:      p.commission,
				BaseCommissionAmount: p.commission,
				BonusAmount:          decimal.Zero,
				Status:               models.PayoutStatusPending,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "cmo_id"}, {Name: "payout_month"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"total_paid_users":       p.users,
					"base_commission_amount": p.commission,
					"total_commission":       gorm.Expr("cmo_payouts.bonus_amount + ?", p.commission),
					"updated_at":             now,
				}),
			}).Create(&payout).Error; err != nil {
				return utils.WrapError(err, "write cmo payout")
			}
		}
		report.CMOPayouts = len(payouts)
		return nil
	})

	report.Duration = time.Since(started).String()
	if err != nil {
		utils.LogError("Recalculation failed: %v", err)
		return nil, err
	}
	utils.LogInfo("Recalculation finished: attributions=%d creators=%d cmo_payouts=%d", report.Attributions, report.Creators, report.CMOPayouts)
	return report, nil
}
