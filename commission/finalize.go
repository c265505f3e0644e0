package commission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/metrics"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinalizeInput describes one confirmed payment, whichever path confirmed it
type FinalizeInput struct {
	OrderID        string
	UserID         uint
	FinalAmount    decimal.Decimal
	OriginalAmount decimal.Decimal
	RefCreator     string
	DiscountCode   string
	EnrollmentID   *uint
	PaymentType    string
	Tier           string
	Source         string

	// BeforeInsert, when set, runs in the ledger transaction just before the row is written.
	// A non-nil enrollment id it returns is recorded on the row. Its writes roll back with the
	// row, so they happen exactly once per order.
	BeforeInsert func(tx *gorm.DB) (*uint, error)
}

// FinalizeResult is returned for both new and duplicate orders.
// Duplicate is true when the ledger already held the order and nothing was applied.
type FinalizeResult struct {
	AttributionID uint            `json:"attribution_id"`
	CreatorID     *uint           `json:"creator_id"`
	EnrollmentID  *uint           `json:"enrollment_id,omitempty"`
	Commission    decimal.Decimal `json:"commission"`
	Rate          decimal.Decimal `json:"rate"`
	TierLevel     int             `json:"tier_level,omitempty"`
	Duplicate     bool            `json:"duplicate"`
}

func resultFromRow(row models.PaymentAttribution, duplicate bool) *FinalizeResult {
	return &FinalizeResult{
		AttributionID: row.ID,
		CreatorID:     row.CreatorID,
		EnrollmentID:  row.EnrollmentID,
		Commission:    row.CreatorCommissionAmount,
		Rate:          row.CreatorCommissionRate,
		Duplicate:     duplicate,
	}
}

// IsDuplicateKey reports whether err is a unique constraint violation
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

func (in *FinalizeInput) normalize() error {
	in.OrderID = strings.TrimSpace(in.OrderID)
	if in.OrderID == "" {
		return ErrInvalidOrderID
	}
	if in.UserID == 0 {
		return ErrInvalidUser
	}
	if in.OriginalAmount.IsZero() {
		in.OriginalAmount = in.FinalAmount
	}
	if in.FinalAmount.IsNegative() || in.FinalAmount.GreaterThan(in.OriginalAmount) {
		return ErrInvalidAmount
	}
	if in.PaymentType == "" {
		in.PaymentType = models.PaymentTypeNew
	}
	in.RefCreator = models.NormalizeCode(in.RefCreator)
	in.DiscountCode = models.NormalizeCode(in.DiscountCode)
	return nil
}

// Finalize writes the ledger row for a confirmed payment and applies its side effects.
// The unique order_id is the idempotency boundary: a second call for the same order,
// concurrent or not, returns the first row with Duplicate set and changes nothing.
func (e *Engine) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	db := e.db.WithContext(ctx)

	var existing models.PaymentAttribution
	err := db.Where("order_id = ?", in.OrderID).First(&existing).Error
	if err == nil {
		utils.LogInfo("Order %s already attributed, skipping", in.OrderID)
		metrics.RecordAttribution(in.Source, "duplicate", decimal.Zero)
		return resultFromRow(existing, true), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.WrapError(err, "check existing attribution")
	}

	now := e.Now()
	creator, discount, err := e.resolveCreator(ctx, in.RefCreator, in.DiscountCode, now)
	if err != nil {
		return nil, err
	}

	rate := Rate{Rate: decimal.Zero}
	var creatorID *uint
	if creator != nil {
		if rate, err = e.ResolveRate(ctx, creator, now); err != nil {
			return nil, err
		}
		id := creator.ID
		creatorID = &id
	}
	commission := in.FinalAmount.Mul(rate.Rate).Round(ledgerScale)

	row := models.PaymentAttribution{
		OrderID:                 in.OrderID,
		UserID:                  in.UserID,
		CreatorID:               creatorID,
		EnrollmentID:            in.EnrollmentID,
		OriginalAmount:          in.OriginalAmount,
		DiscountApplied:         in.OriginalAmount.Sub(in.FinalAmount),
		FinalAmount:             in.FinalAmount,
		CreatorCommissionRate:   rate.Rate,
		CreatorCommissionAmount: commission,
		PaymentMonth:            MonthBucket(now),
		Tier:                    in.Tier,
		PaymentType:             in.PaymentType,
		Source:                  in.Source,
		CreatedAt:               now,
	}
	if discount != nil {
		id := discount.ID
		row.DiscountCodeID = &id
	}

	tx := db.Begin()
	if tx.Error != nil {
		return nil, utils.WrapError(tx.Error, "begin attribution transaction")
	}

	if in.BeforeInsert != nil {
		enrollmentID, err := in.BeforeInsert(tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if enrollmentID != nil {
			row.EnrollmentID = enrollmentID
		}
	}

	if err := tx.Create(&row).Error; err != nil {
		tx.Rollback()
		if IsDuplicateKey(err) {
			utils.LogInfo("Concurrent attribution for order %s detected, returning existing row", in.OrderID)
			if err := db.Where("order_id = ?", in.OrderID).First(&existing).Error; err != nil {
				return nil, utils.WrapError(err, "reload existing attribution")
			}
			metrics.RecordAttribution(in.Source, "duplicate", decimal.Zero)
			return resultFromRow(existing, true), nil
		}
		return nil, utils.WrapError(err, "insert attribution")
	}

	if err := e.applySideEffects(ctx, tx, in, row, creator, discount); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, utils.WrapError(err, "commit attribution")
	}

	result := resultFromRow(row, false)
	result.TierLevel = rate.TierLevel
	e.afterFinalize(ctx, in, row, creator)
	return result, nil
}

// applySideEffects runs inside the attribution transaction, strictly after the ledger insert
func (e *Engine) applySideEffects(ctx context.Context, tx *gorm.DB, in FinalizeInput, row models.PaymentAttribution,
	creator *models.CreatorProfile, discount *models.DiscountCode) error {
	if creator != nil {
		// the monthly counter restarts when the payment opens a new month bucket
		if err := tx.Model(&models.CreatorProfile{}).Where("id = ?", creator.ID).Updates(map[string]interface{}{
			"lifetime_paid_users": gorm.Expr("lifetime_paid_users + ?", 1),
			"monthly_paid_users":  gorm.Expr("CASE WHEN monthly_bucket = ? THEN monthly_paid_users + 1 ELSE 1 END", row.PaymentMonth),
			"monthly_bucket":      row.PaymentMonth,
			"available_balance":   gorm.Expr("available_balance + ?", row.CreatorCommissionAmount),
		}).Error; err != nil {
			return utils.WrapError(err, "update creator balance")
		}

		first := models.UserCreatorAttribution{
			UserID:       in.UserID,
			CreatorID:    creator.ID,
			FirstOrderID: in.OrderID,
			CreatedAt:    row.CreatedAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&first).Error; err != nil {
			return utils.WrapError(err, "record user attribution")
		}
	}

	if discount != nil {
		if err := tx.Model(&models.DiscountCode{}).Where("id = ?", discount.ID).Updates(map[string]interface{}{
			"usage_count":      gorm.Expr("usage_count + ?", 1),
			"paid_conversions": gorm.Expr("paid_conversions + ?", 1),
		}).Error; err != nil {
			return utils.WrapError(err, "update discount code counters")
		}
	}

	if creator != nil && creator.CMOID != nil {
		if _, err := e.CreditCMO(ctx, tx, *creator.CMOID, row.FinalAmount, row.PaymentMonth); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) afterFinalize(ctx context.Context, in FinalizeInput, row models.PaymentAttribution, creator *models.CreatorProfile) {
	result := "unattributed"
	code := ""
	payload := map[string]interface{}{
		"order_id":     row.OrderID,
		"user_id":      row.UserID,
		"final_amount": row.FinalAmount.String(),
		"source":       row.Source,
	}
	if creator != nil {
		result = "created"
		code = creator.ReferralCode
		payload["creator_id"] = creator.ID
		payload["commission"] = row.CreatorCommissionAmount.String()
		payload["rate"] = row.CreatorCommissionRate.String()
	}
	utils.LogInfo("Attributed order %s (user %d) to creator %q, commission %s", row.OrderID, row.UserID, code, row.CreatorCommissionAmount)

	metrics.RecordAttribution(in.Source, result, row.CreatorCommissionAmount)
	e.publish(ctx, events.AttributionCreated, row.OrderID, payload)
	notifications.Send(e.notifier, notifications.SaleMessage(row.OrderID, row.FinalAmount, row.CreatorCommissionAmount, code))
}

// resolveCreator tries the referral code first, then a usable discount code owned by a creator.
// The returned discount is set whenever a usable code was presented, even if the referral code won.
func (e *Engine) resolveCreator(ctx context.Context, refCode, discountCode string, now time.Time) (*models.CreatorProfile, *models.DiscountCode, error) {
	db := e.db.WithContext(ctx)
	var creator *models.CreatorProfile

	if refCode != "" {
		var c models.CreatorProfile
		err := db.Where("UPPER(referral_code) = ? AND is_active = ?", refCode, true).First(&c).Error
		switch {
		case err == nil:
			creator = &c
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.LogDebug("Referral code %s did not match an active creator", refCode)
		default:
			return nil, nil, utils.WrapError(err, "lookup referral code")
		}
	}

	var discount *models.DiscountCode
	if discountCode != "" {
		var d models.DiscountCode
		err := db.Where("UPPER(code) = ?", discountCode).First(&d).Error
		switch {
		case err == nil && d.UsableAt(now):
			discount = &d
		case err == nil:
			utils.LogDebug("Discount code %s is not usable at %s", discountCode, now.Format(time.RFC3339))
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.LogDebug("Discount code %s not found", discountCode)
		default:
			return nil, nil, utils.WrapError(err, "lookup discount code")
		}
	}

	if creator == nil && discount != nil && discount.CreatorID != nil {
		var c models.CreatorProfile
		err := db.Where("id = ? AND is_active = ?", *discount.CreatorID, true).First(&c).Error
		switch {
		case err == nil:
			creator = &c
		case errors.Is(err, gorm.ErrRecordNotFound):
			utils.LogDebug("Discount code %s belongs to inactive or missing creator %d", discountCode, *discount.CreatorID)
		default:
			return nil, nil, utils.WrapError(err, "lookup discount code creator")
		}
	}
	return creator, discount, nil
}

// CreditCMO adds the flat override for one payment to the CMO's monthly payout row.
// It must run in the caller's transaction, after the ledger row exists.
func (e *Engine) CreditCMO(ctx context.Context, tx *gorm.DB, cmoID uint, paymentAmount decimal.Decimal, paymentMonth time.Time) (decimal.Decimal, error) {
	amount := paymentAmount.Mul(e.cfg.CMORate).Round(ledgerScale)
	payout := models.CMOPayout{
		CMOID:                cmoID,
		PayoutMonth:          MonthBucket(paymentMonth),
		TotalPaidUsers:       1,
		TotalCommission:      amount,
		BaseCommissionAmount: amount,
		BonusAmount:          decimal.Zero,
		Status:               models.PayoutStatusPending,
	}
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cmo_id"}, {Name: "payout_month"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_paid_users":       gorm.Expr("cmo_payouts.total_paid_users + ?", 1),
			"total_commission":       gorm.Expr("cmo_payouts.total_commission + ?", amount),
			"base_commission_amount": gorm.Expr("cmo_payouts.base_commission_amount + ?", amount),
			"updated_at":             e.Now(),
		}),
	}).Create(&payout).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("credit cmo %d: %w", cmoID, err)
	}
	return amount, nil
}
