package commission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func finalizeInput(orderID string, userID uint, final string) FinalizeInput {
	return FinalizeInput{
		OrderID:        orderID,
		UserID:         userID,
		FinalAmount:    dec(final),
		OriginalAmount: dec(final),
		PaymentType:    models.PaymentTypeNew,
		Tier:           "gold",
		Source:         models.SourceWebhook,
	}
}

func TestFinalizeAttributesAndIsIdempotent(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "ABC123", nil)
	user := testutil.CreateUser(t, f.db, models.RoleStudent)
	ctx := context.Background()

	in := finalizeInput("ORD-1", user.ID, "1000")
	in.RefCreator = "abc123"

	res, err := f.engine.Finalize(ctx, in)
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	require.NotNil(t, res.CreatorID)
	assert.Equal(t, creator.ID, *res.CreatorID)
	assertDecimal(t, "80", res.Commission)
	assertDecimal(t, "0.08", res.Rate)

	after := f.creator(t, creator.ID)
	assertDecimal(t, "80", after.AvailableBalance)
	assert.Equal(t, int64(1), after.LifetimePaidUsers)
	assert.Equal(t, int64(1), after.MonthlyPaidUsers)

	again, err := f.engine.Finalize(ctx, in)
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, res.AttributionID, again.AttributionID)
	assertDecimal(t, "80", again.Commission)

	final := f.creator(t, creator.ID)
	assertDecimal(t, "80", final.AvailableBalance)
	assert.Equal(t, int64(1), final.LifetimePaidUsers)

	var rows int64
	f.db.Model(&models.PaymentAttribution{}).Where("order_id = ?", "ORD-1").Count(&rows)
	assert.Equal(t, int64(1), rows)

	var first models.UserCreatorAttribution
	require.NoError(t, f.db.Where("user_id = ?", user.ID).First(&first).Error)
	assert.Equal(t, creator.ID, first.CreatorID)
	assert.Equal(t, "ORD-1", first.FirstOrderID)

	assert.Len(t, f.events.OfType(events.AttributionCreated), 1)
}

func TestFinalizeConcurrentDuplicates(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "RACE", nil)

	const workers = 6
	var wg sync.WaitGroup
	results := make([]*FinalizeResult, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := finalizeInput("ORD-RACE", 7, "500")
			in.RefCreator = "RACE"
			results[i], errs[i] = f.engine.Finalize(context.Background(), in)
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		if !results[i].Duplicate {
			created++
		}
	}
	assert.Equal(t, 1, created)
	assertDecimal(t, "40", f.creator(t, creator.ID).AvailableBalance)
	assert.Equal(t, int64(1), f.creator(t, creator.ID).LifetimePaidUsers)
}

func TestFinalizeWithoutReferralIsPlatformRevenue(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "SOMEONE", nil)

	for _, in := range []FinalizeInput{
		finalizeInput("ORD-NR-1", 3, "1000"),
		func() FinalizeInput {
			in := finalizeInput("ORD-NR-2", 3, "25000")
			in.RefCreator = "NOPE"
			in.DiscountCode = "MISSING"
			return in
		}(),
	} {
		res, err := f.engine.Finalize(context.Background(), in)
		require.NoError(t, err)
		assert.Nil(t, res.CreatorID)
		assert.True(t, res.Commission.IsZero())
	}

	assertDecimal(t, "0", f.creator(t, creator.ID).AvailableBalance)
	var count int64
	f.db.Model(&models.UserCreatorAttribution{}).Count(&count)
	assert.Zero(t, count)
}

func TestFinalizeCommissionUsesFinalAmount(t *testing.T) {
	f := newFixture(t, true)
	testutil.CreateCreator(t, f.db, "DISC", nil)

	in := finalizeInput("ORD-FA", 4, "1000")
	in.OriginalAmount = dec("1500")
	in.RefCreator = "disc"

	res, err := f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)
	assertDecimal(t, "80", res.Commission)

	var row models.PaymentAttribution
	require.NoError(t, f.db.Where("order_id = ?", "ORD-FA").First(&row).Error)
	assertDecimal(t, "500", row.DiscountApplied)
	assertDecimal(t, "1500", row.OriginalAmount)
	assertDecimal(t, "1000", row.FinalAmount)
	assert.True(t, row.PaymentMonth.Equal(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))
}

func TestFinalizeAttributesThroughDiscountCode(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "OWNER", nil)
	code := models.DiscountCode{
		Code:      "save10",
		CreatorID: &creator.ID,
		Type:      models.DiscountTypePercent,
		Value:     dec("10"),
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(&code).Error)

	in := finalizeInput("ORD-DC", 5, "900")
	in.OriginalAmount = dec("1000")
	in.DiscountCode = "Save10"

	res, err := f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, res.CreatorID)
	assert.Equal(t, creator.ID, *res.CreatorID)
	assertDecimal(t, "72", res.Commission)

	var stored models.DiscountCode
	require.NoError(t, f.db.First(&stored, code.ID).Error)
	assert.Equal(t, 1, stored.UsageCount)
	assert.Equal(t, 1, stored.PaidConversions)
}

func TestFinalizeIgnoresExpiredDiscountCode(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "EXPOWNER", nil)
	expired := day0.Add(-time.Hour)
	require.NoError(t, f.db.Create(&models.DiscountCode{
		Code: "OLD", CreatorID: &creator.ID, Type: models.DiscountTypeFlat,
		Value: dec("100"), Expiry: &expired, IsActive: true,
	}).Error)

	in := finalizeInput("ORD-EXP", 5, "900")
	in.DiscountCode = "OLD"
	res, err := f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)
	assert.Nil(t, res.CreatorID)
}

func TestFinalizeReferralWinsOverDiscountCreator(t *testing.T) {
	f := newFixture(t, true)
	referrer := testutil.CreateCreator(t, f.db, "REFWIN", nil)
	owner := testutil.CreateCreator(t, f.db, "CODEOWNER", nil)
	require.NoError(t, f.db.Create(&models.DiscountCode{
		Code: "BOTH", CreatorID: &owner.ID, Type: models.DiscountTypeFlat, Value: dec("50"), IsActive: true,
	}).Error)

	in := finalizeInput("ORD-BOTH", 6, "950")
	in.OriginalAmount = dec("1000")
	in.RefCreator = "refwin"
	in.DiscountCode = "both"
	res, err := f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, res.CreatorID)
	assert.Equal(t, referrer.ID, *res.CreatorID)
	assertDecimal(t, "0", f.creator(t, owner.ID).AvailableBalance)
}

func TestFinalizeFirstAttributorSticks(t *testing.T) {
	f := newFixture(t, true)
	first := testutil.CreateCreator(t, f.db, "FIRST", nil)
	testutil.CreateCreator(t, f.db, "SECOND", nil)

	in := finalizeInput("ORD-S1", 9, "100")
	in.RefCreator = "FIRST"
	_, err := f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)

	in = finalizeInput("ORD-S2", 9, "100")
	in.RefCreator = "SECOND"
	_, err = f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)

	var attr models.UserCreatorAttribution
	require.NoError(t, f.db.Where("user_id = ?", 9).First(&attr).Error)
	assert.Equal(t, first.ID, attr.CreatorID)
}

func TestFinalizeValidation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.engine.Finalize(ctx, finalizeInput(" ", 1, "100"))
	assert.ErrorIs(t, err, ErrInvalidOrderID)

	_, err = f.engine.Finalize(ctx, finalizeInput("ORD-V", 0, "100"))
	assert.ErrorIs(t, err, ErrInvalidUser)

	in := finalizeInput("ORD-V", 1, "200")
	in.OriginalAmount = dec("100")
	_, err = f.engine.Finalize(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.engine.Finalize(ctx, finalizeInput("ORD-V", 1, "-1"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFinalizeCascadesToCMO(t *testing.T) {
	f := newFixture(t, true)
	cmo := testutil.CreateCMO(t, f.db)
	testutil.CreateCreator(t, f.db, "UNDERCMO", &cmo.ID)

	for i, amount := range []string{"1000", "500"} {
		in := finalizeInput("ORD-CMO-"+amount, uint(20+i), amount)
		in.RefCreator = "UNDERCMO"
		_, err := f.engine.Finalize(context.Background(), in)
		require.NoError(t, err)
	}

	var payouts []models.CMOPayout
	require.NoError(t, f.db.Where("cmo_id = ?", cmo.ID).Find(&payouts).Error)
	require.Len(t, payouts, 1)
	assert.Equal(t, int64(2), payouts[0].TotalPaidUsers)
	assertDecimal(t, "75", payouts[0].TotalCommission)
	assertDecimal(t, "75", payouts[0].BaseCommissionAmount)
	assert.Equal(t, models.PayoutStatusPending, payouts[0].Status)
	assert.True(t, payouts[0].PayoutMonth.Equal(MonthBucket(day0)))

	f.clock.Advance(31 * 24 * time.Hour)
	in := finalizeInput("ORD-CMO-APR", 30, "200")
	in.RefCreator = "UNDERCMO"
	_, err := f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)

	var count int64
	f.db.Model(&models.CMOPayout{}).Where("cmo_id = ?", cmo.ID).Count(&count)
	assert.Equal(t, int64(2), count, "a new month opens a new payout row")
}

func TestFinalizeNoCMOWithoutCreator(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.engine.Finalize(context.Background(), finalizeInput("ORD-NC", 1, "100"))
	require.NoError(t, err)

	var count int64
	f.db.Model(&models.CMOPayout{}).Count(&count)
	assert.Zero(t, count)
}

func TestIsDuplicateKey(t *testing.T) {
	assert.False(t, IsDuplicateKey(nil))
	assert.False(t, IsDuplicateKey(assert.AnError))
	assert.True(t, IsDuplicateKey(errString("UNIQUE constraint failed: payment_attributions.order_id")))
	assert.True(t, IsDuplicateKey(errString(`ERROR: duplicate key value violates unique constraint "idx_payment_attributions_order_id"`)))
}

type errString string

func (e errString) Error() string { return string(e) }

func TestMonthBucket(t *testing.T) {
	in := time.Date(2026, time.December, 31, 23, 59, 59, 0, time.FixedZone("LKT", 5*3600+1800))
	assert.Equal(t, time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), MonthBucket(in))
}

func TestFinalizeBeforeInsertRunsOncePerOrder(t *testing.T) {
	f := newFixture(t, true)
	testutil.CreateCreator(t, f.db, "HOOK", nil)

	var calls int64
	activate := func(tx *gorm.DB) (*uint, error) {
		atomic.AddInt64(&calls, 1)
		enrollment := models.Enrollment{UserID: 8, Tier: "gold", IsActive: true}
		if err := tx.Create(&enrollment).Error; err != nil {
			return nil, err
		}
		return &enrollment.ID, nil
	}

	const workers = 6
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := finalizeInput("ORD-HOOK", 8, "500")
			in.RefCreator = "HOOK"
			in.BeforeInsert = activate
			_, err := f.engine.Finalize(context.Background(), in)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var enrollments int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).Where("user_id = ?", 8).Count(&enrollments).Error)
	assert.Equal(t, int64(1), enrollments, "losing writers roll back their enrollment")

	var row models.PaymentAttribution
	require.NoError(t, f.db.Where("order_id = ?", "ORD-HOOK").First(&row).Error)
	require.NotNil(t, row.EnrollmentID)

	in := finalizeInput("ORD-HOOK", 8, "500")
	in.BeforeInsert = activate
	before := atomic.LoadInt64(&calls)
	res, err := f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, before, atomic.LoadInt64(&calls), "a known order skips the hook")
	require.NotNil(t, res.EnrollmentID)
	assert.Equal(t, *row.EnrollmentID, *res.EnrollmentID)
}

func TestFinalizeBeforeInsertErrorWritesNothing(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "FAIL", nil)

	in := finalizeInput("ORD-FAIL", 9, "500")
	in.RefCreator = "FAIL"
	in.BeforeInsert = func(tx *gorm.DB) (*uint, error) {
		require.NoError(t, tx.Create(&models.Enrollment{UserID: 9, Tier: "gold", IsActive: true}).Error)
		return nil, errors.New("enrollment refused")
	}
	_, err := f.engine.Finalize(context.Background(), in)
	require.Error(t, err)

	var n int64
	require.NoError(t, f.db.Model(&models.Enrollment{}).Where("user_id = ?", 9).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, f.db.Model(&models.PaymentAttribution{}).Where("order_id = ?", "ORD-FAIL").Count(&n).Error)
	assert.Zero(t, n)
	assert.Zero(t, f.creator(t, creator.ID).LifetimePaidUsers)
}
