package commission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculateMatchesLiveUpdates(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	cmo := testutil.CreateCMO(t, f.db)
	alice := testutil.CreateCreator(t, f.db, "ALICE", &cmo.ID)
	bob := testutil.CreateCreator(t, f.db, "BOB", nil)

	amounts := []string{"1000", "499.99", "250", "1200.50"}
	for i, amount := range amounts {
		in := finalizeInput(fmt.Sprintf("ORD-A%d", i), uint(100+i), amount)
		in.RefCreator = "alice"
		_, err := f.engine.Finalize(ctx, in)
		require.NoError(t, err)
	}
	in := finalizeInput("ORD-B0", 200, "800")
	in.RefCreator = "bob"
	_, err := f.engine.Finalize(ctx, in)
	require.NoError(t, err)
	_, err = f.engine.Finalize(ctx, finalizeInput("ORD-P0", 300, "999"))
	require.NoError(t, err)

	liveAlice := f.creator(t, alice.ID)
	liveBob := f.creator(t, bob.ID)
	var livePayout models.CMOPayout
	require.NoError(t, f.db.Where("cmo_id = ?", cmo.ID).First(&livePayout).Error)

	// corrupt derived state
	require.NoError(t, f.db.Model(&models.CreatorProfile{}).Where("1 = 1").Updates(map[string]interface{}{
		"available_balance":   decimal.NewFromInt(999),
		"lifetime_paid_users": 42,
		"monthly_paid_users":  7,
	}).Error)
	require.NoError(t, f.db.Model(&models.CMOPayout{}).Where("1 = 1").Updates(map[string]interface{}{
		"total_paid_users": 99,
		"total_commission": decimal.NewFromInt(1),
	}).Error)

	report, err := f.engine.RecalculateStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), report.Attributions)
	assert.Equal(t, 2, report.Creators)
	assert.Equal(t, 1, report.CMOPayouts)

	gotAlice := f.creator(t, alice.ID)
	gotBob := f.creator(t, bob.ID)
	assertDecimal(t, liveAlice.AvailableBalance.Round(4).String(), gotAlice.AvailableBalance)
	assertDecimal(t, liveBob.AvailableBalance.Round(4).String(), gotBob.AvailableBalance)
	assert.Equal(t, liveAlice.LifetimePaidUsers, gotAlice.LifetimePaidUsers)
	assert.Equal(t, liveAlice.MonthlyPaidUsers, gotAlice.MonthlyPaidUsers)
	assert.Equal(t, int64(4), gotAlice.LifetimePaidUsers)

	var payout models.CMOPayout
	require.NoError(t, f.db.Where("cmo_id = ?", cmo.ID).First(&payout).Error)
	assert.Equal(t, livePayout.TotalPaidUsers, payout.TotalPaidUsers)
	assertDecimal(t, livePayout.TotalCommission.Round(4).String(), payout.TotalCommission)
	assertDecimal(t, livePayout.BaseCommissionAmount.Round(4).String(), payout.BaseCommissionAmount)
}

func TestRecalculateBalanceIsCommissionMinusWithdrawn(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "WD", nil)
	broke := testutil.CreateCreator(t, f.db, "BROKE", nil)

	testutil.CreateAttribution(t, f.db, "R1", creator.ID, dec("1000"), dec("0.08"), day0.Add(-time.Hour))
	testutil.CreateAttribution(t, f.db, "R2", creator.ID, dec("500"), dec("0.12"), day0.Add(-40*24*time.Hour))
	testutil.CreateAttribution(t, f.db, "R3", broke.ID, dec("100"), dec("0.08"), day0.Add(-time.Hour))

	require.NoError(t, f.db.Model(&models.CreatorProfile{}).Where("id = ?", creator.ID).
		Update("total_withdrawn", dec("30")).Error)
	require.NoError(t, f.db.Model(&models.CreatorProfile{}).Where("id = ?", broke.ID).
		Update("total_withdrawn", dec("50")).Error)

	_, err := f.engine.RecalculateStats(context.Background())
	require.NoError(t, err)

	got := f.creator(t, creator.ID)
	assertDecimal(t, "110", got.AvailableBalance) // 80 + 60 - 30
	assert.Equal(t, int64(2), got.LifetimePaidUsers)
	assert.Equal(t, int64(1), got.MonthlyPaidUsers, "last month's row is outside the current bucket")

	assertDecimal(t, "0", f.creator(t, broke.ID).AvailableBalance)
	assertDecimal(t, "30", got.TotalWithdrawn)
}

func TestRecalculateKeepsCMOBonusAndStatus(t *testing.T) {
	f := newFixture(t, true)
	cmo := testutil.CreateCMO(t, f.db)
	creator := testutil.CreateCreator(t, f.db, "BONUS", &cmo.ID)

	in := finalizeInput("ORD-BONUS", 1, "1000")
	in.RefCreator = "BONUS"
	_, err := f.engine.Finalize(context.Background(), in)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(&models.CMOPayout{}).Where("cmo_id = ?", cmo.ID).Updates(map[string]interface{}{
		"bonus_amount":     dec("10"),
		"total_commission": dec("60"),
		"status":           models.PayoutStatusPaid,
	}).Error)

	_, err = f.engine.RecalculateStats(context.Background())
	require.NoError(t, err)

	var payout models.CMOPayout
	require.NoError(t, f.db.Where("cmo_id = ?", cmo.ID).First(&payout).Error)
	assertDecimal(t, "50", payout.BaseCommissionAmount)
	assertDecimal(t, "10", payout.BonusAmount)
	assertDecimal(t, "60", payout.TotalCommission)
	assert.Equal(t, models.PayoutStatusPaid, payout.Status)
	assert.Equal(t, int64(1), payout.TotalPaidUsers)
	assertDecimal(t, "80", f.creator(t, creator.ID).AvailableBalance)
}

func TestRecalculateEmptyLedger(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "EMPTY", nil)
	require.NoError(t, f.db.Model(&models.CreatorProfile{}).Where("id = ?", creator.ID).
		Update("available_balance", dec("15")).Error)

	report, err := f.engine.RecalculateStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Attributions)
	assertDecimal(t, "0", f.creator(t, creator.ID).AvailableBalance)
}

func TestMonthlyCounterRestartsAtMonthBoundary(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	creator := testutil.CreateCreator(t, f.db, "ROLL", nil)

	in := finalizeInput("ORD-MAR", 10, "1000")
	in.RefCreator = "ROLL"
	_, err := f.engine.Finalize(ctx, in)
	require.NoError(t, err)
	march := f.creator(t, creator.ID)
	assert.Equal(t, int64(1), march.MonthlyPaidUsers)

	f.clock.Advance(31 * 24 * time.Hour)
	april := MonthBucket(f.clock.Now())
	assert.Zero(t, march.MonthlyCount(april), "a stale counter reads as zero")

	in = finalizeInput("ORD-APR", 11, "1000")
	in.RefCreator = "ROLL"
	_, err = f.engine.Finalize(ctx, in)
	require.NoError(t, err)

	live := f.creator(t, creator.ID)
	assert.Equal(t, int64(1), live.MonthlyPaidUsers)
	assert.Equal(t, int64(2), live.LifetimePaidUsers)
	require.NotNil(t, live.MonthlyBucket)
	assert.True(t, live.MonthlyBucket.Equal(april))

	_, err = f.engine.RecalculateStats(ctx)
	require.NoError(t, err)
	rebuilt := f.creator(t, creator.ID)
	assert.Equal(t, live.MonthlyPaidUsers, rebuilt.MonthlyPaidUsers)
	assert.Equal(t, live.MonthlyCount(april), rebuilt.MonthlyCount(april))
}

func TestEvaluateRollsStaleMonthlyCounters(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	creator := testutil.CreateCreator(t, f.db, "IDLE", nil)

	in := finalizeInput("ORD-IDLE", 12, "500")
	in.RefCreator = "IDLE"
	_, err := f.engine.Finalize(ctx, in)
	require.NoError(t, err)

	f.clock.Advance(31 * 24 * time.Hour)
	_, err = f.engine.EvaluateTiers(ctx)
	require.NoError(t, err)

	got := f.creator(t, creator.ID)
	assert.Zero(t, got.MonthlyPaidUsers)
	require.NotNil(t, got.MonthlyBucket)
	assert.True(t, got.MonthlyBucket.Equal(MonthBucket(f.clock.Now())))
	assert.Equal(t, int64(1), got.LifetimePaidUsers)
}

func TestFinalizeCommissionMatchesStoredLedgerValue(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	testutil.CreateCreator(t, f.db, "ROUND", nil)

	// 312.4969 x 0.08 = 24.999752
	in := finalizeInput("ORD-ROUND", 13, "312.4969")
	in.RefCreator = "ROUND"
	res, err := f.engine.Finalize(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "24.9998", res.Commission.String())

	var row models.PaymentAttribution
	require.NoError(t, f.db.Where("order_id = ?", "ORD-ROUND").First(&row).Error)
	assert.True(t, row.CreatorCommissionAmount.Equal(res.Commission), "stored %s", row.CreatorCommissionAmount)
}
