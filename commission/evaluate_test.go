package commission

import (
	"context"
	"testing"
	"time"

	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dayLen = 24 * time.Hour

func TestPromotionGrantsProtectionWindow(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "PROMO", nil)
	ctx := context.Background()

	// 25 sales twenty days before day 0 qualify for tier 2 on day 0 but fall out of the window by day 15
	seedAttributions(t, f.db, "early", creator.ID, 25, day0.Add(-20*dayLen))

	report, err := f.engine.EvaluateTiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Promoted)
	assert.Equal(t, 0, report.Failed)

	promoted := f.creator(t, creator.ID)
	assert.Equal(t, 2, promoted.CurrentTierLevel)
	require.NotNil(t, promoted.TierProtectionUntil)
	assert.True(t, promoted.TierProtectionUntil.Equal(day0.Add(30*dayLen)))
	assert.Equal(t, int64(25), promoted.RollingPaidUsers)

	evts := f.events.OfType(events.TierPromoted)
	require.Len(t, evts, 1)
	assert.Equal(t, 2, evts[0].Payload["to_level"])

	f.clock.Advance(15 * dayLen)
	rate, err := f.engine.ResolveRate(ctx, &promoted, f.clock.Now())
	require.NoError(t, err)
	assert.True(t, rate.Protected)

	in := finalizeInput("ORD-DAY15", 50, "1000")
	in.RefCreator = "PROMO"
	res, err := f.engine.Finalize(ctx, in)
	require.NoError(t, err)
	assertDecimal(t, "0.12", res.Rate)
	assertDecimal(t, "120", res.Commission)

	report, err = f.engine.EvaluateTiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Evaluated)
}

func TestDemotionGrantsNoProtection(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "DEMO", nil)
	require.NoError(t, f.db.Model(&models.CreatorProfile{}).Where("id = ?", creator.ID).
		Update("current_tier_level", 3).Error)
	seedAttributions(t, f.db, "few", creator.ID, 3, day0.Add(-dayLen))

	report, err := f.engine.EvaluateTiers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Demoted)

	demoted := f.creator(t, creator.ID)
	assert.Equal(t, 1, demoted.CurrentTierLevel)
	assert.Nil(t, demoted.TierProtectionUntil)
	assert.Len(t, f.events.OfType(events.TierDemoted), 1)
}

func TestUnchangedTierEmitsNoEvent(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "SAME", nil)
	seedAttributions(t, f.db, "s", creator.ID, 4, day0.Add(-dayLen))

	report, err := f.engine.EvaluateTiers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unchanged)
	assert.Empty(t, f.events.Events)
	assert.Equal(t, int64(4), f.creator(t, creator.ID).RollingPaidUsers)
}

func TestEvaluateSkipsInactiveCreators(t *testing.T) {
	f := newFixture(t, true)
	creator := testutil.CreateCreator(t, f.db, "GONE", nil)
	require.NoError(t, f.db.Model(&models.CreatorProfile{}).Where("id = ?", creator.ID).Update("is_active", false).Error)
	seedAttributions(t, f.db, "g", creator.ID, 30, day0.Add(-dayLen))

	report, err := f.engine.EvaluateTiers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Evaluated)
	assert.Equal(t, 1, f.creator(t, creator.ID).CurrentTierLevel)
}

func TestEvaluateContinuesAfterCreatorFailure(t *testing.T) {
	f := newFixture(t, true)
	a := testutil.CreateCreator(t, f.db, "FAILA", nil)
	b := testutil.CreateCreator(t, f.db, "OKB", nil)
	seedAttributions(t, f.db, "b", b.ID, 25, day0.Add(-dayLen))

	report := &EvaluationReport{}
	tiers, err := f.engine.loadTiers(context.Background(), f.db)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	f.engine.evaluateCreator(cancelled, &a, tiers, day0, report)
	f.engine.evaluateCreator(context.Background(), &b, tiers, day0, report)

	assert.Equal(t, 1, report.Failed)
	assert.Len(t, report.Errors, 1)
	assert.Equal(t, 1, report.Promoted)
	assert.Equal(t, 2, f.creator(t, b.ID).CurrentTierLevel)
}
