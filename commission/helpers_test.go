package commission

import (
	"strconv"
	"testing"
	"time"

	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/models"
	"github.com/Govind-619/StudyHub/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var day0 = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	db     *gorm.DB
	clock  *testClock
	events *events.RecordingPublisher
	engine *Engine
}

func newFixture(t *testing.T, seedTiers bool) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	if seedTiers {
		testutil.SeedTiers(t, db)
	}
	f := &fixture{
		db:     db,
		clock:  &testClock{t: day0},
		events: &events.RecordingPublisher{},
	}
	f.engine = NewEngine(db, DefaultConfig(), WithClock(f.clock.Now), WithPublisher(f.events))
	return f
}

func (f *fixture) creator(t *testing.T, id uint) models.CreatorProfile {
	t.Helper()
	var c models.CreatorProfile
	require.NoError(t, f.db.First(&c, id).Error)
	return c
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got.Round(4)), "want %s, got %s", want, got.String())
}

// seedAttributions writes n ledger rows for the creator at the given time
func seedAttributions(t *testing.T, db *gorm.DB, prefix string, creatorID uint, n int, at time.Time) {
	t.Helper()
	for i := 0; i < n; i++ {
		testutil.CreateAttribution(t, db, prefix+"-"+strconv.Itoa(i), creatorID, dec("100"), dec("0.08"), at)
	}
}
