// Package commission turns confirmed payments into ledger rows and keeps creator and CMO
// balances derived from that ledger.
package commission

import (
	"context"
	"errors"
	"time"

	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrInvalidOrderID = errors.New("order id is required")
	ErrInvalidUser    = errors.New("user id is required")
	ErrInvalidAmount  = errors.New("final amount must not be negative or exceed the original amount")
)

// Config holds the rates and windows of the commission rules
type Config struct {
	CMORate              decimal.Decimal
	ProtectedRate        decimal.Decimal
	DefaultHighRate      decimal.Decimal
	DefaultLowRate       decimal.Decimal
	DefaultHighThreshold int64
	Window               time.Duration
	ProtectionPeriod     time.Duration
	BatchSize            int
}

const (
	defaultWindow    = 30 * 24 * time.Hour
	protectedTier    = 2
	defaultBatchSize = 500
	// ledgerScale matches the numeric(14,4) commission columns
	ledgerScale = 4
)

// DefaultConfig returns the production rates
func DefaultConfig() Config {
	return Config{
		CMORate:              decimal.RequireFromString("0.05"),
		ProtectedRate:        decimal.RequireFromString("0.12"),
		DefaultHighRate:      decimal.RequireFromString("0.12"),
		DefaultLowRate:       decimal.RequireFromString("0.08"),
		DefaultHighThreshold: 100,
		Window:               defaultWindow,
		ProtectionPeriod:     defaultWindow,
		BatchSize:            defaultBatchSize,
	}
}

// ConfigFrom maps application configuration onto the engine's rules
func ConfigFrom(cfg *config.Config) Config {
	c := DefaultConfig()
	c.CMORate = cfg.CMOCommissionRate
	c.ProtectedRate = cfg.ProtectedRate
	c.DefaultHighRate = cfg.DefaultHighRate
	c.DefaultLowRate = cfg.DefaultLowRate
	if cfg.DefaultHighThreshold > 0 {
		c.DefaultHighThreshold = cfg.DefaultHighThreshold
	}
	if cfg.RecalculateBatchSize > 0 {
		c.BatchSize = cfg.RecalculateBatchSize
	}
	return c
}

// Engine runs attribution, tier evaluation and recalculation against one database
type Engine struct {
	db        *gorm.DB
	cfg       Config
	now       func() time.Time
	notifier  notifications.Notifier
	publisher events.Publisher
}

type Option func(*Engine)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithNotifier(n notifications.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

func NewEngine(db *gorm.DB, cfg Config, opts ...Option) *Engine {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.ProtectionPeriod <= 0 {
		cfg.ProtectionPeriod = defaultWindow
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	e := &Engine{
		db:        db,
		cfg:       cfg,
		now:       time.Now,
		notifier:  notifications.NopNotifier{},
		publisher: events.LogPublisher{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine clock in UTC
func (e *Engine) Now() time.Time {
	return e.now().UTC()
}

// ProtectionEnd is when a protection window granted at t closes
func (e *Engine) ProtectionEnd(t time.Time) time.Time {
	return t.UTC().Add(e.cfg.ProtectionPeriod)
}

// MonthBucket truncates t to the first instant of its calendar month in UTC
func MonthBucket(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func (e *Engine) publish(ctx context.Context, eventType, key string, payload map[string]interface{}) {
	evt := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: e.Now(),
		Payload:    payload,
	}
	if err := e.publisher.Publish(ctx, evt); err != nil {
		utils.LogError("Failed to publish %s event for %s: %v", eventType, key, err)
	}
}
