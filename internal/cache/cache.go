// Package cache keeps an append-only history of fetched quotes and decides
// whether the latest one is still fresh.
package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Rajchodisetti/quote-engine/internal/adapters"
	"github.com/Rajchodisetti/quote-engine/internal/observ"
)

// Entry is one persisted quote observation. Entries are never updated.
type Entry struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Currency      string          `json:"currency"`
	ObservedAt    time.Time       `json:"observed_at"`
	Source        string          `json:"source"`
	WrittenAt     time.Time       `json:"written_at"`
}

// Store persists entries. QueryLatest returns the entry with the most
// recent WrittenAt for the symbol.
//
//go:generate mockgen -package=cache -destination=mock_store_test.go -source=cache.go Store
type Store interface {
	Append(ctx context.Context, e Entry) error
	QueryLatest(ctx context.Context, symbol string) (Entry, bool, error)
	Close() error
}

// QuoteCache applies the freshness policy on top of a Store. A nil store
// behaves as an always-empty cache.
type QuoteCache struct {
	store   Store
	backend string
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  observ.Logger
}

// Option configures a QuoteCache.
type Option func(*QuoteCache)

// WithFreshnessWindow sets how old a quote may be and still count as fresh.
func WithFreshnessWindow(d time.Duration) Option {
	return func(c *QuoteCache) { c.window = d }
}

// WithTimeout bounds every store call.
func WithTimeout(d time.Duration) Option {
	return func(c *QuoteCache) { c.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *QuoteCache) { c.now = now }
}

func WithLogger(l observ.Logger) Option {
	return func(c *QuoteCache) { c.logger = l }
}

// withBackend names the store in logs and metrics.
func withBackend(name string) Option {
	return func(c *QuoteCache) { c.backend = name }
}

// New wraps store with the default 3h window and 5s timeout.
func New(store Store, opts ...Option) *QuoteCache {
	c := &QuoteCache{
		store:   store,
		backend: "custom",
		window:  3 * time.Hour,
		timeout: 5 * time.Second,
		now:     time.Now,
		logger:  observ.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadFreshest returns the latest quote if it is younger than the window.
func (c *QuoteCache) ReadFreshest(ctx context.Context, symbol string) (*adapters.Quote, bool) {
	e, ok := c.latest(ctx, symbol)
	if !ok {
		return nil, false
	}
	age := c.age(e)
	if age >= c.window {
		c.logger.Log(observ.LevelInfo, "quote_cache_miss", map[string]any{
			"symbol":    symbol,
			"reason":    "expired",
			"age_hours": age.Hours(),
		})
		observ.IncCounter("quote_cache_miss_total", map[string]string{"reason": "expired"})
		return nil, false
	}

	q := c.toQuote(e, age)
	q.Source = adapters.SourceCache
	c.logger.Log(observ.LevelInfo, "quote_cache_hit", map[string]any{
		"symbol":    symbol,
		"origin":    e.Source,
		"age_hours": q.AgeHours,
	})
	observ.IncCounter("quote_cache_hit_total", map[string]string{"backend": c.backend})
	return q, true
}

// ReadStale returns the latest quote regardless of age.
func (c *QuoteCache) ReadStale(ctx context.Context, symbol string) (*adapters.Quote, bool) {
	e, ok := c.latest(ctx, symbol)
	if !ok {
		return nil, false
	}
	q := c.toQuote(e, c.age(e))
	q.Source = adapters.StaleSource(e.Source)
	return q, true
}

// Write appends a freshly fetched quote. Failures are logged and dropped.
func (c *QuoteCache) Write(ctx context.Context, symbol string, q *adapters.Quote) {
	if c.store == nil || q == nil {
		return
	}
	e := Entry{
		Symbol:        symbol,
		Price:         q.Price,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Currency:      q.Currency,
		ObservedAt:    q.ObservedAt.UTC(),
		Source:        q.Source,
		WrittenAt:     c.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Append(ctx, e); err != nil {
		c.logger.Log(observ.LevelWarn, "quote_cache_write_failed", map[string]any{
			"symbol":  symbol,
			"backend": c.backend,
			"error":   err.Error(),
		})
		observ.IncCounter("quote_cache_error_total", map[string]string{"op": "write", "backend": c.backend})
		return
	}
	c.logger.Log(observ.LevelInfo, "quote_cache_write", map[string]any{
		"symbol": symbol,
		"source": e.Source,
		"price":  e.Price.String(),
	})
	observ.IncCounter("quote_cache_write_total", map[string]string{"backend": c.backend})
}

// Close releases the underlying store.
func (c *QuoteCache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *QuoteCache) latest(ctx context.Context, symbol string) (Entry, bool) {
	if c.store == nil {
		return Entry{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	e, ok, err := c.store.QueryLatest(ctx, symbol)
	if err != nil {
		c.logger.Log(observ.LevelWarn, "quote_cache_read_failed", map[string]any{
			"symbol":  symbol,
			"backend": c.backend,
			"error":   err.Error(),
		})
		observ.IncCounter("quote_cache_error_total", map[string]string{"op": "read", "backend": c.backend})
		return Entry{}, false
	}
	if !ok {
		c.logger.Log(observ.LevelInfo, "quote_cache_miss", map[string]any{
			"symbol": symbol,
			"reason": "empty",
		})
		observ.IncCounter("quote_cache_miss_total", map[string]string{"reason": "empty"})
		return Entry{}, false
	}
	return e, true
}

// age is measured from the write, which follows the fetch. A vendor's
// last-trade time can be days old outside market hours.
func (c *QuoteCache) age(e Entry) time.Duration {
	age := c.now().Sub(e.WrittenAt)
	if age < 0 {
		return 0
	}
	return age
}

func (c *QuoteCache) toQuote(e Entry, age time.Duration) *adapters.Quote {
	return &adapters.Quote{
		Symbol:        e.Symbol,
		Price:         e.Price,
		Change:        e.Change,
		ChangePercent: e.ChangePercent,
		Currency:      e.Currency,
		ObservedAt:    e.ObservedAt,
		Origin:        e.Source,
		Cached:        true,
		AgeHours:      age.Hours(),
	}
}
