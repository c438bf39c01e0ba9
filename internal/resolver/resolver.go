// Package resolver turns a ticker into a quote by walking the fallback
// tiers: fresh cache, live providers, stale cache, demo data.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rajchodisetti/quote-engine/internal/adapters"
	"github.com/Rajchodisetti/quote-engine/internal/observ"
)

var (
	// ErrInvalidSymbol is returned for empty or malformed tickers.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNoQuote is returned when every tier is exhausted, which can only
	// happen with the demo tier disabled.
	ErrNoQuote = errors.New("no quote available")
)

// Cache is the quote cache as the resolver sees it.
type Cache interface {
	ReadFreshest(ctx context.Context, symbol string) (*adapters.Quote, bool)
	ReadStale(ctx context.Context, symbol string) (*adapters.Quote, bool)
	Write(ctx context.Context, symbol string, q *adapters.Quote)
}

// Resolver is safe for concurrent use.
type Resolver struct {
	cache       Cache
	providers   []adapters.Provider
	demo        *adapters.DemoGenerator
	pacing      time.Duration
	concurrency int
	now         func() time.Time
	logger      observ.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDemo enables the demo tier. Without it exhaustion yields ErrNoQuote.
func WithDemo(g *adapters.DemoGenerator) Option {
	return func(r *Resolver) { r.demo = g }
}

// WithPacing sets the minimum spacing between live fetches in a batch.
func WithPacing(d time.Duration) Option {
	return func(r *Resolver) { r.pacing = d }
}

// WithConcurrency bounds how many symbols a batch resolves at once.
func WithConcurrency(n int) Option {
	return func(r *Resolver) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

func WithLogger(l observ.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a resolver over cache and the ordered provider chain.
func New(cache Cache, providers []adapters.Provider, opts ...Option) *Resolver {
	r := &Resolver{
		cache:       cache,
		providers:   providers,
		pacing:      100 * time.Millisecond,
		concurrency: 1,
		now:         time.Now,
		logger:      observ.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the best available quote for symbol. forceRefresh skips
// the fresh-cache read but still falls back to stale data.
func (r *Resolver) Resolve(ctx context.Context, symbol string, forceRefresh bool) (*adapters.Quote, error) {
	return r.resolve(ctx, symbol, forceRefresh, nil)
}

// resolve runs the tiers. pace, when set, is awaited before the first
// provider call.
func (r *Resolver) resolve(ctx context.Context, raw string, forceRefresh bool, pace func(context.Context) error) (*adapters.Quote, error) {
	symbol := adapters.NormalizeSymbol(raw)
	if !adapters.ValidSymbol(symbol) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}

	if !forceRefresh {
		if q, ok := r.cache.ReadFreshest(ctx, symbol); ok {
			r.count("cache")
			return q, nil
		}
	}

	if len(r.providers) > 0 && pace != nil {
		if err := pace(ctx); err != nil {
			return nil, fmt.Errorf("resolve %s: %w", symbol, err)
		}
	}

	if q := r.fetchLive(ctx, symbol); q != nil {
		r.cache.Write(ctx, symbol, q)
		r.count("live")
		return q, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", symbol, err)
	}

	if q, ok := r.cache.ReadStale(ctx, symbol); ok {
		r.logger.Log(observ.LevelWarn, "quote_stale_fallback", map[string]any{
			"symbol":    symbol,
			"source":    q.Source,
			"age_hours": q.AgeHours,
		})
		r.count("stale")
		return q, nil
	}

	if r.demo == nil {
		r.logger.Log(observ.LevelError, "quote_unavailable", map[string]any{
			"symbol":    symbol,
			"providers": len(r.providers),
		})
		r.count("none")
		return nil, fmt.Errorf("%w for %s", ErrNoQuote, symbol)
	}

	q := r.demo.Generate(symbol)
	r.logger.Log(observ.LevelWarn, "quote_demo_fallback", map[string]any{
		"symbol": symbol,
		"price":  q.Price.String(),
	})
	r.count("demo")
	return q, nil
}

// fetchLive walks the chain and returns the first valid quote, or nil.
func (r *Resolver) fetchLive(ctx context.Context, symbol string) *adapters.Quote {
	for _, p := range r.providers {
		if ctx.Err() != nil {
			return nil
		}
		name := p.Name()
		r.logger.Log(observ.LevelInfo, "provider_attempt", map[string]any{
			"provider": name,
			"symbol":   symbol,
		})

		start := r.now()
		q, err := p.Fetch(ctx, symbol)
		latency := r.now().Sub(start)
		observ.RecordDuration("provider_latency", latency, map[string]string{"provider": name})

		if err == nil {
			if q == nil {
				err = errors.New("provider returned no quote")
			} else {
				q.Symbol = symbol
				if q.Source == "" {
					q.Source = name
				}
				err = adapters.ValidateQuote(q, r.now())
			}
		}
		if err != nil {
			r.logger.Log(observ.LevelWarn, "provider_failed", map[string]any{
				"provider":   name,
				"symbol":     symbol,
				"error":      err.Error(),
				"error_type": adapters.ErrorType(err),
				"latency_ms": latency.Milliseconds(),
			})
			observ.IncCounter("provider_requests_total", map[string]string{"provider": name, "result": "failure"})
			continue
		}

		q.Cached = false
		q.AgeHours = 0
		q.Origin = ""
		r.logger.Log(observ.LevelInfo, "provider_succeeded", map[string]any{
			"provider":   name,
			"symbol":     symbol,
			"price":      q.Price.String(),
			"latency_ms": latency.Milliseconds(),
		})
		observ.IncCounter("provider_requests_total", map[string]string{"provider": name, "result": "success"})
		return q
	}
	return nil
}

func (r *Resolver) count(tier string) {
	observ.IncCounter("quote_resolve_total", map[string]string{"tier": tier})
}
