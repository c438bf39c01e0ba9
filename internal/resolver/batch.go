package resolver

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Rajchodisetti/quote-engine/internal/adapters"
	"github.com/Rajchodisetti/quote-engine/internal/observ"
)

// ResolveMany resolves each distinct symbol independently. Symbols that
// fail are logged and left out of the result; keys are normalized tickers.
// Live fetches are spaced by the pacing interval, cache hits are not.
// On cancellation the symbols resolved so far are returned.
func (r *Resolver) ResolveMany(ctx context.Context, symbols []string, forceRefresh bool) map[string]*adapters.Quote {
	unique := r.dedupe(symbols)

	// One token per live fetch, shared across workers.
	var limiter *rate.Limiter
	if r.pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(r.pacing), 1)
	}
	pace := func(ctx context.Context) error {
		if limiter == nil {
			return nil
		}
		return limiter.Wait(ctx)
	}

	var (
		mu      sync.Mutex
		results = make(map[string]*adapters.Quote, len(unique))
		g       errgroup.Group
	)
	g.SetLimit(r.concurrency)

	for _, symbol := range unique {
		if ctx.Err() != nil {
			break
		}
		symbol := symbol
		g.Go(func() error {
			q, err := r.resolve(ctx, symbol, forceRefresh, pace)
			if err != nil {
				level := observ.LevelWarn
				if errors.Is(err, ErrNoQuote) {
					level = observ.LevelError
				}
				r.logger.Log(level, "batch_symbol_failed", map[string]any{
					"symbol": symbol,
					"error":  err.Error(),
				})
				return nil
			}
			mu.Lock()
			results[symbol] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Log(observ.LevelInfo, "batch_resolved", map[string]any{
		"requested": len(symbols),
		"unique":    len(unique),
		"resolved":  len(results),
		"omitted":   len(unique) - len(results),
	})
	return results
}

// dedupe normalizes symbols, drops malformed ones and keeps first-seen order.
func (r *Resolver) dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, raw := range symbols {
		s := adapters.NormalizeSymbol(raw)
		if !adapters.ValidSymbol(s) {
			r.logger.Log(observ.LevelWarn, "batch_symbol_invalid", map[string]any{"symbol": raw})
			continue
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
