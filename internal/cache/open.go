package cache

import (
	"context"
	"fmt"

	"github.com/Rajchodisetti/quote-engine/internal/config"
	"github.com/Rajchodisetti/quote-engine/internal/observ"
)

// Open builds the QuoteCache for the configured backend.
func Open(ctx context.Context, cfg config.Root, logger observ.Logger, opts ...Option) (*QuoteCache, error) {
	store, err := openStore(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
	}
	base := []Option{
		withBackend(cfg.Cache.Backend),
		WithFreshnessWindow(cfg.Quotes.FreshnessWindow()),
		WithTimeout(cfg.Cache.Timeout()),
		WithLogger(logger),
	}
	c := New(store, append(base, opts...)...)
	logger.Log(observ.LevelInfo, "quote_cache_opened", map[string]any{
		"backend":      cfg.Cache.Backend,
		"window_hours": cfg.Quotes.FreshnessWindow().Hours(),
	})
	return c, nil
}

func openStore(ctx context.Context, cfg config.Cache) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "none":
		return nil, nil
	case "redis":
		return DialRedis(cfg.Redis), nil
	case "postgres":
		if cfg.Postgres.URL == "" {
			return nil, fmt.Errorf("cache.postgres.url or DATABASE_URL is required")
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
		defer cancel()
		return DialPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.Table)
	case "dynamodb":
		if cfg.DynamoDB.Table == "" {
			return nil, fmt.Errorf("cache.dynamodb.table or PRICE_HISTORY_TABLE is required")
		}
		return DialDynamoDB(ctx, cfg.DynamoDB.Table, cfg.DynamoDB.Region)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
