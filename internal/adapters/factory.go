package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/Rajchodisetti/quote-engine/internal/config"
	"github.com/Rajchodisetti/quote-engine/internal/observ"
	"github.com/Rajchodisetti/quote-engine/internal/secrets"
)

// Credentials resolves provider API keys.
type Credentials interface {
	Lookup(ctx context.Context, c secrets.Credential) (string, bool)
}

// Factory builds the ordered provider chain from configuration.
type Factory struct {
	config config.Root
	creds  Credentials
	logger observ.Logger
	opts   []Option
}

// NewFactory creates a factory. Extra options are applied to every
// HTTP-backed provider after the configured ones.
func NewFactory(cfg config.Root, creds Credentials, logger observ.Logger, opts ...Option) *Factory {
	if logger == nil {
		logger = observ.Default()
	}
	return &Factory{config: cfg, creds: creds, logger: logger, opts: opts}
}

// Providers returns the chain in configured order. Providers whose key is
// missing are skipped; an unknown name is a configuration error.
func (f *Factory) Providers(ctx context.Context) ([]Provider, error) {
	var chain []Provider
	for _, name := range f.config.Quotes.ProviderOrder {
		p, skipped, err := f.create(ctx, name)
		if err != nil {
			return nil, err
		}
		if skipped != "" {
			f.logger.Log(observ.LevelWarn, "provider_skipped", map[string]any{
				"provider": name,
				"reason":   skipped,
			})
			continue
		}
		f.logger.Log(observ.LevelInfo, "provider_created", map[string]any{"provider": name})
		chain = append(chain, p)
	}
	return chain, nil
}

// Demo returns the demo generator, or nil when the tier is disabled.
func (f *Factory) Demo() *DemoGenerator {
	if !f.config.Quotes.DemoAllowed() {
		return nil
	}
	return NewDemoGenerator()
}

func (f *Factory) create(ctx context.Context, name string) (Provider, string, error) {
	pc := f.config.Providers
	switch name {
	case "finnhub":
		key, ok := f.key(ctx, pc.Finnhub.SecretName, pc.Finnhub.APIKeyEnv)
		if !ok {
			return nil, "missing API key", nil
		}
		return NewFinnhub(key, f.options(pc.Finnhub.BaseURL, pc.Finnhub.Timeout(), pc.Finnhub.RateLimitPerMinute)...), "", nil

	case "alphavantage":
		key, ok := f.key(ctx, pc.AlphaVantage.SecretName, pc.AlphaVantage.APIKeyEnv)
		if !ok {
			return nil, "missing API key", nil
		}
		return NewAlphaVantage(key, f.options(pc.AlphaVantage.BaseURL, pc.AlphaVantage.Timeout(), pc.AlphaVantage.RateLimitPerMinute)...), "", nil

	case "polygon":
		key, ok := f.key(ctx, pc.Polygon.SecretName, pc.Polygon.APIKeyEnv)
		if !ok {
			return nil, "missing API key", nil
		}
		return NewPolygon(key, f.options(pc.Polygon.BaseURL, pc.Polygon.Timeout(), pc.Polygon.RateLimitPerMinute)...), "", nil
	}

	for _, jp := range pc.JSON {
		if jp.Name != name {
			continue
		}
		var key string
		if jp.SecretName != "" || jp.APIKeyEnv != "" {
			var ok bool
			if key, ok = f.key(ctx, jp.SecretName, jp.APIKeyEnv); !ok {
				return nil, "missing API key", nil
			}
		}
		paths := JSONPaths{
			Price:         jp.PricePath,
			Change:        jp.ChangePath,
			ChangePercent: jp.ChangePercentPath,
			Currency:      jp.CurrencyPath,
			Timestamp:     jp.TimestampPath,
			Error:         jp.ErrorPath,
		}
		timeout := time.Duration(jp.TimeoutSeconds) * time.Second
		return NewJSONAPI(jp.Name, jp.URLTemplate, key, paths, f.options("", timeout, jp.RateLimitPerMinute)...), "", nil
	}

	return nil, "", fmt.Errorf("unknown provider %q in quotes.provider_order", name)
}

func (f *Factory) key(ctx context.Context, secretName, envVar string) (string, bool) {
	if f.creds == nil {
		return "", false
	}
	return f.creds.Lookup(ctx, secrets.Credential{SecretName: secretName, EnvVar: envVar})
}

func (f *Factory) options(baseURL string, timeout time.Duration, perMinute int) []Option {
	var opts []Option
	if baseURL != "" {
		opts = append(opts, WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, WithTimeout(timeout))
	}
	opts = append(opts, WithRateLimit(perMinute))
	return append(opts, f.opts...)
}
