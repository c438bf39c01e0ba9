package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PRICE_HISTORY_TABLE", "")
	t.Setenv("REGION", "")

	c, err := Load("")
	require.NoError(t, err)

	require.NotNil(t, c.Quotes.FreshnessWindowHours)
	assert.Equal(t, 3.0, *c.Quotes.FreshnessWindowHours)
	assert.Equal(t, 3*time.Hour, c.Quotes.FreshnessWindow())
	assert.Equal(t, []string{"finnhub", "alphavantage"}, c.Quotes.ProviderOrder)
	assert.Equal(t, 100*time.Millisecond, c.Quotes.Pacing())
	assert.Equal(t, 1, c.Quotes.Concurrency)
	assert.True(t, c.Quotes.DemoAllowed())

	assert.Equal(t, "https://finnhub.io/api/v1", c.Providers.Finnhub.BaseURL)
	assert.Equal(t, "FINNHUB_API_KEY", c.Providers.Finnhub.APIKeyEnv)
	assert.Equal(t, "portfoliosync/alpha-vantage-api-key", c.Providers.AlphaVantage.SecretName)
	assert.Equal(t, 10*time.Second, c.Providers.AlphaVantage.Timeout())

	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 5*time.Second, c.Cache.Timeout())
	assert.Equal(t, "us-east-1", c.Cache.DynamoDB.Region)
	assert.Equal(t, "env", c.Secrets.Backend)
}

func TestLoadFile(t *testing.T) {
	t.Setenv("PRICE_HISTORY_TABLE", "")
	path := writeConfig(t, `
quotes:
  freshness_window_hours: 1.5
  provider_order: [" AlphaVantage ", finnhub, quotes-api]
  pacing_ms: 250
  concurrency: 4
  demo_enabled: false
providers:
  finnhub:
    rate_limit_per_minute: 60
  json:
    - name: Quotes-API
      url_template: "https://quotes.example.com/v1/{symbol}?key={api_key}"
      price_path: "$.data.last"
cache:
  backend: DynamoDB
  dynamodb:
    table: price-history
secrets:
  backend: aws
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, c.Quotes.FreshnessWindow())
	assert.Equal(t, []string{"alphavantage", "finnhub", "quotes-api"}, c.Quotes.ProviderOrder)
	assert.Equal(t, 250*time.Millisecond, c.Quotes.Pacing())
	assert.Equal(t, 4, c.Quotes.Concurrency)
	assert.False(t, c.Quotes.DemoAllowed())
	assert.Equal(t, 60, c.Providers.Finnhub.RateLimitPerMinute)
	require.Len(t, c.Providers.JSON, 1)
	assert.Equal(t, "quotes-api", c.Providers.JSON[0].Name)
	assert.Equal(t, 10, c.Providers.JSON[0].TimeoutSeconds)
	assert.Equal(t, "dynamodb", c.Cache.Backend)
	assert.Equal(t, "price-history", c.Cache.DynamoDB.Table)
	assert.Equal(t, "aws", c.Secrets.Backend)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PRICE_HISTORY_TABLE", "portfoliosync-price-history")
	t.Setenv("REGION", "eu-west-1")
	t.Setenv("REDIS_ADDR", "redis:6379")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "portfoliosync-price-history", c.Cache.DynamoDB.Table)
	assert.Equal(t, "eu-west-1", c.Cache.DynamoDB.Region)
	assert.Equal(t, "eu-west-1", c.Secrets.Region)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "quotes: [unterminated"},
		{"unknown cache backend", "cache:\n  backend: memcached\n"},
		{"unknown secrets backend", "secrets:\n  backend: vault\n"},
		{"negative window", "quotes:\n  freshness_window_hours: -1\n"},
		{"negative pacing", "quotes:\n  pacing_ms: -5\n"},
		{"json provider without path", "providers:\n  json:\n    - name: x\n      url_template: http://x\n"},
		{"duplicate json provider", "providers:\n  json:\n    - {name: x, url_template: http://x, price_path: $.p}\n    - {name: X, url_template: http://y, price_path: $.p}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadExplicitZeros(t *testing.T) {
	c, err := Load(writeConfig(t, "quotes:\n  freshness_window_hours: 0\n  pacing_ms: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), c.Quotes.FreshnessWindow())
	assert.Equal(t, time.Duration(0), c.Quotes.Pacing())

	var unset Quotes
	assert.Equal(t, 3*time.Hour, unset.FreshnessWindow())
	assert.Equal(t, 100*time.Millisecond, unset.Pacing())
}

func TestLoadExampleConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "config", "quotes.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"finnhub", "alphavantage"}, c.Quotes.ProviderOrder)
	assert.Equal(t, 3*time.Hour, c.Quotes.FreshnessWindow())
	assert.Equal(t, 5, c.Providers.AlphaVantage.RateLimitPerMinute)
	require.Len(t, c.Providers.JSON, 1)
	assert.Equal(t, "twelvedata", c.Providers.JSON[0].Name)
	assert.Equal(t, "memory", c.Cache.Backend)
}
