package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Quotes holds the resolution policy.
type Quotes struct {
	FreshnessWindowHours *float64 `yaml:"freshness_window_hours"` // 0 disables fresh reads
	ProviderOrder        []string `yaml:"provider_order"`
	PacingMs             *int     `yaml:"pacing_ms"` // 0 disables pacing
	Concurrency          int      `yaml:"concurrency"`
	DemoEnabled          *bool    `yaml:"demo_enabled"`
}

// Provider holds settings shared by the built-in vendor adapters.
type Provider struct {
	BaseURL            string `yaml:"base_url"`
	SecretName         string `yaml:"secret_name"`
	APIKeyEnv          string `yaml:"api_key_env"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// JSONProvider declares a vendor entirely in config. Paths are JSONPath
// expressions evaluated against the decoded response body.
type JSONProvider struct {
	Name               string `yaml:"name"`
	URLTemplate        string `yaml:"url_template"` // {symbol} and {api_key} are substituted
	PricePath          string `yaml:"price_path"`
	ChangePath         string `yaml:"change_path"`
	ChangePercentPath  string `yaml:"change_percent_path"`
	CurrencyPath       string `yaml:"currency_path"`
	TimestampPath      string `yaml:"timestamp_path"` // unix seconds
	ErrorPath          string `yaml:"error_path"`
	SecretName         string `yaml:"secret_name"`
	APIKeyEnv          string `yaml:"api_key_env"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

type Providers struct {
	Finnhub      Provider       `yaml:"finnhub"`
	AlphaVantage Provider       `yaml:"alphavantage"`
	Polygon      Provider       `yaml:"polygon"`
	JSON         []JSONProvider `yaml:"json"`
}

type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type Postgres struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

type DynamoDB struct {
	Table  string `yaml:"table"`
	Region string `yaml:"region"`
}

// Cache selects and configures the quote cache backing store.
type Cache struct {
	Backend        string   `yaml:"backend"` // memory | redis | postgres | dynamodb | none
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Redis          Redis    `yaml:"redis"`
	Postgres       Postgres `yaml:"postgres"`
	DynamoDB       DynamoDB `yaml:"dynamodb"`
}

// Secrets selects where provider API keys come from.
type Secrets struct {
	Backend string `yaml:"backend"` // env | aws
	Region  string `yaml:"region"`
}

type Root struct {
	Quotes    Quotes    `yaml:"quotes"`
	Providers Providers `yaml:"providers"`
	Cache     Cache     `yaml:"cache"`
	Secrets   Secrets   `yaml:"secrets"`
}

// Load reads a YAML config. An empty path yields the defaults.
func Load(path string) (Root, error) {
	var c Root
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Defaults returns the configuration used when no file is given.
func Defaults() Root {
	var c Root
	c.applyDefaults()
	return c
}

func (c *Root) applyEnv() {
	if v := os.Getenv("PRICE_HISTORY_TABLE"); v != "" && c.Cache.DynamoDB.Table == "" {
		c.Cache.DynamoDB.Table = v
	}
	if v := os.Getenv("REGION"); v != "" {
		if c.Cache.DynamoDB.Region == "" {
			c.Cache.DynamoDB.Region = v
		}
		if c.Secrets.Region == "" {
			c.Secrets.Region = v
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" && c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && c.Cache.Postgres.URL == "" {
		c.Cache.Postgres.URL = v
	}
}

func (c *Root) applyDefaults() {
	q := &c.Quotes
	if q.FreshnessWindowHours == nil {
		hours := 3.0
		q.FreshnessWindowHours = &hours
	}
	if len(q.ProviderOrder) == 0 {
		q.ProviderOrder = []string{"finnhub", "alphavantage"}
	}
	for i, name := range q.ProviderOrder {
		q.ProviderOrder[i] = strings.ToLower(strings.TrimSpace(name))
	}
	if q.PacingMs == nil {
		ms := 100
		q.PacingMs = &ms
	}
	if q.Concurrency == 0 {
		q.Concurrency = 1
	}
	if q.DemoEnabled == nil {
		enabled := true
		q.DemoEnabled = &enabled
	}

	p := &c.Providers
	providerDefaults(&p.Finnhub, "https://finnhub.io/api/v1", "portfoliosync/finnhub-api-key", "FINNHUB_API_KEY")
	providerDefaults(&p.AlphaVantage, "https://www.alphavantage.co", "portfoliosync/alpha-vantage-api-key", "ALPHA_VANTAGE_API_KEY")
	providerDefaults(&p.Polygon, "https://api.polygon.io", "portfoliosync/polygon-api-key", "POLYGON_API_KEY")
	for i := range p.JSON {
		jp := &p.JSON[i]
		jp.Name = strings.ToLower(strings.TrimSpace(jp.Name))
		if jp.TimeoutSeconds == 0 {
			jp.TimeoutSeconds = 10
		}
	}

	cc := &c.Cache
	if cc.Backend == "" {
		cc.Backend = "memory"
	}
	cc.Backend = strings.ToLower(cc.Backend)
	if cc.TimeoutSeconds == 0 {
		cc.TimeoutSeconds = 5
	}
	if cc.Redis.Addr == "" {
		cc.Redis.Addr = "localhost:6379"
	}
	if cc.Redis.KeyPrefix == "" {
		cc.Redis.KeyPrefix = "quotes:"
	}
	if cc.Postgres.Table == "" {
		cc.Postgres.Table = "price_history"
	}
	if cc.DynamoDB.Region == "" {
		cc.DynamoDB.Region = "us-east-1"
	}

	if c.Secrets.Backend == "" {
		c.Secrets.Backend = "env"
	}
	c.Secrets.Backend = strings.ToLower(c.Secrets.Backend)
	if c.Secrets.Region == "" {
		c.Secrets.Region = "us-east-1"
	}
}

func providerDefaults(p *Provider, baseURL, secret, env string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.SecretName == "" {
		p.SecretName = secret
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = env
	}
	if p.TimeoutSeconds == 0 {
		p.TimeoutSeconds = 10
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Root) Validate() error {
	if h := c.Quotes.FreshnessWindowHours; h != nil && *h < 0 {
		return fmt.Errorf("quotes.freshness_window_hours must not be negative, got %v", *h)
	}
	if ms := c.Quotes.PacingMs; ms != nil && *ms < 0 {
		return fmt.Errorf("quotes.pacing_ms must not be negative, got %d", *ms)
	}
	if c.Quotes.Concurrency < 0 {
		return fmt.Errorf("quotes.concurrency must not be negative, got %d", c.Quotes.Concurrency)
	}
	switch c.Cache.Backend {
	case "memory", "redis", "postgres", "dynamodb", "none":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Secrets.Backend {
	case "env", "aws":
	default:
		return fmt.Errorf("unknown secrets backend %q", c.Secrets.Backend)
	}
	seen := map[string]bool{}
	for _, jp := range c.Providers.JSON {
		if jp.Name == "" {
			return fmt.Errorf("providers.json entry without a name")
		}
		if jp.URLTemplate == "" || jp.PricePath == "" {
			return fmt.Errorf("providers.json %q needs url_template and price_path", jp.Name)
		}
		if seen[jp.Name] {
			return fmt.Errorf("providers.json %q declared twice", jp.Name)
		}
		seen[jp.Name] = true
	}
	return nil
}

// FreshnessWindow converts the configured hours into a duration.
func (q Quotes) FreshnessWindow() time.Duration {
	if q.FreshnessWindowHours == nil {
		return 3 * time.Hour
	}
	return time.Duration(*q.FreshnessWindowHours * float64(time.Hour))
}

// Pacing is the minimum spacing between consecutive live fetches.
func (q Quotes) Pacing() time.Duration {
	if q.PacingMs == nil {
		return 100 * time.Millisecond
	}
	return time.Duration(*q.PacingMs) * time.Millisecond
}

// DemoAllowed reports whether the synthetic tier may be used.
func (q Quotes) DemoAllowed() bool {
	return q.DemoEnabled == nil || *q.DemoEnabled
}

func (p Provider) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

func (c Cache) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
