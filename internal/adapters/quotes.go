package adapters

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Provider fetches a live quote for one symbol from one upstream vendor.
//
//go:generate mockgen -package=resolver -destination=../resolver/mock_provider_test.go -source=quotes.go Provider
type Provider interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (*Quote, error)
}

// Source labels for quotes that did not come straight from a provider.
const (
	SourceCache = "cache"
	SourceDemo  = "demo"
	staleSuffix = " (stale)"
)

// DefaultCurrency is assumed when a provider does not report one.
const DefaultCurrency = "USD"

// Quote is the normalized price observation handed to callers.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Currency      string          `json:"currency"`
	ObservedAt    time.Time       `json:"timestamp"`
	Source        string          `json:"source"`           // provider name, "cache", "<provider> (stale)" or "demo"
	Origin        string          `json:"origin,omitempty"` // provider behind a cached quote
	Cached        bool            `json:"cached"`
	AgeHours      float64         `json:"ageHours,omitempty"`
}

// StaleSource labels a quote served past the freshness window.
func StaleSource(origin string) string {
	return origin + staleSuffix
}

// IsDemo reports whether the quote was synthesized.
func (q *Quote) IsDemo() bool { return q.Source == SourceDemo }

// IsStale reports whether the quote came from the stale cache tier.
func (q *Quote) IsStale() bool { return strings.HasSuffix(q.Source, staleSuffix) }

// IsLive reports whether the quote was fetched from a provider on this call.
func (q *Quote) IsLive() bool { return !q.Cached && !q.IsDemo() }

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,14}$`)

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidSymbol reports whether a normalized ticker is well formed.
// Well formed is not the same as known: "ZZZZINVALID" passes.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

// NormalizeCurrency upper-cases an ISO 4217 code, defaulting to USD.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	if money.GetCurrency(code) == nil {
		return "", fmt.Errorf("unknown currency %q", code)
	}
	return code, nil
}

// MaxClockSkew is how far past now a provider timestamp may lie.
const MaxClockSkew = 5 * time.Minute

// ValidateQuote rejects quotes that must never reach a caller or the cache.
// now is the caller's clock.
func ValidateQuote(q *Quote, now time.Time) error {
	if q == nil {
		return errors.New("quote is nil")
	}
	q.Symbol = NormalizeSymbol(q.Symbol)
	if q.Symbol == "" {
		return errors.New("empty symbol")
	}
	if !q.Price.IsPositive() {
		return fmt.Errorf("invalid price %s for %s", q.Price, q.Symbol)
	}
	currency, err := NormalizeCurrency(q.Currency)
	if err != nil {
		return err
	}
	q.Currency = currency
	if q.ObservedAt.IsZero() {
		return fmt.Errorf("missing timestamp for %s", q.Symbol)
	}
	if q.ObservedAt.After(now.Add(MaxClockSkew)) {
		return fmt.Errorf("quote timestamp too far in future: %v", q.ObservedAt)
	}
	return nil
}

// Display renders the price with its currency symbol, e.g. "$189.84".
func (q *Quote) Display() string {
	currency, err := NormalizeCurrency(q.Currency)
	if err != nil {
		return q.Price.StringFixed(2) + " " + q.Currency
	}
	c := money.GetCurrency(currency)
	cents := q.Price.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(cents, currency).Display()
}

// QuoteError represents different types of quote fetch errors
type QuoteError struct {
	Type     string // "network", "timeout", "rate_limit", "provider_error", "bad_symbol"
	Provider string
	Symbol   string
	Message  string
	Cause    error
}

func (e *QuoteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s error for %s: %s (%v)", e.Provider, e.Type, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s error for %s: %s", e.Provider, e.Type, e.Symbol, e.Message)
}

func (e *QuoteError) Unwrap() error { return e.Cause }

// ErrorType extracts the QuoteError type, or "unknown".
func ErrorType(err error) string {
	var qe *QuoteError
	if errors.As(err, &qe) {
		return qe.Type
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}
	return "unknown"
}

// Common error constructors
func NewNetworkError(provider, symbol, message string, cause error) *QuoteError {
	return &QuoteError{Type: "network", Provider: provider, Symbol: symbol, Message: message, Cause: cause}
}

func NewTimeoutError(provider, symbol string, cause error) *QuoteError {
	return &QuoteError{Type: "timeout", Provider: provider, Symbol: symbol, Message: "request timed out", Cause: cause}
}

func NewRateLimitError(provider, symbol, message string) *QuoteError {
	return &QuoteError{Type: "rate_limit", Provider: provider, Symbol: symbol, Message: message}
}

func NewProviderError(provider, symbol, message string, cause error) *QuoteError {
	return &QuoteError{Type: "provider_error", Provider: provider, Symbol: symbol, Message: message, Cause: cause}
}

func NewBadSymbolError(provider, symbol, message string) *QuoteError {
	return &QuoteError{Type: "bad_symbol", Provider: provider, Symbol: symbol, Message: message}
}
