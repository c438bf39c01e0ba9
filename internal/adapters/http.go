package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClient is the subset of *http.Client the vendor adapters need.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// vendor carries what every HTTP-backed provider shares.
type vendor struct {
	name    string
	baseURL string
	apiKey  string
	timeout time.Duration
	client  HTTPClient
	limiter *rate.Limiter
	now     func() time.Time
}

// Option configures an HTTP-backed provider.
type Option func(*vendor)

// WithBaseURL points the provider at another host, mostly for tests.
func WithBaseURL(u string) Option {
	return func(v *vendor) { v.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c HTTPClient) Option {
	return func(v *vendor) { v.client = c }
}

// WithTimeout bounds each request, including the rate limit wait.
func WithTimeout(d time.Duration) Option {
	return func(v *vendor) { v.timeout = d }
}

// WithRateLimit caps requests per minute. Zero disables the limiter.
func WithRateLimit(perMinute int) Option {
	return func(v *vendor) {
		if perMinute <= 0 {
			v.limiter = nil
			return
		}
		v.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60), 1)
	}
}

// WithClock sets the clock used when a vendor omits a timestamp.
func WithClock(now func() time.Time) Option {
	return func(v *vendor) { v.now = now }
}

func newVendor(name, baseURL, apiKey string, opts []Option) vendor {
	v := vendor{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&v)
	}
	if v.client == nil {
		v.client = &http.Client{Timeout: v.timeout}
	}
	return v
}

func (v *vendor) Name() string { return v.name }

// getJSON issues a GET and decodes a 200 response into out. Failures come
// back as *QuoteError.
func (v *vendor) getJSON(ctx context.Context, symbol, requestURL string, out any) error {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	if v.limiter != nil {
		if err := v.limiter.Wait(ctx); err != nil {
			return NewRateLimitError(v.name, symbol, fmt.Sprintf("rate limit wait: %v", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return NewNetworkError(v.name, symbol, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return NewTimeoutError(v.name, symbol, err)
		}
		return NewNetworkError(v.name, symbol, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return NewRateLimitError(v.name, symbol, "API rate limit exceeded")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return NewProviderError(v.name, symbol, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if isTimeout(err) {
			return NewTimeoutError(v.name, symbol, err)
		}
		return NewProviderError(v.name, symbol, "failed to parse response", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// finish fills provider defaults and validates the quote.
func (v *vendor) finish(q *Quote) (*Quote, error) {
	now := v.now()
	q.Source = v.name
	if q.ObservedAt.IsZero() {
		q.ObservedAt = now
	}
	q.ObservedAt = q.ObservedAt.UTC()
	if err := ValidateQuote(q, now); err != nil {
		return nil, NewProviderError(v.name, q.Symbol, "invalid quote", err)
	}
	return q, nil
}
