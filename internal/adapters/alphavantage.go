package adapters

import (
	"context"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// AlphaVantage fetches GLOBAL_QUOTE data from alphavantage.co.
type AlphaVantage struct {
	vendor
}

// NewAlphaVantage creates the Alpha Vantage provider. The free tier allows
// 5 requests per minute; set WithRateLimit accordingly.
func NewAlphaVantage(apiKey string, opts ...Option) *AlphaVantage {
	return &AlphaVantage{vendor: newVendor("alphavantage", "https://www.alphavantage.co", apiKey, opts)}
}

type globalQuoteResponse struct {
	GlobalQuote  map[string]string `json:"Global Quote"`
	ErrorMessage string            `json:"Error Message"`
	Information  string            `json:"Information"`
	Note         string            `json:"Note"`
}

func (av *AlphaVantage) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
		"apikey":   {av.apiKey},
	}
	var resp globalQuoteResponse
	if err := av.getJSON(ctx, symbol, av.baseURL+"/query?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return av.parseGlobalQuote(symbol, resp)
}

// parseGlobalQuote maps the numbered GLOBAL_QUOTE keys onto a Quote.
func (av *AlphaVantage) parseGlobalQuote(symbol string, resp globalQuoteResponse) (*Quote, error) {
	if resp.ErrorMessage != "" {
		return nil, NewProviderError(av.name, symbol, resp.ErrorMessage, nil)
	}
	// Note and Information both carry call-frequency messages.
	if resp.Note != "" {
		return nil, NewRateLimitError(av.name, symbol, resp.Note)
	}
	if resp.Information != "" {
		return nil, NewRateLimitError(av.name, symbol, resp.Information)
	}

	gq := resp.GlobalQuote
	if len(gq) == 0 {
		return nil, NewBadSymbolError(av.name, symbol, "no quote data returned")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(gq["05. price"]))
	if err != nil {
		return nil, NewProviderError(av.name, symbol, "unparseable price", err)
	}
	change, _ := decimal.NewFromString(strings.TrimSpace(gq["09. change"]))
	pct, _ := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(gq["10. change percent"]), "%"))

	// GLOBAL_QUOTE only carries a trading day, so the fetch time stands in.
	return av.finish(&Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: pct,
	})
}
