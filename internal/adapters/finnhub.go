package adapters

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Finnhub fetches real-time quotes from finnhub.io.
type Finnhub struct {
	vendor
}

// NewFinnhub creates the Finnhub provider.
func NewFinnhub(apiKey string, opts ...Option) *Finnhub {
	return &Finnhub{vendor: newVendor("finnhub", "https://finnhub.io/api/v1", apiKey, opts)}
}

// finnhubQuote mirrors GET /quote. Unknown symbols come back as all zeros
// with null change fields.
type finnhubQuote struct {
	Current       decimal.NullDecimal `json:"c"`
	Change        decimal.NullDecimal `json:"d"`
	ChangePercent decimal.NullDecimal `json:"dp"`
	PrevClose     decimal.NullDecimal `json:"pc"`
	Timestamp     json.Number         `json:"t"`
	Error         string              `json:"error"`
}

func (f *Finnhub) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	params := url.Values{
		"symbol": {symbol},
		"token":  {f.apiKey},
	}
	var resp finnhubQuote
	if err := f.getJSON(ctx, symbol, f.baseURL+"/quote?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return f.parse(symbol, resp)
}

func (f *Finnhub) parse(symbol string, resp finnhubQuote) (*Quote, error) {
	if resp.Error != "" {
		return nil, NewProviderError(f.name, symbol, resp.Error, nil)
	}
	if !resp.Current.Valid || !resp.Current.Decimal.IsPositive() {
		return nil, NewBadSymbolError(f.name, symbol, "no current price")
	}

	q := &Quote{
		Symbol:        symbol,
		Price:         resp.Current.Decimal,
		Change:        resp.Change.Decimal,
		ChangePercent: resp.ChangePercent.Decimal,
	}
	if !resp.Change.Valid && resp.PrevClose.Valid && resp.PrevClose.Decimal.IsPositive() {
		q.Change = q.Price.Sub(resp.PrevClose.Decimal)
		q.ChangePercent = q.Change.Div(resp.PrevClose.Decimal).Mul(decimal.NewFromInt(100)).Round(4)
	}
	if secs, err := resp.Timestamp.Int64(); err == nil && secs > 0 {
		q.ObservedAt = time.Unix(secs, 0)
	}
	return f.finish(q)
}
