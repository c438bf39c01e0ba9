package adapters

import (
	"context"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Polygon fetches ticker snapshots from polygon.io.
type Polygon struct {
	vendor
}

// NewPolygon creates the Polygon.io provider.
func NewPolygon(apiKey string, opts ...Option) *Polygon {
	return &Polygon{vendor: newVendor("polygon", "https://api.polygon.io", apiKey, opts)}
}

type polygonSnapshotResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Ticker  *struct {
		Ticker           string          `json:"ticker"`
		TodaysChange     decimal.Decimal `json:"todaysChange"`
		TodaysChangePerc decimal.Decimal `json:"todaysChangePerc"`
		Updated          int64           `json:"updated"` // nanoseconds
		Day              struct {
			C decimal.Decimal `json:"c"`
		} `json:"day"`
		LastTrade struct {
			P decimal.Decimal `json:"p"`
			T int64           `json:"t"` // nanoseconds
		} `json:"lastTrade"`
		PrevDay struct {
			C decimal.Decimal `json:"c"`
		} `json:"prevDay"`
	} `json:"ticker"`
}

func (p *Polygon) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	requestURL := p.baseURL + "/v2/snapshot/locale/us/markets/stocks/tickers/" +
		url.PathEscape(symbol) + "?" + url.Values{"apiKey": {p.apiKey}}.Encode()

	var resp polygonSnapshotResponse
	if err := p.getJSON(ctx, symbol, requestURL, &resp); err != nil {
		return nil, err
	}
	return p.parseSnapshot(symbol, resp)
}

func (p *Polygon) parseSnapshot(symbol string, resp polygonSnapshotResponse) (*Quote, error) {
	switch resp.Status {
	case "OK", "DELAYED", "":
	case "NOT_FOUND":
		return nil, NewBadSymbolError(p.name, symbol, "ticker not found")
	default:
		msg := resp.Error
		if msg == "" {
			msg = resp.Message
		}
		if msg == "" {
			msg = "status " + resp.Status
		}
		return nil, NewProviderError(p.name, symbol, msg, nil)
	}
	if resp.Ticker == nil {
		return nil, NewBadSymbolError(p.name, symbol, "no snapshot returned")
	}
	t := resp.Ticker

	// Outside regular hours the day bar may be empty; fall back to the
	// previous close so a price is always reported.
	price := t.LastTrade.P
	if !price.IsPositive() {
		price = t.Day.C
	}
	if !price.IsPositive() {
		price = t.PrevDay.C
	}
	if !price.IsPositive() {
		return nil, NewBadSymbolError(p.name, symbol, "no price in snapshot")
	}

	q := &Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        t.TodaysChange,
		ChangePercent: t.TodaysChangePerc,
	}
	switch {
	case t.Updated > 0:
		q.ObservedAt = time.Unix(0, t.Updated)
	case t.LastTrade.T > 0:
		q.ObservedAt = time.Unix(0, t.LastTrade.T)
	}
	return p.finish(q)
}
