package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"
)

// JSONPaths locates quote fields inside an arbitrary JSON response.
// Only Price is required.
type JSONPaths struct {
	Price         string
	Change        string
	ChangePercent string
	Currency      string
	Timestamp     string // unix seconds
	Error         string
}

// JSONAPI is a provider declared entirely in configuration: a URL template
// plus JSONPath expressions for each field.
type JSONAPI struct {
	vendor
	template string
	paths    JSONPaths
}

// NewJSONAPI creates a config-declared provider. The template may contain
// {symbol} and {api_key}; both are query-escaped on substitution.
func NewJSONAPI(name, template, apiKey string, paths JSONPaths, opts ...Option) *JSONAPI {
	return &JSONAPI{
		vendor:   newVendor(name, "", apiKey, opts),
		template: template,
		paths:    paths,
	}
}

func (j *JSONAPI) Fetch(ctx context.Context, symbol string) (*Quote, error) {
	requestURL := strings.NewReplacer(
		"{symbol}", url.QueryEscape(symbol),
		"{api_key}", url.QueryEscape(j.apiKey),
	).Replace(j.template)

	var doc any
	if err := j.getJSON(ctx, symbol, requestURL, &doc); err != nil {
		return nil, err
	}
	return j.parse(symbol, doc)
}

func (j *JSONAPI) parse(symbol string, doc any) (*Quote, error) {
	if j.paths.Error != "" {
		if v, err := lookup(j.paths.Error, doc); err == nil {
			if msg, ok := v.(string); ok && msg != "" {
				return nil, NewProviderError(j.name, symbol, msg, nil)
			}
		}
	}

	raw, err := lookup(j.paths.Price, doc)
	if err != nil || raw == nil {
		return nil, NewBadSymbolError(j.name, symbol, "price not found at "+j.paths.Price)
	}
	price, err := toDecimal(raw)
	if err != nil {
		return nil, NewProviderError(j.name, symbol, "unparseable price", err)
	}

	q := &Quote{Symbol: symbol, Price: price}
	q.Change = j.optionalDecimal(j.paths.Change, doc)
	q.ChangePercent = j.optionalDecimal(j.paths.ChangePercent, doc)
	if j.paths.Currency != "" {
		if v, err := lookup(j.paths.Currency, doc); err == nil {
			if s, ok := v.(string); ok {
				q.Currency = s
			}
		}
	}
	if j.paths.Timestamp != "" {
		if v, err := lookup(j.paths.Timestamp, doc); err == nil {
			if secs, err := toDecimal(v); err == nil && secs.IsPositive() {
				q.ObservedAt = time.Unix(secs.IntPart(), 0)
			}
		}
	}
	return j.finish(q)
}

func (j *JSONAPI) optionalDecimal(path string, doc any) decimal.Decimal {
	if path == "" {
		return decimal.Zero
	}
	v, err := lookup(path, doc)
	if err != nil {
		return decimal.Zero
	}
	d, err := toDecimal(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// lookup evaluates a JSONPath and unwraps single-element results, since
// filters and slices always come back as lists.
func lookup(path string, doc any) (any, error) {
	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, err
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, nil
		}
		v = list[0]
	}
	return v, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(x), "%")
		s = strings.ReplaceAll(s, ",", "")
		return decimal.NewFromString(s)
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case nil:
		return decimal.Zero, fmt.Errorf("null value")
	default:
		return decimal.Zero, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
