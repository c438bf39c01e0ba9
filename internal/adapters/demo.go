package adapters

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// demoBaselines are the reference prices perturbed by the demo generator.
var demoBaselines = map[string]decimal.Decimal{
	"AAPL":  decimal.RequireFromString("175.25"),
	"GOOGL": decimal.RequireFromString("142.50"),
	"MSFT":  decimal.RequireFromString("415.75"),
	"AMZN":  decimal.RequireFromString("168.35"),
	"TSLA":  decimal.RequireFromString("248.90"),
	"NVDA":  decimal.RequireFromString("820.45"),
	"META":  decimal.RequireFromString("515.20"),
	"NFLX":  decimal.RequireFromString("485.60"),
	"AMD":   decimal.RequireFromString("135.80"),
	"INTC":  decimal.RequireFromString("28.75"),
}

var hundred = decimal.NewFromInt(100)

// DemoGenerator synthesizes clearly-labelled quotes when nothing else is
// available. It never fails. Quotes carry Source "demo" and must not be
// mistaken for market data.
type DemoGenerator struct {
	mu     sync.Mutex
	random *rand.Rand
	now    func() time.Time
}

// DemoOption configures a DemoGenerator.
type DemoOption func(*DemoGenerator)

// WithRandom fixes the random source, mostly for tests.
func WithRandom(r *rand.Rand) DemoOption {
	return func(g *DemoGenerator) { g.random = r }
}

// WithDemoClock sets the timestamp source.
func WithDemoClock(now func() time.Time) DemoOption {
	return func(g *DemoGenerator) { g.now = now }
}

// NewDemoGenerator creates a time-seeded generator.
func NewDemoGenerator(opts ...DemoOption) *DemoGenerator {
	g := &DemoGenerator{
		random: rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a quote within ±5% of the symbol's baseline. Unknown
// symbols get a uniform baseline in [20, 300).
func (g *DemoGenerator) Generate(symbol string) *Quote {
	symbol = NormalizeSymbol(symbol)

	g.mu.Lock()
	base, ok := demoBaselines[symbol]
	if !ok {
		base = decimal.NewFromFloat(20 + g.random.Float64()*280).Round(2)
	}
	variation := decimal.NewFromFloat(g.random.Float64()*0.10 - 0.05)
	g.mu.Unlock()

	price := base.Mul(decimal.NewFromInt(1).Add(variation))
	change := price.Sub(base)
	pct := change.Div(base).Mul(hundred)

	return &Quote{
		Symbol:        symbol,
		Price:         price.Round(2),
		Change:        change.Round(2),
		ChangePercent: pct.Round(2),
		Currency:      DefaultCurrency,
		ObservedAt:    g.now().UTC(),
		Source:        SourceDemo,
	}
}
