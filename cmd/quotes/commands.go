package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/google/subcommands"

	"github.com/Rajchodisetti/quote-engine/internal/adapters"
	"github.com/Rajchodisetti/quote-engine/internal/cache"
	"github.com/Rajchodisetti/quote-engine/internal/config"
	"github.com/Rajchodisetti/quote-engine/internal/observ"
	"github.com/Rajchodisetti/quote-engine/internal/resolver"
	"github.com/Rajchodisetti/quote-engine/internal/secrets"
)

var commands = []subcommands.Command{
	&getCmd{out: os.Stdout},
	&batchCmd{out: os.Stdout},
}

// common holds the flags every command accepts.
type common struct {
	config      string
	force       bool
	metricsAddr string
}

func (c *common) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.config, "config", os.Getenv("QUOTES_CONFIG"), "config path (defaults to $QUOTES_CONFIG, built-in defaults when empty)")
	f.BoolVar(&c.force, "force", false, "skip the fresh cache read and go to the providers")
	f.StringVar(&c.metricsAddr, "metrics-addr", "", "serve /metrics and /health on this address while running")
}

// engine is a resolver wired from config, plus what must be closed after.
type engine struct {
	resolver *resolver.Resolver
	cache    *cache.QuoteCache
}

func (e *engine) Close() error { return e.cache.Close() }

func (c *common) open(ctx context.Context) (*engine, error) {
	cfg, err := config.Load(c.config)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := observ.Default()

	keys, err := secrets.Open(ctx, cfg.Secrets, logger)
	if err != nil {
		return nil, err
	}
	factory := adapters.NewFactory(cfg, keys, logger)
	providers, err := factory.Providers(ctx)
	if err != nil {
		return nil, err
	}
	qc, err := cache.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	observ.SetGauge("providers_configured", float64(len(providers)), nil)
	if len(providers) == 0 {
		observ.Warn("quotes_no_live_providers", map[string]any{
			"provider_order": cfg.Quotes.ProviderOrder,
			"demo":           cfg.Quotes.DemoAllowed(),
		})
	}

	r := resolver.New(qc, providers,
		resolver.WithDemo(factory.Demo()),
		resolver.WithPacing(cfg.Quotes.Pacing()),
		resolver.WithConcurrency(cfg.Quotes.Concurrency),
		resolver.WithLogger(logger),
	)
	observ.Log("quotes_engine_ready", map[string]any{
		"providers":   len(providers),
		"cache":       cfg.Cache.Backend,
		"demo":        cfg.Quotes.DemoAllowed(),
		"concurrency": cfg.Quotes.Concurrency,
	})
	return &engine{resolver: r, cache: qc}, nil
}

func (c *common) serveMetrics() {
	if c.metricsAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observ.Handler())
	mux.Handle("/health", observ.Health())
	go func() {
		if err := http.ListenAndServe(c.metricsAddr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observ.Error("metrics_server_failed", map[string]any{"addr": c.metricsAddr, "error": err.Error()})
		}
	}()
}

// view is the printed form of a quote.
type view struct {
	*adapters.Quote
	Display string `json:"display"`
}

func newView(q *adapters.Quote) view {
	return view{Quote: q, Display: q.Display()}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type getCmd struct {
	common
	out io.Writer
}

func (*getCmd) Name() string     { return "get" }
func (*getCmd) Synopsis() string { return "resolve the price of a single symbol" }
func (*getCmd) Usage() string {
	return `quotes get [-config <path>] [-force] <symbol>

  Resolves one ticker through the fresh cache, the live providers, the
  stale cache and finally demo data, and prints the quote as JSON.
`
}

func (c *getCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *getCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "get expects exactly one symbol")
		return subcommands.ExitUsageError
	}
	c.serveMetrics()

	e, err := c.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	q, err := e.resolver.Resolve(ctx, f.Arg(0), c.force)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, resolver.ErrInvalidSymbol) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	if err := writeJSON(c.out, newView(q)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type batchCmd struct {
	common
	out io.Writer
}

func (*batchCmd) Name() string     { return "batch" }
func (*batchCmd) Synopsis() string { return "resolve prices for many symbols" }
func (*batchCmd) Usage() string {
	return `quotes batch [-config <path>] [-force] <symbol>[,<symbol>...] ...

  Resolves every distinct symbol, pacing live provider calls, and prints a
  JSON object keyed by ticker. Symbols that cannot be resolved are left out
  and the command exits non-zero.
`
}

func (c *batchCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *batchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	symbols := splitSymbols(f.Args())
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "batch expects at least one symbol")
		return subcommands.ExitUsageError
	}
	c.serveMetrics()

	e, err := c.open(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer e.Close()

	quotes := e.resolver.ResolveMany(ctx, symbols, c.force)
	out := make(map[string]view, len(quotes))
	for s, q := range quotes {
		out[s] = newView(q)
	}
	if err := writeJSON(c.out, out); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if missing := unresolved(symbols, quotes); len(missing) > 0 {
		fmt.Fprintf(os.Stderr, "unresolved: %s\n", strings.Join(missing, ", "))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// splitSymbols accepts both "AAPL MSFT" and "AAPL,MSFT".
func splitSymbols(args []string) []string {
	var out []string
	for _, a := range args {
		for _, s := range strings.Split(a, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func unresolved(requested []string, got map[string]*adapters.Quote) []string {
	seen := map[string]bool{}
	var missing []string
	for _, raw := range requested {
		s := adapters.NormalizeSymbol(raw)
		if seen[s] || !adapters.ValidSymbol(s) {
			continue
		}
		seen[s] = true
		if _, ok := got[s]; !ok {
			missing = append(missing, s)
		}
	}
	sort.Strings(missing)
	return missing
}
