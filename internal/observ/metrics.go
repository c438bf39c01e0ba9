package observ

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type registry struct {
	mu       sync.Mutex
	counters map[string]map[string]int64   // name -> labelsKey -> count
	gauges   map[string]map[string]float64 // name -> labelsKey -> value
	hist     map[string]map[string][]float64
}

var reg = newRegistry()

func newRegistry() *registry {
	return &registry{
		counters: map[string]map[string]int64{},
		gauges:   map[string]map[string]float64{},
		hist:     map[string]map[string][]float64{},
	}
}

// canonicalize label map so key order is stable
func canonLabels(lbl map[string]string) string {
	if len(lbl) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(lbl[k])
	}
	return b.String()
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1.0)
}

func IncCounterBy(name string, labels map[string]string, value float64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.counters[name]
	if !ok {
		m = map[string]int64{}
		reg.counters[name] = m
	}
	k := canonLabels(labels)
	m[k] += int64(value)
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.gauges[name]
	if !ok {
		m = map[string]float64{}
		reg.gauges[name] = m
	}
	k := canonLabels(labels)
	m[k] = value
}

func Observe(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	m, ok := reg.hist[name]
	if !ok {
		m = map[string][]float64{}
		reg.hist[name] = m
	}
	k := canonLabels(labels)
	m[k] = append(m[k], value)
}

// RecordDuration records a duration metric in milliseconds
func RecordDuration(name string, duration time.Duration, labels map[string]string) {
	Observe(name+"_ms", float64(duration.Milliseconds()), labels)
}

// Counter returns the current value of one labelled counter.
func Counter(name string, labels map[string]string) int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.counters[name][canonLabels(labels)]
}

// Gauge returns the last value set for one labelled gauge.
func Gauge(name string, labels map[string]string) float64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.gauges[name][canonLabels(labels)]
}

// CounterTotal sums a counter across all label sets.
func CounterTotal(name string) int64 {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var total int64
	for _, v := range reg.counters[name] {
		total += v
	}
	return total
}

// Reset clears every metric. Used by tests and short-lived invocations.
func Reset() {
	fresh := newRegistry()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.counters = fresh.counters
	reg.gauges = fresh.gauges
	reg.hist = fresh.hist
}

// Basic text/JSON dump for quick checks (not Prometheus format on purpose)
func Handler() http.Handler {
	type dump struct {
		Counters map[string]map[string]int64     `json:"counters"`
		Gauges   map[string]map[string]float64   `json:"gauges"`
		Hist     map[string]map[string][]float64 `json:"histograms"`
		Summary  QuoteSummary                    `json:"summary"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dump{
			Counters: reg.counters,
			Gauges:   reg.gauges,
			Hist:     reg.hist,
			Summary:  summarize(),
		})
	})
}

// QuoteSummary condenses the quote engine counters into rates.
type QuoteSummary struct {
	Resolved            int64            `json:"resolved"`
	ByTier              map[string]int64 `json:"by_tier"`
	CacheHitRate        float64          `json:"cache_hit_rate"`
	ProviderSuccessRate float64          `json:"provider_success_rate"`
	ProviderLatencyP95  int64            `json:"provider_latency_p95_ms"`
}

// Summary returns the current quote summary.
func Summary() QuoteSummary {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return summarize()
}

// summarize expects reg.mu to be held.
func summarize() QuoteSummary {
	s := QuoteSummary{ByTier: map[string]int64{}}

	for key, count := range reg.counters["quote_resolve_total"] {
		s.Resolved += count
		s.ByTier[strings.TrimPrefix(key, "tier=")] += count
	}

	hits := sumCounter("quote_cache_hit_total")
	misses := sumCounter("quote_cache_miss_total")
	if hits+misses > 0 {
		s.CacheHitRate = float64(hits) / float64(hits+misses)
	}

	var ok, total int64
	for key, count := range reg.counters["provider_requests_total"] {
		total += count
		if strings.Contains(key, "result=success") {
			ok += count
		}
	}
	if total > 0 {
		s.ProviderSuccessRate = float64(ok) / float64(total)
	}

	var samples []float64
	for _, v := range reg.hist["provider_latency_ms"] {
		samples = append(samples, v...)
	}
	if len(samples) > 0 {
		sort.Float64s(samples)
		p95Index := int(float64(len(samples)) * 0.95)
		if p95Index >= len(samples) {
			p95Index = len(samples) - 1
		}
		s.ProviderLatencyP95 = int64(samples[p95Index])
	}
	return s
}

func sumCounter(name string) int64 {
	var total int64
	for _, v := range reg.counters[name] {
		total += v
	}
	return total
}

// Simple health handler
func Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
