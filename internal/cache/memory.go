package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Store for tests and local runs.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]Entry)}
}

func (m *Memory) Append(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.Symbol] = append(m.entries[e.Symbol], e)
	return nil
}

// QueryLatest picks the greatest WrittenAt; ties go to the later append.
func (m *Memory) QueryLatest(_ context.Context, symbol string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.entries[symbol]
	if len(history) == 0 {
		return Entry{}, false, nil
	}
	latest := history[0]
	for _, e := range history[1:] {
		if !e.WrittenAt.Before(latest.WrittenAt) {
			latest = e
		}
	}
	return latest, true, nil
}

// History returns every entry written for symbol, oldest first.
func (m *Memory) History(symbol string) []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, len(m.entries[symbol]))
	copy(out, m.entries[symbol])
	return out
}

func (m *Memory) Close() error { return nil }
