package observ

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is the severity attached to every log event.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warning"
	LevelError Level = "error"
)

// Logger is the structured logging sink used by the quote engine.
type Logger interface {
	Log(level Level, event string, kv map[string]any)
}

// JSONLogger writes one JSON object per event.
type JSONLogger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewJSONLogger creates a logger writing JSON lines to w.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{w: w, now: time.Now}
}

func (l *JSONLogger) Log(level Level, event string, kv map[string]any) {
	out := make(map[string]any, len(kv)+3)
	for k, v := range kv {
		out[k] = v
	}
	out["ts"] = l.now().UTC().Format(time.RFC3339Nano)
	out["event"] = event
	out["level"] = string(level)
	b, err := json.Marshal(out)
	if err != nil {
		b, _ = json.Marshal(map[string]any{"event": event, "level": string(level), "marshal_error": err.Error()})
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, string(b))
}

var std Logger = NewJSONLogger(os.Stdout)

// Default returns the process logger.
func Default() Logger { return std }

// SetDefault replaces the process logger. Passing nil restores stdout.
func SetDefault(l Logger) {
	if l == nil {
		l = NewJSONLogger(os.Stdout)
	}
	std = l
}

func Log(event string, kv map[string]any) {
	std.Log(LevelInfo, event, kv)
}

func Warn(event string, kv map[string]any) {
	std.Log(LevelWarn, event, kv)
}

func Error(event string, kv map[string]any) {
	std.Log(LevelError, event, kv)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Log(Level, string, map[string]any) {}

// Event is a captured log line.
type Event struct {
	Level Level
	Name  string
	KV    map[string]any
}

// Recorder keeps events in memory, mostly for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Log(level Level, event string, kv map[string]any) {
	cp := make(map[string]any, len(kv))
	for k, v := range kv {
		cp[k] = v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Level: level, Name: event, KV: cp})
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
