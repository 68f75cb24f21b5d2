// Package devlog collects diagnostic entries from the generation pipeline:
// session initialisations, health probes, model requests and responses,
// speech synthesis attempts and errors.
//
// Recording is fire-and-forget; a sink must never block or fail the caller.
// Sinks compose through Tee, so a deployment typically fans out to the
// in-memory ring (served over the API), the live websocket stream, slog, and
// optionally Postgres for retention.
package devlog

import (
	"log/slog"
	"sync"
	"time"
)

// Kind classifies a diagnostic entry.
type Kind string

const (
	KindSessionInit Kind = "session-init"
	KindHealthCheck Kind = "health-check"
	KindCardFront   Kind = "card-front"
	KindCardBack    Kind = "card-back"
	KindSpeech      Kind = "speech"
	KindOffline     Kind = "offline-draw"
	KindError       Kind = "error"
)

// Entry is one recorded pipeline event.
type Entry struct {
	Kind       Kind      `json:"kind"`
	RequestAt  time.Time `json:"requestAt"`
	ResponseAt time.Time `json:"responseAt"`

	// Input is the prompt, probe target or request summary.
	Input string `json:"input"`

	// Output is the (possibly truncated) response summary.
	Output string `json:"output,omitempty"`

	// Error carries the failure message, empty on success.
	Error string `json:"error,omitempty"`
}

// Sink consumes entries. Implementations must be safe for concurrent use and
// must not block.
type Sink interface {
	Record(e Entry)
}

// Discard drops every entry.
var Discard Sink = discard{}

type discard struct{}

func (discard) Record(Entry) {}

// Ring keeps the most recent entries in memory.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	max     int
}

// Compile-time interface assertion.
var _ Sink = (*Ring)(nil)

// NewRing creates a ring keeping up to max entries. max must be positive.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = 1
	}
	return &Ring{max: max}
}

// Record appends e, evicting the oldest entry when full.
func (r *Ring) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	if len(r.entries) > r.max {
		r.entries = r.entries[len(r.entries)-r.max:]
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Tee fans every entry out to all sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Record(e Entry) {
	for _, s := range t {
		s.Record(e)
	}
}

// SlogSink mirrors entries into structured logs at debug level, errors at
// warn.
type SlogSink struct {
	Logger *slog.Logger
}

// Compile-time interface assertion.
var _ Sink = (*SlogSink)(nil)

func (s *SlogSink) Record(e Entry) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if e.Error != "" {
		logger.Warn("devlog entry",
			"kind", e.Kind,
			"input", e.Input,
			"error", e.Error,
			"duration", e.ResponseAt.Sub(e.RequestAt),
		)
		return
	}
	logger.Debug("devlog entry",
		"kind", e.Kind,
		"input", e.Input,
		"duration", e.ResponseAt.Sub(e.RequestAt),
	)
}
