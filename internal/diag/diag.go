// Package diag is the side channel for structured diagnostic records
// emitted by providers and the aggregator. Records never affect response
// bodies; sinks decide whether they end up in logs, metrics or nowhere.
package diag

import (
	"context"
	"log/slog"
	"sort"
	"sync"
)

// Record is a single diagnostic observation, e.g. one upstream call.
type Record struct {
	At     string
	Fields map[string]any
}

// Sink accepts diagnostic records. Implementations must be safe for
// concurrent use and must not block for long.
type Sink interface {
	Emit(ctx context.Context, rec Record)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, rec Record)

func (f SinkFunc) Emit(ctx context.Context, rec Record) { f(ctx, rec) }

type nopSink struct{}

func (nopSink) Emit(context.Context, Record) {}

// Nop returns a sink that discards everything.
func Nop() Sink { return nopSink{} }

// OrNop returns s, or a no-op sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop()
	}
	return s
}

type multi []Sink

func (m multi) Emit(ctx context.Context, rec Record) {
	for _, s := range m {
		s.Emit(ctx, rec)
	}
}

// Fanout sends every record to each non-nil sink.
func Fanout(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// --- slog ---

// SlogSink writes records as structured log lines.
type SlogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogSink logs records at info level on logger (slog.Default when nil).
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger, level: slog.LevelInfo}
}

func (s *SlogSink) Emit(ctx context.Context, rec Record) {
	keys := make([]string, 0, len(rec.Fields))
	for k := range rec.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("at", rec.At))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, rec.Fields[k]))
	}
	s.logger.LogAttrs(ctx, s.level, "diag", attrs...)
}

// --- recorder ---

// Recorder keeps every record in memory. Used by tests.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

func (r *Recorder) Emit(_ context.Context, rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// Records returns a copy of everything emitted so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Find returns the records with the given At value.
func (r *Recorder) Find(at string) []Record {
	var out []Record
	for _, rec := range r.Records() {
		if rec.At == at {
			out = append(out, rec)
		}
	}
	return out
}
