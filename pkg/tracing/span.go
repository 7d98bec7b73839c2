// Package tracing records the stage timings of a run as a tree of spans
// carried through contexts. A finished tree is logged through slog, one
// record per span.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type spanKey struct{}

// Span is one timed operation. Children are started with StartChildSpan on
// a context carrying the parent.
type Span struct {
	Name    string
	TraceID string
	Start   time.Time

	mu       sync.Mutex
	duration time.Duration
	ended    bool
	children []*Span
	attrs    []slog.Attr
}

// StartSpan creates a new root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string, traceID string) (context.Context, *Span) {
	s := &Span{Name: name, TraceID: traceID, Start: time.Now()}
	return context.WithValue(ctx, spanKey{}, s), s
}

// StartChildSpan starts a span under the one in ctx. Without a parent the
// span is a detached root with no trace id.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, Start: time.Now()}
	if parent := SpanFromContext(ctx); parent != nil {
		s.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey{}, s), s
}

// SpanFromContext returns the span carried by ctx, or nil.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// End fixes the span's duration. Later calls are ignored.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.duration = time.Since(s.Start)
		s.ended = true
	}
}

// Duration is zero until End is called.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// SetAttr attaches a key-value attribute, logged with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, slog.Any(key, value))
	s.mu.Unlock()
}

// Timing is the duration of one finished child span.
type Timing struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
}

// Timings returns the direct children of s in start order.
func (s *Span) Timings() []Timing {
	s.mu.Lock()
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	timings := make([]Timing, len(children))
	for i, c := range children {
		timings[i] = Timing{Name: c.Name, Duration: c.Duration()}
	}
	return timings
}

// Log writes the span tree depth-first to the default logger.
func (s *Span) Log() {
	s.log(slog.Default(), 0)
}

func (s *Span) log(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := append([]slog.Attr{
		slog.String("trace_id", s.TraceID),
		slog.String("span", s.Name),
		slog.Int64("duration_ms", s.duration.Milliseconds()),
		slog.Int("depth", depth),
	}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	logger.LogAttrs(context.Background(), slog.LevelInfo, "span", attrs...)
	for _, c := range children {
		c.log(logger, depth+1)
	}
}
