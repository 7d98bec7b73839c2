// Package sink exports a finished frequency list to external stores. Sinks
// run only after the list file is safely on disk; each export is bounded by
// a timeout and retried with backoff.
package sink

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/resilience"
)

// Sink stores one run's ranked entries. Write must be idempotent per runID:
// a retried write replaces, never duplicates.
type Sink interface {
	Name() string
	Write(ctx context.Context, runID string, entries []histogram.Entry) error
}

// Policy bounds every sink write.
type Policy struct {
	Timeout time.Duration
	Retry   resilience.RetryConfig
}

// Result reports one sink's export.
type Result struct {
	Sink    string
	Entries int
	Elapsed time.Duration
}

// WriteAll exports entries to every sink concurrently. The first failure is
// returned classified as ErrSink; the others are still allowed to finish.
func WriteAll(ctx context.Context, sinks []Sink, runID string, entries []histogram.Entry, policy Policy, m *metrics.Metrics) ([]Result, error) {
	logger := slog.Default().With("component", "sink", "run_id", runID)
	results := make([]Result, len(sinks))

	var g errgroup.Group
	for i, s := range sinks {
		g.Go(func() error {
			start := time.Now()
			err := resilience.Retry(ctx, s.Name(), policy.Retry, func() error {
				return resilience.WithTimeout(ctx, policy.Timeout, s.Name(), func(ctx context.Context) error {
					return s.Write(ctx, runID, entries)
				})
			})
			if m != nil {
				status := "ok"
				if err != nil {
					status = "error"
				}
				m.SinkWritesTotal.WithLabelValues(s.Name(), status).Inc()
			}
			if err != nil {
				logger.Error("sink export failed", "sink", s.Name(), "error", err)
				return wferrors.Wrap(wferrors.ErrSink, wferrors.StageSink, err, "exporting to %s", s.Name())
			}
			results[i] = Result{Sink: s.Name(), Entries: len(entries), Elapsed: time.Since(start)}
			logger.Info("sink export finished",
				"sink", s.Name(),
				"entries", len(entries),
				"elapsed", results[i].Elapsed,
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
