// Package app wires a counting run together: input discovery, preflight
// checks, vocabulary loading, the block pipeline, the output file and the
// optional external sinks.
package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/archive"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/discovery"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/output"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/report"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/sink"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/vocabulary"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/config"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/tracing"
)

const (
	sampleWords   = 10
	sampleMaxLen  = 5
	topWords      = 10
	preflightWait = 10 * time.Second
)

// Stage span names.
const (
	stageVocabulary = "vocabulary"
	stageCount      = "count"
	stageSave       = "save"
	stageExport     = "export"
)

// Run performs one complete counting run. Nothing is written unless every
// block was counted; sinks and the run event follow the output file.
func Run(ctx context.Context, cfg *config.Config) (*report.Summary, error) {
	started := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageStartup, err, "invalid configuration")
	}

	runID := newRunID(started)
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "app")
	ctx, root := tracing.StartSpan(ctx, "run", runID)

	inputs, err := discovery.Resolve(cfg.Input)
	if err != nil {
		return nil, err
	}
	log.Info("files being used",
		"dump", inputs.Dump,
		"index", inputs.Index,
		"vocabulary", inputs.Vocabulary,
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Enabled {
		srv, err := metrics.StartServer(cfg.Metrics.Port, reg)
		if err != nil {
			return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageStartup, err, "starting metrics server")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	deps, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer deps.Close()

	if err := preflight(ctx, inputs, deps); err != nil {
		return nil, err
	}

	summary := &report.Summary{
		RunID:      runID,
		StartedAt:  started.UTC(),
		Dump:       inputs.Dump,
		Index:      inputs.Index,
		Vocabulary: inputs.Vocabulary,
		Output:     cfg.Output.Path,
	}

	var vocab *vocabulary.Set
	err = stage(ctx, m, stageVocabulary, func(ctx context.Context) error {
		var err error
		if vocab, err = vocabulary.Load(inputs.Vocabulary); err != nil {
			return err
		}
		m.VocabularySize.Set(float64(vocab.Len()))
		summary.VocabularySize = vocab.Len()
		summary.VocabularySample = vocab.Sample(sampleWords, sampleMaxLen)
		log.Info("vocabulary ready", "words", vocab.Len(), "sample", summary.VocabularySample)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var counts histogram.Table
	err = stage(ctx, m, stageCount, func(ctx context.Context) error {
		reader, err := archive.Open(inputs.Dump, inputs.Index, archive.WithMaxGroupSize(cfg.Pipeline.MaxGroupSize))
		if err != nil {
			return err
		}
		defer reader.Close()

		ex := extractor.New(vocab,
			extractor.WithNamespaces(cfg.Filter.Namespaces...),
			extractor.WithSkipRedirects(cfg.Filter.SkipRedirects),
		)
		p := pipeline.New(reader, ex,
			pipeline.WithWorkers(cfg.Pipeline.Workers),
			pipeline.WithQueueDepth(cfg.Pipeline.QueueDepth),
			pipeline.WithMaxBlocks(cfg.Pipeline.MaxBlocks),
			pipeline.WithProgress(cfg.Pipeline.ProgressInterval),
			pipeline.WithMetrics(m),
		)
		var stats pipeline.Stats
		if counts, stats, err = p.Run(ctx); err != nil {
			return err
		}
		if err := checkTotals(counts, stats, reader.Blocks()); err != nil {
			return err
		}
		log.Debug("counts reconciled",
			"blocks_read", reader.Blocks(),
			"matched", stats.Matched,
			"counted", counts.Total(),
		)
		m.DistinctWords.Set(float64(len(counts)))
		summary.Workers = stats.Workers
		summary.Blocks = stats.Blocks
		summary.Pages = stats.Pages
		summary.SkippedPages = stats.Skipped
		summary.Tokens = stats.Tokens
		summary.Matched = stats.Matched
		summary.DistinctWords = len(counts)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var entries []histogram.Entry
	err = stage(ctx, m, stageSave, func(ctx context.Context) error {
		compression, err := output.ResolveCompression(cfg.Output.Path, cfg.Output.Compression)
		if err != nil {
			return wferrors.Wrap(wferrors.ErrConfig, wferrors.StageOutput, err, "output %s", cfg.Output.Path)
		}
		entries = counts.Ranked()
		summary.Top = counts.TopN(topWords)
		return output.WriteFile(cfg.Output.Path, compression, entries)
	})
	if err != nil {
		return nil, err
	}

	if len(deps.sinks) > 0 {
		err = stage(ctx, m, stageExport, func(ctx context.Context) error {
			results, err := sink.WriteAll(ctx, deps.sinks, runID, entries, sinkPolicy(cfg.Sinks), m)
			for _, r := range results {
				summary.Sinks = append(summary.Sinks, r.Sink)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	root.End()
	root.Log()
	summary.Stages = root.Timings()
	summary.Elapsed = time.Since(started)

	if deps.publisher != nil {
		policy := sinkPolicy(cfg.Sinks)
		err := resilience.Retry(ctx, "kafka", policy.Retry, func() error {
			return resilience.WithTimeout(ctx, policy.Timeout, "kafka", func(ctx context.Context) error {
				return report.Publish(ctx, deps.publisher, summary)
			})
		})
		if err != nil {
			return nil, wferrors.Wrap(wferrors.ErrSink, wferrors.StageSink, err, "publishing run summary")
		}
	}

	log.Info("run finished",
		"distinct_words", summary.DistinctWords,
		"matched", summary.Matched,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// checkTotals verifies that the merged table holds exactly the matches the
// workers reported and that every block read was processed.
func checkTotals(counts histogram.Table, stats pipeline.Stats, blocksRead int) error {
	if total := counts.Total(); total != stats.Matched {
		return wferrors.Newf(wferrors.ErrInvariant, wferrors.StageExtract,
			"merged table holds %d words, workers matched %d", total, stats.Matched)
	}
	if blocksRead != stats.Blocks {
		return wferrors.Newf(wferrors.ErrInvariant, wferrors.StageArchive,
			"%d blocks read, %d processed", blocksRead, stats.Blocks)
	}
	return nil
}

// stage runs fn under a child span and records its wall time.
func stage(ctx context.Context, m *metrics.Metrics, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartChildSpan(ctx, name)
	err := fn(ctx)
	span.End()
	m.StageDuration.WithLabelValues(name).Set(span.Duration().Seconds())
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	return err
}

func sinkPolicy(cfg config.SinksConfig) sink.Policy {
	return sink.Policy{
		Timeout: cfg.Timeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialDelay,
		},
	}
}

// dependencies are the external systems a run exports to.
type dependencies struct {
	sinks     []sink.Sink
	publisher *kafka.Producer
	pings     map[string]func(ctx context.Context) error
	closers   []io.Closer
}

func (d *dependencies) Close() {
	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			slog.Default().With("component", "app").Warn("closing dependency", "error", err)
		}
	}
}

func connect(ctx context.Context, cfg *config.Config) (*dependencies, error) {
	deps := &dependencies{pings: make(map[string]func(ctx context.Context) error)}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			deps.Close()
			return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageSink, err, "connecting to postgres %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)
		}
		deps.closers = append(deps.closers, db)
		deps.pings["postgres"] = db.Ping
		deps.sinks = append(deps.sinks, sink.NewPostgres(db, cfg.Postgres.Table))
	}
	if cfg.Redis.Enabled {
		rdb, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			deps.Close()
			return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageSink, err, "connecting to redis %s", cfg.Redis.Addr)
		}
		deps.closers = append(deps.closers, rdb)
		deps.pings["redis"] = rdb.Ping
		deps.sinks = append(deps.sinks, sink.NewRedis(rdb, cfg.Redis.Key, cfg.Redis.BatchSize, cfg.Redis.TTL))
	}
	if cfg.Kafka.Enabled {
		kafkaCfg := cfg.Kafka
		deps.publisher = kafka.NewProducer(kafkaCfg)
		deps.closers = append(deps.closers, deps.publisher)
		deps.pings["kafka"] = func(ctx context.Context) error {
			return kafka.Ping(ctx, kafkaCfg)
		}
	}
	return deps, nil
}

// preflight checks inputs and external systems before any work is done.
func preflight(ctx context.Context, inputs discovery.Inputs, deps *dependencies) error {
	checker := health.NewChecker()
	checker.Register("dump", health.FileCheck(inputs.Dump))
	checker.Register("index", health.FileCheck(inputs.Index))
	checker.Register("vocabulary", health.FileCheck(inputs.Vocabulary))
	for name, ping := range deps.pings {
		checker.Register(name, health.PingCheck(preflightWait, ping))
	}

	result := checker.Run(ctx)
	if result.Status == health.StatusDown {
		down := result.Down()
		return wferrors.Newf(wferrors.ErrConfig, wferrors.StageStartup,
			"preflight failed for %v: %s", down, result.Components[down[0]].Message)
	}
	return nil
}

// newRunID prefixes a random uuid with the start time so run ids sort
// chronologically.
func newRunID(t time.Time) string {
	return t.UTC().Format("20060102T150405Z") + "-" + uuid.New().String()
}
