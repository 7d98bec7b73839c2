// Package pipeline fans archive blocks out to a pool of extraction workers
// and reduces their private word tables into one histogram. A single
// producer goroutine owns the block source; each worker folds the blocks it
// receives into its own table, and the tables are merged only after every
// worker has finished.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/archive"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/metrics"
)

// BlockSource yields blocks until io.EOF. It is driven by one goroutine.
type BlockSource interface {
	Next() (*archive.Block, error)
}

// BlockExtractor counts the words of one block into a caller-owned table.
// It must be safe for concurrent use.
type BlockExtractor interface {
	ExtractInto(block *archive.Block, counts histogram.Table, stats *extractor.Stats) error
}

// Stats summarises a pipeline run.
type Stats struct {
	extractor.Stats
	Blocks  int
	Workers int
	Elapsed time.Duration
}

type Option func(*Pipeline)

// WithWorkers sets the pool size; n <= 0 means runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// WithQueueDepth bounds the number of decompressed blocks waiting for a
// worker; n <= 0 means twice the worker count.
func WithQueueDepth(n int) Option {
	return func(p *Pipeline) {
		p.queueDepth = n
	}
}

// WithMaxBlocks stops reading after n blocks; 0 reads the whole source.
func WithMaxBlocks(n int) Option {
	return func(p *Pipeline) {
		p.maxBlocks = n
	}
}

// WithProgress logs progress every interval; 0 disables it.
func WithProgress(interval time.Duration) Option {
	return func(p *Pipeline) {
		p.progressInterval = interval
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

type Pipeline struct {
	source           BlockSource
	extractor        BlockExtractor
	workers          int
	queueDepth       int
	maxBlocks        int
	progressInterval time.Duration
	metrics          *metrics.Metrics
	logger           *slog.Logger

	read      atomic.Int64
	processed atomic.Int64
}

func New(source BlockSource, ex BlockExtractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    source,
		extractor: ex,
		logger:    slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers <= 0 {
		p.workers = runtime.GOMAXPROCS(0)
	}
	if p.queueDepth <= 0 {
		p.queueDepth = 2 * p.workers
	}
	return p
}

type workerResult struct {
	counts histogram.Table
	stats  extractor.Stats
}

// Run drains the source and returns the merged histogram. The first error
// from the producer or any worker cancels the others and is returned; no
// partial histogram is produced.
func (p *Pipeline) Run(ctx context.Context) (histogram.Table, Stats, error) {
	start := time.Now()
	p.logger.Info("pipeline starting",
		"workers", p.workers,
		"queue_depth", p.queueDepth,
		"max_blocks", p.maxBlocks,
	)

	g, gctx := errgroup.WithContext(ctx)
	blocks := make(chan *archive.Block, p.queueDepth)
	results := make(chan workerResult, p.workers)

	g.Go(func() error {
		defer close(blocks)
		return p.produce(gctx, blocks)
	})
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			return p.work(gctx, blocks, results)
		})
	}

	stopProgress := p.startProgress(start)
	err := g.Wait()
	stopProgress()
	close(results)
	if err != nil {
		return nil, Stats{}, err
	}

	tables := make([]histogram.Table, 0, p.workers)
	stats := Stats{Workers: p.workers, Blocks: int(p.processed.Load())}
	for r := range results {
		tables = append(tables, r.counts)
		stats.Stats.Add(r.stats)
	}
	counts := histogram.Reduce(tables...)
	stats.Elapsed = time.Since(start)

	p.logger.Info("pipeline finished",
		"blocks", stats.Blocks,
		"pages", stats.Pages,
		"tokens", stats.Tokens,
		"matched", stats.Matched,
		"distinct_words", len(counts),
		"elapsed", stats.Elapsed,
	)
	return counts, stats, nil
}

func (p *Pipeline) produce(ctx context.Context, blocks chan<- *archive.Block) error {
	for {
		if p.maxBlocks > 0 && p.read.Load() >= int64(p.maxBlocks) {
			p.logger.Info("block limit reached", "max_blocks", p.maxBlocks)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		block, err := p.source.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		p.read.Add(1)
		if p.metrics != nil {
			p.metrics.BlocksRead.Inc()
			p.metrics.BlockBytes.Observe(float64(len(block.Content)))
		}
		select {
		case blocks <- block:
			if p.metrics != nil {
				p.metrics.QueueDepth.Set(float64(len(blocks)))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pipeline) work(ctx context.Context, blocks <-chan *archive.Block, results chan<- workerResult) error {
	if p.metrics != nil {
		p.metrics.ActiveWorkers.Inc()
		defer p.metrics.ActiveWorkers.Dec()
	}
	local := histogram.New()
	var total extractor.Stats
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-blocks:
			if !ok {
				results <- workerResult{counts: local, stats: total}
				return nil
			}
			started := time.Now()
			var blockStats extractor.Stats
			if err := p.extractor.ExtractInto(block, local, &blockStats); err != nil {
				return err
			}
			total.Add(blockStats)
			p.processed.Add(1)
			if p.metrics != nil {
				p.metrics.BlocksProcessed.Inc()
				p.metrics.PagesProcessed.Add(float64(blockStats.Pages))
				p.metrics.PagesSkipped.Add(float64(blockStats.Skipped))
				p.metrics.TokensSeen.Add(float64(blockStats.Tokens))
				p.metrics.WordsMatched.Add(float64(blockStats.Matched))
				p.metrics.BlockDuration.Observe(time.Since(started).Seconds())
			}
		}
	}
}

func (p *Pipeline) startProgress(start time.Time) (stop func()) {
	if p.progressInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(p.progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				processed := p.processed.Load()
				elapsed := time.Since(start)
				p.logger.Info("counting progress",
					"blocks_read", p.read.Load(),
					"blocks_processed", processed,
					"blocks_per_sec", float64(processed)/elapsed.Seconds(),
					"elapsed", elapsed.Round(time.Second),
				)
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}
