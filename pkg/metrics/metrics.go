// Package metrics defines the Prometheus collectors of a counting run and
// exposes an HTTP handler for scraping while the run is in progress.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for a run.
type Metrics struct {
	BlocksRead      prometheus.Counter
	BlocksProcessed prometheus.Counter
	PagesProcessed  prometheus.Counter
	PagesSkipped    prometheus.Counter
	TokensSeen      prometheus.Counter
	WordsMatched    prometheus.Counter
	BlockDuration   prometheus.Histogram
	BlockBytes      prometheus.Histogram
	QueueDepth      prometheus.Gauge
	ActiveWorkers   prometheus.Gauge
	VocabularySize  prometheus.Gauge
	DistinctWords   prometheus.Gauge
	StageDuration   *prometheus.GaugeVec
	SinkWritesTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlocksRead: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifreq_blocks_read_total",
				Help: "Compressed blocks decompressed by the archive reader.",
			},
		),
		BlocksProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifreq_blocks_processed_total",
				Help: "Blocks whose words have been counted.",
			},
		),
		PagesProcessed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifreq_pages_processed_total",
				Help: "Pages tokenized.",
			},
		),
		PagesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifreq_pages_skipped_total",
				Help: "Pages excluded by namespace or redirect filters.",
			},
		),
		TokensSeen: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifreq_tokens_total",
				Help: "Normalized tokens produced by the tokenizer.",
			},
		),
		WordsMatched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifreq_vocabulary_matches_total",
				Help: "Tokens found in the vocabulary and counted.",
			},
		),
		BlockDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wikifreq_block_duration_seconds",
				Help:    "Time spent extracting words from one block.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		BlockBytes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wikifreq_block_bytes",
				Help:    "Decompressed size of a block.",
				Buckets: prometheus.ExponentialBuckets(16*1024, 2, 10),
			},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wikifreq_queue_depth",
				Help: "Blocks waiting for a worker.",
			},
		),
		ActiveWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wikifreq_active_workers",
				Help: "Worker goroutines currently running.",
			},
		),
		VocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wikifreq_vocabulary_words",
				Help: "Words in the loaded vocabulary.",
			},
		),
		DistinctWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wikifreq_distinct_words",
				Help: "Distinct vocabulary words observed in the final histogram.",
			},
		),
		StageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wikifreq_stage_duration_seconds",
				Help: "Wall time of each run stage.",
			},
			[]string{"stage"},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikifreq_sink_writes_total",
				Help: "Histogram exports by sink and status.",
			},
			[]string{"sink", "status"},
		),
	}

	reg.MustRegister(
		m.BlocksRead,
		m.BlocksProcessed,
		m.PagesProcessed,
		m.PagesSkipped,
		m.TokensSeen,
		m.WordsMatched,
		m.BlockDuration,
		m.BlockBytes,
		m.QueueDepth,
		m.ActiveWorkers,
		m.VocabularySize,
		m.DistinctWords,
		m.StageDuration,
		m.SinkWritesTotal,
	)

	return m
}

// Handler returns the scrape handler for the collectors gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
