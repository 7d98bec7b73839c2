package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/archive"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/extractor"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/testutil"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/vocabulary"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/metrics"
)

var words = []string{"cat", "dog", "owl", "the", "sat", "mat", "zebra", "unlisted"}

func fixtureDump(t *testing.T, blocks int) (testutil.Dump, histogram.Table) {
	t.Helper()
	rng := rand.New(rand.NewSource(11))
	want := histogram.New()
	groups := make([][]testutil.Page, blocks)
	id := uint64(0)
	for i := range groups {
		for j := 0; j < 1+rng.Intn(4); j++ {
			id++
			text := make([]string, 20+rng.Intn(30))
			for k := range text {
				w := words[rng.Intn(len(words))]
				text[k] = w
				if w != "unlisted" {
					want.Add(w)
				}
			}
			groups[i] = append(groups[i], testutil.Page{
				ID:    id,
				Title: fmt.Sprintf("Page %d", id),
				Text:  strings.Join(text, " "),
			})
		}
	}
	return testutil.BuildDump(t, groups), want
}

func readerFor(d testutil.Dump) *archive.Reader {
	return archive.NewReader(bytes.NewReader(d.Archive), int64(len(d.Archive)),
		strings.NewReader(strings.Join(d.IndexLines, "\n")))
}

var vocab = vocabulary.NewSet("cat", "dog", "owl", "the", "sat", "mat", "zebra")

func TestRunMatchesSequentialCount(t *testing.T) {
	dump, want := fixtureDump(t, 12)

	for _, workers := range []int{1, 2, 3, 8} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			p := New(readerFor(dump), extractor.New(vocab), WithWorkers(workers), WithQueueDepth(1))

			counts, stats, err := p.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, want, counts)
			assert.Equal(t, 12, stats.Blocks)
			assert.Equal(t, workers, stats.Workers)
			assert.Equal(t, want.Total(), stats.Matched)
			assert.Equal(t, len(dump.IndexLines), stats.Pages)
		})
	}
}

func TestRunDefaults(t *testing.T) {
	p := New(readerFor(testutil.Dump{}), extractor.New(vocab))
	assert.Greater(t, p.workers, 0)
	assert.Equal(t, 2*p.workers, p.queueDepth)
}

func TestRunEmptySource(t *testing.T) {
	p := New(readerFor(testutil.Dump{}), extractor.New(vocab), WithWorkers(2))

	counts, stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
	assert.Equal(t, 0, stats.Blocks)
}

func TestRunMaxBlocks(t *testing.T) {
	dump, _ := fixtureDump(t, 6)
	p := New(readerFor(dump), extractor.New(vocab), WithWorkers(2), WithMaxBlocks(2))

	_, stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Blocks)
}

type failingSource struct {
	inner BlockSource
	after int
	n     int
	err   error
}

func (s *failingSource) Next() (*archive.Block, error) {
	if s.n == s.after {
		return nil, s.err
	}
	s.n++
	return s.inner.Next()
}

func TestRunSourceErrorAbortsRun(t *testing.T) {
	dump, _ := fixtureDump(t, 6)
	boom := errors.New("seek failed")
	src := &failingSource{inner: readerFor(dump), after: 3, err: boom}

	counts, _, err := New(src, extractor.New(vocab), WithWorkers(4)).Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Nil(t, counts)
}

type failingExtractor struct {
	mu    sync.Mutex
	calls int
}

func (f *failingExtractor) ExtractInto(block *archive.Block, counts histogram.Table, stats *extractor.Stats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls == 2 {
		return fmt.Errorf("failed to parse xml in %s", block)
	}
	counts.Add("cat")
	return nil
}

func TestRunExtractorErrorAbortsRun(t *testing.T) {
	dump, _ := fixtureDump(t, 8)

	counts, _, err := New(readerFor(dump), &failingExtractor{}, WithWorkers(3)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse xml")
	assert.Nil(t, counts)
}

type endlessSource struct {
	block *archive.Block
}

func (s endlessSource) Next() (*archive.Block, error) {
	return s.block, nil
}

func TestRunHonoursCancellation(t *testing.T) {
	dump, _ := fixtureDump(t, 1)
	block, err := readerFor(dump).Next()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ex := &cancellingExtractor{inner: extractor.New(vocab), cancel: cancel, after: 5}

	_, _, err = New(endlessSource{block: block}, ex, WithWorkers(2)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

type cancellingExtractor struct {
	inner  BlockExtractor
	cancel context.CancelFunc
	after  int
	mu     sync.Mutex
	calls  int
}

func (c *cancellingExtractor) ExtractInto(block *archive.Block, counts histogram.Table, stats *extractor.Stats) error {
	c.mu.Lock()
	c.calls++
	if c.calls == c.after {
		c.cancel()
	}
	c.mu.Unlock()
	return c.inner.ExtractInto(block, counts, stats)
}

func TestRunRecordsMetrics(t *testing.T) {
	dump, want := fixtureDump(t, 5)
	m := metrics.New(prometheus.NewRegistry())

	_, _, err := New(readerFor(dump), extractor.New(vocab), WithWorkers(2), WithMetrics(m)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5.0, promtestutil.ToFloat64(m.BlocksRead))
	assert.Equal(t, 5.0, promtestutil.ToFloat64(m.BlocksProcessed))
	assert.Equal(t, float64(want.Total()), promtestutil.ToFloat64(m.WordsMatched))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(m.ActiveWorkers))
}

func TestReaderEOFIsNotAnError(t *testing.T) {
	_, err := readerFor(testutil.Dump{}).Next()
	assert.ErrorIs(t, err, io.EOF)
}
