package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/archive"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/testutil"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/vocabulary"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

func blockOf(pages ...testutil.Page) *archive.Block {
	var b strings.Builder
	b.WriteString("<dummyroot>")
	descs := make([]archive.Descriptor, 0, len(pages))
	for _, p := range pages {
		b.WriteString(p.XML())
		descs = append(descs, archive.Descriptor{Offset: 600, ID: p.ID, Title: p.Title})
	}
	b.WriteString("</dummyroot>")
	return &archive.Block{Descriptors: descs, Content: []byte(b.String())}
}

func TestExtractFiltersAndNormalizes(t *testing.T) {
	ex := New(vocabulary.NewSet("cat", "dog"))

	counts, stats, err := ex.Extract(blockOf(testutil.Page{
		ID: 1, Title: "Cats", Text: "The cat sat. A CAT! dog-dog's",
	}))
	require.NoError(t, err)

	assert.Equal(t, histogram.Table{"cat": 2}, counts)
	assert.Equal(t, Stats{Pages: 1, Tokens: 6, Matched: 2}, stats)
}

func TestExtractSkipsMarkup(t *testing.T) {
	ex := New(vocabulary.NewSet("cat", "dog", "owl", "infobox"))
	text := "{{Infobox dog}} A [[dog]] and a cat <ref>owl</ref>.\n== See also ==\ncat cat"

	counts, _, err := ex.Extract(blockOf(testutil.Page{ID: 1, Title: "Mixed", Text: text}))
	require.NoError(t, err)

	assert.Equal(t, histogram.Table{"cat": 1, "owl": 1}, counts)
}

func TestExtractAllPagesOfBlock(t *testing.T) {
	ex := New(vocabulary.NewSet("cat", "dog"))

	counts, stats, err := ex.Extract(blockOf(
		testutil.Page{ID: 1, Title: "One", Text: "cat dog"},
		testutil.Page{ID: 2, Title: "Two", Text: "dog dog"},
		testutil.Page{ID: 3, Title: "Three", Redirect: "One", Text: "#REDIRECT [[One]] cat"},
	))
	require.NoError(t, err)

	assert.Equal(t, histogram.Table{"cat": 2, "dog": 3}, counts)
	assert.Equal(t, 3, stats.Pages)
}

func TestExtractFilters(t *testing.T) {
	vocab := vocabulary.NewSet("cat")
	block := blockOf(
		testutil.Page{ID: 1, Title: "Article", NS: 0, Text: "cat"},
		testutil.Page{ID: 2, Title: "Talk:Article", NS: 1, Text: "cat cat"},
		testutil.Page{ID: 3, Title: "Kitty", NS: 0, Redirect: "Article", Text: "cat"},
	)

	counts, stats, err := New(vocab, WithNamespaces(0), WithSkipRedirects(true)).Extract(block)
	require.NoError(t, err)
	assert.Equal(t, histogram.Table{"cat": 1}, counts)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 2, stats.Skipped)

	counts, _, err = New(vocab, WithNamespaces()).Extract(block)
	require.NoError(t, err)
	assert.Equal(t, histogram.Table{"cat": 4}, counts)
}

func TestExtractIsDeterministic(t *testing.T) {
	ex := New(vocabulary.NewSet("cat", "dog"))
	block := blockOf(testutil.Page{ID: 1, Title: "A", Text: "cat dog cat [[dog]] dog"})

	first, _, err := ex.Extract(block)
	require.NoError(t, err)
	second, _, err := ex.Extract(block)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExtractMalformedXML(t *testing.T) {
	ex := New(vocabulary.NewSet("cat"))
	block := &archive.Block{
		Descriptors: []archive.Descriptor{{Offset: 600, ID: 1, Title: "Broken"}},
		Content:     []byte("<dummyroot><page><title>Broken</title><revision><text>cat</revision></page></dummyroot>"),
	}

	_, _, err := ex.Extract(block)
	require.Error(t, err)
	assert.True(t, wferrors.Is(err, wferrors.ErrFormat))
	assert.Contains(t, err.Error(), "Broken")
}

func TestStatsAdd(t *testing.T) {
	s := Stats{Pages: 1, Tokens: 10, Matched: 3}
	s.Add(Stats{Pages: 2, Skipped: 1, Tokens: 5, Matched: 1})
	assert.Equal(t, Stats{Pages: 3, Skipped: 1, Tokens: 15, Matched: 4}, s)
}
