package vocabulary

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/testutil"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

func TestParseLine(t *testing.T) {
	word, ok, err := ParseLine("a:b:Run")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "run", word)

	_, ok, err = ParseLine("a:b:R2D2")
	require.NoError(t, err)
	assert.False(t, ok)

	word, ok, err = ParseLine("1:2:x:y")
	require.NoError(t, err)
	assert.False(t, ok, "field %q contains a colon", word)

	_, ok, err = ParseLine("1:2:")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = ParseLine("no separators")
	assert.Error(t, err)
	_, _, err = ParseLine("one:separator")
	assert.Error(t, err)
}

func TestRead(t *testing.T) {
	input := strings.Join([]string{
		"600:1:Run",
		"",
		"600:2:dog",
		"600:3:ice cream",
		"600:4:café",
		"1600:5:CAT",
		"1600:6:4chan",
	}, "\n")

	set, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	for _, w := range []string{"run", "dog", "cat"} {
		assert.True(t, set.Contains(w), w)
	}
	assert.False(t, set.Contains("Run"))
	assert.False(t, set.Contains("4chan"))
}

func TestReadReportsLineNumber(t *testing.T) {
	_, err := Read(strings.NewReader("600:1:ok\n\nbroken line\n"))
	require.Error(t, err)
	assert.True(t, wferrors.Is(err, wferrors.ErrFormat))
	assert.Contains(t, err.Error(), "line 3")
}

func TestLoadCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enwiktionary-20240101-pages-articles-multistream-index.txt.bz2")
	testutil.WriteVocabulary(t, path, "cat", "Dog", "x-ray", "owl")

	set, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contains("dog"))
	assert.False(t, set.Contains("xray"))
}

// Wiktionary indexes are themselves multistream: every stream must be read.
func TestLoadConcatenatedStreams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt.bz2")
	data := append(testutil.Bzip2(t, []byte("1:1:Cat\n1:2:Dog\n")), testutil.Bzip2(t, []byte("9:3:Owl\n"))...)
	testutil.WriteFile(t, path, data)

	set, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Contains("owl"))
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.txt.bz2")
	testutil.WriteFile(t, path, []byte("not bzip2 at all"))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, wferrors.Is(err, wferrors.ErrIO))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bz2"))
	require.Error(t, err)
	assert.True(t, wferrors.Is(err, wferrors.ErrConfig))
}

func TestSample(t *testing.T) {
	set := NewSet("cat", "dog", "elephant", "owl", "ant")

	assert.Equal(t, []string{"ant", "cat"}, set.Sample(2, 5))
	assert.Equal(t, []string{"ant", "cat", "dog", "owl"}, set.Sample(10, 3))
}
