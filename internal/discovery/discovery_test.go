package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/config"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestResolveDiscoversAllInputs(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"enwiki-20200101-pages-articles-multistream.xml.bz2",
		"enwiki-20200101-pages-articles-multistream-index.txt.bz2",
		"enwiktionary-20200120-pages-articles-multistream-index.txt.bz2",
		"notes.txt",
	)

	in, err := Resolve(config.InputConfig{SearchDir: dir})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "enwiki-20200101-pages-articles-multistream.xml.bz2"), in.Dump)
	assert.Equal(t, filepath.Join(dir, "enwiki-20200101-pages-articles-multistream-index.txt.bz2"), in.Index)
	assert.Equal(t, filepath.Join(dir, "enwiktionary-20200120-pages-articles-multistream-index.txt.bz2"), in.Vocabulary)
}

func TestResolveKeepsExplicitPaths(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "dump.bz2", "index.bz2", "words.bz2")

	in, err := Resolve(config.InputConfig{
		Dump:       filepath.Join(dir, "dump.bz2"),
		Index:      filepath.Join(dir, "index.bz2"),
		Vocabulary: filepath.Join(dir, "words.bz2"),
		SearchDir:  "/nonexistent",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "words.bz2"), in.Vocabulary)
}

func TestResolveMissingDump(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "enwiktionary-20200120-pages-articles-multistream-index.txt.bz2")

	_, err := Resolve(config.InputConfig{SearchDir: dir})
	require.Error(t, err)
	assert.Equal(t, 2, wferrors.ExitCode(err))
}

func TestResolveMissingDerivedIndex(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"enwiki-20200101-pages-articles-multistream.xml.bz2",
		"enwiktionary-20200120-pages-articles-multistream-index.txt.bz2",
	)

	_, err := Resolve(config.InputConfig{SearchDir: dir})
	require.Error(t, err)
	assert.True(t, wferrors.Is(err, wferrors.ErrConfig))
	assert.Contains(t, err.Error(), "multistream-index.txt.bz2")
}

func TestFindPrefersNewestDump(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"enwiki-20190101-pages-articles-multistream.xml.bz2",
		"enwiki-20210301-pages-articles-multistream.xml.bz2",
		"enwiki-20200101-pages-articles-multistream.xml.bz2",
		"enwiki-latest-pages-articles-multistream.xml.bz2",
	)

	got, err := Find(dir, DumpPattern)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "enwiki-20210301-pages-articles-multistream.xml.bz2"), got)
}

func TestIndexFor(t *testing.T) {
	got, err := IndexFor("/data/enwiki-20200101-pages-articles-multistream.xml.bz2")
	require.NoError(t, err)
	assert.Equal(t, "/data/enwiki-20200101-pages-articles-multistream-index.txt.bz2", got)

	_, err = IndexFor("/data/dump.xml")
	assert.True(t, wferrors.Is(err, wferrors.ErrConfig))
}
