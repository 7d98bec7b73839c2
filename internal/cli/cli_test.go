package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/testutil"
)

func TestCountCommand(t *testing.T) {
	dir := t.TempDir()
	dump, index := testutil.BuildDump(t, [][]testutil.Page{
		{{ID: 1, Title: "Cats", Text: "The cat sat on the mat"}},
	}).WriteFiles(t, dir, "custom")
	vocab := filepath.Join(dir, "words.bz2")
	testutil.WriteVocabulary(t, vocab, "Cat", "Mat", "The")
	out := filepath.Join(dir, "list.txt")

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{
		"count", "-d", dump, "-i", index, "-w", vocab, "-o", out, "-j", "2", "--log-level", "error",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "the 2\ncat 1\nmat 1\n", string(data))
	assert.Contains(t, stdout.String(), "Counting words took")
}

func TestCountCommandMissingInputs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{
		"count", "--search-dir", t.TempDir(), "--log-level", "error", "-q",
	}, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Empty(t, stdout.String())
}

func TestCountCommandBadConfigFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{
		"count", "--config", filepath.Join(t.TempDir(), "missing.yaml"),
	}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestCountCommandMalformedWorkersEnv(t *testing.T) {
	t.Setenv("WF_WORKERS", "four")
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{
		"count", "--search-dir", t.TempDir(),
	}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestUnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"count", "--bogus"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unknown flag")
}

func TestVersionCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "wikifreq dev")
}

func TestCountCommandBadLogLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{
		"count", "--search-dir", t.TempDir(), "--log-level", "loud",
	}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestTopCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt")
	require.NoError(t, os.WriteFile(path, []byte("the 9\ncat 4\nowl 1\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"top", path, "-n", "2"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, "    1  the                      9\n    2  cat                      4\n", stdout.String())
}

func TestTopCommandMissingList(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), []string{"top", filepath.Join(t.TempDir(), "none.txt")}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}
