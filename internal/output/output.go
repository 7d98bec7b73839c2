// Package output writes the ranked frequency list: one "word count" line per
// entry, optionally compressed with gzip or zstd.
package output

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

// Compression selects the encoding of the output file.
type Compression string

const (
	CompressionAuto Compression = "auto"
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// ResolveCompression turns a configured setting into a concrete encoding.
// "auto" and "" pick by file suffix.
func ResolveCompression(path string, setting string) (Compression, error) {
	switch c := Compression(strings.ToLower(setting)); c {
	case "", CompressionAuto:
		switch strings.ToLower(filepath.Ext(path)) {
		case ".gz":
			return CompressionGzip, nil
		case ".zst", ".zstd":
			return CompressionZstd, nil
		}
		return CompressionNone, nil
	case CompressionNone, CompressionGzip, CompressionZstd:
		return c, nil
	default:
		return "", fmt.Errorf("unknown compression %q", setting)
	}
}

// Write renders entries to w, one line each, in the order given.
func Write(w io.Writer, entries []histogram.Entry) error {
	bw := bufio.NewWriterSize(w, 1<<20)
	buf := make([]byte, 0, 64)
	for _, e := range entries {
		buf = append(buf[:0], e.Word...)
		buf = append(buf, ' ')
		buf = strconv.AppendUint(buf, e.Count, 10)
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes entries to path. The list is assembled in a temporary file
// next to path and renamed into place, so a failed run never leaves a
// truncated list behind.
func WriteFile(path string, compression Compression, entries []histogram.Entry) error {
	logger := slog.Default().With("component", "output")

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return wferrors.Wrap(wferrors.ErrIO, wferrors.StageOutput, err, "creating output file for %s", path)
	}
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := encode(tmp, compression, entries); err != nil {
		return wferrors.Wrap(wferrors.ErrIO, wferrors.StageOutput, err, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		return wferrors.Wrap(wferrors.ErrIO, wferrors.StageOutput, err, "closing %s", path)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return wferrors.Wrap(wferrors.ErrIO, wferrors.StageOutput, err, "setting mode of %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return wferrors.Wrap(wferrors.ErrIO, wferrors.StageOutput, err, "renaming output into %s", path)
	}
	committed = true

	logger.Info("frequency list written",
		"path", path,
		"compression", string(compression),
		"entries", len(entries),
	)
	return nil
}

func encode(w io.Writer, compression Compression, entries []histogram.Entry) error {
	switch compression {
	case CompressionGzip:
		gz, err := gzip.NewWriterLevel(w, gzip.DefaultCompression)
		if err != nil {
			return err
		}
		if err := Write(gz, entries); err != nil {
			gz.Close()
			return err
		}
		return gz.Close()
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if err := Write(enc, entries); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	default:
		return Write(w, entries)
	}
}

// Open returns a reader over the decoded contents of a list written by
// WriteFile.
func Open(path string, compression Compression) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch compression {
	case CompressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return multiCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
	case CompressionZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return multiCloser{Reader: dec, closers: []io.Closer{closerFunc(func() error { dec.Close(); return nil }), f}}, nil
	default:
		return f, nil
	}
}

// ReadTop parses the first n entries of a list written by WriteFile; n <= 0
// reads every entry.
func ReadTop(path string, compression Compression, n int) ([]histogram.Entry, error) {
	r, err := Open(path, compression)
	if err != nil {
		return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageOutput, err, "opening %s", path)
	}
	defer r.Close()

	var entries []histogram.Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for (n <= 0 || len(entries) < n) && scanner.Scan() {
		lineNo++
		word, count, ok := strings.Cut(scanner.Text(), " ")
		if !ok || word == "" {
			return nil, wferrors.Newf(wferrors.ErrFormat, wferrors.StageOutput, "%s line %d: want \"word count\"", path, lineNo)
		}
		c, err := strconv.ParseUint(count, 10, 64)
		if err != nil {
			return nil, wferrors.Newf(wferrors.ErrFormat, wferrors.StageOutput, "%s line %d: %v", path, lineNo, err)
		}
		entries = append(entries, histogram.Entry{Word: word, Count: c})
	}
	if err := scanner.Err(); err != nil {
		return nil, wferrors.Wrap(wferrors.ErrIO, wferrors.StageOutput, err, "reading %s", path)
	}
	return entries, nil
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m multiCloser) Close() error {
	var first error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
