// Package archive reads a multistream bzip2 dump through its index. Index
// lines that share a byte offset describe pages packed into the same
// compressed stream; the Reader groups them, decompresses exactly that
// stream and hands it out as a Block.
package archive

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dsnet/compress/bzip2"

	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

// DefaultMaxGroupSize bounds the number of index lines sharing one offset.
// Real dumps pack 100 pages per stream; more means the index is corrupt.
const DefaultMaxGroupSize = 100

// dumpFooter closes the root element of a dump; it lives in the final
// stream, after the last indexed pages.
var dumpFooter = []byte("</mediawiki>")

// Option configures a Reader.
type Option func(*Reader)

// WithMaxGroupSize overrides DefaultMaxGroupSize.
func WithMaxGroupSize(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxGroupSize = n
		}
	}
}

// Reader produces Blocks in index order. It owns the dump handle and is not
// safe for concurrent use.
type Reader struct {
	dump     io.ReaderAt
	dumpSize int64
	index    *bufio.Reader
	closers  []io.Closer

	pending    Descriptor
	hasPending bool
	indexDone  bool
	lineNo     int

	maxGroupSize int
	blocks       int
	logger       *slog.Logger
}

// Open opens a dump and its bzip2-compressed index.
func Open(dumpPath, indexPath string, opts ...Option) (*Reader, error) {
	dump, err := os.Open(dumpPath)
	if err != nil {
		return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageArchive, err, "opening dump file %s", dumpPath)
	}
	info, err := dump.Stat()
	if err != nil {
		dump.Close()
		return nil, wferrors.Wrap(wferrors.ErrIO, wferrors.StageArchive, err, "stat dump file %s", dumpPath)
	}
	index, err := os.Open(indexPath)
	if err != nil {
		dump.Close()
		return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageIndex, err, "opening index file %s", indexPath)
	}

	indexReader, err := bzip2.NewReader(bufio.NewReaderSize(index, 1<<16), nil)
	if err != nil {
		dump.Close()
		index.Close()
		return nil, wferrors.Wrap(wferrors.ErrIO, wferrors.StageIndex, err, "decoding index file %s", indexPath)
	}
	r := NewReader(dump, info.Size(), indexReader, opts...)
	r.closers = []io.Closer{dump, index}
	r.logger.Info("archive opened",
		"dump", dumpPath,
		"index", indexPath,
		"dump_bytes", info.Size(),
	)
	return r, nil
}

// NewReader reads blocks from dump using the uncompressed index lines in
// index.
func NewReader(dump io.ReaderAt, dumpSize int64, index io.Reader, opts ...Option) *Reader {
	r := &Reader{
		dump:         dump,
		dumpSize:     dumpSize,
		index:        bufio.NewReaderSize(index, 1<<16),
		maxGroupSize: DefaultMaxGroupSize,
		logger:       slog.Default().With("component", "archive-reader"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next returns the next block, or io.EOF once the index is exhausted. Any
// other error is fatal: the reader cannot resume mid-stream.
func (r *Reader) Next() (*Block, error) {
	group, err := r.nextGroup()
	if err != nil {
		return nil, err
	}

	start := int64(group[0].Offset)
	end := r.dumpSize
	if r.hasPending {
		end = int64(r.pending.Offset)
	}
	if start >= r.dumpSize {
		return nil, wferrors.Newf(wferrors.ErrFormat, wferrors.StageArchive,
			"block offset %d (%q) is beyond the end of the dump (%d bytes)", start, group[0].Title, r.dumpSize)
	}
	if end <= start {
		return nil, wferrors.Newf(wferrors.ErrFormat, wferrors.StageIndex,
			"index line %d: offset %d follows offset %d; offsets must increase", r.lineNo, end, start)
	}

	content, err := r.decompress(start, end)
	if err != nil {
		return nil, wferrors.Wrap(wferrors.ErrIO, wferrors.StageArchive, err,
			"decompressing block at offset %d (%q)", start, group[0].Title)
	}
	r.blocks++
	block := &Block{Descriptors: group, Content: content}
	r.logger.Debug("block read",
		"block", block.String(),
		"offset", start,
		"compressed_bytes", end-start,
	)
	return block, nil
}

// Blocks returns the number of blocks produced so far.
func (r *Reader) Blocks() int {
	return r.blocks
}

func (r *Reader) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// nextGroup collects the run of index lines sharing the first line's offset.
// The first line with a different offset is kept as lookahead for the next
// call.
func (r *Reader) nextGroup() ([]Descriptor, error) {
	group := make([]Descriptor, 0, 8)
	if r.hasPending {
		group = append(group, r.pending)
		r.hasPending = false
	}
	for {
		line, err := r.readLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wferrors.Wrap(wferrors.ErrIO, wferrors.StageIndex, err, "reading index line %d", r.lineNo+1)
		}
		desc, err := ParseIndexLine(line)
		if err != nil {
			return nil, wferrors.Newf(wferrors.ErrFormat, wferrors.StageIndex, "index line %d: %v", r.lineNo, err)
		}
		if len(group) > 0 && desc.Offset != group[0].Offset {
			r.pending = desc
			r.hasPending = true
			break
		}
		group = append(group, desc)
		if len(group) > r.maxGroupSize {
			return nil, wferrors.Newf(wferrors.ErrInvariant, wferrors.StageIndex,
				"index line %d: more than %d descriptors share offset %d", r.lineNo, r.maxGroupSize, desc.Offset)
		}
	}
	if len(group) == 0 {
		return nil, io.EOF
	}
	return group, nil
}

// readLine returns the next non-blank index line, trimmed.
func (r *Reader) readLine() (string, error) {
	for !r.indexDone {
		raw, err := r.index.ReadString('\n')
		if err == io.EOF {
			r.indexDone = true
		} else if err != nil {
			return "", err
		}
		if raw == "" {
			break
		}
		r.lineNo++
		if line := strings.TrimSpace(raw); line != "" {
			return line, nil
		}
	}
	return "", io.EOF
}

// decompress inflates the compressed bytes in [start, end) and wraps the
// result in the synthetic root element. The bzip2 reader continues across
// concatenated streams, so the section bound is what limits it to one.
func (r *Reader) decompress(start, end int64) ([]byte, error) {
	section := io.NewSectionReader(r.dump, start, end-start)
	var buf bytes.Buffer
	buf.Grow(int(end-start)*5 + len(rootOpen) + len(rootClose))
	buf.WriteString(rootOpen)
	zr, err := bzip2.NewReader(bufio.NewReaderSize(section, 1<<16), nil)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, err
	}
	body := trimDumpFooter(buf.Bytes()[len(rootOpen):])
	buf.Truncate(len(rootOpen) + len(body))
	buf.WriteString(rootClose)
	if buf.Len() == len(rootOpen)+len(rootClose) {
		return nil, fmt.Errorf("stream at offset %d is empty", start)
	}
	return buf.Bytes(), nil
}

func trimDumpFooter(body []byte) []byte {
	trimmed := bytes.TrimRight(body, " \t\r\n")
	if bytes.HasSuffix(trimmed, dumpFooter) {
		return trimmed[:len(trimmed)-len(dumpFooter)]
	}
	return body
}
