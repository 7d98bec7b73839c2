// Package vocabulary loads the reference word list from a bzip2-compressed
// multistream index (lines of the form "offset:id:title"). Only titles made
// of ASCII letters become entries, lower-cased.
package vocabulary

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/dsnet/compress/bzip2"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/tokenizer"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

const maxLineSize = 1 << 20

// Set is an immutable set of vocabulary words. It is safe for concurrent
// reads once built.
type Set struct {
	words map[string]struct{}
}

// NewSet builds a Set from already-normalised words.
func NewSet(words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		s.words[w] = struct{}{}
	}
	return s
}

// Load reads a bzip2-compressed index file.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageVocabulary, err, "opening vocabulary index %s", path)
	}
	defer f.Close()

	zr, err := bzip2.NewReader(bufio.NewReaderSize(f, 1<<16), nil)
	if err != nil {
		return nil, wferrors.Wrap(wferrors.ErrIO, wferrors.StageVocabulary, err, "decoding vocabulary index %s", path)
	}
	defer zr.Close()

	set, err := Read(zr)
	if err != nil {
		return nil, err
	}
	slog.Default().With("component", "vocabulary").Info("vocabulary loaded",
		"path", path,
		"words", set.Len(),
	)
	return set, nil
}

// Read parses uncompressed index lines from r.
func Read(r io.Reader) (*Set, error) {
	s := &Set{words: make(map[string]struct{}, 1<<16)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		word, ok, err := ParseLine(line)
		if err != nil {
			return nil, wferrors.Newf(wferrors.ErrFormat, wferrors.StageVocabulary, "line %d: %v", lineNo, err)
		}
		if ok {
			s.words[word] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, wferrors.Wrap(wferrors.ErrIO, wferrors.StageVocabulary, err, "reading vocabulary index after line %d", lineNo)
	}
	return s, nil
}

// ParseLine extracts the field after the second ':' of line. ok is false when
// the field is not purely ASCII alphabetic.
func ParseLine(line string) (word string, ok bool, err error) {
	first := strings.IndexByte(line, ':')
	if first < 0 {
		return "", false, fmt.Errorf("no ':' separator in %q", line)
	}
	second := strings.IndexByte(line[first+1:], ':')
	if second < 0 {
		return "", false, fmt.Errorf("can't find 2nd ':' in %q", line)
	}
	field := line[first+1+second+1:]
	if !tokenizer.IsASCIIAlpha(field) {
		return "", false, nil
	}
	return strings.ToLower(field), true, nil
}

func (s *Set) Contains(word string) bool {
	_, ok := s.words[word]
	return ok
}

func (s *Set) Len() int {
	return len(s.words)
}

// Sample returns up to n words no longer than maxLen, in lexical order.
func (s *Set) Sample(n int, maxLen int) []string {
	short := make([]string, 0, n)
	for w := range s.words {
		if len(w) <= maxLen {
			short = append(short, w)
		}
	}
	sort.Strings(short)
	if len(short) > n {
		short = short[:n]
	}
	return short
}
