// Package extractor counts vocabulary words in one archive block. The block
// is parsed as XML, every page's revision text is run through the markup
// tokenizer, and words found in the vocabulary are tallied in a local table.
package extractor

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/archive"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/tokenizer"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

// Vocabulary is the read-only word filter shared by all extractors.
type Vocabulary interface {
	Contains(word string) bool
}

// Page is the subset of a dump page record the extractor reads. Field
// names follow the mediawiki export schema.
type Page struct {
	Title     string     `xml:"title"`
	Ns        uint64     `xml:"ns"`
	ID        uint64     `xml:"id"`
	Redir     Redirect   `xml:"redirect"`
	Revisions []Revision `xml:"revision"`
}

type Redirect struct {
	Title string `xml:"title,attr"`
}

type Revision struct {
	Text string `xml:"text"`
}

// Stats describes the work done on one block.
type Stats struct {
	Pages   int
	Skipped int
	Tokens  uint64
	Matched uint64
}

func (s *Stats) Add(other Stats) {
	s.Pages += other.Pages
	s.Skipped += other.Skipped
	s.Tokens += other.Tokens
	s.Matched += other.Matched
}

type Option func(*Extractor)

// WithNamespaces limits counting to pages in the given namespaces.
func WithNamespaces(ns ...int) Option {
	return func(e *Extractor) {
		if len(ns) == 0 {
			return
		}
		e.namespaces = make(map[uint64]struct{}, len(ns))
		for _, n := range ns {
			if n >= 0 {
				e.namespaces[uint64(n)] = struct{}{}
			}
		}
	}
}

// WithSkipRedirects ignores pages that only redirect elsewhere.
func WithSkipRedirects(skip bool) Option {
	return func(e *Extractor) {
		e.skipRedirects = skip
	}
}

// Extractor is stateless between calls and safe for concurrent use.
type Extractor struct {
	vocab         Vocabulary
	namespaces    map[uint64]struct{}
	skipRedirects bool
}

func New(vocab Vocabulary, opts ...Option) *Extractor {
	e := &Extractor{vocab: vocab}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the vocabulary word counts of block. A block that does not
// parse is a fatal format error: it means the index and dump disagree.
func (e *Extractor) Extract(block *archive.Block) (histogram.Table, Stats, error) {
	counts := histogram.New()
	var stats Stats
	if err := e.ExtractInto(block, counts, &stats); err != nil {
		return nil, Stats{}, err
	}
	return counts, stats, nil
}

// ExtractInto adds the vocabulary word counts of block to counts.
func (e *Extractor) ExtractInto(block *archive.Block, counts histogram.Table, stats *Stats) error {
	dec := xml.NewDecoder(bytes.NewReader(block.Content))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return wferrors.Wrap(wferrors.ErrFormat, wferrors.StageExtract, err, "failed to parse xml in %s", block)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "page" {
			continue
		}
		var page Page
		if err := dec.DecodeElement(&page, &start); err != nil {
			return wferrors.Wrap(wferrors.ErrFormat, wferrors.StageExtract, err, "failed to decode page in %s", block)
		}
		if !e.accept(&page) {
			stats.Skipped++
			continue
		}
		stats.Pages++
		for _, rev := range page.Revisions {
			tokenizer.Each(rev.Text, func(word string) {
				stats.Tokens++
				if e.vocab.Contains(word) {
					counts.Add(word)
					stats.Matched++
				}
			})
		}
	}
}

func (e *Extractor) accept(page *Page) bool {
	if e.skipRedirects && page.Redir.Title != "" {
		return false
	}
	if e.namespaces != nil {
		if _, ok := e.namespaces[page.Ns]; !ok {
			return false
		}
	}
	return true
}
