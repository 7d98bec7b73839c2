// Package discovery locates dump inputs that were not named explicitly.
package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/config"
	wferrors "github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/errors"
)

var (
	DumpPattern       = regexp.MustCompile(`^enwiki-\d+-pages-articles-multistream\.xml\.bz2$`)
	VocabularyPattern = regexp.MustCompile(`^enwiktionary-\d+-pages-articles-multistream-index\.txt\.bz2$`)
)

const (
	dumpSuffix  = ".xml.bz2"
	indexSuffix = "-index.txt.bz2"
)

// Inputs are the three files a run reads.
type Inputs struct {
	Dump       string
	Index      string
	Vocabulary string
}

// Find returns the file in dir whose name matches re. When several dumps
// are present the newest (the lexically greatest date stamp) wins.
func Find(dir string, re *regexp.Regexp) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", wferrors.Wrap(wferrors.ErrConfig, wferrors.StageStartup, err, "searching %s", dir)
	}
	var matches []string
	for _, e := range entries {
		if e.Type().IsRegular() && re.MatchString(e.Name()) {
			matches = append(matches, e.Name())
		}
	}
	if len(matches) == 0 {
		return "", wferrors.Newf(wferrors.ErrConfig, wferrors.StageStartup,
			"no file matching %s found in %s", re, dir)
	}
	sort.Strings(matches)
	return filepath.Join(dir, matches[len(matches)-1]), nil
}

// IndexFor derives the index path of a multistream dump.
func IndexFor(dumpPath string) (string, error) {
	if !strings.HasSuffix(dumpPath, dumpSuffix) {
		return "", wferrors.Newf(wferrors.ErrConfig, wferrors.StageStartup,
			"cannot derive index path from %s: expected a %s suffix", dumpPath, dumpSuffix)
	}
	return strings.TrimSuffix(dumpPath, dumpSuffix) + indexSuffix, nil
}

// Resolve fills in every path cfg leaves empty and checks that all three
// files exist.
func Resolve(cfg config.InputConfig) (Inputs, error) {
	dir := cfg.SearchDir
	if dir == "" {
		dir = "."
	}
	in := Inputs{Dump: cfg.Dump, Index: cfg.Index, Vocabulary: cfg.Vocabulary}

	var err error
	if in.Dump == "" {
		if in.Dump, err = Find(dir, DumpPattern); err != nil {
			return Inputs{}, err
		}
	}
	if in.Index == "" {
		if in.Index, err = IndexFor(in.Dump); err != nil {
			return Inputs{}, err
		}
	}
	if in.Vocabulary == "" {
		if in.Vocabulary, err = Find(dir, VocabularyPattern); err != nil {
			return Inputs{}, err
		}
	}

	for _, path := range []string{in.Dump, in.Index, in.Vocabulary} {
		info, err := os.Stat(path)
		if err != nil {
			return Inputs{}, wferrors.Wrap(wferrors.ErrConfig, wferrors.StageStartup, err, "input %s", path)
		}
		if info.IsDir() {
			return Inputs{}, wferrors.Newf(wferrors.ErrConfig, wferrors.StageStartup, "input %s is a directory", path)
		}
	}
	return in, nil
}
