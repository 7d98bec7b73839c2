// Package testutil builds small multistream dump fixtures: a bzip2 archive
// whose pages are packed into independently compressed streams, the
// matching "offset:id:title" index and a vocabulary index.
package testutil

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dsnet/compress/bzip2"
)

const (
	DumpHeader = "<mediawiki xmlns=\"http://www.mediawiki.org/xml/export-0.10/\" xml:lang=\"en\">\n" +
		"  <siteinfo>\n    <sitename>Wikipedia</sitename>\n  </siteinfo>\n"
	DumpFooter = "</mediawiki>\n"
)

// Page is one article record in a fixture dump.
type Page struct {
	ID       uint64
	Title    string
	NS       int
	Redirect string
	Text     string
}

// XML renders p the way dumps serialise a page.
func (p Page) XML() string {
	var b strings.Builder
	b.WriteString("  <page>\n")
	fmt.Fprintf(&b, "    <title>%s</title>\n", html.EscapeString(p.Title))
	fmt.Fprintf(&b, "    <ns>%d</ns>\n", p.NS)
	fmt.Fprintf(&b, "    <id>%d</id>\n", p.ID)
	if p.Redirect != "" {
		fmt.Fprintf(&b, "    <redirect title=\"%s\" />\n", html.EscapeString(p.Redirect))
	}
	b.WriteString("    <revision>\n")
	fmt.Fprintf(&b, "      <id>%d</id>\n", p.ID*10)
	b.WriteString("      <model>wikitext</model>\n")
	fmt.Fprintf(&b, "      <text bytes=\"%d\" xml:space=\"preserve\">%s</text>\n", len(p.Text), html.EscapeString(p.Text))
	b.WriteString("    </revision>\n")
	b.WriteString("  </page>\n")
	return b.String()
}

// Dump is an in-memory multistream archive plus its index lines.
type Dump struct {
	Archive    []byte
	IndexLines []string
	Offsets    []uint64
}

// Bzip2 compresses data into a single bzip2 stream.
func Bzip2(t testing.TB, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestSpeed})
	if err != nil {
		t.Fatalf("creating bzip2 writer: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("compressing fixture: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing bzip2 writer: %v", err)
	}
	return buf.Bytes()
}

// BuildDump packs each group of pages into its own bzip2 stream, framed by a
// header stream and a footer stream like a real multistream dump.
func BuildDump(t testing.TB, groups [][]Page) Dump {
	t.Helper()
	var archive bytes.Buffer
	archive.Write(Bzip2(t, []byte(DumpHeader)))

	d := Dump{}
	for _, group := range groups {
		offset := uint64(archive.Len())
		var xml strings.Builder
		for _, p := range group {
			xml.WriteString(p.XML())
			d.IndexLines = append(d.IndexLines, fmt.Sprintf("%d:%d:%s", offset, p.ID, p.Title))
		}
		archive.Write(Bzip2(t, []byte(xml.String())))
		d.Offsets = append(d.Offsets, offset)
	}
	archive.Write(Bzip2(t, []byte(DumpFooter)))
	d.Archive = archive.Bytes()
	return d
}

// Index returns the compressed index.
func (d Dump) Index(t testing.TB) []byte {
	t.Helper()
	return Bzip2(t, []byte(strings.Join(d.IndexLines, "\n")+"\n"))
}

// WriteFiles stores the archive and its index in dir and returns their paths.
func (d Dump) WriteFiles(t testing.TB, dir string, name string) (dumpPath, indexPath string) {
	t.Helper()
	dumpPath = filepath.Join(dir, name+"-pages-articles-multistream.xml.bz2")
	indexPath = filepath.Join(dir, name+"-pages-articles-multistream-index.txt.bz2")
	WriteFile(t, dumpPath, d.Archive)
	WriteFile(t, indexPath, d.Index(t))
	return dumpPath, indexPath
}

// WriteVocabulary writes a compressed vocabulary index built from the given
// titles; ids and offsets are synthetic.
func WriteVocabulary(t testing.TB, path string, titles ...string) {
	t.Helper()
	var b strings.Builder
	for i, title := range titles {
		fmt.Fprintf(&b, "%d:%d:%s\n", 600+i/100*1000, i+1, title)
	}
	WriteFile(t, path, Bzip2(t, []byte(b.String())))
}

func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
