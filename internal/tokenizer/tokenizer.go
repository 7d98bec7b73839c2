// Package tokenizer turns raw wiki markup into normalised words. HTML tags
// are stripped first; the remaining text is scanned left to right, skipping
// templates, links, table openers, redirect markers and URLs, and stopping
// at a "See Also" or "External Links" heading. Every emitted word is reduced
// to its ASCII letters and lower-cased.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Compiled once; regexp.Regexp is safe for concurrent use.
var (
	templateRe = regexp.MustCompile(`(?s)\A\{\{.+?\}\}`)
	linkRe     = regexp.MustCompile(`(?s)\A\[.+?\]`)
	tableRe    = regexp.MustCompile(`\A\{\|`)
	redirectRe = regexp.MustCompile(`(?i)\A#REDIRECT`)
	urlRe      = regexp.MustCompile(`\Ahttps?://(www\.)?[-a-zA-Z0-9@:%._\+~#=]{1,256}\.[a-zA-Z0-9()]{1,6}\b([-a-zA-Z0-9()@:%_\+.~#?&//=]*)`)
	wordRe     = regexp.MustCompile(`\A[\p{L}\p{M}\p{Nd}\p{Nl}\p{Pc}\x{200C}\x{200D}](?:[.\-']?[\p{L}\p{M}\p{Nd}\p{Nl}\p{Pc}\x{200C}\x{200D}]+)*`)
	sectionRe  = regexp.MustCompile(`(?i)\A=+\W*(?:See Also|External Links)\W*=+`)
)

// skip rules in precedence order, keyed by the byte they must start with.
var skipRules = map[byte][]*regexp.Regexp{
	'{': {templateRe, tableRe},
	'[': {linkRe},
	'#': {redirectRe},
	'h': {urlRe},
}

// Tokenize returns the normalised words of text in order.
func Tokenize(text string) []string {
	words := make([]string, 0, len(text)/8)
	Each(text, func(word string) {
		words = append(words, word)
	})
	return words
}

// Each calls fn for every normalised word of text in order.
func Each(text string, fn func(word string)) {
	scan(StripTags(text), fn)
}

func scan(text string, fn func(word string)) {
	pos := 0
outer:
	for pos < len(text) {
		rest := text[pos:]

		for _, re := range skipRules[rest[0]] {
			if loc := re.FindStringIndex(rest); loc != nil {
				pos += loc[1]
				continue outer
			}
		}

		if loc := wordRe.FindStringIndex(rest); loc != nil {
			if word := Normalize(rest[:loc[1]]); word != "" {
				fn(word)
			}
			pos += loc[1]
			continue
		}

		if rest[0] == '=' && sectionRe.MatchString(rest) {
			return
		}

		_, size := utf8.DecodeRuneInString(rest)
		pos += size
	}
}

// Normalize keeps only the ASCII letters of s, lower-cased.
func Normalize(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			b.WriteByte(c)
		case c >= 'A' && c <= 'Z':
			b.WriteByte(c + ('a' - 'A'))
		}
	}
	return b.String()
}

// IsASCIIAlpha reports whether s is non-empty and made of ASCII letters only.
func IsASCIIAlpha(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}

var fragmentContext = &html.Node{
	Type:     html.ElementNode,
	Data:     "body",
	DataAtom: atom.Body,
}

// StripTags removes HTML-style tags and comments from text, keeping the text
// nodes trimmed and joined by single spaces.
func StripTags(text string) string {
	if strings.IndexByte(text, '<') < 0 && strings.IndexByte(text, '&') < 0 {
		return strings.TrimSpace(text)
	}
	nodes, err := html.ParseFragment(strings.NewReader(text), fragmentContext)
	if err != nil {
		return strings.TrimSpace(text)
	}
	parts := make([]string, 0, len(nodes))
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
