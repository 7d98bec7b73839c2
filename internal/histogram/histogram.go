// Package histogram holds word occurrence tables and the associative merge
// that reduces per-worker tables into one global frequency list.
package histogram

import (
	"sort"
)

// Table maps a normalised word to its occurrence count. A Table is owned by
// a single goroutine at a time.
type Table map[string]uint64

// Entry is one ranked (word, count) pair.
type Entry struct {
	Word  string `json:"word"`
	Count uint64 `json:"count"`
}

func New() Table {
	return make(Table)
}

func (t Table) Add(word string) {
	t[word]++
}

// Merge folds other into t: the key sets are unioned and counts summed on
// collision. other is left untouched.
func (t Table) Merge(other Table) Table {
	for word, count := range other {
		t[word] += count
	}
	return t
}

// Total returns the sum of all counts.
func (t Table) Total() uint64 {
	var total uint64
	for _, count := range t {
		total += count
	}
	return total
}

// Reduce merges all tables into a fresh one.
func Reduce(tables ...Table) Table {
	size := 0
	for _, t := range tables {
		if len(t) > size {
			size = len(t)
		}
	}
	result := make(Table, size)
	for _, t := range tables {
		result.Merge(t)
	}
	return result
}

// Ranked returns every entry ordered by descending count. Ties are broken
// alphabetically so the output is reproducible across runs.
func (t Table) Ranked() []Entry {
	entries := make([]Entry, 0, len(t))
	for word, count := range t {
		entries = append(entries, Entry{Word: word, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Word < entries[j].Word
	})
	return entries
}

// TopN returns the n highest ranked entries.
func (t Table) TopN(n int) []Entry {
	ranked := t.Ranked()
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
