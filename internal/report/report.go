// Package report summarises a finished run for the terminal and for
// downstream consumers of run events.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Adithya-Monish-Kumar-K/wikifreq/internal/histogram"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/wikifreq/pkg/tracing"
)

// Summary describes one counting run.
type Summary struct {
	RunID            string            `json:"run_id"`
	StartedAt        time.Time         `json:"started_at"`
	Dump             string            `json:"dump"`
	Index            string            `json:"index"`
	Vocabulary       string            `json:"vocabulary"`
	Output           string            `json:"output"`
	VocabularySize   int               `json:"vocabulary_size"`
	VocabularySample []string          `json:"vocabulary_sample,omitempty"`
	Workers          int               `json:"workers"`
	Blocks           int               `json:"blocks"`
	Pages            int               `json:"pages"`
	SkippedPages     int               `json:"skipped_pages"`
	Tokens           uint64            `json:"tokens"`
	Matched          uint64            `json:"matched"`
	DistinctWords    int               `json:"distinct_words"`
	Top              []histogram.Entry `json:"top"`
	Stages           []tracing.Timing  `json:"stages"`
	Sinks            []string          `json:"sinks,omitempty"`
	Elapsed          time.Duration     `json:"elapsed"`
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("33"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	wordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1)
)

// Render writes the boxed summary to w.
func Render(w io.Writer, s *Summary) {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Word frequencies counted"))
	b.WriteString("\n")

	b.WriteString(dimStyle.Render("Files being used:"))
	for _, path := range []string{s.Dump, s.Index, s.Vocabulary} {
		fmt.Fprintf(&b, "\n  %s", path)
	}

	fmt.Fprintf(&b, "\n%s %s words", dimStyle.Render("Vocabulary:"), formatNumber(uint64(s.VocabularySize)))
	if len(s.VocabularySample) > 0 {
		fmt.Fprintf(&b, "\n%s %s", dimStyle.Render("A few words:"), strings.Join(s.VocabularySample, ", "))
	}

	fmt.Fprintf(&b, "\n%s %s  %s %s  %s %d",
		dimStyle.Render("Blocks:"), formatNumber(uint64(s.Blocks)),
		dimStyle.Render("Pages:"), formatNumber(uint64(s.Pages)),
		dimStyle.Render("Workers:"), s.Workers,
	)
	fmt.Fprintf(&b, "\n%s %s  %s %s  %s %s",
		dimStyle.Render("Tokens:"), formatNumber(s.Tokens),
		dimStyle.Render("Matched:"), formatNumber(s.Matched),
		dimStyle.Render("Distinct:"), formatNumber(uint64(s.DistinctWords)),
	)

	for _, stage := range s.Stages {
		fmt.Fprintf(&b, "\n%s %s", dimStyle.Render(stageLabel(stage.Name)+":"), stage.Duration.Round(time.Millisecond))
	}

	if len(s.Top) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Top words:"))
		for i, e := range s.Top {
			fmt.Fprintf(&b, "\n  %2d. %s %s", i+1, wordStyle.Render(e.Word), formatNumber(e.Count))
		}
	}

	fmt.Fprintf(&b, "\n%s %s", dimStyle.Render("Output:"), s.Output)
	if len(s.Sinks) > 0 {
		fmt.Fprintf(&b, "  %s %s", dimStyle.Render("Exported to:"), strings.Join(s.Sinks, ", "))
	}
	fmt.Fprintf(&b, "\n%s %s", dimStyle.Render("All done in"), s.Elapsed.Round(time.Millisecond))

	fmt.Fprintln(w, boxStyle.Render(b.String()))
}

func stageLabel(name string) string {
	switch name {
	case "vocabulary":
		return "Reading vocabulary took"
	case "count":
		return "Counting words took"
	case "save":
		return "Sorting and saving took"
	case "export":
		return "Exporting took"
	}
	return name
}

// formatNumber adds thousands separators.
func formatNumber(n uint64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// EventRunFinished is the event type of a published Summary.
const EventRunFinished = "wikifreq.run.finished"

// Publisher delivers run events.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Publish sends s keyed by its run id.
func Publish(ctx context.Context, p Publisher, s *Summary) error {
	event := kafka.Event{Key: s.RunID, Type: EventRunFinished, Value: s}
	if err := p.Publish(ctx, event); err != nil {
		return fmt.Errorf("publishing run summary %s: %w", s.RunID, err)
	}
	return nil
}
