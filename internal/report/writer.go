package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/pagecrawl/internal/model"
)

// Format names an output format.
type Format string

const (
	// FormatText is human-readable text.
	FormatText Format = "text"

	// FormatJSON is newline-delimited JSON.
	FormatJSON Format = "json"

	// FormatMarkdown is a Markdown document.
	FormatMarkdown Format = "markdown"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatMarkdown}
}

// ParseFormat converts a format name, case-insensitively. "md" is accepted
// for markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt", "":
		return FormatText, nil
	case "json", "ndjson":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Writer defines the interface for crawl output.
// Each method returns the number of bytes written.
type Writer interface {
	// WritePage outputs one emitted page of the run started at seed.
	WritePage(seed string, page *model.PageRecord) (int, error)

	// WriteSummary outputs the end of a run.
	WriteSummary(summary *model.RunSummary) (int, error)

	// WriteRuns outputs a list of stored runs.
	WriteRuns(runs []*model.RunSummary) (int, error)

	// WriteDiff outputs the comparison of two runs.
	WriteDiff(older, newer *model.RunSummary, diff *model.PageDiff) (int, error)
}

// NewWriter creates the Writer for format. verbose makes the text and
// Markdown writers include full page content.
func NewWriter(format Format, output io.Writer, verbose bool) (Writer, error) {
	switch format {
	case FormatText:
		return NewSimpleWriter(output, WithVerbose(verbose)), nil
	case FormatJSON:
		return NewJSONWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output, WithFullContent(verbose)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// MultiWriter writes to multiple Writers.
// The CLI uses it to write a report file while printing progress.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WritePage writes the page to all Writers, stopping at the first error.
func (m *MultiWriter) WritePage(seed string, page *model.PageRecord) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WritePage(seed, page) })
}

// WriteSummary writes the summary to all Writers.
func (m *MultiWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteSummary(summary) })
}

// WriteRuns writes the runs to all Writers.
func (m *MultiWriter) WriteRuns(runs []*model.RunSummary) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteRuns(runs) })
}

// WriteDiff writes the diff to all Writers.
func (m *MultiWriter) WriteDiff(older, newer *model.RunSummary, diff *model.PageDiff) (int, error) {
	return m.each(func(w Writer) (int, error) { return w.WriteDiff(older, newer, diff) })
}

func (m *MultiWriter) each(fn func(Writer) (int, error)) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := fn(w)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer

	// mu serializes writes from concurrent runs.
	mu sync.Mutex
}

// write writes s to the output under the lock.
func (b *baseWriter) write(s string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return io.WriteString(b.output, s)
}

// truncateString truncates s to maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// formatDuration renders the run duration for display, "-" while running.
func formatDuration(summary *model.RunSummary) string {
	d := summary.Duration()
	if d == 0 {
		return "-"
	}
	return d.Round(10 * time.Millisecond).String()
}
