package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/pagecrawl/internal/model"
)

// excerptLength is how many characters of content the text writer shows
// per page unless verbose.
const excerptLength = 200

// SimpleWriter outputs human-readable text.
//
// Plain ASCII formatting is used rather than ANSI colors so that output
// can be piped to files or other tools unchanged.
type SimpleWriter struct {
	baseWriter

	// verbose prints full content and every link.
	verbose bool

	// compact prints a single line per page and per run.
	compact bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables full content and link output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// WithCompact switches to one line per page, for progress display.
func WithCompact(compact bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.compact = compact
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: baseWriter{output: output},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WritePage outputs one page.
func (w *SimpleWriter) WritePage(_ string, page *model.PageRecord) (int, error) {
	if w.compact {
		return w.write(fmt.Sprintf("[depth %d] %s (%d words)\n", page.Depth, page.URL, page.WordCount()))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[depth %d] %s\n", page.Depth, page.URL)
	fmt.Fprintf(&sb, "  Title:   %s\n", page.Title)
	fmt.Fprintf(&sb, "  Words:   %d (%d characters)\n", page.WordCount(), len([]rune(page.Content)))
	fmt.Fprintf(&sb, "  Links:   %d\n", len(page.Links))

	if w.verbose {
		for _, link := range page.Links {
			fmt.Fprintf(&sb, "    - %s\n", link)
		}
		fmt.Fprintf(&sb, "  Content: %s\n", page.Content)
	} else {
		fmt.Fprintf(&sb, "  Content: %s\n", truncateString(page.Content, excerptLength))
	}
	sb.WriteString("\n")

	return w.write(sb.String())
}

// WriteSummary outputs the end of a run.
func (w *SimpleWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	if w.compact {
		return w.write(fmt.Sprintf("%s: %s, %d pages in %s\n",
			summary.Seed, summary.OutcomeName, summary.PagesEmitted, formatDuration(summary)))
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Seed:           %s\n", summary.Seed)
	fmt.Fprintf(&sb, "Status:         %s\n", statusText(summary))
	fmt.Fprintf(&sb, "Pages Crawled:  %d\n", summary.PagesEmitted)
	fmt.Fprintf(&sb, "Fetch Failures: %d\n", summary.PagesFailed)
	fmt.Fprintf(&sb, "Empty Pages:    %d\n", summary.PagesEmpty)
	fmt.Fprintf(&sb, "Skipped:        %d\n", summary.PagesSkipped)
	fmt.Fprintf(&sb, "Duration:       %s\n", formatDuration(summary))
	if summary.ID != 0 {
		fmt.Fprintf(&sb, "Saved As Run:   %d\n", summary.ID)
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return w.write(sb.String())
}

// WriteRuns outputs a table of runs.
func (w *SimpleWriter) WriteRuns(runs []*model.RunSummary) (int, error) {
	if len(runs) == 0 {
		return w.write("No runs recorded.\n")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%-6s %-20s %-10s %6s %6s  %s\n", "ID", "STARTED", "OUTCOME", "PAGES", "FAILED", "SEED")
	for _, r := range runs {
		fmt.Fprintf(&sb, "%-6d %-20s %-10s %6d %6d  %s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.OutcomeName,
			r.PagesEmitted,
			r.PagesFailed,
			r.Seed,
		)
	}
	return w.write(sb.String())
}

// WriteDiff outputs the comparison of two runs.
func (w *SimpleWriter) WriteDiff(older, newer *model.RunSummary, diff *model.PageDiff) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Comparing run %d (%s) with run %d (%s) of %s\n\n",
		older.ID, older.StartedAt.Local().Format("2006-01-02 15:04"),
		newer.ID, newer.StartedAt.Local().Format("2006-01-02 15:04"),
		newer.Seed,
	)

	if !diff.HasChanges() {
		fmt.Fprintf(&sb, "No changes (%d pages unchanged)\n", diff.Unchanged)
		return w.write(sb.String())
	}

	writeURLs := func(marker, label string, urls []string) {
		if len(urls) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s (%d)\n", label, len(urls))
		for _, u := range urls {
			fmt.Fprintf(&sb, "  [%s] %s\n", marker, u)
		}
		sb.WriteString("\n")
	}
	writeURLs("+", "Added", diff.Added)
	writeURLs("-", "Removed", diff.Removed)
	writeURLs("~", "Changed", diff.Changed)
	fmt.Fprintf(&sb, "Unchanged: %d\n", diff.Unchanged)

	return w.write(sb.String())
}

// statusText describes how a run ended.
func statusText(summary *model.RunSummary) string {
	switch summary.Outcome {
	case model.OutcomeCompleted:
		return "Complete (page budget reached)"
	case model.OutcomeExhausted:
		return "Complete (no more links)"
	case model.OutcomeCancelled:
		return "CANCELLED (partial results)"
	case model.OutcomeFailed:
		return "ERROR - " + summary.ErrorMessage
	default:
		return "Running"
	}
}
