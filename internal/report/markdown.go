package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/pagecrawl/internal/model"
)

// MarkdownWriter outputs one Markdown document per run.
//
// Markdown tables need every row up front, so pages are buffered per seed
// and the document is rendered when the run's summary arrives.
type MarkdownWriter struct {
	baseWriter

	// fullContent includes each page's complete text in a details block
	// instead of an excerpt.
	fullContent bool

	// pages buffers records per seed until WriteSummary.
	pages map[string][]*model.PageRecord
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithFullContent includes complete page text in the document.
func WithFullContent(full bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.fullContent = full
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: baseWriter{output: output},
		pages:      make(map[string][]*model.PageRecord),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WritePage buffers the page; nothing is written until WriteSummary.
func (w *MarkdownWriter) WritePage(seed string, page *model.PageRecord) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages[seed] = append(w.pages[seed], page)
	return 0, nil
}

// WriteSummary renders the run report for summary.Seed.
func (w *MarkdownWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pages := w.pages[summary.Seed]
	delete(w.pages, summary.Seed)

	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeDepthChart(md, pages)
	w.writePages(md, pages)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table and an outcome alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.RunSummary) {
	md.H1("Crawl Report")
	md.PlainText("")

	rows := [][]string{
		{"Seed", "`" + summary.Seed + "`"},
		{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Duration", formatDuration(summary)},
		{"Pages Crawled", strconv.Itoa(summary.PagesEmitted)},
		{"Fetch Failures", strconv.Itoa(summary.PagesFailed)},
		{"Empty Pages", strconv.Itoa(summary.PagesEmpty)},
		{"Status", w.getStatusText(summary)},
	}
	if summary.ID != 0 {
		rows = append(rows, []string{"Run ID", strconv.FormatInt(summary.ID, 10)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	switch summary.Outcome {
	case model.OutcomeFailed:
		md.Cautionf("The run failed: %s", summary.ErrorMessage)
	case model.OutcomeCancelled:
		md.Warningf("The run was cancelled after %d page(s); the pages below are partial results.", summary.PagesEmitted)
	default:
		if summary.PagesEmitted == 0 {
			md.Note("No page produced any content.")
		}
	}
	md.PlainText("")
}

// getStatusText returns the status text based on the run outcome.
func (w *MarkdownWriter) getStatusText(summary *model.RunSummary) string {
	switch summary.Outcome {
	case model.OutcomeCompleted:
		return "✅ Complete (page budget reached)"
	case model.OutcomeExhausted:
		return "✅ Complete (no more links)"
	case model.OutcomeCancelled:
		return "⚠️ Cancelled (partial results)"
	case model.OutcomeFailed:
		return "❌ Error"
	default:
		return "Running"
	}
}

// writeDepthChart writes a mermaid pie chart of pages per depth.
func (w *MarkdownWriter) writeDepthChart(md *markdown.Markdown, pages []*model.PageRecord) {
	if len(pages) == 0 {
		return
	}

	perDepth := make(map[int]uint64)
	for _, p := range pages {
		perDepth[p.Depth]++
	}
	depths := make([]int, 0, len(perDepth))
	for d := range perDepth {
		depths = append(depths, d)
	}
	sort.Ints(depths)

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pages per Depth"),
		piechart.WithShowData(true),
	)
	for _, d := range depths {
		chart.LabelAndIntValue(fmt.Sprintf("Depth %d", d), perDepth[d])
	}

	md.H2("Depth Distribution")
	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writePages writes the page table and per-page content.
func (w *MarkdownWriter) writePages(md *markdown.Markdown, pages []*model.PageRecord) {
	md.H2("Pages")
	md.PlainText("")

	if len(pages) == 0 {
		md.PlainText("No pages were crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(pages))
	for i, p := range pages {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			truncateString(p.URL, 60),
			truncateString(p.Title, 50),
			strconv.Itoa(p.Depth),
			strconv.Itoa(p.WordCount()),
			strconv.Itoa(len(p.Links)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "URL", "Title", "Depth", "Words", "Links"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, p := range pages {
		content := p.Content
		if !w.fullContent {
			content = truncateString(content, excerptLength)
		}
		md.Details(p.Title, p.URL+"\n\n"+content)
	}
	md.PlainText("")
}

// WriteRuns writes a table of runs.
func (w *MarkdownWriter) WriteRuns(runs []*model.RunSummary) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	md := markdown.NewMarkdown(w.output)
	md.H1("Crawl History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.OutcomeName,
			strconv.Itoa(r.PagesEmitted),
			strconv.Itoa(r.PagesFailed),
			"`" + r.Seed + "`",
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "Outcome", "Pages", "Failed", "Seed"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// WriteDiff writes the comparison of two runs.
func (w *MarkdownWriter) WriteDiff(older, newer *model.RunSummary, diff *model.PageDiff) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	md := markdown.NewMarkdown(w.output)
	md.H1("Crawl Comparison")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Older", "Newer"},
		Rows: [][]string{
			{"Run", strconv.FormatInt(older.ID, 10), strconv.FormatInt(newer.ID, 10)},
			{"Started", older.StartedAt.Format("2006-01-02 15:04"), newer.StartedAt.Format("2006-01-02 15:04")},
			{"Pages", strconv.Itoa(older.PagesEmitted), strconv.Itoa(newer.PagesEmitted)},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.Tip("No changes between the two runs.")
		return len(md.String()), md.Build()
	}

	sections := []struct {
		title string
		urls  []string
	}{
		{"Added", diff.Added},
		{"Removed", diff.Removed},
		{"Changed", diff.Changed},
	}
	for _, s := range sections {
		if len(s.urls) == 0 {
			continue
		}
		md.H2(fmt.Sprintf("%s (%d)", s.title, len(s.urls)))
		md.PlainText("")
		md.BulletList(s.urls...)
		md.PlainText("")
	}
	md.PlainTextf("%d page(s) unchanged.", diff.Unchanged)

	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pagecrawl](https://github.com/nao1215/pagecrawl)*")
}
