package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pagecrawl/internal/model"
)

// JSONWriter outputs newline-delimited JSON.
// Every value carries a "type" field so that a consumer reading a mixed
// stream of pages and summaries can tell them apart.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printing. The output is then a stream of
	// JSON documents rather than one document per line.
	indent bool

	// indentPrefix is the prefix for each line when indenting.
	indentPrefix string

	// indentString is the indentation string (e.g., "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables indented output with the given prefix and indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables indented output with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: baseWriter{output: output},
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Entry types written in the "type" field.
const (
	EntryPage    = "page"
	EntrySummary = "summary"
	EntryRun     = "run"
	EntryDiff    = "diff"
)

type pageEntry struct {
	Type  string `json:"type"`
	Seed  string `json:"seed"`
	Words int    `json:"words"`
	*model.PageRecord
}

type summaryEntry struct {
	Type            string  `json:"type"`
	DurationSeconds float64 `json:"duration_seconds"`
	*model.RunSummary
}

type diffEntry struct {
	Type     string `json:"type"`
	Seed     string `json:"seed"`
	OlderRun int64  `json:"older_run"`
	NewerRun int64  `json:"newer_run"`
	*model.PageDiff
}

// WritePage outputs one page entry.
func (w *JSONWriter) WritePage(seed string, page *model.PageRecord) (int, error) {
	return w.writeJSON(pageEntry{
		Type:       EntryPage,
		Seed:       seed,
		Words:      page.WordCount(),
		PageRecord: page,
	})
}

// WriteSummary outputs one summary entry.
func (w *JSONWriter) WriteSummary(summary *model.RunSummary) (int, error) {
	return w.writeJSON(summaryEntry{
		Type:            EntrySummary,
		DurationSeconds: summary.Duration().Seconds(),
		RunSummary:      summary,
	})
}

// WriteRuns outputs one run entry per run.
func (w *JSONWriter) WriteRuns(runs []*model.RunSummary) (int, error) {
	var total int
	for _, r := range runs {
		n, err := w.writeJSON(summaryEntry{
			Type:            EntryRun,
			DurationSeconds: r.Duration().Seconds(),
			RunSummary:      r,
		})
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteDiff outputs one diff entry.
func (w *JSONWriter) WriteDiff(older, newer *model.RunSummary, diff *model.PageDiff) (int, error) {
	return w.writeJSON(diffEntry{
		Type:     EntryDiff,
		Seed:     newer.Seed,
		OlderRun: older.ID,
		NewerRun: newer.ID,
		PageDiff: diff,
	})
}

// writeJSON marshals v and writes it followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	data = append(data, '\n')

	return w.write(string(data))
}
