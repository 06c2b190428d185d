package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nao1215/pagecrawl/internal/model"
	"github.com/nao1215/pagecrawl/internal/report"
)

// PageWriter is the subset of report.Writer used by WriteStep.
type PageWriter interface {
	WritePage(seed string, page *model.PageRecord) (int, error)
	WriteSummary(summary *model.RunSummary) (int, error)
}

var _ PageWriter = (report.Writer)(nil)

// WriteStep writes every page, and the run summary at the end, to a report
// writer. Writers are safe for concurrent use, so one writer can be shared
// by the pipelines of a batch.
type WriteStep struct {
	writer PageWriter

	// seed is the normalized seed of the current run, set by Begin.
	seed string
}

// NewWriteStep creates a step that writes to w.
func NewWriteStep(w PageWriter) *WriteStep {
	return &WriteStep{writer: w}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return "write"
}

// Begin remembers the seed the pages belong to.
func (s *WriteStep) Begin(_ context.Context, summary *model.RunSummary) error {
	s.seed = summary.Seed
	return nil
}

// Do writes one page.
func (s *WriteStep) Do(_ context.Context, page *model.PageRecord) error {
	if _, err := s.writer.WritePage(s.seed, page); err != nil {
		return fmt.Errorf("failed to write page: %w", err)
	}
	return nil
}

// End writes the run summary.
func (s *WriteStep) End(_ context.Context, summary *model.RunSummary) error {
	if _, err := s.writer.WriteSummary(summary); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// RunStore is the persistence used by StoreStep.
// *database.CrawlDB implements it.
type RunStore interface {
	StartRun(ctx context.Context, summary *model.RunSummary) (int64, error)
	InsertPage(ctx context.Context, runID int64, page *model.PageRecord) error
	FinishRun(ctx context.Context, summary *model.RunSummary) error
}

// errNotStarted is returned by StoreStep when a page arrives before Begin.
var errNotStarted = errors.New("run not started")

// StoreStep persists the run and its pages. Begin creates the run row, so
// summary.ID is known to the steps after it.
type StoreStep struct {
	store RunStore
	runID int64
}

// NewStoreStep creates a step that saves to store.
func NewStoreStep(store RunStore) *StoreStep {
	return &StoreStep{store: store}
}

// Name returns the step name.
func (s *StoreStep) Name() string {
	return "store"
}

// RunID returns the database ID of the current run, or zero before Begin.
func (s *StoreStep) RunID() int64 {
	return s.runID
}

// Begin inserts the run row.
func (s *StoreStep) Begin(ctx context.Context, summary *model.RunSummary) error {
	id, err := s.store.StartRun(ctx, summary)
	if err != nil {
		return err
	}
	s.runID = id
	return nil
}

// Do saves one page.
func (s *StoreStep) Do(ctx context.Context, page *model.PageRecord) error {
	if s.runID == 0 {
		return errNotStarted
	}
	return s.store.InsertPage(ctx, s.runID, page)
}

// End stores the final counters.
func (s *StoreStep) End(ctx context.Context, summary *model.RunSummary) error {
	if s.runID == 0 {
		return nil
	}
	summary.ID = s.runID
	return s.store.FinishRun(ctx, summary)
}

// MinWordsStep drops pages with fewer than min words of content.
type MinWordsStep struct {
	min int
}

// NewMinWordsStep creates a step that skips pages shorter than minWords.
func NewMinWordsStep(minWords int) *MinWordsStep {
	return &MinWordsStep{min: minWords}
}

// Name returns the step name.
func (s *MinWordsStep) Name() string {
	return "min_words"
}

// Do returns ErrSkip for short pages.
func (s *MinWordsStep) Do(_ context.Context, page *model.PageRecord) error {
	if page.WordCount() < s.min {
		return ErrSkip
	}
	return nil
}

// DedupeStep drops pages whose content is identical to a page already seen
// in the same run, such as "/" and "/index.html" serving the same document.
// Pages without content are never considered duplicates.
type DedupeStep struct {
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]string
}

// NewDedupeStep creates a content deduplication step.
func NewDedupeStep(logger *slog.Logger) *DedupeStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &DedupeStep{
		logger: logger,
		seen:   make(map[string]string),
	}
}

// Name returns the step name.
func (s *DedupeStep) Name() string {
	return "dedupe"
}

// Begin forgets the hashes of a previous run.
func (s *DedupeStep) Begin(_ context.Context, _ *model.RunSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.seen)
	return nil
}

// Do returns ErrSkip when the page's hash was seen before.
func (s *DedupeStep) Do(_ context.Context, page *model.PageRecord) error {
	if page.Hash == "" {
		page.ComputeHash()
	}
	hash := page.Hash
	if hash == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if first, ok := s.seen[hash]; ok {
		s.logger.Debug("duplicate content",
			"url", page.URL,
			"same_as", first,
		)
		return ErrSkip
	}
	s.seen[hash] = page.URL
	return nil
}

// End does nothing.
func (s *DedupeStep) End(_ context.Context, _ *model.RunSummary) error {
	return nil
}
