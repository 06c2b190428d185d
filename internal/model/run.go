package model

import "time"

// Outcome describes how a crawl run ended.
type Outcome int

const (
	// OutcomeRunning means the run has not ended yet.
	OutcomeRunning Outcome = iota

	// OutcomeCompleted means the page budget was reached.
	OutcomeCompleted

	// OutcomeExhausted means the frontier emptied before the budget was reached.
	OutcomeExhausted

	// OutcomeCancelled means the caller's context was cancelled mid-run.
	OutcomeCancelled

	// OutcomeFailed means the run could not start or a consumer of its
	// records failed.
	OutcomeFailed
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeCompleted:
		return "completed"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseOutcome is the inverse of Outcome.String.
// Unrecognized strings map to OutcomeRunning.
func ParseOutcome(s string) Outcome {
	switch s {
	case "completed":
		return OutcomeCompleted
	case "exhausted":
		return OutcomeExhausted
	case "cancelled":
		return OutcomeCancelled
	case "failed":
		return OutcomeFailed
	default:
		return OutcomeRunning
	}
}

// RunSummary holds the counters of a crawl run.
type RunSummary struct {
	// ID is the database identifier. Zero for runs that were not persisted.
	ID int64 `json:"id,omitempty"`

	// Seed is the normalized seed URL.
	Seed string `json:"seed"`

	// Outcome is how the run ended.
	Outcome Outcome `json:"-"`

	// OutcomeName is Outcome as a string, for JSON output.
	OutcomeName string `json:"outcome"`

	// PagesEmitted is the number of PageRecords produced.
	PagesEmitted int `json:"pages_emitted"`

	// PagesFailed counts pages whose fetch failed (network, HTTP or not-HTML).
	PagesFailed int `json:"pages_failed"`

	// PagesEmpty counts pages fetched successfully but with no content.
	PagesEmpty int `json:"pages_empty"`

	// PagesSkipped counts frontier entries discarded without fetching
	// (already visited or too deep).
	PagesSkipped int `json:"pages_skipped"`

	// StartedAt is when the run was started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended. Zero while running.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Error is the error that ended the run, if any.
	// Excluded from JSON; use ErrorMessage instead.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error.
	ErrorMessage string `json:"error,omitempty"`
}

// Fail marks the summary as failed with err.
func (s *RunSummary) Fail(err error) {
	s.SetOutcome(OutcomeFailed)
	s.Error = err
	if err != nil {
		s.ErrorMessage = err.Error()
	}
}

// SetOutcome updates both Outcome and OutcomeName.
func (s *RunSummary) SetOutcome(o Outcome) {
	s.Outcome = o
	s.OutcomeName = o.String()
}

// Duration returns how long the run took.
// Returns zero if the run has not finished.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}
