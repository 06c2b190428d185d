package crawler

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/pagecrawl/internal/extract"
	"github.com/nao1215/pagecrawl/internal/model"
	"github.com/nao1215/pagecrawl/internal/urlnorm"
)

// State is the lifecycle state of a Run.
type State int

const (
	// StateIdle means no page has been requested yet.
	StateIdle State = iota

	// StateRunning means the run is in progress.
	StateRunning

	// StateCompleted means the page budget was reached.
	StateCompleted

	// StateExhausted means the frontier emptied before the budget was reached.
	StateExhausted
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Done reports whether s is a terminal state.
func (s State) Done() bool {
	return s == StateCompleted || s == StateExhausted
}

// FrontierEntry is a discovered URL waiting to be fetched.
type FrontierEntry struct {
	// URL is normalized.
	URL string

	// Depth is the link distance from the seed.
	Depth int
}

// compactThreshold is how many consumed entries may accumulate at the front
// of the frontier slice before it is compacted.
const compactThreshold = 256

// Run is a single crawl started by Spider.Start. A Run is single pass and
// cannot be restarted. Its methods are safe for concurrent use. Calls to Next
// are serialized, while the accessors never wait on a fetch or a delay in
// progress.
type Run struct {
	spider        *Spider
	seed          string
	baseAuthority string

	// pull serializes Next. mu guards the fields below and is released
	// while Next sleeps or fetches.
	pull sync.Mutex
	mu   sync.Mutex

	state State

	// frontier[head:] is the FIFO queue.
	frontier []FrontierEntry
	head     int

	visited map[string]struct{}

	// delayOwed is set after an emission and cleared once the delay is paid.
	delayOwed bool

	summary model.RunSummary
	err     error
}

func newRun(s *Spider, seed, authority string) *Run {
	return &Run{
		spider:        s,
		seed:          seed,
		baseAuthority: authority,
		state:         StateIdle,
		frontier:      []FrontierEntry{{URL: seed, Depth: 0}},
		visited:       make(map[string]struct{}),
		summary: model.RunSummary{
			Seed:        seed,
			OutcomeName: model.OutcomeRunning.String(),
		},
	}
}

// Seed returns the normalized seed URL.
func (r *Run) Seed() string {
	return r.seed
}

// BaseAuthority returns the host[:port] links are scoped to when external
// links are not allowed.
func (r *Run) BaseAuthority() string {
	return r.baseAuthority
}

// Next processes frontier entries until one page is emitted and returns it.
// It returns ErrDone once the page budget is reached or the frontier is
// empty, and ctx.Err() if ctx ends first. After ErrDone every further call
// returns ErrDone.
func (r *Run) Next(ctx context.Context) (*model.PageRecord, error) {
	r.pull.Lock()
	defer r.pull.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Done() {
		return nil, ErrDone
	}

	s := r.spider
	if r.state == StateIdle {
		r.state = StateRunning
		r.summary.StartedAt = s.now()
		s.logger.Info("crawl started",
			"seed", r.seed,
			"max_depth", s.maxDepth,
			"max_pages", s.maxPages,
			"allow_external", s.allowExternal,
		)
	}

	if r.err != nil {
		// resumed after an interruption
		r.err = nil
		r.summary.SetOutcome(model.OutcomeRunning)
		r.summary.FinishedAt = time.Time{}
	}

	if r.delayOwed {
		r.mu.Unlock()
		err := s.sleep(ctx, s.delay)
		r.mu.Lock()
		if err != nil {
			return nil, r.interrupted(err)
		}
		r.delayOwed = false
	}

	for r.head < len(r.frontier) && r.summary.PagesEmitted < s.maxPages {
		if err := ctx.Err(); err != nil {
			return nil, r.interrupted(err)
		}

		entry := r.pop()

		if _, seen := r.visited[entry.URL]; seen {
			r.summary.PagesSkipped++
			continue
		}
		if entry.Depth > s.maxDepth {
			r.summary.PagesSkipped++
			continue
		}
		r.visited[entry.URL] = struct{}{}

		s.logger.Debug("fetching page", "url", entry.URL, "depth", entry.Depth)
		r.mu.Unlock()
		page, err := s.fetcher.Fetch(ctx, entry.URL)
		var extracted extract.Page
		if err == nil {
			extracted = s.extractor.Extract(page.Body, page.FinalURL)
		}
		r.mu.Lock()

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				// The fetch never completed, so the entry is retried on resume.
				delete(r.visited, entry.URL)
				r.unpop(entry)
				return nil, r.interrupted(ctxErr)
			}
			r.summary.PagesFailed++
			s.logger.Warn("skipping page", "url", entry.URL, "depth", entry.Depth, "error", err)
			continue
		}

		if strings.TrimSpace(extracted.Content) == "" {
			r.summary.PagesEmpty++
			s.logger.Warn("skipping page without content", "url", entry.URL, "depth", entry.Depth)
			continue
		}

		r.summary.PagesEmitted++
		record := &model.PageRecord{
			URL:       entry.URL,
			Title:     extracted.Title,
			Content:   extracted.Content,
			Links:     extracted.Links,
			Depth:     entry.Depth,
			FetchedAt: s.now(),
		}
		record.ComputeHash()

		if entry.Depth < s.maxDepth {
			r.enqueueLinks(extracted.Links, entry.Depth+1)
		}

		r.delayOwed = s.delay > 0
		s.logger.Info("page crawled",
			"url", record.URL,
			"depth", record.Depth,
			"title", record.Title,
			"words", record.WordCount(),
			"emitted", r.summary.PagesEmitted,
		)
		return record, nil
	}

	r.finish()
	return nil, ErrDone
}

// enqueueLinks appends every unvisited, valid link to the back of the
// frontier at the given depth.
func (r *Run) enqueueLinks(links []string, depth int) {
	s := r.spider
	for _, link := range links {
		normalized := urlnorm.Normalize(link)
		if _, seen := r.visited[normalized]; seen {
			continue
		}
		if !urlnorm.IsValid(normalized, r.baseAuthority, s.allowExternal) {
			continue
		}
		if !s.shouldFollow(normalized) {
			continue
		}
		r.frontier = append(r.frontier, FrontierEntry{URL: normalized, Depth: depth})
	}
}

// pop removes and returns the front frontier entry. The caller must ensure
// the frontier is not empty.
func (r *Run) pop() FrontierEntry {
	entry := r.frontier[r.head]
	r.frontier[r.head] = FrontierEntry{}
	r.head++

	if r.head >= compactThreshold && r.head*2 >= len(r.frontier) {
		remaining := copy(r.frontier, r.frontier[r.head:])
		clear(r.frontier[remaining:])
		r.frontier = r.frontier[:remaining]
		r.head = 0
	}
	return entry
}

// unpop puts entry back at the front of the frontier.
func (r *Run) unpop(entry FrontierEntry) {
	if r.head > 0 {
		r.head--
		r.frontier[r.head] = entry
		return
	}
	r.frontier = slices.Insert(r.frontier, 0, entry)
}

// finish moves the run into its terminal state. The caller holds r.mu.
func (r *Run) finish() {
	s := r.spider
	if r.summary.PagesEmitted >= s.maxPages {
		r.state = StateCompleted
		r.summary.SetOutcome(model.OutcomeCompleted)
	} else {
		r.state = StateExhausted
		r.summary.SetOutcome(model.OutcomeExhausted)
	}
	r.summary.FinishedAt = s.now()
	r.err = nil

	s.logger.Info("crawl finished",
		"seed", r.seed,
		"outcome", r.summary.OutcomeName,
		"emitted", r.summary.PagesEmitted,
		"failed", r.summary.PagesFailed,
		"duration", r.summary.Duration(),
	)
}

// interrupted records a context error. The run stays resumable with a fresh
// context. The caller holds r.mu.
func (r *Run) interrupted(err error) error {
	r.err = err
	r.summary.SetOutcome(model.OutcomeCancelled)
	r.summary.FinishedAt = r.spider.now()
	return err
}

// Pages returns the run's records as a single-pass sequence. Iteration stops
// at the end of the run or at the first error, which Err then reports.
// Breaking out of the loop early is always safe.
func (r *Run) Pages(ctx context.Context) iter.Seq[*model.PageRecord] {
	return func(yield func(*model.PageRecord) bool) {
		for {
			page, err := r.Next(ctx)
			if err != nil {
				return
			}
			if !yield(page) {
				return
			}
		}
	}
}

// Err returns the error that stopped the most recent pull, if it was not
// the normal end of the run.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Summary returns a copy of the run counters.
func (r *Run) Summary() model.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary
}

// FrontierLen returns the number of entries waiting in the frontier.
func (r *Run) FrontierLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frontier) - r.head
}

// Frontier returns a snapshot of the waiting entries in queue order.
func (r *Run) Frontier() []FrontierEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FrontierEntry, len(r.frontier)-r.head)
	copy(out, r.frontier[r.head:])
	return out
}

// Visited reports whether url (normalized) has already been fetched or
// attempted in this run.
func (r *Run) Visited(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.visited[urlnorm.Normalize(url)]
	return ok
}
