package crawler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/pagecrawl/internal/extract"
	"github.com/nao1215/pagecrawl/internal/fetcher"
	"github.com/nao1215/pagecrawl/internal/model"
	"github.com/nao1215/pagecrawl/internal/urlnorm"
)

// Default crawl settings.
const (
	DefaultMaxDepth = 2
	DefaultMaxPages = 10
	DefaultDelay    = 1 * time.Second
)

// Fetcher retrieves a single page. *fetcher.Fetcher implements it.
// Errors should be *fetcher.FetchError; any error is treated as a skipped page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Page, error)
}

// Extractor turns an HTML document into title, content and links.
// *extract.Extractor implements it.
type Extractor interface {
	Extract(html, sourceURL string) extract.Page
}

// Spider crawls one site breadth-first starting from a seed URL.
// A Spider is immutable after NewSpider and may start any number of
// independent runs, including concurrently.
type Spider struct {
	fetcher   Fetcher
	extractor Extractor
	logger    *slog.Logger

	// maxDepth is the largest link distance from the seed that is fetched.
	// The seed has depth 0.
	maxDepth int

	// maxPages is the page budget: the run ends once this many pages
	// have been emitted.
	maxPages int

	// delay is paid after every emitted page.
	delay time.Duration

	// allowExternal lets the crawl leave the seed's authority.
	allowExternal bool

	// ignorePatterns and followPatterns filter discovered links by path.
	ignorePatterns []string
	followPatterns []string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth. Must be at least 1.
// 1 = the seed plus the pages it links to, 2 = one level further, etc.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of pages to emit. Must be at least 1.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the pause after each emitted page.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithAllowExternal allows following links to other authorities.
func WithAllowExternal(allow bool) SpiderOption {
	return func(s *Spider) {
		s.allowExternal = allow
	}
}

// WithLogger sets the logger for crawl progress and skipped pages.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithExtractor replaces the default content extractor.
func WithExtractor(e Extractor) SpiderOption {
	return func(s *Spider) {
		s.extractor = e
	}
}

// WithIgnorePatterns sets URL path patterns that are never followed.
// Patterns use glob syntax (e.g., "/admin/*", "*.php", "/logout*").
// The seed itself is not filtered.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts discovered links to paths matching at least
// one pattern. Empty means all paths are followed.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider that fetches pages with f.
// Without WithExtractor, pages are extracted by extract.New using the
// Spider's logger.
func NewSpider(f Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  f,
		logger:   slog.Default(),
		maxDepth: DefaultMaxDepth,
		maxPages: DefaultMaxPages,
		delay:    DefaultDelay,
		now:      time.Now,
		sleep:    sleepContext,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.extractor == nil {
		s.extractor = extract.New(extract.WithLogger(s.logger))
	}
	return s
}

// Validate checks the numeric settings. The returned error is a *ConfigError.
func (s *Spider) Validate() error {
	if s.maxDepth < 1 {
		return &ConfigError{Field: "max_depth", Value: s.maxDepth, Err: ErrInvalidMaxDepth}
	}
	if s.maxPages < 1 {
		return &ConfigError{Field: "max_pages", Value: s.maxPages, Err: ErrInvalidMaxPages}
	}
	if s.delay < 0 {
		return &ConfigError{Field: "delay", Value: s.delay, Err: ErrInvalidDelay}
	}
	return nil
}

// Start validates the settings and the seed and returns a new Run in the
// Idle state. No request is made until the first call to Run.Next.
func (s *Spider) Start(seed string) (*Run, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	normalized := urlnorm.Normalize(seed)
	authority, err := urlnorm.Authority(normalized)
	if err != nil {
		return nil, &ConfigError{Field: "seed", Value: seed, Err: ErrInvalidSeed}
	}

	return newRun(s, normalized, authority), nil
}

// Crawl runs a whole crawl and collects every emitted page.
//
// If ctx is cancelled the pages emitted so far are returned together with
// ctx.Err().
func (s *Spider) Crawl(ctx context.Context, seed string) ([]*model.PageRecord, error) {
	run, err := s.Start(seed)
	if err != nil {
		return nil, err
	}

	pages := make([]*model.PageRecord, 0, s.maxPages)
	for {
		page, err := run.Next(ctx)
		if errors.Is(err, ErrDone) {
			return pages, nil
		}
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
