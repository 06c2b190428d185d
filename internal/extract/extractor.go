package extract

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
)

// Page is the result of extracting one HTML document.
type Page struct {
	// Title is the cleaned page title, at most MaxTitleLength runes,
	// "Untitled" when nothing usable was found.
	Title string

	// Content is the cleaned main text of the page. Empty means the page
	// carried no usable text.
	Content string

	// Links are the absolute URLs of the page's anchors, deduplicated and
	// sorted. Fragments are still present; callers normalize.
	Links []string
}

// MainContentFunc extracts the main readable text of an HTML document.
type MainContentFunc func(html, sourceURL string) (string, error)

// Extractor extracts pages. The zero value is not usable; call New.
// An Extractor is safe for concurrent use.
type Extractor struct {
	mainContent MainContentFunc
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report degraded extractions.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// WithMainContent replaces the primary main-content extractor.
func WithMainContent(fn MainContentFunc) Option {
	return func(e *Extractor) {
		e.mainContent = fn
	}
}

// New creates an Extractor that uses go-trafilatura for the primary path.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		mainContent: TrafilaturaContent,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Extract parses html fetched from sourceURL.
func (e *Extractor) Extract(html, sourceURL string) Page {
	content := e.primary(html, sourceURL)
	if strings.TrimSpace(content) == "" {
		e.logger.Debug("main content extraction empty, using fallback", "url", sourceURL)
		content = fallbackContent(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.Debug("html parse failed, using regex title", "url", sourceURL, "error", err)
		return Page{
			Title:   titleFromRaw(html),
			Content: Clean(content),
		}
	}

	return Page{
		Title:   extractTitle(doc),
		Content: Clean(content),
		Links:   extractLinks(doc, sourceURL),
	}
}

// primary runs the main-content extractor and converts errors and panics
// into an empty result.
func (e *Extractor) primary(html, sourceURL string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("main content extractor panicked", "url", sourceURL, "panic", fmt.Sprint(r))
			text = ""
		}
	}()

	text, err := e.mainContent(html, sourceURL)
	if err != nil {
		e.logger.Debug("main content extraction failed", "url", sourceURL, "error", err)
		return ""
	}
	return text
}

// TrafilaturaContent is the default MainContentFunc.
func TrafilaturaContent(html, sourceURL string) (string, error) {
	opts := trafilatura.Options{}
	if u, err := url.Parse(sourceURL); err == nil {
		opts.OriginalURL = u
	}

	result, err := trafilatura.Extract(strings.NewReader(html), opts)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return result.ContentText, nil
}
