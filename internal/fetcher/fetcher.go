package fetcher

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// Default request policy.
const (
	// DefaultTimeout bounds one fetch, redirects and body read included.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies the crawler to the servers it visits.
	DefaultUserAgent = "Mozilla/5.0 (compatible; pagecrawl/1.0; +https://github.com/nao1215/pagecrawl)"

	// DefaultAccept prefers HTML documents.
	DefaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// DefaultAcceptLanguage asks for English content.
	DefaultAcceptLanguage = "en-US,en;q=0.5"

	// DefaultMaxBodySize caps how much of a response body is read.
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	// maxRedirects matches net/http's own default limit.
	maxRedirects = 10
)

// Page is the raw result of a successful fetch.
type Page struct {
	// RequestURL is the URL passed to Fetch.
	RequestURL string

	// FinalURL is the URL of the last request after redirects.
	FinalURL string

	// StatusCode is the final response status (always 2xx).
	StatusCode int

	// ContentType is the response Content-Type header.
	ContentType string

	// Body is the response body decoded to UTF-8 and capped at the
	// Fetcher's body size limit.
	Body string
}

// ContextDialer dials network connections. It is satisfied by *net.Dialer and
// by the SOCKS5 dialers returned from golang.org/x/net/proxy.
type ContextDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Fetcher issues HTTP GET requests with a fixed header policy.
// A Fetcher is safe for concurrent use.
type Fetcher struct {
	client *http.Client

	// maxBodySize limits how many bytes of a body are read.
	maxBodySize int64

	// settings collected by options and consumed by New.
	base           *http.Client
	timeout        time.Duration
	userAgent      string
	accept         string
	acceptLanguage string
	extraHeaders   map[string]string
	cookie         string
	dialer         ContextDialer
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient uses client as the starting point instead of a fresh client.
// Its transport is wrapped, not replaced, so test servers from httptest keep
// working.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.base = client
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithHeaders adds extra request headers. They override the defaults when
// the names collide.
func WithHeaders(headers map[string]string) Option {
	return func(f *Fetcher) {
		f.extraHeaders = headers
	}
}

// WithCookie sends a raw cookie string ("a=1; b=2") with every request.
func WithCookie(cookie string) Option {
	return func(f *Fetcher) {
		f.cookie = cookie
	}
}

// WithMaxBodySize caps the number of body bytes read per response.
func WithMaxBodySize(size int64) Option {
	return func(f *Fetcher) {
		f.maxBodySize = size
	}
}

// WithDialer routes all connections through d, for example a SOCKS5 proxy.
func WithDialer(d ContextDialer) Option {
	return func(f *Fetcher) {
		f.dialer = d
	}
}

// New creates a Fetcher. Without options it uses a 10 second timeout, the
// default user agent and standard Accept headers.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		maxBodySize:    DefaultMaxBodySize,
		timeout:        DefaultTimeout,
		userAgent:      DefaultUserAgent,
		accept:         DefaultAccept,
		acceptLanguage: DefaultAcceptLanguage,
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.maxBodySize <= 0 {
		f.maxBodySize = DefaultMaxBodySize
	}

	f.client = f.buildClient()
	return f
}

// buildClient assembles the http.Client from the collected settings.
func (f *Fetcher) buildClient() *http.Client {
	var baseTransport http.RoundTripper = http.DefaultTransport
	var jar http.CookieJar
	if f.base != nil {
		if f.base.Transport != nil {
			baseTransport = f.base.Transport
		}
		jar = f.base.Jar
	}

	if f.dialer != nil {
		if t, ok := baseTransport.(*http.Transport); ok {
			clone := t.Clone()
			clone.Proxy = nil
			clone.DialContext = f.dialer.DialContext
			baseTransport = clone
		}
	}

	// Accept-Encoding is left to net/http, which then decompresses gzip
	// transparently.
	headers := make(http.Header)
	headers.Set("User-Agent", f.userAgent)
	headers.Set("Accept", f.accept)
	headers.Set("Accept-Language", f.acceptLanguage)
	for k, v := range f.extraHeaders {
		headers.Set(k, v)
	}
	if f.cookie != "" {
		headers.Set("Cookie", f.cookie)
	}

	return &http.Client{
		Transport: &headerTransport{base: baseTransport, headers: headers},
		Timeout:   f.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// Fetch performs one GET for rawURL.
//
// On success the body is returned as UTF-8 text along with the final URL
// after redirects. Failures are always *FetchError values.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{Kind: KindHTTP, URL: rawURL, StatusCode: resp.StatusCode, ContentType: contentType}
	}

	if !IsHTML(contentType) {
		return nil, &FetchError{Kind: KindNotHTML, URL: rawURL, StatusCode: resp.StatusCode, ContentType: contentType}
	}

	var body io.Reader = io.LimitReader(resp.Body, f.maxBodySize)
	if decoded, err := charset.NewReader(body, contentType); err == nil {
		body = decoded
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	}

	return &Page{
		RequestURL:  rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        string(data),
	}, nil
}

// IsHTML reports whether a Content-Type header value announces HTML.
func IsHTML(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}
