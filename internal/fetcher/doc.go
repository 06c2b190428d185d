// Package fetcher performs the single HTTP GET behind every crawl step.
//
// A Fetcher owns one *http.Client for its whole lifetime, so connections are
// pooled across calls. The request header policy (User-Agent, Accept,
// Accept-Language and any configured extras) is declared once when the
// Fetcher is built and injected by the transport into every request,
// including the ones issued while following redirects.
//
// Responses are gated before any parsing happens: a non-2xx status yields
// ErrHTTP and a Content-Type without "text/html" yields ErrNotHTML. Transport
// failures and timeouts yield ErrNetwork. All three are wrapped in *FetchError.
package fetcher
