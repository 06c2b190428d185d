package fetcher

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind int

const (
	// KindNetwork covers connection failures, timeouts and body read errors.
	KindNetwork Kind = iota
	// KindHTTP means the final response status was not 2xx.
	KindHTTP
	// KindNotHTML means the response Content-Type does not contain text/html.
	KindNotHTML
)

// String returns the kind name used in log output.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindNotHTML:
		return "not_html"
	default:
		return "unknown"
	}
}

// Sentinel errors matched by FetchError.Is.
var (
	// ErrNetwork is matched by fetch failures of kind KindNetwork.
	ErrNetwork = errors.New("network error")

	// ErrHTTP is matched by fetch failures of kind KindHTTP.
	ErrHTTP = errors.New("unexpected HTTP status")

	// ErrNotHTML is matched by fetch failures of kind KindNotHTML.
	ErrNotHTML = errors.New("response is not HTML")
)

// FetchError describes a failed fetch. The crawler never aborts on it; the
// offending URL is logged and skipped.
type FetchError struct {
	// Kind is the failure class.
	Kind Kind

	// URL is the URL that was requested.
	URL string

	// StatusCode is set for KindHTTP and KindNotHTML.
	StatusCode int

	// ContentType is set for KindNotHTML.
	ContentType string

	// Err is the underlying transport error for KindNetwork.
	Err error
}

// Error implements error.
func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("fetch %s: %s: status %d", e.URL, ErrHTTP, e.StatusCode)
	case KindNotHTML:
		return fmt.Sprintf("fetch %s: %s: content type %q", e.URL, ErrNotHTML, e.ContentType)
	default:
		if e.Err != nil {
			return fmt.Sprintf("fetch %s: %s: %v", e.URL, ErrNetwork, e.Err)
		}
		return fmt.Sprintf("fetch %s: %s", e.URL, ErrNetwork)
	}
}

// Unwrap returns the underlying transport error, if any.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a FetchError against ErrNetwork, ErrHTTP and ErrNotHTML.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrHTTP:
		return e.Kind == KindHTTP
	case ErrNotHTML:
		return e.Kind == KindNotHTML
	}
	return false
}
