package fetcher

import (
	"net/http"
)

// headerTransport wraps an http.RoundTripper and stamps a fixed header set on
// every outgoing request. The header set is built once per Fetcher.
type headerTransport struct {
	base    http.RoundTripper
	headers http.Header
}

// RoundTrip implements http.RoundTripper.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, values := range t.headers {
		if key == "Cookie" {
			// Keep cookies set by a jar and append ours.
			for _, v := range values {
				if existing := clone.Header.Get("Cookie"); existing != "" {
					clone.Header.Set("Cookie", existing+"; "+v)
				} else {
					clone.Header.Set("Cookie", v)
				}
			}
			continue
		}
		clone.Header[key] = append([]string(nil), values...)
	}
	return t.base.RoundTrip(clone)
}
