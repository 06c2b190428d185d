package urlnorm

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// ErrMissingSchemeOrHost is returned by Authority when the URL cannot be used
// as a crawl seed because it has no scheme or no host.
var ErrMissingSchemeOrHost = errors.New("url must have a scheme and a host")

// excludedExtensions lists path extensions that never lead to HTML pages.
// Keys are lower case and include the leading dot.
var excludedExtensions = map[string]bool{
	// documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true,
	// archives
	".zip": true, ".rar": true, ".tar": true, ".gz": true,
	// media
	".mp3": true, ".mp4": true, ".avi": true,
	// images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true, ".ico": true,
	// page assets and structured data
	".css": true, ".js": true, ".xml": true, ".json": true,
}

// Normalize canonicalizes rawURL for deduplication.
//
// The fragment is dropped and trailing slashes are removed from the path
// unless the path is the root. Scheme, authority, path segments and the query
// string are otherwise returned byte for byte: no case folding, no
// percent-encoding changes, no query sorting.
//
// Normalize works on the string form instead of net/url so that the result
// never differs from the input in ways other than the ones listed above.
// It is idempotent: Normalize(Normalize(u)) == Normalize(u).
func Normalize(rawURL string) string {
	s := rawURL
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}

	query := ""
	if i := strings.IndexByte(s, '?'); i >= 0 {
		query = s[i:]
		s = s[:i]
	}

	prefix, p := splitPath(s)
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}

	return prefix + p + query
}

// splitPath splits a URL without query or fragment into "scheme://authority"
// and the path that follows it. A string without "://" is treated as a bare
// path.
func splitPath(s string) (string, string) {
	i := strings.Index(s, "://")
	if i < 0 {
		return "", s
	}
	rest := s[i+3:]
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		return s, ""
	}
	return s[:i+3+j], rest[j:]
}

// Authority returns the host[:port] of rawURL. It fails when the URL does not
// parse or lacks a scheme or host, which makes it unusable as a crawl seed.
func Authority(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrMissingSchemeOrHost
	}
	return u.Host, nil
}

// IsValid reports whether rawURL may be crawled.
//
// The URL must use http or https, carry no fragment and must not point at a
// file whose extension is in the excluded set (compared case-insensitively).
// When allowExternal is false the URL's authority must equal baseAuthority
// exactly. Any parse failure makes the URL invalid.
func IsValid(rawURL, baseAuthority string, allowExternal bool) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	if !allowExternal && u.Host != baseAuthority {
		return false
	}
	if HasExcludedExtension(u.Path) {
		return false
	}
	if u.Fragment != "" {
		return false
	}
	return true
}

// HasExcludedExtension reports whether the last segment of urlPath ends in
// one of the excluded file extensions.
func HasExcludedExtension(urlPath string) bool {
	return excludedExtensions[strings.ToLower(path.Ext(urlPath))]
}
