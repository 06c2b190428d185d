// Package urlnorm canonicalizes and validates URLs discovered during a crawl.
//
// Everything in this package is pure: no I/O, no shared state. The crawler
// uses Normalize to build the keys of its visited set, and IsValid to decide
// whether a discovered link may enter the frontier.
package urlnorm
