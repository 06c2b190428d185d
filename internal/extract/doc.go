// Package extract turns fetched HTML into the title, readable text and
// outbound links of a page.
//
// Content comes from two paths. The primary path runs a readability-style
// main-content extractor (go-trafilatura). When it yields no text, fails or
// panics, the fallback path parses the DOM with goquery, deletes navigation,
// advertising, comment and similar chrome, picks the first semantic content
// container and collects its visible text.
//
// Extract never returns an error: every failure degrades to a weaker result,
// and an empty Content is the only signal callers need to check.
package extract
