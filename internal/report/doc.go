// Package report renders crawl output.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: newline-delimited JSON for tool integration
//   - MarkdownWriter: a Markdown document per run, for sharing
//
// Writers receive page records one at a time while a run is in progress and
// a summary when it ends, so text and JSON output stream as the crawl
// advances. The same writers render stored run history and run comparisons.
//
// All writers are safe for concurrent use; batch crawls share one writer.
package report
