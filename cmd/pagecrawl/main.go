// Package main provides the entry point for the pagecrawl CLI.
//
// pagecrawl crawls websites breadth-first, politely and within a depth and
// page budget, and reports the main text content of every page it visits.
//
// Usage:
//
//	pagecrawl crawl <url>
//	pagecrawl crawl --depth 3 --format json <url> <url>
//	pagecrawl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
