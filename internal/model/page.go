package model

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

// PageRecord is the result of successfully crawling one page.
//
// A record is only produced for a page that was fetched as HTML and whose
// cleaned content is non-empty.
type PageRecord struct {
	// URL is the normalized URL that was dequeued from the frontier.
	URL string `json:"url"`

	// Title is the cleaned page title, at most 200 characters.
	// "Untitled" when the page has no usable title.
	Title string `json:"title"`

	// Content is the cleaned main text of the page. Never empty.
	Content string `json:"content"`

	// Links contains the absolute URLs found in anchor elements,
	// resolved against the final (post-redirect) URL.
	Links []string `json:"links"`

	// Depth is the link distance from the seed; the seed has depth 0.
	Depth int `json:"depth"`

	// FetchedAt is when the page was emitted.
	FetchedAt time.Time `json:"fetched_at"`

	// Hash is the hex SHA3-256 digest of Content.
	// Used for change detection between runs.
	Hash string `json:"hash"`
}

// ComputeHash calculates and sets the SHA3-256 hash of the page content.
// This should be called after setting the Content field.
func (p *PageRecord) ComputeHash() {
	if p.Content == "" {
		p.Hash = ""
		return
	}

	hash := sha3.Sum256([]byte(p.Content))
	p.Hash = hex.EncodeToString(hash[:])
}

// WordCount returns the number of whitespace separated words in Content.
func (p *PageRecord) WordCount() int {
	return len(strings.Fields(p.Content))
}
