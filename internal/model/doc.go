// Package model defines the data structures shared by the crawler, the
// persistence layer and the report writers.
//
// This package contains the following main types:
//   - PageRecord: one successfully crawled page
//   - RunSummary: counters describing a finished (or interrupted) crawl run
//   - PageDiff: the difference between two stored runs of the same seed
//
// Models live in their own package so that crawler, database and report can
// share them without import cycles. All types serialize to JSON.
package model
