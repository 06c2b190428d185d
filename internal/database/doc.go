// Package database provides SQLite-based storage for crawl runs.
//
// This package implements the CrawlDB, which stores:
//   - Runs: seed, timestamps, outcome and counters of each crawl
//   - Pages: the records a run emitted, with their content hash
//
// The crawler itself keeps no persistent state; the CLI writes runs here
// when --save is given so that later runs of the same seed can be listed
// and compared.
//
// SQLite is used through modernc.org/sqlite, a CGO-free driver, so the
// database is a single file and the binary cross-compiles without a C
// toolchain.
package database
