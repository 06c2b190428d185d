// Package pipeline connects crawl runs to their consumers.
//
// A Pipeline is an ordered list of Steps. Every page a run emits is passed
// through the steps in order: filters first (minimum word count, duplicate
// content), then sinks (the SQLite store, the report writer). Steps that
// also implement RunHook are told when a run begins and ends, which is
// where the store opens and closes its run row and the report writer prints
// the summary.
//
// Pipeline.Run drives one crawl: it starts the run, pulls pages one at a
// time and hands each to the steps, so a slow sink slows the crawl down
// rather than buffering pages.
//
// BatchProcessor crawls several seeds concurrently, one independent run
// and pipeline per seed, with the number of simultaneous runs bounded using
// errgroup.
package pipeline
