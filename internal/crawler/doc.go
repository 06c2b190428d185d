// Package crawler provides the crawl controller: a breadth-first,
// depth-bounded, budget-limited walk over the pages of a site.
//
// # Architecture
//
// A Spider holds the crawl settings and its collaborators (a fetcher and a
// content extractor). Spider.Start validates the settings and the seed URL
// and returns a Run. The Run owns all mutable crawl state: the FIFO frontier
// of (url, depth) entries, the visited set and the emission counter.
//
// A Run is pull driven. Each call to Run.Next processes frontier entries
// until exactly one page has been emitted or the run ends, so the crawl
// advances only as fast as the consumer asks for records. Run.Pages wraps
// Next as an iter.Seq.
//
// # States
//
//	Idle -> Running -> Completed  (page budget reached)
//	                -> Exhausted  (frontier drained)
//
// Both terminal states are successful; the consumer only sees ErrDone.
// Run.Summary tells them apart.
//
// # Errors
//
// Only configuration problems escape the controller, as a *ConfigError,
// before any network activity. Fetch failures and pages without content are
// logged and skipped; they never consume page budget and never abort a run.
//
// # Politeness
//
// After every emitted page the run owes one delay. It is paid at the start of
// the next pull, before any further frontier entry is processed. Failed
// fetches are not followed by a delay.
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher.New(), crawler.WithMaxDepth(1))
//	run, err := spider.Start("https://example.com/")
//	if err != nil {
//		return err
//	}
//	for page := range run.Pages(ctx) {
//		fmt.Println(page.URL, page.Title)
//	}
//	if err := run.Err(); err != nil {
//		return err
//	}
package crawler
