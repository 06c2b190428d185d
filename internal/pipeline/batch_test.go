package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/pagecrawl/internal/crawler"
	"github.com/nao1215/pagecrawl/internal/model"
)

// multiSite serves one home page per host.
func multiSite(hosts ...string) *siteFetcher {
	f := &siteFetcher{pages: map[string]string{}}
	for _, h := range hosts {
		f.pages["https://"+h+"/"] = htmlPage(h, "home page of "+h)
	}
	return f
}

func TestNewBatchProcessor(t *testing.T) {
	t.Parallel()

	bp := NewBatchProcessor(nil)
	if bp.Concurrency() != DefaultConcurrency {
		t.Errorf("expected %d, got %d", DefaultConcurrency, bp.Concurrency())
	}

	bp = NewBatchProcessor(nil, WithConcurrency(2))
	if bp.Concurrency() != 2 {
		t.Errorf("expected 2, got %d", bp.Concurrency())
	}

	bp = NewBatchProcessor(nil, WithConcurrency(0))
	if bp.Concurrency() != DefaultConcurrency {
		t.Error("non-positive concurrency should be ignored")
	}
}

func TestProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns summaries in seed order", func(t *testing.T) {
		t.Parallel()

		site := multiSite("a.example", "b.example", "c.example")
		factory := func(string) (*crawler.Spider, *Pipeline, error) {
			return testSpider(site), New(WithLogger(discardLogger())), nil
		}
		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger()))

		seeds := []string{"https://c.example/", "https://a.example/", "https://b.example/"}
		results, err := bp.ProcessBatch(t.Context(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(results) != len(seeds) {
			t.Fatalf("expected %d results, got %d", len(seeds), len(results))
		}
		for i, seed := range seeds {
			if results[i].Seed != seed {
				t.Errorf("result %d: expected %s, got %s", i, seed, results[i].Seed)
			}
			if results[i].PagesEmitted != 1 {
				t.Errorf("result %d: expected 1 page, got %d", i, results[i].PagesEmitted)
			}
		}
	})

	t.Run("respects the concurrency limit", func(t *testing.T) {
		t.Parallel()

		var active, peak atomic.Int32
		site := multiSite("a.example", "b.example", "c.example", "d.example", "e.example", "f.example")
		factory := func(string) (*crawler.Spider, *Pipeline, error) {
			p := New(WithLogger(discardLogger()))
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.PageRecord) error {
				n := active.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				active.Add(-1)
				return nil
			}})
			return testSpider(site), p, nil
		}
		bp := NewBatchProcessor(factory, WithConcurrency(2), WithBatchLogger(discardLogger()))

		seeds := []string{
			"https://a.example/", "https://b.example/", "https://c.example/",
			"https://d.example/", "https://e.example/", "https://f.example/",
		}
		if _, err := bp.ProcessBatch(t.Context(), seeds); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent runs, saw %d", peak.Load())
		}
	})

	t.Run("failed seeds do not stop the batch", func(t *testing.T) {
		t.Parallel()

		site := multiSite("a.example", "c.example")
		factory := func(seed string) (*crawler.Spider, *Pipeline, error) {
			if seed == "https://b.example/" {
				return nil, nil, errors.New("no settings")
			}
			return testSpider(site), New(WithLogger(discardLogger())), nil
		}
		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger()))

		results, err := bp.ProcessBatch(t.Context(), []string{
			"https://a.example/", "https://b.example/", "not a url", "https://c.example/",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantOutcomes := []model.Outcome{
			model.OutcomeExhausted,
			model.OutcomeFailed,
			model.OutcomeFailed,
			model.OutcomeExhausted,
		}
		for i, want := range wantOutcomes {
			if results[i].Outcome != want {
				t.Errorf("result %d: expected %s, got %s", i, want, results[i].OutcomeName)
			}
		}
		if results[1].ErrorMessage == "" {
			t.Error("expected factory error to be recorded")
		}
	})

	t.Run("cancelled batch marks unstarted seeds", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		factory := func(string) (*crawler.Spider, *Pipeline, error) {
			t.Error("factory should not be called")
			return nil, nil, errors.New("unreachable")
		}
		bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger()))

		results, err := bp.ProcessBatch(ctx, []string{"https://a.example/", "https://b.example/"})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		for i, r := range results {
			if r.Outcome != model.OutcomeCancelled {
				t.Errorf("result %d: expected cancelled, got %s", i, r.OutcomeName)
			}
		}
	})
}

func TestProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	site := multiSite("a.example", "b.example")
	factory := func(string) (*crawler.Spider, *Pipeline, error) {
		return testSpider(site), New(WithLogger(discardLogger())), nil
	}
	bp := NewBatchProcessor(factory, WithBatchLogger(discardLogger()))

	var mu sync.Mutex
	seen := map[int]string{}
	err := bp.ProcessBatchWithCallback(t.Context(), []string{"https://a.example/", "https://b.example/"},
		func(summary *model.RunSummary, index int) {
			mu.Lock()
			defer mu.Unlock()
			seen[index] = summary.Seed
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen[0] != "https://a.example/" || seen[1] != "https://b.example/" {
		t.Errorf("unexpected callbacks %v", seen)
	}
}
