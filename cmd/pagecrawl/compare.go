package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/pagecrawl/internal/database"
	"github.com/nao1215/pagecrawl/internal/model"
	"github.com/nao1215/pagecrawl/internal/urlnorm"
	"github.com/spf13/cobra"
)

// ErrNotEnoughRuns is returned when a seed has fewer than two stored runs.
var ErrNotEnoughRuns = errors.New("at least 2 stored runs are required for comparison")

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare two stored crawl runs",
		Long: `Compare shows which pages were added, removed or changed between two
stored runs. Pages are matched by URL and compared by content hash.

By default the latest two runs of the given seed are compared.

Examples:
  # Compare the latest two runs of a seed
  pagecrawl compare https://example.com

  # Compare the latest run of a seed with run 3
  pagecrawl compare --with 3 https://example.com

  # Compare two specific runs
  pagecrawl compare --run 3 --with 7

  # Output as JSON
  pagecrawl compare -f json https://example.com`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	cmd.Flags().Int64("run", 0,
		"ID of the first run to compare (requires --with)")
	cmd.Flags().Int64("with", 0,
		"ID of the run to compare against")
	addStoreFlags(cmd)

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	runID, err := cmd.Flags().GetInt64("run")
	if err != nil {
		return err
	}
	withID, err := cmd.Flags().GetInt64("with")
	if err != nil {
		return err
	}

	if runID != 0 && withID == 0 {
		return errors.New("--run requires --with")
	}
	if runID == 0 && len(args) == 0 {
		return errors.New("specify a seed URL, or two runs with --run and --with")
	}

	db, writer, err := openStore(cmd)
	if err != nil {
		return err
	}
	if db == nil {
		return errors.New("no crawl history found (use 'pagecrawl crawl --save <url>' to store runs)")
	}
	defer db.Close()

	ctx := cmd.Context()

	var a, b *model.RunSummary
	if runID != 0 {
		a, b, err = loadRunPair(ctx, db, runID, withID)
	} else {
		a, b, err = selectRuns(ctx, db, urlnorm.Normalize(seedURL(args[0])), withID)
	}
	if err != nil {
		return err
	}

	older, newer := a, b
	if newer.StartedAt.Before(older.StartedAt) {
		older, newer = newer, older
	}

	olderPages, err := db.GetPages(ctx, older.ID)
	if err != nil {
		return err
	}
	newerPages, err := db.GetPages(ctx, newer.ID)
	if err != nil {
		return err
	}

	_, err = writer.WriteDiff(older, newer, model.DiffPages(olderPages, newerPages))
	return err
}

// loadRunPair loads two runs by ID.
func loadRunPair(ctx context.Context, db *database.CrawlDB, first, second int64) (*model.RunSummary, *model.RunSummary, error) {
	a, err := getRun(ctx, db, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := getRun(ctx, db, second)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

// selectRuns picks the latest run of seed and either the run before it or
// the run with ID withID.
func selectRuns(ctx context.Context, db *database.CrawlDB, seed string, withID int64) (*model.RunSummary, *model.RunSummary, error) {
	runs, err := db.ListRuns(ctx, seed, 2)
	if err != nil {
		return nil, nil, err
	}
	if len(runs) == 0 {
		return nil, nil, fmt.Errorf("no stored runs found for %s", seed)
	}

	latest := runs[0]
	if withID != 0 {
		other, err := getRun(ctx, db, withID)
		if err != nil {
			return nil, nil, err
		}
		return other, latest, nil
	}

	if len(runs) < 2 {
		return nil, nil, fmt.Errorf("%w (found 1 for %s)", ErrNotEnoughRuns, seed)
	}
	return runs[1], latest, nil
}

// getRun loads a run and turns a missing run into an error.
func getRun(ctx context.Context, db *database.CrawlDB, id int64) (*model.RunSummary, error) {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("run %d not found", id)
	}
	return run, nil
}
