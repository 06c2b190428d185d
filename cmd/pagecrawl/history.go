package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/pagecrawl/internal/config"
	"github.com/nao1215/pagecrawl/internal/database"
	"github.com/nao1215/pagecrawl/internal/report"
	"github.com/nao1215/pagecrawl/internal/urlnorm"
	"github.com/spf13/cobra"
)

// defaultHistoryLimit is how many runs history lists by default.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List stored crawl runs",
		Long: `History lists the runs stored with "pagecrawl crawl --save", newest first.

Examples:
  # List the latest runs of every seed
  pagecrawl history

  # List runs of one seed
  pagecrawl history https://example.com

  # List the seeds that have stored runs
  pagecrawl history --seeds

  # Delete a run and its pages
  pagecrawl history --delete 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 for all)")
	cmd.Flags().Bool("seeds", false,
		"List seeds with stored runs instead of runs")
	cmd.Flags().Int64("delete", 0,
		"Delete the run with this ID")
	addStoreFlags(cmd)

	return cmd
}

// addStoreFlags adds the flags shared by the commands reading the database.
func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Output format: text, json or markdown")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Database directory")
}

// openStore opens the database read from --db-dir and the writer for
// --format. It returns a nil database, without error, when nothing has been
// stored yet.
func openStore(cmd *cobra.Command) (*database.CrawlDB, report.Writer, error) {
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, nil, err
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return nil, nil, err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, nil, err
	}

	writer, err := report.NewWriter(format, cmd.OutOrStdout(), false)
	if err != nil {
		return nil, nil, err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if errors.Is(err, os.ErrNotExist) {
		return nil, writer, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, writer, nil
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	listSeeds, err := cmd.Flags().GetBool("seeds")
	if err != nil {
		return err
	}
	deleteID, err := cmd.Flags().GetInt64("delete")
	if err != nil {
		return err
	}

	db, writer, err := openStore(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if db == nil {
		fmt.Fprintln(out, "No crawl history found.")
		fmt.Fprintln(out, "\nUse 'pagecrawl crawl --save <url>' to store runs.")
		return nil
	}
	defer db.Close()

	ctx := cmd.Context()
	switch {
	case deleteID != 0:
		return deleteRun(ctx, db, deleteID, out)
	case listSeeds:
		return listStoredSeeds(ctx, db, out)
	}

	seed := ""
	if len(args) == 1 {
		seed = urlnorm.Normalize(seedURL(args[0]))
	}

	runs, err := db.ListRuns(ctx, seed, limit)
	if err != nil {
		return err
	}
	_, err = writer.WriteRuns(runs)
	return err
}

// listStoredSeeds prints every seed with at least one stored run.
func listStoredSeeds(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	seeds, err := db.ListSeeds(ctx)
	if err != nil {
		return err
	}

	if len(seeds) == 0 {
		fmt.Fprintln(out, "No seeds found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Crawled seeds (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Fprintf(out, "  %s\n", seed)
	}
	fmt.Fprintln(out, "\nUse 'pagecrawl history <url>' to see the runs of a seed.")
	return nil
}

// deleteRun removes a stored run after checking that it exists.
func deleteRun(ctx context.Context, db *database.CrawlDB, id int64, out io.Writer) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}

	if err := db.DeleteRun(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted run %d of %s\n", id, run.Seed)
	return nil
}
