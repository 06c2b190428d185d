package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/nao1215/pagecrawl/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pagecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagecrawl",
		Short: "Polite breadth-first crawler that extracts page content",
		Long: `pagecrawl crawls websites breadth-first from one or more seed URLs.

It stays on the seed's host unless told otherwise, waits between requests,
stops at a depth and page budget, and extracts the title, main text and
links of every HTML page it visits.

Runs can be stored in a local SQLite database and compared later.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getBoolFlag reads a flag from the command, falling back to the root's
// persistent flags when the command runs detached from its parent.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// setupLogger creates the redacting logger for the given verbosity.
func setupLogger(w io.Writer, verbose, jsonOutput bool) *slog.Logger {
	if jsonOutput {
		return log.NewSecureJSONLogger(w, verbose)
	}
	return log.NewSecureLogger(w, verbose)
}
