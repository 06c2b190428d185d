package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/pagecrawl/internal/config"
	"github.com/nao1215/pagecrawl/internal/crawler"
	"github.com/nao1215/pagecrawl/internal/database"
	"github.com/nao1215/pagecrawl/internal/fetcher"
	"github.com/nao1215/pagecrawl/internal/model"
	"github.com/nao1215/pagecrawl/internal/pipeline"
	"github.com/nao1215/pagecrawl/internal/report"
	"github.com/nao1215/pagecrawl/internal/torproxy"
	"github.com/nao1215/pagecrawl/internal/urlnorm"
	"github.com/spf13/cobra"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl one or more sites and extract page content",
		Long: `Crawl visits each seed URL breadth-first and reports the title, main text
and links of every HTML page it reaches.

A crawl stays on the seed's host unless --allow-external is given, pauses
between pages, and stops when the page budget is used up, the depth limit
is reached or no links are left. Seeds without a scheme get https://.

Examples:
  # Crawl a site with the defaults (depth 2, 10 pages, 1s delay)
  pagecrawl crawl https://example.com

  # Deeper crawl written as newline-delimited JSON
  pagecrawl crawl -d 3 -p 50 -f json -o out/example.ndjson example.com

  # Crawl several sites, two at a time, and keep the results
  pagecrawl crawl -b 2 --save example.com example.org example.net

  # Crawl through a SOCKS5 proxy
  pagecrawl crawl --proxy 127.0.0.1:9050 example.com

  # Start an embedded Tor daemon and crawl through it
  pagecrawl crawl --tor http://exampleonionaddress.onion

Configuration file (.pagecrawl) example:
  defaults:
    delay: 500ms
  sites:
    docs.example.com:
      depth: 4
      followPatterns:
        - "/guide/*"
    intranet.example.com:
      cookie: "session=abc123"`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl scope
	cmd.Flags().IntP("depth", "d", config.DefaultMaxDepth,
		"Maximum link distance from the seed")
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of pages with content per seed")
	cmd.Flags().Duration("delay", config.DefaultCrawlDelay,
		"Pause after every page")
	cmd.Flags().Bool("allow-external", false,
		"Follow links to other hosts")
	cmd.Flags().StringSlice("ignore", nil,
		"Skip discovered links whose path matches a pattern (repeatable)")
	cmd.Flags().StringSlice("follow", nil,
		"Only follow discovered links whose path matches a pattern (repeatable)")

	// Requests
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes of a response body to read")
	cmd.Flags().String("proxy", "",
		"Send requests through the SOCKS5 proxy at host:port")
	cmd.Flags().Bool("tor", false,
		"Start an embedded Tor daemon and send requests through it")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Batch
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")

	// Output filtering
	cmd.Flags().Int("min-words", 0,
		"Drop pages with fewer words of content")
	cmd.Flags().Bool("dedupe", false,
		"Drop pages whose content repeats an earlier page of the same run")

	// Report
	cmd.Flags().StringP("format", "f", config.DefaultFormat,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to a file (creates directories if needed)")

	// Storage
	cmd.Flags().Bool("save", false,
		"Store runs and pages in the local database")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Database directory")
	cmd.Flags().Duration("skip-recent", 0,
		"Skip seeds with a successful stored run newer than this (e.g. 24h)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pagecrawl in the current directory, the XDG config dir or home)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg.Verbose, cfg.LogJSON)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.MaxDepth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if cfg.CrawlDelay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if cfg.AllowExternal, err = flags.GetBool("allow-external"); err != nil {
		return nil, err
	}
	if cfg.IgnorePatterns, err = flags.GetStringSlice("ignore"); err != nil {
		return nil, err
	}
	if cfg.FollowPatterns, err = flags.GetStringSlice("follow"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.MaxBodySize, err = flags.GetInt64("max-body-size"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.MinWords, err = flags.GetInt("min-words"); err != nil {
		return nil, err
	}
	if cfg.Dedupe, err = flags.GetBool("dedupe"); err != nil {
		return nil, err
	}
	if cfg.Format, err = flags.GetString("format"); err != nil {
		return nil, err
	}
	if _, err := report.ParseFormat(cfg.Format); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.SkipRecent, err = flags.GetDuration("skip-recent"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	// An explicitly named file must exist; the default locations are optional.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	cfg.Seeds = make([]string, 0, len(args))
	for _, arg := range args {
		cfg.Seeds = append(cfg.Seeds, seedURL(arg))
	}

	return cfg, nil
}

// seedURL turns a command line argument into a seed URL. Arguments without
// a scheme are taken to be https hosts.
func seedURL(arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.Contains(arg, "://") {
		return arg
	}
	return "https://" + arg
}

// runCrawl crawls every seed in cfg and writes the report to stdout or
// cfg.ReportFile. Progress goes to stderr.
func runCrawl(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	logger.Info("starting crawl",
		"seeds", len(cfg.Seeds),
		"max_depth", cfg.MaxDepth,
		"max_pages", cfg.MaxPages,
		"batch_size", cfg.BatchSize,
		"save", cfg.SaveToDB,
	)

	var db *database.CrawlDB
	if cfg.SaveToDB || cfg.SkipRecent > 0 {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	seeds, err := filterRecent(ctx, db, cfg.Seeds, cfg.SkipRecent, stderr)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		fmt.Fprintln(stderr, "Nothing to crawl: every seed was crawled recently.")
		return nil
	}

	dialer, cleanup, err := setupProxy(ctx, cfg, stderr, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	writer, err := report.NewWriter(format, output, cfg.Verbose)
	if err != nil {
		return err
	}
	if cfg.ReportFile != "" {
		writer = report.NewMultiWriter(writer, report.NewSimpleWriter(stderr, report.WithCompact(true)))
	}

	var store *database.CrawlDB
	if cfg.SaveToDB {
		store = db
	}

	factory := func(seed string) (*crawler.Spider, *pipeline.Pipeline, error) {
		return newCrawlRun(cfg, seed, dialer, writer, store, logger)
	}

	startTime := time.Now()
	var summaries []*model.RunSummary
	if len(seeds) > 1 && cfg.BatchSize > 1 {
		summaries, err = runBatchCrawl(ctx, cfg, seeds, factory, stderr, logger)
	} else {
		summaries, err = runSequentialCrawl(ctx, seeds, factory, stderr)
	}
	logger.Info("crawl finished", "seeds", len(seeds), "elapsed", time.Since(startTime).Round(time.Millisecond))
	if err != nil {
		return err
	}

	return checkSummaries(summaries)
}

// runSequentialCrawl crawls seeds one at a time.
func runSequentialCrawl(ctx context.Context, seeds []string, factory pipeline.RunFactory, stderr io.Writer) ([]*model.RunSummary, error) {
	summaries := make([]*model.RunSummary, 0, len(seeds))
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}

		fmt.Fprintf(stderr, "Crawling %s...\n", seed)

		spider, p, err := factory(seed)
		if err != nil {
			return summaries, fmt.Errorf("failed to prepare crawl of %s: %w", seed, err)
		}

		summary, err := p.Run(ctx, spider, seed)
		summaries = append(summaries, summary)
		if err != nil {
			fmt.Fprintf(stderr, "Crawl error for %s: %v\n", seed, err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summaries, err
			}
		}
	}
	return summaries, nil
}

// runBatchCrawl crawls seeds concurrently with a BatchProcessor.
func runBatchCrawl(ctx context.Context, cfg *config.Config, seeds []string, factory pipeline.RunFactory, stderr io.Writer, logger *slog.Logger) ([]*model.RunSummary, error) {
	fmt.Fprintf(stderr, "Crawling %d seeds (concurrency: %d)...\n", len(seeds), cfg.BatchSize)

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	summaries := make([]*model.RunSummary, len(seeds))
	var mu sync.Mutex
	done := 0
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(summary *model.RunSummary, index int) {
		mu.Lock()
		defer mu.Unlock()
		summaries[index] = summary
		done++
		fmt.Fprintf(stderr, "[%d/%d] %s: %s\n", done, len(seeds), summary.Seed, summary.OutcomeName)
	})

	finished := make([]*model.RunSummary, 0, len(summaries))
	for _, s := range summaries {
		if s != nil {
			finished = append(finished, s)
		}
	}
	return finished, err
}

// newCrawlRun builds the Spider and Pipeline for one seed. Settings from the
// configuration file for the seed's authority override the flags.
func newCrawlRun(
	cfg *config.Config,
	seed string,
	dialer fetcher.ContextDialer,
	writer report.Writer,
	store *database.CrawlDB,
	logger *slog.Logger,
) (*crawler.Spider, *pipeline.Pipeline, error) {
	// An unparsable seed falls back to the defaults; Spider.Start rejects it.
	authority, err := urlnorm.Authority(urlnorm.Normalize(seed))
	if err != nil {
		authority = ""
	}
	settings := cfg.SettingsFor(authority)

	fetchOpts := []fetcher.Option{
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(settings.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	}
	if settings.Cookie != "" {
		fetchOpts = append(fetchOpts, fetcher.WithCookie(settings.Cookie))
	}
	if len(settings.Headers) > 0 {
		fetchOpts = append(fetchOpts, fetcher.WithHeaders(settings.Headers))
	}
	if dialer != nil {
		fetchOpts = append(fetchOpts, fetcher.WithDialer(dialer))
	}

	runLogger := logger.With("seed", seed)
	spider := crawler.NewSpider(fetcher.New(fetchOpts...),
		crawler.WithMaxDepth(settings.MaxDepth),
		crawler.WithMaxPages(settings.MaxPages),
		crawler.WithDelay(settings.Delay),
		crawler.WithAllowExternal(settings.AllowExternal),
		crawler.WithIgnorePatterns(settings.IgnorePatterns),
		crawler.WithFollowPatterns(settings.FollowPatterns),
		crawler.WithLogger(runLogger),
	)
	if err := spider.Validate(); err != nil {
		return nil, nil, err
	}

	p := pipeline.New(pipeline.WithLogger(runLogger))
	if cfg.MinWords > 0 {
		p.AddStep(pipeline.NewMinWordsStep(cfg.MinWords))
	}
	if cfg.Dedupe {
		p.AddStep(pipeline.NewDedupeStep(runLogger))
	}
	if store != nil {
		p.AddStep(pipeline.NewStoreStep(store))
	}
	p.AddStep(pipeline.NewWriteStep(writer))

	return spider, p, nil
}

// filterRecent drops seeds whose last successful stored run finished within
// the given window. A zero window or nil db keeps every seed.
func filterRecent(ctx context.Context, db *database.CrawlDB, seeds []string, within time.Duration, stderr io.Writer) ([]string, error) {
	if db == nil || within <= 0 {
		return seeds, nil
	}

	kept := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		recent, err := db.HasRecentRun(ctx, urlnorm.Normalize(seed), within)
		if err != nil {
			return nil, err
		}
		if recent {
			fmt.Fprintf(stderr, "Skipping %s (crawled within %s)\n", seed, within)
			continue
		}
		kept = append(kept, seed)
	}
	return kept, nil
}

// setupProxy returns the dialer for --proxy or --tor, or nil for direct
// connections. The returned cleanup stops an embedded Tor daemon.
func setupProxy(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (fetcher.ContextDialer, func(), error) {
	noop := func() {}

	switch {
	case cfg.ProxyAddress != "":
		proxy, err := torproxy.New(cfg.ProxyAddress)
		if err != nil {
			return nil, noop, err
		}
		if status := proxy.CheckConnection(ctx); status != torproxy.ProxyStatusOK {
			return nil, noop, fmt.Errorf("proxy check failed: %w (make sure a SOCKS5 proxy is running at %s)",
				status.Err(), cfg.ProxyAddress)
		}
		logger.Info("proxy connection verified", "address", cfg.ProxyAddress)
		return proxy, noop, nil

	case cfg.UseTor:
		embedded, proxy, err := startEmbeddedTor(ctx, cfg, stderr, logger)
		if err != nil {
			return nil, noop, err
		}
		cleanup := func() {
			logger.Info("stopping embedded Tor daemon")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}
		return proxy, cleanup, nil

	default:
		return nil, noop, nil
	}
}

// startEmbeddedTor starts a Tor daemon and checks its SOCKS port.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (*torproxy.EmbeddedTor, *torproxy.Proxy, error) {
	fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := torproxy.NewEmbeddedTor(
		torproxy.WithStartupTimeout(cfg.TorStartupTimeout),
		torproxy.WithLogger(logger),
	)
	if err := embedded.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	proxy, err := embedded.Proxy()
	if err != nil {
		_ = embedded.Stop() //nolint:errcheck // best effort cleanup
		return nil, nil, err
	}

	if status := proxy.CheckConnection(ctx); status != torproxy.ProxyStatusOK {
		_ = embedded.Stop() //nolint:errcheck // best effort cleanup
		return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", status.Err())
	}

	fmt.Fprintf(stderr, "Embedded Tor daemon started (SOCKS proxy: %s)\n\n", embedded.SocksAddr())
	return embedded, proxy, nil
}

// openOutput opens path for the report, or returns stdout when path is
// empty. Parent directories are created as needed.
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports may contain content from authenticated pages.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // write errors surface through the writer
}

// ErrRunsFailed is returned when at least one crawl run failed.
var ErrRunsFailed = errors.New("crawl failed")

// checkSummaries returns an error naming how many runs failed or were
// cancelled.
func checkSummaries(summaries []*model.RunSummary) error {
	failed := 0
	for _, s := range summaries {
		if s.Outcome == model.OutcomeFailed || s.Outcome == model.OutcomeCancelled {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%w: %d of %d runs did not complete", ErrRunsFailed, failed, len(summaries))
}
