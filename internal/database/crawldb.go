package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pagecrawl/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "pagecrawl.db"

// CrawlDB provides SQLite-based storage for crawl runs and their pages.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the database file.
	dbPath string
}

// Options configures database behavior.
type Options struct {
	// CreateIfNotExists creates the database file and directory if they do
	// not exist. When false, Open fails if the database is missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging mode for better concurrency.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the crawl database in dbDir.
//
// When opts.CreateIfNotExists is false and the file is missing, Open returns
// an error matching os.ErrNotExist. History commands use this so that
// read-only operations never leave an empty database behind.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("database not found at %s: %w", dbPath, err)
			}
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := dbPath + "?mode=rw&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; batch crawls share this handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl run
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		outcome TEXT NOT NULL DEFAULT 'running',
		pages_emitted INTEGER NOT NULL DEFAULT 0,
		pages_failed INTEGER NOT NULL DEFAULT 0,
		pages_empty INTEGER NOT NULL DEFAULT 0,
		pages_skipped INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);

	-- Pages emitted by a run
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		links TEXT,
		depth INTEGER NOT NULL,
		hash TEXT,
		fetched_at TEXT NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// StartRun inserts a new run row for summary.Seed and returns its ID.
// summary.ID is set as well.
func (cdb *CrawlDB) StartRun(ctx context.Context, summary *model.RunSummary) (int64, error) {
	startedAt := summary.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}

	result, err := cdb.db.ExecContext(ctx,
		`INSERT INTO runs (seed, started_at, outcome) VALUES (?, ?, ?)`,
		summary.Seed,
		formatTimestamp(startedAt),
		model.OutcomeRunning.String(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	summary.ID = id
	return id, nil
}

// FinishRun stores the final counters and outcome of a run.
func (cdb *CrawlDB) FinishRun(ctx context.Context, summary *model.RunSummary) error {
	if summary.ID == 0 {
		return errors.New("run has no id")
	}

	finishedAt := summary.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	var errMsg sql.NullString
	if summary.ErrorMessage != "" {
		errMsg = sql.NullString{String: summary.ErrorMessage, Valid: true}
	}

	var startedAt sql.NullString
	if !summary.StartedAt.IsZero() {
		startedAt = sql.NullString{String: formatTimestamp(summary.StartedAt), Valid: true}
	}

	query := `
	UPDATE runs SET
		started_at = COALESCE(?, started_at),
		finished_at = ?,
		outcome = ?,
		pages_emitted = ?,
		pages_failed = ?,
		pages_empty = ?,
		pages_skipped = ?,
		error = ?
	WHERE id = ?
	`

	args := []any{
		startedAt,
		formatTimestamp(finishedAt),
		summary.Outcome.String(),
		summary.PagesEmitted,
		summary.PagesFailed,
		summary.PagesEmpty,
		summary.PagesSkipped,
		errMsg,
		summary.ID,
	}

	if _, err := cdb.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to finish run %d: %w", summary.ID, err)
	}
	return nil
}

// InsertPage stores a page record under runID. Storing the same URL twice
// for one run replaces the earlier row.
func (cdb *CrawlDB) InsertPage(ctx context.Context, runID int64, page *model.PageRecord) error {
	linksJSON, err := json.Marshal(page.Links)
	if err != nil {
		return fmt.Errorf("failed to serialize links: %w", err)
	}

	fetchedAt := page.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	query := `
	INSERT INTO pages (run_id, url, title, content, links, depth, hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO UPDATE SET
		title = excluded.title,
		content = excluded.content,
		links = excluded.links,
		depth = excluded.depth,
		hash = excluded.hash,
		fetched_at = excluded.fetched_at
	`

	_, err = cdb.db.ExecContext(ctx, query,
		runID,
		page.URL,
		page.Title,
		page.Content,
		string(linksJSON),
		page.Depth,
		page.Hash,
		formatTimestamp(fetchedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert page %s: %w", page.URL, err)
	}
	return nil
}

// GetPages returns the pages of a run in emission order.
func (cdb *CrawlDB) GetPages(ctx context.Context, runID int64) ([]*model.PageRecord, error) {
	query := `
	SELECT url, title, content, links, depth, hash, fetched_at
	FROM pages
	WHERE run_id = ?
	ORDER BY id
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	pages := make([]*model.PageRecord, 0)
	for rows.Next() {
		var (
			page      model.PageRecord
			title     sql.NullString
			linksJSON sql.NullString
			hash      sql.NullString
			fetchedAt string
		)

		if err := rows.Scan(&page.URL, &title, &page.Content, &linksJSON, &page.Depth, &hash, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		page.Title = title.String
		page.Hash = hash.String
		page.FetchedAt = parseTimestamp(fetchedAt)
		if linksJSON.Valid && linksJSON.String != "" && linksJSON.String != "null" {
			if err := json.Unmarshal([]byte(linksJSON.String), &page.Links); err != nil {
				return nil, fmt.Errorf("failed to parse links of %s: %w", page.URL, err)
			}
		}

		pages = append(pages, &page)
	}

	return pages, rows.Err()
}

// GetRun returns the run with the given ID.
// Returns nil, nil if no run exists.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*model.RunSummary, error) {
	row := cdb.db.QueryRowContext(ctx, runSelect+` WHERE id = ?`, id)

	summary, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return summary, nil
}

// ListRuns returns runs newest first. An empty seed lists runs of every
// seed. A limit of zero or less means no limit.
func (cdb *CrawlDB) ListRuns(ctx context.Context, seed string, limit int) ([]*model.RunSummary, error) {
	query := runSelect + ` WHERE 1=1`
	args := make([]any, 0, 2)

	if seed != "" {
		query += " AND seed = ?"
		args = append(args, seed)
	}

	query += " ORDER BY id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*model.RunSummary, 0)
	for rows.Next() {
		summary, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, summary)
	}

	return runs, rows.Err()
}

// ListSeeds returns every seed that has at least one stored run.
func (cdb *CrawlDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `SELECT DISTINCT seed FROM runs ORDER BY seed`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

// HasRecentRun reports whether seed has a successful run that finished
// within the given duration.
func (cdb *CrawlDB) HasRecentRun(ctx context.Context, seed string, within time.Duration) (bool, error) {
	query := `
	SELECT finished_at FROM runs
	WHERE seed = ? AND outcome IN ('completed', 'exhausted') AND finished_at IS NOT NULL
	ORDER BY id DESC
	LIMIT 1
	`

	var finishedAt string
	err := cdb.db.QueryRowContext(ctx, query, seed).Scan(&finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check recent run: %w", err)
	}

	t := parseTimestamp(finishedAt)
	if t.IsZero() {
		return false, nil
	}
	return time.Since(t) < within, nil
}

// DeleteRun removes a run and its pages.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id int64) error {
	if _, err := cdb.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run %d: %w", id, err)
	}
	return nil
}

const runSelect = `
	SELECT id, seed, started_at, finished_at, outcome,
		pages_emitted, pages_failed, pages_empty, pages_skipped, error
	FROM runs`

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RunSummary, error) {
	var (
		summary    model.RunSummary
		startedAt  string
		finishedAt sql.NullString
		outcome    string
		errMsg     sql.NullString
	)

	err := row.Scan(
		&summary.ID,
		&summary.Seed,
		&startedAt,
		&finishedAt,
		&outcome,
		&summary.PagesEmitted,
		&summary.PagesFailed,
		&summary.PagesEmpty,
		&summary.PagesSkipped,
		&errMsg,
	)
	if err != nil {
		return nil, err
	}

	summary.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		summary.FinishedAt = parseTimestamp(finishedAt.String)
	}
	summary.SetOutcome(model.ParseOutcome(outcome))
	summary.ErrorMessage = errMsg.String
	return &summary, nil
}

// formatTimestamp stores times in UTC with nanoseconds so that ordering
// by string matches ordering by time.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats lists the formats parseTimestamp accepts.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp parses a timestamp string, trying multiple formats.
// Returns zero time if none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
