package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxDepth is how many link hops from the seed are followed.
	DefaultMaxDepth = 2

	// DefaultMaxPages is the number of pages emitted per run.
	DefaultMaxPages = 10

	// DefaultCrawlDelay is the pause after each emitted page.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultTimeout bounds a single fetch.
	DefaultTimeout = 10 * time.Second

	// DefaultBatchSize is how many seeds are crawled at once.
	DefaultBatchSize = 4

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultUserAgent identifies pagecrawl in HTTP requests.
	DefaultUserAgent = "Mozilla/5.0 (compatible; pagecrawl/1.0; +https://github.com/nao1215/pagecrawl)"

	// DefaultFormat is the report format used when none is given.
	DefaultFormat = "text"

	// AppName is the application name used for XDG directory paths.
	AppName = "pagecrawl"
)

// Config holds all configuration options for one pagecrawl invocation.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Seeds are the start URLs, one crawl run each.
	Seeds []string

	// MaxDepth is the maximum number of link hops from the seed.
	MaxDepth int

	// MaxPages is the maximum number of pages emitted per seed.
	MaxPages int

	// CrawlDelay is the pause after each emitted page.
	CrawlDelay time.Duration

	// AllowExternal lets the crawl leave the seed's authority.
	AllowExternal bool

	// IgnorePatterns are path patterns of discovered links to skip.
	IgnorePatterns []string

	// FollowPatterns, when set, restrict discovered links to matching paths.
	FollowPatterns []string

	// Timeout bounds each fetch, including redirects and reading the body.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	// Larger bodies are truncated.
	MaxBodySize int64

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// MinWords drops pages with fewer words of content from the output.
	MinWords int

	// Dedupe drops pages whose content equals an earlier page of the run.
	Dedupe bool

	// Verbose enables debug logging. Otherwise only warnings and errors
	// are logged.
	Verbose bool

	// LogJSON selects JSON log output instead of text.
	LogJSON bool

	// Format is the report format: text, json or markdown.
	Format string

	// ReportFile is the output file for the report. Empty means stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds the loaded configuration file, if any.
	SiteConfigs *File

	// ProxyAddress is a SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and routes fetches through it.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon to bootstrap.
	TorStartupTimeout time.Duration

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/pagecrawl on Linux).
	DBDir string

	// SaveToDB stores runs and pages in the database.
	SaveToDB bool

	// SkipRecent skips seeds that finished a run within this duration.
	// Zero disables the check.
	SkipRecent time.Duration
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxDepth:          DefaultMaxDepth,
		MaxPages:          DefaultMaxPages,
		CrawlDelay:        DefaultCrawlDelay,
		Timeout:           DefaultTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		BatchSize:         DefaultBatchSize,
		Format:            DefaultFormat,
		TorStartupTimeout: DefaultTorStartupTimeout,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for pagecrawl.
// On Linux: ~/.local/share/pagecrawl
// On macOS: ~/Library/Application Support/pagecrawl
// On Windows: %LOCALAPPDATA%\pagecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pagecrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}

	if c.MaxDepth < 1 {
		return ErrInvalidMaxDepth
	}

	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}

	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.MinWords < 0 {
		return ErrInvalidMinWords
	}

	if c.ProxyAddress != "" && c.UseTor {
		return ErrConflictingProxies
	}

	if (c.SaveToDB || c.SkipRecent > 0) && c.DBDir == "" {
		return ErrSaveWithoutDBDir
	}

	return nil
}
