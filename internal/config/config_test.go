package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns the documented defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("crawl limits", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxDepth != 2 {
			t.Errorf("expected MaxDepth 2, got %d", cfg.MaxDepth)
		}
		if cfg.MaxPages != 10 {
			t.Errorf("expected MaxPages 10, got %d", cfg.MaxPages)
		}
		if cfg.CrawlDelay != time.Second {
			t.Errorf("expected CrawlDelay 1s, got %v", cfg.CrawlDelay)
		}
		if cfg.AllowExternal {
			t.Error("expected AllowExternal to be false")
		}
	})

	t.Run("fetch settings", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout 10s, got %v", cfg.Timeout)
		}
		if !strings.Contains(cfg.UserAgent, "pagecrawl") {
			t.Errorf("expected pagecrawl user agent, got %q", cfg.UserAgent)
		}
		if cfg.MaxBodySize != 5*1024*1024 {
			t.Errorf("expected MaxBodySize 5MB, got %d", cfg.MaxBodySize)
		}
	})

	t.Run("output and storage", func(t *testing.T) {
		t.Parallel()
		if cfg.BatchSize != 4 {
			t.Errorf("expected BatchSize 4, got %d", cfg.BatchSize)
		}
		if cfg.Format != "text" {
			t.Errorf("expected text format, got %q", cfg.Format)
		}
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
		if cfg.SaveToDB {
			t.Error("expected SaveToDB to be false")
		}
		if cfg.TorStartupTimeout != 3*time.Minute {
			t.Errorf("expected TorStartupTimeout 3m, got %v", cfg.TorStartupTimeout)
		}
	})
}

// TestConfigValidate tests one validation rule per case.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig()
		cfg.Seeds = []string{"https://example.com"}
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("zero delay is valid", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.CrawlDelay = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"no seeds", func(c *Config) { c.Seeds = nil }, ErrNoSeed},
		{"zero depth", func(c *Config) { c.MaxDepth = 0 }, ErrInvalidMaxDepth},
		{"zero pages", func(c *Config) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"negative delay", func(c *Config) { c.CrawlDelay = -time.Second }, ErrInvalidCrawlDelay},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative min words", func(c *Config) { c.MinWords = -1 }, ErrInvalidMinWords},
		{"proxy and tor", func(c *Config) {
			c.ProxyAddress = "127.0.0.1:9050"
			c.UseTor = true
		}, ErrConflictingProxies},
		{"save without db dir", func(c *Config) {
			c.SaveToDB = true
			c.DBDir = ""
		}, ErrSaveWithoutDBDir},
		{"skip recent without db dir", func(c *Config) {
			c.SkipRecent = time.Hour
			c.DBDir = ""
		}, ErrSaveWithoutDBDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func boolPtr(b bool) *bool { return &b }

// TestFileGetSiteConfig tests merging of site entries over defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{
			Depth:   3,
			Cookie:  "default=1",
			Headers: map[string]string{"X-Default": "yes", "X-Both": "default"},
		},
		Sites: map[string]SiteConfig{
			"docs.example.com": {
				MaxPages:       50,
				Delay:          durationPtr(0),
				AllowExternal:  boolPtr(true),
				Headers:        map[string]string{"X-Both": "site"},
				IgnorePatterns: []string{"/private/*"},
			},
		},
	}

	t.Run("unknown authority returns defaults", func(t *testing.T) {
		t.Parallel()
		sc := file.GetSiteConfig("other.example.com")
		if sc.Depth != 3 || sc.Cookie != "default=1" {
			t.Errorf("unexpected config %+v", sc)
		}
	})

	t.Run("site entry overrides defaults", func(t *testing.T) {
		t.Parallel()
		sc := file.GetSiteConfig("docs.example.com")
		if sc.Depth != 3 {
			t.Errorf("expected inherited depth 3, got %d", sc.Depth)
		}
		if sc.MaxPages != 50 {
			t.Errorf("expected 50 pages, got %d", sc.MaxPages)
		}
		if sc.Delay == nil || *sc.Delay != 0 {
			t.Errorf("expected explicit zero delay, got %v", sc.Delay)
		}
		if sc.AllowExternal == nil || !*sc.AllowExternal {
			t.Error("expected AllowExternal override")
		}
		if sc.Headers["X-Default"] != "yes" || sc.Headers["X-Both"] != "site" {
			t.Errorf("unexpected headers %v", sc.Headers)
		}
	})

	t.Run("merging does not modify defaults", func(t *testing.T) {
		t.Parallel()
		_ = file.GetSiteConfig("docs.example.com")
		if file.Defaults.Headers["X-Both"] != "default" {
			t.Error("defaults headers were modified")
		}
	})

	t.Run("nil file returns empty config", func(t *testing.T) {
		t.Parallel()
		var nilFile *File
		sc := nilFile.GetSiteConfig("docs.example.com")
		if sc.Depth != 0 || sc.Headers != nil {
			t.Errorf("expected empty config, got %+v", sc)
		}
	})
}

// TestSettingsFor tests how flags and the config file combine.
func TestSettingsFor(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.IgnorePatterns = []string{"/tmp/*"}
	cfg.SiteConfigs = &File{
		Sites: map[string]SiteConfig{
			"slow.example.com": {
				Depth:          5,
				Delay:          durationPtr(3 * time.Second),
				UserAgent:      "custom/1.0",
				Cookie:         "session=abc",
				FollowPatterns: []string{"/blog/*"},
			},
		},
	}

	t.Run("without site entry uses flags", func(t *testing.T) {
		t.Parallel()
		s := cfg.SettingsFor("example.com")
		if s.MaxDepth != DefaultMaxDepth || s.MaxPages != DefaultMaxPages || s.Delay != DefaultCrawlDelay {
			t.Errorf("unexpected settings %+v", s)
		}
		if s.UserAgent != DefaultUserAgent {
			t.Errorf("unexpected user agent %q", s.UserAgent)
		}
		if len(s.IgnorePatterns) != 1 {
			t.Errorf("expected flag ignore patterns, got %v", s.IgnorePatterns)
		}
	})

	t.Run("site entry overrides flags", func(t *testing.T) {
		t.Parallel()
		s := cfg.SettingsFor("slow.example.com")
		if s.MaxDepth != 5 {
			t.Errorf("expected depth 5, got %d", s.MaxDepth)
		}
		if s.MaxPages != DefaultMaxPages {
			t.Errorf("expected default pages, got %d", s.MaxPages)
		}
		if s.Delay != 3*time.Second {
			t.Errorf("expected 3s delay, got %v", s.Delay)
		}
		if s.UserAgent != "custom/1.0" || s.Cookie != "session=abc" {
			t.Errorf("unexpected fetch settings %+v", s)
		}
		if len(s.FollowPatterns) != 1 || s.FollowPatterns[0] != "/blog/*" {
			t.Errorf("unexpected follow patterns %v", s.FollowPatterns)
		}
		if len(s.IgnorePatterns) != 1 || s.IgnorePatterns[0] != "/tmp/*" {
			t.Errorf("expected flag ignore patterns to remain, got %v", s.IgnorePatterns)
		}
	})

	t.Run("no config file", func(t *testing.T) {
		t.Parallel()
		plain := NewConfig()
		s := plain.SettingsFor("example.com")
		if s.MaxDepth != DefaultMaxDepth || s.Cookie != "" || s.Headers != nil {
			t.Errorf("unexpected settings %+v", s)
		}
	})
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		return path
	}

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.pagecrawl")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `defaults:
  depth: 3
  delay: 2s
  userAgent: "crawler/1.0"
sites:
  example.com:
    maxPages: 25
    delay: 500ms
    allowExternal: true
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/admin/*"
    followPatterns:
      - "/docs/*"
`)

		cfg, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Depth != 3 {
			t.Errorf("expected default depth 3, got %d", cfg.Defaults.Depth)
		}
		if cfg.Defaults.Delay == nil || *cfg.Defaults.Delay != 2*time.Second {
			t.Errorf("expected default delay 2s, got %v", cfg.Defaults.Delay)
		}

		site, ok := cfg.Sites["example.com"]
		if !ok {
			t.Fatal("expected example.com in sites")
		}
		if site.MaxPages != 25 {
			t.Errorf("expected 25 pages, got %d", site.MaxPages)
		}
		if site.Delay == nil || *site.Delay != 500*time.Millisecond {
			t.Errorf("expected 500ms delay, got %v", site.Delay)
		}
		if site.AllowExternal == nil || !*site.AllowExternal {
			t.Error("expected allowExternal true")
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Error("expected Authorization header")
		}
		if len(site.IgnorePatterns) != 1 || len(site.FollowPatterns) != 1 {
			t.Errorf("unexpected patterns %v %v", site.IgnorePatterns, site.FollowPatterns)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `invalid: yaml: content: [}`)
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("rejects out of range values", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `sites:
  example.com:
    delay: -1s
`)
		_, err := LoadConfigFile(path)
		if !errors.Is(err, ErrInvalidCrawlDelay) {
			t.Errorf("expected ErrInvalidCrawlDelay, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "defaults:\n  depth: 2\n")
		cfg, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds file in current directory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, DefaultConfigFile)
		if err := os.WriteFile(path, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		t.Chdir(dir)

		if result := FindConfigFile(""); result != path {
			t.Errorf("expected %q, got %q", path, result)
		}
	})

	t.Run("ignores a directory", func(t *testing.T) {
		if result := FindConfigFile(t.TempDir()); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

func TestSearchPaths(t *testing.T) {
	t.Parallel()

	paths := searchPaths()
	xdgPath := filepath.Join(XDGConfigDir(), XDGConfigFile)

	idx := -1
	for i, p := range paths {
		if p == xdgPath {
			idx = i
		}
	}
	if idx < 0 {
		t.Fatalf("search paths %v do not include %s", paths, xdgPath)
	}
	if idx > 0 && filepath.Base(paths[0]) != DefaultConfigFile {
		t.Errorf("expected the working directory first, got %v", paths)
	}
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if dir := XDGDataDir(); !strings.HasSuffix(dir, AppName) {
		t.Errorf("expected data dir ending in %s, got %q", AppName, dir)
	}
	if dir := XDGConfigDir(); !strings.HasSuffix(dir, AppName) {
		t.Errorf("expected config dir ending in %s, got %q", AppName, dir)
	}
}
