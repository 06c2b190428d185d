package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/pagecrawl/internal/report"
)

func TestNewCompareCmd(t *testing.T) {
	t.Parallel()

	cmd := NewCompareCmd()
	for _, name := range []string{"run", "with", "format", "db-dir"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

func TestCompareCommand(t *testing.T) {
	t.Parallel()

	const seed = "https://a.example/"
	dbDir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	oldest := storeRun(t, dbDir, seed, base,
		page("https://a.example/", "home"),
		page("https://a.example/about", "about v1"),
		page("https://a.example/old", "gone soon"),
	)
	middle := storeRun(t, dbDir, seed, base.Add(time.Hour),
		page("https://a.example/", "home"),
		page("https://a.example/about", "about v2"),
		page("https://a.example/new", "fresh"),
	)
	latest := storeRun(t, dbDir, seed, base.Add(2*time.Hour),
		page("https://a.example/", "home"),
		page("https://a.example/about", "about v2"),
		page("https://a.example/new", "fresh"),
	)
	storeRun(t, dbDir, "https://b.example/", base, page("https://b.example/", "single"))

	diffOf := func(t *testing.T, args ...string) map[string]any {
		t.Helper()
		out, _, err := runRoot(t, append([]string{"compare", "--db-dir", dbDir, "-f", "json"}, args...)...)
		if err != nil {
			t.Fatalf("compare failed: %v", err)
		}
		diffs := decodeEntries(t, out)[report.EntryDiff]
		if len(diffs) != 1 {
			t.Fatalf("got %d diff entries, want 1:\n%s", len(diffs), out)
		}
		return diffs[0]
	}
	urls := func(v any) string {
		list, _ := v.([]any)
		s := make([]string, len(list))
		for i, u := range list {
			s[i], _ = u.(string)
		}
		return strings.Join(s, ",")
	}

	t.Run("latest two runs are unchanged", func(t *testing.T) {
		t.Parallel()
		d := diffOf(t, seed)
		if d["older_run"] != float64(middle) || d["newer_run"] != float64(latest) {
			t.Errorf("compared %v with %v, want %d with %d", d["older_run"], d["newer_run"], middle, latest)
		}
		if d["unchanged"] != float64(3) || urls(d["added"]) != "" || urls(d["changed"]) != "" {
			t.Errorf("unexpected diff %v", d)
		}
	})

	t.Run("latest run against an older one", func(t *testing.T) {
		t.Parallel()
		d := diffOf(t, "--with", "1", seed)
		if d["older_run"] != float64(oldest) || d["newer_run"] != float64(latest) {
			t.Errorf("compared %v with %v", d["older_run"], d["newer_run"])
		}
		if got := urls(d["added"]); got != "https://a.example/new" {
			t.Errorf("added = %s", got)
		}
		if got := urls(d["removed"]); got != "https://a.example/old" {
			t.Errorf("removed = %s", got)
		}
		if got := urls(d["changed"]); got != "https://a.example/about" {
			t.Errorf("changed = %s", got)
		}
	})

	t.Run("explicit runs in either order", func(t *testing.T) {
		t.Parallel()
		d := diffOf(t, "--run", "2", "--with", "1")
		if d["older_run"] != float64(oldest) || d["newer_run"] != float64(middle) {
			t.Errorf("compared %v with %v, want older run first", d["older_run"], d["newer_run"])
		}
	})

	t.Run("text output", func(t *testing.T) {
		t.Parallel()
		out, _, err := runRoot(t, "compare", "--db-dir", dbDir, "--with", "1", seed)
		if err != nil {
			t.Fatalf("compare failed: %v", err)
		}
		for _, want := range []string{"[+] https://a.example/new", "[-] https://a.example/old", "[~] https://a.example/about"} {
			if !strings.Contains(out, want) {
				t.Errorf("output is missing %q:\n%s", want, out)
			}
		}
	})

	errorTests := []struct {
		name string
		args []string
		want string
	}{
		{"single run", []string{"https://b.example/"}, ""},
		{"unknown seed", []string{"https://c.example/"}, "no stored runs"},
		{"missing run", []string{"--run", "1", "--with", "99"}, "run 99 not found"},
		{"run without with", []string{"--run", "1"}, "--run requires --with"},
		{"nothing to compare", nil, "specify a seed"},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := runRoot(t, append([]string{"compare", "--db-dir", dbDir}, tt.args...)...)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.want == "" {
				if !errors.Is(err, ErrNotEnoughRuns) {
					t.Errorf("error = %v, want ErrNotEnoughRuns", err)
				}
				return
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}

	t.Run("no database", func(t *testing.T) {
		t.Parallel()
		_, _, err := runRoot(t, "compare", "--db-dir", t.TempDir(), seed)
		if err == nil || !strings.Contains(err.Error(), "no crawl history") {
			t.Errorf("error = %v, want missing history", err)
		}
	})
}

func TestCrawlThenCompare(t *testing.T) {
	t.Parallel()

	s := newSite(t)
	cfgPath := writeConfig(t, "defaults: {}\n")
	dbDir := t.TempDir()

	crawl := func() {
		t.Helper()
		if _, stderr, err := runRoot(t, "crawl", "--delay", "0", "--save", "--db-dir", dbDir, "-f", "json", "-c", cfgPath, s.URL); err != nil {
			t.Fatalf("crawl failed: %v\n%s", err, stderr)
		}
	}
	crawl()
	s.bump()
	crawl()

	out, _, err := runRoot(t, "compare", "--db-dir", dbDir, "-f", "json", s.URL)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}
	diffs := decodeEntries(t, out)[report.EntryDiff]
	if len(diffs) != 1 {
		t.Fatalf("got %d diffs, want 1", len(diffs))
	}
	changed, _ := diffs[0]["changed"].([]any)
	if len(changed) != 1 || changed[0] != s.URL+"/about" {
		t.Errorf("changed = %v, want only %s/about", changed, s.URL)
	}
}
