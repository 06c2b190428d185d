package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and final URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body>hello</body></html>`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		f := New(WithClient(server.Client()))
		page, err := f.Fetch(context.Background(), server.URL+"/old")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if page.FinalURL != server.URL+"/new" {
			t.Errorf("expected final URL %s/new, got %q", server.URL, page.FinalURL)
		}
		if page.RequestURL != server.URL+"/old" {
			t.Errorf("expected request URL to be kept, got %q", page.RequestURL)
		}
		if !strings.Contains(page.Body, "hello") {
			t.Errorf("expected body to contain hello, got %q", page.Body)
		}
		if page.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", page.StatusCode)
		}
	})

	t.Run("non-2xx status is an HTTP error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := New(WithClient(server.Client())).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrHTTP) {
			t.Fatalf("expected ErrHTTP, got %v", err)
		}

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fe.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", fe.StatusCode)
		}
		if errors.Is(err, ErrNotHTML) || errors.Is(err, ErrNetwork) {
			t.Error("HTTP error must not match other kinds")
		}
	})

	t.Run("PDF content is not HTML", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
		}))
		defer server.Close()

		_, err := New(WithClient(server.Client())).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrNotHTML) {
			t.Fatalf("expected ErrNotHTML, got %v", err)
		}
	})

	t.Run("content type check is case-insensitive", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "Text/HTML")
			_, _ = w.Write([]byte("<p>ok</p>"))
		}))
		defer server.Close()

		if _, err := New(WithClient(server.Client())).Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("connection failure is a network error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		addr := server.URL
		server.Close()

		_, err := New().Fetch(context.Background(), addr)
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
	})

	t.Run("timeout is a network error", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		f := New(WithClient(server.Client()), WithTimeout(50*time.Millisecond))
		_, err := f.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrNetwork) {
			t.Fatalf("expected ErrNetwork, got %v", err)
		}
	})

	t.Run("truncates body at max size", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(strings.Repeat("a", 4096)))
		}))
		defer server.Close()

		page, err := New(WithClient(server.Client()), WithMaxBodySize(100)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(page.Body) != 100 {
			t.Errorf("expected 100 bytes, got %d", len(page.Body))
		}
	})

	t.Run("decodes declared charset to UTF-8", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			// "café" in Latin-1
			_, _ = w.Write([]byte{'<', 'p', '>', 'c', 'a', 'f', 0xe9, '<', '/', 'p', '>'})
		}))
		defer server.Close()

		page, err := New(WithClient(server.Client())).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(page.Body, "café") {
			t.Errorf("expected decoded body to contain café, got %q", page.Body)
		}
	})
}

func TestHeaderPolicy(t *testing.T) {
	t.Parallel()

	t.Run("sends default headers on every request", func(t *testing.T) {
		t.Parallel()

		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
			w.Header().Set("Content-Type", "text/html")
		}))
		defer server.Close()

		if _, err := New(WithClient(server.Client())).Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", got.Get("User-Agent"))
		}
		if got.Get("Accept") != DefaultAccept {
			t.Errorf("expected default accept, got %q", got.Get("Accept"))
		}
		if got.Get("Accept-Language") != DefaultAcceptLanguage {
			t.Errorf("expected default accept-language, got %q", got.Get("Accept-Language"))
		}
	})

	t.Run("headers survive redirects", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		mux := http.NewServeMux()
		mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/b", http.StatusFound)
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") == "TestBot/1.0" && r.Header.Get("X-Custom") == "yes" {
				hits.Add(1)
			}
			w.Header().Set("Content-Type", "text/html")
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		f := New(
			WithClient(server.Client()),
			WithUserAgent("TestBot/1.0"),
			WithHeaders(map[string]string{"X-Custom": "yes"}),
		)
		if _, err := f.Fetch(context.Background(), server.URL+"/a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if hits.Load() != 1 {
			t.Error("expected redirected request to carry the configured headers")
		}
	})

	t.Run("sends configured cookie", func(t *testing.T) {
		t.Parallel()

		var cookie string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie = r.Header.Get("Cookie")
			w.Header().Set("Content-Type", "text/html")
		}))
		defer server.Close()

		f := New(WithClient(server.Client()), WithCookie("session=abc"))
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cookie != "session=abc" {
			t.Errorf("expected cookie session=abc, got %q", cookie)
		}
	})
}

func TestFetchErrorMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *FetchError
		want string
	}{
		{"http", &FetchError{Kind: KindHTTP, URL: "http://a.com", StatusCode: 500}, "status 500"},
		{"not html", &FetchError{Kind: KindNotHTML, URL: "http://a.com", ContentType: "image/png"}, "image/png"},
		{"network", &FetchError{Kind: KindNetwork, URL: "http://a.com", Err: errors.New("refused")}, "refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if !strings.Contains(tt.err.Error(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, tt.err.Error())
			}
		})
	}

	if KindNotHTML.String() != "not_html" {
		t.Errorf("unexpected kind name %q", KindNotHTML.String())
	}
}
