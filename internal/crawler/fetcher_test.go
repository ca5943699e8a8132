package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitemapgen/internal/config"
)

// newFetchConfig returns a Config pointing at the test server.
func newFetchConfig(domain string) *config.Config {
	cfg := config.NewConfig()
	cfg.Domain = domain
	return cfg
}

// TestFetch tests the single-request fetch path.
func TestFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body, content type, and status", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
			_, _ = w.Write([]byte("<html>ok</html>")) //nolint:errcheck // Test server
		}))
		t.Cleanup(srv.Close)

		f := NewFetcher(newFetchConfig(srv.URL), srv.Client())
		resp, err := f.Fetch(context.Background(), srv.URL+"/page")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		if string(resp.Body) != "<html>ok</html>" {
			t.Errorf("unexpected body: %q", resp.Body)
		}
		if !strings.Contains(resp.ContentType, "text/html") {
			t.Errorf("unexpected content type: %q", resp.ContentType)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
		if resp.LastModified == nil {
			t.Fatal("Last-Modified header should be parsed")
		}
		want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
		if !resp.LastModified.Equal(want) {
			t.Errorf("lastmod = %v, want %v", resp.LastModified, want)
		}
	})

	t.Run("sends user-agent and basic auth", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		var gotUser, gotPass string
		var gotAuth bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotUser, gotPass, gotAuth = r.BasicAuth()
			w.WriteHeader(http.StatusOK)
		}))
		t.Cleanup(srv.Close)

		cfg := newFetchConfig(srv.URL)
		cfg.UserAgent = "testbot/1.0"
		cfg.AuthUser = "alice"
		cfg.AuthPass = "hunter2"

		f := NewFetcher(cfg, srv.Client())
		if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
			t.Fatalf("fetch failed: %v", err)
		}

		if gotUA != "testbot/1.0" {
			t.Errorf("user-agent = %q, want testbot/1.0", gotUA)
		}
		if !gotAuth || gotUser != "alice" || gotPass != "hunter2" {
			t.Errorf("basic auth = %q/%q (%v), want alice/hunter2", gotUser, gotPass, gotAuth)
		}
	})

	t.Run("non-2xx status becomes a FetchError", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		t.Cleanup(srv.Close)

		f := NewFetcher(newFetchConfig(srv.URL), srv.Client())
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.Kind != FetchHTTPStatus || fe.Status != http.StatusNotFound {
			t.Errorf("got kind=%v status=%d, want http status 404", fe.Kind, fe.Status)
		}
	})

	t.Run("truncates oversized bodies", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 1024))) //nolint:errcheck // Test server
		}))
		t.Cleanup(srv.Close)

		cfg := newFetchConfig(srv.URL)
		cfg.MaxBodySize = 100

		f := NewFetcher(cfg, srv.Client())
		resp, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if len(resp.Body) != 100 {
			t.Errorf("body length = %d, want 100", len(resp.Body))
		}
	})

	t.Run("reports the post-redirect URL", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/new", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		f := NewFetcher(newFetchConfig(srv.URL), srv.Client())
		resp, err := f.Fetch(context.Background(), srv.URL+"/old")
		if err != nil {
			t.Fatalf("fetch failed: %v", err)
		}
		if resp.FinalURL != srv.URL+"/new" {
			t.Errorf("final URL = %q, want %s/new", resp.FinalURL, srv.URL)
		}
	})

	t.Run("connection failure becomes a FetchError", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		client := srv.Client()
		target := srv.URL
		srv.Close()

		f := NewFetcher(newFetchConfig(target), client)
		_, err := f.Fetch(context.Background(), target)

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %v", err)
		}
		if fe.Kind != FetchConnectionFailed {
			t.Errorf("kind = %v, want connection failed", fe.Kind)
		}
	})

	t.Run("cancelled context aborts a rate-limited fetch", func(t *testing.T) {
		t.Parallel()

		cfg := newFetchConfig("https://example.com")
		cfg.RequestsPerSecond = 0.001 // First token far in the future

		f := NewFetcher(cfg, &http.Client{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := f.Fetch(ctx, "https://example.com"); err == nil {
			t.Error("fetch with cancelled context should fail")
		}
	})
}
