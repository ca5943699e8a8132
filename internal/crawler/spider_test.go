package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nao1215/sitemapgen/internal/config"
)

// countingHandler wraps a mux and counts requests per path.
type countingHandler struct {
	mu     sync.Mutex
	counts map[string]int
	next   http.Handler
}

func newCountingHandler(next http.Handler) *countingHandler {
	return &countingHandler{counts: make(map[string]int), next: next}
}

func (h *countingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.counts[r.URL.Path]++
	h.mu.Unlock()
	h.next.ServeHTTP(w, r)
}

func (h *countingHandler) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[path]
}

// htmlPage writes a minimal HTML page containing the given links.
func htmlPage(w http.ResponseWriter, links ...string) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, "<html><body>")
	for _, l := range links {
		fmt.Fprintf(w, `<a href=%q>link</a>`, l)
	}
	fmt.Fprint(w, "</body></html>")
}

// newSpiderForServer builds a Spider targeting the test server.
func newSpiderForServer(t *testing.T, srv *httptest.Server, mutate func(*config.Config)) *Spider {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Domain = srv.URL
	cfg.MaxWorkers = 4
	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewSpider(cfg, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("failed to create spider: %v", err)
	}
	return s
}

// TestSpiderCrawl tests full HTML crawl runs against a local server.
func TestSpiderCrawl(t *testing.T) {
	t.Parallel()

	t.Run("collects every reachable page exactly once", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(w, "/a", "/b", "/a")
		})
		mux.HandleFunc("/a", func(w http.ResponseWriter, _ *http.Request) {
			htmlPage(w, "/b", "/")
		})
		mux.HandleFunc("/b", func(w http.ResponseWriter, _ *http.Request) {
			htmlPage(w, "/a")
		})
		counter := newCountingHandler(mux)
		srv := httptest.NewServer(counter)
		t.Cleanup(srv.Close)

		s := newSpiderForServer(t, srv, nil)
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d: %v", len(records), records)
		}
		for _, path := range []string{"/", "/a", "/b"} {
			if got := counter.count(path); got != 1 {
				t.Errorf("page %s fetched %d times, want exactly 1", path, got)
			}
		}
		if s.State() != StateDone {
			t.Errorf("state = %v, want done", s.State())
		}
	})

	t.Run("never records off-domain URLs", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			htmlPage(w, "https://elsewhere.invalid/page", "/local")
		})
		mux.HandleFunc("/local", func(w http.ResponseWriter, _ *http.Request) {
			htmlPage(w)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		s := newSpiderForServer(t, srv, nil)
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		for _, rec := range records {
			if rec.URL == "https://elsewhere.invalid/page" {
				t.Errorf("off-domain URL was recorded: %q", rec.URL)
			}
		}
		if got := s.Stats().Filtered; got == 0 {
			t.Error("filter counter should record the off-domain link")
		}
	})

	t.Run("respects robots disallow", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "User-agent: *\nDisallow: /admin/\n")
		})
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(w, "/admin/panel", "/open")
		})
		mux.HandleFunc("/open", func(w http.ResponseWriter, _ *http.Request) {
			htmlPage(w)
		})
		counter := newCountingHandler(mux)
		srv := httptest.NewServer(counter)
		t.Cleanup(srv.Close)

		s := newSpiderForServer(t, srv, func(cfg *config.Config) {
			cfg.ParseRobots = true
		})
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if got := counter.count("/admin/panel"); got != 0 {
			t.Errorf("disallowed page fetched %d times", got)
		}
		for _, rec := range records {
			if rec.URL == srv.URL+"/admin/panel" {
				t.Error("disallowed page was recorded")
			}
		}
		if got := s.Stats().RobotsBlocked; got != 1 {
			t.Errorf("robots blocked counter = %d, want 1", got)
		}
	})

	t.Run("records binary extensions without fetching them", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			htmlPage(w, "/report.pdf")
		})
		counter := newCountingHandler(mux)
		srv := httptest.NewServer(counter)
		t.Cleanup(srv.Close)

		s := newSpiderForServer(t, srv, nil)
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		var found bool
		for _, rec := range records {
			if rec.URL == srv.URL+"/report.pdf" {
				found = true
			}
		}
		if !found {
			t.Error("pdf URL should be recorded")
		}
		if got := counter.count("/report.pdf"); got != 0 {
			t.Errorf("pdf fetched %d times, want 0", got)
		}
	})

	t.Run("counts failing pages without aborting", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(w, "/broken", "/fine")
		})
		mux.HandleFunc("/fine", func(w http.ResponseWriter, _ *http.Request) {
			htmlPage(w)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		s := newSpiderForServer(t, srv, func(cfg *config.Config) {
			cfg.Report = true
		})
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(records) != 2 {
			t.Errorf("expected 2 records, got %d", len(records))
		}
		stats := s.Stats()
		if stats.StatusCodes[http.StatusNotFound] != 1 {
			t.Errorf("404 count = %d, want 1", stats.StatusCodes[http.StatusNotFound])
		}
		if len(stats.Marked[http.StatusNotFound]) != 1 {
			t.Errorf("marked 404 URLs = %v, want one entry", stats.Marked[http.StatusNotFound])
		}
	})

	t.Run("empty crawl fails with ErrEmptyCrawl", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "down", http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)

		s := newSpiderForServer(t, srv, nil)
		records, err := s.Crawl(context.Background())
		if !errors.Is(err, ErrEmptyCrawl) {
			t.Fatalf("expected ErrEmptyCrawl, got %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected no records, got %d", len(records))
		}
		if s.State() != StateFailed {
			t.Errorf("state = %v, want failed", s.State())
		}
	})

	t.Run("cancellation returns partial results and the context error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			// Cancel mid-crawl, then keep linking to new pages.
			cancel()
			htmlPage(w, r.URL.Path+"x")
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		s := newSpiderForServer(t, srv, nil)
		_, err := s.Crawl(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if s.State() != StateFailed {
			t.Errorf("state = %v, want failed", s.State())
		}
	})
}

// TestSpiderSitemaps tests sitemap-driven runs.
func TestSpiderSitemaps(t *testing.T) {
	t.Parallel()

	t.Run("expands a sitemap index without fetching listed pages", func(t *testing.T) {
		t.Parallel()

		var srvURL string
		mux := http.NewServeMux()
		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/sitemap-1.xml</loc></sitemap>
  <sitemap><loc>%s/sitemap-2.xml</loc></sitemap>
</sitemapindex>`, srvURL, srvURL)
		})
		mux.HandleFunc("/sitemap-1.xml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/page-1</loc><lastmod>2024-05-01</lastmod></url>
  <url><loc>%s/page-2</loc></url>
</urlset>`, srvURL, srvURL)
		})
		mux.HandleFunc("/sitemap-2.xml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/page-3</loc></url>
</urlset>`, srvURL)
		})
		counter := newCountingHandler(mux)
		srv := httptest.NewServer(counter)
		t.Cleanup(srv.Close)
		srvURL = srv.URL

		s := newSpiderForServer(t, srv, func(cfg *config.Config) {
			cfg.SitemapURLs = []string{srv.URL + "/sitemap.xml"}
			cfg.SitemapOnly = true
		})
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d: %v", len(records), records)
		}
		for _, path := range []string{"/page-1", "/page-2", "/page-3"} {
			if got := counter.count(path); got != 0 {
				t.Errorf("sitemap-listed page %s was fetched %d times", path, got)
			}
		}

		// lastmod must survive into the record.
		var sawLastMod bool
		for _, rec := range records {
			if rec.URL == srv.URL+"/page-1" && rec.LastMod != nil {
				sawLastMod = true
			}
		}
		if !sawLastMod {
			t.Error("lastmod from the sitemap entry should be kept")
		}
	})

	t.Run("applies exclude patterns to sitemap entries", func(t *testing.T) {
		t.Parallel()

		var srvURL string
		mux := http.NewServeMux()
		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/keep</loc></url>
  <url><loc>%s/private/drop</loc></url>
</urlset>`, srvURL, srvURL)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		srvURL = srv.URL

		s := newSpiderForServer(t, srv, func(cfg *config.Config) {
			cfg.SitemapURLs = []string{srv.URL + "/sitemap.xml"}
			cfg.SitemapOnly = true
			cfg.ExcludePatterns = []string{`/private/`}
		})
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		if len(records) != 1 || records[0].URL != srv.URL+"/keep" {
			t.Errorf("expected only the kept URL, got %v", records)
		}
	})

	t.Run("detects a sitemap served from a crawled URL", func(t *testing.T) {
		t.Parallel()

		var srvURL string
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			htmlPage(w, "/sitemap.xml")
		})
		mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprintf(w, `<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>%s/listed</loc></url>
</urlset>`, srvURL)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)
		srvURL = srv.URL

		s := newSpiderForServer(t, srv, nil)
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}

		var sawListed bool
		for _, rec := range records {
			if rec.URL == srv.URL+"/listed" {
				sawListed = true
			}
			if rec.URL == srv.URL+"/sitemap.xml" {
				t.Error("the sitemap document itself should not be a record")
			}
		}
		if !sawListed {
			t.Errorf("URL listed by the discovered sitemap should be recorded, got %v", records)
		}
	})

	t.Run("sitemap-only without sitemap URLs falls back to crawling", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			htmlPage(w)
		})
		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		s := newSpiderForServer(t, srv, func(cfg *config.Config) {
			cfg.SitemapOnly = true
		})
		records, err := s.Crawl(context.Background())
		if err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("fallback crawl should record the start page, got %v", records)
		}
	})
}

// TestSpiderImages tests image collection.
func TestSpiderImages(t *testing.T) {
	t.Parallel()

	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body>
			<img src="%s/pic.png">
			<img src="%s/pic.png">
			<img src="https://cdn.invalid/off-domain.png">
		</body></html>`, srvURL, srvURL)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	s := newSpiderForServer(t, srv, func(cfg *config.Config) {
		cfg.Images = true
	})
	records, err := s.Crawl(context.Background())
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	images := records[0].Images
	if len(images) != 1 || images[0] != srv.URL+"/pic.png" {
		t.Errorf("expected one deduplicated on-domain image, got %v", images)
	}
}

// TestSpiderInvalidConfig tests construction failures.
func TestSpiderInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.Domain = "not-a-url"

	if _, err := NewSpider(cfg); err == nil {
		t.Error("invalid domain should fail construction")
	}
}
