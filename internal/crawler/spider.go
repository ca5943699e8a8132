package crawler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/nao1215/sitemapgen/internal/config"
	"github.com/nao1215/sitemapgen/internal/model"
	"golang.org/x/sync/errgroup"
)

// State is the crawl orchestrator's lifecycle phase.
type State int32

const (
	// StateInit means the spider has been constructed and validated.
	StateInit State = iota

	// StateSeeding means start URLs are being pushed onto the frontier.
	StateSeeding

	// StateRunning means workers are draining the frontier.
	StateRunning

	// StateDraining means completion was observed and workers are
	// exiting.
	StateDraining

	// StateDone means the crawl finished and the collector holds the
	// final record set.
	StateDone

	// StateFailed means the run produced nothing usable: seeding
	// failed outright or no URL was ever collected.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateSeeding:
		return "seeding"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Spider coordinates a crawl run: it seeds the frontier, runs the
// worker pool, dispatches entries by kind, and feeds accepted URLs to
// the collector.
//
// Design decision: We call it "Spider" rather than "Crawler" to keep
// crawler.NewSpider distinct from the package name at call sites.
type Spider struct {
	cfg       *config.Config
	base      *url.URL
	fetcher   *Fetcher
	norm      *Normalizer
	robots    *Policy
	frontier  *frontier
	collector *Collector
	stats     *statCounter
	logger    *slog.Logger

	// notParseable maps extensions recorded without fetching.
	notParseable map[string]bool

	state atomic.Int32
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) { s.logger = logger }
}

// WithHTTPClient sets the HTTP client used for all fetches, including
// robots.txt. Tests inject httptest clients here.
func WithHTTPClient(client *http.Client) SpiderOption {
	return func(s *Spider) { s.fetcher = NewFetcher(s.cfg, client) }
}

// NewSpider validates cfg and builds a ready-to-run Spider.
// A validation failure is terminal: the run never starts.
func NewSpider(cfg *config.Config, opts ...SpiderOption) (*Spider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	base, err := cfg.BaseURL()
	if err != nil {
		return nil, config.ErrInvalidDomain
	}

	norm, err := NewNormalizer(cfg)
	if err != nil {
		return nil, err
	}

	s := &Spider{
		cfg:          cfg,
		base:         base,
		norm:         norm,
		frontier:     newFrontier(),
		collector:    NewCollector(),
		stats:        newStatCounter(cfg.Report),
		notParseable: make(map[string]bool, len(config.NotParseableExtensions)),
	}
	for _, ext := range config.NotParseableExtensions {
		s.notParseable[ext] = true
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.fetcher == nil {
		s.fetcher = NewFetcher(cfg, nil)
	}

	s.state.Store(int32(StateInit))
	return s, nil
}

// State returns the spider's current lifecycle phase.
func (s *Spider) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the crawl counters.
func (s *Spider) Stats() Stats {
	return s.stats.Snapshot()
}

// Collector exposes the result collector, mainly so callers can query
// counts while a crawl is still in progress.
func (s *Spider) Collector() *Collector {
	return s.collector
}

// Crawl runs the crawl to completion and returns the collected
// records. Per-URL fetch and parse failures are counted but never
// abort the run; cancellation via ctx stops workers promptly and
// returns the partial record set together with ctx.Err. A run that
// completes without collecting anything returns ErrEmptyCrawl.
func (s *Spider) Crawl(ctx context.Context) ([]model.URLRecord, error) {
	s.state.Store(int32(StateSeeding))

	if s.cfg.ParseRobots {
		policy, err := LoadPolicy(ctx, s.fetcher.HTTPClient(), s.base, s.cfg.RobotsUserAgent)
		if err != nil {
			s.logger.Warn("robots.txt unavailable, allowing all paths", "error", err)
		}
		s.robots = policy
	}

	s.seed()

	s.state.Store(int32(StateRunning))

	// Close the frontier on cancellation so blocked pops return.
	watchDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			s.frontier.close()
		case <-watchDone:
		}
	}()

	g := new(errgroup.Group)
	for i := 0; i < s.cfg.MaxWorkers; i++ {
		g.Go(func() error {
			s.worker(ctx)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // Workers only return nil
	close(watchDone)

	records := s.collector.Records()

	if err := ctx.Err(); err != nil {
		s.state.Store(int32(StateFailed))
		return records, err
	}
	if len(records) == 0 {
		s.state.Store(int32(StateFailed))
		return records, ErrEmptyCrawl
	}

	s.state.Store(int32(StateDone))
	return records, nil
}

// seed pushes the run's start entries. Sitemap URLs are pushed as
// sitemap entries; the start domain is pushed as an HTML entry unless
// the run is sitemap-only. Sitemap-only without a sitemap URL falls
// back to crawling the domain, with a warning.
func (s *Spider) seed() {
	for _, sm := range s.cfg.SitemapURLs {
		sm = strings.TrimSpace(sm)
		if sm == "" {
			continue
		}
		s.frontier.push(entry{url: sm, kind: kindSitemap})
		s.logger.Info("seeded sitemap URL", "url", sm)
	}

	if s.cfg.SitemapOnly && len(s.cfg.SitemapURLs) > 0 {
		return
	}
	if s.cfg.SitemapOnly {
		s.logger.Warn("sitemap-only mode without a sitemap URL, falling back to crawling the domain")
	}

	start, err := s.norm.Normalize(s.cfg.Domain, nil)
	if err != nil {
		// Validate accepted the domain, so this cannot reject.
		start = s.cfg.Domain
	}
	s.frontier.push(entry{url: start, kind: kindHTML})
}

// worker is one unit of the crawl pool: pop, dispatch, repeat until
// the frontier reports completion.
func (s *Spider) worker(ctx context.Context) {
	for {
		e, ok := s.frontier.pop()
		if !ok {
			// First observer of completion flips the run to draining.
			s.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
			return
		}

		switch e.kind {
		case kindHTML:
			s.crawlPage(ctx, e)
		case kindSitemap:
			s.crawlSitemap(ctx, e)
		}

		s.frontier.done()
	}
}

// crawlPage processes one HTML entry: fetch, extract, filter, push
// children, and record the page itself.
func (s *Spider) crawlPage(ctx context.Context, e entry) {
	// Binary formats carry no links; record them without downloading.
	if ext := pathExtension(urlPath(e.url)); ext != "" && s.notParseable[ext] {
		s.logger.Debug("recording without fetch", "url", e.url)
		s.collector.Add(model.URLRecord{URL: e.url, Depth: e.depth})
		return
	}

	s.stats.crawled()
	resp, err := s.fetcher.Fetch(ctx, e.url)
	if err != nil {
		s.recordFetchFailure(e.url, err)
		return
	}
	s.stats.status(resp.StatusCode)

	// A crawled URL may turn out to serve a sitemap document (the kind
	// is only known after fetching). Try XML first, fall back to HTML.
	if looksLikeSitemap(e.url, resp.ContentType) {
		if doc, err := ParseSitemap(resp.Body, e.url); err == nil {
			s.dispatchSitemapDoc(doc, e)
			return
		}
	}

	// Redirects may land off-domain; those pages don't belong in the
	// sitemap.
	if finalU, err := url.Parse(resp.FinalURL); err != nil || !s.norm.InScope(finalU) {
		s.logger.Info("skipping off-domain redirect", "url", e.url, "final", resp.FinalURL)
		return
	}

	rec := model.URLRecord{URL: resp.FinalURL, Depth: e.depth, LastMod: resp.LastModified}

	if strings.Contains(resp.ContentType, "text/html") {
		parser, err := NewParser(resp.FinalURL)
		if err != nil {
			s.collector.Add(rec)
			return
		}

		result, err := parser.Parse(bytes.NewReader(resp.Body), s.cfg.Images)
		if err != nil {
			// Tolerant parser; a hard failure means unreadable input.
			s.logger.Debug("html parse failed", "url", e.url, "error", err)
			s.collector.Add(rec)
			return
		}

		if s.cfg.Images {
			rec.Images = s.filterImages(result.Images)
		}

		for _, link := range result.Links {
			s.stats.found()

			normalized, err := s.norm.Normalize(link, nil)
			if err != nil {
				s.stats.filtered()
				continue
			}
			if !s.robots.IsAllowedURL(normalized) {
				s.stats.robotsBlocked()
				continue
			}
			s.frontier.push(entry{url: normalized, depth: e.depth + 1, kind: kindHTML})
		}
	}

	s.collector.Add(rec)
}

// crawlSitemap processes one sitemap entry: fetch, parse, and either
// recurse into children or collect page URLs directly.
func (s *Spider) crawlSitemap(ctx context.Context, e entry) {
	s.stats.crawled()
	resp, err := s.fetcher.Fetch(ctx, e.url)
	if err != nil {
		s.recordFetchFailure(e.url, err)
		return
	}
	s.stats.status(resp.StatusCode)

	doc, err := ParseSitemap(resp.Body, e.url)
	if err != nil {
		s.stats.parseError()
		s.logger.Warn("skipping unparseable sitemap", "url", e.url, "error", err)
		return
	}

	s.dispatchSitemapDoc(doc, e)
}

// dispatchSitemapDoc routes a parsed sitemap document. Index children
// go back onto the frontier as sitemap entries (a listed child may
// itself be an index, so the kind is re-examined after its fetch).
// URLSet entries become records directly: the site operator authored
// them, so beyond exclusion patterns and well-formedness they are not
// re-validated against domain scope.
func (s *Spider) dispatchSitemapDoc(doc *SitemapDoc, e entry) {
	switch doc.Kind {
	case SitemapIndex:
		s.logger.Info("found sitemap index", "url", e.url, "children", len(doc.Children))
		for _, child := range doc.Children {
			s.stats.found()
			s.frontier.push(entry{url: child, depth: e.depth + 1, kind: kindSitemap})
		}

	case SitemapURLSet:
		s.logger.Info("found sitemap", "url", e.url, "entries", len(doc.Entries))
		for _, se := range doc.Entries {
			s.stats.found()

			if _, err := url.Parse(se.URL); err != nil {
				s.stats.filtered()
				continue
			}
			if s.norm.Excluded(se.URL) {
				s.stats.filtered()
				continue
			}

			// Mark so an HTML crawl never re-fetches a page the
			// sitemap already vouched for.
			s.frontier.markSeen(se.URL)
			s.collector.Add(model.URLRecord{URL: se.URL, Depth: e.depth, LastMod: se.LastMod})
		}
	}
}

// filterImages keeps image URLs that are on-domain, not excluded, and
// allowed by robots.
func (s *Spider) filterImages(images []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(images))
	for _, img := range images {
		if _, dup := seen[img]; dup {
			continue
		}
		seen[img] = struct{}{}

		u, err := url.Parse(img)
		if err != nil || !s.norm.InScope(u) {
			continue
		}
		if s.norm.Excluded(img) {
			continue
		}
		if !s.robots.IsAllowed(u.Path) {
			continue
		}
		out = append(out, img)
	}
	return out
}

// recordFetchFailure books a failed fetch into the statistics.
func (s *Spider) recordFetchFailure(rawURL string, err error) {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind == FetchHTTPStatus {
		s.stats.mark(fe.Status, rawURL)
	} else {
		s.stats.fetchError()
	}
	s.logger.Debug("fetch failed", "url", rawURL, "error", err)
}

// urlPath returns the path component of rawURL, or "".
func urlPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Path
}
