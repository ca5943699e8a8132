package crawler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/nao1215/sitemapgen/internal/config"
	"golang.org/x/time/rate"
)

// Fetcher performs single HTTP GET requests on behalf of crawl
// workers. It applies the configured user-agent, optional basic-auth
// credentials, the per-request timeout, the body size limit, and the
// crawl-wide politeness rate limit.
type Fetcher struct {
	client      *http.Client
	userAgent   string
	authUser    string
	authPass    string
	maxBodySize int64

	// limiter paces requests across all workers. Nil means unlimited.
	limiter *rate.Limiter
}

// Response is the successful result of one fetch.
type Response struct {
	// Body is the response body, truncated to the configured limit.
	Body []byte

	// ContentType is the Content-Type header value.
	ContentType string

	// StatusCode is the HTTP status code (always 2xx here; other
	// statuses surface as FetchError).
	StatusCode int

	// FinalURL is the URL after following redirects. It may differ
	// from the requested URL; the spider re-checks domain scope on it.
	FinalURL string

	// LastModified is taken from the Last-Modified header, falling
	// back to Date. Nil when neither parses.
	LastModified *time.Time
}

// NewFetcher builds a Fetcher from the crawl configuration.
// A nil client gets a default one with the configured timeout;
// tests inject their own.
func NewFetcher(cfg *config.Config, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	maxBody := cfg.MaxBodySize
	if maxBody == 0 {
		maxBody = config.DefaultMaxBodySize
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Fetcher{
		client:      client,
		userAgent:   cfg.UserAgent,
		authUser:    cfg.AuthUser,
		authPass:    cfg.AuthPass,
		maxBodySize: maxBody,
		limiter:     limiter,
	}
}

// Fetch performs one GET of rawURL. Non-2xx statuses and transport
// failures both return a *FetchError; the caller records it and drops
// the URL without aborting the crawl.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, classifyFetchError(rawURL, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchConnectionFailed, URL: rawURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if f.authUser != "" {
		req.SetBasicAuth(f.authUser, f.authPass)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyFetchError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // Best effort drain
		return nil, &FetchError{Kind: FetchHTTPStatus, URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, classifyFetchError(rawURL, err)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		Body:         body,
		ContentType:  resp.Header.Get("Content-Type"),
		StatusCode:   resp.StatusCode,
		FinalURL:     finalURL,
		LastModified: parseLastModified(resp.Header),
	}, nil
}

// HTTPClient returns the client used for fetches. The robots policy
// loader reuses it so robots.txt requests share timeout and transport
// settings with page fetches.
func (f *Fetcher) HTTPClient() *http.Client {
	return f.client
}

// parseLastModified extracts a modification time from the
// Last-Modified header, falling back to Date.
func parseLastModified(h http.Header) *time.Time {
	for _, name := range []string{"Last-Modified", "Date"} {
		v := h.Get(name)
		if v == "" {
			continue
		}
		if t, err := http.ParseTime(v); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
