package config

import (
	"net/url"
	"path/filepath"
	"regexp"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values, chosen as safe bounds for unattended
// crawls.
const (
	// DefaultUserAgent identifies sitemapgen in HTTP requests.
	// A descriptive User-Agent lets site operators recognize crawler
	// traffic in their logs.
	DefaultUserAgent = "sitemapgen/1.0 (+https://github.com/nao1215/sitemapgen)"

	// DefaultRobotsUserAgent selects the robots.txt group to obey.
	// "*" applies the generic group; set a product token (e.g.
	// "Googlebot") to evaluate the rules that bot would see.
	DefaultRobotsUserAgent = "*"

	// DefaultTimeout bounds each HTTP request. A crawl must never hang
	// on a single slow URL, so this applies per request, not per run.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxWorkers of 1 preserves sequential crawl behavior.
	// Raise it via --num-workers for parallel crawls.
	DefaultMaxWorkers = 1

	// DefaultMaxBodySize limits the response bytes read per URL.
	// 10MB is generous for HTML and sitemap documents while preventing
	// memory exhaustion from unexpected payloads.
	DefaultMaxBodySize = 10 * 1024 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "sitemapgen"
)

// NotParseableExtensions lists binary formats that are recorded in the
// sitemap without being fetched: their content cannot contain links,
// so downloading them would only waste bandwidth.
var NotParseableExtensions = []string{
	"7z", "avi", "cbr", "dmg", "doc", "docx", "epub", "exe", "gif",
	"ibooks", "iso", "jpeg", "jpg", "mkv", "mobi", "mp4", "opf", "pdf",
	"png", "rar", "tar", "tgz", "xlsx", "zip",
}

// Config holds all options for a single crawl run.
// It is resolved once from CLI flags and the optional config file,
// then passed read-only to every component.
//
// Design decision: We use a single flat struct instead of nested
// structs. The option count is manageable, and a flat struct keeps
// flag binding and site-file merging straightforward.
type Config struct {
	// Domain is the crawl target in scheme://host form
	// (e.g. "https://blog.example.com"). Required.
	Domain string

	// SitemapURLs are existing sitemap or sitemap-index documents to
	// expand. Whether a URL is an index is determined after fetching,
	// not from the URL itself.
	SitemapURLs []string

	// SitemapOnly skips HTML crawling entirely: only SitemapURLs are
	// processed. When set without SitemapURLs, the crawl falls back to
	// crawling Domain and logs a warning.
	SitemapOnly bool

	// SkipExtensions are path extensions (without the dot) whose URLs
	// are rejected during filtering.
	SkipExtensions []string

	// ExcludePatterns are regular expressions; a URL matching any of
	// them is rejected. Checked before DropPatterns so that exclusion
	// short-circuits rewriting.
	ExcludePatterns []string

	// DropPatterns are regular expressions whose matches are removed
	// from a URL before acceptance (session IDs, tracking parameters).
	// Applied in order, each on the previous pattern's output.
	DropPatterns []string

	// Images enables collection of image references for the
	// image-extension sitemap format.
	Images bool

	// ParseRobots fetches and obeys the target's robots.txt.
	ParseRobots bool

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// RobotsUserAgent selects which robots.txt group to obey.
	RobotsUserAgent string

	// AuthUser and AuthPass enable HTTP basic authentication when
	// AuthUser is non-empty.
	AuthUser string
	AuthPass string

	// MaxWorkers is the number of concurrent crawl workers.
	MaxWorkers int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// MaxBodySize limits the response bytes read per URL.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// RequestsPerSecond caps the crawl-wide request rate as a
	// politeness bound shared by all workers. Zero disables the limit.
	RequestsPerSecond float64

	// Output is the sitemap file path. Empty writes to stdout.
	Output string

	// AsIndex splits the output into a sitemap index plus numbered
	// child files when the URL count exceeds the per-file limit.
	// Requires Output.
	AsIndex bool

	// SortAlphabetically orders output URLs alphabetically.
	SortAlphabetically bool

	// Report prints a crawl statistics report after the run.
	Report bool

	// MaxURLDiff aborts the sitemap update when the collected URL
	// count deviates from the previous run's count by more than this
	// percentage. Zero disables the guard.
	MaxURLDiff int

	// HistoryDir is the directory holding the run-history database.
	// Empty disables history persistence (and with it the MaxURLDiff
	// comparison against prior runs).
	HistoryDir string

	// Verbose enables info-level logging; Debug enables debug level.
	Verbose bool
	Debug   bool
}

// NewConfig returns a Config populated with defaults.
// Callers override fields and then call Validate.
//
// Design decision: A constructor rather than zero values because most
// defaults are non-zero (timeout, worker count, user agent), and the
// constructor doubles as documentation of what those defaults are.
func NewConfig() *Config {
	return &Config{
		UserAgent:          DefaultUserAgent,
		RobotsUserAgent:    DefaultRobotsUserAgent,
		Timeout:            DefaultTimeout,
		MaxWorkers:         DefaultMaxWorkers,
		MaxBodySize:        DefaultMaxBodySize,
		SortAlphabetically: true,
	}
}

// XDGDataDir returns the XDG data directory for sitemapgen.
// On Linux this is ~/.local/share/sitemapgen.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// BaseURL returns the parsed Domain.
// Behavior is undefined before Validate has succeeded.
func (c *Config) BaseURL() (*url.URL, error) {
	return url.Parse(c.Domain)
}

// Validate checks the configuration and returns a specific error
// describing the first problem found. It runs once at crawl INIT;
// any error here is fatal and the run does not start.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Domain)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidDomain
	}

	if c.MaxWorkers <= 0 {
		return ErrInvalidWorkerCount
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.RequestsPerSecond < 0 {
		return ErrInvalidRequestRate
	}

	if c.MaxURLDiff < 0 {
		return ErrInvalidMaxURLDiff
	}

	// An index output needs a file name to derive child file names from.
	if c.AsIndex && c.Output == "" {
		return ErrIndexWithoutOutput
	}

	// Fail fast on broken patterns rather than inside a worker at first use.
	for _, p := range c.ExcludePatterns {
		if _, err := regexp.Compile(p); err != nil {
			return &PatternError{Pattern: p, Err: err}
		}
	}
	for _, p := range c.DropPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return &PatternError{Pattern: p, Err: err}
		}
	}

	return nil
}
