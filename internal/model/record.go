package model

import (
	"sort"
	"time"
)

// URLRecord is a single accepted URL destined for the sitemap output.
// A record is created once its URL has passed normalization and filtering,
// and it is immutable after collection.
type URLRecord struct {
	// URL is the absolute, normalized form of the page URL.
	URL string `json:"url"`

	// Depth is the number of discovery hops from the start URL.
	// Start URLs have depth 0. Sitemap-sourced records keep the depth
	// of the sitemap document they were listed in.
	Depth int `json:"depth"`

	// Images holds absolute URLs of images referenced by the page.
	// Only populated when image collection is enabled.
	Images []string `json:"images,omitempty"`

	// LastMod is the page's last modification time, taken from the
	// Last-Modified response header or a sitemap <lastmod> element.
	// Nil when neither source provided one.
	LastMod *time.Time `json:"lastmod,omitempty"`
}

// SortRecords orders records alphabetically by URL.
// The sitemap writer applies this when alphabetical sorting is enabled;
// the crawl itself makes no ordering guarantees.
func SortRecords(records []URLRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].URL < records[j].URL
	})
}

// RunSummary describes one completed crawl run.
// Summaries are persisted to the history database and used for the
// URL-count difference guard on subsequent runs.
type RunSummary struct {
	// ID is the database row ID. Zero for summaries not yet saved.
	ID int64 `json:"id"`

	// Domain is the crawl target domain (scheme://host form).
	Domain string `json:"domain"`

	// URLCount is the number of records collected by the run.
	URLCount int `json:"url_count"`

	// Duration is the wall-clock time the crawl took.
	Duration time.Duration `json:"duration"`

	// FinishedAt is when the run completed.
	FinishedAt time.Time `json:"finished_at"`
}
