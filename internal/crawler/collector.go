package crawler

import (
	"sync"

	"github.com/nao1215/sitemapgen/internal/model"
)

// Collector accumulates accepted URL records under concurrent writes
// from all workers. Append order is arbitrary; any requested sorting
// happens in the output writer.
type Collector struct {
	mu      sync.Mutex
	records []model.URLRecord

	// seen guards against recording the same URL twice, which can
	// happen when a page is reachable both by crawl and via a sitemap.
	seen map[string]struct{}
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Add records a URL. Returns false if the URL was already recorded.
func (c *Collector) Add(rec model.URLRecord) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.seen[rec.URL]; dup {
		return false
	}
	c.seen[rec.URL] = struct{}{}
	c.records = append(c.records, rec)
	return true
}

// Count returns the number of collected records.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Exceeds reports whether the collected count is above limit. The
// output writer uses this with the per-file sitemap limit to decide
// whether index splitting is required.
func (c *Collector) Exceeds(limit int) bool {
	return c.Count() > limit
}

// Records returns a copy of the collected records. Safe to call while
// the crawl is still running; the copy is a consistent snapshot.
func (c *Collector) Records() []model.URLRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.URLRecord, len(c.records))
	copy(out, c.records)
	return out
}
