// Package crawler implements the sitemap crawl engine.
//
// # Architecture
//
// The package is organized around the Spider type, which runs a crawl
// as a small state machine (init, seeding, running, draining, done)
// over a pool of workers sharing one frontier:
//
//   - Normalizer: canonicalizes URLs and applies the skip-extension,
//     exclude-pattern, and drop-pattern filtering pipeline
//   - Policy: robots.txt allow/deny predicate (temoto/robotstxt)
//   - frontier: dedup work queue with in-flight counting for
//     termination detection
//   - Fetcher: single HTTP GET with auth, body limit, and the
//     crawl-wide rate limit
//   - Parser: tolerant HTML link/image extraction (x/net/html)
//   - ParseSitemap: sitemap and sitemap-index XML parsing
//   - Collector: concurrent accumulation of accepted URL records
//
// # Termination
//
// Workers block on the frontier rather than polling. The crawl is
// complete exactly when the queue is empty and no popped entry is
// still being processed; the frontier detects this with an in-flight
// counter and releases all blocked workers.
//
// # Failure model
//
// Per-URL fetch and parse failures are counted and skipped; only a
// configuration error before the run starts is fatal. Cancelling the
// context stops all workers promptly and leaves the collector with a
// valid partial result.
package crawler
