// Package database persists crawl run summaries in SQLite.
// The history powers the URL-count difference guard, which refuses to
// overwrite a sitemap when a run's result diverges suspiciously from
// the previous one, and the "history" subcommand.
package database
