// Package model defines the data structures shared across sitemapgen:
// collected URL records and per-run crawl statistics.
package model
