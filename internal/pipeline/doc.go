// Package pipeline orchestrates one site's work as a sequence of
// steps: crawl, threshold check, sitemap write, history record, and
// report. BatchProcessor runs the same pipeline over many sites with
// a bounded number of concurrent crawls.
package pipeline
