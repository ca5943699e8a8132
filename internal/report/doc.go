// Package report renders crawl run summaries in plain text and
// Markdown. The text writer targets terminals, the Markdown writer
// targets documentation and issue trackers.
package report
