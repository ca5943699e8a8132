// Package log provides slog helpers for sitemapgen, including a
// handler that masks credential material before it reaches any output.
package log
