// Package main provides the entry point for the sitemapgen CLI.
//
// sitemapgen crawls a website, or expands its existing sitemaps, and
// writes the collected URLs as a sitemap.xml file.
//
// Usage:
//
//	sitemapgen generate https://example.com
//	sitemapgen generate --config sites.yml
//
// See --help for all available options.
package main

// main is the entry point for sitemapgen.
func main() {
	Execute()
}
