// Package config provides configuration structures for sitemapgen.
// It defines crawl options, validation, and the multi-site
// configuration file format.
package config
