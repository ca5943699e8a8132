// Package sitemap renders collected URL records as sitemap XML
// following the sitemaps.org protocol. It writes either a single
// urlset document or, for large sites, a sitemap index with numbered
// child files capped at MaxURLsPerSitemap entries each.
package sitemap
