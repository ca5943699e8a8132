package sitemap

import (
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// CountURLs counts the url entries in a sitemap file previously
// written by this tool. When the file is a sitemap index the child
// files are resolved next to it and counted recursively. Used to
// compare a fresh crawl against the sitemap already on disk.
func CountURLs(sitemapPath string) (int, error) {
	data, err := os.ReadFile(filepath.Clean(sitemapPath))
	if err != nil {
		return 0, fmt.Errorf("failed to read sitemap file: %w", err)
	}

	var set struct {
		XMLName xml.Name `xml:"urlset"`
		URLs    []struct {
			Loc string `xml:"loc"`
		} `xml:"url"`
	}
	if err := xml.Unmarshal(data, &set); err == nil && set.XMLName.Local == "urlset" {
		return len(set.URLs), nil
	}

	var idx struct {
		XMLName  xml.Name `xml:"sitemapindex"`
		Sitemaps []struct {
			Loc string `xml:"loc"`
		} `xml:"sitemap"`
	}
	if err := xml.Unmarshal(data, &idx); err != nil {
		return 0, fmt.Errorf("failed to parse sitemap file: %w", err)
	}
	if idx.XMLName.Local != "sitemapindex" {
		return 0, fmt.Errorf("unrecognized sitemap root element %q", idx.XMLName.Local)
	}

	dir := filepath.Dir(sitemapPath)
	total := 0
	for _, child := range idx.Sitemaps {
		childPath := filepath.Join(dir, path.Base(child.Loc))
		n, err := CountURLs(childPath)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
