package crawler

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"
)

// SitemapKind distinguishes the two sitemap document shapes.
type SitemapKind int

const (
	// SitemapIndex is a document whose entries are other sitemaps.
	SitemapIndex SitemapKind = iota

	// SitemapURLSet is a document whose entries are page URLs.
	SitemapURLSet
)

// SitemapDoc is a parsed sitemap document: either an index listing
// child sitemap URLs or a urlset listing pages. The Kind field tags
// which of the two slices is populated.
type SitemapDoc struct {
	// Kind selects between Children and Entries.
	Kind SitemapKind

	// Children holds child sitemap URLs when Kind is SitemapIndex.
	Children []string

	// Entries holds page entries when Kind is SitemapURLSet.
	Entries []SitemapEntry
}

// SitemapEntry is one <url> element of a urlset document.
type SitemapEntry struct {
	// URL is the page location.
	URL string

	// LastMod is the parsed <lastmod> value, nil when absent or
	// unparseable.
	LastMod *time.Time
}

// xmlSitemapIndex mirrors a <sitemapindex> document.
type xmlSitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// xmlURLSet mirrors a <urlset> document.
type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"url"`
}

// ParseSitemap parses an XML sitemap document. The root element
// selects the variant: <sitemapindex> produces an Index, <urlset> a
// URLSet. Anything else, including invalid XML, returns a *ParseError
// with kind MalformedXML; the caller skips the document and the crawl
// continues.
func ParseSitemap(body []byte, srcURL string) (*SitemapDoc, error) {
	root, err := rootElement(body)
	if err != nil {
		return nil, &ParseError{Kind: MalformedXML, URL: srcURL, Err: err}
	}

	switch root {
	case "sitemapindex":
		var idx xmlSitemapIndex
		if err := xml.Unmarshal(body, &idx); err != nil {
			return nil, &ParseError{Kind: MalformedXML, URL: srcURL, Err: err}
		}
		doc := &SitemapDoc{Kind: SitemapIndex}
		for _, sm := range idx.Sitemaps {
			if loc := strings.TrimSpace(sm.Loc); loc != "" {
				doc.Children = append(doc.Children, loc)
			}
		}
		return doc, nil

	case "urlset":
		var set xmlURLSet
		if err := xml.Unmarshal(body, &set); err != nil {
			return nil, &ParseError{Kind: MalformedXML, URL: srcURL, Err: err}
		}
		doc := &SitemapDoc{Kind: SitemapURLSet}
		for _, u := range set.URLs {
			loc := strings.TrimSpace(u.Loc)
			if loc == "" {
				continue
			}
			doc.Entries = append(doc.Entries, SitemapEntry{
				URL:     loc,
				LastMod: parseLastMod(u.LastMod),
			})
		}
		return doc, nil
	}

	return nil, &ParseError{Kind: MalformedXML, URL: srcURL}
}

// rootElement returns the local name of the document's root element.
func rootElement(body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// lastModLayouts are the date formats the sitemap protocol allows:
// W3C Datetime at various precisions.
var lastModLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02",
}

// parseLastMod parses a <lastmod> value, returning nil when it does
// not match any permitted layout. A bad date never invalidates the
// entry, only its timestamp.
func parseLastMod(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range lastModLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// looksLikeSitemap reports whether a fetched resource should be tried
// as a sitemap document before HTML processing: XML content type, an
// .xml path, or "sitemap" in the URL.
func looksLikeSitemap(rawURL, contentType string) bool {
	lower := strings.ToLower(rawURL)
	return strings.Contains(strings.ToLower(contentType), "xml") ||
		strings.HasSuffix(lower, ".xml") ||
		strings.Contains(lower, "sitemap")
}
