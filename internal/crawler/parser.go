package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Parser extracts candidate links and image references from HTML.
//
// Design decision: We use golang.org/x/net/html rather than regex
// scanning because:
//  1. It correctly handles the malformed HTML common on the web,
//     recovering at the element level instead of aborting
//  2. Attribute parsing (quoting, entities) is already solved
//  3. It is a maintained standard-library extension
type Parser struct {
	// baseURL is the page's URL, used for resolving relative links.
	baseURL *url.URL
}

// ParseResult holds everything extracted from one HTML page.
type ParseResult struct {
	// Links are resolved absolute URLs from anchor href attributes.
	Links []string

	// Images are resolved absolute URLs from img src attributes.
	// Only populated when image extraction is requested.
	Images []string
}

// NewParser creates a parser that resolves links against baseURL.
func NewParser(baseURL string) (*Parser, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Parser{baseURL: u}, nil
}

// Parse walks the HTML document and collects links, plus image
// references when withImages is set. html.Parse never fails on
// damaged markup short of a read error, so extraction is best-effort
// by construction.
func (p *Parser) Parse(content io.Reader, withImages bool) (*ParseResult, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, &ParseError{Kind: MalformedHTML, URL: p.baseURL.String(), Err: err}
	}

	result := &ParseResult{}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a", "area":
				if href := getAttr(n, "href"); href != "" {
					if resolved := p.resolveURL(href); resolved != "" {
						result.Links = append(result.Links, resolved)
					}
				}
			case "img":
				if !withImages {
					break
				}
				if src := getAttr(n, "src"); src != "" {
					if resolved := p.resolveURL(src); resolved != "" {
						result.Images = append(result.Images, resolved)
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return result, nil
}

// resolveURL resolves href against the page URL, returning "" for
// targets that can never belong in a sitemap.
func (p *Parser) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" ||
		href == "#" ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:") {
		return ""
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return p.baseURL.ResolveReference(u).String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
