package crawler

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/nao1215/sitemapgen/internal/config"
)

// Normalizer canonicalizes discovered URLs and applies the configured
// filtering pipeline. It is a pure function over its inputs plus the
// static configuration, so a single instance is shared by all workers
// without synchronization.
type Normalizer struct {
	// targetHost is the lowercased host the crawl is scoped to.
	targetHost string

	// skipExt maps rejected path extensions (without the dot).
	skipExt map[string]bool

	// exclude rejects a URL on any match. Checked before drop so that
	// exclusion short-circuits rewriting.
	exclude []*regexp.Regexp

	// drop removes matched substrings from a URL, in configured order,
	// each pattern operating on the previous pattern's output.
	drop []*regexp.Regexp
}

// NewNormalizer builds a Normalizer from the crawl configuration.
// Patterns are compiled here; Config.Validate has already verified
// they compile, so errors indicate the config was not validated.
func NewNormalizer(cfg *config.Config) (*Normalizer, error) {
	base, err := cfg.BaseURL()
	if err != nil {
		return nil, err
	}

	base.Host = strings.ToLower(base.Host)
	stripDefaultPort(base)

	n := &Normalizer{
		targetHost: base.Host,
		skipExt:    make(map[string]bool, len(cfg.SkipExtensions)),
	}

	for _, ext := range cfg.SkipExtensions {
		n.skipExt[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	for _, p := range cfg.ExcludePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &config.PatternError{Pattern: p, Err: err}
		}
		n.exclude = append(n.exclude, re)
	}
	for _, p := range cfg.DropPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &config.PatternError{Pattern: p, Err: err}
		}
		n.drop = append(n.drop, re)
	}

	return n, nil
}

// Normalize resolves raw against base and returns the canonical
// absolute URL, or a *Rejected error describing why it was filtered.
//
// Canonicalization: resolve relative references, strip the fragment,
// lowercase scheme and host, remove default ports. Filtering order is
// scheme, domain scope, skip extension, exclude patterns, then drop
// rewriting on the accepted URL. Normalize is idempotent: running it
// on its own output yields the same string.
func (n *Normalizer) Normalize(raw string, base *url.URL) (string, error) {
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil {
		return "", &Rejected{Reason: RejectUnsupportedScheme, URL: raw}
	}
	if base != nil {
		u = base.ResolveReference(u)
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	stripDefaultPort(u)

	// An empty path and "/" address the same resource; canonicalize so
	// the visited set treats them as one URL.
	if u.Path == "" {
		u.Path = "/"
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &Rejected{Reason: RejectUnsupportedScheme, URL: u.String()}
	}

	if u.Host != n.targetHost {
		return "", &Rejected{Reason: RejectOutOfScope, URL: u.String()}
	}

	if ext := pathExtension(u.Path); ext != "" && n.skipExt[ext] {
		return "", &Rejected{Reason: RejectSkippedExtension, URL: u.String()}
	}

	s := u.String()

	for _, re := range n.exclude {
		if re.MatchString(s) {
			return "", &Rejected{Reason: RejectExcludedByPattern, URL: s}
		}
	}

	for _, re := range n.drop {
		s = re.ReplaceAllString(s, "")
	}

	return s, nil
}

// Excluded reports whether a URL matches any exclude pattern.
// Sitemap-sourced URLs skip scope and extension checks but still honor
// exclusion, so the spider consults this directly.
func (n *Normalizer) Excluded(rawURL string) bool {
	for _, re := range n.exclude {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// InScope reports whether a URL's host is the crawl's target host.
func (n *Normalizer) InScope(u *url.URL) bool {
	return strings.EqualFold(u.Host, n.targetHost)
}

// stripDefaultPort removes :80 from http URLs and :443 from https URLs.
func stripDefaultPort(u *url.URL) {
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}
}

// pathExtension returns the lowercased extension of the last path
// segment without the leading dot, or "".
func pathExtension(p string) string {
	ext := path.Ext(p)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
