package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// Policy answers whether the configured user-agent may fetch a path,
// according to the target site's robots.txt.
//
// Design decision: We use temoto/robotstxt rather than parsing the
// directives ourselves because it implements the group-selection rules
// correctly: the most specific User-agent group wins (exact token over
// "*"), longest-prefix directive wins within a group, and ties resolve
// to Allow.
type Policy struct {
	// group is the directive group selected for the user-agent.
	// Nil means allow everything.
	group *robotstxt.Group
}

// allowAllPolicy permits every path. Used when robots handling is
// disabled or robots.txt could not be loaded.
var allowAllPolicy = &Policy{}

// LoadPolicy fetches and parses <scheme>://<host>/robots.txt for the
// given site and returns the policy for userAgent.
//
// A load failure is never fatal to a crawl: on any error the returned
// policy allows everything and the error is reported to the caller for
// logging.
func LoadPolicy(ctx context.Context, client *http.Client, site *url.URL, userAgent string) (*Policy, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", site.Scheme, site.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return allowAllPolicy, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return allowAllPolicy, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return allowAllPolicy, fmt.Errorf("parse robots.txt: %w", err)
	}

	return &Policy{group: data.FindGroup(userAgent)}, nil
}

// IsAllowed reports whether the policy permits fetching the given path.
func (p *Policy) IsAllowed(path string) bool {
	if p == nil || p.group == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return p.group.Test(path)
}

// IsAllowedURL reports whether the policy permits fetching the URL.
// Unparseable URLs are denied.
func (p *Policy) IsAllowedURL(rawURL string) bool {
	if p == nil || p.group == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return p.IsAllowed(u.Path)
}
