package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind int

const (
	// FetchTimeout indicates the request exceeded its deadline.
	FetchTimeout FetchErrorKind = iota

	// FetchConnectionFailed indicates a transport-level failure
	// (DNS failure, connection refused, TLS error, and so on).
	FetchConnectionFailed

	// FetchHTTPStatus indicates the server answered with a non-2xx status.
	FetchHTTPStatus
)

// String returns a human-readable name for the kind.
func (k FetchErrorKind) String() string {
	switch k {
	case FetchTimeout:
		return "timeout"
	case FetchConnectionFailed:
		return "connection failed"
	case FetchHTTPStatus:
		return "http status"
	default:
		return "unknown"
	}
}

// FetchError reports a failed fetch of a single URL.
// Fetch errors are never fatal to a crawl; the failing URL is dropped
// and the run continues.
type FetchError struct {
	// Kind classifies the failure.
	Kind FetchErrorKind

	// URL is the URL whose fetch failed.
	URL string

	// Status is the HTTP status code when Kind is FetchHTTPStatus.
	Status int

	// Err is the underlying transport error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Kind == FetchHTTPStatus {
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// classifyFetchError wraps a transport error into a FetchError with
// the appropriate kind.
func classifyFetchError(url string, err error) *FetchError {
	kind := FetchConnectionFailed

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = FetchTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = FetchTimeout
	}

	return &FetchError{Kind: kind, URL: url, Err: err}
}

// ParseErrorKind classifies why parsing a fetched document failed.
type ParseErrorKind int

const (
	// MalformedHTML indicates HTML that could not be parsed at all.
	// Element-level damage is tolerated by the extractor and does not
	// produce this error.
	MalformedHTML ParseErrorKind = iota

	// MalformedXML indicates a sitemap document that is not valid XML
	// or whose root element is neither <urlset> nor <sitemapindex>.
	MalformedXML
)

// String returns a human-readable name for the kind.
func (k ParseErrorKind) String() string {
	if k == MalformedHTML {
		return "malformed html"
	}
	return "malformed xml"
}

// ParseError reports an unparseable document. Like FetchError it is
// recorded and the offending entry is skipped.
type ParseError struct {
	// Kind classifies the failure.
	Kind ParseErrorKind

	// URL is the document's URL.
	URL string

	// Err is the underlying parser error, if any.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.URL, e.Kind)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }

// RejectReason explains why the normalizer refused a candidate URL.
type RejectReason int

const (
	// RejectUnsupportedScheme means the scheme is not http or https.
	RejectUnsupportedScheme RejectReason = iota

	// RejectOutOfScope means the host is outside the configured domain.
	RejectOutOfScope

	// RejectSkippedExtension means the path's file extension is in the
	// configured skip list.
	RejectSkippedExtension

	// RejectExcludedByPattern means the URL matched an exclude pattern.
	RejectExcludedByPattern
)

// String returns a human-readable name for the reason.
func (r RejectReason) String() string {
	switch r {
	case RejectUnsupportedScheme:
		return "unsupported scheme"
	case RejectOutOfScope:
		return "out of scope"
	case RejectSkippedExtension:
		return "skipped extension"
	case RejectExcludedByPattern:
		return "excluded by pattern"
	default:
		return "unknown"
	}
}

// Rejected signals that a URL was filtered out. It is an expected
// outcome of normalization, not a crawl failure: rejected URLs are
// counted and silently excluded.
type Rejected struct {
	// Reason explains why the URL was refused.
	Reason RejectReason

	// URL is the offending URL (after resolution where applicable).
	URL string
}

// Error implements the error interface so Normalize can return a
// Rejected through the usual error path.
func (e *Rejected) Error() string {
	return fmt.Sprintf("rejected %s: %s", e.URL, e.Reason)
}

// ErrEmptyCrawl is returned when a crawl completes without collecting
// a single URL. Writing an empty sitemap would clobber a previously
// valid one, so callers treat this as a failed run.
var ErrEmptyCrawl = errors.New("crawl collected no URLs")
