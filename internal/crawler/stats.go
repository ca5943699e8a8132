package crawler

import "sync"

// Stats summarizes one crawl run for reporting. All counters are
// totals at the time of the Snapshot call.
type Stats struct {
	// URLsFound counts candidate URLs discovered, before filtering.
	URLsFound int

	// PagesCrawled counts fetch attempts actually made.
	PagesCrawled int

	// RobotsBlocked counts URLs rejected by the robots policy.
	RobotsBlocked int

	// Filtered counts URLs rejected by scope, extension, or pattern.
	Filtered int

	// FetchErrors counts non-status fetch failures (timeouts,
	// connection errors).
	FetchErrors int

	// ParseErrors counts sitemap documents that failed to parse.
	ParseErrors int

	// StatusCodes histograms HTTP status codes observed, including
	// the non-2xx codes of failed fetches.
	StatusCodes map[int]int

	// Marked lists the URLs that returned each non-2xx status.
	// Populated only when report collection is enabled.
	Marked map[int][]string
}

// statCounter is the mutable, mutex-guarded accumulator behind Stats.
type statCounter struct {
	mu          sync.Mutex
	stats       Stats
	trackMarked bool
}

func newStatCounter(trackMarked bool) *statCounter {
	return &statCounter{
		stats: Stats{
			StatusCodes: make(map[int]int),
			Marked:      make(map[int][]string),
		},
		trackMarked: trackMarked,
	}
}

func (s *statCounter) found()         { s.mu.Lock(); s.stats.URLsFound++; s.mu.Unlock() }
func (s *statCounter) crawled()       { s.mu.Lock(); s.stats.PagesCrawled++; s.mu.Unlock() }
func (s *statCounter) robotsBlocked() { s.mu.Lock(); s.stats.RobotsBlocked++; s.mu.Unlock() }
func (s *statCounter) filtered()      { s.mu.Lock(); s.stats.Filtered++; s.mu.Unlock() }
func (s *statCounter) fetchError()    { s.mu.Lock(); s.stats.FetchErrors++; s.mu.Unlock() }
func (s *statCounter) parseError()    { s.mu.Lock(); s.stats.ParseErrors++; s.mu.Unlock() }

func (s *statCounter) status(code int) {
	s.mu.Lock()
	s.stats.StatusCodes[code]++
	s.mu.Unlock()
}

// mark records a URL that returned a non-2xx status for the report.
func (s *statCounter) mark(code int, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.StatusCodes[code]++
	if s.trackMarked {
		s.stats.Marked[code] = append(s.stats.Marked[code], url)
	}
}

// Snapshot returns a deep copy of the current totals.
func (s *statCounter) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.stats
	out.StatusCodes = make(map[int]int, len(s.stats.StatusCodes))
	for k, v := range s.stats.StatusCodes {
		out.StatusCodes[k] = v
	}
	out.Marked = make(map[int][]string, len(s.stats.Marked))
	for k, v := range s.stats.Marked {
		out.Marked[k] = append([]string(nil), v...)
	}
	return out
}
