package crawler

import "sync"

// entryKind tags a frontier entry with how its URL should be processed.
type entryKind int

const (
	// kindHTML marks a page to crawl for links.
	kindHTML entryKind = iota

	// kindSitemap marks a sitemap or sitemap-index document. Which of
	// the two it is gets decided after fetching, from the XML root
	// element, since an index may list further indexes.
	kindSitemap
)

// entry is one unit of pending crawl work. Ownership transfers from
// the discovering worker to the frontier on push and to the consuming
// worker on pop; the visited set guarantees each URL is enqueued once.
type entry struct {
	url   string
	depth int
	kind  entryKind
}

// frontier is the shared crawl work queue with built-in deduplication
// and completion detection.
//
// Completion: a crawl is done when the queue is empty AND no popped
// entry is still being processed. The inFlight counter tracks the
// latter; pop increments it and done decrements it, so workers
// blocked in pop wake up exactly when no more work can appear.
type frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []entry

	// visited maps normalized URLs that have ever been enqueued.
	// It grows monotonically for the lifetime of the run.
	visited map[string]struct{}

	// inFlight counts entries popped but not yet marked done.
	inFlight int

	// closed is set on cancellation; pop returns immediately.
	closed bool
}

// newFrontier returns an empty frontier.
func newFrontier() *frontier {
	f := &frontier{visited: make(map[string]struct{})}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// push enqueues an entry unless its URL was already seen.
// The seen check and the mark are one atomic operation under the
// frontier lock, so two workers discovering the same URL cannot both
// enqueue it. Returns true if the entry was accepted.
func (f *frontier) push(e entry) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, seen := f.visited[e.url]; seen {
		return false
	}
	f.visited[e.url] = struct{}{}
	f.pending = append(f.pending, e)
	f.cond.Signal()
	return true
}

// pop removes and returns the next entry, blocking while the queue is
// empty but other entries are still in flight (they may yet produce
// children). It returns ok=false when the run is complete or the
// frontier has been closed. Each successful pop must be paired with a
// done call.
func (f *frontier) pop() (entry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.pending) == 0 && f.inFlight > 0 && !f.closed {
		f.cond.Wait()
	}

	if f.closed || len(f.pending) == 0 {
		return entry{}, false
	}

	e := f.pending[0]
	f.pending = f.pending[1:]
	f.inFlight++
	return e, true
}

// done marks a popped entry as fully processed, after any children
// have been pushed. When the last in-flight entry finishes with an
// empty queue, all blocked workers are released.
func (f *frontier) done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight--
	if f.inFlight == 0 && len(f.pending) == 0 {
		f.cond.Broadcast()
		return
	}
	// A finished entry may have pushed several children while only one
	// waiter was signaled per push; wake another waiter to be safe.
	f.cond.Signal()
}

// close aborts the run: blocked and future pops return immediately.
// Entries already handed to workers finish normally.
func (f *frontier) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}

// seen reports whether the URL has ever been enqueued.
func (f *frontier) seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[url]
	return ok
}

// markSeen records a URL in the visited set without enqueueing it.
// Used for sitemap-sourced page URLs, which are collected directly and
// must never be fetched.
func (f *frontier) markSeen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.visited[url]; ok {
		return false
	}
	f.visited[url] = struct{}{}
	return true
}
