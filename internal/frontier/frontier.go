// Package frontier implements the shared, deduplicating URL queue that the
// crawl workers drain, including the quiescence detection that tells every
// worker when the crawl is finished.
package frontier

import (
	"strings"
	"sync"
)

// Frontier is a FIFO of pending URLs plus the set of every URL ever queued.
//
// A worker that finds the queue empty goes idle and blocks in Dequeue. When
// the last active worker goes idle there is nobody left who could enqueue
// more work, so the frontier is done and every blocked Dequeue returns.
// All state is guarded by a single mutex.
type Frontier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []string
	seen    map[string]struct{}
	active  int
	done    bool
}

// New creates a Frontier for a pool of workers. Every worker counts as
// active until it first finds the queue empty.
func New(workers int) *Frontier {
	f := &Frontier{
		seen:   make(map[string]struct{}),
		active: workers,
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// ChopAnchor strips a "#fragment" suffix.
func ChopAnchor(rawURL string) string {
	if i := strings.IndexByte(rawURL, '#'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

// Enqueue queues rawURL (minus any anchor) unless it has been queued before.
// It reports whether the URL was added. Enqueue is a no-op once the frontier
// is done.
func (f *Frontier) Enqueue(rawURL string) bool {
	rawURL = ChopAnchor(rawURL)
	if rawURL == "" {
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return false
	}
	if _, ok := f.seen[rawURL]; ok {
		return false
	}
	f.seen[rawURL] = struct{}{}
	f.pending = append(f.pending, rawURL)
	f.cond.Signal()
	return true
}

// Dequeue blocks until a URL is available or the crawl is quiescent. The
// boolean is false when there is no more work.
func (f *Frontier) Dequeue() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for {
		if f.done {
			return "", false
		}
		if len(f.pending) > 0 {
			next := f.pending[0]
			f.pending[0] = ""
			f.pending = f.pending[1:]
			return next, true
		}

		f.active--
		if f.active <= 0 {
			f.finish()
			return "", false
		}
		f.cond.Wait()
		if f.done {
			return "", false
		}
		f.active++
	}
}

// Leave removes a worker that stops without going through Dequeue, for
// example after a panic. If it was the last active worker and nothing is
// pending, the frontier becomes done.
func (f *Frontier) Leave() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.done {
		return
	}
	f.active--
	if f.active <= 0 && len(f.pending) == 0 {
		f.finish()
	}
}

// Shutdown ends the crawl early: pending URLs are abandoned and every
// blocked Dequeue returns.
func (f *Frontier) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.done {
		f.finish()
	}
}

// Seen reports whether rawURL (minus any anchor) has ever been queued.
func (f *Frontier) Seen(rawURL string) bool {
	rawURL = ChopAnchor(rawURL)
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[rawURL]
	return ok
}

// Stats is a point-in-time snapshot of the frontier.
type Stats struct {
	Pending int
	Seen    int
	Active  int
	Done    bool
}

// Stats returns a snapshot of the frontier counters.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Stats{
		Pending: len(f.pending),
		Seen:    len(f.seen),
		Active:  f.active,
		Done:    f.done,
	}
}

// finish must be called with mu held.
func (f *Frontier) finish() {
	f.done = true
	if f.active < 0 {
		f.active = 0
	}
	f.cond.Broadcast()
}
