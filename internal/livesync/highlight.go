package livesync

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultHighlightTTL is how long an entry stays marked as new.
const DefaultHighlightTTL = 30 * time.Second

type marker struct {
	timer clockwork.Timer
	gen   uint64
}

// Highlighter is the "new" marker set. Each marked id has its own expiry
// timer; stopping one never affects the others.
type Highlighter struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	ttl      time.Duration
	markers  map[string]marker
	gen      uint64
	closed   bool
	onExpire func(id string)
}

// NewHighlighter returns a Highlighter whose markers expire after ttl.
// onExpire, if set, is called outside any lock after a marker expires.
func NewHighlighter(clock clockwork.Clock, ttl time.Duration, onExpire func(id string)) *Highlighter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultHighlightTTL
	}
	return &Highlighter{
		clock:    clock,
		ttl:      ttl,
		markers:  make(map[string]marker),
		onExpire: onExpire,
	}
}

// Mark flags id as new and (re)starts its expiry timer.
func (h *Highlighter) Mark(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if m, ok := h.markers[id]; ok {
		m.timer.Stop()
	}
	h.gen++
	gen := h.gen
	h.markers[id] = marker{
		gen:   gen,
		timer: h.clock.AfterFunc(h.ttl, func() { h.expire(id, gen) }),
	}
}

func (h *Highlighter) expire(id string, gen uint64) {
	h.mu.Lock()
	m, ok := h.markers[id]
	// A re-mark or unmark since this timer was armed makes it stale.
	if h.closed || !ok || m.gen != gen {
		h.mu.Unlock()
		return
	}
	delete(h.markers, id)
	cb := h.onExpire
	h.mu.Unlock()

	if cb != nil {
		cb(id)
	}
}

// Unmark removes id and cancels its timer.
func (h *Highlighter) Unmark(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unmarkLocked(id)
}

func (h *Highlighter) unmarkLocked(id string) {
	if m, ok := h.markers[id]; ok {
		m.timer.Stop()
		delete(h.markers, id)
	}
}

// Retain unmarks every id not in keep.
func (h *Highlighter) Retain(keep IDSet) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.markers {
		if !keep.Has(id) {
			h.unmarkLocked(id)
		}
	}
}

// Has reports whether id is currently marked.
func (h *Highlighter) Has(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.markers[id]
	return ok
}

// Set returns a copy of the marked ids.
func (h *Highlighter) Set() IDSet {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(IDSet, len(h.markers))
	for id := range h.markers {
		out[id] = struct{}{}
	}
	return out
}

// Len returns the number of marked ids.
func (h *Highlighter) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.markers)
}

// Close cancels every pending timer. Marks made after Close are ignored.
func (h *Highlighter) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id := range h.markers {
		h.unmarkLocked(id)
	}
}
