package recorder

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds the in-memory log.
const DefaultMaxEntries = 5000

// Recorder stores log entries.
type Recorder interface {
	Record(e Entry) error
	Entries() []Entry
	Clear()
}

// Ring is a bounded, goroutine-safe in-memory log. When full, the oldest
// entry is dropped. Subscribers are notified after every append.
type Ring struct {
	mu      sync.Mutex
	entries []Entry
	start   int
	size    int

	subMu  sync.RWMutex
	subs   map[int]func(Entry)
	nextID int

	now func() time.Time
}

// NewRing creates a Ring holding at most capacity entries. A non-positive
// capacity uses DefaultMaxEntries.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultMaxEntries
	}
	return &Ring{
		entries: make([]Entry, capacity),
		subs:    make(map[int]func(Entry)),
		now:     time.Now,
	}
}

// Record appends e, stamping it if it has no timestamp.
func (r *Ring) Record(e Entry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = r.now()
	}

	r.mu.Lock()
	capacity := len(r.entries)
	if r.size < capacity {
		r.entries[(r.start+r.size)%capacity] = e
		r.size++
	} else {
		r.entries[r.start] = e
		r.start = (r.start + 1) % capacity
	}
	r.mu.Unlock()

	r.subMu.RLock()
	subs := make([]func(Entry), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.subMu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
	return nil
}

// Log is a convenience wrapper around Record.
func (r *Ring) Log(level Level, source, message string) {
	_ = r.Record(Entry{Level: level, Source: source, Message: message})
}

// Entries returns a copy of the stored entries, oldest first.
func (r *Ring) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.entries[(r.start+i)%len(r.entries)]
	}
	return out
}

// Len returns the number of stored entries.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Clear drops all stored entries. Subscribers are kept.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
	r.start = 0
	r.size = 0
}

// Subscribe registers fn to be called with every new entry. The returned
// function removes the subscription.
func (r *Ring) Subscribe(fn func(Entry)) (unsubscribe func()) {
	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}
