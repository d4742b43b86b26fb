package capture

import (
	"sync"
)

// DefaultBufferCapacity is the per-task event buffer capacity used when a
// task does not override it.
const DefaultBufferCapacity = 10000

// EventBuffer is a bounded per-task FIFO of captured events. At capacity
// the oldest event is dropped to admit a new one, so a slow consumer of the
// buffer alone can miss events; the buffer is a diagnostic and forwarding
// aid, not the durability mechanism.
//
// Append is called only by the scheduler worker; Drain and the accessors
// may be called from any goroutine.
type EventBuffer struct {
	mu      sync.Mutex
	ring    []Event
	head    int
	size    int
	dropped uint64
}

// NewEventBuffer creates a buffer holding at most capacity events. A
// non-positive capacity falls back to DefaultBufferCapacity.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCapacity
	}
	return &EventBuffer{ring: make([]Event, capacity)}
}

// Append adds an event, evicting the oldest one when full. O(1).
func (b *EventBuffer) Append(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.ring) {
		b.head = (b.head + 1) % len(b.ring)
		b.size--
		b.dropped++
	}
	b.ring[(b.head+b.size)%len(b.ring)] = ev
	b.size++
}

// Drain returns up to limit events from the front of the buffer, oldest
// first. With clear=false the call is read-only and idempotent; with
// clear=true the returned events are removed. A non-positive limit means
// all buffered events. The returned slice is a copy.
func (b *EventBuffer) Drain(limit int, clear bool) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.size
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = b.ring[(b.head+i)%len(b.ring)]
	}
	if clear {
		b.head = (b.head + n) % len(b.ring)
		b.size -= n
	}
	return out
}

// Len returns the number of buffered events.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the buffer capacity.
func (b *EventBuffer) Cap() int {
	return len(b.ring)
}

// Dropped returns how many events have been evicted since creation.
func (b *EventBuffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
