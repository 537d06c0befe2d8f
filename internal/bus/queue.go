package bus

import (
	"context"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the number of events held before Publish starts dropping.
const DefaultBuffer = 256

// Bus fans router events out to subscribers on a separate goroutine so a slow
// monitor never stalls message intake.
type Bus struct {
	events chan Event

	mu          sync.RWMutex
	subscribers []func(Event)
	dropped     atomic.Uint64
}

// New creates a bus with the given buffer size (DefaultBuffer if <= 0).
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus{events: make(chan Event, buffer)}
}

// Publish queues an event. It never blocks; when the buffer is full the event
// is dropped and counted. A nil bus discards everything.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	select {
	case b.events <- ev:
	default:
		b.dropped.Add(1)
	}
}

// Subscribe registers a callback for every dispatched event.
func (b *Bus) Subscribe(callback func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, callback)
}

// Dispatch runs the fan-out loop. Blocks until ctx is cancelled.
func (b *Bus) Dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.events:
			b.mu.RLock()
			subs := b.subscribers
			b.mu.RUnlock()
			for _, cb := range subs {
				cb(ev)
			}
		}
	}
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int {
	return len(b.events)
}

// Dropped returns how many events were discarded because the buffer was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
