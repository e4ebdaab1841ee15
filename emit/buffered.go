package emit

import (
	"context"
	"sync"
)

// BufferedEmitter records every event in memory, keyed by graph run. It is
// grounded on the same "capture for later inspection" need as the
// teacher's buffered emitter, here scoped down to what dagrs's tests
// actually assert: per-run event history for verifying log ordering and
// node outcomes (testable property 2).
type BufferedEmitter struct {
	mu     sync.Mutex
	events map[string][]Event
}

// NewBufferedEmitter returns an emitter that only accumulates events.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.GraphID] = append(b.events[event.GraphID], event)
}

func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		b.Emit(e)
	}
	return nil
}

func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// History returns a copy of the events recorded for graphID, in emission
// order.
func (b *BufferedEmitter) History(graphID string) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	src := b.events[graphID]
	out := make([]Event, len(src))
	copy(out, src)
	return out
}
