package events

import "sync"

// Buffer collects events until they are flushed to a downstream emitter. The
// runtime uses one per extrinsic so reverted calls leave no trace.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.events = append(b.events, evt)
	b.mu.Unlock()
}

// Mark returns the current buffer length.
func (b *Buffer) Mark() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// Truncate drops every event recorded after mark.
func (b *Buffer) Truncate(mark int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if mark < 0 {
		mark = 0
	}
	if mark < len(b.events) {
		b.events = b.events[:mark]
	}
}

// Drain returns the buffered events and resets the buffer.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

// Multi fans out events to several emitters.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}
