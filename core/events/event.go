package events

import "dustchain/core/types"

// Event represents a structured state change emitted by the chain.
type Event interface {
	EventType() string
}

// Payload is implemented by module events that carry an attribute map. The
// indexer and RPC stream rely on it to persist events without knowing the
// emitting module.
type Payload interface {
	Event
	Event() *types.Event
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Unwrap returns the attribute payload of evt when it has one.
func Unwrap(evt Event) (*types.Event, bool) {
	p, ok := evt.(Payload)
	if !ok {
		return nil, false
	}
	inner := p.Event()
	return inner, inner != nil
}
