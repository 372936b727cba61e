package events

import (
	"testing"

	"dustchain/core/types"
)

type testEvent struct{ evt *types.Event }

func (e testEvent) EventType() string    { return e.evt.Type }
func (e testEvent) Event() *types.Event { return e.evt }

type countingEmitter struct{ count int }

func (c *countingEmitter) Emit(Event) { c.count++ }

func TestBufferTruncateAndDrain(t *testing.T) {
	var buf Buffer
	buf.Emit(testEvent{types.NewEvent("a")})
	mark := buf.Mark()
	buf.Emit(testEvent{types.NewEvent("b")})
	buf.Emit(testEvent{types.NewEvent("c")})
	buf.Truncate(mark)
	drained := buf.Drain()
	if len(drained) != 1 || drained[0].EventType() != "a" {
		t.Fatalf("unexpected drained events: %v", drained)
	}
	if len(buf.Drain()) != 0 {
		t.Fatalf("expected empty buffer after drain")
	}
}

func TestMultiAndUnwrap(t *testing.T) {
	a, b := &countingEmitter{}, &countingEmitter{}
	Multi{a, nil, b}.Emit(testEvent{types.NewEvent("x").WithUint("id", 3)})
	if a.count != 1 || b.count != 1 {
		t.Fatalf("expected fan out to both emitters")
	}
	inner, ok := Unwrap(testEvent{types.NewEvent("x").WithUint("id", 3)})
	if !ok || inner.Attributes["id"] != "3" {
		t.Fatalf("unexpected unwrap result: %+v", inner)
	}
	if _, ok := Unwrap(NoopEvent{}); ok {
		t.Fatalf("expected unwrap to fail for plain events")
	}
}

type NoopEvent struct{}

func (NoopEvent) EventType() string { return "noop" }
