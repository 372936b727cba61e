package types

import (
	"encoding/hex"
	"math/big"
	"strconv"
)

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// NewEvent returns an event of the given type with an empty attribute set.
func NewEvent(eventType string) *Event {
	return &Event{Type: eventType, Attributes: make(map[string]string)}
}

// With sets a string attribute and returns the event for chaining.
func (e *Event) With(key, value string) *Event {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// WithUint sets a decimal attribute.
func (e *Event) WithUint(key string, value uint64) *Event {
	return e.With(key, strconv.FormatUint(value, 10))
}

// WithAmount sets a base-unit amount attribute. Nil amounts render as zero.
func (e *Event) WithAmount(key string, value *big.Int) *Event {
	if value == nil {
		return e.With(key, "0")
	}
	return e.With(key, value.String())
}

// WithHex sets a hex-encoded attribute.
func (e *Event) WithHex(key string, value []byte) *Event {
	return e.With(key, hex.EncodeToString(value))
}

// WithBool sets a boolean attribute.
func (e *Event) WithBool(key string, value bool) *Event {
	return e.With(key, strconv.FormatBool(value))
}
