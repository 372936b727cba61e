package bank

import (
	"encoding/hex"
	"math/big"

	"dustchain/core/types"
)

const (
	EventTypeTransfer  = "bank.transfer"
	EventTypeMinted    = "bank.minted"
	EventTypeBurned    = "bank.burned"
	EventTypeHeld      = "bank.held"
	EventTypeReleased  = "bank.released"
	EventTypeHoldMoved = "bank.hold_transferred"
)

type bankEvent struct {
	evt *types.Event
}

func (e bankEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e bankEvent) Event() *types.Event { return e.evt }

func newTransferEvent(kind string, from, to [20]byte, amount *big.Int) *types.Event {
	evt := types.NewEvent(kind).WithAmount("amount", amount)
	if from != ([20]byte{}) {
		evt.With("from", hex.EncodeToString(from[:]))
	}
	if to != ([20]byte{}) {
		evt.With("to", hex.EncodeToString(to[:]))
	}
	return evt
}

func newHoldEvent(kind string, reason HoldReason, who [20]byte, amount *big.Int) *types.Event {
	return types.NewEvent(kind).
		With("reason", string(reason)).
		WithHex("account", who[:]).
		WithAmount("amount", amount)
}
