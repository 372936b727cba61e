package maker

import (
	"strconv"

	"dustchain/core/types"
)

const (
	EventTypeMakerRegistered    = "maker.registered"
	EventTypeMakerStatusChanged = "maker.status_changed"
	EventTypeMakerCredit        = "maker.credit_updated"
)

type makerEvent struct {
	evt *types.Event
}

func (e makerEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e makerEvent) Event() *types.Event { return e.evt }

func newStatusEvent(kind string, app *Application) *types.Event {
	return types.NewEvent(kind).
		With("makerId", strconv.FormatUint(app.ID, 10)).
		WithHex("owner", app.Owner[:]).
		With("status", Status(app.Status).String()).
		WithAmount("deposit", app.Deposit)
}

func newCreditEvent(id, swapID uint64, outcome string, c *Credit) *types.Event {
	return types.NewEvent(EventTypeMakerCredit).
		With("makerId", strconv.FormatUint(id, 10)).
		WithUint("swapId", swapID).
		With("outcome", outcome).
		WithUint("score", uint64(c.Score))
}
