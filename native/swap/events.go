package swap

import (
	"strconv"

	"dustchain/core/types"
)

const (
	EventTypeSwapCreated            = "swap.created"
	EventTypeSwapTxSubmitted        = "swap.tx_submitted"
	EventTypeSwapCompleted          = "swap.completed"
	EventTypeSwapVerificationFailed = "swap.verification_failed"
	EventTypeSwapRefunded           = "swap.refunded"
	EventTypeSwapReported           = "swap.reported"
	EventTypeSwapArbitrating        = "swap.arbitrating"
	EventTypeSwapArbitrated         = "swap.arbitrated"
	EventTypeSwapArchived           = "swap.archived"
	EventTypeTxHashExpired          = "swap.tx_hash_expired"
)

type swapEvent struct {
	evt *types.Event
}

func (e swapEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e swapEvent) Event() *types.Event { return e.evt }

func newSwapEvent(kind string, s *Swap) *types.Event {
	return types.NewEvent(kind).
		With("swapId", strconv.FormatUint(s.ID, 10)).
		WithUint("makerId", s.MakerID).
		WithHex("maker", s.Maker[:]).
		WithHex("user", s.User[:]).
		WithAmount("dust", s.DustAmount).
		WithAmount("usdt", s.UsdtAmount).
		With("status", Status(s.Status).String())
}

func newTxHashEvent(digest []byte, swapID uint64) *types.Event {
	return types.NewEvent(EventTypeTxHashExpired).
		WithHex("digest", digest).
		WithUint("swapId", swapID)
}

func newArchiveL2Event(id uint64, size int) *types.Event {
	return types.NewEvent(EventTypeSwapArchived).
		With("swapId", strconv.FormatUint(id, 10)).
		WithUint("level", 2).
		WithUint("bytes", uint64(size))
}
