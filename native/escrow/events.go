package escrow

import (
	"math/big"
	"strconv"

	"dustchain/core/types"
)

const (
	EventTypeEscrowLocked   = "escrow.locked"
	EventTypeEscrowReleased = "escrow.released"
	EventTypeEscrowRefunded = "escrow.refunded"
	EventTypeEscrowSplit    = "escrow.split"
	EventTypeEscrowDiverted = "escrow.diverted"
)

func newJobEvent(kind string, job *Job, to [20]byte, amount *big.Int) *types.Event {
	evt := types.NewEvent(kind).
		With("jobId", strconv.FormatUint(job.ID, 10)).
		WithAmount("amount", amount).
		WithAmount("remaining", job.Remaining())
	if to != ([20]byte{}) {
		evt.WithHex("to", to[:])
	}
	if kind == EventTypeEscrowLocked {
		evt.WithHex("payer", job.Payer[:])
	}
	return evt
}

func newSplitEvent(job *Job, a, b [20]byte, bps uint32, shareA, shareB *big.Int) *types.Event {
	return types.NewEvent(EventTypeEscrowSplit).
		With("jobId", strconv.FormatUint(job.ID, 10)).
		WithHex("accountA", a[:]).
		WithHex("accountB", b[:]).
		WithUint("bps", uint64(bps)).
		WithAmount("amountA", shareA).
		WithAmount("amountB", shareB)
}

func newDivertedEvent(jobID uint64, intended, treasury [20]byte, amount *big.Int, cause error) *types.Event {
	evt := types.NewEvent(EventTypeEscrowDiverted).
		With("jobId", strconv.FormatUint(jobID, 10)).
		WithHex("intended", intended[:]).
		WithHex("treasury", treasury[:]).
		WithAmount("amount", amount)
	if cause != nil {
		evt.With("reason", cause.Error())
	}
	return evt
}
