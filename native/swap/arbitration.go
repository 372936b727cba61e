package swap

import (
	"math/big"

	"dustchain/native/arbitration"
)

// makerWinBps is the smallest partial award that counts as a maker win.
const makerWinBps = 5_000

// OnDisputeOpened moves a disputable swap into arbitration and stops its
// verification clock.
func (e *Engine) OnDisputeOpened(id uint64) error {
	s, err := e.Swap(id)
	if err != nil {
		return err
	}
	switch Status(s.Status) {
	case StatusAwaitingVerification:
		if err := e.dropVerification(id); err != nil {
			return err
		}
	case StatusVerificationFailed, StatusUserReported:
	default:
		return ErrInvalidStatus
	}
	s.Status = uint8(StatusArbitrating)
	if err := e.putSwap(s); err != nil {
		return err
	}
	e.emit(newSwapEvent(EventTypeSwapArbitrating, s))
	return nil
}

// ApplyArbitrationDecision settles a disputed swap from escrow. Swaps whose
// DUST already left escrow are rejected with ErrAlreadyReleased.
func (e *Engine) ApplyArbitrationDecision(id uint64, decision arbitration.Decision) error {
	if err := decision.Validate(); err != nil {
		return ErrInvalidDecision
	}
	s, err := e.Swap(id)
	if err != nil {
		return err
	}
	status := Status(s.Status)
	if !status.Escrowed() {
		if status == StatusCompleted || status == StatusArbitrationApproved {
			return ErrAlreadyReleased
		}
		return ErrInvalidStatus
	}
	switch status {
	case StatusPending:
		if _, err := e.store.KVRemove(pendingQueueKey, encodeID(id)); err != nil {
			return err
		}
	case StatusAwaitingVerification:
		if err := e.dropVerification(id); err != nil {
			return err
		}
	}
	var makerWin bool
	switch decision.Kind {
	case arbitration.DecisionRelease:
		if err := e.escrow.ReleaseAll(id, s.Maker); err != nil {
			return err
		}
		makerWin = true
	case arbitration.DecisionRefund:
		if err := e.escrow.RefundAll(id, s.User); err != nil {
			return err
		}
	case arbitration.DecisionPartial:
		if err := e.escrow.SplitPartial(id, s.Maker, s.User, decision.Bps); err != nil {
			return err
		}
		makerWin = decision.Bps >= makerWinBps
	}
	final := StatusArbitrationRejected
	if makerWin {
		final = StatusArbitrationApproved
	}
	if err := e.close(s, final); err != nil {
		return err
	}
	if err := e.credit.RecordMakerDisputeResult(s.MakerID, id, makerWin); err != nil {
		return err
	}
	e.emit(newSwapEvent(EventTypeSwapArbitrated, s).
		With("decision", decision.Kind.String()).
		WithUint("bps", uint64(decision.Bps)).
		WithBool("makerWin", makerWin))
	return nil
}

type disputeHandler struct {
	engine *Engine
}

// DisputeHandler exposes the engine to the arbitration router under
// DomainTag.
func (e *Engine) DisputeHandler() arbitration.DomainHandler {
	return disputeHandler{engine: e}
}

func (h disputeHandler) CanDispute(who [20]byte, id uint64) (bool, error) {
	s, err := h.engine.Swap(id)
	if err == ErrSwapNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if who != s.User && who != s.Maker {
		return false, nil
	}
	switch Status(s.Status) {
	case StatusAwaitingVerification, StatusVerificationFailed, StatusUserReported:
		return true, nil
	default:
		return false, nil
	}
}

func (h disputeHandler) ApplyDecision(id uint64, decision arbitration.Decision) error {
	return h.engine.ApplyArbitrationDecision(id, decision)
}

func (h disputeHandler) Counterparty(initiator [20]byte, id uint64) ([20]byte, error) {
	s, err := h.engine.Swap(id)
	if err != nil {
		return [20]byte{}, err
	}
	switch initiator {
	case s.User:
		return s.Maker, nil
	case s.Maker:
		return s.User, nil
	default:
		return [20]byte{}, ErrNotParty
	}
}

func (h disputeHandler) OrderAmount(id uint64) (*big.Int, error) {
	s, err := h.engine.Swap(id)
	if err != nil {
		return nil, err
	}
	return cloneBig(s.DustAmount), nil
}

func (h disputeHandler) MakerID(id uint64) (uint64, bool, error) {
	s, err := h.engine.Swap(id)
	if err != nil {
		return 0, false, err
	}
	return s.MakerID, true, nil
}

func (h disputeHandler) OnDisputeOpened(id uint64) error {
	return h.engine.OnDisputeOpened(id)
}
