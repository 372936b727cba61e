package swap

import (
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"lukechampine.com/blake3"
)

const dustWhole = 1_000_000_000_000

func yearMonth(ts uint64) uint32 {
	t := time.Unix(int64(ts), 0).UTC()
	return uint32(t.Year())*100 + uint32(t.Month())
}

func toL1(s *Swap) *ArchiveL1 {
	out := &ArchiveL1{
		ID:         s.ID,
		MakerID:    s.MakerID,
		User:       s.User,
		DustAmount: cloneBig(s.DustAmount),
		UsdtAmount: cloneBig(s.UsdtAmount),
		Status:     s.Status,
		CreatedAt:  s.CreatedAt,
		ClosedAt:   s.ClosedAt,
		ClosedTs:   s.ClosedTs,
	}
	if s.HasTxHash {
		digest := blake3.Sum256(s.TxHash)
		copy(out.TxDigest[:], digest[:16])
	}
	return out
}

func toL2(l1 *ArchiveL1) *ArchiveL2 {
	whole := new(big.Int).Quo(cloneBig(l1.DustAmount), big.NewInt(dustWhole))
	out := &ArchiveL2{ID: l1.ID, Status: l1.Status, YearMonth: yearMonth(l1.ClosedTs)}
	if whole.IsUint64() {
		out.DustWhole = whole.Uint64()
	} else {
		out.DustWhole = ^uint64(0)
	}
	return out
}

// ArchivedL1 returns the first-level archive of a swap.
func (e *Engine) ArchivedL1(id uint64) (*ArchiveL1, bool, error) {
	var raw []byte
	ok, err := e.store.KVGet(archiveL1Key(id), &raw)
	if err != nil || !ok {
		return nil, ok, err
	}
	var out ArchiveL1
	if err := cbor.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// ArchivedL2 returns the permanent archive entry of a swap.
func (e *Engine) ArchivedL2(id uint64) (*ArchiveL2, bool, error) {
	var raw []byte
	ok, err := e.store.KVGet(archiveL2Key(id), &raw)
	if err != nil || !ok {
		return nil, ok, err
	}
	var out ArchiveL2
	if err := cbor.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return &out, true, nil
}

// ArchiveCompleted compacts closed swaps: those closed ArchiveL1After blocks
// ago become L1 summaries and L1 summaries older than ArchiveL2After shrink
// to L2 entries. At most limit entries move per call.
func (e *Engine) ArchiveCompleted(limit int) (int, error) {
	if e == nil || e.store == nil {
		return 0, errNilState
	}
	height := e.blockFn()
	moved := 0
	closed, err := e.queue(closedQueueKey)
	if err != nil {
		return 0, err
	}
	for _, id := range closed {
		if limit > 0 && moved >= limit {
			return moved, nil
		}
		s, err := e.Swap(id)
		if err == ErrSwapNotFound {
			if _, err := e.store.KVRemove(closedQueueKey, encodeID(id)); err != nil {
				return moved, err
			}
			continue
		}
		if err != nil {
			return moved, err
		}
		if s.ClosedAt+e.params.ArchiveL1After > height {
			break
		}
		if err := e.archiveL1(s); err != nil {
			return moved, err
		}
		moved++
	}

	l1s, err := e.queue(archiveL1QueueKey)
	if err != nil {
		return moved, err
	}
	for _, id := range l1s {
		if limit > 0 && moved >= limit {
			break
		}
		l1, ok, err := e.ArchivedL1(id)
		if err != nil {
			return moved, err
		}
		if !ok {
			if _, err := e.store.KVRemove(archiveL1QueueKey, encodeID(id)); err != nil {
				return moved, err
			}
			continue
		}
		if l1.ClosedAt+e.params.ArchiveL2After > height {
			break
		}
		if err := e.archiveL2(l1); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (e *Engine) archiveL1(s *Swap) error {
	raw, err := cbor.Marshal(toL1(s))
	if err != nil {
		return err
	}
	if err := e.store.KVPut(archiveL1Key(s.ID), raw); err != nil {
		return err
	}
	if err := e.store.KVDelete(swapKey(s.ID)); err != nil {
		return err
	}
	if _, err := e.store.KVRemove(closedQueueKey, encodeID(s.ID)); err != nil {
		return err
	}
	if err := e.store.KVAppend(archiveL1QueueKey, encodeID(s.ID)); err != nil {
		return err
	}
	if err := e.updateAggregate(func(a *Aggregate) { a.ArchivedL1++ }); err != nil {
		return err
	}
	e.emit(newSwapEvent(EventTypeSwapArchived, s).WithUint("level", 1).WithUint("bytes", uint64(len(raw))))
	return nil
}

func (e *Engine) archiveL2(l1 *ArchiveL1) error {
	raw, err := cbor.Marshal(toL2(l1))
	if err != nil {
		return err
	}
	if err := e.store.KVPut(archiveL2Key(l1.ID), raw); err != nil {
		return err
	}
	if err := e.store.KVDelete(archiveL1Key(l1.ID)); err != nil {
		return err
	}
	if _, err := e.store.KVRemove(archiveL1QueueKey, encodeID(l1.ID)); err != nil {
		return err
	}
	if err := e.updateAggregate(func(a *Aggregate) { a.ArchivedL2++ }); err != nil {
		return err
	}
	e.emit(newArchiveL2Event(l1.ID, len(raw)))
	return nil
}
