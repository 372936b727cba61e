package affiliate

import (
	"math/big"

	"dustchain/core/types"
)

func (e *Engine) cycleMeta(cycle uint32) (*cycleMeta, bool, error) {
	var meta cycleMeta
	ok, err := e.store.KVGet(cycleMetaKey(cycle), &meta)
	if err != nil || !ok {
		return nil, ok, err
	}
	meta.Total = cloneBig(meta.Total)
	meta.PaidOut = cloneBig(meta.PaidOut)
	return &meta, true, nil
}

// Entitlement returns the amount accrued by who in cycle.
func (e *Engine) Entitlement(cycle uint32, who [20]byte) (*big.Int, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	var amount *big.Int
	if _, err := e.store.KVGet(entitlementKey(cycle, who), &amount); err != nil {
		return nil, err
	}
	return cloneBig(amount), nil
}

// CycleAccountCount returns how many accounts accrued in cycle.
func (e *Engine) CycleAccountCount(cycle uint32) (uint64, error) {
	meta, ok, err := e.cycleMeta(cycle)
	if err != nil || !ok {
		return 0, err
	}
	return meta.Count, nil
}

func (e *Engine) accrue(cycle uint32, who [20]byte, amount *big.Int) error {
	var current *big.Int
	exists, err := e.store.KVGet(entitlementKey(cycle, who), &current)
	if err != nil {
		return err
	}
	meta, ok, err := e.cycleMeta(cycle)
	if err != nil {
		return err
	}
	if !ok {
		meta = &cycleMeta{Total: big.NewInt(0), PaidOut: big.NewInt(0)}
		if err := e.store.KVAppend(cyclesKey, encodeCycle(cycle)); err != nil {
			return err
		}
	}
	if !exists {
		perPage := uint64(e.params.MaxCycleAccountsPerPage)
		if perPage == 0 {
			perPage = 1
		}
		page := meta.Count / perPage
		if page >= uint64(e.params.MaxCyclePages) {
			return ErrCycleAccountsFull
		}
		if err := e.store.KVAppend(cyclePageKey(cycle, uint32(page)), who[:]); err != nil {
			return err
		}
		meta.Count++
		meta.Pages = uint32(page) + 1
	}
	next := new(big.Int).Add(cloneBig(current), amount)
	if err := e.store.KVPut(entitlementKey(cycle, who), next); err != nil {
		return err
	}
	meta.Total.Add(meta.Total, amount)
	return e.store.KVPut(cycleMetaKey(cycle), meta)
}

// SettleCycle pays out up to maxAccounts entitlements of a closed cycle,
// resuming from the stored cursor. It returns the number of accounts
// processed and whether the cycle is fully settled. Anyone may call it.
func (e *Engine) SettleCycle(cycle uint32, maxAccounts int) (int, bool, error) {
	if err := e.guard(); err != nil {
		return 0, false, err
	}
	current, err := e.CurrentCycle()
	if err != nil {
		return 0, false, err
	}
	if cycle >= current {
		return 0, false, ErrCycleNotClosed
	}
	meta, ok, err := e.cycleMeta(cycle)
	if err != nil {
		return 0, false, err
	}
	if !ok || meta.Settled {
		return 0, true, nil
	}
	perPage := uint64(e.params.MaxCycleAccountsPerPage)
	if perPage == 0 {
		perPage = 1
	}
	var (
		pageNo    = ^uint64(0)
		page      [][]byte
		processed int
	)
	for meta.Cursor < meta.Count && (maxAccounts <= 0 || processed < maxAccounts) {
		if want := meta.Cursor / perPage; want != pageNo {
			page = nil
			if err := e.store.KVGetList(cyclePageKey(cycle, uint32(want)), &page); err != nil {
				return processed, false, err
			}
			pageNo = want
		}
		idx := meta.Cursor % perPage
		meta.Cursor++
		processed++
		if idx >= uint64(len(page)) || len(page[idx]) != 20 {
			continue
		}
		var who [20]byte
		copy(who[:], page[idx])
		amount, err := e.Entitlement(cycle, who)
		if err != nil {
			return processed, false, err
		}
		if err := e.store.KVDelete(entitlementKey(cycle, who)); err != nil {
			return processed, false, err
		}
		if amount.Sign() == 0 {
			continue
		}
		if err := e.currency.Transfer(e.pot, who, amount); err != nil {
			return processed, false, err
		}
		meta.PaidOut.Add(meta.PaidOut, amount)
	}
	if meta.Cursor >= meta.Count {
		meta.Settled = true
	}
	if err := e.store.KVPut(cycleMetaKey(cycle), meta); err != nil {
		return processed, false, err
	}
	if meta.Settled {
		e.emit(types.NewEvent(EventTypeCycleSettled).
			WithUint("cycle", uint64(cycle)).
			WithUint("accounts", meta.Count).
			WithAmount("paid", meta.PaidOut))
	}
	return processed, meta.Settled, nil
}

// CleanupOldCycles drops the account pages and bookkeeping of settled cycles
// older than HistoryRetentionWeeks. Unsettled cycles are kept. At most limit
// cycles are pruned per call; non-positive limits use CleanupCyclesPerCall.
func (e *Engine) CleanupOldCycles(limit int) (int, error) {
	if e == nil || e.store == nil {
		return 0, errNilState
	}
	if limit <= 0 {
		limit = e.params.CleanupCyclesPerCall
	}
	current, err := e.CurrentCycle()
	if err != nil {
		return 0, err
	}
	var cycles [][]byte
	if err := e.store.KVGetList(cyclesKey, &cycles); err != nil {
		return 0, err
	}
	pruned := 0
	for _, raw := range cycles {
		if pruned >= limit {
			break
		}
		cycle, ok := decodeCycle(raw)
		if !ok {
			continue
		}
		if uint64(cycle)+uint64(e.params.HistoryRetentionWeeks) >= uint64(current) {
			continue
		}
		meta, found, err := e.cycleMeta(cycle)
		if err != nil {
			return pruned, err
		}
		if found && !meta.Settled {
			continue
		}
		if found {
			for p := uint32(0); p < meta.Pages; p++ {
				if err := e.store.KVDelete(cyclePageKey(cycle, p)); err != nil {
					return pruned, err
				}
			}
			if err := e.store.KVDelete(cycleMetaKey(cycle)); err != nil {
				return pruned, err
			}
		}
		if _, err := e.store.KVRemove(cyclesKey, raw); err != nil {
			return pruned, err
		}
		pruned++
		e.emit(types.NewEvent(EventTypeCyclePruned).WithUint("cycle", uint64(cycle)))
	}
	return pruned, nil
}
