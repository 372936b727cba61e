package swap

// SweepFailure is an item the timeout sweep could not process. It is retried
// on the next sweep.
type SweepFailure struct {
	SwapID uint64
	Err    error
}

// SweepReport summarises one ProcessTimeouts run.
type SweepReport struct {
	Refunded []uint64
	Expired  []uint64
	Failures []SweepFailure
}

// ProcessTimeouts refunds pending swaps past TimeoutAt and expires
// verifications past their deadline. It only runs on heights that are a
// multiple of SweepInterval and is bounded by MaxPendingSweep and
// MaxVerificationSweep. Per-item failures are reported, not returned.
func (e *Engine) ProcessTimeouts(height uint64) (SweepReport, error) {
	var report SweepReport
	if e == nil || e.store == nil {
		return report, errNilState
	}
	if e.params.SweepInterval > 0 && height%e.params.SweepInterval != 0 {
		return report, nil
	}
	pending, err := e.queue(pendingQueueKey)
	if err != nil {
		return report, err
	}
	for _, id := range pending {
		if len(report.Refunded) >= e.params.MaxPendingSweep {
			break
		}
		s, err := e.Swap(id)
		if err == ErrSwapNotFound {
			_, _ = e.store.KVRemove(pendingQueueKey, encodeID(id))
			continue
		}
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{SwapID: id, Err: err})
			continue
		}
		if Status(s.Status) != StatusPending {
			if _, err := e.store.KVRemove(pendingQueueKey, encodeID(id)); err != nil {
				report.Failures = append(report.Failures, SweepFailure{SwapID: id, Err: err})
			}
			continue
		}
		if height < s.TimeoutAt {
			continue
		}
		if err := e.refundExpired(s, "pending_timeout"); err != nil {
			report.Failures = append(report.Failures, SweepFailure{SwapID: id, Err: err})
			continue
		}
		report.Refunded = append(report.Refunded, id)
	}

	verifying, err := e.queue(verifyQueueKey)
	if err != nil {
		return report, err
	}
	for _, id := range verifying {
		if len(report.Expired) >= e.params.MaxVerificationSweep {
			break
		}
		s, err := e.Swap(id)
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{SwapID: id, Err: err})
			continue
		}
		if Status(s.Status) != StatusAwaitingVerification || height < s.VerificationDeadline {
			continue
		}
		if err := e.refundExpired(s, "verification_timeout"); err != nil {
			report.Failures = append(report.Failures, SweepFailure{SwapID: id, Err: err})
			continue
		}
		report.Expired = append(report.Expired, id)
	}
	return report, nil
}

func (e *Engine) queue(key []byte) ([]uint64, error) {
	var raw [][]byte
	if err := e.store.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(raw))
	for _, r := range raw {
		if id, ok := decodeID(r); ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// CleanupTxHashes forgets up to limit TRC20 hashes older than TxHashTTL.
func (e *Engine) CleanupTxHashes(limit int) (int, error) {
	if e == nil || e.store == nil {
		return 0, errNilState
	}
	if e.params.TxHashTTL == 0 {
		return 0, nil
	}
	var digests [][]byte
	if err := e.store.KVGetList(txHashQueueKey, &digests); err != nil {
		return 0, err
	}
	height := e.blockFn()
	removed := 0
	for _, digest := range digests {
		if limit > 0 && removed >= limit {
			break
		}
		var used UsedTxHash
		ok, err := e.store.KVGet(txHashKey(digest), &used)
		if err != nil {
			return removed, err
		}
		if ok && used.RecordedAt+e.params.TxHashTTL > height {
			// Hashes are queued in recording order.
			break
		}
		if ok {
			if err := e.store.KVDelete(txHashKey(digest)); err != nil {
				return removed, err
			}
		}
		if _, err := e.store.KVRemove(txHashQueueKey, digest); err != nil {
			return removed, err
		}
		removed++
		e.emit(newTxHashEvent(digest, used.SwapID))
	}
	return removed, nil
}
