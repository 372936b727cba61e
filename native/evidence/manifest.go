package evidence

import "dustchain/native/common"

// UpdateManifest replaces the content CID of a Pending record. The edit
// window is fixed at commit time and never resets.
func (e *Engine) UpdateManifest(origin common.Origin, id uint64, newCID string) error {
	if err := e.guard(); err != nil {
		return err
	}
	rec, err := e.mustRecord(id)
	if err != nil {
		return err
	}
	if err := e.authorize(origin, rec); err != nil {
		return err
	}
	if rec.Status != uint8(StatusPending) {
		return ErrInvalidStatus
	}
	if e.blockFn() >= rec.EditDeadline {
		return ErrEditWindowExpired
	}
	if err := ValidateCID(newCID, e.params.MaxCIDLen); err != nil {
		return err
	}
	next := []byte(newCID)
	if e.params.GlobalCIDDedup {
		newHash := CIDHash(next)
		ok, err := e.store.KVGet(cidIndexKey(newHash), nil)
		if err != nil {
			return err
		}
		if ok {
			return ErrDuplicateCid
		}
		if err := e.store.KVDelete(cidIndexKey(CIDHash(rec.ContentCID))); err != nil {
			return err
		}
		if err := e.store.KVPut(cidIndexKey(newHash), rec.ID); err != nil {
			return err
		}
	}
	rec.ContentCID = next
	rec.Revision++
	if err := e.store.KVPut(recordKey(id), rec); err != nil {
		return err
	}
	evt := recordEvent(EventTypeManifestUpdated, rec)
	evt.WithUint("revision", uint64(rec.Revision))
	e.emit(evt)
	return nil
}

// FreezeExpired commits up to limit Pending records whose edit window has
// closed and requests their pins. It returns the number frozen.
func (e *Engine) FreezeExpired(limit int) (int, error) {
	if e == nil || e.store == nil {
		return 0, errNilState
	}
	if limit <= 0 {
		return 0, nil
	}
	queue, err := e.listIDs(pendingQueueKey)
	if err != nil {
		return 0, err
	}
	now := e.blockFn()
	frozen := 0
	for _, id := range queue {
		if frozen >= limit {
			break
		}
		rec, ok, err := e.Record(id)
		if err != nil {
			return frozen, err
		}
		if !ok || rec.Status != uint8(StatusPending) {
			if _, err := e.store.KVRemove(pendingQueueKey, encodeID(id)); err != nil {
				return frozen, err
			}
			continue
		}
		if rec.EditDeadline > now {
			break
		}
		rec.Status = uint8(StatusCommitted)
		if err := e.store.KVPut(recordKey(id), rec); err != nil {
			return frozen, err
		}
		if _, err := e.store.KVRemove(pendingQueueKey, encodeID(id)); err != nil {
			return frozen, err
		}
		e.emit(recordEvent(EventTypeFrozen, rec))
		e.requestPin(rec)
		frozen++
	}
	return frozen, nil
}
