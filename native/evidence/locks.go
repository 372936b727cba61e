package evidence

// LockCID places a retention lock tagged reason on hash. ttl is measured in
// blocks; zero keeps the lock until UnlockCID. Locking the same reason twice
// refreshes its expiry.
func (e *Engine) LockCID(hash [32]byte, reason string, ttl uint64) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	var lock CIDLock
	if _, err := e.store.KVGet(cidLockKey(hash), &lock); err != nil {
		return err
	}
	expiry := uint64(0)
	if ttl > 0 {
		expiry = e.blockFn() + ttl
	}
	found := false
	for i, r := range lock.Reasons {
		if r == reason {
			lock.Expiries[i] = expiry
			found = true
			break
		}
	}
	if !found {
		lock.Reasons = append(lock.Reasons, reason)
		lock.Expiries = append(lock.Expiries, expiry)
	}
	if err := e.store.KVPut(cidLockKey(hash), lock); err != nil {
		return err
	}
	e.emit(lockEvent(EventTypeCIDLocked, hash, reason, len(lock.Reasons)))
	return nil
}

// UnlockCID drops the lock tagged reason from hash.
func (e *Engine) UnlockCID(hash [32]byte, reason string) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	var lock CIDLock
	ok, err := e.store.KVGet(cidLockKey(hash), &lock)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCIDNotLocked
	}
	idx := -1
	for i, r := range lock.Reasons {
		if r == reason {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCIDNotLocked
	}
	lock.Reasons = append(lock.Reasons[:idx], lock.Reasons[idx+1:]...)
	lock.Expiries = append(lock.Expiries[:idx], lock.Expiries[idx+1:]...)
	if len(lock.Reasons) == 0 {
		err = e.store.KVDelete(cidLockKey(hash))
	} else {
		err = e.store.KVPut(cidLockKey(hash), lock)
	}
	if err != nil {
		return err
	}
	e.emit(lockEvent(EventTypeCIDUnlocked, hash, reason, len(lock.Reasons)))
	return nil
}

// IsCIDLocked reports whether any unexpired lock holds hash.
func (e *Engine) IsCIDLocked(hash [32]byte) (bool, error) {
	if e == nil || e.store == nil {
		return false, errNilState
	}
	var lock CIDLock
	ok, err := e.store.KVGet(cidLockKey(hash), &lock)
	if err != nil || !ok {
		return false, err
	}
	now := e.blockFn()
	for i := range lock.Reasons {
		if i >= len(lock.Expiries) || lock.Expiries[i] == 0 || lock.Expiries[i] > now {
			return true, nil
		}
	}
	return false, nil
}

// LockHashOf returns the lock key of evidence id.
func (e *Engine) LockHashOf(id uint64) ([32]byte, error) {
	rec, err := e.mustRecord(id)
	if err != nil {
		return [32]byte{}, err
	}
	return rec.LockHash(), nil
}
