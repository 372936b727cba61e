package evidence

import "dustchain/core/types"

// KeyTypeX25519 is the only supported envelope key type.
const KeyTypeX25519 uint8 = 1

const x25519KeyLen = 32

// RegisterPublicKey stores or replaces the envelope public key of owner.
func (e *Engine) RegisterPublicKey(owner [20]byte, keyType uint8, key []byte) error {
	if err := e.guard(); err != nil {
		return err
	}
	if keyType != KeyTypeX25519 || len(key) != x25519KeyLen {
		return ErrInvalidPublicKey
	}
	rec := PublicKey{KeyType: keyType, Key: append([]byte(nil), key...), RegisteredAt: e.blockFn()}
	if err := e.store.KVPut(publicKeyKey(owner), rec); err != nil {
		return err
	}
	e.emit(types.NewEvent(EventTypePublicKey).
		WithHex("owner", owner[:]).
		WithUint("keyType", uint64(keyType)))
	return nil
}

// PublicKeyOf returns the registered envelope key of owner.
func (e *Engine) PublicKeyOf(owner [20]byte) (*PublicKey, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var rec PublicKey
	ok, err := e.store.KVGet(publicKeyKey(owner), &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &rec, true, nil
}

// PrivateContent loads an encrypted content envelope.
func (e *Engine) PrivateContent(id uint64) (*PrivateContent, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var rec PrivateContent
	ok, err := e.store.KVGet(privateContentKey(id), &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &rec, true, nil
}

func (e *Engine) checkGrantee(key GranteeKey) error {
	if len(key.EncryptedKey) == 0 {
		return ErrInvalidEncryptedKey
	}
	if e.params.MaxEncryptedKeyLen > 0 && len(key.EncryptedKey) > e.params.MaxEncryptedKeyLen {
		return ErrInvalidEncryptedKey
	}
	_, ok, err := e.PublicKeyOf(key.Account)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPublicKeyMissing
	}
	return nil
}

func (e *Engine) checkKeySet(owner [20]byte, keys []GranteeKey) ([]GranteeKey, error) {
	if len(keys) == 0 {
		return nil, ErrOwnerKeyRequired
	}
	if e.params.MaxGrantees > 0 && len(keys) > e.params.MaxGrantees {
		return nil, ErrTooManyGrantees
	}
	seen := make(map[[20]byte]struct{}, len(keys))
	out := make([]GranteeKey, 0, len(keys))
	hasOwner := false
	for _, k := range keys {
		if _, dup := seen[k.Account]; dup {
			return nil, ErrInvalidEncryptedKey
		}
		seen[k.Account] = struct{}{}
		if err := e.checkGrantee(k); err != nil {
			return nil, err
		}
		if k.Account == owner {
			hasOwner = true
		}
		out = append(out, GranteeKey{Account: k.Account, EncryptedKey: append([]byte(nil), k.EncryptedKey...)})
	}
	if !hasOwner {
		return nil, ErrOwnerKeyRequired
	}
	return out, nil
}

// StorePrivateContent records an encrypted content envelope. Only the
// content hash is emitted.
func (e *Engine) StorePrivateContent(owner [20]byte, ns types.DomainTag, subjectID uint64, contentCID string, contentHash [32]byte, method uint8, keys []GranteeKey) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if err := ValidateCID(contentCID, e.params.MaxCIDLen); err != nil {
		return 0, err
	}
	if contentHash == ([32]byte{}) {
		return 0, ErrInvalidCommitHash
	}
	stored, err := e.checkKeySet(owner, keys)
	if err != nil {
		return 0, err
	}
	if err := e.consumeWindow(owner); err != nil {
		return 0, err
	}
	id, err := e.nextID(nextPrivateIDKey)
	if err != nil {
		return 0, err
	}
	height := e.blockFn()
	content := &PrivateContent{
		ID:               id,
		Owner:            owner,
		Namespace:        ns,
		SubjectID:        subjectID,
		ContentCID:       []byte(contentCID),
		ContentHash:      contentHash,
		EncryptionMethod: method,
		KeyVersion:       1,
		Keys:             stored,
		CreatedAt:        height,
		UpdatedAt:        height,
	}
	if err := e.store.KVPut(privateContentKey(id), content); err != nil {
		return 0, err
	}
	e.emit(privateEvent(EventTypePrivateStored, content))
	return id, nil
}

func (e *Engine) ownedContent(owner [20]byte, id uint64) (*PrivateContent, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	content, ok, err := e.PrivateContent(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if content.Owner != owner {
		return nil, ErrNotAuthorized
	}
	return content, nil
}

// GrantAccess adds or replaces the encrypted data key of grantee.
func (e *Engine) GrantAccess(owner [20]byte, id uint64, grant GranteeKey) error {
	content, err := e.ownedContent(owner, id)
	if err != nil {
		return err
	}
	if err := e.checkGrantee(grant); err != nil {
		return err
	}
	stored := GranteeKey{Account: grant.Account, EncryptedKey: append([]byte(nil), grant.EncryptedKey...)}
	if idx := content.keyIndex(grant.Account); idx >= 0 {
		content.Keys[idx] = stored
	} else {
		if e.params.MaxGrantees > 0 && len(content.Keys) >= e.params.MaxGrantees {
			return ErrTooManyGrantees
		}
		content.Keys = append(content.Keys, stored)
	}
	content.UpdatedAt = e.blockFn()
	if err := e.store.KVPut(privateContentKey(id), content); err != nil {
		return err
	}
	e.emit(privateEvent(EventTypeAccessGranted, content).WithHex("grantee", grant.Account[:]))
	return nil
}

// RevokeAccess removes the data key of grantee. The owner's key cannot be
// revoked.
func (e *Engine) RevokeAccess(owner [20]byte, id uint64, grantee [20]byte) error {
	content, err := e.ownedContent(owner, id)
	if err != nil {
		return err
	}
	if grantee == owner {
		return ErrCannotRevokeOwner
	}
	idx := content.keyIndex(grantee)
	if idx < 0 {
		return ErrGranteeNotFound
	}
	content.Keys = append(content.Keys[:idx], content.Keys[idx+1:]...)
	content.UpdatedAt = e.blockFn()
	if err := e.store.KVPut(privateContentKey(id), content); err != nil {
		return err
	}
	e.emit(privateEvent(EventTypeAccessRevoked, content).WithHex("grantee", grantee[:]))
	return nil
}

// RotateContentKeys replaces the full key set after the owner re-encrypted
// the content under a fresh data key.
func (e *Engine) RotateContentKeys(owner [20]byte, id uint64, newContentHash [32]byte, keys []GranteeKey) error {
	content, err := e.ownedContent(owner, id)
	if err != nil {
		return err
	}
	if newContentHash == ([32]byte{}) {
		return ErrInvalidCommitHash
	}
	stored, err := e.checkKeySet(owner, keys)
	if err != nil {
		return err
	}
	content.Keys = stored
	content.ContentHash = newContentHash
	content.KeyVersion++
	content.UpdatedAt = e.blockFn()
	if err := e.store.KVPut(privateContentKey(id), content); err != nil {
		return err
	}
	e.emit(privateEvent(EventTypeKeysRotated, content))
	return nil
}
