package evidence

import "errors"

var (
	errNilState = errors.New("evidence: state not configured")

	ErrNotFound            = errors.New("evidence: not found")
	ErrNotAuthorized       = errors.New("evidence: not authorized")
	ErrInvalidCidFormat    = errors.New("evidence: invalid cid format")
	ErrInvalidContentType  = errors.New("evidence: invalid content type")
	ErrInvalidCommitHash   = errors.New("evidence: invalid commit hash")
	ErrMemoTooLong         = errors.New("evidence: memo too long")
	ErrTooManyForSubject   = errors.New("evidence: too many records for subject")
	ErrRateLimited         = errors.New("evidence: rate limited")
	ErrDuplicateCid        = errors.New("evidence: duplicate cid")
	ErrCommitAlreadyExists = errors.New("evidence: commit hash already exists")
	ErrAlreadyLinked       = errors.New("evidence: already linked")
	ErrNotLinked           = errors.New("evidence: not linked")
	ErrTooManyChildren     = errors.New("evidence: too many children")
	ErrParentArchived      = errors.New("evidence: parent archived")
	ErrInvalidStatus       = errors.New("evidence: invalid status")
	ErrEditWindowExpired   = errors.New("evidence: edit window expired")
	ErrInvalidEncryptedKey = errors.New("evidence: invalid encrypted key")
	ErrInvalidPublicKey    = errors.New("evidence: invalid public key")
	ErrPublicKeyMissing    = errors.New("evidence: public key not registered")
	ErrTooManyGrantees     = errors.New("evidence: too many grantees")
	ErrOwnerKeyRequired    = errors.New("evidence: owner key required")
	ErrGranteeNotFound     = errors.New("evidence: grantee not found")
	ErrCannotRevokeOwner   = errors.New("evidence: cannot revoke owner access")
	ErrCIDNotLocked        = errors.New("evidence: cid not locked")
)
