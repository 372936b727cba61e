package evidence

import (
	"dustchain/core/types"
	"dustchain/native/common"
)

// ContentType classifies the media behind an evidence CID.
type ContentType uint8

const (
	ContentTypeDocument ContentType = iota
	ContentTypeImage
	ContentTypeVideo
	ContentTypeText
	ContentTypeMixed
)

func (c ContentType) Valid() bool { return c <= ContentTypeMixed }

// Status tracks whether an evidence manifest may still be edited.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusCommitted
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCommitted:
		return "committed"
	default:
		return "unknown"
	}
}

// Record is a stored evidence commitment. Plain records carry a content CID,
// commit records carry only the commit hash.
type Record struct {
	ID           uint64
	Owner        [20]byte
	Domain       types.DomainTag
	TargetID     uint64
	ContentCID   []byte
	ContentType  uint8
	CreatedAt    uint64
	CreatedTs    uint64
	Encrypted    bool
	HasCommit    bool
	CommitHash   [32]byte
	HasNamespace bool
	Namespace    types.DomainTag
	Memo         []byte
	Status       uint8
	EditDeadline uint64
	Revision     uint32
	HasParent    bool
	Parent       uint64
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.ContentCID = append([]byte(nil), r.ContentCID...)
	out.Memo = append([]byte(nil), r.Memo...)
	return &out
}

// LockHash returns the key used for CID locks: blake2-256 of the CID for
// plain records and the commit hash otherwise.
func (r *Record) LockHash() [32]byte {
	if r.HasCommit {
		return r.CommitHash
	}
	return CIDHash(r.ContentCID)
}

// CommitRequest describes a plain evidence submission.
type CommitRequest struct {
	Owner       [20]byte
	Domain      types.DomainTag
	TargetID    uint64
	ContentCID  string
	ContentType ContentType
	Encrypted   bool
	Editable    bool
}

// ArchivedEvidence is the compact summary kept after a record is archived.
type ArchivedEvidence struct {
	ID            uint64          `cbor:"1,keyasint"`
	Domain        types.DomainTag `cbor:"2,keyasint"`
	TargetID      uint64          `cbor:"3,keyasint"`
	ContentDigest [32]byte        `cbor:"4,keyasint"`
	ContentType   uint8           `cbor:"5,keyasint"`
	CreatedAt     uint64          `cbor:"6,keyasint"`
	YearMonth     uint32          `cbor:"7,keyasint"`
}

// ArchiveStats counts archival progress.
type ArchiveStats struct {
	Archived   uint64
	Deferred   uint64
	LastHeight uint64
}

// PublicKey is an account's registered envelope encryption key.
type PublicKey struct {
	KeyType      uint8
	Key          []byte
	RegisteredAt uint64
}

// GranteeKey pairs an account with its encrypted copy of a content data key.
type GranteeKey struct {
	Account      [20]byte
	EncryptedKey []byte
}

// PrivateContent stores the opaque envelope metadata for encrypted content.
type PrivateContent struct {
	ID               uint64
	Owner            [20]byte
	Namespace        types.DomainTag
	SubjectID        uint64
	ContentCID       []byte
	ContentHash      [32]byte
	EncryptionMethod uint8
	KeyVersion       uint32
	Keys             []GranteeKey
	CreatedAt        uint64
	UpdatedAt        uint64
}

func (p *PrivateContent) keyIndex(who [20]byte) int {
	for i, k := range p.Keys {
		if k.Account == who {
			return i
		}
	}
	return -1
}

// CIDLock is a reference-counted retention lock on a content hash.
type CIDLock struct {
	Reasons  []string
	Expiries []uint64
}

// Params configures quotas and lifecycle windows of the evidence store.
type Params struct {
	MaxPerSubjectTarget uint32
	MaxPerSubjectNs     uint32
	Window              common.WindowQuota
	EditWindowBlocks    uint64
	ArchiveAfterBlocks  uint64
	MaxChildren         uint32
	GlobalCIDDedup      bool
	MaxCIDLen           int
	MaxMemoLen          int
	MaxGrantees         int
	MaxEncryptedKeyLen  int
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		MaxPerSubjectTarget: 32,
		MaxPerSubjectNs:     32,
		Window:              common.WindowQuota{Blocks: 600, Max: 20},
		EditWindowBlocks:    28_800,
		ArchiveAfterBlocks:  1_296_000,
		MaxChildren:         100,
		GlobalCIDDedup:      true,
		MaxCIDLen:           128,
		MaxMemoLen:          256,
		MaxGrantees:         32,
		MaxEncryptedKeyLen:  512,
	}
}
