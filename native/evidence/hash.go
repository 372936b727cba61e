package evidence

import (
	"encoding/binary"
	"strings"

	"github.com/ipfs/go-cid"
	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"

	"dustchain/core/types"
)

// CIDHash returns blake2-256 of the raw CID bytes. It keys the global CID
// de-duplication index and CID locks.
func CIDHash(raw []byte) [32]byte {
	return blake2b.Sum256(raw)
}

// ContentDigest is the blake3 digest kept in archive summaries.
func ContentDigest(raw []byte) [32]byte {
	return blake3.Sum256(raw)
}

// ComputeCommitHash derives the commitment for a hidden CID:
// blake2-256(ns ‖ u64be(subject) ‖ cid ‖ salt ‖ u32be(version)).
func ComputeCommitHash(ns types.DomainTag, subjectID uint64, cidBytes, salt []byte, version uint32) [32]byte {
	buf := make([]byte, 0, len(ns)+8+len(cidBytes)+len(salt)+4)
	buf = append(buf, ns[:]...)
	buf = binary.BigEndian.AppendUint64(buf, subjectID)
	buf = append(buf, cidBytes...)
	buf = append(buf, salt...)
	buf = binary.BigEndian.AppendUint32(buf, version)
	return blake2b.Sum256(buf)
}

// ValidateCID checks that value parses as a CIDv0 or CIDv1 string.
func ValidateCID(value string, maxLen int) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || trimmed != value {
		return ErrInvalidCidFormat
	}
	if maxLen > 0 && len(trimmed) > maxLen {
		return ErrInvalidCidFormat
	}
	if _, err := cid.Decode(trimmed); err != nil {
		return ErrInvalidCidFormat
	}
	return nil
}
