package evidence

import (
	"encoding/binary"
	"fmt"

	"dustchain/core/types"
)

var (
	nextIDKey        = []byte("evidence/next-id")
	nextPrivateIDKey = []byte("evidence/next-private-id")
	pendingQueueKey  = []byte("evidence/pending-queue")
	archiveCursorKey = []byte("evidence/archive-cursor")
	archiveRetryKey  = []byte("evidence/archive-retry")
	archiveStatsKey  = []byte("evidence/archive-stats")
	pinQueueKey      = []byte("evidence/pin-queue")
	pinSeqKey        = []byte("evidence/pin-seq")
)

func recordKey(id uint64) []byte {
	return []byte(fmt.Sprintf("evidence/record/%d", id))
}

func archivedKey(id uint64) []byte {
	return []byte(fmt.Sprintf("evidence/archived/%d", id))
}

func targetIndexKey(domain types.DomainTag, target uint64) []byte {
	return []byte(fmt.Sprintf("evidence/by-target/%x/%d", domain[:], target))
}

func nsIndexKey(ns types.DomainTag, subject uint64) []byte {
	return []byte(fmt.Sprintf("evidence/by-ns/%x/%d", ns[:], subject))
}

func windowKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("evidence/window/%x", owner[:]))
}

func cidIndexKey(hash [32]byte) []byte {
	return []byte(fmt.Sprintf("evidence/cid/%x", hash[:]))
}

func commitIndexKey(hash [32]byte) []byte {
	return []byte(fmt.Sprintf("evidence/commit/%x", hash[:]))
}

func childrenKey(parent uint64) []byte {
	return []byte(fmt.Sprintf("evidence/children/%d", parent))
}

func cidLockKey(hash [32]byte) []byte {
	return []byte(fmt.Sprintf("evidence/cid-lock/%x", hash[:]))
}

func publicKeyKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("evidence/pubkey/%x", owner[:]))
}

func privateContentKey(id uint64) []byte {
	return []byte(fmt.Sprintf("evidence/private/%d", id))
}

func pinRequestKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("evidence/pin/%d", seq))
}

func encodeID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func decodeID(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}
