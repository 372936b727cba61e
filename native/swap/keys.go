package swap

import (
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	nextSwapIDKey     = []byte("swap/next-id")
	aggregateKey      = []byte("swap/aggregate")
	pendingQueueKey   = []byte("swap/queue/pending")
	verifyQueueKey    = []byte("swap/queue/verify")
	closedQueueKey    = []byte("swap/queue/closed")
	archiveL1QueueKey = []byte("swap/queue/archive-l1")
	txHashQueueKey    = []byte("swap/queue/txhash")
)

func swapKey(id uint64) []byte {
	return []byte(fmt.Sprintf("swap/record/%d", id))
}

func verificationKey(id uint64) []byte {
	return []byte(fmt.Sprintf("swap/verify/%d", id))
}

func archiveL1Key(id uint64) []byte {
	return []byte(fmt.Sprintf("swap/archive/l1/%d", id))
}

func archiveL2Key(id uint64) []byte {
	return []byte(fmt.Sprintf("swap/archive/l2/%d", id))
}

func txHashDigest(hash []byte) []byte {
	return ethcrypto.Keccak256(hash)
}

func txHashKey(digest []byte) []byte {
	return []byte(fmt.Sprintf("swap/txhash/%x", digest))
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
