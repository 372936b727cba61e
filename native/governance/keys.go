package governance

import (
	"encoding/binary"
	"fmt"
)

const (
	proposalPrefix = "gov/proposal/"
	votePrefix     = "gov/vote/"
	votersPrefix   = "gov/voters/"
	proposerPrefix = "gov/proposer/"
	unlockPrefix   = "gov/unlock/"
)

var (
	nextIDKey   = []byte("gov/next-id")
	activeKey   = []byte("gov/active")
	terminalKey = []byte("gov/terminal")
	historyKey  = []byte("gov/history")
	pauseKey    = []byte("gov/pause")
)

func proposalKey(id uint64) []byte { return []byte(fmt.Sprintf("%s%d", proposalPrefix, id)) }

func voteKey(id uint64, voter [20]byte) []byte {
	return []byte(fmt.Sprintf("%s%d/%x", votePrefix, id, voter[:]))
}

func votersKey(id uint64) []byte { return []byte(fmt.Sprintf("%s%d", votersPrefix, id)) }

func proposerKey(addr [20]byte) []byte { return []byte(fmt.Sprintf("%s%x", proposerPrefix, addr[:])) }

func unlockKey(block uint64) []byte { return []byte(fmt.Sprintf("%s%d", unlockPrefix, block)) }

func encodeID(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func decodeID(raw []byte) (uint64, bool) {
	if len(raw) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(raw), true
}

// unlock entries pack the proposal id and the voter.
func encodeUnlock(id uint64, voter [20]byte) []byte {
	buf := make([]byte, 28)
	binary.BigEndian.PutUint64(buf, id)
	copy(buf[8:], voter[:])
	return buf
}

func decodeUnlock(raw []byte) (uint64, [20]byte, bool) {
	var voter [20]byte
	if len(raw) != 28 {
		return 0, voter, false
	}
	copy(voter[:], raw[8:])
	return binary.BigEndian.Uint64(raw), voter, true
}
