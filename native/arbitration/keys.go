package arbitration

import (
	"encoding/binary"
	"fmt"

	"dustchain/core/types"
)

var (
	nextComplaintIDKey = []byte("arbitration/complaint/next-id")
	complaintQueueKey  = []byte("arbitration/complaint/queue")
)

func disputeKey(domain types.DomainTag, id uint64) []byte {
	return []byte(fmt.Sprintf("arbitration/dispute/%x/%d", domain[:], id))
}

func verdictKey(domain types.DomainTag, id uint64) []byte {
	return []byte(fmt.Sprintf("arbitration/verdict/%x/%d", domain[:], id))
}

func complaintKey(id uint64) []byte {
	return []byte(fmt.Sprintf("arbitration/complaint/%d", id))
}

func lockReason(domain types.DomainTag, id uint64) string {
	return fmt.Sprintf("arbitration/%s/%d", domain.String(), id)
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
