package evidence

import "errors"

var ErrPinRequestNotFound = errors.New("evidence: pin request not found")

// PinRequest is a queued instruction for the off-chain pinning service.
type PinRequest struct {
	Seq         uint64
	Owner       [20]byte
	SubjectType string
	SubjectID   uint64
	CID         []byte
	Tier        uint8
	Unpin       bool
	RequestedAt uint64
}

// PinQueue is a Pinner that records requests in state for an external pinning
// service to drain.
type PinQueue struct {
	store   Storage
	blockFn func() uint64
}

// NewPinQueue returns a state-backed pin queue.
func NewPinQueue(store Storage, blockFn func() uint64) *PinQueue {
	if blockFn == nil {
		blockFn = func() uint64 { return 0 }
	}
	return &PinQueue{store: store, blockFn: blockFn}
}

func (q *PinQueue) enqueue(req PinRequest) error {
	if q == nil || q.store == nil {
		return errNilState
	}
	var seq uint64
	if _, err := q.store.KVGet(pinSeqKey, &seq); err != nil {
		return err
	}
	req.Seq = seq
	req.RequestedAt = q.blockFn()
	if err := q.store.KVPut(pinSeqKey, seq+1); err != nil {
		return err
	}
	if err := q.store.KVPut(pinRequestKey(seq), req); err != nil {
		return err
	}
	return q.store.KVAppend(pinQueueKey, encodeID(seq))
}

func (q *PinQueue) PinCIDForSubject(owner [20]byte, subjectType string, subjectID uint64, cid []byte, tier uint8) error {
	return q.enqueue(PinRequest{
		Owner:       owner,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		CID:         append([]byte(nil), cid...),
		Tier:        tier,
	})
}

func (q *PinQueue) UnpinCID(owner [20]byte, cid []byte) error {
	return q.enqueue(PinRequest{Owner: owner, CID: append([]byte(nil), cid...), Unpin: true})
}

// Pending returns up to limit queued requests in submission order.
func (q *PinQueue) Pending(limit int) ([]PinRequest, error) {
	if q == nil || q.store == nil {
		return nil, errNilState
	}
	var raw [][]byte
	if err := q.store.KVGetList(pinQueueKey, &raw); err != nil {
		return nil, err
	}
	out := make([]PinRequest, 0, len(raw))
	for _, item := range raw {
		if limit > 0 && len(out) >= limit {
			break
		}
		seq, ok := decodeID(item)
		if !ok {
			continue
		}
		var req PinRequest
		found, err := q.store.KVGet(pinRequestKey(seq), &req)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, req)
		}
	}
	return out, nil
}

// Ack removes a processed request.
func (q *PinQueue) Ack(seq uint64) error {
	if q == nil || q.store == nil {
		return errNilState
	}
	removed, err := q.store.KVRemove(pinQueueKey, encodeID(seq))
	if err != nil {
		return err
	}
	if !removed {
		return ErrPinRequestNotFound
	}
	return q.store.KVDelete(pinRequestKey(seq))
}
