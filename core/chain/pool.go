package chain

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"dustchain/core/types"
)

var (
	ErrPoolFull  = errors.New("chain: pool full")
	ErrDuplicate = errors.New("chain: call already pooled")
)

// UnsignedValidator admits unsigned calls and returns their de-duplication
// tag.
type UnsignedValidator interface {
	ValidateUnsigned(call *types.Call) (string, error)
}

type pooled struct {
	call *types.Call
	key  string
}

// Pool queues calls for the next block in arrival order. Signed calls are
// keyed by hash; unsigned calls by the tag their validator assigns, so at most
// one verdict per swap waits in the pool.
type Pool struct {
	mu        sync.Mutex
	validator UnsignedValidator
	max       int
	queue     []pooled
	keys      map[string]struct{}
}

// NewPool returns a pool holding at most max calls.
func NewPool(validator UnsignedValidator, max int) *Pool {
	if max <= 0 {
		max = 4096
	}
	return &Pool{validator: validator, max: max, keys: make(map[string]struct{})}
}

// Add validates call and queues it. It returns the key the call is pooled
// under.
func (p *Pool) Add(call *types.Call) (string, error) {
	if call == nil || call.Name == "" {
		return "", fmt.Errorf("chain: empty call")
	}
	key, err := p.keyOf(call)
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.keys[key]; ok {
		return "", ErrDuplicate
	}
	if len(p.queue) >= p.max {
		return "", ErrPoolFull
	}
	p.keys[key] = struct{}{}
	p.queue = append(p.queue, pooled{call: call, key: key})
	return key, nil
}

func (p *Pool) keyOf(call *types.Call) (string, error) {
	if !call.Signed() {
		if p.validator == nil {
			return "", fmt.Errorf("chain: unsigned calls not accepted")
		}
		return p.validator.ValidateUnsigned(call)
	}
	if _, err := call.From(); err != nil {
		return "", fmt.Errorf("chain: bad signature: %w", err)
	}
	hash, err := call.Hash()
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(hash), nil
}

// Drain removes and returns up to limit calls. A non-positive limit drains
// everything.
func (p *Pool) Drain(limit int) []*types.Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.queue)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*types.Call, 0, n)
	for _, item := range p.queue[:n] {
		out = append(out, item.call)
		delete(p.keys, item.key)
	}
	p.queue = append([]pooled(nil), p.queue[n:]...)
	return out
}

// Len reports the number of queued calls.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}
