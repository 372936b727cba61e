package runtime

import (
	"encoding/json"
	"fmt"
	"sort"

	"dustchain/core/types"
	"dustchain/native/common"
	"dustchain/native/swap"
)

// Calls lists the registered call names in lexical order.
func (r *Runtime) Calls() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Apply executes a call envelope from the pool. Signed calls must carry the
// signer's next nonce; the nonce is consumed even when the call fails.
// Unsigned calls are limited to the unsigned entry points.
func (r *Runtime) Apply(call *types.Call) error {
	if call == nil {
		return fmt.Errorf("%w: nil call", ErrInvalidArgs)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !call.Signed() {
		return r.dispatch(common.Unsigned(), call.Name, call.Args)
	}
	from, err := call.From()
	if err != nil {
		return err
	}
	nonce, err := r.bank.Nonce(from)
	if err != nil {
		return err
	}
	if call.Nonce != nonce {
		return fmt.Errorf("%w: expected %d, got %d", ErrBadNonce, nonce, call.Nonce)
	}
	dispatchErr := r.dispatch(common.Signed(from), call.Name, call.Args)
	if err := r.bank.IncrementNonce(from); err != nil {
		return err
	}
	return dispatchErr
}

// Dispatch executes name with an explicit origin. The node uses it for root
// and committee calls that do not travel through the pool.
func (r *Runtime) Dispatch(origin common.Origin, name string, args json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatch(origin, name, args)
}

// CommitteeOrigin returns the committee origin for the given number of
// approvals out of the configured committee size.
func (r *Runtime) CommitteeOrigin(approvals uint32) common.Origin {
	return common.Committee(approvals, r.committee)
}

// dispatch runs one call atomically: a failing call reverts its state writes
// and drops the events it emitted.
func (r *Runtime) dispatch(origin common.Origin, name string, args json.RawMessage) (err error) {
	h, ok := r.handlers[name]
	if !ok {
		err = fmt.Errorf("%w: %s", ErrUnknownCall, name)
		r.metrics.ObserveDispatch(name, err)
		return &DispatchError{Call: name, Name: ErrorName(err), Err: err}
	}
	switch {
	case h.kind == callSigned && origin.Kind != common.OriginSigned:
		err = ErrSignedRequired
	case h.kind == callPrivileged && origin.Kind == common.OriginUnsigned:
		err = fmt.Errorf("%w: %s", ErrUnsignedNotAllowed, name)
	}
	if err != nil {
		r.metrics.ObserveDispatch(name, err)
		return &DispatchError{Call: name, Name: ErrorName(err), Err: err}
	}

	snap := r.state.Snapshot()
	mark := r.buffer.Mark()
	err = h.apply(r, origin, args)
	r.metrics.ObserveDispatch(name, err)
	if err != nil {
		r.buffer.Truncate(mark)
		if revertErr := r.state.RevertToSnapshot(snap); revertErr != nil {
			return fmt.Errorf("runtime: revert %s: %w", name, revertErr)
		}
		return &DispatchError{Call: name, Name: ErrorName(err), Err: err}
	}
	r.flush()
	return nil
}

// ValidateUnsigned decides whether an unsigned call may enter the pool and
// returns its de-duplication tag.
func (r *Runtime) ValidateUnsigned(call *types.Call) (string, error) {
	if call == nil {
		return "", fmt.Errorf("%w: nil call", ErrInvalidArgs)
	}
	if call.Signed() {
		return "", fmt.Errorf("%w: call is signed", ErrInvalidArgs)
	}
	h, ok := r.handlers[call.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCall, call.Name)
	}
	if h.kind != callUnsigned {
		return "", fmt.Errorf("%w: %s", ErrUnsignedNotAllowed, call.Name)
	}
	args, err := decodeVerification(call.Args)
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := common.Guard(r.pauses, common.ModuleSwap); err != nil {
		return "", err
	}
	return r.swap.ValidateUnsigned(args.SwapID)
}

// UnsignedTag is the pool tag of the unsigned verification for swapID.
func UnsignedTag(swapID uint64) string { return swap.UnsignedTag(swapID) }
