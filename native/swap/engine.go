package swap

import (
	"math/big"
	"strconv"
	"strings"
	"time"

	"dustchain/core/events"
	"dustchain/core/pricing"
	"dustchain/core/types"
	"dustchain/crypto"
	"dustchain/native/common"
	"dustchain/native/maker"
)

// Storage is the persistence subset used by the swap engine.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) (bool, error)
	KVGetList(key []byte, out interface{}) error
}

// Escrow holds swapped DUST until settlement.
type Escrow interface {
	LockFrom(payer [20]byte, jobID uint64, amount *big.Int) error
	ReleaseAll(jobID uint64, beneficiary [20]byte) error
	RefundAll(jobID uint64, originalPayer [20]byte) error
	SplitPartial(jobID uint64, accountA, accountB [20]byte, bps uint32) error
}

// Makers validates the maker a swap is routed to.
type Makers interface {
	ValidateMaker(id uint64) (*maker.Application, error)
}

// Credit receives settlement outcomes per maker.
type Credit interface {
	RecordMakerOrderCompleted(id, swapID uint64, responseSecs uint64) error
	RecordMakerOrderTimeout(id, swapID uint64) error
	RecordMakerDisputeResult(id, swapID uint64, makerWin bool) error
}

// Pricing quotes DUST in USD and receives settled trades.
type Pricing interface {
	DustToUSDRate() (*big.Int, bool)
	ReportSwapOrder(ts int64, price, qty *big.Int) error
}

// CompletionHook is notified when a swap settles through verification.
type CompletionHook interface {
	OnSwapCompleted(s *Swap) error
}

// Engine runs the maker swap state machine.
type Engine struct {
	store        Storage
	escrow       Escrow
	makers       Makers
	credit       Credit
	prices       Pricing
	verification common.OriginCheck
	hook         CompletionHook
	pauses       common.PauseView
	emitter      events.Emitter
	params       Params
	blockFn      func() uint64
	nowFn        func() int64
}

// NewEngine wires the swap engine to its collaborators. Verification
// defaults to the root origin until an oracle set is configured.
func NewEngine(store Storage, escrow Escrow, makers Makers, credit Credit, prices Pricing) *Engine {
	return &Engine{
		store:        store,
		escrow:       escrow,
		makers:       makers,
		credit:       credit,
		prices:       prices,
		verification: common.RootOnly{},
		emitter:      events.NoopEmitter{},
		params:       DefaultParams(),
		blockFn:      func() uint64 { return 0 },
		nowFn:        func() int64 { return time.Now().Unix() },
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) SetCompletionHook(h CompletionHook) { e.hook = h }
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }
func (e *Engine) SetParams(p Params) { e.params = p }
func (e *Engine) Params() Params { return e.params }

// SetVerificationOrigin configures who may confirm verifications.
func (e *Engine) SetVerificationOrigin(check common.OriginCheck) {
	if check != nil {
		e.verification = check
	}
}

// SetBlockFunc overrides the block height source.
func (e *Engine) SetBlockFunc(fn func() uint64) {
	if fn == nil {
		e.blockFn = func() uint64 { return 0 }
		return
	}
	e.blockFn = fn
}

// SetNowFunc overrides the wall clock.
func (e *Engine) SetNowFunc(fn func() int64) {
	if fn == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = fn
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(swapEvent{evt: evt})
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) guard() error {
	if e == nil || e.store == nil {
		return errNilState
	}
	return common.Guard(e.pauses, common.ModuleSwap)
}

// Swap returns a copy of the live swap record.
func (e *Engine) Swap(id uint64) (*Swap, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	var s Swap
	ok, err := e.store.KVGet(swapKey(id), &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSwapNotFound
	}
	return s.Clone(), nil
}

func (e *Engine) putSwap(s *Swap) error {
	s.UpdatedAt = e.blockFn()
	return e.store.KVPut(swapKey(s.ID), s)
}

// Verification returns the pending verification request of a swap.
func (e *Engine) Verification(id uint64) (*VerificationRequest, error) {
	var req VerificationRequest
	ok, err := e.store.KVGet(verificationKey(id), &req)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVerificationNotFound
	}
	req.ExpectedAmount = cloneBig(req.ExpectedAmount)
	return &req, nil
}

// PendingVerifications lists up to limit queued verification requests in
// submission order.
func (e *Engine) PendingVerifications(limit int) ([]*VerificationRequest, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	var queue [][]byte
	if err := e.store.KVGetList(verifyQueueKey, &queue); err != nil {
		return nil, err
	}
	out := make([]*VerificationRequest, 0, len(queue))
	for _, raw := range queue {
		if limit > 0 && len(out) >= limit {
			break
		}
		id, ok := decodeID(raw)
		if !ok {
			continue
		}
		req, err := e.Verification(id)
		if err == ErrVerificationNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

// Aggregate returns the lifetime counters.
func (e *Engine) Aggregate() (*Aggregate, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	var agg Aggregate
	if _, err := e.store.KVGet(aggregateKey, &agg); err != nil {
		return nil, err
	}
	agg.TotalVolume = cloneBig(agg.TotalVolume)
	agg.TotalUsdt = cloneBig(agg.TotalUsdt)
	return &agg, nil
}

func (e *Engine) updateAggregate(fn func(a *Aggregate)) error {
	agg, err := e.Aggregate()
	if err != nil {
		return err
	}
	fn(agg)
	return e.store.KVPut(aggregateKey, agg)
}

func (e *Engine) nextSwapID() (uint64, error) {
	var next uint64
	if _, err := e.store.KVGet(nextSwapIDKey, &next); err != nil {
		return 0, err
	}
	if err := e.store.KVPut(nextSwapIDKey, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// MakerSwap escrows dustAmount from user and opens a swap against makerID
// paying USDT to the TRON address tronAddr.
func (e *Engine) MakerSwap(user [20]byte, makerID uint64, dustAmount *big.Int, tronAddr string) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if dustAmount == nil || dustAmount.Cmp(e.params.MinSwapAmount) < 0 {
		return 0, ErrBelowMinimumAmount
	}
	app, err := e.makers.ValidateMaker(makerID)
	if err != nil {
		return 0, err
	}
	tron, err := crypto.ParseTronAddress(tronAddr)
	if err != nil {
		return 0, ErrInvalidTronAddress
	}
	price, ok := e.prices.DustToUSDRate()
	if !ok || price == nil || price.Sign() <= 0 {
		return 0, ErrPriceNotAvailable
	}
	usdt, err := pricing.DustToUSD(dustAmount, price)
	if err != nil {
		return 0, err
	}
	if usdt.Cmp(e.params.MinUsdtAmount) < 0 {
		return 0, ErrUsdtBelowMinimum
	}
	id, err := e.nextSwapID()
	if err != nil {
		return 0, err
	}
	if err := e.escrow.LockFrom(user, id, dustAmount); err != nil {
		return 0, err
	}
	height := e.blockFn()
	s := &Swap{
		ID:            id,
		MakerID:       makerID,
		Maker:         app.Owner,
		User:          user,
		DustAmount:    new(big.Int).Set(dustAmount),
		UsdtAmount:    usdt,
		TronAddress:   [20]byte(tron),
		PriceSnapshot: new(big.Int).Set(price),
		CreatedAt:     height,
		CreatedTs:     e.now(),
		TimeoutAt:     height + e.params.OcwSwapTimeoutBlocks,
		Status:        uint8(StatusPending),
	}
	if err := e.putSwap(s); err != nil {
		return 0, err
	}
	if err := e.store.KVAppend(pendingQueueKey, encodeID(id)); err != nil {
		return 0, err
	}
	if err := e.updateAggregate(func(a *Aggregate) { a.TotalSwaps++ }); err != nil {
		return 0, err
	}
	e.emit(newSwapEvent(EventTypeSwapCreated, s).
		With("tronAddress", tron.String()).
		WithAmount("price", s.PriceSnapshot).
		WithUint("timeoutAt", s.TimeoutAt))
	return id, nil
}

// normalizeTxHash canonicalises a TRC20 transaction hash so case or prefix
// variants of one transfer map to the same key.
func normalizeTxHash(value string, maxLen int) ([]byte, error) {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		trimmed = trimmed[2:]
	}
	if trimmed == "" || (maxLen > 0 && len(trimmed) > maxLen) {
		return nil, ErrInvalidTxHash
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] < 0x21 || trimmed[i] > 0x7e {
			return nil, ErrInvalidTxHash
		}
	}
	return []byte(strings.ToLower(trimmed)), nil
}

// TxHashOwner reports which swap consumed txHash.
func (e *Engine) TxHashOwner(txHash string) (uint64, bool, error) {
	hash, err := normalizeTxHash(txHash, 0)
	if err != nil {
		return 0, false, err
	}
	var used UsedTxHash
	ok, err := e.store.KVGet(txHashKey(txHashDigest(hash)), &used)
	if err != nil || !ok {
		return 0, false, err
	}
	return used.SwapID, true, nil
}

// MarkSwapComplete records the maker's TRC20 transfer and queues it for
// verification.
func (e *Engine) MarkSwapComplete(caller [20]byte, id uint64, txHash string) error {
	if err := e.guard(); err != nil {
		return err
	}
	s, err := e.Swap(id)
	if err != nil {
		return err
	}
	if caller != s.Maker {
		return ErrNotAuthorized
	}
	if Status(s.Status) != StatusPending {
		return ErrInvalidStatus
	}
	hash, err := normalizeTxHash(txHash, e.params.MaxTxHashLen)
	if err != nil {
		return err
	}
	digest := txHashDigest(hash)
	exists, err := e.store.KVGet(txHashKey(digest), nil)
	if err != nil {
		return err
	}
	if exists {
		return ErrTronTxHashAlreadyUsed
	}
	height := e.blockFn()
	if err := e.store.KVPut(txHashKey(digest), UsedTxHash{SwapID: id, RecordedAt: height}); err != nil {
		return err
	}
	if err := e.store.KVAppend(txHashQueueKey, digest); err != nil {
		return err
	}
	req := &VerificationRequest{
		SwapID:         id,
		TronAddress:    s.TronAddress,
		ExpectedAmount: cloneBig(s.UsdtAmount),
		TxHash:         hash,
		Deadline:       height + e.params.VerificationTimeoutBlocks,
		CreatedAt:      height,
	}
	if err := e.store.KVPut(verificationKey(id), req); err != nil {
		return err
	}
	if err := e.store.KVAppend(verifyQueueKey, encodeID(id)); err != nil {
		return err
	}
	if _, err := e.store.KVRemove(pendingQueueKey, encodeID(id)); err != nil {
		return err
	}
	s.HasTxHash = true
	s.TxHash = hash
	s.VerificationDeadline = req.Deadline
	s.Status = uint8(StatusAwaitingVerification)
	if err := e.putSwap(s); err != nil {
		return err
	}
	e.emit(newSwapEvent(EventTypeSwapTxSubmitted, s).
		With("txHash", string(hash)).
		WithUint("verificationDeadline", req.Deadline))
	return nil
}

func (e *Engine) dropVerification(id uint64) error {
	if err := e.store.KVDelete(verificationKey(id)); err != nil {
		return err
	}
	_, err := e.store.KVRemove(verifyQueueKey, encodeID(id))
	return err
}

func (e *Engine) close(s *Swap, status Status) error {
	height := e.blockFn()
	s.Status = uint8(status)
	s.ClosedAt = height
	s.ClosedTs = e.now()
	if err := e.putSwap(s); err != nil {
		return err
	}
	if err := e.store.KVAppend(closedQueueKey, encodeID(s.ID)); err != nil {
		return err
	}
	return e.updateAggregate(func(a *Aggregate) {
		switch status {
		case StatusCompleted:
			a.Completed++
		case StatusRefunded:
			a.Refunded++
		case StatusArbitrationApproved:
			a.ArbitrationApproved++
		case StatusArbitrationRejected:
			a.ArbitrationRejected++
		}
		if status == StatusCompleted || status == StatusArbitrationApproved {
			a.TotalVolume = new(big.Int).Add(cloneBig(a.TotalVolume), s.DustAmount)
			a.TotalUsdt = new(big.Int).Add(cloneBig(a.TotalUsdt), s.UsdtAmount)
		}
	})
}

// ReportSwap lets the user flag a swap that has not been released for
// arbitration.
func (e *Engine) ReportSwap(caller [20]byte, id uint64, reason string) error {
	if err := e.guard(); err != nil {
		return err
	}
	if len(reason) > e.params.MaxReasonLen {
		return ErrReasonTooLong
	}
	s, err := e.Swap(id)
	if err != nil {
		return err
	}
	if caller != s.User {
		return ErrNotAuthorized
	}
	switch Status(s.Status) {
	case StatusPending:
		if _, err := e.store.KVRemove(pendingQueueKey, encodeID(id)); err != nil {
			return err
		}
	case StatusAwaitingVerification:
		if err := e.dropVerification(id); err != nil {
			return err
		}
	case StatusVerificationFailed:
	case StatusCompleted, StatusArbitrationApproved:
		return ErrAlreadyReleased
	default:
		return ErrInvalidStatus
	}
	s.Status = uint8(StatusUserReported)
	s.FailureReason = []byte(reason)
	if err := e.putSwap(s); err != nil {
		return err
	}
	e.emit(newSwapEvent(EventTypeSwapReported, s).With("reason", reason))
	return nil
}

// ConfirmVerification applies the verification origin's verdict on a
// submitted TRC20 transfer.
func (e *Engine) ConfirmVerification(origin common.Origin, id uint64, verified bool, reason string) error {
	if err := e.guard(); err != nil {
		return err
	}
	if err := e.verification.EnsureOrigin(origin); err != nil {
		return ErrNotAuthorized
	}
	return e.confirm(id, verified, reason)
}

// ValidateUnsigned admits an unsigned verification for pool inclusion and
// returns its de-duplication tag.
func (e *Engine) ValidateUnsigned(id uint64) (string, error) {
	s, err := e.Swap(id)
	if err != nil {
		return "", err
	}
	if Status(s.Status) != StatusAwaitingVerification {
		return "", ErrInvalidStatus
	}
	return UnsignedTag(id), nil
}

// UnsignedTag is the pool tag of an off-chain verification for swap id.
func UnsignedTag(id uint64) string {
	return "verify/" + strconv.FormatUint(id, 10)
}

// OcwSubmitVerification is the unsigned counterpart of ConfirmVerification
// used by off-chain workers.
func (e *Engine) OcwSubmitVerification(origin common.Origin, id uint64, verified bool, reason string) error {
	if err := e.guard(); err != nil {
		return err
	}
	if origin.Kind != common.OriginUnsigned {
		return ErrUnsignedRejected
	}
	if _, err := e.ValidateUnsigned(id); err != nil {
		return err
	}
	return e.confirm(id, verified, reason)
}

func (e *Engine) confirm(id uint64, verified bool, reason string) error {
	if len(reason) > e.params.MaxReasonLen {
		return ErrReasonTooLong
	}
	s, err := e.Swap(id)
	if err != nil {
		return err
	}
	if Status(s.Status) != StatusAwaitingVerification {
		return ErrInvalidStatus
	}
	if err := e.dropVerification(id); err != nil {
		return err
	}
	if !verified {
		s.Status = uint8(StatusVerificationFailed)
		s.FailureReason = []byte(reason)
		if err := e.putSwap(s); err != nil {
			return err
		}
		e.emit(newSwapEvent(EventTypeSwapVerificationFailed, s).With("reason", reason))
		return nil
	}
	if err := e.escrow.ReleaseAll(id, s.Maker); err != nil {
		return err
	}
	if err := e.close(s, StatusCompleted); err != nil {
		return err
	}
	elapsed := uint64(0)
	if height := e.blockFn(); height > s.CreatedAt {
		elapsed = height - s.CreatedAt
	}
	responseSecs := elapsed * e.params.BlockTimeSeconds
	if err := e.credit.RecordMakerOrderCompleted(s.MakerID, id, responseSecs); err != nil {
		return err
	}
	if err := e.prices.ReportSwapOrder(e.nowFn(), s.PriceSnapshot, s.DustAmount); err != nil {
		return err
	}
	if e.hook != nil {
		if err := e.hook.OnSwapCompleted(s.Clone()); err != nil {
			return err
		}
	}
	e.emit(newSwapEvent(EventTypeSwapCompleted, s).WithUint("responseSecs", responseSecs))
	return nil
}

// HandleVerificationTimeout refunds the user once the verification deadline
// has passed without a verdict. Anyone may call it.
func (e *Engine) HandleVerificationTimeout(id uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	s, err := e.Swap(id)
	if err != nil {
		return err
	}
	if Status(s.Status) != StatusAwaitingVerification {
		return ErrInvalidStatus
	}
	if e.blockFn() < s.VerificationDeadline {
		return ErrNotYetTimeout
	}
	return e.refundExpired(s, "verification_timeout")
}

func (e *Engine) refundExpired(s *Swap, cause string) error {
	status := Status(s.Status)
	if status != StatusPending && status != StatusAwaitingVerification {
		return ErrInvalidStatus
	}
	// Dequeue only after the refund succeeds.
	if err := e.escrow.RefundAll(s.ID, s.User); err != nil {
		return err
	}
	if status == StatusPending {
		if _, err := e.store.KVRemove(pendingQueueKey, encodeID(s.ID)); err != nil {
			return err
		}
	} else if err := e.dropVerification(s.ID); err != nil {
		return err
	}
	if err := e.close(s, StatusRefunded); err != nil {
		return err
	}
	if err := e.credit.RecordMakerOrderTimeout(s.MakerID, s.ID); err != nil {
		return err
	}
	e.emit(newSwapEvent(EventTypeSwapRefunded, s).With("cause", cause))
	return nil
}
