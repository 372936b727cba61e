package escrow

import (
	"errors"
	"fmt"
	"math/big"

	"dustchain/core/events"
	"dustchain/core/types"
	"dustchain/native/bank"
)

var (
	errNilState = errors.New("escrow engine: state not configured")

	ErrJobExists     = errors.New("escrow: job already exists")
	ErrJobNotFound   = errors.New("escrow: job not found")
	ErrJobDrained    = errors.New("escrow: job already drained")
	ErrExceedsLocked = errors.New("escrow: amount exceeds locked balance")
	ErrInvalidAmount = errors.New("escrow: invalid amount")
	ErrInvalidBps    = errors.New("escrow: bps must not exceed 10000")
	ErrNoTreasury    = errors.New("escrow: treasury not configured")

	ErrInsufficientBalance = bank.ErrInsufficientBalance
)

// Storage is the persistence subset used by the vault.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Currency moves free balances.
type Currency interface {
	Transfer(from, to [20]byte, amount *big.Int) error
}

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

// Engine is the escrow vault. It guarantees that no value is created or
// destroyed and that each job's disbursements never exceed its lock.
type Engine struct {
	store    Storage
	currency Currency
	emitter  events.Emitter
	vault    [20]byte
	treasury [20]byte
	policy   FailurePolicy
	blockFn  func() uint64
}

// NewEngine creates a vault engine holding funds in the escrow module account.
func NewEngine(store Storage, currency Currency) *Engine {
	return &Engine{
		store:    store,
		currency: currency,
		emitter:  events.NoopEmitter{},
		vault:    bank.ModuleAccount("escrow"),
		blockFn:  func() uint64 { return 0 },
	}
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetTreasury configures the fallback recipient for FailurePolicyTreasury.
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetFailurePolicy selects how failed disbursements are handled.
func (e *Engine) SetFailurePolicy(p FailurePolicy) { e.policy = p }

// SetBlockFunc overrides the block height source.
func (e *Engine) SetBlockFunc(fn func() uint64) {
	if fn == nil {
		e.blockFn = func() uint64 { return 0 }
		return
	}
	e.blockFn = fn
}

// VaultAddress returns the module account holding locked funds.
func (e *Engine) VaultAddress() [20]byte { return e.vault }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: evt})
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func (e *Engine) loadJob(id uint64) (*Job, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var job Job
	ok, err := e.store.KVGet(jobKey(id), &job)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	job.Locked = cloneBigInt(job.Locked)
	job.Disbursed = cloneBigInt(job.Disbursed)
	return &job, true, nil
}

func (e *Engine) activeJob(id uint64) (*Job, error) {
	job, ok, err := e.loadJob(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Drained {
		return nil, ErrJobDrained
	}
	return job, nil
}

func (e *Engine) storeJob(job *Job) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	return e.store.KVPut(jobKey(job.ID), job)
}

// Job returns a copy of the stored job.
func (e *Engine) Job(id uint64) (*Job, bool, error) {
	return e.loadJob(id)
}

// LockFrom transfers amount from payer's free balance into the vault under
// jobID.
func (e *Engine) LockFrom(payer [20]byte, jobID uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	_, exists, err := e.loadJob(jobID)
	if err != nil {
		return err
	}
	if exists {
		return ErrJobExists
	}
	if err := e.currency.Transfer(payer, e.vault, amount); err != nil {
		return err
	}
	job := &Job{
		ID:        jobID,
		Payer:     payer,
		Locked:    cloneBigInt(amount),
		Disbursed: big.NewInt(0),
		CreatedAt: e.blockFn(),
	}
	if err := e.storeJob(job); err != nil {
		return err
	}
	e.emit(newJobEvent(EventTypeEscrowLocked, job, [20]byte{}, amount))
	return nil
}

func (e *Engine) pay(jobID uint64, to [20]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	err := e.currency.Transfer(e.vault, to, amount)
	if err == nil {
		return nil
	}
	if e.policy != FailurePolicyTreasury || to == e.treasury {
		return err
	}
	if e.treasury == ([20]byte{}) {
		return ErrNoTreasury
	}
	if retryErr := e.currency.Transfer(e.vault, e.treasury, amount); retryErr != nil {
		return fmt.Errorf("escrow: treasury fallback: %w", retryErr)
	}
	e.emit(newDivertedEvent(jobID, to, e.treasury, amount, err))
	return nil
}

func (e *Engine) disburse(job *Job, amount *big.Int) {
	job.Disbursed = new(big.Int).Add(job.Disbursed, amount)
	if job.Disbursed.Cmp(job.Locked) >= 0 {
		job.Drained = true
	}
}

// ReleaseTo moves amount from the vault to beneficiary.
func (e *Engine) ReleaseTo(jobID uint64, beneficiary [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	job, err := e.activeJob(jobID)
	if err != nil {
		return err
	}
	if amount.Cmp(job.Remaining()) > 0 {
		return ErrExceedsLocked
	}
	if err := e.pay(jobID, beneficiary, amount); err != nil {
		return err
	}
	e.disburse(job, amount)
	if err := e.storeJob(job); err != nil {
		return err
	}
	e.emit(newJobEvent(EventTypeEscrowReleased, job, beneficiary, amount))
	return nil
}

// ReleaseAll sends the remaining locked balance to beneficiary and marks the
// job drained.
func (e *Engine) ReleaseAll(jobID uint64, beneficiary [20]byte) error {
	job, err := e.activeJob(jobID)
	if err != nil {
		return err
	}
	amount := job.Remaining()
	if err := e.pay(jobID, beneficiary, amount); err != nil {
		return err
	}
	e.disburse(job, amount)
	job.Drained = true
	if err := e.storeJob(job); err != nil {
		return err
	}
	e.emit(newJobEvent(EventTypeEscrowReleased, job, beneficiary, amount))
	return nil
}

// RefundAll returns the remaining locked balance to the original payer.
func (e *Engine) RefundAll(jobID uint64, originalPayer [20]byte) error {
	job, err := e.activeJob(jobID)
	if err != nil {
		return err
	}
	amount := job.Remaining()
	if err := e.pay(jobID, originalPayer, amount); err != nil {
		return err
	}
	e.disburse(job, amount)
	job.Drained = true
	if err := e.storeJob(job); err != nil {
		return err
	}
	e.emit(newJobEvent(EventTypeEscrowRefunded, job, originalPayer, amount))
	return nil
}

// SplitPartial sends bps/10000 of the remaining balance to accountA and the
// rest to accountB. A's share is rounded down.
func (e *Engine) SplitPartial(jobID uint64, accountA, accountB [20]byte, bps uint32) error {
	if bps > 10_000 {
		return ErrInvalidBps
	}
	job, err := e.activeJob(jobID)
	if err != nil {
		return err
	}
	remaining := job.Remaining()
	shareA := new(big.Int).Mul(remaining, big.NewInt(int64(bps)))
	shareA.Quo(shareA, big.NewInt(10_000))
	shareB := new(big.Int).Sub(remaining, shareA)
	if err := e.pay(jobID, accountA, shareA); err != nil {
		return err
	}
	if err := e.pay(jobID, accountB, shareB); err != nil {
		return err
	}
	e.disburse(job, remaining)
	job.Drained = true
	if err := e.storeJob(job); err != nil {
		return err
	}
	e.emit(newSplitEvent(job, accountA, accountB, bps, shareA, shareB))
	return nil
}

// AmountOf returns the amount still locked under jobID. Unknown jobs report
// zero.
func (e *Engine) AmountOf(jobID uint64) (*big.Int, error) {
	job, ok, err := e.loadJob(jobID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return job.Remaining(), nil
}
