package maker

import (
	"math/big"

	"dustchain/core/events"
	"dustchain/core/types"
	"dustchain/native/bank"
	"dustchain/native/common"
)

// Holds reserves maker profile deposits.
type Holds interface {
	Hold(reason bank.HoldReason, who [20]byte, amount *big.Int) error
	Release(reason bank.HoldReason, who [20]byte, amount *big.Int) error
}

// Engine implements maker lookups for the swap engine and records settlement
// outcomes as credit.
type Engine struct {
	ledger  *Ledger
	holds   Holds
	admin   common.OriginCheck
	emitter events.Emitter
	params  CreditParams
	blockFn func() uint64
}

// NewEngine constructs an engine backed by the provided storage backend.
func NewEngine(store Storage, holds Holds) *Engine {
	return &Engine{
		ledger:  NewLedger(store),
		holds:   holds,
		admin:   common.RootOnly{},
		emitter: events.NoopEmitter{},
		params:  DefaultCreditParams(),
		blockFn: func() uint64 { return 0 },
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

// SetAdminOrigin configures who may change maker status.
func (e *Engine) SetAdminOrigin(check common.OriginCheck) {
	if check != nil {
		e.admin = check
	}
}

func (e *Engine) SetParams(p CreditParams) { e.params = p }

// SetBlockFunc overrides the block height source.
func (e *Engine) SetBlockFunc(fn func() uint64) {
	if fn == nil {
		e.blockFn = func() uint64 { return 0 }
		return
	}
	e.blockFn = fn
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(makerEvent{evt: evt})
}

// Register creates an active maker for owner, holding deposit as a profile
// deposit.
func (e *Engine) Register(owner [20]byte, tronAddress [20]byte, deposit *big.Int) (uint64, error) {
	if tronAddress == ([20]byte{}) {
		return 0, ErrInvalidTronTarget
	}
	if _, exists, err := e.ledger.IDByOwner(owner); err != nil {
		return 0, err
	} else if exists {
		return 0, ErrMakerExists
	}
	deposit = common.Clone(deposit)
	if e.params.MinDeposit != nil && deposit.Cmp(e.params.MinDeposit) < 0 {
		return 0, ErrDepositTooLow
	}
	if deposit.Sign() > 0 {
		if e.holds == nil {
			return 0, ErrDepositTooLow
		}
		if err := e.holds.Hold(bank.HoldProfileDeposit, owner, deposit); err != nil {
			return 0, err
		}
	}
	id, err := e.ledger.NextID()
	if err != nil {
		return 0, err
	}
	app := &Application{
		ID:           id,
		Owner:        owner,
		TronAddress:  tronAddress,
		Status:       uint8(StatusActive),
		Deposit:      deposit,
		RegisteredAt: e.blockFn(),
	}
	if err := e.ledger.PutApplication(app); err != nil {
		return 0, err
	}
	if err := e.ledger.PutCredit(id, &Credit{Score: e.params.InitialScore, UpdatedAt: app.RegisteredAt}); err != nil {
		return 0, err
	}
	e.emit(newStatusEvent(EventTypeMakerRegistered, app))
	return id, nil
}

// SetStatus lets the admin origin suspend, reactivate or retire a maker.
// Retiring returns the profile deposit.
func (e *Engine) SetStatus(origin common.Origin, id uint64, status Status) error {
	if err := e.admin.EnsureOrigin(origin); err != nil {
		return ErrNotAuthorized
	}
	return e.setStatus(id, status)
}

// Retire lets a maker withdraw from the market.
func (e *Engine) Retire(owner [20]byte) error {
	id, ok, err := e.ledger.IDByOwner(owner)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMakerNotFound
	}
	return e.setStatus(id, StatusRetired)
}

func (e *Engine) setStatus(id uint64, status Status) error {
	if status < StatusActive || status > StatusRetired {
		return ErrInvalidStatus
	}
	app, err := e.GetMakerApplication(id)
	if err != nil {
		return err
	}
	if Status(app.Status) == StatusRetired {
		return ErrInvalidStatus
	}
	if status == StatusRetired && app.Deposit.Sign() > 0 && e.holds != nil {
		if err := e.holds.Release(bank.HoldProfileDeposit, app.Owner, app.Deposit); err != nil {
			return err
		}
		app.Deposit = big.NewInt(0)
	}
	app.Status = uint8(status)
	if err := e.ledger.PutApplication(app); err != nil {
		return err
	}
	e.emit(newStatusEvent(EventTypeMakerStatusChanged, app))
	return nil
}

// GetMakerApplication loads maker id.
func (e *Engine) GetMakerApplication(id uint64) (*Application, error) {
	app, ok, err := e.ledger.Application(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMakerNotFound
	}
	return app, nil
}

// ValidateMaker returns the application of an existing, active maker.
func (e *Engine) ValidateMaker(id uint64) (*Application, error) {
	app, err := e.GetMakerApplication(id)
	if err != nil {
		return nil, err
	}
	if Status(app.Status) != StatusActive {
		return nil, ErrMakerNotActive
	}
	return app, nil
}

// AccountToMakerID resolves the maker id owned by acc.
func (e *Engine) AccountToMakerID(acc [20]byte) (uint64, bool, error) {
	return e.ledger.IDByOwner(acc)
}

// Credit returns the credit record of id.
func (e *Engine) Credit(id uint64) (*Credit, error) {
	c, ok, err := e.ledger.Credit(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrMakerNotFound
	}
	return c, nil
}

func (e *Engine) adjust(id, swapID uint64, outcome string, fn func(c *Credit) int64) error {
	c, err := e.Credit(id)
	if err != nil {
		return err
	}
	delta := fn(c)
	score := int64(c.Score) + delta
	if score < 0 {
		score = 0
	}
	if score > int64(e.params.MaxScore) {
		score = int64(e.params.MaxScore)
	}
	c.Score = uint32(score)
	c.LastSwapID = swapID
	c.UpdatedAt = e.blockFn()
	if err := e.ledger.PutCredit(id, c); err != nil {
		return err
	}
	e.emit(newCreditEvent(id, swapID, outcome, c))
	if delta < 0 && c.Score < e.params.SuspendBelow {
		app, err := e.GetMakerApplication(id)
		if err != nil {
			return err
		}
		if Status(app.Status) == StatusActive {
			return e.setStatus(id, StatusSuspended)
		}
	}
	return nil
}

// RecordMakerOrderCompleted credits a verified settlement.
func (e *Engine) RecordMakerOrderCompleted(id, swapID uint64, responseSecs uint64) error {
	return e.adjust(id, swapID, "completed", func(c *Credit) int64 {
		c.Completed++
		c.TotalResponseSecs = saturatingAdd(c.TotalResponseSecs, responseSecs)
		if responseSecs <= e.params.FastResponseSecs {
			return int64(e.params.FastBonus)
		}
		return int64(e.params.CompletedBonus)
	})
}

// RecordMakerOrderTimeout penalises a maker that failed to settle in time.
func (e *Engine) RecordMakerOrderTimeout(id, swapID uint64) error {
	return e.adjust(id, swapID, "timeout", func(c *Credit) int64 {
		c.Timeouts++
		return -int64(e.params.TimeoutPenalty)
	})
}

// RecordMakerDisputeResult records the outcome of an arbitrated swap.
func (e *Engine) RecordMakerDisputeResult(id, swapID uint64, makerWin bool) error {
	if makerWin {
		return e.adjust(id, swapID, "dispute_won", func(c *Credit) int64 {
			c.DisputesWon++
			return int64(e.params.DisputeWinBonus)
		})
	}
	return e.adjust(id, swapID, "dispute_lost", func(c *Credit) int64 {
		c.DisputesLost++
		return -int64(e.params.DisputeLossCost)
	})
}

func saturatingAdd(a, b uint64) uint64 {
	if a+b < a {
		return ^uint64(0)
	}
	return a + b
}
