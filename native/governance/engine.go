package governance

import (
	"math/big"

	"dustchain/core/events"
	"dustchain/core/pricing"
	"dustchain/core/types"
	"dustchain/native/affiliate"
	"dustchain/native/bank"
	"dustchain/native/common"
)

// Storage is the persistence subset used by the governance engine.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) (bool, error)
	KVGetList(key []byte, out interface{}) error
}

// Currency exposes balances and the holds backing deposits and vote locks.
type Currency interface {
	FreeBalance(addr [20]byte) (*big.Int, error)
	TotalIssuance() (*big.Int, error)
	Hold(reason bank.HoldReason, who [20]byte, amount *big.Int) error
	Release(reason bank.HoldReason, who [20]byte, amount *big.Int) error
	TransferOnHold(reason bank.HoldReason, from, to [20]byte, amount *big.Int) error
}

// Prices quotes DUST in USD for the deposit floor.
type Prices interface {
	DustToUSDRate() (*big.Int, bool)
}

// Executor applies passed proposals. The affiliate engine satisfies it.
type Executor interface {
	SetInstantPercents(origin common.Origin, p affiliate.Percents) error
	SetMembershipPrices(origin common.Origin, prices []*big.Int) error
	InstantPercents() (affiliate.Percents, error)
	MembershipPrices() ([]*big.Int, error)
}

// Engine runs parameter-change proposals with conviction voting.
type Engine struct {
	store    Storage
	currency Currency
	prices   Prices
	executor Executor
	admin    common.OriginCheck
	pauses   common.PauseView
	emitter  events.Emitter
	params   Params
	treasury [20]byte
	blockFn  func() uint64
}

// NewEngine constructs a governance engine. Emergency pauses require root or
// a two-thirds committee by default.
func NewEngine(store Storage, currency Currency, prices Prices, executor Executor) *Engine {
	return &Engine{
		store:    store,
		currency: currency,
		prices:   prices,
		executor: executor,
		admin:    common.RootOrCommittee{Num: 2, Den: 3},
		emitter:  events.NoopEmitter{},
		params:   DefaultParams(),
		treasury: bank.ModuleAccount("treasury"),
		blockFn:  func() uint64 { return 0 },
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

func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }
func (e *Engine) SetParams(p Params) { e.params = p }
func (e *Engine) Params() Params { return e.params }
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }
func (e *Engine) SetExecutor(x Executor) { e.executor = x }

// SetAdminOrigin replaces the check guarding EmergencyPause and Resume.
func (e *Engine) SetAdminOrigin(check common.OriginCheck) {
	if check == nil {
		check = common.RootOrCommittee{Num: 2, Den: 3}
	}
	e.admin = check
}

func (e *Engine) SetBlockFunc(fn func() uint64) {
	if fn == nil {
		fn = func() uint64 { return 0 }
	}
	e.blockFn = fn
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(governanceEvent{evt: evt})
}

// guard rejects user extrinsics while the module or the governance
// emergency flag is paused.
func (e *Engine) guard() error {
	if e == nil || e.store == nil || e.currency == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, common.ModuleGovernance); err != nil {
		return err
	}
	paused, err := e.Paused()
	if err != nil {
		return err
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// Proposal returns the stored proposal.
func (e *Engine) Proposal(id uint64) (*Proposal, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var p Proposal
	ok, err := e.store.KVGet(proposalKey(id), &p)
	if err != nil || !ok {
		return nil, ok, err
	}
	p.normalize()
	return &p, true, nil
}

func (e *Engine) mustProposal(id uint64) (*Proposal, error) {
	p, ok, err := e.Proposal(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProposalNotFound
	}
	return p, nil
}

func (e *Engine) putProposal(p *Proposal) error {
	return e.store.KVPut(proposalKey(p.ID), p)
}

// VoteOf returns voter's ballot on proposal id.
func (e *Engine) VoteOf(id uint64, voter [20]byte) (*Vote, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var v Vote
	ok, err := e.store.KVGet(voteKey(id, voter), &v)
	if err != nil || !ok {
		return nil, ok, err
	}
	v.Weight = cloneBig(v.Weight)
	v.Locked = cloneBig(v.Locked)
	return &v, true, nil
}

// ActiveProposals lists the ids still in discussion, voting or awaiting
// execution.
func (e *Engine) ActiveProposals() ([]uint64, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	return e.idList(activeKey)
}

func (e *Engine) idList(key []byte) ([]uint64, error) {
	var raw [][]byte
	if err := e.store.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, r := range raw {
		if id, ok := decodeID(r); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (e *Engine) proposerState(addr [20]byte) (*proposerState, error) {
	var st proposerState
	if _, err := e.store.KVGet(proposerKey(addr), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (e *Engine) putProposerState(addr [20]byte, st *proposerState) error {
	return e.store.KVPut(proposerKey(addr), st)
}

// Paused reports whether the emergency pause flag is set.
func (e *Engine) Paused() (bool, error) {
	st, err := e.PauseState()
	if err != nil {
		return false, err
	}
	return st.Paused, nil
}

func (e *Engine) PauseState() (*PauseState, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	var st PauseState
	if _, err := e.store.KVGet(pauseKey, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// EmergencyPause halts proposals, voting and execution until Resume.
func (e *Engine) EmergencyPause(origin common.Origin, reasonCID string) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	if err := e.admin.EnsureOrigin(origin); err != nil {
		return ErrNotAuthorized
	}
	if paused, err := e.Paused(); err != nil {
		return err
	} else if paused {
		return ErrPaused
	}
	st := &PauseState{Paused: true, ReasonCID: reasonCID, Since: e.blockFn()}
	if err := e.store.KVPut(pauseKey, st); err != nil {
		return err
	}
	e.emit(types.NewEvent(EventTypePaused).With("reasonCid", reasonCID).WithUint("block", st.Since))
	return nil
}

// Resume clears the emergency pause flag.
func (e *Engine) Resume(origin common.Origin) error {
	if e == nil || e.store == nil {
		return errNilState
	}
	if err := e.admin.EnsureOrigin(origin); err != nil {
		return ErrNotAuthorized
	}
	paused, err := e.Paused()
	if err != nil {
		return err
	}
	if !paused {
		return ErrNotPaused
	}
	if err := e.store.KVDelete(pauseKey); err != nil {
		return err
	}
	e.emit(types.NewEvent(EventTypeResumed).WithUint("block", e.blockFn()))
	return nil
}

// History returns the bounded record of decided proposals, oldest first.
func (e *Engine) History() ([]HistoryRecord, error) {
	if e == nil || e.store == nil {
		return nil, errNilState
	}
	var records []HistoryRecord
	if _, err := e.store.KVGet(historyKey, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (e *Engine) recordHistory(p *Proposal) error {
	records, err := e.History()
	if err != nil {
		return err
	}
	records = append(records, HistoryRecord{ProposalID: p.ID, Kind: p.Kind, Status: p.Status, Block: e.blockFn()})
	if limit := e.params.HistoryLimit; limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return e.store.KVPut(historyKey, records)
}

// DepositFor returns the deposit a proposal requires at the current price:
// the larger of ProposalDeposit and ProposalDepositUsd converted to DUST.
func (e *Engine) DepositFor() *big.Int {
	deposit := cloneBig(e.params.ProposalDeposit)
	if e.prices == nil || e.params.ProposalDepositUsd == nil {
		return deposit
	}
	rate, ok := e.prices.DustToUSDRate()
	if !ok || rate == nil || rate.Sign() <= 0 {
		return deposit
	}
	usd, err := pricing.USDToDust(e.params.ProposalDepositUsd, rate)
	if err != nil {
		return deposit
	}
	if usd.Cmp(deposit) > 0 {
		return usd
	}
	return deposit
}
