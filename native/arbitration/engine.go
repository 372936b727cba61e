package arbitration

import (
	"errors"
	"math/big"
	"sort"

	"dustchain/core/events"
	"dustchain/core/types"
	"dustchain/native/bank"
	"dustchain/native/common"
	"dustchain/native/evidence"
)

// Storage is the persistence subset used by the router.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) (bool, error)
	KVGetList(key []byte, out interface{}) error
}

// Holds manages dispute and complaint collateral.
type Holds interface {
	Hold(reason bank.HoldReason, who [20]byte, amount *big.Int) error
	Release(reason bank.HoldReason, who [20]byte, amount *big.Int) error
	TransferOnHold(reason bank.HoldReason, from, to [20]byte, amount *big.Int) error
}

// EvidenceStore anchors dispute evidence.
type EvidenceStore interface {
	Commit(req evidence.CommitRequest) (uint64, error)
	LockHashOf(id uint64) ([32]byte, error)
}

// CIDLocker keeps disputed content pinned while a dispute is open.
type CIDLocker interface {
	LockCID(hash [32]byte, reason string, ttl uint64) error
	UnlockCID(hash [32]byte, reason string) error
}

// PriceProvider prices complaint deposits.
type PriceProvider interface {
	DustToUSDRate() (*big.Int, bool)
}

// DisputeListener is implemented by handlers that track when their objects
// enter arbitration.
type DisputeListener interface {
	OnDisputeOpened(id uint64) error
}

// Engine is the domain-keyed dispute registry.
type Engine struct {
	store    Storage
	holds    Holds
	evidence EvidenceStore
	locker   CIDLocker
	prices   PriceProvider
	decision common.OriginCheck
	pauses   common.PauseView
	handlers map[types.DomainTag]DomainHandler
	emitter  events.Emitter
	params   Params
	treasury [20]byte
	blockFn  func() uint64
}

// NewEngine constructs the router. Decisions default to the root origin.
func NewEngine(store Storage, holds Holds) *Engine {
	return &Engine{
		store:    store,
		holds:    holds,
		decision: common.RootOnly{},
		handlers: make(map[types.DomainTag]DomainHandler),
		emitter:  events.NoopEmitter{},
		params:   DefaultParams(),
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

func (e *Engine) SetEvidence(store EvidenceStore) { e.evidence = store }
func (e *Engine) SetCIDLocker(l CIDLocker) { e.locker = l }
func (e *Engine) SetPriceProvider(p PriceProvider) { e.prices = p }
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }
func (e *Engine) SetParams(p Params) { e.params = p }
func (e *Engine) SetTreasury(addr [20]byte) { e.treasury = addr }

// SetDecisionOrigin configures who may rule on disputes and complaints.
func (e *Engine) SetDecisionOrigin(check common.OriginCheck) {
	if check != nil {
		e.decision = check
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

// Register installs the handler for domain.
func (e *Engine) Register(domain types.DomainTag, handler DomainHandler) error {
	if handler == nil {
		return ErrUnknownDomain
	}
	if _, exists := e.handlers[domain]; exists {
		return ErrDomainRegistered
	}
	e.handlers[domain] = handler
	return nil
}

// Domains lists the registered domain tags in lexical order.
func (e *Engine) Domains() []types.DomainTag {
	out := make([]types.DomainTag, 0, len(e.handlers))
	for tag := range e.handlers {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(arbitrationEvent{evt: evt})
}

func (e *Engine) guard() error {
	if e == nil || e.store == nil {
		return errNilState
	}
	return common.Guard(e.pauses, common.ModuleArbitration)
}

func (e *Engine) handler(domain types.DomainTag) (DomainHandler, error) {
	h, ok := e.handlers[domain]
	if !ok {
		return nil, ErrUnknownDomain
	}
	return h, nil
}

// Dispute returns the active dispute on (domain, id).
func (e *Engine) Dispute(domain types.DomainTag, id uint64) (*Dispute, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var d Dispute
	ok, err := e.store.KVGet(disputeKey(domain, id), &d)
	if err != nil || !ok {
		return nil, ok, err
	}
	d.InitiatorDeposit = common.Clone(d.InitiatorDeposit)
	d.RespondentDeposit = common.Clone(d.RespondentDeposit)
	return &d, true, nil
}

// IsDisputed reports whether (domain, id) has an active dispute.
func (e *Engine) IsDisputed(domain types.DomainTag, id uint64) (bool, error) {
	_, ok, err := e.Dispute(domain, id)
	return ok, err
}

// Verdict returns the recorded ruling on (domain, id).
func (e *Engine) Verdict(domain types.DomainTag, id uint64) (*Verdict, bool, error) {
	var v Verdict
	ok, err := e.store.KVGet(verdictKey(domain, id), &v)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &v, true, nil
}

func (e *Engine) open(who [20]byte, domain types.DomainTag, id uint64) (DomainHandler, *Dispute, error) {
	if err := e.guard(); err != nil {
		return nil, nil, err
	}
	h, err := e.handler(domain)
	if err != nil {
		return nil, nil, err
	}
	exists, err := e.IsDisputed(domain, id)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrAlreadyDisputed
	}
	ok, err := h.CanDispute(who, id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNotDisputable
	}
	d := &Dispute{
		Domain:            domain,
		ObjectID:          id,
		Initiator:         who,
		InitiatorDeposit:  big.NewInt(0),
		RespondentDeposit: big.NewInt(0),
		CreatedAt:         e.blockFn(),
	}
	return h, d, nil
}

func (e *Engine) attach(d *Dispute, evidenceID uint64) error {
	if e.params.MaxEvidencePerDispute > 0 && len(d.EvidenceIDs) >= e.params.MaxEvidencePerDispute {
		return ErrTooManyEvidence
	}
	if e.evidence == nil {
		return ErrNoEvidence
	}
	hash, err := e.evidence.LockHashOf(evidenceID)
	if err != nil {
		return err
	}
	d.EvidenceIDs = append(d.EvidenceIDs, evidenceID)
	return e.lock(d, hash)
}

func (e *Engine) lock(d *Dispute, hash [32]byte) error {
	for _, existing := range d.LockedHashes {
		if existing == hash {
			return nil
		}
	}
	if e.locker != nil {
		if err := e.locker.LockCID(hash, lockReason(d.Domain, d.ObjectID), e.params.CIDLockTTL); err != nil {
			return err
		}
	}
	d.LockedHashes = append(d.LockedHashes, hash)
	return nil
}

func (e *Engine) putDispute(d *Dispute) error {
	return e.store.KVPut(disputeKey(d.Domain, d.ObjectID), d)
}

func (e *Engine) opened(h DomainHandler, d *Dispute) error {
	if err := e.putDispute(d); err != nil {
		return err
	}
	if l, ok := h.(DisputeListener); ok {
		if err := l.OnDisputeOpened(d.ObjectID); err != nil {
			return err
		}
	}
	e.emit(disputeEvent(EventTypeDisputed, d))
	return nil
}

// RaiseDispute opens a dispute on (domain, id), committing each CID through
// the evidence store and locking it for the lifetime of the dispute.
func (e *Engine) RaiseDispute(who [20]byte, domain types.DomainTag, id uint64, cids []string) error {
	h, d, err := e.open(who, domain, id)
	if err != nil {
		return err
	}
	if len(cids) > 0 && e.evidence == nil {
		return ErrNoEvidence
	}
	for _, c := range cids {
		evID, err := e.evidence.Commit(evidence.CommitRequest{
			Owner:       who,
			Domain:      domain,
			TargetID:    id,
			ContentCID:  c,
			ContentType: evidence.ContentTypeMixed,
		})
		if err != nil {
			return err
		}
		if err := e.attach(d, evID); err != nil {
			return err
		}
	}
	return e.opened(h, d)
}

// DisputeWithEvidenceID opens a dispute referencing already committed evidence.
func (e *Engine) DisputeWithEvidenceID(who [20]byte, domain types.DomainTag, id, evidenceID uint64) error {
	h, d, err := e.open(who, domain, id)
	if err != nil {
		return err
	}
	if err := e.attach(d, evidenceID); err != nil {
		return err
	}
	return e.opened(h, d)
}

// AppendEvidenceID lets either party add evidence to an open dispute.
func (e *Engine) AppendEvidenceID(who [20]byte, domain types.DomainTag, id, evidenceID uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	d, ok, err := e.Dispute(domain, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotDisputed
	}
	if who != d.Initiator {
		h, err := e.handler(domain)
		if err != nil {
			return err
		}
		counterparty, err := h.Counterparty(d.Initiator, id)
		if err != nil {
			return err
		}
		if who != counterparty {
			return ErrNotAuthorized
		}
	}
	if err := e.attach(d, evidenceID); err != nil {
		return err
	}
	if err := e.putDispute(d); err != nil {
		return err
	}
	e.emit(disputeEvent(EventTypeEvidenceAppended, d).WithUint("evidenceId", evidenceID))
	return nil
}

// DisputeWithTwoWayDeposit opens a dispute where the initiator stakes
// DepositRatioBps of the order amount and the counterparty is invited to
// match it before ResponseDeadline.
func (e *Engine) DisputeWithTwoWayDeposit(who [20]byte, domain types.DomainTag, id, evidenceID uint64) error {
	h, d, err := e.open(who, domain, id)
	if err != nil {
		return err
	}
	respondent, err := h.Counterparty(who, id)
	if err != nil {
		return err
	}
	amount, err := h.OrderAmount(id)
	if err != nil {
		return err
	}
	deposit := common.MulBps(amount, e.params.DepositRatioBps)
	if deposit.Sign() > 0 {
		if err := e.holds.Hold(bank.HoldDisputeInitiator, who, deposit); err != nil {
			return err
		}
	}
	d.TwoWay = true
	d.Respondent = respondent
	d.InitiatorDeposit = deposit
	d.ResponseDeadline = e.blockFn() + e.params.ResponseDeadline
	if err := e.attach(d, evidenceID); err != nil {
		return err
	}
	return e.opened(h, d)
}

// RespondToDispute lets the respondent post the matching deposit and counter
// evidence.
func (e *Engine) RespondToDispute(who [20]byte, domain types.DomainTag, id, counterEvidenceID uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	d, ok, err := e.Dispute(domain, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotDisputed
	}
	if !d.TwoWay {
		return ErrNotTwoWay
	}
	if who != d.Respondent {
		return ErrNotAuthorized
	}
	if d.HasResponded {
		return ErrAlreadyResponded
	}
	if e.blockFn() > d.ResponseDeadline {
		return ErrResponseDeadlinePassed
	}
	deposit := common.Clone(d.InitiatorDeposit)
	if deposit.Sign() > 0 {
		if err := e.holds.Hold(bank.HoldDisputeRespondent, who, deposit); err != nil {
			return err
		}
	}
	d.RespondentDeposit = deposit
	d.HasResponded = true
	if err := e.attach(d, counterEvidenceID); err != nil {
		return err
	}
	if err := e.putDispute(d); err != nil {
		return err
	}
	e.emit(disputeEvent(EventTypeDisputeResponded, d))
	return nil
}

// Arbitrate applies a ruling through the domain handler, settles deposits and
// releases CID locks.
func (e *Engine) Arbitrate(origin common.Origin, domain types.DomainTag, id uint64, decision Decision) error {
	if err := e.guard(); err != nil {
		return err
	}
	if err := e.decision.EnsureOrigin(origin); err != nil {
		return ErrNotAuthorized
	}
	if err := decision.Validate(); err != nil {
		return err
	}
	h, err := e.handler(domain)
	if err != nil {
		return err
	}
	d, ok, err := e.Dispute(domain, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotDisputed
	}
	if err := h.ApplyDecision(id, decision); err != nil {
		return err
	}
	if d.TwoWay {
		if err := e.settleDeposits(d, decision); err != nil {
			return err
		}
	}
	if d.HasComplaint {
		if err := e.closeEscalated(d, decision); err != nil {
			return err
		}
	}
	if err := e.unlockAll(d); err != nil {
		return err
	}
	if err := e.store.KVDelete(disputeKey(domain, id)); err != nil {
		return err
	}
	verdict := Verdict{
		Domain:    domain,
		ObjectID:  id,
		Kind:      uint8(decision.Kind),
		Bps:       decision.Bps,
		Initiator: d.Initiator,
		DecidedAt: e.blockFn(),
	}
	if err := e.store.KVPut(verdictKey(domain, id), verdict); err != nil {
		return err
	}
	e.emit(disputeEvent(EventTypeArbitrated, d).
		With("decision", decision.Kind.String()).
		WithUint("bps", uint64(decision.Bps)))
	return nil
}

func (e *Engine) unlockAll(d *Dispute) error {
	if e.locker == nil {
		return nil
	}
	reason := lockReason(d.Domain, d.ObjectID)
	for _, hash := range d.LockedHashes {
		if err := e.locker.UnlockCID(hash, reason); err != nil && !errors.Is(err, evidence.ErrCIDNotLocked) {
			return err
		}
	}
	return nil
}

// slash moves bps of deposit to the treasury and releases the remainder.
func (e *Engine) slash(reason bank.HoldReason, who [20]byte, deposit *big.Int, bps uint32) error {
	if deposit == nil || deposit.Sign() == 0 {
		return nil
	}
	cut := common.MulBps(deposit, bps)
	if cut.Sign() > 0 {
		if err := e.holds.TransferOnHold(reason, who, e.treasury, cut); err != nil {
			return err
		}
		e.emit(types.NewEvent(EventTypeDepositSlashed).
			With("reason", string(reason)).
			WithHex("account", who[:]).
			WithAmount("amount", cut))
	}
	rest := new(big.Int).Sub(deposit, cut)
	if rest.Sign() > 0 {
		return e.holds.Release(reason, who, rest)
	}
	return nil
}

func (e *Engine) settleDeposits(d *Dispute, decision Decision) error {
	initiatorBps, respondentBps := uint32(0), uint32(0)
	switch decision.Kind {
	case DecisionRelease:
		initiatorBps = e.params.RejectedSlashBps
	case DecisionRefund:
		respondentBps = e.params.RejectedSlashBps
	case DecisionPartial:
		initiatorBps = e.params.PartialSlashBps
		respondentBps = e.params.PartialSlashBps
	}
	if err := e.slash(bank.HoldDisputeInitiator, d.Initiator, d.InitiatorDeposit, initiatorBps); err != nil {
		return err
	}
	if d.HasResponded {
		return e.slash(bank.HoldDisputeRespondent, d.Respondent, d.RespondentDeposit, respondentBps)
	}
	return nil
}
