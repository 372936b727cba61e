package governance

import (
	"math/big"

	"dustchain/native/affiliate"
	"dustchain/native/bank"
)

// ValidateProposalPercents applies the affiliate split rules plus the
// governance floor on the total.
func (e *Engine) ValidateProposalPercents(p affiliate.Percents) error {
	if err := affiliate.ValidatePercents(p); err != nil {
		return ErrInvalidPercents
	}
	if p.Sum() < e.params.MinPercentSum {
		return ErrInvalidPercents
	}
	return nil
}

// ProposePercentageAdjustment opens a proposal replacing the instant split.
func (e *Engine) ProposePercentageAdjustment(who [20]byte, percents affiliate.Percents) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if err := e.ValidateProposalPercents(percents); err != nil {
		return 0, err
	}
	if e.executor == nil {
		return 0, ErrExecutorMissing
	}
	current, err := e.executor.InstantPercents()
	if err != nil {
		return 0, err
	}
	if current == percents {
		return 0, ErrNoChange
	}
	major := false
	for i := range percents {
		if absDiff(uint64(percents[i]), uint64(current[i])) > uint64(e.params.MajorPercentDelta) {
			major = true
			break
		}
	}
	return e.propose(who, &Proposal{Kind: KindInstantPercents, Percents: percents, Major: major})
}

// ProposeMembershipPriceAdjustment opens a proposal replacing the four tier
// prices.
func (e *Engine) ProposeMembershipPriceAdjustment(who [20]byte, prices []*big.Int) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	if err := affiliate.ValidateMembershipPrices(prices); err != nil {
		return 0, ErrInvalidPrices
	}
	if e.executor == nil {
		return 0, ErrExecutorMissing
	}
	current, err := e.executor.MembershipPrices()
	if err != nil {
		return 0, err
	}
	changed := len(current) != len(prices)
	major := false
	copied := make([]*big.Int, len(prices))
	for i, p := range prices {
		copied[i] = new(big.Int).Set(p)
		if i >= len(current) || current[i] == nil || current[i].Sign() == 0 {
			major = true
			continue
		}
		if p.Cmp(current[i]) != 0 {
			changed = true
		}
		delta := new(big.Int).Sub(p, current[i])
		delta.Abs(delta).Mul(delta, big.NewInt(10_000))
		limit := new(big.Int).Mul(current[i], new(big.Int).SetUint64(e.params.MajorPriceDeltaBps))
		if delta.Cmp(limit) > 0 {
			major = true
		}
	}
	if !changed {
		return 0, ErrNoChange
	}
	return e.propose(who, &Proposal{Kind: KindMembershipPrices, Prices: copied, Major: major})
}

func (e *Engine) propose(who [20]byte, p *Proposal) (uint64, error) {
	height := e.blockFn()
	st, err := e.proposerState(who)
	if err != nil {
		return 0, err
	}
	if st.Active >= e.params.MaxActivePerAccount {
		return 0, ErrTooManyActive
	}
	if st.HasProposed && height < st.LastProposal+e.params.ProposalGap {
		return 0, ErrProposalGap
	}
	if height < st.CooldownUntil {
		return 0, ErrRejectionCooldown
	}
	active, err := e.idList(activeKey)
	if err != nil {
		return 0, err
	}
	if e.params.MaxActiveProposals > 0 && len(active) >= e.params.MaxActiveProposals {
		return 0, ErrTooManyProposals
	}
	deposit := e.DepositFor()
	if deposit.Sign() > 0 {
		if err := e.currency.Hold(bank.HoldProposalDeposit, who, deposit); err != nil {
			return 0, err
		}
	}
	var next uint64
	if _, err := e.store.KVGet(nextIDKey, &next); err != nil {
		return 0, err
	}
	p.ID = next
	p.Proposer = who
	p.Status = StatusDiscussion
	p.CreatedAt = height
	p.VotingStart = height + e.params.DiscussionBlocks
	p.VotingEnd = p.VotingStart + e.params.VotingBlocks
	p.EffectiveBlock = height + e.params.ExecutionDelay
	if p.EffectiveBlock < p.VotingEnd {
		p.EffectiveBlock = p.VotingEnd
	}
	p.Deposit = deposit
	p.Aye, p.Nay, p.Abstain = big.NewInt(0), big.NewInt(0), big.NewInt(0)
	if err := e.putProposal(p); err != nil {
		return 0, err
	}
	if err := e.store.KVPut(nextIDKey, next+1); err != nil {
		return 0, err
	}
	if err := e.store.KVAppend(activeKey, encodeID(p.ID)); err != nil {
		return 0, err
	}
	st.Active++
	st.LastProposal = height
	st.HasProposed = true
	if err := e.putProposerState(who, st); err != nil {
		return 0, err
	}
	e.emit(newProposedEvent(p))
	return p.ID, nil
}

// CancelProposal withdraws a proposal still in discussion and returns its
// deposit. Only the proposer may cancel.
func (e *Engine) CancelProposal(who [20]byte, id uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	p, err := e.mustProposal(id)
	if err != nil {
		return err
	}
	if p.Proposer != who {
		return ErrNotProposer
	}
	if p.Status != StatusDiscussion {
		return ErrNotDiscussion
	}
	if err := e.returnDeposit(p); err != nil {
		return err
	}
	p.Status = StatusCancelled
	if err := e.close(p); err != nil {
		return err
	}
	e.emit(newStatusEvent(EventTypeProposalCancelled, p))
	return nil
}

func (e *Engine) returnDeposit(p *Proposal) error {
	if p.DepositReturned || p.Deposit.Sign() == 0 {
		p.DepositReturned = true
		return nil
	}
	if err := e.currency.Release(bank.HoldProposalDeposit, p.Proposer, p.Deposit); err != nil {
		return err
	}
	p.DepositReturned = true
	e.emit(newStatusEvent(EventTypeDepositReturned, p).WithAmount("amount", p.Deposit))
	return nil
}

func (e *Engine) slashDeposit(p *Proposal) error {
	if p.DepositReturned || p.Deposit.Sign() == 0 {
		return nil
	}
	if err := e.currency.TransferOnHold(bank.HoldProposalDeposit, p.Proposer, e.treasury, p.Deposit); err != nil {
		return err
	}
	p.DepositReturned = true
	e.emit(newStatusEvent(EventTypeDepositSlashed, p).WithAmount("amount", p.Deposit))
	return nil
}

// close moves a proposal into a terminal status: it leaves the active table,
// frees the proposer's slot and is queued for cleanup.
func (e *Engine) close(p *Proposal) error {
	p.DecidedAt = e.blockFn()
	if err := e.putProposal(p); err != nil {
		return err
	}
	if _, err := e.store.KVRemove(activeKey, encodeID(p.ID)); err != nil {
		return err
	}
	if err := e.store.KVAppend(terminalKey, encodeID(p.ID)); err != nil {
		return err
	}
	st, err := e.proposerState(p.Proposer)
	if err != nil {
		return err
	}
	if st.Active > 0 {
		st.Active--
	}
	if p.Status == StatusRejected {
		st.CooldownUntil = p.DecidedAt + e.params.RejectionCooldown
	}
	if err := e.putProposerState(p.Proposer, st); err != nil {
		return err
	}
	return e.recordHistory(p)
}

func absDiff(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}
