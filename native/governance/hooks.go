package governance

import (
	"math/big"

	"dustchain/native/common"
)

// Failure records a proposal that could not be advanced in a hook run.
type Failure struct {
	ProposalID uint64
	Err        error
}

// FinalizeReport lists what an OnFinalize run changed.
type FinalizeReport struct {
	VotingStarted []uint64
	Passed        []uint64
	Rejected      []uint64
	Expired       []uint64
	Executed      []uint64
	Unlocked      int
	Failures      []Failure
}

func (r *FinalizeReport) fail(id uint64, err error) {
	r.Failures = append(r.Failures, Failure{ProposalID: id, Err: err})
}

// OnFinalize advances proposals at the end of block height: discussion ends,
// voting periods are tallied, passed proposals reaching their effective
// block are applied, and due vote locks are released. Errors on individual
// proposals are recorded in the report without aborting the run. While the
// emergency pause is active only vote locks are processed.
func (e *Engine) OnFinalize(height uint64) (*FinalizeReport, error) {
	if e == nil || e.store == nil || e.currency == nil {
		return nil, errNilState
	}
	report := &FinalizeReport{}
	paused, err := e.Paused()
	if err != nil {
		return nil, err
	}
	if !paused && common.Guard(e.pauses, common.ModuleGovernance) == nil {
		ids, err := e.idList(activeKey)
		if err != nil {
			return nil, err
		}
		budget := e.params.MaxTransitionsPerBlock
		for _, id := range ids {
			if budget > 0 && len(report.VotingStarted)+len(report.Passed)+len(report.Rejected)+
				len(report.Expired)+len(report.Executed)+len(report.Failures) >= budget {
				break
			}
			if err := e.advance(id, height, report); err != nil {
				report.fail(id, err)
			}
		}
	}
	if err := e.releaseLocks(height, report); err != nil {
		return report, err
	}
	return report, nil
}

func (e *Engine) advance(id, height uint64, report *FinalizeReport) error {
	p, err := e.mustProposal(id)
	if err != nil {
		return err
	}
	if p.Status == StatusDiscussion && height >= p.VotingStart {
		p.Status = StatusVoting
		if err := e.putProposal(p); err != nil {
			return err
		}
		report.VotingStarted = append(report.VotingStarted, id)
		e.emit(newStatusEvent(EventTypeVotingStarted, p).WithUint("votingEnd", p.VotingEnd))
	}
	if p.Status == StatusVoting && height >= p.VotingEnd {
		tally, err := e.Tally(p)
		if err != nil {
			return err
		}
		if err := e.decide(p, tally, report); err != nil {
			return err
		}
	}
	if p.Status == StatusPassed && height >= p.EffectiveBlock {
		return e.execute(p, report)
	}
	return nil
}

// Tally computes the outcome of p from its current weights.
func (e *Engine) Tally(p *Proposal) (*Tally, error) {
	total, err := e.TotalPower()
	if err != nil {
		return nil, err
	}
	t := &Tally{TotalPower: total}
	turnout := p.Turnout()
	if turnout.Sign() == 0 {
		return t, nil
	}
	t.ParticipationBps = ratioBps(turnout, total)
	t.ThresholdBps = e.params.threshold(t.ParticipationBps, p.Major)
	decisive := new(big.Int).Add(p.Aye, p.Nay)
	if decisive.Sign() > 0 {
		t.ApprovalBps = ratioBps(p.Aye, decisive)
	}
	t.Passed = t.ParticipationBps >= e.params.MinParticipationBps &&
		decisive.Sign() > 0 &&
		t.ApprovalBps >= t.ThresholdBps
	return t, nil
}

func ratioBps(num, den *big.Int) uint64 {
	if den.Sign() == 0 {
		return 0
	}
	v := new(big.Int).Mul(num, big.NewInt(10_000))
	v.Quo(v, den)
	if !v.IsUint64() {
		return ^uint64(0)
	}
	return v.Uint64()
}

func (e *Engine) decide(p *Proposal, t *Tally, report *FinalizeReport) error {
	switch {
	case p.Turnout().Sign() == 0:
		if err := e.returnDeposit(p); err != nil {
			return err
		}
		p.Status = StatusExpired
		if err := e.close(p); err != nil {
			return err
		}
		report.Expired = append(report.Expired, p.ID)
	case t.Passed:
		if err := e.returnDeposit(p); err != nil {
			return err
		}
		p.Status = StatusPassed
		p.DecidedAt = e.blockFn()
		if err := e.putProposal(p); err != nil {
			return err
		}
		report.Passed = append(report.Passed, p.ID)
	default:
		if err := e.slashDeposit(p); err != nil {
			return err
		}
		p.Status = StatusRejected
		if err := e.close(p); err != nil {
			return err
		}
		report.Rejected = append(report.Rejected, p.ID)
	}
	e.emit(newFinalizedEvent(p, t))
	return nil
}

func (e *Engine) execute(p *Proposal, report *FinalizeReport) error {
	if e.executor == nil {
		return ErrExecutorMissing
	}
	var err error
	switch p.Kind {
	case KindInstantPercents:
		err = e.executor.SetInstantPercents(common.Root(), p.Percents)
	case KindMembershipPrices:
		err = e.executor.SetMembershipPrices(common.Root(), p.Prices)
	default:
		err = ErrUnknownKind
	}
	if err != nil {
		p.Status = StatusFailed
		if cerr := e.close(p); cerr != nil {
			return cerr
		}
		e.emit(newStatusEvent(EventTypeProposalFailed, p).With("error", err.Error()))
		return err
	}
	if err := e.returnDeposit(p); err != nil {
		return err
	}
	p.Status = StatusExecuted
	if err := e.close(p); err != nil {
		return err
	}
	report.Executed = append(report.Executed, p.ID)
	e.emit(newStatusEvent(EventTypeProposalExecuted, p).WithUint("effectiveBlock", p.EffectiveBlock))
	return nil
}

// OnIdle prunes terminal proposals whose retention period has passed and
// whose vote locks are all released, at most CleanupBatch per call. It
// returns the number of proposals removed.
func (e *Engine) OnIdle(height uint64) (int, error) {
	if e == nil || e.store == nil {
		return 0, errNilState
	}
	ids, err := e.idList(terminalKey)
	if err != nil {
		return 0, err
	}
	limit := e.params.CleanupBatch
	if limit <= 0 {
		limit = 1
	}
	pruned := 0
	for _, id := range ids {
		if pruned >= limit {
			break
		}
		p, ok, err := e.Proposal(id)
		if err != nil {
			return pruned, err
		}
		if ok {
			if p.ActiveLocks > 0 || height < p.DecidedAt+e.params.RetentionBlocks {
				continue
			}
			if err := e.prune(p); err != nil {
				return pruned, err
			}
		}
		if _, err := e.store.KVRemove(terminalKey, encodeID(id)); err != nil {
			return pruned, err
		}
		pruned++
	}
	return pruned, nil
}

func (e *Engine) prune(p *Proposal) error {
	var voters [][]byte
	if err := e.store.KVGetList(votersKey(p.ID), &voters); err != nil {
		return err
	}
	for _, raw := range voters {
		if len(raw) != 20 {
			continue
		}
		var voter [20]byte
		copy(voter[:], raw)
		if err := e.store.KVDelete(voteKey(p.ID, voter)); err != nil {
			return err
		}
	}
	if err := e.store.KVDelete(votersKey(p.ID)); err != nil {
		return err
	}
	if err := e.store.KVDelete(proposalKey(p.ID)); err != nil {
		return err
	}
	e.emit(newStatusEvent(EventTypeProposalPruned, p))
	return nil
}
