package governance

import (
	"dustchain/core/types"
)

const (
	EventTypeProposalCreated   = "gov.proposed"
	EventTypeVotingStarted     = "gov.voting_started"
	EventTypeVoteCast          = "gov.vote"
	EventTypeProposalFinalized = "gov.finalized"
	EventTypeProposalExecuted  = "gov.executed"
	EventTypeProposalCancelled = "gov.cancelled"
	EventTypeProposalFailed    = "gov.failed"
	EventTypeDepositReturned   = "gov.deposit_returned"
	EventTypeDepositSlashed    = "gov.deposit_slashed"
	EventTypeVoteUnlocked      = "gov.vote_unlocked"
	EventTypeProposalPruned    = "gov.pruned"
	EventTypePaused            = "gov.paused"
	EventTypeResumed           = "gov.resumed"
)

type governanceEvent struct {
	evt *types.Event
}

func (g governanceEvent) EventType() string {
	if g.evt == nil {
		return ""
	}
	return g.evt.Type
}

func (g governanceEvent) Event() *types.Event { return g.evt }

func newProposedEvent(p *Proposal) *types.Event {
	return types.NewEvent(EventTypeProposalCreated).
		WithUint("id", p.ID).
		With("kind", p.Kind.String()).
		WithHex("proposer", p.Proposer[:]).
		WithBool("major", p.Major).
		WithAmount("deposit", p.Deposit).
		WithUint("votingStart", p.VotingStart).
		WithUint("votingEnd", p.VotingEnd).
		WithUint("effectiveBlock", p.EffectiveBlock)
}

func newVoteEvent(v *Vote) *types.Event {
	return types.NewEvent(EventTypeVoteCast).
		WithUint("id", v.ProposalID).
		WithHex("voter", v.Voter[:]).
		With("choice", v.Choice.String()).
		WithUint("conviction", uint64(v.Conviction)).
		WithAmount("weight", v.Weight).
		WithAmount("locked", v.Locked)
}

func newFinalizedEvent(p *Proposal, t *Tally) *types.Event {
	evt := types.NewEvent(EventTypeProposalFinalized).
		WithUint("id", p.ID).
		With("status", p.Status.StatusString()).
		WithAmount("aye", p.Aye).
		WithAmount("nay", p.Nay).
		WithAmount("abstain", p.Abstain)
	if t != nil {
		evt = evt.WithAmount("totalPower", t.TotalPower).
			WithUint("participationBps", t.ParticipationBps).
			WithUint("approvalBps", t.ApprovalBps).
			WithUint("thresholdBps", t.ThresholdBps)
	}
	return evt
}

func newStatusEvent(kind string, p *Proposal) *types.Event {
	return types.NewEvent(kind).
		WithUint("id", p.ID).
		With("kind", p.Kind.String()).
		With("status", p.Status.StatusString())
}
