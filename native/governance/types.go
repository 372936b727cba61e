package governance

import (
	"math/big"

	"dustchain/core/pricing"
	"dustchain/native/affiliate"
)

// ProposalKind selects the parameter a proposal changes.
type ProposalKind uint8

const (
	KindInstantPercents ProposalKind = iota + 1
	KindMembershipPrices
)

func (k ProposalKind) String() string {
	switch k {
	case KindInstantPercents:
		return "instant_percents"
	case KindMembershipPrices:
		return "membership_prices"
	default:
		return "unknown"
	}
}

// ProposalStatus enumerates the lifecycle phases of a proposal.
type ProposalStatus uint8

const (
	StatusUnspecified ProposalStatus = iota
	// StatusDiscussion accepts no votes; the proposer may still cancel.
	StatusDiscussion
	StatusVoting
	// StatusPassed proposals wait for their effective block.
	StatusPassed
	StatusRejected
	StatusExecuted
	StatusCancelled
	// StatusExpired marks proposals that closed without a single vote.
	StatusExpired
	// StatusFailed marks passed proposals whose change could not be applied.
	StatusFailed
)

// StatusString renders the status for events and APIs.
func (s ProposalStatus) StatusString() string {
	switch s {
	case StatusDiscussion:
		return "discussion"
	case StatusVoting:
		return "voting"
	case StatusPassed:
		return "passed"
	case StatusRejected:
		return "rejected"
	case StatusExecuted:
		return "executed"
	case StatusCancelled:
		return "cancelled"
	case StatusExpired:
		return "expired"
	case StatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// Terminal reports whether no further transition can happen.
func (s ProposalStatus) Terminal() bool {
	switch s {
	case StatusRejected, StatusExecuted, StatusCancelled, StatusExpired, StatusFailed:
		return true
	default:
		return false
	}
}

// VoteChoice is a ballot selection.
type VoteChoice uint8

const (
	ChoiceAye VoteChoice = iota + 1
	ChoiceNay
	ChoiceAbstain
)

func (c VoteChoice) Valid() bool { return c >= ChoiceAye && c <= ChoiceAbstain }

func (c VoteChoice) String() string {
	switch c {
	case ChoiceAye:
		return "aye"
	case ChoiceNay:
		return "nay"
	case ChoiceAbstain:
		return "abstain"
	default:
		return "unknown"
	}
}

// MaxConviction is the highest accepted conviction level.
const MaxConviction = 6

var (
	// convictionMultipliers are expressed in tenths.
	convictionMultipliers = [MaxConviction + 1]uint64{10, 10, 20, 30, 40, 50, 60}
	convictionLockWeeks   = [MaxConviction + 1]uint64{0, 1, 2, 4, 8, 16, 32}
)

// ConvictionMultiplier returns the weight multiplier of level in tenths.
func ConvictionMultiplier(level uint8) (uint64, bool) {
	if level > MaxConviction {
		return 0, false
	}
	return convictionMultipliers[level], true
}

// ConvictionLockWeeks returns how many weeks a vote at level stays locked,
// counted from the block the vote is cast.
func ConvictionLockWeeks(level uint8) (uint64, bool) {
	if level > MaxConviction {
		return 0, false
	}
	return convictionLockWeeks[level], true
}

// Proposal is the persisted record of a parameter-change proposal. Only the
// field matching Kind carries a value.
type Proposal struct {
	ID              uint64
	Kind            ProposalKind
	Proposer        [20]byte
	Percents        affiliate.Percents
	Prices          []*big.Int
	Status          ProposalStatus
	Major           bool
	CreatedAt       uint64
	VotingStart     uint64
	VotingEnd       uint64
	EffectiveBlock  uint64
	Deposit         *big.Int
	DepositReturned bool
	Aye             *big.Int
	Nay             *big.Int
	Abstain         *big.Int
	Voters          uint64
	ActiveLocks     uint64
	DecidedAt       uint64
}

func (p *Proposal) normalize() {
	p.Deposit = cloneBig(p.Deposit)
	p.Aye = cloneBig(p.Aye)
	p.Nay = cloneBig(p.Nay)
	p.Abstain = cloneBig(p.Abstain)
	for i := range p.Prices {
		p.Prices[i] = cloneBig(p.Prices[i])
	}
}

// Turnout returns the sum of all cast weight.
func (p *Proposal) Turnout() *big.Int {
	total := new(big.Int).Add(cloneBig(p.Aye), cloneBig(p.Nay))
	return total.Add(total, cloneBig(p.Abstain))
}

// Vote is a single ballot, including the balance it keeps locked.
type Vote struct {
	ProposalID  uint64
	Voter       [20]byte
	Choice      VoteChoice
	Conviction  uint8
	Weight      *big.Int
	Locked      *big.Int
	UnlockBlock uint64
	Released    bool
	CastAt      uint64
}

// Tally summarises how a proposal's voting period was decided.
type Tally struct {
	TotalPower       *big.Int
	ParticipationBps uint64
	ApprovalBps      uint64
	ThresholdBps     uint64
	Passed           bool
}

// HistoryRecord is an entry of the bounded decision history.
type HistoryRecord struct {
	ProposalID uint64
	Kind       ProposalKind
	Status     ProposalStatus
	Block      uint64
}

// PauseState is the emergency pause flag and its justification.
type PauseState struct {
	Paused    bool
	ReasonCID string
	Since     uint64
}

type proposerState struct {
	Active        uint32
	LastProposal  uint64
	HasProposed   bool
	CooldownUntil uint64
}

// Params configures the proposal lifecycle. Amounts are in DUST base units
// except ProposalDepositUsd which uses USD precision.
type Params struct {
	DiscussionBlocks       uint64
	VotingBlocks           uint64
	ExecutionDelay         uint64
	MaxActivePerAccount    uint32
	MaxActiveProposals     int
	ProposalGap            uint64
	RejectionCooldown      uint64
	ProposalDeposit        *big.Int
	ProposalDepositUsd     *big.Int
	MinTotalPower          uint64
	MinParticipationBps    uint64
	MinorDiscountBps       uint64
	LockBps                uint32
	BlocksPerWeek          uint64
	MajorPercentDelta      uint8
	MajorPriceDeltaBps     uint64
	MinPercentSum          uint32
	HistoryLimit           int
	CleanupBatch           int
	RetentionBlocks        uint64
	MaxTransitionsPerBlock int
}

// DefaultParams mirrors the genesis governance configuration.
func DefaultParams() Params {
	return Params{
		DiscussionBlocks:       14_400,
		VotingBlocks:           28_800,
		ExecutionDelay:         43_200,
		MaxActivePerAccount:    3,
		MaxActiveProposals:     128,
		ProposalGap:            100_800,
		RejectionCooldown:      432_000,
		ProposalDeposit:        new(big.Int).Mul(big.NewInt(100), big.NewInt(pricing.DustPrecision)),
		ProposalDepositUsd:     big.NewInt(50 * pricing.USDPrecision),
		MinTotalPower:          100_000,
		MinParticipationBps:    1_500,
		MinorDiscountBps:       500,
		LockBps:                1_000,
		BlocksPerWeek:          100_800,
		MajorPercentDelta:      5,
		MajorPriceDeltaBps:     2_000,
		MinPercentSum:          50,
		HistoryLimit:           100,
		CleanupBatch:           5,
		RetentionBlocks:        100_800,
		MaxTransitionsPerBlock: 32,
	}
}

// threshold returns the approval required at the given participation.
func (p Params) threshold(participationBps uint64, major bool) uint64 {
	var required uint64
	switch {
	case participationBps >= 5_000:
		required = 5_000
	case participationBps >= 3_000:
		required = 5_500
	default:
		required = 6_000
	}
	if !major {
		if required > p.MinorDiscountBps {
			required -= p.MinorDiscountBps
		} else {
			required = 0
		}
	}
	return required
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
