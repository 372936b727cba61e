package arbitration

import (
	"math/big"

	"dustchain/core/types"
)

// DecisionKind enumerates dispute outcomes.
type DecisionKind uint8

const (
	// DecisionRelease favours the respondent (seller, maker).
	DecisionRelease DecisionKind = iota + 1
	// DecisionRefund favours the initiator (buyer, user).
	DecisionRefund
	// DecisionPartial splits the escrow by Bps in favour of the respondent.
	DecisionPartial
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionRelease:
		return "release"
	case DecisionRefund:
		return "refund"
	case DecisionPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Decision is a committee ruling applied to a disputed object.
type Decision struct {
	Kind DecisionKind
	Bps  uint32
}

func Release() Decision { return Decision{Kind: DecisionRelease} }
func Refund() Decision { return Decision{Kind: DecisionRefund} }
func Partial(bps uint32) Decision { return Decision{Kind: DecisionPartial, Bps: bps} }

// Validate checks the decision shape.
func (d Decision) Validate() error {
	switch d.Kind {
	case DecisionRelease, DecisionRefund:
		return nil
	case DecisionPartial:
		if d.Bps > 10_000 {
			return ErrInvalidDecision
		}
		return nil
	default:
		return ErrInvalidDecision
	}
}

// DomainHandler is implemented by every business module whose objects can be
// disputed.
type DomainHandler interface {
	CanDispute(who [20]byte, id uint64) (bool, error)
	ApplyDecision(id uint64, decision Decision) error
	Counterparty(initiator [20]byte, id uint64) ([20]byte, error)
	OrderAmount(id uint64) (*big.Int, error)
	MakerID(id uint64) (uint64, bool, error)
}

// Dispute is the active dispute on (domain, id) including its two-way deposit
// record.
type Dispute struct {
	Domain            types.DomainTag
	ObjectID          uint64
	Initiator         [20]byte
	Respondent        [20]byte
	TwoWay            bool
	InitiatorDeposit  *big.Int
	RespondentDeposit *big.Int
	HasResponded      bool
	ResponseDeadline  uint64
	CreatedAt         uint64
	EvidenceIDs       []uint64
	LockedHashes      [][32]byte
	HasComplaint      bool
	ComplaintID       uint64
}

// Verdict records a resolved dispute.
type Verdict struct {
	Domain    types.DomainTag
	ObjectID  uint64
	Kind      uint8
	Bps       uint32
	Initiator [20]byte
	DecidedAt uint64
}

// ComplaintStatus tracks the lightweight complaint lifecycle.
type ComplaintStatus uint8

const (
	ComplaintSubmitted ComplaintStatus = iota + 1
	ComplaintResponded
	ComplaintWithdrawn
	ComplaintSettled
	ComplaintExpired
	ComplaintEscalated
	ComplaintUpheld
	ComplaintDismissed
)

func (s ComplaintStatus) String() string {
	switch s {
	case ComplaintSubmitted:
		return "submitted"
	case ComplaintResponded:
		return "responded"
	case ComplaintWithdrawn:
		return "withdrawn"
	case ComplaintSettled:
		return "settled"
	case ComplaintExpired:
		return "expired"
	case ComplaintEscalated:
		return "escalated"
	case ComplaintUpheld:
		return "upheld"
	case ComplaintDismissed:
		return "dismissed"
	default:
		return "unknown"
	}
}

// ComplaintType classifies complaints. Values above ComplaintTypeOther are
// rejected.
type ComplaintType uint8

const (
	ComplaintTypeNonDelivery ComplaintType = iota + 1
	ComplaintTypeWrongAmount
	ComplaintTypeFraud
	ComplaintTypeConduct
	ComplaintTypeOther
)

// Complaint is a pre-arbitration grievance with a priced deposit.
type Complaint struct {
	ID               uint64
	Domain           types.DomainTag
	ObjectID         uint64
	Type             uint8
	Complainant      [20]byte
	Respondent       [20]byte
	DetailsCID       []byte
	HasAmount        bool
	Amount           *big.Int
	Deposit          *big.Int
	Status           uint8
	CreatedAt        uint64
	ResponseDeadline uint64
	RespondedAt      uint64
	ResponseCID      []byte
	UpdatedAt        uint64
}

// Params configures deposits, deadlines and slashing.
type Params struct {
	DepositRatioBps       uint32
	ResponseDeadline      uint64
	RejectedSlashBps      uint32
	PartialSlashBps       uint32
	ComplaintSlashBps     uint32
	AppealWindowBlocks    uint64
	ComplaintDepositUsd   *big.Int
	ComplaintMinDeposit   *big.Int
	MaxEvidencePerDispute int
	CIDLockTTL            uint64
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		DepositRatioBps:       1_500,
		ResponseDeadline:      100_800,
		RejectedSlashBps:      3_000,
		PartialSlashBps:       5_000,
		ComplaintSlashBps:     5_000,
		AppealWindowBlocks:    100_800,
		ComplaintDepositUsd:   big.NewInt(1_000_000),
		ComplaintMinDeposit:   big.NewInt(1_000_000_000_000),
		MaxEvidencePerDispute: 32,
	}
}
