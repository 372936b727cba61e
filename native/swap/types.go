package swap

import (
	"math/big"

	"dustchain/core/types"
)

// DomainTag routes swap disputes through the arbitration registry.
var DomainTag = types.NewDomainTag("swap")

// Status is the lifecycle state of a swap.
type Status uint8

const (
	StatusPending Status = iota + 1
	StatusAwaitingVerification
	StatusCompleted
	StatusVerificationFailed
	StatusUserReported
	StatusArbitrating
	StatusArbitrationApproved
	StatusArbitrationRejected
	StatusRefunded
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAwaitingVerification:
		return "awaiting_verification"
	case StatusCompleted:
		return "completed"
	case StatusVerificationFailed:
		return "verification_failed"
	case StatusUserReported:
		return "user_reported"
	case StatusArbitrating:
		return "arbitrating"
	case StatusArbitrationApproved:
		return "arbitration_approved"
	case StatusArbitrationRejected:
		return "arbitration_rejected"
	case StatusRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRefunded, StatusArbitrationApproved, StatusArbitrationRejected:
		return true
	default:
		return false
	}
}

// Escrowed reports whether the swap's DUST is still held by the vault.
func (s Status) Escrowed() bool {
	switch s {
	case StatusPending, StatusAwaitingVerification, StatusVerificationFailed,
		StatusUserReported, StatusArbitrating:
		return true
	default:
		return false
	}
}

// Swap is the live record of a maker swap.
type Swap struct {
	ID                   uint64
	MakerID              uint64
	Maker                [20]byte
	User                 [20]byte
	DustAmount           *big.Int
	UsdtAmount           *big.Int
	TronAddress          [20]byte
	PriceSnapshot        *big.Int
	CreatedAt            uint64
	CreatedTs            uint64
	TimeoutAt            uint64
	HasTxHash            bool
	TxHash               []byte
	VerificationDeadline uint64
	Status               uint8
	FailureReason        []byte
	ClosedAt             uint64
	ClosedTs             uint64
	UpdatedAt            uint64
}

// Clone returns a deep copy of the swap.
func (s *Swap) Clone() *Swap {
	if s == nil {
		return nil
	}
	out := *s
	out.DustAmount = cloneBig(s.DustAmount)
	out.UsdtAmount = cloneBig(s.UsdtAmount)
	out.PriceSnapshot = cloneBig(s.PriceSnapshot)
	out.TxHash = append([]byte(nil), s.TxHash...)
	out.FailureReason = append([]byte(nil), s.FailureReason...)
	return &out
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// VerificationRequest is what the off-chain verifier checks against the TRON
// network.
type VerificationRequest struct {
	SwapID         uint64
	TronAddress    [20]byte
	ExpectedAmount *big.Int
	TxHash         []byte
	Deadline       uint64
	CreatedAt      uint64
}

// UsedTxHash records which swap consumed a TRC20 transaction hash.
type UsedTxHash struct {
	SwapID     uint64
	RecordedAt uint64
}

// ArchiveL1 is the first-level summary kept once a closed swap ages out.
type ArchiveL1 struct {
	ID         uint64   `cbor:"1,keyasint"`
	MakerID    uint64   `cbor:"2,keyasint"`
	User       [20]byte `cbor:"3,keyasint"`
	DustAmount *big.Int `cbor:"4,keyasint"`
	UsdtAmount *big.Int `cbor:"5,keyasint"`
	Status     uint8    `cbor:"6,keyasint"`
	CreatedAt  uint64   `cbor:"7,keyasint"`
	ClosedAt   uint64   `cbor:"8,keyasint"`
	ClosedTs   uint64   `cbor:"9,keyasint"`
	TxDigest   [16]byte `cbor:"10,keyasint"`
}

// ArchiveL2 is the minimal permanent trace of a swap.
type ArchiveL2 struct {
	ID        uint64 `cbor:"1,keyasint"`
	Status    uint8  `cbor:"2,keyasint"`
	YearMonth uint32 `cbor:"3,keyasint"`
	DustWhole uint64 `cbor:"4,keyasint"`
}

// Aggregate holds lifetime counters that survive archival.
type Aggregate struct {
	TotalSwaps          uint64
	Completed           uint64
	Refunded            uint64
	ArbitrationApproved uint64
	ArbitrationRejected uint64
	TotalVolume         *big.Int
	TotalUsdt           *big.Int
	ArchivedL1          uint64
	ArchivedL2          uint64
}

// Params configures amounts, deadlines and sweep bounds.
type Params struct {
	MinSwapAmount             *big.Int
	MinUsdtAmount             *big.Int
	OcwSwapTimeoutBlocks      uint64
	VerificationTimeoutBlocks uint64
	SweepInterval             uint64
	MaxPendingSweep           int
	MaxVerificationSweep      int
	TxHashTTL                 uint64
	ArchiveL1After            uint64
	ArchiveL2After            uint64
	MaxTxHashLen              int
	MaxReasonLen              int
	BlockTimeSeconds          uint64
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		MinSwapAmount:             big.NewInt(1_000_000_000_000),
		MinUsdtAmount:             big.NewInt(1_000_000),
		OcwSwapTimeoutBlocks:      600,
		VerificationTimeoutBlocks: 1_200,
		SweepInterval:             50,
		MaxPendingSweep:           10,
		MaxVerificationSweep:      5,
		TxHashTTL:                 432_000,
		ArchiveL1After:            432_000,
		ArchiveL2After:            1_296_000,
		MaxTxHashLen:              128,
		MaxReasonLen:              256,
		BlockTimeSeconds:          6,
	}
}
