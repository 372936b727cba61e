package maker

import (
	"errors"
	"math/big"
)

var (
	ErrMakerNotFound     = errors.New("maker: not found")
	ErrMakerNotActive    = errors.New("maker: not active")
	ErrMakerExists       = errors.New("maker: account already registered")
	ErrInvalidStatus     = errors.New("maker: invalid status")
	ErrInvalidTronTarget = errors.New("maker: tron payout address required")
	ErrDepositTooLow     = errors.New("maker: deposit below minimum")
	ErrNotAuthorized     = errors.New("maker: not authorized")
)

// Status is the lifecycle state of a maker application.
type Status uint8

const (
	StatusActive Status = iota + 1
	StatusSuspended
	StatusRetired
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSuspended:
		return "suspended"
	case StatusRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// Application is a registered market maker.
type Application struct {
	ID           uint64
	Owner        [20]byte
	TronAddress  [20]byte
	Status       uint8
	Deposit      *big.Int
	RegisteredAt uint64
}

// Credit tracks the settlement record of a maker.
type Credit struct {
	Score             uint32
	Completed         uint64
	Timeouts          uint64
	DisputesWon       uint64
	DisputesLost      uint64
	TotalResponseSecs uint64
	LastSwapID        uint64
	UpdatedAt         uint64
}

// AverageResponseSecs returns the mean settlement latency of completed swaps.
func (c *Credit) AverageResponseSecs() uint64 {
	if c == nil || c.Completed == 0 {
		return 0
	}
	return c.TotalResponseSecs / c.Completed
}

// CreditParams configures score movements. Scores are bounded to [0, MaxScore].
type CreditParams struct {
	InitialScore     uint32
	MaxScore         uint32
	FastResponseSecs uint64
	FastBonus        uint32
	CompletedBonus   uint32
	TimeoutPenalty   uint32
	DisputeWinBonus  uint32
	DisputeLossCost  uint32
	SuspendBelow     uint32
	MinDeposit       *big.Int
}

// DefaultCreditParams returns the production credit policy.
func DefaultCreditParams() CreditParams {
	return CreditParams{
		InitialScore:     800,
		MaxScore:         1000,
		FastResponseSecs: 600,
		FastBonus:        2,
		CompletedBonus:   1,
		TimeoutPenalty:   10,
		DisputeWinBonus:  5,
		DisputeLossCost:  20,
		SuspendBelow:     300,
		MinDeposit:       big.NewInt(0),
	}
}
