package affiliate

import (
	"math/big"

	"dustchain/core/types"
)

const (
	// MaxLevels bounds both the referral chain walk and the percent arrays.
	MaxLevels = 15
	// MembershipTiers is the number of purchasable membership tiers.
	MembershipTiers = 4

	usdtUnit = 1_000_000
)

// Percents is a per-level reward split in whole percent.
type Percents [MaxLevels]uint8

// Sum returns the total of all levels.
func (p Percents) Sum() uint32 {
	var total uint32
	for _, v := range p {
		total += uint32(v)
	}
	return total
}

// ModeKind selects how distributed rewards reach ancestors.
type ModeKind uint8

const (
	ModeWeekly ModeKind = iota + 1
	ModeInstant
	ModeHybrid
)

func (k ModeKind) String() string {
	switch k {
	case ModeWeekly:
		return "weekly"
	case ModeInstant:
		return "instant"
	case ModeHybrid:
		return "hybrid"
	default:
		return "unknown"
	}
}

// SettlementMode is the active distribution mode. InstantLevels and
// WeeklyLevels only apply to ModeHybrid.
type SettlementMode struct {
	Kind          uint8
	InstantLevels uint8
	WeeklyLevels  uint8
}

func Weekly() SettlementMode { return SettlementMode{Kind: uint8(ModeWeekly)} }
func Instant() SettlementMode { return SettlementMode{Kind: uint8(ModeInstant)} }
func Hybrid(instantLevels, weeklyLevels uint8) SettlementMode {
	return SettlementMode{Kind: uint8(ModeHybrid), InstantLevels: instantLevels, WeeklyLevels: weeklyLevels}
}

// Validate checks the hybrid level split.
func (m SettlementMode) Validate() error {
	switch ModeKind(m.Kind) {
	case ModeWeekly, ModeInstant:
		return nil
	case ModeHybrid:
		if int(m.InstantLevels)+int(m.WeeklyLevels) > MaxLevels {
			return ErrInvalidMode
		}
		return nil
	default:
		return ErrInvalidMode
	}
}

// path reports whether level i pays instantly, accrues weekly, or neither.
func (m SettlementMode) path(level int) (instant, weekly bool) {
	switch ModeKind(m.Kind) {
	case ModeInstant:
		return true, false
	case ModeWeekly:
		return false, true
	case ModeHybrid:
		if level < int(m.InstantLevels) {
			return true, false
		}
		if level < int(m.InstantLevels)+int(m.WeeklyLevels) {
			return false, true
		}
	}
	return false, false
}

// Config is the governance-mutable affiliate configuration kept in state.
type Config struct {
	Mode             SettlementMode
	InstantPercents  Percents
	WeeklyPercents   Percents
	MembershipPrices []*big.Int
	BlocksPerWeek    uint64
}

func (c *Config) clone() *Config {
	out := *c
	out.MembershipPrices = make([]*big.Int, len(c.MembershipPrices))
	for i, p := range c.MembershipPrices {
		out.MembershipPrices[i] = cloneBig(p)
	}
	return &out
}

// Params are the static engine parameters.
type Params struct {
	Defaults                Config
	MembershipPercents      Percents
	MinDirectActive         [MaxLevels]uint32
	RequireActive           bool
	RequireMemberSponsor    bool
	MinCodeLen              int
	MaxCodeLen              int
	MaxCycleAccountsPerPage int
	MaxCyclePages           int
	HistoryRetentionWeeks   uint32
	CleanupCyclesPerCall    int
	ActiveWeeksPerPurchase  uint32
	MaxActiveWeeks          uint32
}

// DefaultParams returns the production defaults.
func DefaultParams() Params {
	return Params{
		Defaults: Config{
			Mode:            Instant(),
			InstantPercents: Percents{30, 15, 10, 5, 5, 4, 4, 3, 3, 2, 2, 2, 2, 1, 1},
			WeeklyPercents:  Percents{30, 15, 10, 5, 5, 4, 4, 3, 3, 2, 2, 2, 2, 1, 1},
			MembershipPrices: []*big.Int{
				big.NewInt(10 * usdtUnit),
				big.NewInt(25 * usdtUnit),
				big.NewInt(50 * usdtUnit),
				big.NewInt(100 * usdtUnit),
			},
			BlocksPerWeek: 100_800,
		},
		MembershipPercents:      Percents{30, 15, 10, 8, 7, 5, 5, 4, 4, 3, 3, 2, 2, 1, 1},
		RequireActive:           true,
		MinCodeLen:              3,
		MaxCodeLen:              32,
		MaxCycleAccountsPerPage: 1_000,
		MaxCyclePages:           64,
		HistoryRetentionWeeks:   12,
		CleanupCyclesPerCall:    3,
		ActiveWeeksPerPurchase:  4,
		MaxActiveWeeks:          52,
	}
}

// Member is a purchased membership.
type Member struct {
	Tier        uint8
	Since       uint64
	LastPayment *big.Int
}

// Payout is one ancestor's share of a distribution.
type Payout struct {
	Level   uint8
	Account [20]byte
	Amount  *big.Int
}

// Source optionally tags a distribution with the object that produced it.
type Source struct {
	Domain   types.DomainTag
	ObjectID uint64
}

// Distribution reports how a payment was split.
type Distribution struct {
	Cycle    uint32
	Instant  []Payout
	Accrued  []Payout
	Residual *big.Int
}

type cycleMeta struct {
	Pages   uint32
	Count   uint64
	Cursor  uint64
	Settled bool
	Total   *big.Int
	PaidOut *big.Int
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
