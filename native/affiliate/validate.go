package affiliate

import "math/big"

const (
	maxPercentSum   = 99
	maxFirstLevel   = 50
	monotonicLevels = 5

	// MaxPriceGapMultiple bounds the ratio between adjacent membership tiers.
	MaxPriceGapMultiple = 5
)

var (
	minMembershipPrice = big.NewInt(10 * usdtUnit)
	maxMembershipPrice = big.NewInt(1_000 * usdtUnit)
)

// ValidatePercents enforces the invariants shared by the instant and weekly
// splits: each level at most 100, the first two levels positive, a total of
// at most 99, the first five levels non-increasing and level one at most 50.
func ValidatePercents(p Percents) error {
	for _, v := range p {
		if v > 100 {
			return ErrInvalidPercents
		}
	}
	if p[0] == 0 || p[1] == 0 || p[0] > maxFirstLevel {
		return ErrInvalidPercents
	}
	if p.Sum() > maxPercentSum {
		return ErrInvalidPercents
	}
	for i := 1; i < monotonicLevels; i++ {
		if p[i] > p[i-1] {
			return ErrInvalidPercents
		}
	}
	return nil
}

// ValidateMembershipPrices checks four strictly ascending USDT prices within
// [10, 1000] USDT whose adjacent ratio stays under MaxPriceGapMultiple.
func ValidateMembershipPrices(prices []*big.Int) error {
	if len(prices) != MembershipTiers {
		return ErrInvalidPrices
	}
	for i, p := range prices {
		if p == nil || p.Cmp(minMembershipPrice) < 0 || p.Cmp(maxMembershipPrice) > 0 {
			return ErrInvalidPrices
		}
		if i == 0 {
			continue
		}
		prev := prices[i-1]
		if p.Cmp(prev) <= 0 {
			return ErrInvalidPrices
		}
		if p.Cmp(new(big.Int).Mul(prev, big.NewInt(MaxPriceGapMultiple))) > 0 {
			return ErrInvalidPrices
		}
	}
	return nil
}
