package affiliate

import (
	"math/big"

	"dustchain/native/common"
)

// DistributeRewards splits amount, paid by payer, along buyer's sponsor
// chain according to the live settlement mode. Instant levels are paid
// directly; weekly levels accrue entitlements for the current cycle and park
// the funds on the affiliate pot. Whatever no ancestor receives is routed by
// the residual policy.
func (e *Engine) DistributeRewards(payer, buyer [20]byte, amount *big.Int, src *Source) (*Distribution, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	return e.distribute(payer, buyer, amount, src, cfg, func(level int) (uint8, bool, bool) {
		instant, weekly := cfg.Mode.path(level)
		switch {
		case instant:
			return cfg.InstantPercents[level], true, false
		case weekly:
			return cfg.WeeklyPercents[level], false, true
		default:
			return 0, false, false
		}
	}, e.residualPolicy())
}

// DistributeMembershipRewards pays a membership fee out instantly over the
// membership split. Unclaimed levels go to the treasury.
func (e *Engine) DistributeMembershipRewards(payer, buyer [20]byte, amount *big.Int, src *Source) (*Distribution, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	split := e.params.MembershipPercents
	return e.distribute(payer, buyer, amount, src, cfg, func(level int) (uint8, bool, bool) {
		return split[level], true, false
	}, TreasuryResidual{Treasury: e.treasury})
}

type levelRule func(level int) (pct uint8, instant, weekly bool)

func (e *Engine) distribute(payer, buyer [20]byte, amount *big.Int, src *Source, cfg *Config, rule levelRule, residual ResidualPolicy) (*Distribution, error) {
	chain, err := e.Chain(buyer)
	if err != nil {
		return nil, err
	}
	cycle := cycleAt(e.blockFn(), cfg.BlocksPerWeek)
	out := &Distribution{Cycle: cycle}
	disbursed := big.NewInt(0)
	for level, anc := range chain {
		pct, instant, weekly := rule(level)
		if pct == 0 || (!instant && !weekly) {
			continue
		}
		ok, err := e.eligible(anc, level, uint64(cycle))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		share := common.MulPercent(amount, pct)
		if share.Sign() == 0 {
			continue
		}
		p := Payout{Level: uint8(level), Account: anc, Amount: share}
		if instant {
			if err := e.currency.Transfer(payer, anc, share); err != nil {
				return nil, err
			}
			out.Instant = append(out.Instant, p)
			e.emit(newRewardEvent(EventTypeInstantReward, buyer, p, src))
		} else {
			if err := e.currency.Transfer(payer, e.pot, share); err != nil {
				return nil, err
			}
			if err := e.accrue(cycle, anc, share); err != nil {
				return nil, err
			}
			out.Accrued = append(out.Accrued, p)
			e.emit(newRewardEvent(EventTypeRewardAccrued, buyer, p, src).WithUint("cycle", uint64(cycle)))
		}
		disbursed.Add(disbursed, share)
	}
	out.Residual = common.SaturatingSub(amount, disbursed)
	if out.Residual.Sign() > 0 {
		split, err := residual.Route(e.currency, payer, out.Residual)
		if err != nil {
			return nil, err
		}
		e.emit(newResidualEvent(buyer, split))
	}
	return out, nil
}
