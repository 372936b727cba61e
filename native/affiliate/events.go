package affiliate

import (
	"math/big"

	"dustchain/core/types"
)

const (
	EventTypeCodeClaimed          = "affiliate.code_claimed"
	EventTypeSponsorBound         = "affiliate.sponsor_bound"
	EventTypeInstantReward        = "affiliate.instant_reward"
	EventTypeRewardAccrued        = "affiliate.reward_accrued"
	EventTypeResidual             = "affiliate.residual"
	EventTypeCycleSettled         = "affiliate.cycle_settled"
	EventTypeCyclePruned          = "affiliate.cycle_pruned"
	EventTypeModeChanged          = "affiliate.mode_changed"
	EventTypePercentsUpdated      = "affiliate.percents_updated"
	EventTypeBlocksPerWeekUpdated = "affiliate.blocks_per_week_updated"
	EventTypePricesUpdated        = "affiliate.membership_prices_updated"
	EventTypeMembershipPurchased  = "affiliate.membership_purchased"
	EventTypeMarkedActive         = "affiliate.marked_active"
)

type affiliateEvent struct {
	evt *types.Event
}

func (e affiliateEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e affiliateEvent) Event() *types.Event { return e.evt }

func newRewardEvent(kind string, buyer [20]byte, p Payout, src *Source) *types.Event {
	evt := types.NewEvent(kind).
		WithHex("buyer", buyer[:]).
		WithHex("account", p.Account[:]).
		WithUint("level", uint64(p.Level)).
		WithAmount("amount", p.Amount)
	if src != nil {
		evt = evt.With("domain", src.Domain.String()).WithUint("objectId", src.ObjectID)
	}
	return evt
}

func newPercentsEvent(kind string, p Percents) *types.Event {
	evt := types.NewEvent(EventTypePercentsUpdated).With("split", kind)
	return evt.WithHex("percents", p[:]).WithUint("sum", uint64(p.Sum()))
}

func newResidualEvent(buyer [20]byte, split ResidualSplit) *types.Event {
	return types.NewEvent(EventTypeResidual).
		WithHex("buyer", buyer[:]).
		WithAmount("burned", orZero(split.Burned)).
		WithAmount("treasury", orZero(split.Treasury)).
		WithAmount("storage", orZero(split.Storage))
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
