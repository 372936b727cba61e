package affiliate

import (
	"math/big"

	"dustchain/core/pricing"
	"dustchain/core/types"
)

// Membership returns who's membership record.
func (e *Engine) Membership(who [20]byte) (*Member, bool, error) {
	if e == nil || e.store == nil {
		return nil, false, errNilState
	}
	var m Member
	ok, err := e.store.KVGet(memberKey(who), &m)
	if err != nil || !ok {
		return nil, ok, err
	}
	m.LastPayment = cloneBig(m.LastPayment)
	return &m, true, nil
}

// IsMember reports whether who purchased any membership tier.
func (e *Engine) IsMember(who [20]byte) (bool, error) {
	_, ok, err := e.Membership(who)
	return ok, err
}

// MembershipQuote converts the USDT price of tier into DUST at the current
// rate.
func (e *Engine) MembershipQuote(tier uint8) (*big.Int, error) {
	if int(tier) >= MembershipTiers {
		return nil, ErrInvalidTier
	}
	cfg, err := e.Config()
	if err != nil {
		return nil, err
	}
	if int(tier) >= len(cfg.MembershipPrices) {
		return nil, ErrInvalidTier
	}
	if e.prices == nil {
		return nil, ErrPriceNotAvailable
	}
	rate, ok := e.prices.DustToUSDRate()
	if !ok || rate == nil || rate.Sign() <= 0 {
		return nil, ErrPriceNotAvailable
	}
	return pricing.USDToDust(cfg.MembershipPrices[tier], rate)
}

// PurchaseMembership buys or upgrades who's membership. The fee is paid out
// along who's sponsor chain and who is marked active for
// ActiveWeeksPerPurchase weeks. It returns the DUST paid.
func (e *Engine) PurchaseMembership(who [20]byte, tier uint8) (*big.Int, error) {
	if err := e.guard(); err != nil {
		return nil, err
	}
	current, held, err := e.Membership(who)
	if err != nil {
		return nil, err
	}
	if held && current.Tier >= tier {
		return nil, ErrAlreadyMember
	}
	fee, err := e.MembershipQuote(tier)
	if err != nil {
		return nil, err
	}
	if fee.Sign() <= 0 {
		return nil, ErrPriceNotAvailable
	}
	if _, err := e.DistributeMembershipRewards(who, who, fee, nil); err != nil {
		return nil, err
	}
	m := &Member{Tier: tier, Since: e.blockFn(), LastPayment: new(big.Int).Set(fee)}
	if held {
		m.Since = current.Since
	}
	if err := e.store.KVPut(memberKey(who), m); err != nil {
		return nil, err
	}
	if err := e.MarkActive(who, e.params.ActiveWeeksPerPurchase); err != nil {
		return nil, err
	}
	e.emit(types.NewEvent(EventTypeMembershipPurchased).
		WithHex("account", who[:]).
		WithUint("tier", uint64(tier)).
		WithAmount("fee", fee))
	return fee, nil
}
