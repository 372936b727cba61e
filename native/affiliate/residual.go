package affiliate

import (
	"math/big"

	"dustchain/native/common"
)

// ResidualSplit reports where an undistributed remainder went.
type ResidualSplit struct {
	Burned   *big.Int
	Treasury *big.Int
	Storage  *big.Int
}

// ResidualPolicy routes the part of a payment that no ancestor received.
type ResidualPolicy interface {
	Route(cur Currency, from [20]byte, amount *big.Int) (ResidualSplit, error)
}

// SplitResidual burns BurnBps, sends TreasuryBps to Treasury and the rest to
// Storage.
type SplitResidual struct {
	BurnBps     uint32
	TreasuryBps uint32
	Treasury    [20]byte
	Storage     [20]byte
}

func (p SplitResidual) Route(cur Currency, from [20]byte, amount *big.Int) (ResidualSplit, error) {
	var out ResidualSplit
	if amount == nil || amount.Sign() <= 0 {
		return out, nil
	}
	if p.BurnBps+p.TreasuryBps > common.BpsDenominator {
		return out, ErrInvalidAmount
	}
	out.Burned = common.MulBps(amount, p.BurnBps)
	out.Treasury = common.MulBps(amount, p.TreasuryBps)
	out.Storage = new(big.Int).Sub(amount, out.Burned)
	out.Storage.Sub(out.Storage, out.Treasury)
	if err := cur.Burn(from, out.Burned); err != nil {
		return out, err
	}
	if err := cur.Transfer(from, p.Treasury, out.Treasury); err != nil {
		return out, err
	}
	if err := cur.Transfer(from, p.Storage, out.Storage); err != nil {
		return out, err
	}
	return out, nil
}

// TreasuryResidual sends the whole remainder to one account.
type TreasuryResidual struct {
	Treasury [20]byte
}

func (p TreasuryResidual) Route(cur Currency, from [20]byte, amount *big.Int) (ResidualSplit, error) {
	if amount == nil || amount.Sign() <= 0 {
		return ResidualSplit{}, nil
	}
	if err := cur.Transfer(from, p.Treasury, amount); err != nil {
		return ResidualSplit{}, err
	}
	return ResidualSplit{Treasury: new(big.Int).Set(amount)}, nil
}
