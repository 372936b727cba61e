package common

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// BpsDenominator is the basis point scale.
const BpsDenominator = 10_000

var ErrAmountOverflow = errors.New("amount overflow")

// Clone returns a copy of v, treating nil as zero.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// MulBps returns amount*bps/10000 rounded down.
func MulBps(amount *big.Int, bps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	return out.Quo(out, big.NewInt(BpsDenominator))
}

// MulPercent returns amount*pct/100 rounded down.
func MulPercent(amount *big.Int, pct uint8) *big.Int {
	if amount == nil || amount.Sign() <= 0 || pct == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, big.NewInt(int64(pct)))
	return out.Quo(out, big.NewInt(100))
}

// SaturatingSub returns a-b floored at zero.
func SaturatingSub(a, b *big.Int) *big.Int {
	out := new(big.Int).Sub(Clone(a), Clone(b))
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}

// CheckedMulDiv computes a*b/d on 256-bit words, failing when the product
// overflows.
func CheckedMulDiv(a, b, d *big.Int) (*big.Int, error) {
	if d == nil || d.Sign() <= 0 {
		return nil, errors.New("division by zero")
	}
	x, overflow := uint256.FromBig(Clone(a))
	if overflow {
		return nil, ErrAmountOverflow
	}
	y, overflow := uint256.FromBig(Clone(b))
	if overflow {
		return nil, ErrAmountOverflow
	}
	z, overflow := uint256.FromBig(d)
	if overflow {
		return nil, ErrAmountOverflow
	}
	prod, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return new(uint256.Int).Div(prod, z).ToBig(), nil
}

// ISqrt returns floor(sqrt(v)); negatives map to zero.
func ISqrt(v *big.Int) *big.Int {
	if v == nil || v.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sqrt(v)
}
