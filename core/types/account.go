package types

import "math/big"

// Account is the persisted balance record for a DUST principal. Held funds are
// tracked separately per hold reason by the bank module.
type Account struct {
	Nonce uint64
	Free  *big.Int
}

// EnsureAccount initialises nil balance fields.
func EnsureAccount(acc *Account) *Account {
	if acc == nil {
		return &Account{Free: big.NewInt(0)}
	}
	if acc.Free == nil {
		acc.Free = big.NewInt(0)
	}
	return acc
}

// DomainTag is the 8-byte business domain selector used for dispute routing.
type DomainTag [8]byte

// NewDomainTag pads or truncates name to eight bytes using '_' as filler.
func NewDomainTag(name string) DomainTag {
	var tag DomainTag
	for i := range tag {
		tag[i] = '_'
	}
	copy(tag[:], name)
	return tag
}

func (d DomainTag) String() string { return string(d[:]) }
