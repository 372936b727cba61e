package common

import (
	"errors"
	"math/big"
	"testing"
)

func TestMulBpsRoundsDown(t *testing.T) {
	got := MulBps(big.NewInt(999), 6000)
	if got.Cmp(big.NewInt(599)) != 0 {
		t.Fatalf("expected 599, got %s", got)
	}
	if MulBps(nil, 100).Sign() != 0 {
		t.Fatalf("expected zero for nil amount")
	}
}

func TestCheckedMulDivOverflow(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	if _, err := CheckedMulDiv(max, big.NewInt(2), big.NewInt(1)); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	got, err := CheckedMulDiv(big.NewInt(10_000_000_000_000), big.NewInt(1_000_000), big.NewInt(1_000_000_000_000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cmp(big.NewInt(10_000_000)) != 0 {
		t.Fatalf("expected 10 USDT, got %s", got)
	}
}

func TestSaturatingSubAndSqrt(t *testing.T) {
	if SaturatingSub(big.NewInt(1), big.NewInt(5)).Sign() != 0 {
		t.Fatalf("expected saturation at zero")
	}
	if ISqrt(big.NewInt(99)).Cmp(big.NewInt(9)) != 0 {
		t.Fatalf("unexpected sqrt")
	}
}

func TestRootOrCommitteeThreshold(t *testing.T) {
	check := RootOrCommittee{Num: 2, Den: 3}
	if err := check.EnsureOrigin(Root()); err != nil {
		t.Fatalf("root should pass: %v", err)
	}
	if err := check.EnsureOrigin(Committee(2, 3)); err != nil {
		t.Fatalf("2/3 should pass: %v", err)
	}
	if err := check.EnsureOrigin(Committee(1, 3)); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("1/3 should fail, got %v", err)
	}
	if err := check.EnsureOrigin(Signed([20]byte{1})); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("signed should fail, got %v", err)
	}
	if err := check.EnsureOrigin(Committee(4, 3)); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("approvals above members should fail")
	}
}

func TestOracleSet(t *testing.T) {
	member := [20]byte{7}
	set := NewOracleSet(true, member)
	if err := set.EnsureOrigin(Unsigned()); err != nil {
		t.Fatalf("unsigned allowed: %v", err)
	}
	if err := set.EnsureOrigin(Signed(member)); err != nil {
		t.Fatalf("member allowed: %v", err)
	}
	if err := set.EnsureOrigin(Signed([20]byte{8})); !errors.Is(err, ErrBadOrigin) {
		t.Fatalf("non member rejected, got %v", err)
	}
}
