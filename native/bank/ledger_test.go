package bank

import (
	"errors"
	"math/big"
	"testing"

	"dustchain/core/events"
	"dustchain/core/state"
	"dustchain/storage"
)

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func newTestLedger(t *testing.T) (*Ledger, *captureEmitter) {
	t.Helper()
	ledger := NewLedger(state.NewManager(storage.NewMemDB()))
	emitter := &captureEmitter{}
	ledger.SetEmitter(emitter)
	return ledger, emitter
}

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func mustBalance(t *testing.T, l *Ledger, who [20]byte, want int64) {
	t.Helper()
	got, err := l.FreeBalance(who)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("balance of %x: want %d got %s", who[19], want, got)
	}
}

func TestMintTransferBurn(t *testing.T) {
	l, emitter := newTestLedger(t)
	alice, bob := addr(1), addr(2)
	if err := l.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(61)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := l.Burn(bob, big.NewInt(10)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	mustBalance(t, l, alice, 60)
	mustBalance(t, l, bob, 30)
	total, err := l.TotalIssuance()
	if err != nil {
		t.Fatalf("issuance: %v", err)
	}
	if total.Cmp(big.NewInt(90)) != 0 {
		t.Fatalf("expected issuance 90, got %s", total)
	}
	if len(emitter.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(emitter.events))
	}
	if emitter.events[1].EventType() != EventTypeTransfer {
		t.Fatalf("unexpected event type %s", emitter.events[1].EventType())
	}
}

func TestExistentialDeposit(t *testing.T) {
	l, _ := newTestLedger(t)
	l.SetExistentialDeposit(big.NewInt(5))
	alice, bob := addr(1), addr(2)
	if err := l.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(4)); !errors.Is(err, ErrBelowExistential) {
		t.Fatalf("expected existential failure, got %v", err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(5)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := l.Transfer(alice, bob, big.NewInt(1)); err != nil {
		t.Fatalf("top-up of existing account should pass: %v", err)
	}
}

func TestHoldsAreIsolatedByReason(t *testing.T) {
	l, _ := newTestLedger(t)
	alice, treasury := addr(1), addr(9)
	if err := l.Mint(alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := l.Hold(HoldDisputeInitiator, alice, big.NewInt(30)); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if err := l.Hold(HoldConvictionLock, alice, big.NewInt(10)); err != nil {
		t.Fatalf("hold: %v", err)
	}
	mustBalance(t, l, alice, 60)
	if err := l.Release(HoldComplaintDeposit, alice, big.NewInt(1)); !errors.Is(err, ErrInsufficientHeld) {
		t.Fatalf("expected insufficient held for other reason, got %v", err)
	}
	if err := l.Hold(HoldReason("bogus"), alice, big.NewInt(1)); !errors.Is(err, ErrUnknownHoldReason) {
		t.Fatalf("expected unknown reason, got %v", err)
	}
	if err := l.TransferOnHold(HoldDisputeInitiator, alice, treasury, big.NewInt(9)); err != nil {
		t.Fatalf("slash: %v", err)
	}
	if err := l.Release(HoldDisputeInitiator, alice, big.NewInt(21)); err != nil {
		t.Fatalf("release: %v", err)
	}
	mustBalance(t, l, alice, 81)
	mustBalance(t, l, treasury, 9)
	held, err := l.TotalHeld(alice)
	if err != nil {
		t.Fatalf("total held: %v", err)
	}
	if held.Cmp(big.NewInt(10)) != 0 {
		t.Fatalf("expected 10 still held, got %s", held)
	}
}

func TestNonceAndModuleAccount(t *testing.T) {
	l, _ := newTestLedger(t)
	alice := addr(1)
	if err := l.IncrementNonce(alice); err != nil {
		t.Fatalf("nonce: %v", err)
	}
	n, err := l.Nonce(alice)
	if err != nil || n != 1 {
		t.Fatalf("expected nonce 1, got %d (%v)", n, err)
	}
	if ModuleAccount("escrow") == ModuleAccount("treasury") {
		t.Fatalf("module accounts must differ")
	}
	if ModuleAccount("escrow") != ModuleAccount("escrow") {
		t.Fatalf("module accounts must be deterministic")
	}
}
