package maker

import (
	"errors"
	"math/big"
	"testing"

	"dustchain/core/state"
	"dustchain/native/bank"
	"dustchain/native/common"
	"dustchain/storage"
)

func newTestEngine(t *testing.T) (*Engine, *bank.Ledger) {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	ledger := bank.NewLedger(mgr)
	return NewEngine(mgr, ledger), ledger
}

func TestRegisterAndValidate(t *testing.T) {
	engine, ledger := newTestEngine(t)
	owner := [20]byte{0x11}
	if err := ledger.Mint(owner, big.NewInt(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := engine.Register(owner, [20]byte{}, nil); !errors.Is(err, ErrInvalidTronTarget) {
		t.Fatalf("expected missing tron address, got %v", err)
	}
	id, err := engine.Register(owner, [20]byte{0x41}, big.NewInt(400))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first maker id 1, got %d", id)
	}
	held, _ := ledger.HeldBalance(bank.HoldProfileDeposit, owner)
	if held.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("expected profile deposit held, got %s", held)
	}
	if _, err := engine.Register(owner, [20]byte{0x41}, nil); !errors.Is(err, ErrMakerExists) {
		t.Fatalf("expected duplicate registration, got %v", err)
	}
	if _, err := engine.ValidateMaker(id); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, err := engine.ValidateMaker(99); !errors.Is(err, ErrMakerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	got, ok, err := engine.AccountToMakerID(owner)
	if err != nil || !ok || got != id {
		t.Fatalf("account lookup: id=%d ok=%v err=%v", got, ok, err)
	}
	if err := engine.SetStatus(common.Signed(owner), id, StatusSuspended); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected admin gate, got %v", err)
	}
	if err := engine.SetStatus(common.Root(), id, StatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := engine.ValidateMaker(id); !errors.Is(err, ErrMakerNotActive) {
		t.Fatalf("expected not active, got %v", err)
	}
	if err := engine.Retire(owner); err != nil {
		t.Fatalf("retire: %v", err)
	}
	free, _ := ledger.FreeBalance(owner)
	if free.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("expected deposit returned on retire, got %s", free)
	}
}

func TestCreditMovements(t *testing.T) {
	engine, _ := newTestEngine(t)
	params := DefaultCreditParams()
	params.InitialScore = 320
	engine.SetParams(params)
	id, err := engine.Register([20]byte{0x22}, [20]byte{0x41}, nil)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := engine.RecordMakerOrderCompleted(id, 1, 120); err != nil {
		t.Fatalf("completed: %v", err)
	}
	if err := engine.RecordMakerOrderCompleted(id, 2, 1_200); err != nil {
		t.Fatalf("completed: %v", err)
	}
	credit, _ := engine.Credit(id)
	if credit.Score != 323 || credit.Completed != 2 || credit.AverageResponseSecs() != 660 {
		t.Fatalf("unexpected credit: %+v", credit)
	}
	if err := engine.RecordMakerDisputeResult(id, 3, true); err != nil {
		t.Fatalf("dispute win: %v", err)
	}
	if err := engine.RecordMakerOrderTimeout(id, 4); err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if err := engine.RecordMakerDisputeResult(id, 5, false); err != nil {
		t.Fatalf("dispute loss: %v", err)
	}
	credit, _ = engine.Credit(id)
	if credit.Score != 298 || credit.Timeouts != 1 || credit.DisputesWon != 1 || credit.DisputesLost != 1 {
		t.Fatalf("unexpected credit: %+v", credit)
	}
	if _, err := engine.ValidateMaker(id); !errors.Is(err, ErrMakerNotActive) {
		t.Fatalf("expected low score to suspend maker, got %v", err)
	}
}
