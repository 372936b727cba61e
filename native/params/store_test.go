package params

import (
	"errors"
	"testing"

	"dustchain/core/state"
	"dustchain/native/common"
	"dustchain/storage"
)

func TestPauseToggles(t *testing.T) {
	store := NewStore(state.NewManager(storage.NewMemDB()))
	if store.IsPaused(common.ModuleSwap) {
		t.Fatalf("expected swap unpaused by default")
	}
	if err := store.SetPaused(common.ModuleSwap, true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if !store.IsPaused(common.ModuleSwap) || store.IsPaused(common.ModuleEvidence) {
		t.Fatalf("unexpected pause view")
	}
	if err := common.Guard(store, common.ModuleSwap); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected guard to trip, got %v", err)
	}
	if err := store.SetPaused("lending", true); err == nil {
		t.Fatalf("expected unknown module rejected")
	}
	if err := store.SetPaused(common.ModuleSwap, false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if store.IsPaused(common.ModuleSwap) {
		t.Fatalf("expected swap resumed")
	}
}

func TestNilStore(t *testing.T) {
	var store *Store
	if _, err := store.Pauses(); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if !store.IsPaused(common.ModuleSwap) {
		t.Fatalf("nil store should fail closed")
	}
}
