package state

import (
	"math/big"
	"testing"

	"dustchain/storage"
)

type kvRecord struct {
	ID     uint64
	Label  string
	Amount *big.Int
}

func TestKVPutGetDelete(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	key := []byte("test/record/1")
	if err := mgr.KVPut(key, kvRecord{ID: 1, Label: "one", Amount: big.NewInt(42)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var out kvRecord
	ok, err := mgr.KVGet(key, &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if out.ID != 1 || out.Label != "one" || out.Amount.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("unexpected record: %+v", out)
	}
	if err := mgr.KVDelete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = mgr.KVGet(key, &out)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatalf("expected key to be removed")
	}
	if _, err := mgr.KVGet(nil, &out); err == nil {
		t.Fatalf("expected empty key error")
	}
}

func TestKVAppendIsIdempotentAndRemovable(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	key := []byte("test/list")
	for _, v := range [][]byte{{1}, {2}, {1}, {3}} {
		if err := mgr.KVAppend(key, v); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	var list [][]byte
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(list))
	}
	removed, err := mgr.KVRemove(key, []byte{2})
	if err != nil || !removed {
		t.Fatalf("remove: removed=%v err=%v", removed, err)
	}
	removed, err = mgr.KVRemove(key, []byte{9})
	if err != nil || removed {
		t.Fatalf("remove missing: removed=%v err=%v", removed, err)
	}
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 || list[0][0] != 1 || list[1][0] != 3 {
		t.Fatalf("unexpected list: %v", list)
	}

	var empty [][]byte
	if err := mgr.KVGetList([]byte("test/none"), &empty); err != nil {
		t.Fatalf("get empty list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected initialised empty slice")
	}
}

func TestSnapshotRevert(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.KVPut([]byte("a"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	snap := mgr.Snapshot()
	if err := mgr.KVPut([]byte("a"), uint64(2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.KVPut([]byte("b"), uint64(3)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.KVDelete([]byte("a")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mgr.RevertToSnapshot(snap); err != nil {
		t.Fatalf("revert: %v", err)
	}
	var v uint64
	ok, err := mgr.KVGet([]byte("a"), &v)
	if err != nil || !ok || v != 1 {
		t.Fatalf("expected a=1 after revert, got ok=%v v=%d err=%v", ok, v, err)
	}
	ok, err = mgr.KVGet([]byte("b"), &v)
	if err != nil || ok {
		t.Fatalf("expected b to be reverted, ok=%v err=%v", ok, err)
	}
	if err := mgr.RevertToSnapshot(snap + 10); err != ErrInvalidSnapshot {
		t.Fatalf("expected invalid snapshot, got %v", err)
	}
}

func TestCommitPersistsToDatabase(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	if err := mgr.KVPut([]byte("persist"), "value"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.KVPut([]byte("gone"), "value"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mgr.Pending() != 0 {
		t.Fatalf("expected empty dirty set after commit")
	}
	if err := mgr.KVDelete([]byte("gone")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	reopened := NewManager(db)
	var out string
	ok, err := reopened.KVGet([]byte("persist"), &out)
	if err != nil || !ok || out != "value" {
		t.Fatalf("expected persisted value, ok=%v out=%q err=%v", ok, out, err)
	}
	ok, err = reopened.KVGet([]byte("gone"), &out)
	if err != nil || ok {
		t.Fatalf("expected deleted key to stay deleted")
	}
	if len(db.Keys()) != 1 {
		t.Fatalf("expected one key in db, got %d", len(db.Keys()))
	}
}

func TestDiscardDropsPendingWrites(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.KVPut([]byte("x"), uint64(7)); err != nil {
		t.Fatalf("put: %v", err)
	}
	mgr.Discard()
	ok, err := mgr.KVGet([]byte("x"), nil)
	if err != nil || ok {
		t.Fatalf("expected discarded write")
	}
}
