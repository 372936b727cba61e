package evidence

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/btcsuite/btcutil/base58"

	"dustchain/core/events"
	"dustchain/core/state"
	"dustchain/core/types"
	"dustchain/native/common"
	"dustchain/storage"
)

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.events = append(c.events, evt)
}

func (c *captureEmitter) count(kind string) int {
	n := 0
	for _, evt := range c.events {
		if evt.EventType() == kind {
			n++
		}
	}
	return n
}

func testCID(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return base58.Encode(append([]byte{0x12, 0x20}, sum[:]...))
}

type fixture struct {
	engine  *Engine
	emitter *captureEmitter
	height  uint64
	pins    *PinQueue
}

func newFixture(t *testing.T, mutate func(*Params)) *fixture {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	f := &fixture{engine: NewEngine(mgr), emitter: &captureEmitter{}, height: 100}
	params := DefaultParams()
	if mutate != nil {
		mutate(&params)
	}
	f.engine.SetParams(params)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetBlockFunc(func() uint64 { return f.height })
	f.engine.SetNowFunc(func() int64 { return 1_700_000_000 })
	f.pins = NewPinQueue(mgr, func() uint64 { return f.height })
	f.engine.SetPinner(f.pins)
	return f
}

var (
	owner  = [20]byte{0x01}
	other  = [20]byte{0x02}
	domain = types.NewDomainTag("swap")
)

func TestValidateCID(t *testing.T) {
	if err := ValidateCID(testCID("a"), 128); err != nil {
		t.Fatalf("expected v0 cid to validate: %v", err)
	}
	if err := ValidateCID("bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", 128); err != nil {
		t.Fatalf("expected v1 cid to validate: %v", err)
	}
	for _, bad := range []string{"", "not-a-cid", " " + testCID("a"), testCID("a")} {
		maxLen := 128
		if bad == testCID("a") {
			maxLen = 10
		}
		if err := ValidateCID(bad, maxLen); !errors.Is(err, ErrInvalidCidFormat) {
			t.Fatalf("expected invalid cid for %q, got %v", bad, err)
		}
	}
}

func TestCommitQuotaAndDedup(t *testing.T) {
	f := newFixture(t, func(p *Params) {
		p.MaxPerSubjectTarget = 2
		p.EditWindowBlocks = 0
	})
	req := CommitRequest{Owner: owner, Domain: domain, TargetID: 9, ContentCID: testCID("one"), ContentType: ContentTypeImage}
	id, err := f.engine.Commit(req)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	rec, ok, err := f.engine.Record(id)
	if err != nil || !ok {
		t.Fatalf("record: ok=%v err=%v", ok, err)
	}
	if Status(rec.Status) != StatusCommitted || rec.CreatedAt != 100 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, err := f.engine.Commit(req); !errors.Is(err, ErrDuplicateCid) {
		t.Fatalf("expected duplicate cid, got %v", err)
	}
	req.ContentCID = testCID("two")
	if _, err := f.engine.Commit(req); err != nil {
		t.Fatalf("second commit: %v", err)
	}
	req.ContentCID = testCID("three")
	if _, err := f.engine.Commit(req); !errors.Is(err, ErrTooManyForSubject) {
		t.Fatalf("expected subject cap, got %v", err)
	}
	ids, err := f.engine.ByTarget(domain, 9)
	if err != nil || len(ids) != 2 {
		t.Fatalf("expected two ids for target, got %v err=%v", ids, err)
	}
	if f.emitter.count(EventTypeCommitted) != 2 || f.emitter.count(EventTypePinRequested) != 2 {
		t.Fatalf("unexpected events: %d committed, %d pins", f.emitter.count(EventTypeCommitted), f.emitter.count(EventTypePinRequested))
	}
	pending, err := f.pins.Pending(0)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected two pin requests, got %d err=%v", len(pending), err)
	}
	if err := f.pins.Ack(pending[0].Seq); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if err := f.pins.Ack(pending[0].Seq); !errors.Is(err, ErrPinRequestNotFound) {
		t.Fatalf("expected missing request, got %v", err)
	}
}

func TestCommitWindowRateLimit(t *testing.T) {
	f := newFixture(t, func(p *Params) {
		p.Window = common.WindowQuota{Blocks: 10, Max: 2}
	})
	for i := 0; i < 2; i++ {
		req := CommitRequest{Owner: owner, Domain: domain, TargetID: uint64(i), ContentCID: testCID(string(rune('a' + i)))}
		if _, err := f.engine.Commit(req); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
	}
	req := CommitRequest{Owner: owner, Domain: domain, TargetID: 5, ContentCID: testCID("z")}
	if _, err := f.engine.Commit(req); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
	f.height += 10
	if _, err := f.engine.Commit(req); err != nil {
		t.Fatalf("commit after window roll: %v", err)
	}
}

func TestCommitHashUnique(t *testing.T) {
	f := newFixture(t, nil)
	ns := types.NewDomainTag("chart")
	hash := ComputeCommitHash(ns, 7, []byte(testCID("secret")), []byte("salt"), 1)
	if hash != ComputeCommitHash(ns, 7, []byte(testCID("secret")), []byte("salt"), 1) {
		t.Fatalf("commit hash must be deterministic")
	}
	if hash == ComputeCommitHash(ns, 7, []byte(testCID("secret")), []byte("salt"), 2) {
		t.Fatalf("version must affect commit hash")
	}
	id, err := f.engine.CommitHash(owner, ns, 7, hash, []byte("memo"))
	if err != nil {
		t.Fatalf("commit hash: %v", err)
	}
	if _, err := f.engine.CommitHash(other, ns, 8, hash, nil); !errors.Is(err, ErrCommitAlreadyExists) {
		t.Fatalf("expected duplicate commit hash, got %v", err)
	}
	ids, err := f.engine.ByNamespace(ns, 7)
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("unexpected namespace index: %v err=%v", ids, err)
	}
	for _, evt := range f.emitter.events {
		payload, ok := events.Unwrap(evt)
		if !ok {
			continue
		}
		if _, leaked := payload.Attributes["cid"]; leaked {
			t.Fatalf("commit event leaked cid")
		}
	}
}

func TestLinkRequiresOwnerOrRoot(t *testing.T) {
	f := newFixture(t, nil)
	id, err := f.engine.Commit(CommitRequest{Owner: owner, Domain: domain, TargetID: 1, ContentCID: testCID("l")})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	otc := types.NewDomainTag("otc_ord")
	if err := f.engine.Link(common.Signed(other), otc, 3, id); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if err := f.engine.Link(common.Signed(owner), otc, 3, id); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := f.engine.Link(common.Root(), otc, 3, id); !errors.Is(err, ErrAlreadyLinked) {
		t.Fatalf("expected already linked, got %v", err)
	}
	if err := f.engine.Unlink(common.Root(), otc, 3, id); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if err := f.engine.Unlink(common.Root(), otc, 3, id); !errors.Is(err, ErrNotLinked) {
		t.Fatalf("expected not linked, got %v", err)
	}
	ns := types.NewDomainTag("chart")
	if err := f.engine.LinkByNs(common.Signed(owner), ns, 4, id); err != nil {
		t.Fatalf("link by ns: %v", err)
	}
	if err := f.engine.UnlinkByNs(common.Signed(owner), ns, 4, id); err != nil {
		t.Fatalf("unlink by ns: %v", err)
	}
}

func TestManifestEditWindow(t *testing.T) {
	f := newFixture(t, func(p *Params) { p.EditWindowBlocks = 50 })
	id, err := f.engine.Commit(CommitRequest{Owner: owner, Domain: domain, TargetID: 1, ContentCID: testCID("draft"), Editable: true})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if f.emitter.count(EventTypePinRequested) != 0 {
		t.Fatalf("pending evidence must not be pinned")
	}
	f.height += 20
	if err := f.engine.UpdateManifest(common.Signed(other), id, testCID("hijack")); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}
	if err := f.engine.UpdateManifest(common.Signed(owner), id, testCID("draft-2")); err != nil {
		t.Fatalf("update manifest: %v", err)
	}
	rec, _, _ := f.engine.Record(id)
	if rec.EditDeadline != 150 || rec.Revision != 1 || string(rec.ContentCID) != testCID("draft-2") {
		t.Fatalf("edit window must not reset: %+v", rec)
	}
	if n, err := f.engine.FreezeExpired(10); err != nil || n != 0 {
		t.Fatalf("nothing should freeze yet: n=%d err=%v", n, err)
	}
	f.height = 150
	if err := f.engine.UpdateManifest(common.Signed(owner), id, testCID("late")); !errors.Is(err, ErrEditWindowExpired) {
		t.Fatalf("expected edit window expired, got %v", err)
	}
	n, err := f.engine.FreezeExpired(10)
	if err != nil || n != 1 {
		t.Fatalf("expected one frozen record: n=%d err=%v", n, err)
	}
	rec, _, _ = f.engine.Record(id)
	if Status(rec.Status) != StatusCommitted {
		t.Fatalf("expected committed status, got %s", Status(rec.Status))
	}
	if f.emitter.count(EventTypePinRequested) != 1 {
		t.Fatalf("expected pin on freeze")
	}
	if err := f.engine.UpdateManifest(common.Signed(owner), id, testCID("after")); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestAppendEvidenceChildrenCap(t *testing.T) {
	f := newFixture(t, func(p *Params) { p.MaxChildren = 2 })
	parent, err := f.engine.Commit(CommitRequest{Owner: owner, Domain: domain, TargetID: 1, ContentCID: testCID("parent")})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	for i := 0; i < 2; i++ {
		child, err := f.engine.AppendEvidence(other, parent, testCID(string(rune('k'+i))), ContentTypeDocument, false)
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		rec, _, _ := f.engine.Record(child)
		if !rec.HasParent || rec.Parent != parent || rec.Domain != domain {
			t.Fatalf("child must inherit parent subject: %+v", rec)
		}
	}
	if _, err := f.engine.AppendEvidence(other, parent, testCID("overflow"), ContentTypeDocument, false); !errors.Is(err, ErrTooManyChildren) {
		t.Fatalf("expected children cap, got %v", err)
	}
	if _, err := f.engine.AppendEvidence(other, 999, testCID("orphan"), ContentTypeDocument, false); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestArchiveOldRespectsLocks(t *testing.T) {
	f := newFixture(t, func(p *Params) {
		p.ArchiveAfterBlocks = 1000
		p.EditWindowBlocks = 0
	})
	first, _ := f.engine.Commit(CommitRequest{Owner: owner, Domain: domain, TargetID: 1, ContentCID: testCID("old-1")})
	second, _ := f.engine.Commit(CommitRequest{Owner: owner, Domain: domain, TargetID: 2, ContentCID: testCID("old-2")})
	hash, err := f.engine.LockHashOf(second)
	if err != nil {
		t.Fatalf("lock hash: %v", err)
	}
	if err := f.engine.LockCID(hash, "dispute/1", 0); err != nil {
		t.Fatalf("lock: %v", err)
	}
	f.height = 1099
	if n, _ := f.engine.ArchiveOld(10); n != 0 {
		t.Fatalf("records are not old enough yet, archived %d", n)
	}
	f.height = 1100
	n, err := f.engine.ArchiveOld(10)
	if err != nil || n != 1 {
		t.Fatalf("expected one archived record: n=%d err=%v", n, err)
	}
	if _, ok, _ := f.engine.Record(first); ok {
		t.Fatalf("archived record must be removed")
	}
	summary, ok, err := f.engine.Archived(first)
	if err != nil || !ok {
		t.Fatalf("archived summary: ok=%v err=%v", ok, err)
	}
	if summary.TargetID != 1 || summary.YearMonth != 202311 || summary.ContentDigest != ContentDigest([]byte(testCID("old-1"))) {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if _, err := f.engine.AppendEvidence(owner, first, testCID("late-child"), ContentTypeDocument, false); !errors.Is(err, ErrParentArchived) {
		t.Fatalf("expected archived parent, got %v", err)
	}
	if err := f.engine.UnlockCID(hash, "dispute/1"); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := f.engine.UnlockCID(hash, "dispute/1"); !errors.Is(err, ErrCIDNotLocked) {
		t.Fatalf("expected not locked, got %v", err)
	}
	n, err = f.engine.ArchiveOld(10)
	if err != nil || n != 1 {
		t.Fatalf("expected deferred record to archive: n=%d err=%v", n, err)
	}
	stats, err := f.engine.ArchiveStats()
	if err != nil || stats.Archived != 2 || stats.Deferred != 0 {
		t.Fatalf("unexpected stats: %+v err=%v", stats, err)
	}
}

func TestLockExpiry(t *testing.T) {
	f := newFixture(t, nil)
	hash := CIDHash([]byte("x"))
	if err := f.engine.LockCID(hash, "a", 10); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if locked, _ := f.engine.IsCIDLocked(hash); !locked {
		t.Fatalf("expected lock")
	}
	f.height += 10
	if locked, _ := f.engine.IsCIDLocked(hash); locked {
		t.Fatalf("expected lock to expire")
	}
}

func TestPrivateContentLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	key := make([]byte, 32)
	if err := f.engine.RegisterPublicKey(owner, KeyTypeX25519, key[:16]); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("expected invalid key, got %v", err)
	}
	if err := f.engine.RegisterPublicKey(owner, KeyTypeX25519, key); err != nil {
		t.Fatalf("register owner key: %v", err)
	}
	ns := types.NewDomainTag("chat")
	contentHash := sha256.Sum256([]byte("ciphertext"))
	ownerKey := GranteeKey{Account: owner, EncryptedKey: []byte{1, 2, 3}}
	otherKey := GranteeKey{Account: other, EncryptedKey: []byte{4, 5, 6}}
	if _, err := f.engine.StorePrivateContent(owner, ns, 1, testCID("enc"), contentHash, 1, []GranteeKey{ownerKey, otherKey}); !errors.Is(err, ErrPublicKeyMissing) {
		t.Fatalf("expected missing grantee key, got %v", err)
	}
	if _, err := f.engine.StorePrivateContent(owner, ns, 1, testCID("enc"), contentHash, 1, []GranteeKey{otherKey}); !errors.Is(err, ErrOwnerKeyRequired) && !errors.Is(err, ErrPublicKeyMissing) {
		t.Fatalf("expected key set rejection, got %v", err)
	}
	id, err := f.engine.StorePrivateContent(owner, ns, 1, testCID("enc"), contentHash, 1, []GranteeKey{ownerKey})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := f.engine.RegisterPublicKey(other, KeyTypeX25519, key); err != nil {
		t.Fatalf("register other key: %v", err)
	}
	if err := f.engine.GrantAccess(other, id, otherKey); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("only owner may grant, got %v", err)
	}
	if err := f.engine.GrantAccess(owner, id, GranteeKey{Account: other}); !errors.Is(err, ErrInvalidEncryptedKey) {
		t.Fatalf("expected invalid encrypted key, got %v", err)
	}
	if err := f.engine.GrantAccess(owner, id, otherKey); err != nil {
		t.Fatalf("grant: %v", err)
	}
	content, _, _ := f.engine.PrivateContent(id)
	if len(content.Keys) != 2 {
		t.Fatalf("expected two grantees, got %d", len(content.Keys))
	}
	if err := f.engine.RevokeAccess(owner, id, owner); !errors.Is(err, ErrCannotRevokeOwner) {
		t.Fatalf("expected owner revoke rejection, got %v", err)
	}
	if err := f.engine.RevokeAccess(owner, id, other); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := f.engine.RevokeAccess(owner, id, other); !errors.Is(err, ErrGranteeNotFound) {
		t.Fatalf("expected grantee not found, got %v", err)
	}
	rotated := sha256.Sum256([]byte("ciphertext-2"))
	if err := f.engine.RotateContentKeys(owner, id, rotated, []GranteeKey{ownerKey, otherKey}); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	content, _, _ = f.engine.PrivateContent(id)
	if content.KeyVersion != 2 || content.ContentHash != rotated || len(content.Keys) != 2 {
		t.Fatalf("unexpected rotated content: %+v", content)
	}
	for _, evt := range f.emitter.events {
		payload, ok := events.Unwrap(evt)
		if !ok {
			continue
		}
		if _, leaked := payload.Attributes["cid"]; leaked && payload.Type != EventTypeCommitted {
			t.Fatalf("private event %s leaked cid", payload.Type)
		}
	}
}

func TestPausedModuleRejectsCommits(t *testing.T) {
	f := newFixture(t, nil)
	f.engine.SetPauses(pauseAll{})
	_, err := f.engine.Commit(CommitRequest{Owner: owner, Domain: domain, ContentCID: testCID("p")})
	if !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected paused module, got %v", err)
	}
}

type pauseAll struct{}

func (pauseAll) IsPaused(string) bool { return true }
