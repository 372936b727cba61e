package arbitration

import (
	"crypto/sha256"
	"errors"
	"math/big"
	"testing"

	"github.com/btcsuite/btcutil/base58"

	"dustchain/core/events"
	"dustchain/core/pricing"
	"dustchain/core/state"
	"dustchain/core/types"
	"dustchain/native/bank"
	"dustchain/native/common"
	"dustchain/native/evidence"
	"dustchain/storage"
)

var (
	buyer    = [20]byte{0xB1}
	seller   = [20]byte{0x5E}
	treasury = [20]byte{0x7E}
	outsider = [20]byte{0x99}
	swapTag  = types.NewDomainTag("swap")
)

type fakeHandler struct {
	amount     *big.Int
	disputable bool
	applied    []Decision
}

func (h *fakeHandler) CanDispute(who [20]byte, id uint64) (bool, error) {
	return h.disputable && (who == buyer || who == seller), nil
}

func (h *fakeHandler) ApplyDecision(id uint64, decision Decision) error {
	h.applied = append(h.applied, decision)
	return nil
}

func (h *fakeHandler) Counterparty(initiator [20]byte, id uint64) ([20]byte, error) {
	if initiator == buyer {
		return seller, nil
	}
	if initiator == seller {
		return buyer, nil
	}
	return [20]byte{}, ErrNotAuthorized
}

func (h *fakeHandler) OrderAmount(id uint64) (*big.Int, error) { return new(big.Int).Set(h.amount), nil }

func (h *fakeHandler) MakerID(id uint64) (uint64, bool, error) { return 1, true, nil }

type captureEmitter struct {
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func (c *captureEmitter) count(kind string) int {
	n := 0
	for _, evt := range c.events {
		if evt.EventType() == kind {
			n++
		}
	}
	return n
}

type fixture struct {
	engine   *Engine
	bank     *bank.Ledger
	evidence *evidence.Engine
	feed     *pricing.Feed
	handler  *fakeHandler
	emitter  *captureEmitter
	height   uint64
}

func testCID(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return base58.Encode(append([]byte{0x12, 0x20}, sum[:]...))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	f := &fixture{
		bank:     bank.NewLedger(mgr),
		evidence: evidence.NewEngine(mgr),
		feed:     pricing.NewFeed(mgr, nil),
		handler:  &fakeHandler{amount: big.NewInt(1_000_000), disputable: true},
		emitter:  &captureEmitter{},
		height:   10,
	}
	blockFn := func() uint64 { return f.height }
	f.evidence.SetBlockFunc(blockFn)
	f.engine = NewEngine(mgr, f.bank)
	f.engine.SetEvidence(f.evidence)
	f.engine.SetCIDLocker(f.evidence)
	f.engine.SetPriceProvider(f.feed)
	f.engine.SetTreasury(treasury)
	f.engine.SetEmitter(f.emitter)
	f.engine.SetBlockFunc(blockFn)
	if err := f.engine.Register(swapTag, f.handler); err != nil {
		t.Fatalf("register: %v", err)
	}
	for _, who := range [][20]byte{buyer, seller} {
		if err := f.bank.Mint(who, big.NewInt(100_000_000_000_000)); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
	return f
}

func (f *fixture) free(t *testing.T, who [20]byte) *big.Int {
	t.Helper()
	bal, err := f.bank.FreeBalance(who)
	if err != nil {
		t.Fatalf("free balance: %v", err)
	}
	return bal
}

func (f *fixture) held(t *testing.T, reason bank.HoldReason, who [20]byte) *big.Int {
	t.Helper()
	bal, err := f.bank.HeldBalance(reason, who)
	if err != nil {
		t.Fatalf("held balance: %v", err)
	}
	return bal
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.Register(swapTag, &fakeHandler{}); !errors.Is(err, ErrDomainRegistered) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if err := f.engine.RaiseDispute(buyer, types.NewDomainTag("otc"), 1, nil); !errors.Is(err, ErrUnknownDomain) {
		t.Fatalf("expected unknown domain, got %v", err)
	}
	if got := f.engine.Domains(); len(got) != 1 || got[0] != swapTag {
		t.Fatalf("unexpected domains %v", got)
	}
}

func TestDisputeLocksEvidenceUntilArbitrated(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.RaiseDispute(outsider, swapTag, 7, nil); !errors.Is(err, ErrNotDisputable) {
		t.Fatalf("expected not disputable, got %v", err)
	}
	if err := f.engine.RaiseDispute(buyer, swapTag, 7, []string{testCID("receipt"), testCID("chat")}); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := f.engine.RaiseDispute(seller, swapTag, 7, nil); !errors.Is(err, ErrAlreadyDisputed) {
		t.Fatalf("expected already disputed, got %v", err)
	}
	d, ok, err := f.engine.Dispute(swapTag, 7)
	if err != nil || !ok {
		t.Fatalf("dispute lookup: ok=%v err=%v", ok, err)
	}
	if len(d.EvidenceIDs) != 2 || len(d.LockedHashes) != 2 {
		t.Fatalf("expected two evidence entries, got %+v", d)
	}
	for _, hash := range d.LockedHashes {
		locked, err := f.evidence.IsCIDLocked(hash)
		if err != nil || !locked {
			t.Fatalf("expected locked cid: locked=%v err=%v", locked, err)
		}
	}

	if err := f.engine.Arbitrate(common.Signed(buyer), swapTag, 7, Refund()); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := f.engine.Arbitrate(common.Root(), swapTag, 7, Partial(20_000)); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected invalid decision, got %v", err)
	}
	if err := f.engine.Arbitrate(common.Root(), swapTag, 7, Refund()); err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	if len(f.handler.applied) != 1 || f.handler.applied[0].Kind != DecisionRefund {
		t.Fatalf("handler did not receive decision: %+v", f.handler.applied)
	}
	for _, hash := range d.LockedHashes {
		locked, err := f.evidence.IsCIDLocked(hash)
		if err != nil || locked {
			t.Fatalf("expected cid unlocked: locked=%v err=%v", locked, err)
		}
	}
	if disputed, _ := f.engine.IsDisputed(swapTag, 7); disputed {
		t.Fatalf("expected dispute removed")
	}
	v, ok, err := f.engine.Verdict(swapTag, 7)
	if err != nil || !ok || DecisionKind(v.Kind) != DecisionRefund || v.Initiator != buyer {
		t.Fatalf("unexpected verdict %+v ok=%v err=%v", v, ok, err)
	}
	if err := f.engine.Arbitrate(common.Root(), swapTag, 7, Refund()); !errors.Is(err, ErrNotDisputed) {
		t.Fatalf("expected not disputed, got %v", err)
	}
	if f.emitter.count(EventTypeArbitrated) != 1 {
		t.Fatalf("expected one arbitrated event")
	}
}

func TestCommitteeOriginCanArbitrate(t *testing.T) {
	f := newFixture(t)
	f.engine.SetDecisionOrigin(common.RootOrCommittee{Num: 2, Den: 3})
	evID, err := f.evidence.Commit(evidence.CommitRequest{Owner: seller, Domain: swapTag, TargetID: 3, ContentCID: testCID("proof")})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := f.engine.DisputeWithEvidenceID(seller, swapTag, 3, evID); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := f.engine.Arbitrate(common.Committee(1, 3), swapTag, 3, Release()); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected minority committee rejected, got %v", err)
	}
	if err := f.engine.Arbitrate(common.Committee(2, 3), swapTag, 3, Release()); err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
}

func TestTwoWayDepositSlashesLosingRespondent(t *testing.T) {
	f := newFixture(t)
	before := f.free(t, seller)
	evID, err := f.evidence.Commit(evidence.CommitRequest{Owner: buyer, Domain: swapTag, TargetID: 9, ContentCID: testCID("buyer")})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := f.engine.DisputeWithTwoWayDeposit(buyer, swapTag, 9, evID); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if got := f.held(t, bank.HoldDisputeInitiator, buyer); got.Cmp(big.NewInt(150_000)) != 0 {
		t.Fatalf("expected 15%% initiator deposit, got %s", got)
	}
	counterID, err := f.evidence.Commit(evidence.CommitRequest{Owner: seller, Domain: swapTag, TargetID: 9, ContentCID: testCID("seller")})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := f.engine.RespondToDispute(buyer, swapTag, 9, counterID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected initiator rejected as respondent, got %v", err)
	}
	if err := f.engine.RespondToDispute(seller, swapTag, 9, counterID); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if err := f.engine.RespondToDispute(seller, swapTag, 9, counterID); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected already responded, got %v", err)
	}
	if err := f.engine.Arbitrate(common.Root(), swapTag, 9, Refund()); err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	if got := f.held(t, bank.HoldDisputeRespondent, seller); got.Sign() != 0 {
		t.Fatalf("expected respondent hold cleared, got %s", got)
	}
	if got := f.held(t, bank.HoldDisputeInitiator, buyer); got.Sign() != 0 {
		t.Fatalf("expected initiator hold cleared, got %s", got)
	}
	want := new(big.Int).Sub(before, big.NewInt(45_000))
	if got := f.free(t, seller); got.Cmp(want) != 0 {
		t.Fatalf("expected seller slashed 30%%: want %s got %s", want, got)
	}
	if got := f.free(t, treasury); got.Cmp(big.NewInt(45_000)) != 0 {
		t.Fatalf("expected treasury to receive slash, got %s", got)
	}
}

func TestPartialRulingSlashesBothSides(t *testing.T) {
	f := newFixture(t)
	evID, _ := f.evidence.Commit(evidence.CommitRequest{Owner: buyer, Domain: swapTag, TargetID: 4, ContentCID: testCID("a")})
	counterID, _ := f.evidence.Commit(evidence.CommitRequest{Owner: seller, Domain: swapTag, TargetID: 4, ContentCID: testCID("b")})
	if err := f.engine.DisputeWithTwoWayDeposit(buyer, swapTag, 4, evID); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if err := f.engine.RespondToDispute(seller, swapTag, 4, counterID); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if err := f.engine.Arbitrate(common.Root(), swapTag, 4, Partial(5_000)); err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	if got := f.free(t, treasury); got.Cmp(big.NewInt(150_000)) != 0 {
		t.Fatalf("expected half of both deposits slashed, got %s", got)
	}
}

func TestRespondAfterDeadlineFails(t *testing.T) {
	f := newFixture(t)
	evID, _ := f.evidence.Commit(evidence.CommitRequest{Owner: buyer, Domain: swapTag, TargetID: 5, ContentCID: testCID("late")})
	if err := f.engine.DisputeWithTwoWayDeposit(buyer, swapTag, 5, evID); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	f.height += DefaultParams().ResponseDeadline + 1
	counterID, _ := f.evidence.Commit(evidence.CommitRequest{Owner: seller, Domain: swapTag, TargetID: 5, ContentCID: testCID("late2")})
	if err := f.engine.RespondToDispute(seller, swapTag, 5, counterID); !errors.Is(err, ErrResponseDeadlinePassed) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	// Unanswered disputes still settle the initiator's deposit.
	if err := f.engine.Arbitrate(common.Root(), swapTag, 5, Release()); err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	if got := f.free(t, treasury); got.Cmp(big.NewInt(45_000)) != 0 {
		t.Fatalf("expected initiator slashed, got %s", got)
	}
}

func TestAppendEvidenceRequiresParty(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.RaiseDispute(buyer, swapTag, 2, []string{testCID("x")}); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	evID, _ := f.evidence.Commit(evidence.CommitRequest{Owner: outsider, Domain: swapTag, TargetID: 2, ContentCID: testCID("y")})
	if err := f.engine.AppendEvidenceID(outsider, swapTag, 2, evID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected outsider rejected, got %v", err)
	}
	if err := f.engine.AppendEvidenceID(seller, swapTag, 2, evID); err != nil {
		t.Fatalf("append: %v", err)
	}
	d, _, _ := f.engine.Dispute(swapTag, 2)
	if len(d.EvidenceIDs) != 2 {
		t.Fatalf("expected two evidence ids, got %d", len(d.EvidenceIDs))
	}
}

func TestComplaintDepositPricing(t *testing.T) {
	f := newFixture(t)
	dep, err := f.engine.ComplaintDeposit()
	if err != nil || dep.Cmp(DefaultParams().ComplaintMinDeposit) != 0 {
		t.Fatalf("expected floor without rate, got %v err=%v", dep, err)
	}
	// 0.10 USD per DUST prices a 1 USD deposit at 10 DUST.
	if err := f.feed.SetRate(common.Root(), big.NewInt(100_000)); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	dep, err = f.engine.ComplaintDeposit()
	if err != nil || dep.Cmp(big.NewInt(10_000_000_000_000)) != 0 {
		t.Fatalf("expected 10 DUST deposit, got %v err=%v", dep, err)
	}
	// 100 USD per DUST would undercut the floor.
	if err := f.feed.SetRate(common.Root(), big.NewInt(100_000_000)); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	dep, _ = f.engine.ComplaintDeposit()
	if dep.Cmp(DefaultParams().ComplaintMinDeposit) != 0 {
		t.Fatalf("expected floored deposit, got %s", dep)
	}
}

func fileComplaint(t *testing.T, f *fixture, objectID uint64) uint64 {
	t.Helper()
	id, err := f.engine.FileComplaint(buyer, ComplaintRequest{
		Domain:     swapTag,
		ObjectID:   objectID,
		Type:       ComplaintTypeNonDelivery,
		DetailsCID: testCID("details"),
		Amount:     big.NewInt(500),
	})
	if err != nil {
		t.Fatalf("file complaint: %v", err)
	}
	return id
}

func TestComplaintValidation(t *testing.T) {
	f := newFixture(t)
	req := ComplaintRequest{Domain: swapTag, ObjectID: 1, Type: ComplaintType(9), DetailsCID: testCID("d")}
	if _, err := f.engine.FileComplaint(buyer, req); !errors.Is(err, ErrInvalidComplaintType) {
		t.Fatalf("expected invalid type, got %v", err)
	}
	req.Type = ComplaintTypeFraud
	req.DetailsCID = "nope"
	if _, err := f.engine.FileComplaint(buyer, req); !errors.Is(err, evidence.ErrInvalidCidFormat) {
		t.Fatalf("expected cid error, got %v", err)
	}
}

func TestComplaintEscalationDismissedSlashesComplainant(t *testing.T) {
	f := newFixture(t)
	id := fileComplaint(t, f, 11)
	deposit := DefaultParams().ComplaintMinDeposit
	if got := f.held(t, bank.HoldComplaintDeposit, buyer); got.Cmp(deposit) != 0 {
		t.Fatalf("expected complaint deposit held, got %s", got)
	}
	if err := f.engine.EscalateToArbitration(buyer, id); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected escalation before response rejected, got %v", err)
	}
	if err := f.engine.RespondToComplaint(buyer, id, testCID("resp")); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected complainant cannot respond, got %v", err)
	}
	if err := f.engine.RespondToComplaint(seller, id, testCID("resp")); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if err := f.engine.EscalateToArbitration(buyer, id); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	c, _ := f.engine.Complaint(id)
	if ComplaintStatus(c.Status) != ComplaintEscalated {
		t.Fatalf("expected escalated, got %s", ComplaintStatus(c.Status))
	}
	if err := f.engine.ResolveComplaint(common.Root(), id, true); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected escalated complaint to resolve via arbitration, got %v", err)
	}
	sellerBefore := f.free(t, seller)
	if err := f.engine.Arbitrate(common.Root(), swapTag, 11, Release()); err != nil {
		t.Fatalf("arbitrate: %v", err)
	}
	c, _ = f.engine.Complaint(id)
	if ComplaintStatus(c.Status) != ComplaintDismissed {
		t.Fatalf("expected dismissed, got %s", ComplaintStatus(c.Status))
	}
	half := new(big.Int).Div(deposit, big.NewInt(2))
	if got := new(big.Int).Sub(f.free(t, seller), sellerBefore); got.Cmp(half) != 0 {
		t.Fatalf("expected respondent to receive half the deposit, got %s", got)
	}
	if got := f.held(t, bank.HoldComplaintDeposit, buyer); got.Sign() != 0 {
		t.Fatalf("expected deposit hold cleared, got %s", got)
	}
}

func TestEscalationOutsideAppealWindow(t *testing.T) {
	f := newFixture(t)
	id := fileComplaint(t, f, 12)
	if err := f.engine.RespondToComplaint(seller, id, testCID("resp")); err != nil {
		t.Fatalf("respond: %v", err)
	}
	f.height += DefaultParams().AppealWindowBlocks + 1
	if err := f.engine.EscalateToArbitration(buyer, id); !errors.Is(err, ErrAppealDeadlineExpired) {
		t.Fatalf("expected appeal deadline error, got %v", err)
	}
	report, err := f.engine.ExpireComplaints(10)
	if err != nil || len(report.Closed) != 1 {
		t.Fatalf("expire: %+v err=%v", report, err)
	}
	c, _ := f.engine.Complaint(id)
	if ComplaintStatus(c.Status) != ComplaintSettled {
		t.Fatalf("expected settled after appeal window, got %s", ComplaintStatus(c.Status))
	}
}

func TestComplaintExpiryAndWithdrawal(t *testing.T) {
	f := newFixture(t)
	expiring := fileComplaint(t, f, 20)
	withdrawn := fileComplaint(t, f, 21)
	if err := f.engine.WithdrawComplaint(seller, withdrawn); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected respondent cannot withdraw, got %v", err)
	}
	if err := f.engine.WithdrawComplaint(buyer, withdrawn); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	report, err := f.engine.ExpireComplaints(10)
	if err != nil || len(report.Closed) != 0 {
		t.Fatalf("expected nothing to expire yet: %+v err=%v", report, err)
	}
	f.height += DefaultParams().ResponseDeadline + 1
	if err := f.engine.RespondToComplaint(seller, expiring, testCID("late")); !errors.Is(err, ErrResponseDeadlinePassed) {
		t.Fatalf("expected late response rejected, got %v", err)
	}
	report, err = f.engine.ExpireComplaints(10)
	if err != nil || len(report.Closed) != 1 || report.Closed[0] != expiring {
		t.Fatalf("expire: %+v err=%v", report, err)
	}
	c, _ := f.engine.Complaint(expiring)
	if ComplaintStatus(c.Status) != ComplaintExpired {
		t.Fatalf("expected expired, got %s", ComplaintStatus(c.Status))
	}
	if got := f.held(t, bank.HoldComplaintDeposit, buyer); got.Sign() != 0 {
		t.Fatalf("expected deposits returned, got %s", got)
	}
}

type flakyHolds struct {
	Holds
	releaseFailures int
}

func (h *flakyHolds) Release(reason bank.HoldReason, who [20]byte, amount *big.Int) error {
	if h.releaseFailures > 0 {
		h.releaseFailures--
		return errors.New("hold release unavailable")
	}
	return h.Holds.Release(reason, who, amount)
}

func TestComplaintExpiryContinuesPastFailure(t *testing.T) {
	f := newFixture(t)
	first := fileComplaint(t, f, 40)
	second := fileComplaint(t, f, 41)
	f.engine.holds = &flakyHolds{Holds: f.bank, releaseFailures: 1}
	f.height += DefaultParams().ResponseDeadline + 1

	report, err := f.engine.ExpireComplaints(10)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(report.Failures) != 1 || report.Failures[0].ComplaintID != first {
		t.Fatalf("expected first complaint to fail, got %+v", report)
	}
	if len(report.Closed) != 1 || report.Closed[0] != second {
		t.Fatalf("expected second complaint closed, got %+v", report)
	}
	c, _ := f.engine.Complaint(first)
	if ComplaintStatus(c.Status) != ComplaintSubmitted {
		t.Fatalf("expected failed complaint untouched, got %s", ComplaintStatus(c.Status))
	}

	report, err = f.engine.ExpireComplaints(10)
	if err != nil || len(report.Failures) != 0 || len(report.Closed) != 1 || report.Closed[0] != first {
		t.Fatalf("expected retry to close first complaint: %+v err=%v", report, err)
	}
	if got := f.held(t, bank.HoldComplaintDeposit, buyer); got.Sign() != 0 {
		t.Fatalf("expected deposits returned, got %s", got)
	}
}

func TestResolveComplaintDirectly(t *testing.T) {
	f := newFixture(t)
	id := fileComplaint(t, f, 30)
	if err := f.engine.ResolveComplaint(common.Signed(buyer), id, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected origin check, got %v", err)
	}
	if err := f.engine.ResolveComplaint(common.Root(), id, true); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c, _ := f.engine.Complaint(id)
	if ComplaintStatus(c.Status) != ComplaintUpheld {
		t.Fatalf("expected upheld, got %s", ComplaintStatus(c.Status))
	}
	if f.emitter.count(EventTypeComplaintClosed) != 1 {
		t.Fatalf("expected closed event")
	}
}

type pausedAll struct{}

func (pausedAll) IsPaused(string) bool { return true }

func TestPausedRouterRejectsCalls(t *testing.T) {
	f := newFixture(t)
	f.engine.SetPauses(pausedAll{})
	if err := f.engine.RaiseDispute(buyer, swapTag, 1, nil); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
}
