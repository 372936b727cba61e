package verifier

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"dustchain/crypto"
)

type fakeNode struct {
	pending   []Pending
	submitted []Verdict
	jobIDs    []string
	submitErr error
}

func (f *fakeNode) PendingVerifications(_ context.Context, limit int) ([]Pending, error) {
	if limit < len(f.pending) {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeNode) SubmitVerification(_ context.Context, jobID string, v Verdict) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, v)
	f.jobIDs = append(f.jobIDs, jobID)
	return nil
}

type fakeChecker map[string]error

func (f fakeChecker) Confirm(_ context.Context, txHash string, _ crypto.TronAddress, _ *big.Int) error {
	return f[txHash]
}

func pendingSwap(t *testing.T, id uint64, txHash string) Pending {
	t.Helper()
	p := Pending{SwapID: id, TronAddress: recipient(t).String(), TxHash: txHash}
	p.Expected.Raw = "10000000"
	return p
}

func testWorkerConfig() Config {
	cfg := Config{Auth: AuthConfig{HMACSecret: "x"}}
	applyDefaults(&cfg)
	cfg.Submit.PerSecond = 1000
	cfg.Submit.Burst = 100
	return cfg
}

func TestWorkerSubmitsVerdicts(t *testing.T) {
	node := &fakeNode{pending: []Pending{
		pendingSwap(t, 1, "ok"),
		pendingSwap(t, 2, "mismatch"),
		pendingSwap(t, 3, "later"),
	}}
	checker := fakeChecker{
		"mismatch": ErrNoMatchingTransfer,
		"later":    ErrTxNotFound,
	}
	w, err := NewWorker(testWorkerConfig(), node, checker)
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	n, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if n != 2 || len(node.submitted) != 2 {
		t.Fatalf("expected two verdicts, got %d: %+v", n, node.submitted)
	}
	if !node.submitted[0].Verified || node.submitted[0].SwapID != 1 {
		t.Fatalf("unexpected first verdict: %+v", node.submitted[0])
	}
	if node.submitted[1].Verified || node.submitted[1].Reason == "" {
		t.Fatalf("expected rejection with reason: %+v", node.submitted[1])
	}
	if node.jobIDs[0] == "" || node.jobIDs[0] == node.jobIDs[1] {
		t.Fatalf("expected distinct job ids: %v", node.jobIDs)
	}

	n, err = w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if n != 0 || len(node.submitted) != 2 {
		t.Fatalf("answered swaps must not be resubmitted, got %d", n)
	}

	checker["later"] = nil
	n, err = w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("third pass: %v", err)
	}
	if n != 1 || node.submitted[2].SwapID != 3 || !node.submitted[2].Verified {
		t.Fatalf("expected deferred swap to be verified: %+v", node.submitted)
	}
}

func TestWorkerRejectsMalformedRequests(t *testing.T) {
	bad := pendingSwap(t, 4, "ok")
	bad.TronAddress = "nope"
	empty := pendingSwap(t, 5, "")
	node := &fakeNode{pending: []Pending{bad, empty}}
	w, err := NewWorker(testWorkerConfig(), node, fakeChecker{})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(node.submitted) != 2 {
		t.Fatalf("expected two rejections, got %+v", node.submitted)
	}
	for _, v := range node.submitted {
		if v.Verified {
			t.Fatalf("malformed request verified: %+v", v)
		}
	}
}

func TestWorkerRetriesFailedSubmission(t *testing.T) {
	node := &fakeNode{pending: []Pending{pendingSwap(t, 1, "ok")}, submitErr: errors.New("node down")}
	w, err := NewWorker(testWorkerConfig(), node, fakeChecker{})
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}
	if n, _ := w.RunOnce(context.Background()); n != 0 {
		t.Fatalf("expected no submissions, got %d", n)
	}
	node.submitErr = nil
	if n, _ := w.RunOnce(context.Background()); n != 1 {
		t.Fatalf("expected retry to submit, got %d", n)
	}

	node.submitErr = ErrAlreadyQueued
	node.pending = append(node.pending, pendingSwap(t, 2, "ok"))
	if n, _ := w.RunOnce(context.Background()); n != 1 {
		t.Fatalf("already queued verdict counts as submitted, got %d", n)
	}
	if _, tracked := w.submitted[2]; !tracked {
		t.Fatalf("expected swap 2 to be tracked")
	}

	node.pending = nil
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(w.submitted) != 0 {
		t.Fatalf("resolved swaps must be forgotten: %v", w.submitted)
	}
}
