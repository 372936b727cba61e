package verifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dustchain/crypto"
	"dustchain/observability"
)

const (
	verdictVerified = "verified"
	verdictRejected = "rejected"
	verdictRetry    = "retry"
)

// Worker polls the node for swaps awaiting verification, checks each TRON
// transfer and submits the verdict.
type Worker struct {
	node     Node
	checker  TransferChecker
	limiter  *rate.Limiter
	logger   *slog.Logger
	batch    int
	interval time.Duration
	metrics  *observability.VerifierMetrics
	nowFn    func() time.Time

	// submitted remembers swaps already answered until they leave the
	// pending list.
	submitted map[uint64]struct{}
}

// WorkerOption customises the worker.
type WorkerOption func(*Worker)

// WithWorkerLogger installs a custom logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithClock sets the function used to time lookups.
func WithClock(clock func() time.Time) WorkerOption {
	return func(w *Worker) {
		if clock != nil {
			w.nowFn = clock
		}
	}
}

// NewWorker constructs a worker from cfg.
func NewWorker(cfg Config, node Node, checker TransferChecker, opts ...WorkerOption) (*Worker, error) {
	if node == nil {
		return nil, fmt.Errorf("node client required")
	}
	if checker == nil {
		return nil, fmt.Errorf("transfer checker required")
	}
	w := &Worker{
		node:      node,
		checker:   checker,
		limiter:   rate.NewLimiter(rate.Limit(cfg.Submit.PerSecond), cfg.Submit.Burst),
		logger:    slog.Default(),
		batch:     cfg.BatchSize,
		interval:  cfg.PollInterval.Duration,
		metrics:   observability.Verifier(),
		nowFn:     time.Now,
		submitted: make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.batch <= 0 {
		w.batch = 25
	}
	if w.interval <= 0 {
		w.interval = 6 * time.Second
	}
	w.logger = w.logger.With("component", "verifier")
	return w, nil
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Warn("verification pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single poll and returns the number of verdicts
// submitted.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	pending, err := w.node.PendingVerifications(ctx, w.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	w.metrics.SetBacklog(len(pending))
	w.forgetResolved(pending)

	submitted := 0
	for _, p := range pending {
		if _, done := w.submitted[p.SwapID]; done {
			continue
		}
		verdict, ok := w.check(ctx, p)
		w.metrics.RecordCheck(verdictLabel(verdict, ok))
		if !ok {
			continue
		}
		if err := w.limiter.Wait(ctx); err != nil {
			return submitted, err
		}
		jobID := uuid.NewString()
		err := w.node.SubmitVerification(ctx, jobID, verdict)
		w.metrics.RecordSubmission(err)
		switch {
		case err == nil, errors.Is(err, ErrAlreadyQueued):
			w.submitted[p.SwapID] = struct{}{}
			submitted++
			w.logger.Info("verification submitted",
				"swap_id", p.SwapID,
				"verified", verdict.Verified,
				"job_id", jobID)
		default:
			w.logger.Warn("verification submit failed", "swap_id", p.SwapID, "job_id", jobID, "error", err)
		}
	}
	return submitted, nil
}

// check decides a verdict for p. ok is false when the lookup failed
// transiently and the swap should be retried on the next poll.
func (w *Worker) check(ctx context.Context, p Pending) (Verdict, bool) {
	verdict := Verdict{SwapID: p.SwapID}
	to, err := crypto.ParseTronAddress(p.TronAddress)
	if err != nil {
		verdict.Reason = "invalid tron address"
		return verdict, true
	}
	amount, ok := new(big.Int).SetString(strings.TrimSpace(p.Expected.Raw), 10)
	if !ok || amount.Sign() <= 0 {
		verdict.Reason = "invalid expected amount"
		return verdict, true
	}
	if strings.TrimSpace(p.TxHash) == "" {
		verdict.Reason = "missing tx hash"
		return verdict, true
	}
	start := w.nowFn()
	err = w.checker.Confirm(ctx, p.TxHash, to, amount)
	w.metrics.ObserveLookup(w.nowFn().Sub(start))
	switch {
	case err == nil:
		verdict.Verified = true
		return verdict, true
	case errors.Is(err, ErrNoMatchingTransfer):
		verdict.Reason = "no matching transfer"
		return verdict, true
	default:
		w.logger.Debug("transfer lookup deferred", "swap_id", p.SwapID, "error", err)
		return verdict, false
	}
}

func (w *Worker) forgetResolved(pending []Pending) {
	live := make(map[uint64]struct{}, len(pending))
	for _, p := range pending {
		live[p.SwapID] = struct{}{}
	}
	for id := range w.submitted {
		if _, ok := live[id]; !ok {
			delete(w.submitted, id)
		}
	}
}

func verdictLabel(v Verdict, ok bool) string {
	switch {
	case !ok:
		return verdictRetry
	case v.Verified:
		return verdictVerified
	default:
		return verdictRejected
	}
}
