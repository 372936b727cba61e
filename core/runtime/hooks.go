package runtime

import (
	"time"

	"dustchain/observability/metrics"
)

const (
	freezeBatch    = 10
	complaintBatch = 5
	archiveBatch   = 10
	txHashBatch    = 20
)

// HookReport counts the items processed by the block hooks.
type HookReport struct {
	Refunded        int
	Expired         int
	Frozen          int
	GovernanceMoves int
	Unlocked        int
	Complaints      int
	Archived        int
	TxHashes        int
	Cycles          int
	Pruned          int
	Failures        int
}

// OnInitialize opens block ctx and runs the sweeps that must precede user
// calls: swap timeouts every SweepInterval blocks and expired evidence edit
// windows.
func (r *Runtime) OnInitialize(ctx BlockContext) HookReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.block = ctx
	r.height.Store(ctx.Height)
	var report HookReport
	r.runHook("swap.process_timeouts", metrics.Swap(), func() error {
		sweep, err := r.swap.ProcessTimeouts(ctx.Height)
		if err != nil {
			return err
		}
		report.Refunded = len(sweep.Refunded)
		report.Expired = len(sweep.Expired)
		for _, f := range sweep.Failures {
			report.Failures++
			metrics.Swap().RecordHookFailure("process_timeouts")
			r.logger.Warn("swap sweep failed", "swap_id", f.SwapID, "height", ctx.Height, "error", f.Err)
		}
		return nil
	}, &report)
	r.runHook("evidence.freeze_expired", metrics.Evidence(), func() error {
		n, err := r.evidence.FreezeExpired(freezeBatch)
		report.Frozen = n
		return err
	}, &report)
	return report
}

// OnFinalize advances governance after every call of the block has run.
func (r *Runtime) OnFinalize(height uint64) HookReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	var report HookReport
	r.runHook("governance.on_finalize", metrics.Governance(), func() error {
		res, err := r.governance.OnFinalize(height)
		if err != nil {
			return err
		}
		report.GovernanceMoves = len(res.VotingStarted) + len(res.Passed) + len(res.Rejected) + len(res.Expired) + len(res.Executed)
		report.Unlocked = res.Unlocked
		for _, f := range res.Failures {
			report.Failures++
			metrics.Governance().RecordHookFailure("on_finalize")
			r.logger.Warn("governance transition failed", "proposal_id", f.ProposalID, "height", height, "error", f.Err)
		}
		return nil
	}, &report)
	return report
}

// OnIdle spends up to weight units of leftover block capacity on cleanup.
// Each step costs one unit; calling it with zero weight is a no-op.
func (r *Runtime) OnIdle(height uint64, weight int) HookReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	var report HookReport
	steps := []struct {
		name   string
		module *metrics.ModuleMetrics
		fn     func() error
	}{
		{"arbitration.expire_complaints", metrics.Arbitration(), func() error {
			sweep, err := r.arbitration.ExpireComplaints(complaintBatch)
			if err != nil {
				return err
			}
			report.Complaints = len(sweep.Closed)
			for _, f := range sweep.Failures {
				report.Failures++
				metrics.Arbitration().RecordHookFailure("expire_complaints")
				r.logger.Warn("complaint expiry failed", "complaint_id", f.ComplaintID, "height", height, "error", f.Err)
			}
			return nil
		}},
		{"evidence.archive_old", metrics.Evidence(), func() error {
			n, err := r.evidence.ArchiveOld(archiveBatch)
			report.Archived += n
			return err
		}},
		{"swap.archive_completed", metrics.Swap(), func() error {
			n, err := r.swap.ArchiveCompleted(archiveBatch)
			report.Archived += n
			return err
		}},
		{"swap.cleanup_tx_hashes", metrics.Swap(), func() error {
			n, err := r.swap.CleanupTxHashes(txHashBatch)
			report.TxHashes = n
			return err
		}},
		{"affiliate.cleanup_cycles", metrics.Affiliate(), func() error {
			n, err := r.affiliate.CleanupOldCycles(0)
			report.Cycles = n
			return err
		}},
		{"governance.on_idle", metrics.Governance(), func() error {
			n, err := r.governance.OnIdle(height)
			report.Pruned = n
			return err
		}},
	}
	for _, step := range steps {
		if weight <= 0 {
			break
		}
		weight--
		r.runHook(step.name, step.module, step.fn, &report)
	}
	return report
}

// runHook executes fn atomically. A failing hook is reverted and logged; the
// block continues.
func (r *Runtime) runHook(name string, module *metrics.ModuleMetrics, fn func() error, report *HookReport) {
	start := time.Now()
	snap := r.state.Snapshot()
	mark := r.buffer.Mark()
	err := fn()
	r.metrics.ObserveHook(name, time.Since(start))
	if err != nil {
		r.buffer.Truncate(mark)
		if revertErr := r.state.RevertToSnapshot(snap); revertErr != nil {
			r.logger.Error("hook revert failed", "hook", name, "error", revertErr)
		}
		report.Failures++
		module.RecordHookFailure(name)
		r.logger.Warn("hook failed", "hook", name, "height", r.block.Height, "error", err)
		return
	}
	r.flush()
}
