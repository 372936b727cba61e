package config

import "fmt"

var (
	MinDiscussionBlocks = uint64(600)
	MinVotingBlocks     = uint64(1_200)
)

func ValidateConfig(g Global) error {
	if g.Swap.OcwSwapTimeoutBlocks == 0 || g.Swap.VerificationTimeoutBlocks == 0 {
		return fmt.Errorf("swap: timeouts must be positive")
	}
	if g.Swap.SweepInterval == 0 {
		return fmt.Errorf("swap: sweep_interval must be positive")
	}
	if g.Swap.ArchiveL1AfterBlocks > g.Swap.ArchiveL2AfterBlocks {
		return fmt.Errorf("swap: archive_l1_after > archive_l2_after")
	}
	if _, err := g.SwapParams(); err != nil {
		return err
	}
	if g.Evidence.WindowBlocks == 0 || g.Evidence.MaxPerWindow == 0 {
		return fmt.Errorf("evidence: window quota must be positive")
	}
	if g.Arbitration.DepositRatioBps > 10_000 || g.Arbitration.RejectedSlashBps > 10_000 ||
		g.Arbitration.PartialSlashBps > 10_000 || g.Arbitration.ComplaintSlashBps > 10_000 {
		return fmt.Errorf("arbitration: basis points above 10000")
	}
	if _, err := g.ArbitrationParams(); err != nil {
		return err
	}
	if g.Affiliate.BlocksPerWeek == 0 {
		return fmt.Errorf("affiliate: blocks_per_week must be positive")
	}
	if g.Affiliate.MaxCycleAccountsPerPage <= 0 || g.Affiliate.MaxCyclePages <= 0 {
		return fmt.Errorf("affiliate: cycle paging must be positive")
	}
	if g.Governance.DiscussionBlocks < MinDiscussionBlocks {
		return fmt.Errorf("governance: discussion_blocks too small")
	}
	if g.Governance.VotingBlocks < MinVotingBlocks {
		return fmt.Errorf("governance: voting_blocks too small")
	}
	if g.Governance.MaxActivePerAccount == 0 {
		return fmt.Errorf("governance: max_active_per_account must be positive")
	}
	if g.Governance.HistoryLimit <= 0 || g.Governance.CleanupBatch <= 0 {
		return fmt.Errorf("governance: history_limit and cleanup_batch must be positive")
	}
	if _, err := g.GovernanceParams(); err != nil {
		return err
	}
	if g.Pricing.MaxAgeSeconds == 0 {
		return fmt.Errorf("pricing: max_age_seconds must be positive")
	}
	return nil
}
