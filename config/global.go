package config

import (
	"fmt"
	"math/big"
	"strings"

	"dustchain/core/pricing"
	"dustchain/native/affiliate"
	"dustchain/native/arbitration"
	"dustchain/native/common"
	"dustchain/native/evidence"
	"dustchain/native/governance"
	"dustchain/native/swap"
)

// DefaultGlobal returns the genesis module parameters.
func DefaultGlobal() Global {
	sw := swap.DefaultParams()
	ev := evidence.DefaultParams()
	arb := arbitration.DefaultParams()
	aff := affiliate.DefaultParams()
	gov := governance.DefaultParams()
	guard := pricing.DefaultGuard()
	return Global{
		Swap: Swap{
			MinSwapAmount:             sw.MinSwapAmount.String(),
			MinUsdtAmount:             sw.MinUsdtAmount.String(),
			OcwSwapTimeoutBlocks:      sw.OcwSwapTimeoutBlocks,
			VerificationTimeoutBlocks: sw.VerificationTimeoutBlocks,
			SweepInterval:             sw.SweepInterval,
			MaxPendingSweep:           sw.MaxPendingSweep,
			MaxVerificationSweep:      sw.MaxVerificationSweep,
			TxHashTTLBlocks:           sw.TxHashTTL,
			ArchiveL1AfterBlocks:      sw.ArchiveL1After,
			ArchiveL2AfterBlocks:      sw.ArchiveL2After,
		},
		Evidence: Evidence{
			MaxPerSubjectTarget: ev.MaxPerSubjectTarget,
			MaxPerSubjectNs:     ev.MaxPerSubjectNs,
			WindowBlocks:        ev.Window.Blocks,
			MaxPerWindow:        ev.Window.Max,
			EditWindowBlocks:    ev.EditWindowBlocks,
			ArchiveAfterBlocks:  ev.ArchiveAfterBlocks,
			MaxChildren:         ev.MaxChildren,
			GlobalCIDDedup:      ev.GlobalCIDDedup,
		},
		Arbitration: Arbitration{
			DepositRatioBps:     arb.DepositRatioBps,
			ResponseDeadline:    arb.ResponseDeadline,
			RejectedSlashBps:    arb.RejectedSlashBps,
			PartialSlashBps:     arb.PartialSlashBps,
			ComplaintSlashBps:   arb.ComplaintSlashBps,
			AppealWindowBlocks:  arb.AppealWindowBlocks,
			ComplaintDepositUsd: arb.ComplaintDepositUsd.String(),
			ComplaintMinDeposit: arb.ComplaintMinDeposit.String(),
		},
		Affiliate: Affiliate{
			BlocksPerWeek:           aff.Defaults.BlocksPerWeek,
			MaxCycleAccountsPerPage: aff.MaxCycleAccountsPerPage,
			MaxCyclePages:           aff.MaxCyclePages,
			HistoryRetentionWeeks:   aff.HistoryRetentionWeeks,
			CleanupCyclesPerCall:    aff.CleanupCyclesPerCall,
			RequireActive:           aff.RequireActive,
			RequireMemberSponsor:    aff.RequireMemberSponsor,
		},
		Governance: Governance{
			DiscussionBlocks:    gov.DiscussionBlocks,
			VotingBlocks:        gov.VotingBlocks,
			ExecutionDelay:      gov.ExecutionDelay,
			MaxActivePerAccount: gov.MaxActivePerAccount,
			ProposalGapBlocks:   gov.ProposalGap,
			RejectionCooldown:   gov.RejectionCooldown,
			ProposalDeposit:     gov.ProposalDeposit.String(),
			ProposalDepositUsd:  gov.ProposalDepositUsd.String(),
			MinTotalPower:       gov.MinTotalPower,
			HistoryLimit:        gov.HistoryLimit,
			CleanupBatch:        gov.CleanupBatch,
		},
		Pricing: Pricing{
			MaxAgeSeconds:   guard.MaxAgeSeconds,
			WindowSeconds:   guard.WindowSeconds,
			MaxDeviationBps: guard.MaxDeviationBps,
			MaxTrades:       guard.MaxTrades,
		},
	}
}

// SwapParams converts the configured values into engine parameters.
func (g Global) SwapParams() (swap.Params, error) {
	p := swap.DefaultParams()
	minSwap, err := parseUintAmount(g.Swap.MinSwapAmount)
	if err != nil {
		return p, fmt.Errorf("invalid global.Swap.MinSwapAmount: %w", err)
	}
	minUsdt, err := parseUintAmount(g.Swap.MinUsdtAmount)
	if err != nil {
		return p, fmt.Errorf("invalid global.Swap.MinUsdtAmount: %w", err)
	}
	p.MinSwapAmount = minSwap
	p.MinUsdtAmount = minUsdt
	p.OcwSwapTimeoutBlocks = g.Swap.OcwSwapTimeoutBlocks
	p.VerificationTimeoutBlocks = g.Swap.VerificationTimeoutBlocks
	p.SweepInterval = g.Swap.SweepInterval
	p.MaxPendingSweep = g.Swap.MaxPendingSweep
	p.MaxVerificationSweep = g.Swap.MaxVerificationSweep
	p.TxHashTTL = g.Swap.TxHashTTLBlocks
	p.ArchiveL1After = g.Swap.ArchiveL1AfterBlocks
	p.ArchiveL2After = g.Swap.ArchiveL2AfterBlocks
	return p, nil
}

func (g Global) EvidenceParams() evidence.Params {
	p := evidence.DefaultParams()
	p.MaxPerSubjectTarget = g.Evidence.MaxPerSubjectTarget
	p.MaxPerSubjectNs = g.Evidence.MaxPerSubjectNs
	p.Window = common.WindowQuota{Blocks: g.Evidence.WindowBlocks, Max: g.Evidence.MaxPerWindow}
	p.EditWindowBlocks = g.Evidence.EditWindowBlocks
	p.ArchiveAfterBlocks = g.Evidence.ArchiveAfterBlocks
	p.MaxChildren = g.Evidence.MaxChildren
	p.GlobalCIDDedup = g.Evidence.GlobalCIDDedup
	return p
}

func (g Global) ArbitrationParams() (arbitration.Params, error) {
	p := arbitration.DefaultParams()
	usd, err := parseUintAmount(g.Arbitration.ComplaintDepositUsd)
	if err != nil {
		return p, fmt.Errorf("invalid global.Arbitration.ComplaintDepositUsd: %w", err)
	}
	floor, err := parseUintAmount(g.Arbitration.ComplaintMinDeposit)
	if err != nil {
		return p, fmt.Errorf("invalid global.Arbitration.ComplaintMinDeposit: %w", err)
	}
	p.DepositRatioBps = g.Arbitration.DepositRatioBps
	p.ResponseDeadline = g.Arbitration.ResponseDeadline
	p.RejectedSlashBps = g.Arbitration.RejectedSlashBps
	p.PartialSlashBps = g.Arbitration.PartialSlashBps
	p.ComplaintSlashBps = g.Arbitration.ComplaintSlashBps
	p.AppealWindowBlocks = g.Arbitration.AppealWindowBlocks
	p.ComplaintDepositUsd = usd
	p.ComplaintMinDeposit = floor
	return p, nil
}

func (g Global) AffiliateParams() affiliate.Params {
	p := affiliate.DefaultParams()
	p.Defaults.BlocksPerWeek = g.Affiliate.BlocksPerWeek
	p.MaxCycleAccountsPerPage = g.Affiliate.MaxCycleAccountsPerPage
	p.MaxCyclePages = g.Affiliate.MaxCyclePages
	p.HistoryRetentionWeeks = g.Affiliate.HistoryRetentionWeeks
	p.CleanupCyclesPerCall = g.Affiliate.CleanupCyclesPerCall
	p.RequireActive = g.Affiliate.RequireActive
	p.RequireMemberSponsor = g.Affiliate.RequireMemberSponsor
	return p
}

func (g Global) GovernanceParams() (governance.Params, error) {
	p := governance.DefaultParams()
	deposit, err := parseUintAmount(g.Governance.ProposalDeposit)
	if err != nil {
		return p, fmt.Errorf("invalid global.Governance.ProposalDeposit: %w", err)
	}
	usd, err := parseUintAmount(g.Governance.ProposalDepositUsd)
	if err != nil {
		return p, fmt.Errorf("invalid global.Governance.ProposalDepositUsd: %w", err)
	}
	p.DiscussionBlocks = g.Governance.DiscussionBlocks
	p.VotingBlocks = g.Governance.VotingBlocks
	p.ExecutionDelay = g.Governance.ExecutionDelay
	p.MaxActivePerAccount = g.Governance.MaxActivePerAccount
	p.ProposalGap = g.Governance.ProposalGapBlocks
	p.RejectionCooldown = g.Governance.RejectionCooldown
	p.ProposalDeposit = deposit
	p.ProposalDepositUsd = usd
	p.MinTotalPower = g.Governance.MinTotalPower
	p.HistoryLimit = g.Governance.HistoryLimit
	p.CleanupBatch = g.Governance.CleanupBatch
	p.BlocksPerWeek = g.Affiliate.BlocksPerWeek
	return p, nil
}

func (g Global) PricingGuard() pricing.Guard {
	return pricing.Guard{
		MaxAgeSeconds:   g.Pricing.MaxAgeSeconds,
		WindowSeconds:   g.Pricing.WindowSeconds,
		MaxDeviationBps: g.Pricing.MaxDeviationBps,
		MaxTrades:       g.Pricing.MaxTrades,
	}
}

// IsPaused implements common.PauseView over the static toggles.
func (p Pauses) IsPaused(module string) bool {
	switch module {
	case common.ModuleSwap:
		return p.Swap
	case common.ModuleEvidence:
		return p.Evidence
	case common.ModuleArbitration:
		return p.Arbitration
	case common.ModuleAffiliate:
		return p.Affiliate
	case common.ModuleGovernance:
		return p.Governance
	default:
		return false
	}
}

// Set toggles the named module. Unknown modules report false.
func (p *Pauses) Set(module string, paused bool) bool {
	switch module {
	case common.ModuleSwap:
		p.Swap = paused
	case common.ModuleEvidence:
		p.Evidence = paused
	case common.ModuleArbitration:
		p.Arbitration = paused
	case common.ModuleAffiliate:
		p.Affiliate = paused
	case common.ModuleGovernance:
		p.Governance = paused
	default:
		return false
	}
	return true
}

func parseUintAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}
