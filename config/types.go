package config

// Amounts below are decimal strings in base units (10^12 per DUST, 10^6 per
// USDT) so large values survive TOML encoding.

// Swap holds the swap engine parameters.
type Swap struct {
	MinSwapAmount             string
	MinUsdtAmount             string
	OcwSwapTimeoutBlocks      uint64
	VerificationTimeoutBlocks uint64
	SweepInterval             uint64
	MaxPendingSweep           int
	MaxVerificationSweep      int
	TxHashTTLBlocks           uint64
	ArchiveL1AfterBlocks      uint64
	ArchiveL2AfterBlocks      uint64
}

// Evidence holds the evidence store quotas and windows.
type Evidence struct {
	MaxPerSubjectTarget uint32
	MaxPerSubjectNs     uint32
	WindowBlocks        uint64
	MaxPerWindow        uint32
	EditWindowBlocks    uint64
	ArchiveAfterBlocks  uint64
	MaxChildren         uint32
	GlobalCIDDedup      bool
}

// Arbitration holds dispute deposit and slashing policy.
type Arbitration struct {
	DepositRatioBps     uint32
	ResponseDeadline    uint64
	RejectedSlashBps    uint32
	PartialSlashBps     uint32
	ComplaintSlashBps   uint32
	AppealWindowBlocks  uint64
	ComplaintDepositUsd string
	ComplaintMinDeposit string
}

// Affiliate holds referral storage bounds and activity gating.
type Affiliate struct {
	BlocksPerWeek           uint64
	MaxCycleAccountsPerPage int
	MaxCyclePages           int
	HistoryRetentionWeeks   uint32
	CleanupCyclesPerCall    int
	RequireActive           bool
	RequireMemberSponsor    bool
}

// Governance holds the proposal lifecycle parameters.
type Governance struct {
	DiscussionBlocks    uint64
	VotingBlocks        uint64
	ExecutionDelay      uint64
	MaxActivePerAccount uint32
	ProposalGapBlocks   uint64
	RejectionCooldown   uint64
	ProposalDeposit     string
	ProposalDepositUsd  string
	MinTotalPower       uint64
	HistoryLimit        int
	CleanupBatch        int
}

// Pricing configures the DUST/USD feed guardrails.
type Pricing struct {
	MaxAgeSeconds   uint64
	WindowSeconds   uint64
	MaxDeviationBps uint32
	MaxTrades       int
}

// Pauses toggles user extrinsics per module.
type Pauses struct {
	Swap        bool
	Evidence    bool
	Arbitration bool
	Affiliate   bool
	Governance  bool
}

// Global bundles the runtime module parameters enforced by ValidateConfig.
type Global struct {
	Swap        Swap
	Evidence    Evidence
	Arbitration Arbitration
	Affiliate   Affiliate
	Governance  Governance
	Pricing     Pricing
	Pauses      Pauses
}
