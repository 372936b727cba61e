package bank

import "github.com/ethereum/go-ethereum/crypto"

// HoldReason tags collateral so independent subsystems cannot release each
// other's holds.
type HoldReason string

const (
	HoldProfileDeposit    HoldReason = "profile_deposit"
	HoldDisputeInitiator  HoldReason = "dispute_initiator"
	HoldDisputeRespondent HoldReason = "dispute_respondent"
	HoldComplaintDeposit  HoldReason = "complaint_deposit"
	HoldProposalDeposit   HoldReason = "proposal_deposit"
	HoldConvictionLock    HoldReason = "conviction_lock"
)

// Valid reports whether the reason is one of the registered hold reasons.
func (r HoldReason) Valid() bool {
	switch r {
	case HoldProfileDeposit, HoldDisputeInitiator, HoldDisputeRespondent,
		HoldComplaintDeposit, HoldProposalDeposit, HoldConvictionLock:
		return true
	default:
		return false
	}
}

// ModuleAccount derives the deterministic account owned by a runtime module
// (e.g. "escrow", "affiliate/pool").
func ModuleAccount(name string) [20]byte {
	var addr [20]byte
	digest := crypto.Keccak256([]byte("dust/module/" + name))
	copy(addr[:], digest[12:])
	return addr
}
