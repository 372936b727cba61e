package escrow

import "math/big"

// Job is the locked balance record for one caller supplied job id. The vault
// is unaware of who should eventually receive the funds; Payer is kept only so
// refunds and audits can reference the original depositor.
type Job struct {
	ID        uint64
	Payer     [20]byte
	Locked    *big.Int
	Disbursed *big.Int
	Drained   bool
	CreatedAt uint64
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	clone.Locked = cloneBigInt(j.Locked)
	clone.Disbursed = cloneBigInt(j.Disbursed)
	return &clone
}

// Remaining returns the amount that can still be disbursed.
func (j *Job) Remaining() *big.Int {
	if j == nil || j.Drained {
		return big.NewInt(0)
	}
	out := new(big.Int).Sub(cloneBigInt(j.Locked), cloneBigInt(j.Disbursed))
	if out.Sign() < 0 {
		return big.NewInt(0)
	}
	return out
}

// FailurePolicy selects what happens when paying a recipient fails.
type FailurePolicy uint8

const (
	// FailurePolicyFail surfaces the transfer error to the caller.
	FailurePolicyFail FailurePolicy = iota
	// FailurePolicyTreasury retries the transfer to the treasury account.
	FailurePolicyTreasury
)
