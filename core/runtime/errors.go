package runtime

import (
	"errors"
	"fmt"

	"dustchain/core/pricing"
	"dustchain/core/state"
	"dustchain/native/affiliate"
	"dustchain/native/arbitration"
	"dustchain/native/bank"
	"dustchain/native/common"
	"dustchain/native/escrow"
	"dustchain/native/evidence"
	"dustchain/native/governance"
	"dustchain/native/maker"
	"dustchain/native/swap"
)

var (
	ErrUnknownCall        = errors.New("runtime: unknown call")
	ErrInvalidArgs        = errors.New("runtime: invalid call arguments")
	ErrBadNonce           = errors.New("runtime: bad nonce")
	ErrSignedRequired     = errors.New("runtime: call requires a signature")
	ErrUnsignedNotAllowed = errors.New("runtime: call cannot be submitted unsigned")
)

type namedError struct {
	err  error
	name string
}

var errorNames []namedError

func register(module string, entries map[string]error) {
	for name, err := range entries {
		errorNames = append(errorNames, namedError{err: err, name: module + "." + name})
	}
}

func init() {
	register("Runtime", map[string]error{
		"UnknownCall":        ErrUnknownCall,
		"InvalidArgs":        ErrInvalidArgs,
		"BadNonce":           ErrBadNonce,
		"SignedRequired":     ErrSignedRequired,
		"UnsignedNotAllowed": ErrUnsignedNotAllowed,
		"InvalidSnapshot":    state.ErrInvalidSnapshot,
	})
	register("System", map[string]error{
		"ModulePaused":         common.ErrModulePaused,
		"AmountOverflow":       common.ErrAmountOverflow,
		"BadOrigin":            common.ErrBadOrigin,
		"UnsignedOrigin":       common.ErrUnsignedOrigin,
		"RateLimited":          common.ErrWindowLimitExceeded,
		"QuotaCounterOverflow": common.ErrQuotaCounterOverflow,
	})
	register("Balances", map[string]error{
		"InsufficientBalance": bank.ErrInsufficientBalance,
		"InsufficientHeld":    bank.ErrInsufficientHeld,
		"BelowExistential":    bank.ErrBelowExistential,
		"InvalidAmount":       bank.ErrInvalidAmount,
		"UnknownHoldReason":   bank.ErrUnknownHoldReason,
	})
	register("Pricing", map[string]error{
		"InvalidPrice": pricing.ErrInvalidPrice,
		"NotOracle":    pricing.ErrNotOracle,
	})
	register("Escrow", map[string]error{
		"JobExists":           escrow.ErrJobExists,
		"JobNotFound":         escrow.ErrJobNotFound,
		"JobDrained":          escrow.ErrJobDrained,
		"ExceedsLocked":       escrow.ErrExceedsLocked,
		"InvalidAmount":       escrow.ErrInvalidAmount,
		"InvalidBps":          escrow.ErrInvalidBps,
		"NoTreasury":          escrow.ErrNoTreasury,
		"InsufficientBalance": escrow.ErrInsufficientBalance,
	})
	register("Evidence", map[string]error{
		"NotFound":            evidence.ErrNotFound,
		"NotAuthorized":       evidence.ErrNotAuthorized,
		"InvalidCidFormat":    evidence.ErrInvalidCidFormat,
		"InvalidContentType":  evidence.ErrInvalidContentType,
		"InvalidCommitHash":   evidence.ErrInvalidCommitHash,
		"MemoTooLong":         evidence.ErrMemoTooLong,
		"TooManyForSubject":   evidence.ErrTooManyForSubject,
		"RateLimited":         evidence.ErrRateLimited,
		"DuplicateCid":        evidence.ErrDuplicateCid,
		"CommitAlreadyExists": evidence.ErrCommitAlreadyExists,
		"AlreadyLinked":       evidence.ErrAlreadyLinked,
		"NotLinked":           evidence.ErrNotLinked,
		"TooManyChildren":     evidence.ErrTooManyChildren,
		"ParentArchived":      evidence.ErrParentArchived,
		"InvalidStatus":       evidence.ErrInvalidStatus,
		"EditWindowExpired":   evidence.ErrEditWindowExpired,
		"InvalidEncryptedKey": evidence.ErrInvalidEncryptedKey,
		"InvalidPublicKey":    evidence.ErrInvalidPublicKey,
		"PublicKeyMissing":    evidence.ErrPublicKeyMissing,
		"TooManyGrantees":     evidence.ErrTooManyGrantees,
		"OwnerKeyRequired":    evidence.ErrOwnerKeyRequired,
		"GranteeNotFound":     evidence.ErrGranteeNotFound,
		"CannotRevokeOwner":   evidence.ErrCannotRevokeOwner,
		"CIDNotLocked":        evidence.ErrCIDNotLocked,
	})
	register("Arbitration", map[string]error{
		"UnknownDomain":             arbitration.ErrUnknownDomain,
		"DomainRegistered":          arbitration.ErrDomainRegistered,
		"NotDisputable":             arbitration.ErrNotDisputable,
		"AlreadyDisputed":           arbitration.ErrAlreadyDisputed,
		"NotDisputed":               arbitration.ErrNotDisputed,
		"NotAuthorized":             arbitration.ErrNotAuthorized,
		"InvalidDecision":           arbitration.ErrInvalidDecision,
		"TooManyEvidence":           arbitration.ErrTooManyEvidence,
		"NoEvidence":                arbitration.ErrNoEvidence,
		"AlreadyResponded":          arbitration.ErrAlreadyResponded,
		"ResponseDeadlinePassed":    arbitration.ErrResponseDeadlinePassed,
		"NotTwoWay":                 arbitration.ErrNotTwoWay,
		"ComplaintNotFound":         arbitration.ErrComplaintNotFound,
		"InvalidStatus":             arbitration.ErrInvalidStatus,
		"AppealDeadlineExpired":     arbitration.ErrAppealDeadlineExpired,
		"InvalidComplaintType":      arbitration.ErrInvalidComplaintType,
		"SelfComplaint":             arbitration.ErrSelfComplaint,
		"InsufficientDepositSource": arbitration.ErrInsufficientDepositSource,
	})
	register("Maker", map[string]error{
		"NotFound":          maker.ErrMakerNotFound,
		"NotActive":         maker.ErrMakerNotActive,
		"AlreadyExists":     maker.ErrMakerExists,
		"InvalidStatus":     maker.ErrInvalidStatus,
		"InvalidTronTarget": maker.ErrInvalidTronTarget,
		"DepositTooLow":     maker.ErrDepositTooLow,
		"NotAuthorized":     maker.ErrNotAuthorized,
	})
	register("Swap", map[string]error{
		"SwapNotFound":          swap.ErrSwapNotFound,
		"NotAuthorized":         swap.ErrNotAuthorized,
		"InvalidStatus":         swap.ErrInvalidStatus,
		"BelowMinimumAmount":    swap.ErrBelowMinimumAmount,
		"UsdtBelowMinimum":      swap.ErrUsdtBelowMinimum,
		"PriceNotAvailable":     swap.ErrPriceNotAvailable,
		"InvalidTronAddress":    swap.ErrInvalidTronAddress,
		"InvalidTxHash":         swap.ErrInvalidTxHash,
		"TronTxHashAlreadyUsed": swap.ErrTronTxHashAlreadyUsed,
		"NotYetTimeout":         swap.ErrNotYetTimeout,
		"VerificationNotFound":  swap.ErrVerificationNotFound,
		"ReasonTooLong":         swap.ErrReasonTooLong,
		"AlreadyReleased":       swap.ErrAlreadyReleased,
		"NotParty":              swap.ErrNotParty,
		"UnsignedRejected":      swap.ErrUnsignedRejected,
		"InvalidDecision":       swap.ErrInvalidDecision,
	})
	register("Affiliate", map[string]error{
		"InvalidCode":          affiliate.ErrInvalidCode,
		"AlreadyHasCode":       affiliate.ErrAlreadyHasCode,
		"CodeAlreadyTaken":     affiliate.ErrCodeAlreadyTaken,
		"CodeNotFound":         affiliate.ErrCodeNotFound,
		"AlreadyBound":         affiliate.ErrAlreadyBound,
		"SelfSponsor":          affiliate.ErrSelfSponsor,
		"CycleDetected":        affiliate.ErrCycleDetected,
		"SponsorNotMember":     affiliate.ErrSponsorNotMember,
		"InvalidPercents":      affiliate.ErrInvalidPercents,
		"InvalidMode":          affiliate.ErrInvalidMode,
		"InvalidBlocksPerWeek": affiliate.ErrInvalidBlocksPerWeek,
		"InvalidPrices":        affiliate.ErrInvalidPrices,
		"InvalidTier":          affiliate.ErrInvalidTier,
		"AlreadyMember":        affiliate.ErrAlreadyMember,
		"PriceNotAvailable":    affiliate.ErrPriceNotAvailable,
		"InvalidAmount":        affiliate.ErrInvalidAmount,
		"CycleAccountsFull":    affiliate.ErrCycleAccountsFull,
		"CycleNotClosed":       affiliate.ErrCycleNotClosed,
		"NotAuthorized":        affiliate.ErrNotAuthorized,
	})
	register("Governance", map[string]error{
		"Paused":                 governance.ErrPaused,
		"NotPaused":              governance.ErrNotPaused,
		"NotAuthorized":          governance.ErrNotAuthorized,
		"ProposalNotFound":       governance.ErrProposalNotFound,
		"TooManyActiveProposals": governance.ErrTooManyActive,
		"TooManyProposals":       governance.ErrTooManyProposals,
		"ProposalTooFrequent":    governance.ErrProposalGap,
		"CooldownActive":         governance.ErrRejectionCooldown,
		"InvalidPercents":        governance.ErrInvalidPercents,
		"InvalidPrices":          governance.ErrInvalidPrices,
		"NoChange":               governance.ErrNoChange,
		"InvalidChoice":          governance.ErrInvalidChoice,
		"InvalidConvictionType":  governance.ErrInvalidConviction,
		"NotVoting":              governance.ErrNotVoting,
		"NotDiscussion":          governance.ErrNotDiscussion,
		"NotProposer":            governance.ErrNotProposer,
		"AlreadyVoted":           governance.ErrAlreadyVoted,
		"NoVotingPower":          governance.ErrNoVotingPower,
		"VoteNotFound":           governance.ErrVoteNotFound,
		"VoteLocked":             governance.ErrVoteLocked,
		"NothingLocked":          governance.ErrNothingLocked,
		"ExecutorMissing":        governance.ErrExecutorMissing,
		"UnknownKind":            governance.ErrUnknownKind,
	})
}

// ErrorName resolves the stable "<Module>.<Name>" identifier clients use to
// recognise err. Module errors take precedence over the generic runtime and
// system errors they may wrap. Unregistered errors map to "Other".
func ErrorName(err error) string {
	if err == nil {
		return ""
	}
	for i := len(errorNames) - 1; i >= 0; i-- {
		if errors.Is(err, errorNames[i].err) {
			return errorNames[i].name
		}
	}
	return "Other"
}

// DispatchError pairs a failed call with the stable error name.
type DispatchError struct {
	Call string
	Name string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Call, e.Name, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }
