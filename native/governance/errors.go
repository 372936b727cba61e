package governance

import "errors"

var (
	errNilState = errors.New("governance: state not configured")

	ErrPaused            = errors.New("governance: emergency pause active")
	ErrNotPaused         = errors.New("governance: not paused")
	ErrNotAuthorized     = errors.New("governance: origin not authorized")
	ErrProposalNotFound  = errors.New("governance: proposal not found")
	ErrTooManyActive     = errors.New("governance: proposer has too many active proposals")
	ErrTooManyProposals  = errors.New("governance: active proposal table full")
	ErrProposalGap       = errors.New("governance: proposal gap not elapsed")
	ErrRejectionCooldown = errors.New("governance: proposer in rejection cooldown")
	ErrInvalidPercents   = errors.New("governance: invalid percent array")
	ErrInvalidPrices     = errors.New("governance: invalid membership prices")
	ErrNoChange          = errors.New("governance: proposal does not change the value")
	ErrInvalidChoice     = errors.New("governance: invalid vote choice")
	ErrInvalidConviction = errors.New("governance: conviction must be between 0 and 6")
	ErrNotVoting         = errors.New("governance: proposal not in voting period")
	ErrNotDiscussion     = errors.New("governance: proposal not in discussion")
	ErrNotProposer       = errors.New("governance: only the proposer may cancel")
	ErrAlreadyVoted      = errors.New("governance: account already voted")
	ErrNoVotingPower     = errors.New("governance: account has no voting power")
	ErrVoteNotFound      = errors.New("governance: vote not found")
	ErrVoteLocked        = errors.New("governance: vote lock still active")
	ErrNothingLocked     = errors.New("governance: vote holds no lock")
	ErrExecutorMissing   = errors.New("governance: executor not configured")
	ErrUnknownKind       = errors.New("governance: unknown proposal kind")
)
