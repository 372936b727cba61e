package affiliate

import "errors"

var (
	errNilState = errors.New("affiliate: state not configured")

	ErrInvalidCode          = errors.New("affiliate: invalid code")
	ErrAlreadyHasCode       = errors.New("affiliate: account already has a code")
	ErrCodeAlreadyTaken     = errors.New("affiliate: code already taken")
	ErrCodeNotFound         = errors.New("affiliate: code not found")
	ErrAlreadyBound         = errors.New("affiliate: sponsor already bound")
	ErrSelfSponsor          = errors.New("affiliate: cannot sponsor self")
	ErrCycleDetected        = errors.New("affiliate: referral cycle detected")
	ErrSponsorNotMember     = errors.New("affiliate: sponsor is not a member")
	ErrInvalidPercents      = errors.New("affiliate: invalid percents")
	ErrInvalidMode          = errors.New("affiliate: invalid settlement mode")
	ErrInvalidBlocksPerWeek = errors.New("affiliate: invalid blocks per week")
	ErrInvalidPrices        = errors.New("affiliate: invalid membership prices")
	ErrInvalidTier          = errors.New("affiliate: invalid membership tier")
	ErrAlreadyMember        = errors.New("affiliate: membership tier already held")
	ErrPriceNotAvailable    = errors.New("affiliate: price not available")
	ErrInvalidAmount        = errors.New("affiliate: invalid amount")
	ErrCycleAccountsFull    = errors.New("affiliate: cycle account list full")
	ErrCycleNotClosed       = errors.New("affiliate: cycle still open")
	ErrNotAuthorized        = errors.New("affiliate: not authorized")
)
