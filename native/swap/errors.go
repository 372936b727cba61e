package swap

import "errors"

var (
	errNilState = errors.New("swap: state not configured")

	ErrSwapNotFound          = errors.New("swap: not found")
	ErrNotAuthorized         = errors.New("swap: not authorized")
	ErrInvalidStatus         = errors.New("swap: invalid status")
	ErrBelowMinimumAmount    = errors.New("swap: amount below minimum")
	ErrUsdtBelowMinimum      = errors.New("swap: usdt amount below minimum")
	ErrPriceNotAvailable     = errors.New("swap: price not available")
	ErrInvalidTronAddress    = errors.New("swap: invalid tron address")
	ErrInvalidTxHash         = errors.New("swap: invalid tx hash")
	ErrTronTxHashAlreadyUsed = errors.New("swap: tron tx hash already used")
	ErrNotYetTimeout         = errors.New("swap: timeout not reached")
	ErrVerificationNotFound  = errors.New("swap: verification request not found")
	ErrReasonTooLong         = errors.New("swap: reason too long")
	ErrAlreadyReleased       = errors.New("swap: funds already released")
	ErrNotParty              = errors.New("swap: account is not a party")
	ErrUnsignedRejected      = errors.New("swap: unsigned submission rejected")
	ErrInvalidDecision       = errors.New("swap: invalid decision")
)
