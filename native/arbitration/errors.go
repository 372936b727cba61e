package arbitration

import "errors"

var (
	errNilState = errors.New("arbitration: state not configured")

	ErrUnknownDomain             = errors.New("arbitration: unknown domain")
	ErrDomainRegistered          = errors.New("arbitration: domain already registered")
	ErrNotDisputable             = errors.New("arbitration: object not disputable")
	ErrAlreadyDisputed           = errors.New("arbitration: already disputed")
	ErrNotDisputed               = errors.New("arbitration: no active dispute")
	ErrNotAuthorized             = errors.New("arbitration: not authorized")
	ErrInvalidDecision           = errors.New("arbitration: invalid decision")
	ErrTooManyEvidence           = errors.New("arbitration: too many evidence ids")
	ErrNoEvidence                = errors.New("arbitration: evidence required")
	ErrAlreadyResponded          = errors.New("arbitration: already responded")
	ErrResponseDeadlinePassed    = errors.New("arbitration: response deadline passed")
	ErrNotTwoWay                 = errors.New("arbitration: dispute has no deposits")
	ErrComplaintNotFound         = errors.New("arbitration: complaint not found")
	ErrInvalidStatus             = errors.New("arbitration: invalid complaint status")
	ErrAppealDeadlineExpired     = errors.New("arbitration: appeal deadline expired")
	ErrInvalidComplaintType      = errors.New("arbitration: invalid complaint type")
	ErrSelfComplaint             = errors.New("arbitration: cannot complain about self")
	ErrInsufficientDepositSource = errors.New("arbitration: deposit could not be priced")
)
