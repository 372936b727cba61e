package bank

import "errors"

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInsufficientHeld    = errors.New("bank: insufficient held balance")
	ErrBelowExistential    = errors.New("bank: transfer leaves recipient below existential deposit")
	ErrInvalidAmount       = errors.New("bank: invalid amount")
	ErrUnknownHoldReason   = errors.New("bank: unknown hold reason")
	ErrNilStore            = errors.New("bank: storage not configured")
)
