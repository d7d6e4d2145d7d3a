package token

import "errors"

// Engine errors. Operations wrap these with the offending account or
// amount so callers can both match with errors.Is and read the message.
var (
	ErrNotInitialized         = errors.New("token not initialized")
	ErrAlreadyInitialized     = errors.New("token already initialized")
	ErrUnauthorized           = errors.New("caller not authorized")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAccountNotFound        = errors.New("account not found")
	ErrSourceAccountNotFound  = errors.New("source account not found")
	ErrDestinationNotSignedUp = errors.New("destination account not signed up")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrArithmeticOverflow     = errors.New("arithmetic overflow")
	ErrArithmeticUnderflow    = errors.New("arithmetic underflow")
	ErrSupplyNotFound         = errors.New("total supply not found")
	ErrNoHistory              = errors.New("no transaction history")
	ErrSelfTransfer           = errors.New("transfer from and to the same account")
)
