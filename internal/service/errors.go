package service

import "errors"

// Transfer rejection taxonomy. Everything except ErrStorageFault is a
// deterministic business rejection and is returned to the caller verbatim.
// ErrStorageFault is opaque: the underlying cause is logged, and because
// the unit of work rolls back completely, the caller never has to wonder
// whether partial state exists.
var (
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrSourceNotFound      = errors.New("source account not found")
	ErrDestinationNotFound = errors.New("destination account not found")
	ErrAccountBlocked      = errors.New("account is blocked")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrSameAccount         = errors.New("source and destination are the same account")
	ErrBusy                = errors.New("account busy, try again")
	ErrStorageFault        = errors.New("internal error")
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// IsRejection reports whether err is one of the deterministic transfer
// rejections, as opposed to a storage fault.
func IsRejection(err error) bool {
	for _, rejection := range []error{
		ErrInvalidAmount,
		ErrSourceNotFound,
		ErrDestinationNotFound,
		ErrAccountBlocked,
		ErrInsufficientFunds,
		ErrSameAccount,
		ErrBusy,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
