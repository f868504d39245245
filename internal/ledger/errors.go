package ledger

import (
	"errors"
	"fmt"
)

// ErrRejected is the root of every business-rule rejection. A rejected record
// leaves the store untouched.
var ErrRejected = errors.New("record rejected")

var (
	ErrInvalidAmount        = fmt.Errorf("%w: amount must be positive", ErrRejected)
	ErrAccountLocked        = fmt.Errorf("%w: account locked", ErrRejected)
	ErrDuplicateTransaction = fmt.Errorf("%w: duplicate transaction id", ErrRejected)
	ErrInsufficientFunds    = fmt.Errorf("%w: insufficient funds", ErrRejected)
	ErrUnknownTransaction   = fmt.Errorf("%w: unknown transaction", ErrRejected)
	ErrAlreadyDisputed      = fmt.Errorf("%w: transaction already disputed", ErrRejected)
	ErrNoOpenDispute        = fmt.Errorf("%w: no open dispute", ErrRejected)
)
