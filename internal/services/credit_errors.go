package services

import (
	"errors"
	"fmt"

	"github.com/lumen/credits/internal/store"
)

var (
	// ErrInvalidAmount is a caller error: amounts must be positive.
	ErrInvalidAmount = errors.New("amount must be a positive integer")

	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrUnknownTool = errors.New("unknown tool")

	// ErrBalanceOverflow rejects a top-up the wallet cannot represent.
	ErrBalanceOverflow = errors.New("wallet balance would overflow")

	ErrAccountNotFound   = store.ErrAccountNotFound
	ErrTransientConflict = store.ErrTransientConflict
)

// InsufficientBalanceError carries the wallet shortfall left after the
// daily allowance has been applied.
type InsufficientBalanceError struct {
	AccountID          string
	Requested          int64
	AllowanceAvailable int64
	WalletBalance      int64
	Shortfall          int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: requested %d, allowance available %d, wallet %d, shortfall %d",
		e.Requested, e.AllowanceAvailable, e.WalletBalance, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// IsRetryable reports whether the caller may retry the whole call later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientConflict)
}
