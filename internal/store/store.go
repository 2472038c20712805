// Package store holds the account store adapters used by the credit ledger.
//
// Every adapter gives the same guarantee: the account read, the mutation and
// the write of both the new account state and its audit entry happen
// atomically per account. Write conflicts are retried with a fresh snapshot
// up to a bounded number of attempts.
package store

import (
	"context"
	"errors"

	"github.com/lumen/credits/internal/models"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountExists   = errors.New("account already exists")

	// ErrWriteConflict signals a concurrent modification on a single attempt.
	// It never leaves the store; callers see ErrTransientConflict instead.
	ErrWriteConflict = errors.New("concurrent modification detected")

	// ErrTransientConflict is returned when the retry budget is exhausted.
	// Safe to retry the whole operation later.
	ErrTransientConflict = errors.New("transient conflict: retry budget exhausted")
)

// Mutation computes the next account state and the audit entry recording it.
// It is called once per attempt with a freshly read snapshot, so it must not
// carry decisions over between calls. Returning an error aborts the
// transaction without any write.
type Mutation func(account models.CreditAccount) (models.CreditAccount, models.CreditLog, error)

// AccountStore is the Account Store Adapter.
type AccountStore interface {
	// RunInAccountTransaction reads the account, applies fn and persists the
	// resulting account and log entry atomically. It returns what was committed.
	RunInAccountTransaction(ctx context.Context, accountID string, fn Mutation) (models.CreditAccount, models.CreditLog, error)

	// GetAccount is a non-transactional point read.
	GetAccount(ctx context.Context, accountID string) (models.CreditAccount, error)

	// ListLogs returns audit entries, newest first.
	ListLogs(ctx context.Context, accountID string, limit int) ([]models.CreditLog, error)

	// CreateAccount provisions an account row. Used by onboarding.
	CreateAccount(ctx context.Context, account models.CreditAccount) error
}
