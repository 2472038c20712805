package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lumen/credits/internal/models"
)

const DefaultMaxAttempts = 5

// RetryPolicy bounds how long a conflicting transaction is retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     DefaultMaxAttempts,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
	}
}

type committed struct {
	account models.CreditAccount
	entry   models.CreditLog
}

// attemptFunc runs one transaction attempt. ErrWriteConflict is retried,
// anything else is returned as is.
type attemptFunc func(ctx context.Context) (models.CreditAccount, models.CreditLog, error)

func runWithRetry(ctx context.Context, policy RetryPolicy, accountID string, attempt attemptFunc) (models.CreditAccount, models.CreditLog, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	if policy.MaxInterval > 0 {
		b.MaxInterval = policy.MaxInterval
	}

	tries := 0
	res, err := backoff.Retry(ctx, func() (committed, error) {
		tries++
		if err := ctx.Err(); err != nil {
			return committed{}, backoff.Permanent(err)
		}
		account, entry, err := attempt(ctx)
		if err == nil {
			return committed{account: account, entry: entry}, nil
		}
		if errors.Is(err, ErrWriteConflict) {
			return committed{}, err
		}
		return committed{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(policy.MaxAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("[STORE] Conflict on account %s (attempt %d), retrying in %v", accountID, tries, next)
		}),
	)
	if err != nil {
		if errors.Is(err, ErrWriteConflict) {
			return models.CreditAccount{}, models.CreditLog{}, fmt.Errorf("account %s after %d attempts: %w", accountID, tries, ErrTransientConflict)
		}
		return models.CreditAccount{}, models.CreditLog{}, err
	}
	return res.account, res.entry, nil
}
