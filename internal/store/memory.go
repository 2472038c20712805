package store

import (
	"context"
	"sync"
	"time"

	"github.com/lumen/credits/internal/models"
)

// Memory is an in-memory AccountStore for tests and local development.
// Attempts on the same account are serialised by a per-account lock and
// committed only if the version read at the start is still current.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]models.CreditAccount
	logs     map[string][]models.CreditLog
	locks    map[string]chan struct{}
	seq      int64
	policy   RetryPolicy

	// beforeCommit runs between the mutation and the version check.
	beforeCommit func(accountID string)
}

func NewMemory(policy RetryPolicy) *Memory {
	return &Memory{
		accounts: make(map[string]models.CreditAccount),
		logs:     make(map[string][]models.CreditLog),
		locks:    make(map[string]chan struct{}),
		policy:   policy,
	}
}

func (m *Memory) CreateAccount(_ context.Context, account models.CreditAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[account.AccountID]; ok {
		return ErrAccountExists
	}
	account.Version = 1
	account.UpdatedAt = time.Now().UTC()
	m.accounts[account.AccountID] = account
	return nil
}

func (m *Memory) GetAccount(_ context.Context, accountID string) (models.CreditAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[accountID]
	if !ok {
		return models.CreditAccount{}, ErrAccountNotFound
	}
	return account, nil
}

func (m *Memory) ListLogs(_ context.Context, accountID string, limit int) ([]models.CreditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[accountID]; !ok {
		return nil, ErrAccountNotFound
	}
	logs := m.logs[accountID]
	result := make([]models.CreditLog, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, logs[i])
	}
	return result, nil
}

func (m *Memory) RunInAccountTransaction(ctx context.Context, accountID string, fn Mutation) (models.CreditAccount, models.CreditLog, error) {
	lock := m.accountLock(accountID)
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return models.CreditAccount{}, models.CreditLog{}, ctx.Err()
	}
	defer func() { <-lock }()

	return runWithRetry(ctx, m.policy, accountID, func(ctx context.Context) (models.CreditAccount, models.CreditLog, error) {
		return m.attempt(ctx, accountID, fn)
	})
}

func (m *Memory) attempt(ctx context.Context, accountID string, fn Mutation) (models.CreditAccount, models.CreditLog, error) {
	snapshot, err := m.GetAccount(ctx, accountID)
	if err != nil {
		return models.CreditAccount{}, models.CreditLog{}, err
	}

	next, entry, err := fn(snapshot)
	if err != nil {
		return models.CreditAccount{}, models.CreditLog{}, err
	}

	if m.beforeCommit != nil {
		m.beforeCommit(accountID)
	}
	if err := ctx.Err(); err != nil {
		return models.CreditAccount{}, models.CreditLog{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current := m.accounts[accountID]
	if current.Version != snapshot.Version {
		return models.CreditAccount{}, models.CreditLog{}, ErrWriteConflict
	}

	next.AccountID = accountID
	next.Version = snapshot.Version + 1
	next.UpdatedAt = time.Now().UTC()
	m.accounts[accountID] = next

	m.seq++
	entry.Seq = m.seq
	entry.AccountID = accountID
	m.logs[accountID] = append(m.logs[accountID], entry)

	return next, entry, nil
}

// accountLock returns the single-slot semaphore serialising accountID, so
// waiting for it can be abandoned when the context ends.
func (m *Memory) accountLock(accountID string) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[accountID]
	if !ok {
		lock = make(chan struct{}, 1)
		m.locks[accountID] = lock
	}
	return lock
}

