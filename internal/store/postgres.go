package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/lumen/credits/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS credit_accounts (
	account_id            TEXT PRIMARY KEY,
	wallet_balance        BIGINT NOT NULL DEFAULT 0 CHECK (wallet_balance >= 0),
	daily_allowance_limit BIGINT NOT NULL DEFAULT 0 CHECK (daily_allowance_limit >= 0),
	daily_usage           BIGINT NOT NULL DEFAULT 0 CHECK (daily_usage >= 0),
	access_days_bank      BIGINT NOT NULL DEFAULT 0 CHECK (access_days_bank >= 0),
	last_access_date      DATE,
	version               INTEGER NOT NULL DEFAULT 1,
	updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS credit_logs (
	seq                        BIGSERIAL PRIMARY KEY,
	id                         UUID NOT NULL UNIQUE,
	account_id                 TEXT NOT NULL REFERENCES credit_accounts(account_id),
	type                       TEXT NOT NULL,
	delta                      BIGINT NOT NULL,
	description                TEXT NOT NULL DEFAULT '',
	tool_id                    TEXT NOT NULL DEFAULT '',
	allowance_used             BIGINT NOT NULL DEFAULT 0,
	wallet_used                BIGINT NOT NULL DEFAULT 0,
	resulting_wallet_balance   BIGINT NOT NULL,
	resulting_access_days_bank BIGINT NOT NULL,
	created_at                 TIMESTAMPTZ NOT NULL
);

ALTER TABLE credit_logs ADD COLUMN IF NOT EXISTS tool_id TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_credit_logs_account_seq
	ON credit_logs(account_id, seq DESC);
`

const defaultLogLimit = 50

const selectAccount = `
	SELECT account_id, wallet_balance, daily_allowance_limit, daily_usage, access_days_bank,
	       COALESCE(TO_CHAR(last_access_date, 'YYYY-MM-DD'), ''), version, updated_at
	FROM credit_accounts
	WHERE account_id = $1`

// Postgres is the SQL AccountStore. Each attempt runs in its own database
// transaction: the account row is locked FOR UPDATE and the update is
// additionally guarded by the version column.
type Postgres struct {
	db     *sql.DB
	policy RetryPolicy
}

func NewPostgres(db *sql.DB, policy RetryPolicy) *Postgres {
	return &Postgres{db: db, policy: policy}
}

// Migrate creates the credit tables if they do not exist.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate credit schema: %w", err)
	}
	return nil
}

func (s *Postgres) CreateAccount(ctx context.Context, account models.CreditAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_accounts
		(account_id, wallet_balance, daily_allowance_limit, daily_usage, access_days_bank, last_access_date, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, 1, $7)`,
		account.AccountID, account.WalletBalance, account.DailyAllowanceLimit, account.DailyUsage,
		account.AccessDaysBank, account.LastAccessDate, time.Now().UTC())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *Postgres) GetAccount(ctx context.Context, accountID string) (models.CreditAccount, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx, selectAccount, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.CreditAccount{}, ErrAccountNotFound
	}
	if err != nil {
		return models.CreditAccount{}, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

func (s *Postgres) ListLogs(ctx context.Context, accountID string, limit int) ([]models.CreditLog, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM credit_accounts WHERE account_id = $1)`, accountID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if !exists {
		return nil, ErrAccountNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, account_id, type, delta, description, tool_id, allowance_used, wallet_used,
		       resulting_wallet_balance, resulting_access_days_bank, created_at
		FROM credit_logs
		WHERE account_id = $1
		ORDER BY seq DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit logs: %w", err)
	}
	defer rows.Close()

	logs := []models.CreditLog{}
	for rows.Next() {
		var entry models.CreditLog
		if err := rows.Scan(&entry.Seq, &entry.ID, &entry.AccountID, &entry.Type, &entry.Delta, &entry.Description, &entry.ToolID,
			&entry.Breakdown.AllowanceUsed, &entry.Breakdown.WalletUsed,
			&entry.ResultingWalletBalance, &entry.ResultingAccessDaysBank, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan credit log: %w", err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *Postgres) RunInAccountTransaction(ctx context.Context, accountID string, fn Mutation) (models.CreditAccount, models.CreditLog, error) {
	return runWithRetry(ctx, s.policy, accountID, func(ctx context.Context) (models.CreditAccount, models.CreditLog, error) {
		return s.attempt(ctx, accountID, fn)
	})
}

func (s *Postgres) attempt(ctx context.Context, accountID string, fn Mutation) (models.CreditAccount, models.CreditLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.CreditAccount{}, models.CreditLog{}, classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	snapshot, err := s.lockAccount(ctx, tx, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CreditAccount{}, models.CreditLog{}, ErrAccountNotFound
	}
	if err != nil {
		return models.CreditAccount{}, models.CreditLog{}, classify(fmt.Errorf("failed to lock account: %w", err))
	}

	next, entry, err := fn(snapshot)
	if err != nil {
		return models.CreditAccount{}, models.CreditLog{}, err
	}
	next.AccountID = accountID
	next.Version = snapshot.Version + 1
	next.UpdatedAt = time.Now().UTC()
	entry.AccountID = accountID

	if err := s.updateAccount(ctx, tx, next, snapshot.Version); err != nil {
		return models.CreditAccount{}, models.CreditLog{}, err
	}

	seq, err := s.insertLog(ctx, tx, entry)
	if err != nil {
		return models.CreditAccount{}, models.CreditLog{}, classify(err)
	}
	entry.Seq = seq

	if err := tx.Commit(); err != nil {
		return models.CreditAccount{}, models.CreditLog{}, classify(fmt.Errorf("failed to commit: %w", err))
	}
	return next, entry, nil
}

func (s *Postgres) lockAccount(ctx context.Context, tx *sql.Tx, accountID string) (models.CreditAccount, error) {
	return scanAccount(tx.QueryRowContext(ctx, selectAccount+"\n\tFOR UPDATE", accountID))
}

func (s *Postgres) updateAccount(ctx context.Context, tx *sql.Tx, account models.CreditAccount, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE credit_accounts
		SET wallet_balance = $1, daily_usage = $2, access_days_bank = $3,
		    last_access_date = NULLIF($4, '')::date, version = version + 1, updated_at = $5
		WHERE account_id = $6 AND version = $7`,
		account.WalletBalance, account.DailyUsage, account.AccessDaysBank,
		account.LastAccessDate, account.UpdatedAt, account.AccountID, version)
	if err != nil {
		return classify(fmt.Errorf("failed to update account: %w", err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrWriteConflict
	}
	return nil
}

func (s *Postgres) insertLog(ctx context.Context, tx *sql.Tx, entry models.CreditLog) (int64, error) {
	var seq int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO credit_logs
		(id, account_id, type, delta, description, tool_id, allowance_used, wallet_used,
		 resulting_wallet_balance, resulting_access_days_bank, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING seq`,
		entry.ID, entry.AccountID, entry.Type, entry.Delta, entry.Description, entry.ToolID,
		entry.Breakdown.AllowanceUsed, entry.Breakdown.WalletUsed,
		entry.ResultingWalletBalance, entry.ResultingAccessDaysBank, entry.Timestamp).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to append credit log: %w", err)
	}
	return seq, nil
}

func scanAccount(row *sql.Row) (models.CreditAccount, error) {
	var account models.CreditAccount
	err := row.Scan(&account.AccountID, &account.WalletBalance, &account.DailyAllowanceLimit,
		&account.DailyUsage, &account.AccessDaysBank, &account.LastAccessDate,
		&account.Version, &account.UpdatedAt)
	return account, err
}

// classify maps Postgres serialization failures and deadlocks to
// ErrWriteConflict so the attempt is retried.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", ErrWriteConflict, err)
		}
	}
	return err
}
