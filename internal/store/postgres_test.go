package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/lumen/credits/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lockQuery = "SELECT account_id, wallet_balance, .+ FROM credit_accounts\\s+WHERE account_id = \\$1\\s+FOR UPDATE"

var accountColumns = []string{
	"account_id", "wallet_balance", "daily_allowance_limit", "daily_usage",
	"access_days_bank", "last_access_date", "version", "updated_at",
}

func newPostgresMock(t *testing.T, maxAttempts int) (*Postgres, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	policy := testPolicy()
	policy.MaxAttempts = maxAttempts
	return NewPostgres(db, policy), mock
}

func accountRow(balance int64, version int) *sqlmock.Rows {
	return sqlmock.NewRows(accountColumns).
		AddRow("acc1", balance, 50, 20, 3, "2026-10-18", version, time.Now())
}

func spend(amount int64) Mutation {
	return func(account models.CreditAccount) (models.CreditAccount, models.CreditLog, error) {
		account.WalletBalance -= amount
		return account, models.CreditLog{
			ID:                      "3f1b7c52-8a5e-4d7e-9a61-1c2d3e4f5a6b",
			Type:                    models.CreditLogUsage,
			Delta:                   -amount,
			Description:             "chat",
			Breakdown:               models.Breakdown{WalletUsed: amount},
			ResultingWalletBalance:  account.WalletBalance,
			ResultingAccessDaysBank: account.AccessDaysBank,
			Timestamp:               time.Now().UTC(),
		}, nil
	}
}

func expectUpdate(mock sqlmock.Sqlmock, balance int64, version int) *sqlmock.ExpectedExec {
	return mock.ExpectExec("UPDATE credit_accounts").
		WithArgs(balance, 20, 3, "2026-10-18", sqlmock.AnyArg(), "acc1", version)
}

func TestPostgres_RunInAccountTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("successful commit", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(accountRow(100, 4))
		expectUpdate(mock, 70, 4).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO credit_logs").
			WithArgs("3f1b7c52-8a5e-4d7e-9a61-1c2d3e4f5a6b", "acc1", models.CreditLogUsage, -30, "chat", "",
				0, 30, 70, 3, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(12))
		mock.ExpectCommit()

		account, entry, err := s.RunInAccountTransaction(ctx, "acc1", spend(30))
		require.NoError(t, err)
		assert.Equal(t, int64(70), account.WalletBalance)
		assert.Equal(t, 5, account.Version)
		assert.Equal(t, int64(12), entry.Seq)
		assert.Equal(t, "acc1", entry.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("account not found", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(sqlmock.NewRows(accountColumns))
		mock.ExpectRollback()

		_, _, err := s.RunInAccountTransaction(ctx, "acc1", spend(30))
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mutation error rolls back", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)
		rejected := errors.New("rejected")

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(accountRow(100, 1))
		mock.ExpectRollback()

		_, _, err := s.RunInAccountTransaction(ctx, "acc1", func(models.CreditAccount) (models.CreditAccount, models.CreditLog, error) {
			return models.CreditAccount{}, models.CreditLog{}, rejected
		})
		assert.ErrorIs(t, err, rejected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale version is retried", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(accountRow(100, 1))
		expectUpdate(mock, 90, 1).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(accountRow(80, 2))
		expectUpdate(mock, 70, 2).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO credit_logs").WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(3))
		mock.ExpectCommit()

		account, _, err := s.RunInAccountTransaction(ctx, "acc1", spend(10))
		require.NoError(t, err)
		assert.Equal(t, int64(70), account.WalletBalance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization failure is retried", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnError(&pq.Error{Code: "40P01"})
		mock.ExpectRollback()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(accountRow(100, 1))
		expectUpdate(mock, 90, 1).WillReturnError(&pq.Error{Code: "40001"})
		mock.ExpectRollback()

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(accountRow(100, 1))
		expectUpdate(mock, 90, 1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO credit_logs").WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(1))
		mock.ExpectCommit()

		_, _, err := s.RunInAccountTransaction(ctx, "acc1", spend(10))
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("retry budget exhausted", func(t *testing.T) {
		s, mock := newPostgresMock(t, 2)

		for i := 0; i < 2; i++ {
			mock.ExpectBegin()
			mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(accountRow(100, 1))
			expectUpdate(mock, 90, 1).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectRollback()
		}

		_, _, err := s.RunInAccountTransaction(ctx, "acc1", spend(10))
		assert.ErrorIs(t, err, ErrTransientConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("log insert failure rolls back", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs("acc1").WillReturnRows(accountRow(100, 1))
		expectUpdate(mock, 90, 1).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO credit_logs").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, _, err := s.RunInAccountTransaction(ctx, "acc1", spend(10))
		assert.ErrorContains(t, err, "failed to append credit log")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_GetAccount(t *testing.T) {
	ctx := context.Background()
	s, mock := newPostgresMock(t, 5)

	mock.ExpectQuery("SELECT account_id, wallet_balance, .+ FROM credit_accounts\\s+WHERE account_id = \\$1").
		WithArgs("acc1").
		WillReturnRows(accountRow(100, 3))

	account, err := s.GetAccount(ctx, "acc1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), account.WalletBalance)
	assert.Equal(t, "2026-10-18", account.LastAccessDate)
	assert.Equal(t, 3, account.Version)

	mock.ExpectQuery("SELECT account_id, wallet_balance").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(accountColumns))

	_, err = s.GetAccount(ctx, "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListLogs(t *testing.T) {
	ctx := context.Background()

	t.Run("newest first with default limit", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)
		now := time.Now().UTC()

		mock.ExpectQuery("SELECT EXISTS").WithArgs("acc1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery("FROM credit_logs\\s+WHERE account_id = \\$1\\s+ORDER BY seq DESC\\s+LIMIT \\$2").
			WithArgs("acc1", defaultLogLimit).
			WillReturnRows(sqlmock.NewRows([]string{
				"seq", "id", "account_id", "type", "delta", "description", "tool_id", "allowance_used", "wallet_used",
				"resulting_wallet_balance", "resulting_access_days_bank", "created_at",
			}).
				AddRow(2, "log-2", "acc1", "usage", -30, "chat", "support_chat", 10, 20, 80, 2, now).
				AddRow(1, "log-1", "acc1", "topup", 100, "purchase", "", 0, 0, 100, 2, now))

		logs, err := s.ListLogs(ctx, "acc1", 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, "log-2", logs[0].ID)
		assert.Equal(t, "support_chat", logs[0].ToolID)
		assert.Equal(t, models.Breakdown{AllowanceUsed: 10, WalletUsed: 20}, logs[0].Breakdown)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)

		mock.ExpectQuery("SELECT EXISTS").WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := s.ListLogs(ctx, "missing", 10)
		assert.ErrorIs(t, err, ErrAccountNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_CreateAccount(t *testing.T) {
	ctx := context.Background()
	account := models.CreditAccount{AccountID: "acc1", DailyAllowanceLimit: 50, AccessDaysBank: 30}

	t.Run("created", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)

		mock.ExpectExec("INSERT INTO credit_accounts").
			WithArgs("acc1", 0, 50, 0, 30, "", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, s.CreateAccount(ctx, account))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate", func(t *testing.T) {
		s, mock := newPostgresMock(t, 5)

		mock.ExpectExec("INSERT INTO credit_accounts").WillReturnError(&pq.Error{Code: "23505"})

		assert.ErrorIs(t, s.CreateAccount(ctx, account), ErrAccountExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newPostgresMock(t, 5)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS credit_accounts").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
