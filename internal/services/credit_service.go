package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lumen/credits/internal/config"
	"github.com/lumen/credits/internal/models"
	"github.com/lumen/credits/internal/store"
)

// CreditService debits metered actions against the daily allowance first and
// the wallet second. It keeps no state of its own between calls; per-account
// serialisation is left to the account store.
type CreditService struct {
	accounts          store.AccountStore
	events            EventPublisher
	audit             *AuditLogger
	toolCosts         map[string]int64
	defaultDailyLimit int64
	location          *time.Location
	now               func() time.Time
	newID             func() string
}

func NewCreditService(accounts store.AccountStore, cfg *config.CreditsConfig, events EventPublisher) *CreditService {
	location := cfg.Timezone
	if location == nil {
		location = time.UTC
	}
	return &CreditService{
		accounts:          accounts,
		events:            events,
		audit:             NewAuditLogger(),
		toolCosts:         cfg.ToolCosts,
		defaultDailyLimit: cfg.DefaultDailyLimit,
		location:          location,
		now:               time.Now,
		newID:             uuid.NewString,
	}
}

// Consume debits amount from accountID. The whole computation, rollover
// included, is redone from a fresh snapshot on every store attempt.
func (s *CreditService) Consume(ctx context.Context, accountID string, amount int64, description string) (*models.ConsumeResult, error) {
	return s.consume(ctx, accountID, "", amount, description)
}

func (s *CreditService) consume(ctx context.Context, accountID, toolID string, amount int64, description string) (*models.ConsumeResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, entry, err := s.accounts.RunInAccountTransaction(ctx, accountID, func(snapshot models.CreditAccount) (models.CreditAccount, models.CreditLog, error) {
		now := s.now()
		next, split, err := planConsumption(snapshot, amount, s.dateOf(now))
		if err != nil {
			return models.CreditAccount{}, models.CreditLog{}, err
		}
		return next, models.CreditLog{
			ID:                      s.newID(),
			Type:                    models.CreditLogUsage,
			ToolID:                  toolID,
			Delta:                   -amount,
			Description:             description,
			Breakdown:               split,
			ResultingWalletBalance:  next.WalletBalance,
			ResultingAccessDaysBank: next.AccessDaysBank,
			Timestamp:               now.UTC(),
		}, nil
	})
	if err != nil {
		s.audit.LogRejected("CONSUME", accountID, amount, err)
		return nil, s.wrap(accountID, err)
	}

	log.Printf("[CREDITS] Consumed %d from %s (allowance=%d, wallet=%d, balance=%d)",
		amount, accountID, entry.Breakdown.AllowanceUsed, entry.Breakdown.WalletUsed, account.WalletBalance)
	s.audit.LogConsume(entry.ID, accountID, amount, entry.Breakdown.AllowanceUsed, entry.Breakdown.WalletUsed, account.WalletBalance)
	s.publish(ctx, entry)

	return &models.ConsumeResult{
		AccountID:     accountID,
		WalletBalance: account.WalletBalance,
		AllowanceUsed: entry.Breakdown.AllowanceUsed,
		WalletUsed:    entry.Breakdown.WalletUsed,
		LogID:         entry.ID,
	}, nil
}

// ConsumeTool charges the configured cost of toolID. Free tools succeed
// without touching the ledger.
func (s *CreditService) ConsumeTool(ctx context.Context, accountID, toolID, description string) (*models.ConsumeResult, error) {
	cost, ok := s.toolCosts[toolID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, toolID)
	}
	if description == "" {
		description = toolID
	}
	if cost == 0 {
		balance, err := s.GetBalance(ctx, accountID)
		if err != nil {
			return nil, err
		}
		return &models.ConsumeResult{AccountID: accountID, WalletBalance: balance}, nil
	}
	return s.consume(ctx, accountID, toolID, cost, description)
}

// Replenish credits the wallet. No rollover or allowance logic applies.
func (s *CreditService) Replenish(ctx context.Context, accountID string, amount int64, description string) (*models.ReplenishResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	account, entry, err := s.accounts.RunInAccountTransaction(ctx, accountID, func(snapshot models.CreditAccount) (models.CreditAccount, models.CreditLog, error) {
		if amount > math.MaxInt64-snapshot.WalletBalance {
			return models.CreditAccount{}, models.CreditLog{}, ErrBalanceOverflow
		}
		next := snapshot
		next.WalletBalance += amount
		return next, models.CreditLog{
			ID:                      s.newID(),
			Type:                    models.CreditLogTopUp,
			Delta:                   amount,
			Description:             description,
			ResultingWalletBalance:  next.WalletBalance,
			ResultingAccessDaysBank: next.AccessDaysBank,
			Timestamp:               s.now().UTC(),
		}, nil
	})
	if err != nil {
		s.audit.LogRejected("REPLENISH", accountID, amount, err)
		return nil, s.wrap(accountID, err)
	}

	log.Printf("[CREDITS] Replenished %d on %s (balance=%d)", amount, accountID, account.WalletBalance)
	s.audit.LogReplenish(entry.ID, accountID, amount, account.WalletBalance)
	s.publish(ctx, entry)

	return &models.ReplenishResult{
		AccountID:     accountID,
		WalletBalance: account.WalletBalance,
		LogID:         entry.ID,
	}, nil
}

// GetBalance returns the wallet balance. It is a plain point read and may
// trail an in-flight write.
func (s *CreditService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.WalletBalance, nil
}

func (s *CreditService) GetAccount(ctx context.Context, accountID string) (*models.CreditAccount, error) {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, s.wrap(accountID, err)
	}
	return &account, nil
}

func (s *CreditService) History(ctx context.Context, accountID string, limit int) ([]models.CreditLog, error) {
	logs, err := s.accounts.ListLogs(ctx, accountID, limit)
	if err != nil {
		return nil, s.wrap(accountID, err)
	}
	return logs, nil
}

// ProvisionAccount opens an empty wallet with the default daily allowance
// and the given access-day entitlement.
func (s *CreditService) ProvisionAccount(ctx context.Context, accountID string, accessDays int64) (*models.CreditAccount, error) {
	if accessDays < 0 {
		return nil, fmt.Errorf("access days must not be negative")
	}
	account := models.CreditAccount{
		AccountID:           accountID,
		DailyAllowanceLimit: s.defaultDailyLimit,
		AccessDaysBank:      accessDays,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("account %s: %w", accountID, err)
	}
	log.Printf("[CREDITS] Provisioned account %s (daily limit=%d, access days=%d)", accountID, s.defaultDailyLimit, accessDays)
	return &account, nil
}

func (s *CreditService) dateOf(t time.Time) string {
	return t.In(s.location).Format(models.DateLayout)
}

func (s *CreditService) publish(ctx context.Context, entry models.CreditLog) {
	if s.events == nil {
		return
	}
	event := CreditEvent{
		Type:          entry.Type,
		LogID:         entry.ID,
		AccountID:     entry.AccountID,
		ToolID:        entry.ToolID,
		Delta:         entry.Delta,
		AllowanceUsed: entry.Breakdown.AllowanceUsed,
		WalletUsed:    entry.Breakdown.WalletUsed,
		WalletBalance: entry.ResultingWalletBalance,
		OccurredAt:    entry.Timestamp,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("[CREDITS] Failed to publish %s event for %s: %v", entry.Type, entry.AccountID, err)
	}
}

func (s *CreditService) wrap(accountID string, err error) error {
	var insufficient *InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return err
	}
	return fmt.Errorf("account %s: %w", accountID, err)
}
