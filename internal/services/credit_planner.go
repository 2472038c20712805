package services

import (
	"github.com/lumen/credits/internal/models"
)

// rollover resynchronises dailyUsage and the access-day bank when the
// account was last used on a different calendar day. With days left in the
// bank a fresh allowance is granted and one day is spent; without, the day's
// allowance is treated as already exhausted.
func rollover(account models.CreditAccount, today string) models.CreditAccount {
	if account.LastAccessDate == today {
		return account
	}
	if account.AccessDaysBank > 0 {
		account.AccessDaysBank--
		account.DailyUsage = 0
	} else {
		account.DailyUsage = account.DailyAllowanceLimit
	}
	return account
}

// planConsumption computes the account state after debiting amount on
// today. The allowance is always drawn before the wallet. The input is not
// modified; on insufficient balance nothing of the rollover is kept.
func planConsumption(account models.CreditAccount, amount int64, today string) (models.CreditAccount, models.Breakdown, error) {
	next := rollover(account, today)

	available := max(0, next.DailyAllowanceLimit-next.DailyUsage)
	split := models.Breakdown{AllowanceUsed: min(available, amount)}
	split.WalletUsed = amount - split.AllowanceUsed

	if split.WalletUsed > next.WalletBalance {
		return account, models.Breakdown{}, &InsufficientBalanceError{
			AccountID:          account.AccountID,
			Requested:          amount,
			AllowanceAvailable: available,
			WalletBalance:      next.WalletBalance,
			Shortfall:          split.WalletUsed - next.WalletBalance,
		}
	}

	next.WalletBalance -= split.WalletUsed
	next.DailyUsage += split.AllowanceUsed
	next.LastAccessDate = today
	return next, split, nil
}
