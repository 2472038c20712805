package models

import (
	"time"
)

// DateLayout is the calendar-date format used for last_access_date.
const DateLayout = "2006-01-02"

const (
	CreditLogUsage = "usage"
	CreditLogTopUp = "topup"
)

// CreditAccount is the per-user credit ledger row.
type CreditAccount struct {
	AccountID           string    `json:"accountId" db:"account_id"`
	WalletBalance       int64     `json:"walletBalance" db:"wallet_balance"`
	DailyAllowanceLimit int64     `json:"dailyAllowanceLimit" db:"daily_allowance_limit"`
	DailyUsage          int64     `json:"dailyUsage" db:"daily_usage"`
	AccessDaysBank      int64     `json:"accessDaysBank" db:"access_days_bank"`
	LastAccessDate      string    `json:"lastAccessDate" db:"last_access_date"` // YYYY-MM-DD, empty if never used
	Version             int       `json:"-" db:"version"`                      // for optimistic locking
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

// Breakdown splits a debit between the daily allowance and the wallet.
type Breakdown struct {
	AllowanceUsed int64 `json:"allowanceUsed"`
	WalletUsed    int64 `json:"walletUsed"`
}

// CreditLog is an immutable audit entry, one per committed consume or top-up.
type CreditLog struct {
	Seq                     int64     `json:"seq" db:"seq"`
	ID                      string    `json:"id" db:"id"`
	AccountID               string    `json:"accountId" db:"account_id"`
	Type                    string    `json:"type" db:"type"`   // usage or topup
	Delta                   int64     `json:"delta" db:"delta"` // negative for usage
	Description             string    `json:"description" db:"description"`
	ToolID                  string    `json:"toolId,omitempty" db:"tool_id"`
	Breakdown               Breakdown `json:"breakdown"`
	ResultingWalletBalance  int64     `json:"resultingWalletBalance" db:"resulting_wallet_balance"`
	ResultingAccessDaysBank int64     `json:"resultingAccessDaysBank" db:"resulting_access_days_bank"`
	Timestamp               time.Time `json:"timestamp" db:"created_at"`
}

type ConsumeResult struct {
	AccountID     string `json:"accountId"`
	WalletBalance int64  `json:"walletBalance"`
	AllowanceUsed int64  `json:"allowanceUsed"`
	WalletUsed    int64  `json:"walletUsed"`
	LogID         string `json:"logId,omitempty"`
}

type ReplenishResult struct {
	AccountID     string `json:"accountId"`
	WalletBalance int64  `json:"walletBalance"`
	LogID         string `json:"logId"`
}
