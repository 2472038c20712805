package services

import (
	"encoding/json"
	"log"
	"time"
)

type AuditEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	LogID     string    `json:"log_id,omitempty"`
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	Details   any       `json:"details"`
}

// AuditLogger writes credit events as JSON log lines. Committed operations
// are also persisted as credit logs; rejected ones only appear here.
type AuditLogger struct {
	logf func(format string, v ...any)
}

func NewAuditLogger() *AuditLogger {
	return &AuditLogger{logf: log.Printf}
}

func (a *AuditLogger) LogConsume(logID, accountID string, amount, allowanceUsed, walletUsed, balance int64) {
	a.log(AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: "CONSUME",
		LogID:     logID,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details: map[string]int64{
			"allowance_used": allowanceUsed,
			"wallet_used":    walletUsed,
			"wallet_balance": balance,
		},
	})
}

func (a *AuditLogger) LogReplenish(logID, accountID string, amount, balance int64) {
	a.log(AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: "REPLENISH",
		LogID:     logID,
		AccountID: accountID,
		Amount:    amount,
		Status:    "SUCCESS",
		Details:   map[string]int64{"wallet_balance": balance},
	})
}

func (a *AuditLogger) LogRejected(operation, accountID string, amount int64, err error) {
	a.log(AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: operation,
		AccountID: accountID,
		Amount:    amount,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	data, _ := json.Marshal(event)
	a.logf("AUDIT: %s", string(data))
}
