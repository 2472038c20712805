package services

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogger(t *testing.T) {
	recorder := &auditRecorder{}
	audit := &AuditLogger{logf: recorder.logf}

	audit.LogConsume("log-1", "u1", 25, 10, 15, 85)
	audit.LogReplenish("log-2", "u1", 500, 585)
	audit.LogRejected("CONSUME", "u1", 900, errors.New("insufficient balance"))

	require.Len(t, recorder.lines, 3)

	var events []AuditEvent
	for _, line := range recorder.lines {
		require.True(t, strings.HasPrefix(line, "AUDIT: "))
		var event AuditEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "AUDIT: ")), &event))
		events = append(events, event)
	}

	assert.Equal(t, "CONSUME", events[0].EventType)
	assert.Equal(t, "log-1", events[0].LogID)
	assert.Equal(t, "SUCCESS", events[0].Status)
	assert.Equal(t, map[string]any{"allowance_used": float64(10), "wallet_used": float64(15), "wallet_balance": float64(85)}, events[0].Details)

	assert.Equal(t, "REPLENISH", events[1].EventType)
	assert.Equal(t, int64(500), events[1].Amount)

	assert.Equal(t, "FAILED", events[2].Status)
	assert.Empty(t, events[2].LogID)
	assert.Equal(t, map[string]any{"error": "insufficient balance"}, events[2].Details)
}
