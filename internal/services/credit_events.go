package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

// CreditEvent is pushed to the events queue after every committed change.
type CreditEvent struct {
	Type          string    `json:"type"`
	LogID         string    `json:"logId"`
	AccountID     string    `json:"accountId"`
	ToolID        string    `json:"toolId,omitempty"`
	Delta         int64     `json:"delta"`
	AllowanceUsed int64     `json:"allowanceUsed"`
	WalletUsed    int64     `json:"walletUsed"`
	WalletBalance int64     `json:"walletBalance"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event CreditEvent) error
}

// RedisPublisher appends events to a Redis list consumed by the
// notification workers.
type RedisPublisher struct {
	redis *redis.Client
	queue string
}

func NewRedisPublisher(client *redis.Client, queue string) *RedisPublisher {
	return &RedisPublisher{redis: client, queue: queue}
}

func (p *RedisPublisher) Publish(ctx context.Context, event CreditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.redis.RPush(ctx, p.queue, data).Err()
}
