package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	key := "credits:ratelimit:u1"

	t.Run("first hit starts the window", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		limiter := NewRateLimiter(client, 2, time.Minute)

		mock.ExpectIncr(key).SetVal(1)
		mock.ExpectExpire(key, time.Minute).SetVal(true)

		ok, err := limiter.Allow(ctx, "u1")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("over the limit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		limiter := NewRateLimiter(client, 2, time.Minute)

		mock.ExpectIncr(key).SetVal(3)

		ok, err := limiter.Allow(ctx, "u1")
		assert.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails open on redis errors", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		limiter := NewRateLimiter(client, 2, time.Minute)

		mock.ExpectIncr(key).SetErr(errors.New("connection refused"))

		ok, err := limiter.Allow(ctx, "u1")
		assert.Error(t, err)
		assert.True(t, ok)
	})

	t.Run("disabled without redis", func(t *testing.T) {
		var limiter *RateLimiter
		ok, err := limiter.Allow(ctx, "u1")
		assert.NoError(t, err)
		assert.True(t, ok)

		ok, err = NewRateLimiter(nil, 2, time.Minute).Allow(ctx, "u1")
		assert.NoError(t, err)
		assert.True(t, ok)
	})
}
