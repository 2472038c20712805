package database

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

// InitRedis connects to Redis for rate limiting and credit events.
// It returns nil when Redis is disabled or unreachable; both features
// degrade to no-ops in that case.
func InitRedis(ctx context.Context) *redis.Client {
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	if !viper.GetBool("redis.enabled") {
		log.Println("Redis disabled, rate limiting and credit events are off")
		return nil
	}

	addr := viper.GetString("redis.host") + ":" + viper.GetString("redis.port")
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.db"),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Printf("Redis connection failed, continuing without Redis: %v", err)
		rdb.Close()
		return nil
	}

	log.Println("Redis connection established")
	return rdb
}
