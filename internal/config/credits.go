package config

import (
	"log"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type CreditsConfig struct {
	Timezone          *time.Location
	DefaultDailyLimit int64
	MaxAttempts       int
	RetryInitial      time.Duration
	RetryMax          time.Duration
	RateLimitMax      int
	RateLimitWindow   time.Duration
	EventsQueue       string
	ToolCosts         map[string]int64
}

var defaultToolCosts = map[string]any{
	"viral_radar":        0,
	"analytics_pro":      0,
	"optimizer_ab":       0,
	"support_chat":       10,
	"whatsapp_evolution": 15,
}

// BindEnv maps environment variables onto the dotted config keys.
func BindEnv() {
	viper.BindEnv("server.port", "PORT")

	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.enabled", "REDIS_ENABLED")
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")

	viper.BindEnv("credits.timezone", "CREDITS_TIMEZONE")
	viper.BindEnv("credits.default_daily_limit", "CREDITS_DEFAULT_DAILY_LIMIT")
	viper.BindEnv("credits.max_attempts", "CREDITS_MAX_ATTEMPTS")
	viper.BindEnv("credits.retry_initial", "CREDITS_RETRY_INITIAL")
	viper.BindEnv("credits.retry_max", "CREDITS_RETRY_MAX")
	viper.BindEnv("credits.rate_limit_max", "CREDITS_RATE_LIMIT_MAX")
	viper.BindEnv("credits.rate_limit_window", "CREDITS_RATE_LIMIT_WINDOW")
	viper.BindEnv("credits.events_queue", "CREDITS_EVENTS_QUEUE")
	viper.BindEnv("credits.tool_costs", "CREDITS_TOOL_COSTS")
}

func LoadCreditsConfig() *CreditsConfig {
	viper.SetDefault("credits.timezone", "UTC")
	viper.SetDefault("credits.default_daily_limit", 50)
	viper.SetDefault("credits.max_attempts", 5)
	viper.SetDefault("credits.retry_initial", 10*time.Millisecond)
	viper.SetDefault("credits.retry_max", 200*time.Millisecond)
	viper.SetDefault("credits.rate_limit_max", 120)
	viper.SetDefault("credits.rate_limit_window", time.Minute)
	viper.SetDefault("credits.events_queue", "credit_events")
	viper.SetDefault("credits.tool_costs", defaultToolCosts)

	loc, err := time.LoadLocation(viper.GetString("credits.timezone"))
	if err != nil {
		log.Printf("[CONFIG] Unknown credits.timezone %q, falling back to UTC: %v", viper.GetString("credits.timezone"), err)
		loc = time.UTC
	}

	return &CreditsConfig{
		Timezone:          loc,
		DefaultDailyLimit: viper.GetInt64("credits.default_daily_limit"),
		MaxAttempts:       viper.GetInt("credits.max_attempts"),
		RetryInitial:      viper.GetDuration("credits.retry_initial"),
		RetryMax:          viper.GetDuration("credits.retry_max"),
		RateLimitMax:      viper.GetInt("credits.rate_limit_max"),
		RateLimitWindow:   viper.GetDuration("credits.rate_limit_window"),
		EventsQueue:       viper.GetString("credits.events_queue"),
		ToolCosts:         parseToolCosts(viper.GetStringMap("credits.tool_costs")),
	}
}

// parseToolCosts drops entries that are not non-negative integers.
func parseToolCosts(raw map[string]any) map[string]int64 {
	costs := make(map[string]int64, len(raw))
	for toolID, v := range raw {
		cost, err := cast.ToInt64E(v)
		if err != nil || cost < 0 {
			log.Printf("[CONFIG] Ignoring invalid cost for tool %s: %v", toolID, v)
			continue
		}
		costs[toolID] = cost
	}
	return costs
}
