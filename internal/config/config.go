package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	GatewayURL         string `env:"GATEWAY_URL,required=true"`
	GatewayAPIKey      string `env:"GATEWAY_API_KEY,required=true"`
	BookingPortalURL   string `env:"BOOKING_PORTAL_URL,required=true"`
	FallbackRedirect   string `env:"FALLBACK_REDIRECT_URL,required=true"`
	RateLimitPerSec    int    `env:"RATE_LIMIT_PER_SEC,default=25"`
	RetrySweepLimit    int    `env:"RETRY_SWEEP_LIMIT,default=100"`
	ReminderSweepLimit int    `env:"REMINDER_SWEEP_LIMIT,default=500"`
	SettingsTTLSeconds int    `env:"SETTINGS_TTL_SECONDS,default=60"`
	APIPort            int    `env:"API_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
