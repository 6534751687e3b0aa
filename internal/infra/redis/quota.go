package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/groomhub/notify-engine/internal/quota"
	goredis "github.com/redis/go-redis/v9"
)

// Counter keys live for two days so a counter survives reads shortly after
// the UTC boundary; the date in the key does the actual daily reset.
const quotaKeyTTLSeconds = 2 * 24 * 60 * 60

var quotaIncrScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`)

var _ quota.Counter = (*RedisQuotaCounter)(nil)

// RedisQuotaCounter stores per-day provider call counts under date-suffixed
// keys. There is no reset job: a new UTC date produces a new key that starts
// at zero.
type RedisQuotaCounter struct {
	client *goredis.Client
	script *goredis.Script
}

func NewRedisQuotaCounter(client *goredis.Client) (*RedisQuotaCounter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	return &RedisQuotaCounter{
		client: client,
		script: quotaIncrScript,
	}, nil
}

func (c *RedisQuotaCounter) Incr(ctx context.Context, day string) (int64, error) {
	if c == nil || c.client == nil || c.script == nil {
		return 0, fmt.Errorf("quota counter is not initialized")
	}
	if err := validateDay(day); err != nil {
		return 0, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	count, err := c.script.Run(ctx, c.client, []string{quotaKey(day)}, quotaKeyTTLSeconds).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment quota counter: %w", err)
	}

	return count, nil
}

func (c *RedisQuotaCounter) Get(ctx context.Context, day string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, fmt.Errorf("quota counter is not initialized")
	}
	if err := validateDay(day); err != nil {
		return 0, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	count, err := c.client.Get(ctx, quotaKey(day)).Int64()
	if err == goredis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota counter: %w", err)
	}

	return count, nil
}

func quotaKey(day string) string {
	return fmt.Sprintf("quota:calls:%s", day)
}

func validateDay(day string) error {
	if strings.TrimSpace(day) == "" {
		return fmt.Errorf("day is required")
	}
	return nil
}
