package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultTTL = 60 * time.Second

// Cache is a read-through cache over a Source. Values are valid for up to the
// TTL; a stale read means slightly outdated settings for one request, never a
// correctness violation. If a refresh fails while a cached value exists, the
// stale value is served and the failure is logged.
type Cache struct {
	source Source
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	values   Values
	loadedAt time.Time
}

func NewCache(source Source, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	if source == nil {
		return nil, fmt.Errorf("settings source is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Cache{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (c *Cache) Get(ctx context.Context) (Values, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loadedAt.IsZero() && c.now().Sub(c.loadedAt) < c.ttl {
		return c.values, nil
	}

	values, err := c.source.Load(ctx)
	if err != nil {
		if !c.loadedAt.IsZero() {
			c.logger.Warn("settings refresh failed, serving stale values", zap.Error(err))
			return c.values, nil
		}
		return Values{}, fmt.Errorf("failed to load settings: %w", err)
	}

	c.values = values
	c.loadedAt = c.now()
	return c.values, nil
}

// Invalidate drops the cached values so the next Get hits the source.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadedAt = time.Time{}
}
