package redis

import (
	"context"
	"testing"
)

func TestRedisQuotaCounterIncrAndGet(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)
	counter, err := NewRedisQuotaCounter(rdb)
	if err != nil {
		t.Fatalf("NewRedisQuotaCounter() error = %v", err)
	}

	count, err := counter.Get(context.Background(), "2026-08-31")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("fresh day count = %d, want 0", count)
	}

	for i := 1; i <= 3; i++ {
		count, err = counter.Incr(context.Background(), "2026-08-31")
		if err != nil {
			t.Fatalf("Incr() error = %v", err)
		}
		if count != int64(i) {
			t.Fatalf("Incr() = %d, want %d", count, i)
		}
	}

	count, err = counter.Get(context.Background(), "2026-08-31")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestRedisQuotaCounterNewDateStartsFresh(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)
	counter, err := NewRedisQuotaCounter(rdb)
	if err != nil {
		t.Fatalf("NewRedisQuotaCounter() error = %v", err)
	}

	if _, err := counter.Incr(context.Background(), "2026-08-30"); err != nil {
		t.Fatalf("Incr() error = %v", err)
	}

	count, err := counter.Get(context.Background(), "2026-08-31")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("next-day count = %d, want 0", count)
	}
}

func TestRedisQuotaCounterRequiresDay(t *testing.T) {
	t.Parallel()

	rdb := newTestRedisClient(t)
	counter, err := NewRedisQuotaCounter(rdb)
	if err != nil {
		t.Fatalf("NewRedisQuotaCounter() error = %v", err)
	}

	if _, err := counter.Incr(context.Background(), ""); err == nil {
		t.Fatal("Incr() expected error for empty day")
	}
	if _, err := counter.Get(context.Background(), " "); err == nil {
		t.Fatal("Get() expected error for blank day")
	}
}
