package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNoopProvider(t *testing.T) {
	var p Provider = NoopProvider{}
	ctx := context.Background()

	if err := p.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := p.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected cache miss, got %v", err)
	}
	if err := p.Del(ctx, "k"); err != nil {
		t.Fatalf("Del: %v", err)
	}
}

func TestNewRedisProviderRequiresAddr(t *testing.T) {
	if _, err := NewRedisProvider(RedisConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestNormaliseDurations(t *testing.T) {
	cfg := RedisConfig{MaxRetries: -3}
	normaliseDurations(&cfg)
	if cfg.DialTimeout != 2*time.Second || cfg.ReadTimeout != 500*time.Millisecond || cfg.WriteTimeout != 500*time.Millisecond {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.MaxRetries != 0 {
		t.Fatalf("expected retries clamped to 0, got %d", cfg.MaxRetries)
	}
}
