//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRedis struct {
	counts  map[string]int64
	expires map[string]time.Duration
	incrErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(ctx context.Context) error { return nil }

func (f *fakeRedis) Incr(ctx context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) error {
	f.expires[key] = expiration
	return nil
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.counts, k)
	}
	return nil
}

func (f *fakeRedis) Close() error { return nil }

func TestRateLimiterFixedWindow(t *testing.T) {
	t.Parallel()
	client := newFakeRedis()
	rl := NewRateLimiter(client)
	key := DeviceActivateKey("machine-1")

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(context.Background(), key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("attempt %d: ok=%v err=%v", i+1, ok, err)
		}
	}
	ok, err := rl.Allow(context.Background(), key, 3, time.Minute)
	if err != nil || ok {
		t.Fatalf("over limit: ok=%v err=%v", ok, err)
	}

	// The window TTL is attached exactly once, on the first hit.
	if client.expires[key] != time.Minute {
		t.Errorf("expire: %v", client.expires[key])
	}

	// Counters are scoped per key.
	if ok, _ := rl.Allow(context.Background(), DeviceActivateKey("machine-2"), 3, time.Minute); !ok {
		t.Error("unrelated device throttled")
	}
}

func TestRateLimiterPropagatesErrors(t *testing.T) {
	t.Parallel()
	client := newFakeRedis()
	client.incrErr = errors.New("connection refused")
	rl := NewRateLimiter(client)

	if _, err := rl.Allow(context.Background(), "k", 1, time.Minute); err == nil {
		t.Error("redis error swallowed")
	}
}

func TestRateLimitKeys(t *testing.T) {
	t.Parallel()
	if got := DeviceActivateKey("m-1"); got != "rate_limit:activate:m-1" {
		t.Errorf("device key: %q", got)
	}
	if got := AdminGenerateKey("admin"); got != "rate_limit:generate:admin" {
		t.Errorf("admin key: %q", got)
	}
}
