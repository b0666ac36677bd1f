package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter over Redis INCR/EXPIRE.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// DeviceActivateKey scopes activation attempts per device identifier.
func DeviceActivateKey(deviceID string) string {
	return fmt.Sprintf("rate_limit:activate:%s", deviceID)
}

// AdminGenerateKey scopes code generation requests per admin session subject.
func AdminGenerateKey(subject string) string {
	return fmt.Sprintf("rate_limit:generate:%s", subject)
}
