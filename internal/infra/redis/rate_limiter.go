package redis

import (
	"context"
	"time"
)

// RateLimiter is a fixed-window counter shared across every process pointed
// at the same redis. The TTS wrapper uses it to stay inside the provider's
// per-minute request budget.
type RateLimiter struct {
	client *Client
}

func NewRateLimiter(client *Client) *RateLimiter {
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

// TTSRequestKey is the shared window key for provider synthesis calls.
const TTSRequestKey = "rate_limit:tts"
