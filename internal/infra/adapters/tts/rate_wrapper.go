package tts

import (
	"context"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
)

// RateLimiter is a fixed-window counter; the redis implementation satisfies
// it. Allow reports whether one more request fits the window's budget.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var _ adapter.TextToSpeech = (*rateLimitedTTS)(nil)

// rateLimitedTTS holds synthesis calls to a per-minute budget, shared across
// processes when the limiter is redis-backed. Over-budget calls wait for the
// next window instead of failing, since a pipeline run has no useful way to
// handle a rate error other than retrying.
type rateLimitedTTS struct {
	inner   adapter.TextToSpeech
	limiter RateLimiter
	key     string
	perMin  int
}

func NewRateLimitedTTS(inner adapter.TextToSpeech, limiter RateLimiter, key string, requestsPerMinute int) adapter.TextToSpeech {
	if limiter == nil || requestsPerMinute <= 0 {
		return inner
	}
	return &rateLimitedTTS{inner: inner, limiter: limiter, key: key, perMin: requestsPerMinute}
}

func (r *rateLimitedTTS) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	for {
		ok, err := r.limiter.Allow(ctx, r.key, r.perMin, time.Minute)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.inner.Synthesize(ctx, req)
}

func (r *rateLimitedTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	return r.inner.ListVoices(ctx, language)
}
