package redis

import (
	"context"
	"encoding/json"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.TextToSpeech = (*CachedTTS)(nil)

// CachedTTS caches the provider's voice catalog per language. Catalogs change
// rarely and every regeneration request validates against one, so the cache
// removes a provider round-trip from the request path. Synthesis passes
// through untouched.
type CachedTTS struct {
	inner  adapter.TextToSpeech
	client *Client
	ttl    time.Duration
}

func NewCachedTTS(inner adapter.TextToSpeech, client *Client, ttl time.Duration) *CachedTTS {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedTTS{inner: inner, client: client, ttl: ttl}
}

func voiceKey(language string) string { return "voice_catalog:" + language }

func (c *CachedTTS) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	return c.inner.Synthesize(ctx, req)
}

func (c *CachedTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	if raw, err := c.client.Get(ctx, voiceKey(language)); err == nil {
		var voices []adapter.Voice
		if json.Unmarshal([]byte(raw), &voices) == nil && len(voices) > 0 {
			return voices, nil
		}
	}

	voices, err := c.inner.ListVoices(ctx, language)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(voices); err == nil {
		// Best effort; a failed cache write only costs the next lookup.
		_ = c.client.Set(ctx, voiceKey(language), b, c.ttl)
	}
	return voices, nil
}
