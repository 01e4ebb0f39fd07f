package tts

import (
	"context"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.TextToSpeech = (*limitedTTS)(nil)

type limitedTTS struct {
	inner adapter.TextToSpeech
	sem   chan struct{}
}

// NewLimitedTTS caps concurrent synthesis calls across all jobs. Voice
// listing is metadata and passes through unlimited.
func NewLimitedTTS(inner adapter.TextToSpeech, maxConcurrent int) adapter.TextToSpeech {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedTTS{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (l *limitedTTS) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Synthesize(ctx, req)
}

func (l *limitedTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	return l.inner.ListVoices(ctx, language)
}
