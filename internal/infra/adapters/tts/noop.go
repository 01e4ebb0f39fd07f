package tts

import (
	"context"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.TextToSpeech = (*NoopTTS)(nil)

// NoopTTS produces placeholder bytes instead of audio and serves a small
// fixed voice catalog, enough for the dev-mode pipeline and the web layer's
// voice listing to function.
type NoopTTS struct{}

func NewNoopTTS() *NoopTTS { return &NoopTTS{} }

func (n *NoopTTS) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []byte("noop-audio:" + req.Voice + ":" + req.Text), nil
}

func (n *NoopTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	code := languageCode(language)
	return []adapter.Voice{
		{Name: code + "-Noop-A", Gender: "FEMALE", SampleRateHertz: 24000},
		{Name: code + "-Noop-B", Gender: "MALE", SampleRateHertz: 24000},
	}, nil
}
