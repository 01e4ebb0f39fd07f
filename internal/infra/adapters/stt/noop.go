package stt

import (
	"context"
	"path/filepath"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.SpeechToText = (*NoopSTT)(nil)

// NoopSTT stands in for the real provider in dev mode. It fabricates a short
// two-speaker exchange so the downstream stages have something to chew on.
type NoopSTT struct{}

func NewNoopSTT() *NoopSTT { return &NoopSTT{} }

func (n *NoopSTT) Transcribe(ctx context.Context, audioPath, language string) ([]adapter.Utterance, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	name := filepath.Base(audioPath)
	return []adapter.Utterance{
		{Speaker: "A", Text: "This is placeholder dialogue for " + name + "."},
		{Speaker: "B", Text: "Agreed, nothing was actually transcribed."},
	}, nil
}
