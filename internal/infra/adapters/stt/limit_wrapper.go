package stt

import (
	"context"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.SpeechToText = (*limitedSTT)(nil)

type limitedSTT struct {
	inner adapter.SpeechToText
	sem   chan struct{}
}

// NewLimitedSTT caps concurrent transcription calls across all pipeline runs.
func NewLimitedSTT(inner adapter.SpeechToText, maxConcurrent int) adapter.SpeechToText {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedSTT{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (l *limitedSTT) Transcribe(ctx context.Context, audioPath, language string) ([]adapter.Utterance, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Transcribe(ctx, audioPath, language)
}
