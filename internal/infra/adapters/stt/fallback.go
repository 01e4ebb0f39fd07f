package stt

import (
	"context"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.SpeechToText = (*FallbackSTT)(nil)

// FallbackSTT tries the primary transcriber and falls back to the backup when
// the primary fails. Context cancellation is not retried against the backup.
type FallbackSTT struct {
	primary adapter.SpeechToText
	backup  adapter.SpeechToText
}

func NewFallbackSTT(primary, backup adapter.SpeechToText) adapter.SpeechToText {
	if backup == nil {
		return primary
	}
	return &FallbackSTT{primary: primary, backup: backup}
}

func (f *FallbackSTT) Transcribe(ctx context.Context, audioPath, language string) ([]adapter.Utterance, error) {
	utterances, err := f.primary.Transcribe(ctx, audioPath, language)
	if err == nil {
		return utterances, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return f.backup.Transcribe(ctx, audioPath, language)
}
