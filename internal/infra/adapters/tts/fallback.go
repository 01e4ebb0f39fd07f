package tts

import (
	"context"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.TextToSpeech = (*FallbackTTS)(nil)

// FallbackTTS tries the primary synthesizer and falls back to the backup when
// the primary fails. The backup only helps when the requested voice exists in
// its catalog, so ListVoices exposes the union of both catalogs.
type FallbackTTS struct {
	primary adapter.TextToSpeech
	backup  adapter.TextToSpeech
}

func NewFallbackTTS(primary, backup adapter.TextToSpeech) adapter.TextToSpeech {
	if backup == nil {
		return primary
	}
	return &FallbackTTS{primary: primary, backup: backup}
}

func (f *FallbackTTS) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	audio, err := f.primary.Synthesize(ctx, req)
	if err == nil {
		return audio, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	return f.backup.Synthesize(ctx, req)
}

func (f *FallbackTTS) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	primary, err := f.primary.ListVoices(ctx, language)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return f.backup.ListVoices(ctx, language)
	}
	backup, err := f.backup.ListVoices(ctx, language)
	if err != nil {
		return primary, nil
	}
	seen := make(map[string]struct{}, len(primary))
	for _, v := range primary {
		seen[v.Name] = struct{}{}
	}
	out := primary
	for _, v := range backup {
		if _, ok := seen[v.Name]; !ok {
			out = append(out, v)
		}
	}
	return out, nil
}
