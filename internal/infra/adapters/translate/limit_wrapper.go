package translate

import (
	"context"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.Translator = (*limitedTranslator)(nil)

type limitedTranslator struct {
	inner adapter.Translator
	sem   chan struct{}
}

// NewLimitedTranslator caps concurrent translation calls across all jobs.
func NewLimitedTranslator(inner adapter.Translator, maxConcurrent int) adapter.Translator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedTranslator{inner: inner, sem: make(chan struct{}, maxConcurrent)}
}

func (l *limitedTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string, speakers []string) (string, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.sem }()
	return l.inner.Translate(ctx, text, sourceLang, targetLang, speakers)
}
