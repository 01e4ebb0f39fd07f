package translate

import (
	"context"
	"strings"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
)

var _ adapter.Translator = (*NoopTranslator)(nil)

// NoopTranslator echoes the chunk back with a language tag, keeping the
// speaker-label structure intact so the rest of the pipeline runs unchanged
// in dev mode.
type NoopTranslator struct{}

func NewNoopTranslator() *NoopTranslator { return &NoopTranslator{} }

func (n *NoopTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string, speakers []string) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, ": "); idx >= 0 {
			lines[i] = line[:idx+2] + "[" + targetLang + "] " + line[idx+2:]
		}
	}
	return strings.Join(lines, "\n"), nil
}
