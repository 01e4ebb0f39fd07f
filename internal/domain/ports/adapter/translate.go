package adapter

import "context"

// Translator translates one chunk of a speaker-labeled transcript. Speaker
// labels must pass through verbatim; the prompt-building burden of enforcing
// that lives with the implementation.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string, speakers []string) (string, error)
}
