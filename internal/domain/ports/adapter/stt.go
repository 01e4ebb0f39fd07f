package adapter

import "context"

// Utterance is one diarized span of speech. Speaker is the provider's raw
// speaker id ("A", "B", ...); the formatting stage maps these to the stable
// "Speaker A" labels the rest of the pipeline relies on.
type Utterance struct {
	Speaker string
	Text    string
}

// SpeechToText transcribes one audio file with speaker diarization.
// Implementations are long-running network calls and must honor ctx
// cancellation and deadlines.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioPath, language string) ([]Utterance, error)
}
