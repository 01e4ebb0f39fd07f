package adapter

import "context"

// Voice is one entry of a provider's voice catalog for a language.
type Voice struct {
	Name            string `json:"name"`
	Gender          string `json:"gender"`
	SampleRateHertz int    `json:"sample_rate_hertz"`
}

// SpeechRequest is one segment-level synthesis call.
type SpeechRequest struct {
	Text         string
	Language     string
	Voice        string
	SpeakingRate float64
}

// TextToSpeech synthesizes audio for one dialogue segment and exposes the
// voice catalog used to validate regeneration requests. Synthesize is a
// long-running network call and must honor ctx deadlines.
type TextToSpeech interface {
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
	ListVoices(ctx context.Context, language string) ([]Voice, error)
}
