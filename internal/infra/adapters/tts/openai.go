package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/infra/metrics"
)

var _ adapter.TextToSpeech = (*OpenAITTSAdapter)(nil)

// openAIVoices is the fixed catalog of the OpenAI speech API. The voices are
// multilingual, so the catalog is the same for every language code.
var openAIVoices = []adapter.Voice{
	{Name: "alloy", Gender: "NEUTRAL", SampleRateHertz: 24000},
	{Name: "echo", Gender: "MALE", SampleRateHertz: 24000},
	{Name: "fable", Gender: "NEUTRAL", SampleRateHertz: 24000},
	{Name: "onyx", Gender: "MALE", SampleRateHertz: 24000},
	{Name: "nova", Gender: "FEMALE", SampleRateHertz: 24000},
	{Name: "shimmer", Gender: "FEMALE", SampleRateHertz: 24000},
}

// OpenAITTSAdapter implements adapter.TextToSpeech against the OpenAI speech
// API. It serves as the fallback synthesizer behind Google TTS.
type OpenAITTSAdapter struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func NewOpenAITTSAdapter(apiKey, baseURL string) (*OpenAITTSAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAITTSAdapter{
		apiKey: apiKey,
		base:   baseURL,
		model:  "tts-1",
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (o *OpenAITTSAdapter) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	start := time.Now()
	audio, err := o.synthesize(ctx, req)
	metrics.ObserveProviderCall("openai_tts", "synthesize", int(time.Since(start).Milliseconds()), err == nil)
	return audio, err
}

func (o *OpenAITTSAdapter) synthesize(ctx context.Context, sr adapter.SpeechRequest) ([]byte, error) {
	reqBody := struct {
		Model  string  `json:"model"`
		Input  string  `json:"input"`
		Voice  string  `json:"voice"`
		Speed  float64 `json:"speed,omitempty"`
		Format string  `json:"response_format"`
	}{Model: o.model, Input: sr.Text, Voice: sr.Voice, Speed: sr.SpeakingRate, Format: "mp3"}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/audio/speech", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai tts http %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("openai tts: empty audio")
	}
	return audio, nil
}

func (o *OpenAITTSAdapter) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	out := make([]adapter.Voice, len(openAIVoices))
	copy(out, openAIVoices)
	return out, nil
}
