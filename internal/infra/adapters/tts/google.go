package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/infra/metrics"
)

var _ adapter.TextToSpeech = (*GoogleTTSAdapter)(nil)

// GoogleTTSAdapter implements adapter.TextToSpeech against the Google Cloud
// Text-to-Speech REST API with an API key.
type GoogleTTSAdapter struct {
	apiKey string
	base   string
	client *http.Client
}

func NewGoogleTTSAdapter(apiKey string) (*GoogleTTSAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("google tts api key empty")
	}
	return &GoogleTTSAdapter{
		apiKey: apiKey,
		base:   "https://texttospeech.googleapis.com/v1",
		client: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// languageCodes maps the short language names jobs carry to the BCP-47 codes
// the API expects. Unknown names pass through untouched, which also lets
// callers supply full codes directly.
var languageCodes = map[string]string{
	"en": "en-US",
	"ja": "ja-JP",
	"es": "es-ES",
	"fr": "fr-FR",
	"de": "de-DE",
	"it": "it-IT",
	"pt": "pt-BR",
	"ko": "ko-KR",
	"zh": "cmn-CN",
	"ru": "ru-RU",
	"hi": "hi-IN",
	"ar": "ar-XA",
}

func languageCode(language string) string {
	if code, ok := languageCodes[strings.ToLower(language)]; ok {
		return code
	}
	return language
}

func (g *GoogleTTSAdapter) Synthesize(ctx context.Context, req adapter.SpeechRequest) ([]byte, error) {
	start := time.Now()
	audio, err := g.synthesize(ctx, req)
	metrics.ObserveProviderCall("google_tts", "synthesize", int(time.Since(start).Milliseconds()), err == nil)
	return audio, err
}

func (g *GoogleTTSAdapter) synthesize(ctx context.Context, sr adapter.SpeechRequest) ([]byte, error) {
	body := struct {
		Input struct {
			Text string `json:"text"`
		} `json:"input"`
		Voice struct {
			LanguageCode string `json:"languageCode"`
			Name         string `json:"name,omitempty"`
		} `json:"voice"`
		AudioConfig struct {
			AudioEncoding string  `json:"audioEncoding"`
			SpeakingRate  float64 `json:"speakingRate,omitempty"`
		} `json:"audioConfig"`
	}{}
	body.Input.Text = sr.Text
	body.Voice.LanguageCode = languageCode(sr.Language)
	body.Voice.Name = sr.Voice
	body.AudioConfig.AudioEncoding = "MP3"
	body.AudioConfig.SpeakingRate = sr.SpeakingRate

	b, _ := json.Marshal(body)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, g.base+"/text:synthesize?key="+url.QueryEscape(g.apiKey), bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("google tts http %d", resp.StatusCode)
	}

	var payload struct {
		AudioContent string `json:"audioContent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	audio, err := base64.StdEncoding.DecodeString(payload.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("google tts returned empty audio")
	}
	return audio, nil
}

func (g *GoogleTTSAdapter) ListVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	start := time.Now()
	voices, err := g.listVoices(ctx, language)
	metrics.ObserveProviderCall("google_tts", "list_voices", int(time.Since(start).Milliseconds()), err == nil)
	return voices, err
}

func (g *GoogleTTSAdapter) listVoices(ctx context.Context, language string) ([]adapter.Voice, error) {
	u := g.base + "/voices?key=" + url.QueryEscape(g.apiKey) + "&languageCode=" + url.QueryEscape(languageCode(language))
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("google tts voices http %d", resp.StatusCode)
	}

	var payload struct {
		Voices []struct {
			Name                   string `json:"name"`
			SSMLGender             string `json:"ssmlGender"`
			NaturalSampleRateHertz int    `json:"naturalSampleRateHertz"`
		} `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	out := make([]adapter.Voice, 0, len(payload.Voices))
	for _, v := range payload.Voices {
		out = append(out, adapter.Voice{
			Name:            v.Name,
			Gender:          v.SSMLGender,
			SampleRateHertz: v.NaturalSampleRateHertz,
		})
	}
	return out, nil
}
