package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/infra/metrics"
)

var _ adapter.SpeechToText = (*WhisperAdapter)(nil)

// WhisperAdapter implements adapter.SpeechToText against the OpenAI audio
// transcription API. Whisper does not diarize, so the whole transcript comes
// back as a single speaker; the formatting stage assigns the default label.
type WhisperAdapter struct {
	apiKey string
	base   string
	model  string
	client *http.Client
}

func NewWhisperAdapter(apiKey, baseURL string) (*WhisperAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &WhisperAdapter{
		apiKey: apiKey,
		base:   baseURL,
		model:  "whisper-1",
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (w *WhisperAdapter) Transcribe(ctx context.Context, audioPath, language string) ([]adapter.Utterance, error) {
	start := time.Now()
	utterances, err := w.transcribe(ctx, audioPath, language)
	metrics.ObserveProviderCall("whisper", "transcribe", int(time.Since(start).Milliseconds()), err == nil)
	return utterances, err
}

func (w *WhisperAdapter) transcribe(ctx context.Context, audioPath, language string) ([]adapter.Utterance, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("whisper: read audio: %w", err)
	}
	_ = mw.WriteField("model", w.model)
	if language != "" {
		_ = mw.WriteField("language", language)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("whisper http %d", resp.StatusCode)
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Text == "" {
		return nil, errors.New("whisper: empty transcript")
	}
	return []adapter.Utterance{{Speaker: "A", Text: payload.Text}}, nil
}
