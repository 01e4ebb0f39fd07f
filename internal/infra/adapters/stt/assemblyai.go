package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/infra/metrics"
)

var _ adapter.SpeechToText = (*AssemblyAIAdapter)(nil)

// AssemblyAIAdapter implements adapter.SpeechToText against the AssemblyAI
// REST API: upload the audio, create a transcript with speaker diarization,
// poll until it settles.
type AssemblyAIAdapter struct {
	apiKey       string
	base         string
	pollInterval time.Duration
	client       *http.Client
}

func NewAssemblyAIAdapter(apiKey string) (*AssemblyAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("assemblyai api key empty")
	}
	return &AssemblyAIAdapter{
		apiKey:       apiKey,
		base:         "https://api.assemblyai.com/v2",
		pollInterval: 3 * time.Second,
		client:       &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (a *AssemblyAIAdapter) Transcribe(ctx context.Context, audioPath, language string) ([]adapter.Utterance, error) {
	start := time.Now()
	utterances, err := a.transcribe(ctx, audioPath, language)
	metrics.ObserveProviderCall("assemblyai", "transcribe", int(time.Since(start).Milliseconds()), err == nil)
	return utterances, err
}

func (a *AssemblyAIAdapter) transcribe(ctx context.Context, audioPath, language string) ([]adapter.Utterance, error) {
	audioURL, err := a.upload(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	id, err := a.createTranscript(ctx, audioURL, language)
	if err != nil {
		return nil, err
	}
	return a.poll(ctx, id)
}

func (a *AssemblyAIAdapter) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/upload", f)
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("assemblyai upload http %d", resp.StatusCode)
	}

	var payload struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.UploadURL == "" {
		return "", errors.New("assemblyai upload returned no url")
	}
	return payload.UploadURL, nil
}

func (a *AssemblyAIAdapter) createTranscript(ctx context.Context, audioURL, language string) (string, error) {
	reqBody := struct {
		AudioURL      string `json:"audio_url"`
		SpeakerLabels bool   `json:"speaker_labels"`
		LanguageCode  string `json:"language_code,omitempty"`
	}{AudioURL: audioURL, SpeakerLabels: true, LanguageCode: language}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, a.base+"/transcript", bytes.NewReader(b))
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("assemblyai transcript http %d", resp.StatusCode)
	}

	var payload struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", errors.New("assemblyai returned no transcript id")
	}
	return payload.ID, nil
}

func (a *AssemblyAIAdapter) poll(ctx context.Context, id string) ([]adapter.Utterance, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, a.base+"/transcript/"+id, nil)
		req.Header.Set("Authorization", a.apiKey)
		resp, err := a.client.Do(req)
		if err != nil {
			return nil, err
		}
		var payload struct {
			Status     string `json:"status"`
			Error      string `json:"error"`
			Utterances []struct {
				Speaker string `json:"speaker"`
				Text    string `json:"text"`
			} `json:"utterances"`
		}
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}

		switch payload.Status {
		case "completed":
			out := make([]adapter.Utterance, 0, len(payload.Utterances))
			for _, u := range payload.Utterances {
				out = append(out, adapter.Utterance{Speaker: u.Speaker, Text: u.Text})
			}
			if len(out) == 0 {
				return nil, errors.New("assemblyai transcript has no utterances")
			}
			return out, nil
		case "error":
			return nil, fmt.Errorf("assemblyai transcription failed: %s", payload.Error)
		}
		// queued / processing: keep polling
	}
}
