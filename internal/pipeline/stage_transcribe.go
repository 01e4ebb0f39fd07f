package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
)

// TranscribeStage runs diarized speech-to-text over every preprocessed chunk
// in order and concatenates the results into the raw source transcript.
type TranscribeStage struct {
	stt     adapter.SpeechToText
	timeout time.Duration
}

func NewTranscribeStage(stt adapter.SpeechToText, timeout time.Duration) *TranscribeStage {
	return &TranscribeStage{stt: stt, timeout: timeout}
}

func (s *TranscribeStage) ID() model.Stage        { return model.StageTranscribe }
func (s *TranscribeStage) Timeout() time.Duration { return s.timeout }

func (s *TranscribeStage) Run(ctx context.Context, jc *JobContext) error {
	chunksDir := jc.Store.StagePath(jc.Job.ID, model.StagePreprocess)
	entries, err := os.ReadDir(chunksDir)
	if err != nil {
		return fmt.Errorf("read chunk dir: %w", err)
	}

	var chunks []string
	for _, e := range entries {
		name := e.Name()
		switch strings.ToLower(filepath.Ext(name)) {
		case ".wav", ".mp3", ".m4a":
			chunks = append(chunks, name)
		}
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no audio chunks found in %s", chunksDir)
	}
	sort.Strings(chunks)

	var lines []string
	for i, name := range chunks {
		jc.Log.Info().Int("chunk", i+1).Int("total", len(chunks)).Msg("transcribing chunk")
		utterances, err := s.stt.Transcribe(ctx, filepath.Join(chunksDir, name), jc.Job.SourceLanguage)
		if err != nil {
			return fmt.Errorf("transcribe chunk %s: %w", name, err)
		}
		for _, u := range utterances {
			speaker := u.Speaker
			if !strings.HasPrefix(speaker, "Speaker ") {
				speaker = "Speaker " + speaker
			}
			lines = append(lines, speaker+": "+strings.TrimSpace(u.Text))
		}
	}
	if len(lines) == 0 {
		return fmt.Errorf("transcription produced no utterances")
	}

	out := jc.Store.StagePath(jc.Job.ID, model.StageTranscribe)
	return jc.Store.WriteFileAtomic(out, []byte(strings.Join(lines, "\n")+"\n"))
}
