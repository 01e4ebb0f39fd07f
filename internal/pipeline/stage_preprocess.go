package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"audio-translation-service/internal/domain/model"
)

// PreprocessStage normalizes the uploaded audio for speech recognition and
// splits it into five-minute chunks: mono, 16 kHz, loudness-normalized WAV.
// It shells out to ffmpeg; audio DSP itself is out of scope here.
type PreprocessStage struct {
	ffmpeg string
}

func NewPreprocessStage(ffmpegPath string) *PreprocessStage {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &PreprocessStage{ffmpeg: ffmpegPath}
}

func (s *PreprocessStage) ID() model.Stage        { return model.StagePreprocess }
func (s *PreprocessStage) Timeout() time.Duration { return 0 }

func (s *PreprocessStage) Run(ctx context.Context, jc *JobContext) error {
	src := jc.Store.UploadPath(jc.Job.ID, jc.Job.OriginalFilename)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("original upload missing: %w", err)
	}

	chunksDir := jc.Store.StagePath(jc.Job.ID, model.StagePreprocess)
	tmp := chunksDir + ".tmp"
	if err := os.RemoveAll(tmp); err != nil {
		return fmt.Errorf("clear temp chunk dir: %w", err)
	}
	if err := os.MkdirAll(tmp, 0o755); err != nil {
		return fmt.Errorf("create temp chunk dir: %w", err)
	}

	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-i", src,
		"-ac", "1",
		"-ar", "16000",
		"-af", "loudnorm",
		"-f", "segment",
		"-segment_time", "300",
		filepath.Join(tmp, "chunk_%03d.wav"),
	}
	cmd := exec.CommandContext(ctx, s.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(tmp)
		return fmt.Errorf("ffmpeg preprocessing failed: %w: %s", err, tail(stderr.String(), 400))
	}

	entries, err := os.ReadDir(tmp)
	if err != nil || len(entries) == 0 {
		os.RemoveAll(tmp)
		return fmt.Errorf("ffmpeg produced no audio chunks for %s", filepath.Base(src))
	}

	// Rename last so a half-written chunk dir is never taken for the artifact.
	if err := os.RemoveAll(chunksDir); err != nil {
		return fmt.Errorf("clear chunk dir: %w", err)
	}
	if err := os.Rename(tmp, chunksDir); err != nil {
		return fmt.Errorf("finalize chunk dir: %w", err)
	}
	jc.Log.Info().Int("chunks", len(entries)).Msg("audio preprocessing completed")
	return nil
}
