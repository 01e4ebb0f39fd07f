package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
)

// SynthesizeStage turns the target transcript into one MP3. Each dialogue turn
// becomes one provider call and one segment file; segment files are the resume
// unit, so a retried synthesis only pays for the turns it has not rendered yet.
type SynthesizeStage struct {
	tts     adapter.TextToSpeech
	ffmpeg  string
	rate    float64
	timeout time.Duration
}

func NewSynthesizeStage(tts adapter.TextToSpeech, ffmpegPath string, defaultRate float64, timeout time.Duration) *SynthesizeStage {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &SynthesizeStage{tts: tts, ffmpeg: ffmpegPath, rate: defaultRate, timeout: timeout}
}

func (s *SynthesizeStage) ID() model.Stage        { return model.StageSynthesize }
func (s *SynthesizeStage) Timeout() time.Duration { return s.timeout }

func (s *SynthesizeStage) Run(ctx context.Context, jc *JobContext) error {
	// The voice catalog is always the target language's, even when the
	// source transcript is being voiced: reading the original text through
	// the target voice bank is what the source option is for.
	transcriptStage := model.StageClean
	language := jc.Job.TargetLanguage
	if jc.TranscriptSource == model.TranscriptSourceLang {
		transcriptStage = model.StageFormat
	}
	content, err := os.ReadFile(jc.Store.StagePath(jc.Job.ID, transcriptStage))
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	segments := parseDialogue(string(content))
	if len(segments) == 0 {
		return fmt.Errorf("transcript has no dialogue to synthesize")
	}

	voices, err := s.assignVoices(ctx, dialogueSpeakers(segments), language, jc.VoiceMappings)
	if err != nil {
		return err
	}

	rate := jc.SpeakingRate
	if rate == 0 {
		rate = s.rate
	}

	segDir := jc.Store.SegmentsDir(jc.Job.ID, jc.Version)
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return fmt.Errorf("create segments dir: %w", err)
	}

	paths := make([]string, len(segments))
	for i, seg := range segments {
		paths[i] = filepath.Join(segDir, segmentFilename(i, seg.Speaker))
		if fi, err := os.Stat(paths[i]); err == nil && fi.Size() > 0 {
			continue
		}
		audio, err := s.tts.Synthesize(ctx, adapter.SpeechRequest{
			Text:         seg.Text,
			Language:     language,
			Voice:        voices[seg.Speaker],
			SpeakingRate: rate,
		})
		if err != nil {
			return fmt.Errorf("synthesize segment %d (%s): %w", i, seg.Speaker, err)
		}
		if err := jc.Store.WriteFileAtomic(paths[i], audio); err != nil {
			return err
		}
		jc.Log.Debug().Str("speaker", seg.Speaker).Int("segment", i).Msg("segment synthesized")
	}

	return s.concatSegments(ctx, jc, paths, jc.Store.VersionPath(jc.Job.ID, jc.Version))
}

// concatSegments joins the segment files into the final MP3. Segments can come
// from different providers with different sample rates, so ffmpeg re-encodes
// them into one uniform stream. When ffmpeg is unavailable the segments are
// joined byte-wise, which stays playable for same-encoder segments.
func (s *SynthesizeStage) concatSegments(ctx context.Context, jc *JobContext, paths []string, out string) error {
	if err := s.ffmpegConcat(ctx, paths, out); err != nil {
		jc.Log.Warn().Err(err).Msg("ffmpeg concat unavailable, joining segments directly")
	} else {
		return nil
	}

	var final []byte
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read segment: %w", err)
		}
		final = append(final, data...)
	}
	return jc.Store.WriteFileAtomic(out, final)
}

func (s *SynthesizeStage) ffmpegConcat(ctx context.Context, paths []string, out string) error {
	list := out + ".segments.txt"
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	if err := os.WriteFile(list, []byte(b.String()), 0o644); err != nil {
		return err
	}
	defer os.Remove(list)

	tmp := out + ".tmp"
	args := []string{
		"-hide_banner", "-nostdin", "-y",
		"-f", "concat", "-safe", "0",
		"-i", list,
		"-codec:a", "libmp3lame",
		"-f", "mp3",
		tmp,
	}
	cmd := exec.CommandContext(ctx, s.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("ffmpeg concat failed: %w: %s", err, tail(stderr.String(), 400))
	}
	return os.Rename(tmp, out)
}

// assignVoices resolves one voice name per speaker. Explicit mappings win;
// unmapped speakers round-robin over the provider catalog so distinct speakers
// get distinct voices whenever the catalog allows it.
func (s *SynthesizeStage) assignVoices(ctx context.Context, speakers []string, language string, mappings map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(speakers))
	var unmapped []string
	for _, sp := range speakers {
		if v, ok := mappings[sp]; ok && v != "" {
			out[sp] = v
			continue
		}
		unmapped = append(unmapped, sp)
	}
	if len(unmapped) == 0 {
		return out, nil
	}
	catalog, err := s.tts.ListVoices(ctx, language)
	if err != nil {
		return nil, fmt.Errorf("list voices for %q: %w", language, err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("no voices available for %q", language)
	}
	for i, sp := range unmapped {
		out[sp] = catalog[i%len(catalog)].Name
	}
	return out, nil
}

// segmentFilename sorts lexically in dialogue order and keeps the speaker
// label visible to make segment directories inspectable.
func segmentFilename(index int, speaker string) string {
	return fmt.Sprintf("segment_%04d_%s.mp3", index, strings.ReplaceAll(speaker, " ", "_"))
}
