package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"audio-translation-service/internal/domain/model"
	"audio-translation-service/internal/domain/ports/adapter"
	"audio-translation-service/internal/storage"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter sizes translation chunks. The real implementation wraps
// tiktoken; tests count with a cheap heuristic.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with the cl100k_base BPE, which tracks the LLM's
// actual context accounting closely enough for chunk sizing.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenCounter() (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// HeuristicCounter approximates four bytes per token. Used when the BPE
// tables cannot be loaded (offline start) and by tests.
type HeuristicCounter struct{}

func (HeuristicCounter) Count(text string) int { return len(text)/4 + 1 }

// TranslateStage translates the formatted transcript chunk by chunk,
// persisting each translated chunk as its own file. Chunk files that already
// exist are skipped, so a failed run resumes mid-stage without repeating
// provider calls. The manifest written after the last chunk is what marks the
// artifact complete.
type TranslateStage struct {
	tr          adapter.Translator
	counter     TokenCounter
	chunkTokens int
}

func NewTranslateStage(tr adapter.Translator, counter TokenCounter, chunkTokens int) *TranslateStage {
	if chunkTokens <= 0 {
		chunkTokens = 1200
	}
	return &TranslateStage{tr: tr, counter: counter, chunkTokens: chunkTokens}
}

func (s *TranslateStage) ID() model.Stage        { return model.StageTranslate }
func (s *TranslateStage) Timeout() time.Duration { return 0 }

func (s *TranslateStage) Run(ctx context.Context, jc *JobContext) error {
	formatted, err := os.ReadFile(jc.Store.StagePath(jc.Job.ID, model.StageFormat))
	if err != nil {
		return fmt.Errorf("read formatted transcript: %w", err)
	}

	chunks := chunkDialogue(string(formatted), s.counter, s.chunkTokens)
	if len(chunks) == 0 {
		return fmt.Errorf("formatted transcript is empty")
	}

	dir := jc.Store.StagePath(jc.Job.ID, model.StageTranslate)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create translation chunk dir: %w", err)
	}

	for i, chunk := range chunks {
		name := fmt.Sprintf("chunk_%03d.txt", i+1)
		path := filepath.Join(dir, name)
		if fi, err := os.Stat(path); err == nil && fi.Size() > 0 {
			jc.Log.Info().Str("chunk", name).Msg("translated chunk exists, skipping")
			continue
		}
		jc.Log.Info().Int("chunk", i+1).Int("total", len(chunks)).Msg("translating chunk")
		translated, err := s.tr.Translate(ctx, chunk, jc.Job.SourceLanguage, jc.Job.TargetLanguage, jc.Job.Speakers)
		if err != nil {
			return fmt.Errorf("translate chunk %d/%d: %w", i+1, len(chunks), err)
		}
		translated = normalizeSpeakerLabels(translated)
		if strings.TrimSpace(translated) == "" {
			return fmt.Errorf("empty translation for chunk %d", i+1)
		}
		if err := jc.Store.WriteFileAtomic(path, []byte(translated)); err != nil {
			return err
		}
	}

	manifest, _ := json.Marshal(struct {
		Chunks      int `json:"chunks"`
		ChunkTokens int `json:"chunk_tokens"`
	}{Chunks: len(chunks), ChunkTokens: s.chunkTokens})
	return jc.Store.WriteFileAtomic(filepath.Join(dir, storage.TranslateManifest), manifest)
}

// chunkDialogue splits the transcript on line boundaries so a speaker turn is
// never cut mid-line, packing lines until the token budget is reached.
func chunkDialogue(text string, counter TokenCounter, budget int) []string {
	var (
		chunks []string
		cur    []string
		used   int
	)
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur = nil
			used = 0
		}
	}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		n := counter.Count(line)
		if used+n > budget && len(cur) > 0 {
			flush()
		}
		cur = append(cur, line)
		used += n
	}
	flush()
	return chunks
}

// normalizeSpeakerLabels repairs label drift the translator may introduce
// despite the prompt: full-width colons and stray whitespace around the
// label.
func normalizeSpeakerLabels(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		trimmed = strings.Replace(trimmed, "：", ":", 1)
		if m := speakerLineRe.FindStringSubmatch(trimmed); m != nil {
			out = append(out, m[1]+": "+strings.TrimSpace(m[2]))
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
