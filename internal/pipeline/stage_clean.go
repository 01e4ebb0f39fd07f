package pipeline

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"audio-translation-service/internal/domain/model"
)

// CleanStage strips the merge markers and the formatting debris a translator
// model tends to leave behind, producing the final target transcript the
// synthesizer reads.
type CleanStage struct{}

func NewCleanStage() *CleanStage { return &CleanStage{} }

func (s *CleanStage) ID() model.Stage        { return model.StageClean }
func (s *CleanStage) Timeout() time.Duration { return 0 }

var chunkMarkerRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)=== TRANSLATION CHUNK .*? ===\s*\n?`),
	regexp.MustCompile(`(?i)===.*?CHUNK.*?===\s*\n?`),
	regexp.MustCompile(`(?i)=== chunk_\d+\.txt ===\s*\n?`),
}

var artifactRes = []*regexp.Regexp{
	regexp.MustCompile(`(?s)\[翻訳者注:.*?\]`),  // translator notes
	regexp.MustCompile(`(?s)\[注:.*?\]`),      // notes
	regexp.MustCompile(`(?s)\(翻訳:.*?\)`),     // inline translation notes
	regexp.MustCompile(`(?s)\*\*.*?\*\*`),    // bold markup
	regexp.MustCompile(`(?s)__.*?__`),        // underscore markup
	regexp.MustCompile(`(?s)##.*?##`),        // heading markup
	regexp.MustCompile("(?s)```.*?```"),      // code fences
	regexp.MustCompile(`(?m)^---+\s*$`),      // horizontal rules
	regexp.MustCompile(`(?m)^===+\s*$`),      // leftover marker rules
}

func (s *CleanStage) Run(ctx context.Context, jc *JobContext) error {
	merged, err := os.ReadFile(jc.Store.StagePath(jc.Job.ID, model.StageMerge))
	if err != nil {
		return fmt.Errorf("read merged transcript: %w", err)
	}

	cleaned := CleanTranscript(string(merged))
	if cleaned == "" {
		return fmt.Errorf("cleaning removed all transcript content")
	}

	return jc.Store.WriteFileAtomic(jc.Store.StagePath(jc.Job.ID, model.StageClean), []byte(cleaned+"\n"))
}

// CleanTranscript applies the cleanup passes in order: chunk markers,
// translation artifacts, speaker line normalization, spacing.
func CleanTranscript(content string) string {
	for _, re := range chunkMarkerRes {
		content = re.ReplaceAllString(content, "")
	}
	for _, re := range artifactRes {
		content = re.ReplaceAllString(content, "")
	}
	content = normalizeSpeakerLines(content)
	return collapseBlankLines(content)
}

// normalizeSpeakerLines enforces one canonical "Speaker X: text" shape and
// drops speaker lines whose text vanished during artifact removal.
func normalizeSpeakerLines(content string) string {
	var out []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			out = append(out, "")
			continue
		}
		if m := speakerLineRe.FindStringSubmatch(line); m != nil {
			text := strings.TrimSpace(m[2])
			if text == "" {
				continue
			}
			out = append(out, m[1]+": "+text)
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
