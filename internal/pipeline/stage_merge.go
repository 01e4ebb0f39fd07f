package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"audio-translation-service/internal/domain/model"
)

// MergeStage consolidates the translated chunk files, in numeric order, into
// one target-language transcript. Chunk markers are inserted between pieces;
// the cleaning stage strips them again. Keeping the markers through one
// artifact generation makes a bad merge diagnosable from the file itself.
type MergeStage struct{}

func NewMergeStage() *MergeStage { return &MergeStage{} }

func (s *MergeStage) ID() model.Stage        { return model.StageMerge }
func (s *MergeStage) Timeout() time.Duration { return 0 }

var chunkFileRe = regexp.MustCompile(`^chunk_(\d+)\.txt$`)

func (s *MergeStage) Run(ctx context.Context, jc *JobContext) error {
	dir := jc.Store.StagePath(jc.Job.ID, model.StageTranslate)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read translation chunk dir: %w", err)
	}

	type chunkRef struct {
		num  int
		name string
	}
	var chunks []chunkRef
	for _, e := range entries {
		m := chunkFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		chunks = append(chunks, chunkRef{num: n, name: e.Name()})
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no translation chunks found in %s", dir)
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].num < chunks[j].num })

	var merged []string
	for _, c := range chunks {
		b, err := os.ReadFile(filepath.Join(dir, c.name))
		if err != nil {
			return fmt.Errorf("read chunk %s: %w", c.name, err)
		}
		content := strings.TrimSpace(string(b))
		if content == "" {
			return fmt.Errorf("chunk %s is empty", c.name)
		}
		merged = append(merged, fmt.Sprintf("=== TRANSLATION CHUNK chunk_%03d.txt ===", c.num))
		merged = append(merged, content, "")
	}

	out := collapseBlankLines(strings.Join(merged, "\n"))
	return jc.Store.WriteFileAtomic(jc.Store.StagePath(jc.Job.ID, model.StageMerge), []byte(out+"\n"))
}

var multiBlankRe = regexp.MustCompile(`\n\s*\n\s*\n+`)

func collapseBlankLines(text string) string {
	return strings.TrimSpace(multiBlankRe.ReplaceAllString(text, "\n\n"))
}
