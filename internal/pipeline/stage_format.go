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

// FormatStage rewrites the raw transcript into a human-readable dialogue:
// provider speaker ids are remapped to a stable ordered "Speaker A".."Speaker
// Z" vocabulary (in order of first appearance), continuation lines are
// attributed to the current speaker, and turns are separated by blank lines.
// The ordered label list is recorded on the job; downstream stages and voice
// mappings for regeneration rely on it verbatim.
type FormatStage struct{}

func NewFormatStage() *FormatStage { return &FormatStage{} }

func (s *FormatStage) ID() model.Stage        { return model.StageFormat }
func (s *FormatStage) Timeout() time.Duration { return 0 }

var rawSpeakerRe = regexp.MustCompile(`(?i)^(Speaker\s+[A-Z0-9]+):\s*(.*)$`)

func (s *FormatStage) Run(ctx context.Context, jc *JobContext) error {
	raw, err := os.ReadFile(jc.Store.StagePath(jc.Job.ID, model.StageTranscribe))
	if err != nil {
		return fmt.Errorf("read raw transcript: %w", err)
	}

	formatted, speakers := formatTranscript(string(raw))
	if formatted == "" {
		return fmt.Errorf("raw transcript contains no dialogue")
	}

	out := jc.Store.StagePath(jc.Job.ID, model.StageFormat)
	if err := jc.Store.WriteFileAtomic(out, []byte(formatted+"\n")); err != nil {
		return err
	}
	jc.Job.Speakers = speakers
	jc.Log.Info().Strs("speakers", speakers).Msg("transcript formatted")
	return nil
}

// speakerSuffix yields A..Z, then AA, AB, ... like spreadsheet columns, so
// label assignment never runs past the alphabet on crowded recordings.
func speakerSuffix(i int) string {
	var b []byte
	for i >= 0 {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
	}
	return string(b)
}

// formatTranscript returns the formatted dialogue and the ordered speaker
// labels it assigned.
func formatTranscript(raw string) (string, []string) {
	var (
		formatted  []string
		mapping    = make(map[string]string)
		order      []string
		curSpeaker string
	)

	assign := func(original string) string {
		if mapped, ok := mapping[original]; ok {
			return mapped
		}
		label := "Speaker " + speakerSuffix(len(order))
		mapping[original] = label
		order = append(order, label)
		return label
	}

	for _, rawLine := range strings.Split(raw, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		if m := rawSpeakerRe.FindStringSubmatch(line); m != nil {
			speaker := assign(strings.ToUpper(strings.TrimSpace(m[1])))
			text := strings.TrimSpace(m[2])
			if text == "" {
				continue
			}
			if curSpeaker != "" && curSpeaker != speaker {
				formatted = append(formatted, "")
			}
			curSpeaker = speaker
			formatted = append(formatted, speaker+": "+text)
			continue
		}
		// Continuation text without a label stays with the current speaker;
		// leading unlabeled text falls back to Speaker A.
		if curSpeaker == "" {
			curSpeaker = assign("DEFAULT")
		}
		formatted = append(formatted, curSpeaker+": "+line)
	}

	return strings.Join(formatted, "\n"), order
}
