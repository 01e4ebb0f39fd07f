package pipeline

import (
	"regexp"
	"strings"
)

// speakerLineRe matches one speaker-tagged dialogue line. The label format
// "Speaker A" .. "Speaker Z" is the stable vocabulary every stage after
// formatting, and the version manager's voice mappings, rely on verbatim.
var speakerLineRe = regexp.MustCompile(`^(Speaker\s+[A-Z0-9]+):\s*(.*)$`)

// Segment is one dialogue turn: a speaker and the text of that turn.
type Segment struct {
	Speaker string
	Text    string
}

// parseDialogue splits a speaker-labeled transcript into dialogue turns.
// Unlabeled lines continue the current speaker's turn; leading unlabeled text
// is attributed to Speaker A, matching the formatting stage's fallback.
func parseDialogue(content string) []Segment {
	var segments []Segment
	cur := -1
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if m := speakerLineRe.FindStringSubmatch(line); m != nil {
			speaker, text := m[1], strings.TrimSpace(m[2])
			if text == "" {
				continue
			}
			if cur >= 0 && segments[cur].Speaker == speaker {
				segments[cur].Text += " " + text
				continue
			}
			segments = append(segments, Segment{Speaker: speaker, Text: text})
			cur = len(segments) - 1
			continue
		}
		if cur >= 0 {
			segments[cur].Text += " " + line
			continue
		}
		segments = append(segments, Segment{Speaker: "Speaker A", Text: line})
		cur = 0
	}
	return segments
}

// dialogueSpeakers returns the distinct speaker labels in order of first
// appearance.
func dialogueSpeakers(segments []Segment) []string {
	var out []string
	seen := make(map[string]bool)
	for _, seg := range segments {
		if !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			out = append(out, seg.Speaker)
		}
	}
	return out
}

// tail keeps the last n bytes of s, for bounding captured process output in
// error messages.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
