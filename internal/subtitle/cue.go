package subtitle

import (
	"strings"
	"time"
)

// Cue is one subtitle entry. Index is 1-based in file order.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Lines []string
}

// Text joins the lines with single spaces.
func (c Cue) Text() string {
	return strings.Join(c.Lines, " ")
}

// Transcript joins the text of every cue with single spaces.
func Transcript(cues []Cue) string {
	parts := make([]string, 0, len(cues))
	for _, cue := range cues {
		if text := strings.TrimSpace(cue.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
