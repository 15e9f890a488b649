package timing

import (
	"strings"
	"time"
	"unicode/utf8"

	"subreflow/internal/breakpoint"
)

// Source is one cue as read from the input file.
type Source struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Cue is a generated cue. Source is the index of the input cue it came from.
type Cue struct {
	Index  int
	Source int
	Start  time.Duration
	End    time.Duration
	Lines  []string
}

// Text joins the display lines with single spaces.
func (c Cue) Text() string {
	return strings.Join(c.Lines, " ")
}

func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

// Plan pairs a source cue with the line blocks selected for its text.
type Plan struct {
	Source Source
	Blocks []breakpoint.Block
}

// Span is a start/end pair.
type Span struct {
	Start time.Duration
	End   time.Duration
}

func (s Span) Duration() time.Duration {
	return s.End - s.Start
}

// textLength counts runes with lines joined by a newline.
func textLength(lines []string) int {
	if len(lines) == 0 {
		return 0
	}
	n := len(lines) - 1
	for _, line := range lines {
		n += utf8.RuneCountInString(line)
	}
	return n
}

func cloneLines(lines []string) []string {
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
