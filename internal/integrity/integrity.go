// Package integrity checks that reflowed subtitles carry exactly the words of
// the source transcript.
package integrity

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Mode selects how strictly two transcripts are compared.
type Mode string

const (
	// ModeFast passes when the word counts match.
	ModeFast Mode = "fast"
	// ModeDetailed passes when the word sequences are identical.
	ModeDetailed Mode = "detailed"
)

// ContextWords is the number of words shown on each side of a mismatch.
const ContextWords = 5

// ParseMode maps a configuration value onto a Mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeFast:
		return ModeFast, nil
	case ModeDetailed, "":
		return ModeDetailed, nil
	default:
		return "", fmt.Errorf("integrity mode: unsupported value %q", value)
	}
}

// Options configures a comparison.
type Options struct {
	Mode     Mode
	FoldCase bool
}

// Report describes the outcome of a comparison. Index is -1 when the
// transcripts match.
type Report struct {
	OK               bool
	Mode             Mode
	OriginalCount    int
	GeneratedCount   int
	Index            int
	Original         string
	Generated        string
	OriginalContext  []string
	GeneratedContext []string
	Leftover         []string
}

// Summary is a one-line description suitable for logs and headers.
func (r Report) Summary() string {
	switch {
	case r.OK:
		return fmt.Sprintf("ok (%d words)", r.OriginalCount)
	case r.Mode == ModeFast:
		return fmt.Sprintf("word count mismatch: original %d, generated %d", r.OriginalCount, r.GeneratedCount)
	default:
		return fmt.Sprintf("word %d differs: original %q, generated %q", r.Index, r.Original, r.Generated)
	}
}

// Words normalizes text to NFC and splits it on whitespace. With foldCase the
// words are case folded as well.
func Words(text string, foldCase bool) []string {
	text = norm.NFC.String(text)
	if foldCase {
		text = cases.Fold().String(text)
	}
	return strings.Fields(text)
}

// Verify compares the original transcript against the generated one.
func Verify(original, generated string, opts Options) Report {
	return VerifyWords(Words(original, opts.FoldCase), Words(generated, opts.FoldCase), opts.Mode)
}

// VerifyWords compares two word sequences. The slices are not modified.
func VerifyWords(original, generated []string, mode Mode) Report {
	if mode == "" {
		mode = ModeDetailed
	}
	report := Report{
		OK:             true,
		Mode:           mode,
		OriginalCount:  len(original),
		GeneratedCount: len(generated),
		Index:          -1,
	}

	if mode == ModeFast {
		report.OK = len(original) == len(generated)
		return report
	}

	n := max(len(original), len(generated))
	for i := 0; i < n; i++ {
		o, g := wordAt(original, i), wordAt(generated, i)
		if i < len(original) && i < len(generated) && o == g {
			continue
		}
		report.OK = false
		report.Index = i
		report.Original = o
		report.Generated = g
		report.OriginalContext = window(original, i)
		report.GeneratedContext = window(generated, i)
		break
	}
	if len(original) > len(generated) {
		report.Leftover = append([]string(nil), original[len(generated):]...)
	} else if len(generated) > len(original) {
		report.Leftover = append([]string(nil), generated[len(original):]...)
	}
	return report
}

func wordAt(words []string, i int) string {
	if i < len(words) {
		return words[i]
	}
	return ""
}

func window(words []string, i int) []string {
	lo := max(i-ContextWords, 0)
	hi := min(i+ContextWords+1, len(words))
	if lo >= hi {
		return nil
	}
	return append([]string(nil), words[lo:hi]...)
}
