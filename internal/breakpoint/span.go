package breakpoint

import (
	"strings"

	"subreflow/internal/annotate"
)

// SpanKind classifies a protected token run.
type SpanKind int

const (
	SpanNone SpanKind = iota
	SpanHyphenated
	SpanContraction
	SpanEntity
)

func (k SpanKind) String() string {
	switch k {
	case SpanHyphenated:
		return "hyphenated"
	case SpanContraction:
		return "contraction"
	case SpanEntity:
		return "entity"
	default:
		return "none"
	}
}

// Classify reports whether a protected span starts at tokens[i] and how many
// tokens it covers. SpanNone always covers exactly one token.
func Classify(tokens []annotate.Token, i int) (SpanKind, int) {
	if i < 0 || i >= len(tokens) {
		return SpanNone, 0
	}
	if n := entityRun(tokens, i); n > 1 {
		return SpanEntity, n
	}
	if n := hyphenRun(tokens, i); n > 0 {
		return SpanHyphenated, n
	}
	if n := contractionRun(tokens, i); n > 0 {
		return SpanContraction, n
	}
	return SpanNone, 1
}

func entityRun(tokens []annotate.Token, i int) int {
	label := tokens[i].Entity
	if label == "" {
		return 0
	}
	j := i + 1
	for j < len(tokens) && tokens[j].Entity == label {
		j++
	}
	return j - i
}

// hyphenRun matches word "-" word ("-" word)* with no whitespace between the
// parts. The run stops at the first trailing whitespace.
func hyphenRun(tokens []annotate.Token, i int) int {
	if i+2 >= len(tokens) || tokens[i].Space != "" {
		return 0
	}
	if tokens[i+1].Text != "-" || tokens[i+1].Space != "" || !tokens[i+2].IsAlpha() {
		return 0
	}
	j := i + 1
	for j < len(tokens) && (tokens[j].Text == "-" || tokens[j].IsAlpha()) {
		j++
		if tokens[j-1].Space != "" {
			break
		}
	}
	if tokens[j-1].Text == "-" {
		return 0
	}
	return j - i
}

// contractionRun matches a token directly followed by one or more
// apostrophe-bearing tokens, for example "ca" "n't" or "it" "'s".
func contractionRun(tokens []annotate.Token, i int) int {
	if tokens[i].Space != "" {
		return 0
	}
	j := i + 1
	for j < len(tokens) && isClitic(tokens[j]) {
		j++
		if tokens[j-1].Space != "" {
			break
		}
	}
	if j == i+1 {
		return 0
	}
	return j - i
}

func isClitic(tok annotate.Token) bool {
	if !tok.HasApostrophe() {
		return false
	}
	return strings.Trim(tok.Text, "'’") != ""
}

// Segment groups tokens into units. A unit never ends inside a protected span
// and never ends on a token without trailing whitespace, so every boundary
// between units is a whitespace boundary in the source text.
func Segment(tokens []annotate.Token) []Unit {
	units := make([]Unit, 0, len(tokens))
	for i := 0; i < len(tokens); {
		kind, n := Classify(tokens, i)
		end := i + n
		for end < len(tokens) && tokens[end-1].Space == "" {
			k, m := Classify(tokens, end)
			if kind == SpanNone {
				kind = k
			}
			end += m
		}
		if u, ok := newUnit(tokens[i:end], kind); ok {
			units = append(units, u)
		}
		i = end
	}
	return units
}

func newUnit(tokens []annotate.Token, kind SpanKind) (Unit, bool) {
	var sb strings.Builder
	punct := true
	for idx, tok := range tokens {
		sb.WriteString(tok.Text)
		if idx < len(tokens)-1 && tok.Space != "" {
			sb.WriteByte(' ')
		}
		if !tok.IsPunct() && strings.TrimSpace(tok.Text) != "" {
			punct = false
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return Unit{}, false
	}
	return Unit{
		Text:      text,
		Space:     tokens[len(tokens)-1].Space,
		Kind:      kind,
		POS:       leadPOS(tokens),
		Punct:     punct,
		SentStart: tokens[0].SentStart,
	}, true
}

func leadPOS(tokens []annotate.Token) string {
	for _, tok := range tokens {
		if !tok.IsPunct() {
			return tok.POS
		}
	}
	return annotate.POSPunctuation
}
