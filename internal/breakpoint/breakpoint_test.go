package breakpoint

import (
	"strings"
	"testing"

	"subreflow/internal/annotate"
)

// tok builds a token; ws is the trailing whitespace.
func tok(text, ws, pos string) annotate.Token {
	return annotate.Token{Text: text, Space: ws, POS: pos}
}

func scenarioTokens() []annotate.Token {
	return []annotate.Token{
		tok("I", " ", annotate.POSPronoun),
		tok("ca", "", annotate.POSAuxiliary),
		tok("n't", " ", annotate.POSParticle),
		tok("believe", " ", annotate.POSVerb),
		tok("it", "", annotate.POSPronoun),
		tok("'s", " ", annotate.POSAuxiliary),
		tok("really", " ", annotate.POSAdverb),
		tok("happening", "", annotate.POSVerb),
		tok(",", " ", annotate.POSPunctuation),
		tok("but", " ", annotate.POSCoordConj),
		tok("it", "", annotate.POSPronoun),
		tok("'s", " ", annotate.POSAuxiliary),
		tok("true", "", annotate.POSAdjective),
		tok("!", "", annotate.POSPunctuation),
	}
}

// tokenize is a small whitespace tokenizer that splits trailing punctuation
// and apostrophe clitics the way a real annotator would.
func tokenize(text string) []annotate.Token {
	var out []annotate.Token
	words := strings.Fields(text)
	for wi, word := range words {
		ws := " "
		if wi == len(words)-1 {
			ws = ""
		}
		var trail []string
		for len(word) > 1 && strings.ContainsAny(word[len(word)-1:], ".,!?") {
			trail = append([]string{word[len(word)-1:]}, trail...)
			word = word[:len(word)-1]
		}
		var parts []string
		if idx := strings.Index(word, "'"); idx > 0 {
			parts = []string{word[:idx], word[idx:]}
		} else {
			parts = []string{word}
		}
		for _, p := range trail {
			parts = append(parts, p)
		}
		for pi, p := range parts {
			space := ""
			if pi == len(parts)-1 {
				space = ws
			}
			pos := annotate.POSNoun
			if strings.ContainsAny(p, ".,!?") && len(p) == 1 {
				pos = annotate.POSPunctuation
			}
			if p == "and" || p == "but" || p == "or" {
				pos = annotate.POSCoordConj
			}
			out = append(out, tok(p, space, pos))
		}
	}
	return out
}

func lineTexts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func mustSelector(t *testing.T, maxLen int, strategy string) *Selector {
	t.Helper()
	s, err := New(Options{MaxLineLength: maxLen, Strategy: strategy})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSelectKeepsContractionsWhole(t *testing.T) {
	s := mustSelector(t, 20, StrategyGreedy)
	lines := s.Select(scenarioTokens())
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", lineTexts(lines))
	}
	want := []string{"I can't believe it's", "really happening, but it's true!"}
	for i, line := range lines {
		if line.Text != want[i] {
			t.Fatalf("line %d = %q, want %q", i, line.Text, want[i])
		}
	}
	for _, line := range lines {
		for _, w := range strings.Fields(line.Text) {
			if w == "ca" || w == "n't" || w == "it" || w == "'s" {
				t.Fatalf("contraction split in %q", line.Text)
			}
		}
	}
}

func TestBreakRespectsWidth(t *testing.T) {
	s := mustSelector(t, 20, StrategyGreedy)
	got := lineTexts(s.Break(scenarioTokens()))
	want := []string{"I can't believe it's", "really happening,", "but it's true!"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Break = %q, want %q", got, want)
	}
}

func TestBlocksPairLines(t *testing.T) {
	s := mustSelector(t, 20, StrategyGreedy)
	blocks := s.Blocks(scenarioTokens())
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if len(blocks[0].Lines) != 2 || len(blocks[1].Lines) != 1 {
		t.Fatalf("unexpected block shapes: %d, %d", len(blocks[0].Lines), len(blocks[1].Lines))
	}
	if blocks[1].Text() != "but it's true!" {
		t.Fatalf("second block text %q", blocks[1].Text())
	}
}

func TestShortPhraseIsSingleLine(t *testing.T) {
	s := mustSelector(t, 42, StrategyGreedy)
	lines := s.Select(tokenize("Hello there, friend."))
	if len(lines) != 1 || lines[0].Text != "Hello there, friend." {
		t.Fatalf("unexpected lines %q", lineTexts(lines))
	}
}

func TestUnsplittableWordGetsOwnLine(t *testing.T) {
	s := mustSelector(t, 10, StrategyGreedy)
	lines := s.Break(tokenize("a supercalifragilistic day"))
	want := []string{"a", "supercalifragilistic", "day"}
	if strings.Join(lineTexts(lines), "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", lineTexts(lines), want)
	}
}

func TestEmptyInput(t *testing.T) {
	s := mustSelector(t, 42, StrategyGreedy)
	if lines := s.Select(nil); len(lines) != 0 {
		t.Fatalf("expected no lines, got %q", lineTexts(lines))
	}
	if blocks := s.Blocks([]annotate.Token{tok(" ", "", annotate.POSOther)}); len(blocks) != 0 {
		t.Fatalf("expected no blocks for whitespace, got %d", len(blocks))
	}
}

func TestClassify(t *testing.T) {
	tokens := []annotate.Token{
		tok("a", " ", annotate.POSDeterminer),
		tok("well", "", annotate.POSAdverb),
		tok("-", "", annotate.POSPunctuation),
		tok("known", " ", annotate.POSAdjective),
		{Text: "New", Space: " ", POS: annotate.POSProperNoun, Entity: "GPE"},
		{Text: "York", Space: "", POS: annotate.POSProperNoun, Entity: "GPE"},
		tok("'s", " ", annotate.POSParticle),
		tok("mayor", "", annotate.POSNoun),
	}
	tests := []struct {
		index int
		kind  SpanKind
		n     int
	}{
		{0, SpanNone, 1},
		{1, SpanHyphenated, 3},
		{4, SpanEntity, 2},
		{5, SpanContraction, 2},
		{7, SpanNone, 1},
		{8, SpanNone, 0},
	}
	for _, tt := range tests {
		kind, n := Classify(tokens, tt.index)
		if kind != tt.kind || n != tt.n {
			t.Fatalf("Classify(%d) = %v,%d want %v,%d", tt.index, kind, n, tt.kind, tt.n)
		}
	}
}

func TestSegmentKeepsProtectedSpans(t *testing.T) {
	tokens := []annotate.Token{
		tok("a", " ", annotate.POSDeterminer),
		tok("well", "", annotate.POSAdverb),
		tok("-", "", annotate.POSPunctuation),
		tok("known", " ", annotate.POSAdjective),
		{Text: "New", Space: " ", POS: annotate.POSProperNoun, Entity: "GPE"},
		{Text: "York", Space: "", POS: annotate.POSProperNoun, Entity: "GPE"},
		tok("'s", " ", annotate.POSParticle),
		tok("mayor", "", annotate.POSNoun),
	}
	units := Segment(tokens)
	var got []string
	for _, u := range units {
		got = append(got, u.Text)
	}
	want := []string{"a", "well-known", "New York's", "mayor"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("Segment = %q, want %q", got, want)
	}
	if units[1].Kind != SpanHyphenated || units[2].Kind != SpanEntity {
		t.Fatalf("unexpected kinds %v %v", units[1].Kind, units[2].Kind)
	}

	s := mustSelector(t, 8, StrategyGreedy)
	for _, line := range s.Break(tokens) {
		if strings.HasSuffix(line.Text, "New") || strings.HasPrefix(line.Text, "York") {
			t.Fatalf("entity split across lines: %q", lineTexts(s.Break(tokens)))
		}
	}
}

func TestHyphenRunStopsAtWhitespace(t *testing.T) {
	tokens := []annotate.Token{
		tok("state", "", annotate.POSNoun),
		tok("-", "", annotate.POSPunctuation),
		tok("of", "", annotate.POSAdposition),
		tok("-", "", annotate.POSPunctuation),
		tok("the", "", annotate.POSDeterminer),
		tok("-", "", annotate.POSPunctuation),
		tok("art", " ", annotate.POSNoun),
		tok("design", "", annotate.POSNoun),
	}
	if kind, n := Classify(tokens, 0); kind != SpanHyphenated || n != 7 {
		t.Fatalf("Classify = %v,%d want hyphenated,7", kind, n)
	}
}

func TestDiscourseSplitsAtConjunction(t *testing.T) {
	lines := Discourse(scenarioTokens(), 20)
	want := []string{"I can't believe it's", "really happening,", "but it's true!"}
	if strings.Join(lineTexts(lines), "|") != strings.Join(want, "|") {
		t.Fatalf("Discourse = %q, want %q", lineTexts(lines), want)
	}

	s := mustSelector(t, 40, StrategyDiscourse)
	lines = s.Select(scenarioTokens())
	want = []string{"I can't believe it's really happening,", "but it's true!"}
	if strings.Join(lineTexts(lines), "|") != strings.Join(want, "|") {
		t.Fatalf("Select = %q, want %q", lineTexts(lines), want)
	}
}

func TestDiscourseKeepsConjunctionOnFirstLine(t *testing.T) {
	tokens := tokenize("we bought bread and cheese at the market today")
	lines := Discourse(tokens, 30)
	if len(lines) != 2 || lines[0].Text != "we bought bread and" {
		t.Fatalf("unexpected lines %q", lineTexts(lines))
	}
}

func TestDiscourseMinimumHead(t *testing.T) {
	// "and" after one word is below the minimum head, so the whitespace
	// fallback picks the widest head that fits.
	tokens := tokenize("so and then we walked all the way home together")
	lines := Discourse(tokens, 28)
	if lines[0].Text != "so and then we walked all" {
		t.Fatalf("unexpected lines %q", lineTexts(lines))
	}
}

func TestDiscourseGluesDetachedComma(t *testing.T) {
	tokens := []annotate.Token{
		tok("aaaa", " ", annotate.POSNoun),
		tok("bbbb", " ", annotate.POSNoun),
		tok("cccc", " ", annotate.POSNoun),
		tok("dddd", " ", annotate.POSNoun),
		tok(",", " ", annotate.POSPunctuation),
		tok("eeee", " ", annotate.POSNoun),
		tok("ffff", "", annotate.POSNoun),
	}
	want := []string{"aaaa bbbb cccc dddd ,", "eeee ffff"}

	lines := Discourse(tokens, 19)
	if strings.Join(lineTexts(lines), "|") != strings.Join(want, "|") {
		t.Fatalf("Discourse = %q, want %q", lineTexts(lines), want)
	}
	greedyLines := mustSelector(t, 19, StrategyGreedy).Break(tokens)
	if strings.Join(lineTexts(greedyLines), "|") != strings.Join(want, "|") {
		t.Fatalf("greedy = %q, want %q", lineTexts(greedyLines), want)
	}
	for _, l := range lines {
		if l.Units[0].Punct {
			t.Fatalf("line %q opens with punctuation", l.Text)
		}
	}
}

func TestDiscourseCommaAfterConjunctionSplit(t *testing.T) {
	// The conjunction candidate would open the second segment with ",".
	tokens := []annotate.Token{
		tok("we", " ", annotate.POSPronoun),
		tok("stayed", " ", annotate.POSVerb),
		tok("home", " ", annotate.POSNoun),
		tok("and", " ", annotate.POSCoordConj),
		tok(",", " ", annotate.POSPunctuation),
		tok("frankly", " ", annotate.POSAdverb),
		tok("nobody", " ", annotate.POSNoun),
		tok("minded", "", annotate.POSVerb),
	}
	lines := Discourse(tokens, 24)
	want := []string{"we stayed home and ,", "frankly nobody minded"}
	if strings.Join(lineTexts(lines), "|") != strings.Join(want, "|") {
		t.Fatalf("Discourse = %q, want %q", lineTexts(lines), want)
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	if _, err := New(Options{MaxLineLength: 0}); err == nil {
		t.Fatal("expected error for zero width")
	}
	if _, err := New(Options{MaxLineLength: 42, Strategy: "balanced"}); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	s, err := New(Options{MaxLineLength: 42})
	if err != nil || s.Strategy() != StrategyGreedy {
		t.Fatalf("expected greedy default, got %v %v", s, err)
	}
}

func TestLaws(t *testing.T) {
	phrases := []string{
		"I can't believe it's really happening, but it's true!",
		"The quick brown fox jumps over the lazy dog and then it runs away.",
		"We'll see what happens tomorrow, or maybe the day after that, who knows.",
		"Short.",
		"Everybody in the room stood up when the announcement was finally read aloud.",
	}
	for _, strategy := range []string{StrategyGreedy, StrategyDiscourse} {
		for _, maxLen := range []int{12, 20, 32, 42} {
			s := mustSelector(t, maxLen, strategy)
			for _, phrase := range phrases {
				tokens := tokenize(phrase)
				var words []string
				for _, block := range s.Blocks(tokens) {
					if n := len(block.Lines); n < 1 || n > MaxLines {
						t.Fatalf("%s/%d: block with %d lines", strategy, maxLen, n)
					}
					for _, line := range block.Lines {
						if line.Width() > maxLen && len(line.Units) > 1 {
							t.Fatalf("%s/%d: line %q exceeds width", strategy, maxLen, line.Text)
						}
					}
					words = append(words, strings.Fields(block.Text())...)
				}
				if strings.Join(words, " ") != strings.Join(strings.Fields(phrase), " ") {
					t.Fatalf("%s/%d: words changed: %q", strategy, maxLen, strings.Join(words, " "))
				}
				if n := len(s.Select(tokens)); n < 1 || n > MaxLines {
					t.Fatalf("%s/%d: Select returned %d lines", strategy, maxLen, n)
				}
			}
		}
	}
}
