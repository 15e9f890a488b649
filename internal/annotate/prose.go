package annotate

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

// proseAnnotator tags phrases in-process. prose documents are independent, so
// concurrent calls share nothing but the read-only embedded models.
type proseAnnotator struct{}

func newProse() (*proseAnnotator, error) {
	if _, err := prose.NewDocument("Load the tagger."); err != nil {
		return nil, fmt.Errorf("load prose model: %w", err)
	}
	return &proseAnnotator{}, nil
}

func (p *proseAnnotator) Name() string { return BackendProse }

func (p *proseAnnotator) Close() error { return nil }

func (p *proseAnnotator) Annotate(ctx context.Context, text string) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	doc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("prose: %w", err)
	}
	sentStarts := sentenceOffsets(text, doc.Sentences())

	raw := doc.Tokens()
	tokens := make([]Token, 0, len(raw))
	pos := 0
	for _, rt := range raw {
		start, end, ok := locate(text, pos, rt.Text)
		if !ok {
			// The tokenizer rewrote this token; its characters are picked up
			// by the next gap.
			continue
		}
		tokens = appendGap(tokens, text[pos:start])
		surface := text[start:end]
		tok := Token{
			Text:      surface,
			POS:       pennToUniversal(rt.Tag, surface),
			Entity:    entityLabel(rt.Label),
			SentStart: sentStarts[start],
		}
		if tok.POS == POSPunctuation {
			tok.Dep = "punct"
		}
		tokens = append(tokens, tok)
		pos = end
	}
	tokens = appendGap(tokens, text[pos:])
	if len(tokens) > 0 {
		tokens[0].SentStart = true
	}
	return tokens, nil
}

// appendGap attaches untokenized text between two tokens. Whitespace becomes
// the previous token's trailing space; anything else becomes an untagged token.
// Leading whitespace before the first token is dropped.
func appendGap(tokens []Token, gap string) []Token {
	if gap == "" {
		return tokens
	}
	core := strings.TrimLeftFunc(gap, unicode.IsSpace)
	if lead := gap[:len(gap)-len(core)]; lead != "" && len(tokens) > 0 {
		tokens[len(tokens)-1].Space += lead
	}
	if core == "" {
		return tokens
	}
	body := strings.TrimRightFunc(core, unicode.IsSpace)
	tok := Token{Text: body, Space: core[len(body):], POS: POSOther}
	if tok.IsPunct() {
		tok.POS = POSPunctuation
		tok.Dep = "punct"
	}
	return append(tokens, tok)
}

// locate finds tok in text at or after from, treating typographic quotes as
// their ASCII forms. It returns the byte span of the match in text.
func locate(text string, from int, tok string) (int, int, bool) {
	if tok == "" {
		return 0, 0, false
	}
	for i := from; i < len(text); {
		if end, ok := matchAt(text, i, tok); ok {
			return i, end, true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return 0, 0, false
}

func matchAt(text string, i int, tok string) (int, bool) {
	j := i
	for _, r := range tok {
		if j >= len(text) {
			return 0, false
		}
		tr, size := utf8.DecodeRuneInString(text[j:])
		if foldQuote(tr) != foldQuote(r) {
			return 0, false
		}
		j += size
	}
	return j, true
}

func foldQuote(r rune) rune {
	switch r {
	case '‘', '’', '‚', '‛', '′':
		return '\''
	case '“', '”', '„', '‟', '″':
		return '"'
	}
	return r
}

func sentenceOffsets(text string, sentences []prose.Sentence) map[int]bool {
	starts := make(map[int]bool, len(sentences))
	cursor := 0
	for _, sent := range sentences {
		fields := strings.Fields(sent.Text)
		if len(fields) == 0 {
			continue
		}
		start, _, ok := locate(text, cursor, fields[0])
		if !ok {
			continue
		}
		starts[start] = true
		cursor = start + 1
	}
	return starts
}

// entityLabel strips the IOB prefix from a prose entity label.
func entityLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" || label == "O" {
		return ""
	}
	if len(label) > 2 && (label[:2] == "B-" || label[:2] == "I-") {
		return label[2:]
	}
	return label
}

func pennToUniversal(tag, surface string) string {
	switch tag {
	case "CC":
		return POSCoordConj
	case "CD":
		return POSNumeral
	case "DT", "PDT", "WDT":
		return POSDeterminer
	case "EX", "PRP", "PRP$", "WP", "WP$":
		return POSPronoun
	case "IN", "RP":
		return POSAdposition
	case "JJ", "JJR", "JJS":
		return POSAdjective
	case "MD":
		return POSAuxiliary
	case "NN", "NNS":
		return POSNoun
	case "NNP", "NNPS":
		return POSProperNoun
	case "POS", "TO":
		return POSParticle
	case "RB", "RBR", "RBS", "WRB":
		return POSAdverb
	case "UH":
		return "INTJ"
	case "VB", "VBD", "VBG", "VBN", "VBP", "VBZ":
		return POSVerb
	case "$", "#", "SYM":
		return POSSymbol
	case ".", ",", ":", "(", ")", "``", "''", "\"", "-LRB-", "-RRB-", "HYPH", "NFP":
		return POSPunctuation
	}
	if (Token{Text: surface}).IsPunct() {
		return POSPunctuation
	}
	return POSOther
}
