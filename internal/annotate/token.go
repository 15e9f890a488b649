package annotate

import (
	"strings"
	"unicode"
)

// Universal POS tags consulted by the reflow stages.
const (
	POSAdjective   = "ADJ"
	POSAdposition  = "ADP"
	POSAdverb      = "ADV"
	POSAuxiliary   = "AUX"
	POSCoordConj   = "CCONJ"
	POSDeterminer  = "DET"
	POSNoun        = "NOUN"
	POSNumeral     = "NUM"
	POSParticle    = "PART"
	POSPronoun     = "PRON"
	POSProperNoun  = "PROPN"
	POSPunctuation = "PUNCT"
	POSSubordConj  = "SCONJ"
	POSSymbol      = "SYM"
	POSVerb        = "VERB"
	POSOther       = "X"
)

// Token is a single annotated unit of a phrase. Tokens are immutable once
// returned by an Annotator.
type Token struct {
	Text      string
	Space     string
	POS       string
	Dep       string
	Entity    string
	SentStart bool
}

// IsPunct reports whether the token is punctuation, either by tag or because
// every rune is a punctuation or symbol character.
func (t Token) IsPunct() bool {
	if t.POS == POSPunctuation || t.Dep == "punct" {
		return true
	}
	if t.Text == "" {
		return false
	}
	for _, r := range t.Text {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}

// IsAlpha reports whether the token consists only of letters.
func (t Token) IsAlpha() bool {
	if t.Text == "" {
		return false
	}
	for _, r := range t.Text {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// HasApostrophe reports whether the token carries a straight or typographic apostrophe.
func (t Token) HasApostrophe() bool {
	return strings.ContainsAny(t.Text, "'’")
}

// Reconstruct concatenates Text and Space for every token.
func Reconstruct(tokens []Token) string {
	var sb strings.Builder
	for _, tok := range tokens {
		sb.WriteString(tok.Text)
		sb.WriteString(tok.Space)
	}
	return sb.String()
}
