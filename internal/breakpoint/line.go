package breakpoint

import (
	"strings"
	"unicode/utf8"
)

// Unit is an unbreakable run of tokens rendered as one word-like string.
type Unit struct {
	Text      string
	Space     string
	Kind      SpanKind
	POS       string
	Punct     bool
	SentStart bool
}

// Width is the rendered width of the unit in runes.
func (u Unit) Width() int {
	return utf8.RuneCountInString(u.Text)
}

// Line is one display line and the units it was built from.
type Line struct {
	Text  string
	Units []Unit
}

// Width is the rendered width of the line in runes.
func (l Line) Width() int {
	return utf8.RuneCountInString(l.Text)
}

// Block is a group of at most two lines shown together as one cue.
type Block struct {
	Lines []Line
}

// Strings returns the rendered text of each line.
func (b Block) Strings() []string {
	out := make([]string, len(b.Lines))
	for i, line := range b.Lines {
		out[i] = line.Text
	}
	return out
}

// Text joins the lines with single spaces.
func (b Block) Text() string {
	return strings.Join(b.Strings(), " ")
}

// Units returns every unit of the block in order.
func (b Block) Units() []Unit {
	var out []Unit
	for _, line := range b.Lines {
		out = append(out, line.Units...)
	}
	return out
}

// NewLine renders units separated by single spaces.
func NewLine(units []Unit) Line {
	var b lineBuilder
	for _, u := range units {
		b.add(u)
	}
	return b.line()
}

// lineBuilder accumulates units for the line being filled.
type lineBuilder struct {
	units []Unit
	text  strings.Builder
	width int
}

func (b *lineBuilder) empty() bool {
	return len(b.units) == 0
}

// widthWith is the width the line would have after appending u.
func (b *lineBuilder) widthWith(u Unit) int {
	if b.empty() {
		return u.Width()
	}
	return b.width + 1 + u.Width()
}

func (b *lineBuilder) add(u Unit) {
	if !b.empty() {
		b.text.WriteByte(' ')
		b.width++
	}
	b.text.WriteString(u.Text)
	b.width += u.Width()
	b.units = append(b.units, u)
}

func (b *lineBuilder) line() Line {
	units := make([]Unit, len(b.units))
	copy(units, b.units)
	return Line{Text: b.text.String(), Units: units}
}

func (b *lineBuilder) reset() {
	b.units = b.units[:0]
	b.text.Reset()
	b.width = 0
}

// Width is the rendered width of units joined by single spaces.
func Width(units []Unit) int {
	if len(units) == 0 {
		return 0
	}
	w := len(units) - 1
	for _, u := range units {
		w += u.Width()
	}
	return w
}
