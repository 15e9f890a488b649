package breakpoint

import (
	"errors"
	"fmt"
	"strings"

	"subreflow/internal/annotate"
)

// Strategy names accepted by Options.
const (
	StrategyGreedy    = "greedy"
	StrategyDiscourse = "discourse"
)

// MaxLines is the number of lines one cue may display.
const MaxLines = 2

var ErrInvalidLineLength = errors.New("max line length must be positive")

// Options configures a Selector.
type Options struct {
	MaxLineLength int
	Strategy      string
}

// Selector splits annotated phrases into display lines. It holds no mutable
// state and is safe for concurrent use.
type Selector struct {
	maxLen   int
	strategy string
}

// New validates opts and returns a Selector. An empty strategy means greedy.
func New(opts Options) (*Selector, error) {
	if opts.MaxLineLength <= 0 {
		return nil, ErrInvalidLineLength
	}
	strategy := strings.ToLower(strings.TrimSpace(opts.Strategy))
	switch strategy {
	case "":
		strategy = StrategyGreedy
	case StrategyGreedy, StrategyDiscourse:
	default:
		return nil, fmt.Errorf("breakpoint strategy: unsupported value %q", opts.Strategy)
	}
	return &Selector{maxLen: opts.MaxLineLength, strategy: strategy}, nil
}

func (s *Selector) MaxLineLength() int { return s.maxLen }

func (s *Selector) Strategy() string { return s.strategy }

// Break returns every line the strategy produces, without the line-count cap.
func (s *Selector) Break(tokens []annotate.Token) []Line {
	units := Segment(tokens)
	if len(units) == 0 {
		return nil
	}
	if s.strategy == StrategyDiscourse {
		return discourse(units, s.maxLen)
	}
	return greedy(units, s.maxLen)
}

// Select returns at most two lines. Lines past the second are merged into it,
// so the second line may exceed the width limit.
func (s *Selector) Select(tokens []annotate.Token) []Line {
	return capLines(s.Break(tokens), MaxLines)
}

// Blocks groups the uncapped lines into consecutive blocks of at most two
// lines each, keeping every line within the width limit.
func (s *Selector) Blocks(tokens []annotate.Token) []Block {
	return pairLines(s.Break(tokens))
}

// Wrap fills units into lines with the greedy strategy. It is used when cue
// text is rewrapped after tokens are no longer available.
func Wrap(units []Unit, maxLen int) []Line {
	if len(units) == 0 {
		return nil
	}
	return greedy(units, maxLen)
}

// Discourse splits tokens with the discourse-aware strategy.
func Discourse(tokens []annotate.Token, maxLen int) []Line {
	units := Segment(tokens)
	if len(units) == 0 {
		return nil
	}
	return discourse(units, maxLen)
}
