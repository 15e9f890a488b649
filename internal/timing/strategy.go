package timing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Strategy names.
const (
	StrategyRegenerate = "regenerate"
	StrategyAdjust     = "adjust"
)

// Recorder receives the text of every cue generated from a source cue,
// including cues suppressed as duplicates.
type Recorder interface {
	Record(source int, text string)
}

// Strategy turns selected line blocks into timed cues. Plans are processed
// left to right; implementations check ctx between source cues.
type Strategy interface {
	Name() string
	Apply(ctx context.Context, plans []Plan, rec Recorder) ([]Cue, error)
}

// New returns the strategy registered under name.
func New(name string, params Params, logger *slog.Logger) (Strategy, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("timing params: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case StrategyRegenerate, "":
		return NewSynthesizer(params, logger), nil
	case StrategyAdjust:
		return NewNormalizer(params, logger), nil
	default:
		return nil, fmt.Errorf("timing strategy: unsupported value %q", name)
	}
}

type nopRecorder struct{}

func (nopRecorder) Record(int, string) {}

func recorderOrNop(rec Recorder) Recorder {
	if rec == nil {
		return nopRecorder{}
	}
	return rec
}

// nextStart returns the start of the first plan after i that produces output
// and starts later than plan i, or false when there is none.
func nextStart(plans []Plan, i int) (int, bool) {
	for j := i + 1; j < len(plans); j++ {
		if len(plans[j].Blocks) == 0 {
			continue
		}
		if plans[j].Source.Start > plans[i].Source.Start {
			return j, true
		}
	}
	return 0, false
}
