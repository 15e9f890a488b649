package timing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"subreflow/internal/logging"
)

// Synthesizer regenerates cue timings from text length. Each source cue's
// blocks are chained from the source start; an end never reaches past the
// next source cue's start minus the transition gap.
type Synthesizer struct {
	params Params
	logger *slog.Logger
}

func NewSynthesizer(params Params, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{params: params, logger: logging.NewComponentLogger(logger, "timing")}
}

func (s *Synthesizer) Name() string { return StrategyRegenerate }

type cueKey struct {
	text  string
	start time.Duration
	end   time.Duration
}

// Apply emits one cue per block. A cue whose text and natural timing repeat
// an earlier cue is dropped but still recorded.
func (s *Synthesizer) Apply(ctx context.Context, plans []Plan, rec Recorder) ([]Cue, error) {
	rec = recorderOrNop(rec)
	seen := make(map[cueKey]struct{})
	var (
		out     []Cue
		prevEnd time.Duration
		haveEnd bool
	)
	for i, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("synthesize timings: %w", err)
		}
		if len(plan.Blocks) == 0 {
			continue
		}

		limit, bounded := time.Duration(0), false
		if j, ok := nextStart(plans, i); ok {
			limit, bounded = plans[j].Source.Start-s.params.TransitionGap, true
		}

		natural := s.layout(plan, plan.Source.Start, limit, bounded)
		spans := natural
		if haveEnd && prevEnd+s.params.TransitionGap > plan.Source.Start {
			spans = s.layout(plan, prevEnd+s.params.TransitionGap, limit, bounded)
		}

		for b, block := range plan.Blocks {
			lines := block.Strings()
			text := block.Text()
			rec.Record(plan.Source.Index, text)

			key := cueKey{text: text, start: natural[b].Start, end: natural[b].End}
			if _, dup := seen[key]; dup {
				s.logger.Debug("duplicate cue suppressed",
					logging.Int("source", plan.Source.Index),
					logging.String("text", text),
				)
				continue
			}
			seen[key] = struct{}{}

			out = append(out, Cue{
				Index:  len(out) + 1,
				Source: plan.Source.Index,
				Start:  spans[b].Start,
				End:    spans[b].End,
				Lines:  lines,
			})
			prevEnd, haveEnd = spans[b].End, true
		}
	}
	s.logger.Debug("cue timings synthesized", logging.Int("sources", len(plans)), logging.Int("cues", len(out)))
	return out, nil
}

// layout chains the blocks of plan from start. When limit is bounded and the
// blocks do not fit before it, their durations shrink proportionally.
func (s *Synthesizer) layout(plan Plan, start, limit time.Duration, bounded bool) []Span {
	gap := s.params.TransitionGap
	durations := make([]time.Duration, len(plan.Blocks))
	var total time.Duration
	for i, block := range plan.Blocks {
		durations[i] = s.params.Duration(textLength(block.Strings()))
		total += durations[i]
	}
	if bounded && len(durations) > 1 {
		window := limit - start - gap*time.Duration(len(durations)-1)
		if window > 0 && total > window {
			for i := range durations {
				scaled := time.Duration(float64(durations[i]) * float64(window) / float64(total))
				durations[i] = max(scaled.Truncate(time.Millisecond), time.Millisecond)
			}
		}
	}

	spans := make([]Span, len(durations))
	for i, d := range durations {
		end := start + d
		if bounded && end > limit {
			end = limit
		}
		if end <= start {
			end = start + time.Millisecond
		}
		spans[i] = Span{Start: start, End: end}
		start = end + gap
	}
	return spans
}
