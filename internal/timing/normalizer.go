package timing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"subreflow/internal/breakpoint"
	"subreflow/internal/logging"
)

// Normalizer keeps source timings and repairs them in place. The passes run
// in order: overlap clip, merge, duration adjustment, text reflow, transition
// gap, lead-in.
type Normalizer struct {
	params Params
	logger *slog.Logger
}

func NewNormalizer(params Params, logger *slog.Logger) *Normalizer {
	return &Normalizer{params: params, logger: logging.NewComponentLogger(logger, "timing")}
}

func (n *Normalizer) Name() string { return StrategyAdjust }

type draft struct {
	Span
	units   []breakpoint.Unit
	lines   []breakpoint.Line
	sources []int
}

func (d *draft) text() string {
	parts := make([]string, len(d.lines))
	for i, line := range d.lines {
		parts[i] = line.Text
	}
	return strings.Join(parts, " ")
}

func (n *Normalizer) Apply(ctx context.Context, plans []Plan, rec Recorder) ([]Cue, error) {
	rec = recorderOrNop(rec)
	drafts, err := n.drafts(ctx, plans)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, nil
	}

	before := len(drafts)
	n.clipOverlaps(drafts)
	drafts = n.merge(drafts)
	n.adjustDurations(drafts)
	for i := range drafts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("normalize timings: %w", err)
		}
		n.reflow(&drafts[i])
	}
	n.enforceGaps(drafts)
	n.applyLeadIn(drafts)

	out := make([]Cue, len(drafts))
	for i, d := range drafts {
		lines := make([]string, len(d.lines))
		for j, line := range d.lines {
			lines[j] = line.Text
		}
		out[i] = Cue{Index: i + 1, Source: d.sources[0], Start: d.Start, End: d.End, Lines: lines}
		for _, src := range d.sources {
			rec.Record(src, out[i].Text())
		}
	}
	n.logger.Debug("cue timings normalized",
		logging.Int("sources", len(plans)),
		logging.Int("cues", len(out)),
		logging.Int("merged", before-len(out)),
	)
	return out, nil
}

// drafts copies the source cues. A source split into several blocks shares
// its span among them in proportion to text length.
func (n *Normalizer) drafts(ctx context.Context, plans []Plan) ([]draft, error) {
	var out []draft
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("normalize timings: %w", err)
		}
		if len(plan.Blocks) == 0 {
			continue
		}
		span := Span{Start: plan.Source.Start, End: plan.Source.End}
		if span.End <= span.Start {
			span.End = span.Start + n.params.Duration(utf8.RuneCountInString(plan.Source.Text))
		}

		weights := make([]int, len(plan.Blocks))
		total := 0
		for i, block := range plan.Blocks {
			weights[i] = max(textLength(block.Strings()), 1)
			total += weights[i]
		}
		length := float64(span.Duration())
		acc := 0
		for i, block := range plan.Blocks {
			start := span.Start + time.Duration(length*float64(acc)/float64(total)).Truncate(time.Millisecond)
			acc += weights[i]
			end := span.Start + time.Duration(length*float64(acc)/float64(total)).Truncate(time.Millisecond)
			if i == len(plan.Blocks)-1 {
				end = span.End
			}
			if end <= start {
				end = start + time.Millisecond
			}
			out = append(out, draft{
				Span:    Span{Start: start, End: end},
				units:   block.Units(),
				lines:   append([]breakpoint.Line(nil), block.Lines...),
				sources: []int{plan.Source.Index},
			})
		}
	}
	return out, nil
}

func (n *Normalizer) clipOverlaps(drafts []draft) {
	for i := 0; i+1 < len(drafts); i++ {
		limit := drafts[i+1].Start - n.params.TransitionGap
		if drafts[i].End > limit {
			drafts[i].End = max(limit, drafts[i].Start+time.Millisecond)
		}
	}
}

// merge joins neighbours separated by less than MergeGap whose combined text
// is shorter than ShortTextLength.
func (n *Normalizer) merge(drafts []draft) []draft {
	out := drafts[:1]
	for _, next := range drafts[1:] {
		cur := &out[len(out)-1]
		gap := next.Start - cur.End
		combined := utf8.RuneCountInString(cur.text()) + 1 + utf8.RuneCountInString(next.text())
		if gap < n.params.MergeGap && combined < n.params.ShortTextLength {
			units := append(append([]breakpoint.Unit(nil), cur.units...), next.units...)
			lines := breakpoint.Wrap(units, n.params.MaxLineLength)
			if len(lines) <= breakpoint.MaxLines {
				cur.End = next.End
				cur.units = units
				cur.lines = lines
				cur.sources = append(cur.sources, next.sources...)
				continue
			}
		}
		out = append(out, next)
	}
	return out
}

func (n *Normalizer) adjustDurations(drafts []draft) {
	for i := range drafts {
		d := &drafts[i]
		switch {
		case d.Duration() < n.params.MinDuration:
			target := d.Start + n.params.MinDuration
			if i+1 < len(drafts) {
				target = min(target, drafts[i+1].Start-n.params.TransitionGap)
			}
			if target > d.End {
				d.End = target
			}
		case d.Duration() > n.params.MaxDuration:
			d.End = d.Start + n.params.MaxDuration
		}
	}
}

// reflow re-splits a cue wider than one line at its last sentence boundary
// that fits, then rebalances trivial fragments. Cues that cannot be laid out
// in two lines keep their existing lines.
func (n *Normalizer) reflow(d *draft) {
	maxLen := n.params.MaxLineLength
	if len(d.units) < 2 || breakpoint.Width(d.units) <= maxLen {
		return
	}
	split := 0
	for k := 1; k < len(d.units); k++ {
		if breakpoint.Width(d.units[:k]) > maxLen {
			break
		}
		if d.units[k].SentStart {
			split = k
		}
	}
	if split == 0 {
		for k := 1; k < len(d.units) && breakpoint.Width(d.units[:k]) <= maxLen; k++ {
			split = k
		}
	}
	if split == 0 || breakpoint.Width(d.units[split:]) > maxLen {
		return
	}
	split = rebalance(d.units, split, maxLen)
	d.lines = []breakpoint.Line{
		breakpoint.NewLine(d.units[:split]),
		breakpoint.NewLine(d.units[split:]),
	}
}

// rebalance moves single units across the split while one side is a trivial
// fragment and the move reduces the width difference.
func rebalance(units []breakpoint.Unit, split, maxLen int) int {
	for {
		head, tail := units[:split], units[split:]
		if !trivial(head) && !trivial(tail) {
			return split
		}
		next := split
		switch {
		case trivial(tail) && len(head) > 1:
			next = split - 1
		case trivial(head) && len(tail) > 1:
			next = split + 1
		default:
			return split
		}
		if units[next].Punct {
			return split
		}
		nh, nt := breakpoint.Width(units[:next]), breakpoint.Width(units[next:])
		if nh > maxLen || nt > maxLen {
			return split
		}
		if abs(nh-nt) >= abs(breakpoint.Width(head)-breakpoint.Width(tail)) {
			return split
		}
		split = next
	}
}

// trivial reports whether units hold two words or fewer.
func trivial(units []breakpoint.Unit) bool {
	words := 0
	for _, u := range units {
		if !u.Punct {
			words++
		}
	}
	return words <= 2
}

func (n *Normalizer) enforceGaps(drafts []draft) {
	gap := n.params.TransitionGap
	for i := 0; i+1 < len(drafts); i++ {
		cur, next := &drafts[i], &drafts[i+1]
		limit := next.Start - gap
		if cur.End <= limit {
			continue
		}
		if limit > cur.Start {
			cur.End = limit
			continue
		}
		cur.End = cur.Start + time.Millisecond
		next.Start = cur.End + gap
		if next.End <= next.Start {
			next.End = next.Start + time.Millisecond
		}
	}
}

func (n *Normalizer) applyLeadIn(drafts []draft) {
	if n.params.LeadIn <= 0 {
		return
	}
	first := &drafts[0]
	first.Start = min(first.Start+n.params.LeadIn, first.End-time.Millisecond)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
