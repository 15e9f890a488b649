package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"subreflow/internal/annotate"
	"subreflow/internal/breakpoint"
	"subreflow/internal/config"
	"subreflow/internal/integrity"
	"subreflow/internal/logging"
	"subreflow/internal/metrics"
	"subreflow/internal/provenance"
	"subreflow/internal/subtitle"
	"subreflow/internal/timing"
)

// Options wires the collaborators of a Runner.
type Options struct {
	Annotator       annotate.Annotator
	Selector        *breakpoint.Selector
	Timing          timing.Strategy
	Integrity       integrity.Options
	Workers         int
	AnnotateTimeout time.Duration
	Metrics         *metrics.Recorder
	Logger          *slog.Logger
}

// Runner executes reflow runs. It is safe for concurrent use when its
// annotator is.
type Runner struct {
	annotator annotate.Annotator
	selector  *breakpoint.Selector
	strategy  timing.Strategy
	integrity integrity.Options
	workers   int
	timeout   time.Duration
	metrics   *metrics.Recorder
	logger    *slog.Logger
}

// Stats summarises a run.
type Stats struct {
	SourceCues int
	EmptyCues  int
	Blocks     int
	OutputCues int
	Annotate   time.Duration
	Timing     time.Duration
	Verify     time.Duration
}

// Result is the output of a run.
type Result struct {
	RunID      string
	Cues       []subtitle.Cue
	Provenance provenance.Map
	Integrity  integrity.Report
	Stats      Stats
}

func New(opts Options) (*Runner, error) {
	switch {
	case opts.Annotator == nil:
		return nil, errors.New("pipeline: annotator is required")
	case opts.Selector == nil:
		return nil, errors.New("pipeline: breakpoint selector is required")
	case opts.Timing == nil:
		return nil, errors.New("pipeline: timing strategy is required")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		annotator: opts.Annotator,
		selector:  opts.Selector,
		strategy:  opts.Timing,
		integrity: opts.Integrity,
		workers:   workers,
		timeout:   opts.AnnotateTimeout,
		metrics:   opts.Metrics,
		logger:    logging.NewComponentLogger(opts.Logger, "pipeline"),
	}, nil
}

// NewFromConfig builds the selector and timing strategy described by cfg
// around an already opened annotator.
func NewFromConfig(cfg *config.Config, ann annotate.Annotator, rec *metrics.Recorder, logger *slog.Logger) (*Runner, error) {
	selector, err := breakpoint.New(breakpoint.Options{
		MaxLineLength: cfg.Reflow.MaxLineLength,
		Strategy:      cfg.Reflow.Strategy,
	})
	if err != nil {
		return nil, err
	}
	strategy, err := timing.New(cfg.Timing.Strategy, timing.ParamsFromConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	mode, err := integrity.ParseMode(cfg.Integrity.Mode)
	if err != nil {
		return nil, err
	}
	return New(Options{
		Annotator:       ann,
		Selector:        selector,
		Timing:          strategy,
		Integrity:       integrity.Options{Mode: mode, FoldCase: cfg.Integrity.FoldCase},
		Workers:         cfg.Annotator.Workers,
		AnnotateTimeout: cfg.Annotator.Timeout(),
		Metrics:         rec,
		Logger:          logger,
	})
}

func (r *Runner) StrategyName() string { return r.strategy.Name() }

// Run reflows cues. The run ID is taken from ctx when present. An integrity
// mismatch is reported in the result, not returned as an error.
func (r *Runner) Run(ctx context.Context, cues []subtitle.Cue) (Result, error) {
	runID, ok := logging.RunIDFromContext(ctx)
	if !ok {
		runID = uuid.NewString()
		ctx = logging.WithRunID(ctx, runID)
	}
	logger := logging.WithContext(ctx, r.logger)
	result := Result{RunID: runID, Stats: Stats{SourceCues: len(cues)}}

	out, err := r.run(ctx, logger, cues, &result)
	if err != nil {
		r.metrics.ObserveRun(r.strategy.Name(), metrics.OutcomeError)
		return Result{}, err
	}
	result.Cues = out

	outcome := metrics.OutcomeOK
	if !result.Integrity.OK {
		outcome = metrics.OutcomeMismatch
	}
	r.metrics.ObserveRun(r.strategy.Name(), outcome)
	r.metrics.AddCues(result.Stats.SourceCues, result.Stats.OutputCues)

	logger.Info("reflow complete",
		logging.String(logging.FieldEventType, "reflow_complete"),
		logging.String("strategy", r.strategy.Name()),
		logging.Int("source_cues", result.Stats.SourceCues),
		logging.Int("output_cues", result.Stats.OutputCues),
		logging.Bool("integrity_ok", result.Integrity.OK),
	)
	return result, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, cues []subtitle.Cue, result *Result) ([]subtitle.Cue, error) {
	builder := provenance.NewBuilder()

	started := time.Now()
	plans, err := r.plan(ctx, cues, builder)
	result.Stats.Annotate = time.Since(started)
	r.metrics.ObserveStage("annotate", result.Stats.Annotate)
	if err != nil {
		return nil, err
	}
	for _, p := range plans {
		result.Stats.Blocks += len(p.Blocks)
		if len(p.Blocks) == 0 {
			result.Stats.EmptyCues++
		}
	}

	started = time.Now()
	timed, err := r.strategy.Apply(ctx, plans, builder)
	result.Stats.Timing = time.Since(started)
	r.metrics.ObserveStage("timing", result.Stats.Timing)
	if err != nil {
		return nil, err
	}

	out := make([]subtitle.Cue, len(timed))
	for i, cue := range timed {
		out[i] = subtitle.Cue{Index: i + 1, Start: cue.Start, End: cue.End, Lines: cue.Lines}
	}
	result.Stats.OutputCues = len(out)
	result.Provenance = builder.Build()

	started = time.Now()
	result.Integrity = integrity.Verify(subtitle.Transcript(cues), subtitle.Transcript(out), r.integrity)
	result.Stats.Verify = time.Since(started)
	r.metrics.ObserveStage("verify", result.Stats.Verify)
	if !result.Integrity.OK {
		logging.ErrorWithContext(logger, "integrity check failed", "integrity_mismatch",
			logging.String(logging.FieldErrorHint, "inspect the annotator output for the reported word"),
			logging.String("mode", string(result.Integrity.Mode)),
			logging.String("summary", result.Integrity.Summary()),
			logging.String("original_context", strings.Join(result.Integrity.OriginalContext, " ")),
			logging.String("generated_context", strings.Join(result.Integrity.GeneratedContext, " ")),
			logging.Strings("leftover", result.Integrity.Leftover),
		)
	} else {
		logger.Debug("integrity check passed", logging.Int("words", result.Integrity.OriginalCount))
	}
	return out, nil
}

// plan annotates every cue and selects its line blocks. Cues are independent
// so the work is spread over the worker limit; the first error cancels the
// rest.
func (r *Runner) plan(ctx context.Context, cues []subtitle.Cue, builder *provenance.Builder) ([]timing.Plan, error) {
	plans := make([]timing.Plan, len(cues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, cue := range cues {
		i := i
		index := cue.Index
		if index <= 0 {
			index = i + 1
		}
		phrase := strings.TrimSpace(strings.Join(cue.Lines, " "))
		builder.SetOriginal(index, phrase)
		plans[i].Source = timing.Source{Index: index, Start: cue.Start, End: cue.End, Text: phrase}
		if phrase == "" {
			continue
		}
		g.Go(func() error {
			tokens, err := r.annotate(gctx, phrase)
			if err != nil {
				return fmt.Errorf("annotate cue %d: %w", index, err)
			}
			plans[i].Blocks = r.selector.Blocks(tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *Runner) annotate(ctx context.Context, text string) ([]annotate.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	started := time.Now()
	tokens, err := r.annotator.Annotate(ctx, text)
	r.metrics.ObserveAnnotate(time.Since(started))
	return tokens, err
}
