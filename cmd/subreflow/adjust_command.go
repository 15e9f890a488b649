package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"subreflow/internal/config"
	"subreflow/internal/ledger"
	"subreflow/internal/logging"
	"subreflow/internal/metrics"
	"subreflow/internal/pipeline"
	"subreflow/internal/provenance"
	"subreflow/internal/subtitle"
)

type adjustOptions struct {
	maxLineLength int
	strategy      string
	timing        string
	leadIn        float64
	integrity     string
	output        string
	report        bool
	provenance    string
	force         bool
	metricsFile   string
}

func newAdjustCommand(ctx *commandContext) *cobra.Command {
	var opts adjustOptions

	cmd := &cobra.Command{
		Use:   "adjust <subtitle-file>...",
		Short: "Reflow line breaks and timings of subtitle files",
		Long: "Reflow writes <name>.adjusted.<ext> next to each input. Inputs already\n" +
			"named *.adjusted.* are skipped, as are inputs the run ledger has already\n" +
			"processed with the same settings (unless --force).",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("provide at least one subtitle file. Example: subreflow adjust movie.srt")
			}
			if len(args) > 1 && (opts.output != "" || opts.provenance != "") {
				return errors.New("--output and --provenance accept a single input file")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return runAdjust(cmd, ctx, cfg, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.maxLineLength, "max-line-length", 0, "Maximum characters per line")
	flags.StringVar(&opts.strategy, "strategy", "", "Breakpoint strategy (greedy or discourse)")
	flags.StringVar(&opts.timing, "timing", "", "Timing strategy (regenerate or adjust)")
	flags.Float64Var(&opts.leadIn, "lead-in", 0, "Seconds to delay the first cue")
	flags.StringVar(&opts.integrity, "integrity", "", "Integrity check mode (fast or detailed)")
	flags.StringVarP(&opts.output, "output", "o", "", "Output path (defaults to <name>.adjusted.<ext>)")
	flags.BoolVar(&opts.report, "report", false, "Print the source-to-output provenance table")
	flags.StringVar(&opts.provenance, "provenance", "", "Write provenance to a .json or .yaml file")
	flags.BoolVar(&opts.force, "force", false, "Reprocess inputs the run ledger has already seen")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")

	ctx.addOverride(func(c *config.Config) {
		if flags.Changed("max-line-length") {
			c.Reflow.MaxLineLength = opts.maxLineLength
		}
		if flags.Changed("strategy") {
			c.Reflow.Strategy = opts.strategy
		}
		if flags.Changed("timing") {
			c.Timing.Strategy = opts.timing
		}
		if flags.Changed("lead-in") {
			c.Timing.LeadInOffsetSeconds = opts.leadIn
		}
		if flags.Changed("integrity") {
			c.Integrity.Mode = opts.integrity
		}
		if flags.Changed("metrics-file") {
			c.Paths.MetricsTextfile = opts.metricsFile
		}
	})

	return cmd
}

type adjuster struct {
	cfg      *config.Config
	runner   *pipeline.Runner
	ledger   *ledger.Ledger
	metrics  *metrics.Recorder
	logger   *slog.Logger
	settings string
	opts     adjustOptions
	out      io.Writer
}

func runAdjust(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, opts adjustOptions, paths []string) error {
	logger, err := ctx.logger(cfg)
	if err != nil {
		return err
	}
	rec := metrics.New(false)

	ann, err := ctx.openAnnotator(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("open annotator: %w", err)
	}
	defer ann.Close()

	runner, err := pipeline.NewFromConfig(cfg, ann, rec, logger)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	l, err := ctx.openLedger(cfg)
	if err != nil {
		return err
	}
	if l != nil {
		defer l.Close()
	}

	a := &adjuster{
		cfg:      cfg,
		runner:   runner,
		ledger:   l,
		metrics:  rec,
		logger:   logger,
		settings: settingsFingerprint(cfg),
		opts:     opts,
		out:      cmd.OutOrStdout(),
	}

	var failed []error
	for _, path := range paths {
		if err := a.adjust(cmd.Context(), path); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logging.ErrorWithContext(logger, "adjust failed", "adjust_failed",
				logging.String(logging.FieldSource, path),
				logging.Error(err),
			)
			failed = append(failed, fmt.Errorf("%s: %w", path, err))
		}
	}

	if err := rec.WriteTextfile(cfg.Paths.MetricsTextfile); err != nil {
		logging.WarnWithContext(logger, "metrics textfile not written", "metrics_write_failed", logging.Error(err))
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", len(failed), len(paths), errors.Join(failed...))
	}
	return nil
}

func (a *adjuster) adjust(ctx context.Context, input string) error {
	input = strings.TrimSpace(input)
	if abs, err := filepath.Abs(input); err == nil {
		input = abs
	}
	if subtitle.IsAdjusted(input) {
		fmt.Fprintf(a.out, "Skipped %s: already adjusted\n", input)
		a.metrics.ObserveRun(a.runner.StrategyName(), metrics.OutcomeSkipped)
		return nil
	}

	output := a.opts.output
	if output == "" {
		output = subtitle.AdjustedPath(input)
	} else if expanded, err := config.ExpandPath(output); err == nil {
		output = expanded
	}

	var hash string
	if a.ledger != nil {
		var err error
		hash, err = ledger.HashFile(input)
		if err != nil {
			return err
		}
		if !a.opts.force {
			if prior, ok := a.priorRun(ctx, hash); ok {
				fmt.Fprintf(a.out, "Skipped %s: unchanged since run %s (%s)\n", input, prior.RunID, prior.OutputPath)
				a.metrics.ObserveRun(a.runner.StrategyName(), metrics.OutcomeSkipped)
				return nil
			}
		}
	}

	cues, _, err := subtitle.Read(input)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	runCtx := logging.WithSource(logging.WithRunID(ctx, runID), input)
	result, err := a.runner.Run(runCtx, cues)
	if err != nil {
		return err
	}
	if err := subtitle.Write(output, result.Cues); err != nil {
		return err
	}

	if a.ledger != nil {
		_, err := a.ledger.Record(ctx, ledger.Run{
			RunID:            result.RunID,
			InputPath:        input,
			OutputPath:       output,
			ContentHash:      hash,
			Settings:         a.settings,
			SourceCues:       result.Stats.SourceCues,
			OutputCues:       result.Stats.OutputCues,
			IntegrityOK:      result.Integrity.OK,
			IntegritySummary: result.Integrity.Summary(),
		})
		if err != nil {
			logging.WarnWithContext(a.logger, "ledger record failed", "ledger_write_failed", logging.Error(err))
		}
	}

	status := "ok"
	if !result.Integrity.OK {
		status = "MISMATCH"
	}
	fmt.Fprintf(a.out, "Adjusted %s -> %s (%d cues -> %d cues, integrity %s)\n",
		input, output, result.Stats.SourceCues, result.Stats.OutputCues, status)
	if !result.Integrity.OK {
		fmt.Fprintf(a.out, "  %s\n", result.Integrity.Summary())
	}

	if a.opts.report {
		fmt.Fprintln(a.out, result.Provenance.Render())
	}
	if a.opts.provenance != "" {
		if err := writeProvenance(a.opts.provenance, result.Provenance, result.RunID); err != nil {
			return err
		}
	}
	return nil
}

func (a *adjuster) priorRun(ctx context.Context, hash string) (*ledger.Run, bool) {
	prior, err := a.ledger.Lookup(ctx, hash, a.settings)
	if err != nil {
		if !errors.Is(err, ledger.ErrNotFound) {
			logging.WarnWithContext(a.logger, "ledger lookup failed", "ledger_read_failed", logging.Error(err))
		}
		return nil, false
	}
	if _, err := os.Stat(prior.OutputPath); err != nil {
		return nil, false
	}
	return prior, true
}

func writeProvenance(path string, m provenance.Map, runID string) error {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return err
	}
	return m.WriteFile(expanded, runID)
}
