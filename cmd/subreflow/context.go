package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"subreflow/internal/annotate"
	"subreflow/internal/config"
	"subreflow/internal/ledger"
	"subreflow/internal/logging"
)

type annotatorOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (annotate.Annotator, error)

type commandContext struct {
	configFlag string

	// overrides are applied to the parsed file before normalization. Commands
	// register them at construction; each one checks its own flags.
	overrides []func(*config.Config)

	openAnnotator annotatorOpener

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{openAnnotator: openConfiguredAnnotator}
}

func (c *commandContext) addOverride(fn func(*config.Config)) {
	c.overrides = append(c.overrides, fn)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.LoadWithOverrides(strings.TrimSpace(c.configFlag), c.overrides...)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func (c *commandContext) openLedger(cfg *config.Config) (*ledger.Ledger, error) {
	if cfg.Paths.LedgerPath == "" {
		return nil, nil
	}
	l, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return l, nil
}

func openConfiguredAnnotator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (annotate.Annotator, error) {
	return annotate.Open(ctx, annotate.Options{
		Backend:    cfg.Annotator.Backend,
		SpacyModel: cfg.Annotator.SpacyModel,
		Python:     cfg.Annotator.Python,
		Timeout:    cfg.Annotator.Timeout(),
		Logger:     logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// settingsFingerprint describes every option that changes reflow output. The
// ledger keys runs on it so a changed setting forces reprocessing.
func settingsFingerprint(cfg *config.Config) string {
	t := cfg.Timing
	model := ""
	if cfg.Annotator.Backend == annotate.BackendSpacy {
		model = cfg.Annotator.SpacyModel
	}
	return fmt.Sprintf(
		"reflow=%s/%d timing=%s cps=%g min=%g max=%g gap=%d merge=%d short=%d lead=%g annotator=%s/%s",
		cfg.Reflow.Strategy, cfg.Reflow.MaxLineLength,
		t.Strategy, t.ReadingSpeedCPS, t.MinDurationSeconds, t.MaxDurationSeconds,
		t.TransitionGapMS, t.MergeGapMS, t.ShortTextLength, t.LeadInOffsetSeconds,
		cfg.Annotator.Backend, model,
	)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
