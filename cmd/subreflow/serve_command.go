package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"subreflow/internal/config"
	"subreflow/internal/httpapi"
	"subreflow/internal/logging"
	"subreflow/internal/metrics"
	"subreflow/internal/pipeline"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the reflow pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ann, err := ctx.openAnnotator(runCtx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open annotator: %w", err)
			}
			defer ann.Close()

			rec := metrics.New(true)
			runner, err := pipeline.NewFromConfig(cfg, ann, rec, logger)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			logger.Info("serving reflow api",
				logging.String("bind", cfg.Server.Bind),
				logging.String("annotator", ann.Name()),
				logging.String("timing", runner.StrategyName()),
			)
			return httpapi.New(cfg.Server, runner, rec, logger).ListenAndServe(runCtx)
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (overrides server.bind)")
	ctx.addOverride(func(c *config.Config) {
		if cmd.Flags().Changed("bind") {
			c.Server.Bind = bind
		}
	})
	return cmd
}
