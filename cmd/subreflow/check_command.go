package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"subreflow/internal/annotate"
	"subreflow/internal/config"
	"subreflow/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, the run ledger and the annotator",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			open := func(c context.Context, cfg *config.Config) (annotate.Annotator, error) {
				return ctx.openAnnotator(c, cfg, logger)
			}

			results := preflight.RunAll(cmd.Context(), cfg, open)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}
