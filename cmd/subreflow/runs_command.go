package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			l, err := ctx.openLedger(cfg)
			if err != nil {
				return err
			}
			if l == nil {
				return errors.New("run ledger is disabled; set paths.ledger_path in the configuration")
			}
			defer l.Close()

			runs, err := l.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.UpdatedAt.Local().Format("2006-01-02 15:04"),
					run.InputPath,
					strconv.Itoa(run.SourceCues),
					strconv.Itoa(run.OutputCues),
					yesNo(run.IntegrityOK),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Updated", "Input", "Source", "Output", "Integrity OK"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}
