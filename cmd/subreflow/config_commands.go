package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"subreflow/internal/annotate"
	"subreflow/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(newConfigValidateCommand(ctx), newConfigInitCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var target string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write the annotated sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := resolveInitPath(target)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(path)
				switch {
				case statErr == nil:
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", path)
				case !errors.Is(statErr, fs.ErrNotExist):
					return fmt.Errorf("check config path: %w", statErr)
				}
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "path", "p", "", "Destination for the configuration file (default: the standard config location)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func resolveInitPath(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(target)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

// newConfigValidateCommand loads the configuration with any global flag
// overrides applied and prints the effective reflow settings.
func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and show effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Section", "Setting", "Value"},
				settingsRows(cfg),
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			fmt.Fprintf(out, "Run ledger: %s\n", yesNo(cfg.Paths.LedgerPath != ""))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func settingsRows(cfg *config.Config) [][]string {
	seconds := func(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) + "s" }
	rows := [][]string{
		{"reflow", "strategy", cfg.Reflow.Strategy},
		{"reflow", "max_line_length", strconv.Itoa(cfg.Reflow.MaxLineLength)},
		{"timing", "strategy", cfg.Timing.Strategy},
		{"timing", "reading_speed_cps", strconv.FormatFloat(cfg.Timing.ReadingSpeedCPS, 'f', -1, 64)},
		{"timing", "duration", seconds(cfg.Timing.MinDurationSeconds) + "-" + seconds(cfg.Timing.MaxDurationSeconds)},
		{"timing", "transition_gap_ms", strconv.Itoa(cfg.Timing.TransitionGapMS)},
		{"annotator", "backend", cfg.Annotator.Backend},
	}
	if cfg.Annotator.Backend == annotate.BackendSpacy {
		rows = append(rows, []string{"annotator", "spacy_model", cfg.Annotator.SpacyModel})
	}
	rows = append(rows,
		[]string{"integrity", "mode", cfg.Integrity.Mode},
		[]string{"paths", "log_dir", cfg.Paths.LogDir},
	)
	return rows
}
