package preflight

import (
	"context"

	"subreflow/internal/annotate"
	"subreflow/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Opener constructs the configured annotator. It matches the CLI's opener so
// checks exercise the same code path as a real run.
type Opener func(ctx context.Context, cfg *config.Config) (annotate.Annotator, error)

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config, open Opener) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	if cfg.Paths.LedgerPath != "" {
		results = append(results, CheckLedger(ctx, cfg.Paths.LedgerPath))
	}

	if cfg.Annotator.Backend == annotate.BackendSpacy {
		results = append(results, CheckBinary("Python", cfg.Annotator.Python, "required by the spaCy annotator"))
	}

	if open != nil {
		results = append(results, CheckAnnotator(ctx, cfg, open))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
