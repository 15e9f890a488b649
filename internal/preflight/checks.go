package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subreflow/internal/annotate"
	"subreflow/internal/config"
	"subreflow/internal/ledger"
)

const probeText = "It's a well-known fact, isn't it?"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary verifies that command resolves on PATH.
func CheckBinary(name, command, description string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found (%s)", command, description)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckLedger opens the run ledger, which also applies pending migrations.
func CheckLedger(ctx context.Context, path string) Result {
	const name = "Run ledger"
	if dir := CheckDirectoryAccess(name, filepath.Dir(path)); !dir.Passed {
		return dir
	}
	l, err := ledger.Open(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer l.Close()
	runs, err := l.Recent(ctx, 1)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	detail := fmt.Sprintf("%s (empty)", path)
	if len(runs) > 0 {
		detail = fmt.Sprintf("%s (last run %s)", path, runs[0].UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckAnnotator opens the annotator and annotates a probe phrase. Tokens must
// reconstruct the phrase exactly, or line breaking could drop characters.
func CheckAnnotator(ctx context.Context, cfg *config.Config, open Opener) Result {
	name := "Annotator (" + cfg.Annotator.Backend + ")"

	timeout := cfg.Annotator.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ann, err := open(checkCtx, cfg)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	defer ann.Close()

	tokens, err := ann.Annotate(checkCtx, probeText)
	if err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	if got := annotate.Reconstruct(tokens); got != probeText {
		return Result{Name: name, Detail: fmt.Sprintf("tokens reconstruct to %q", got)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d tokens", len(tokens))}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (annotator unresponsive)"
	}
	return err.Error()
}
