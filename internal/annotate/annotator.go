package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"subreflow/internal/logging"
)

// Backend names accepted by Open.
const (
	BackendProse = "prose"
	BackendSpacy = "spacy"
)

const (
	defaultSpacyModel = "en_core_web_md"
	defaultPython     = "python3"
	defaultTimeout    = 10 * time.Second
)

// ErrUnknownBackend is returned by Open for unsupported backend names.
var ErrUnknownBackend = errors.New("unknown annotator backend")

// Annotator tokenizes and tags phrases. Implementations must be safe for use
// by concurrent callers.
type Annotator interface {
	Annotate(ctx context.Context, text string) ([]Token, error)
	Name() string
	Close() error
}

// Options configures Open.
type Options struct {
	Backend    string
	SpacyModel string
	Python     string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Open constructs the configured backend and loads its model. Failures are
// setup errors and are never retried.
func Open(ctx context.Context, opts Options) (Annotator, error) {
	logger := logging.NewComponentLogger(opts.Logger, "annotate")
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendProse
	}
	switch backend {
	case BackendProse:
		ann, err := newProse()
		if err != nil {
			return nil, fmt.Errorf("annotator %s: %w", backend, err)
		}
		logger.Debug("annotator ready", logging.String("backend", backend))
		return ann, nil
	case BackendSpacy:
		model := strings.TrimSpace(opts.SpacyModel)
		if model == "" {
			model = defaultSpacyModel
		}
		python := strings.TrimSpace(opts.Python)
		if python == "" {
			python = defaultPython
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		ann, err := startSpacy(ctx, python, model, timeout, logger)
		if err != nil {
			return nil, fmt.Errorf("annotator %s: %w", backend, err)
		}
		logger.Debug("annotator ready",
			logging.String("backend", backend),
			logging.String("model", model),
		)
		return ann, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, opts.Backend)
	}
}

// Func adapts a plain function to the Annotator interface.
type Func func(ctx context.Context, text string) ([]Token, error)

// Annotate calls f.
func (f Func) Annotate(ctx context.Context, text string) ([]Token, error) {
	return f(ctx, text)
}

// Name returns "func".
func (Func) Name() string { return "func" }

// Close is a no-op.
func (Func) Close() error { return nil }
