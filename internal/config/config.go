package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Reflow contains line-breaking configuration.
type Reflow struct {
	MaxLineLength int    `toml:"max_line_length"`
	Strategy      string `toml:"strategy"`
}

// Timing contains cue timing constraints.
type Timing struct {
	// Strategy selects "regenerate" (synthesize timings from text length) or
	// "adjust" (normalize the source timings in place).
	Strategy            string  `toml:"strategy"`
	ReadingSpeedCPS     float64 `toml:"reading_speed_cps"`
	MinDurationSeconds  float64 `toml:"min_duration_seconds"`
	MaxDurationSeconds  float64 `toml:"max_duration_seconds"`
	TransitionGapMS     int     `toml:"transition_gap_ms"`
	LeadInOffsetSeconds float64 `toml:"lead_in_offset_seconds"`
	MergeGapMS          int     `toml:"merge_gap_ms"`
	ShortTextLength     int     `toml:"short_text_len"`
}

// Annotator contains linguistic annotator settings.
type Annotator struct {
	Backend        string `toml:"backend"`
	SpacyModel     string `toml:"spacy_model"`
	Python         string `toml:"python"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Workers        int    `toml:"workers"`
}

// Integrity contains transcript verification settings.
type Integrity struct {
	Mode     string `toml:"mode"`
	FoldCase bool   `toml:"fold_case"`
}

// Paths contains file locations.
type Paths struct {
	LogDir          string `toml:"log_dir"`
	LedgerPath      string `toml:"ledger_path"`
	MetricsTextfile string `toml:"metrics_textfile"`
}

// Server contains HTTP server settings.
type Server struct {
	Bind                  string `toml:"bind"`
	MaxBodyBytes          int64  `toml:"max_body_bytes"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for subreflow.
//
// Configuration sections by subsystem:
//   - Reflow: line width and breakpoint strategy
//   - Timing: reading speed, duration limits, gaps, lead-in
//   - Annotator: tokenizer/tagger backend
//   - Integrity: transcript verification mode
//   - Paths: log directory, run ledger, metrics textfile
//   - Server: HTTP bind address and request limits
//   - Logging: log format and level
type Config struct {
	Reflow    Reflow    `toml:"reflow"`
	Timing    Timing    `toml:"timing"`
	Annotator Annotator `toml:"annotator"`
	Integrity Integrity `toml:"integrity"`
	Paths     Paths     `toml:"paths"`
	Server    Server    `toml:"server"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	return LoadWithOverrides(path)
}

// LoadWithOverrides behaves like Load but applies overrides to the parsed file
// before normalization, so strategy-dependent defaults follow the overridden
// values.
func LoadWithOverrides(path string, overrides ...func(*Config)) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	for _, override := range overrides {
		if override != nil {
			override(&cfg)
		}
	}
	if err := cfg.Finalize(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Finalize normalizes and validates the configuration. Callers that mutate a
// loaded config (for example from command-line flags) must call it again.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories configured outputs are written to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.Paths.LedgerPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LedgerPath))
	}
	if c.Paths.MetricsTextfile != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.MetricsTextfile))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// MinDuration returns the minimum cue duration.
func (t Timing) MinDuration() time.Duration { return seconds(t.MinDurationSeconds) }

// MaxDuration returns the maximum cue duration.
func (t Timing) MaxDuration() time.Duration { return seconds(t.MaxDurationSeconds) }

// LeadIn returns the first-cue lead-in offset.
func (t Timing) LeadIn() time.Duration { return seconds(t.LeadInOffsetSeconds) }

// TransitionGap returns the minimum blank interval between cues.
func (t Timing) TransitionGap() time.Duration {
	return time.Duration(t.TransitionGapMS) * time.Millisecond
}

// MergeGap returns the gap below which short neighbouring cues are merged.
func (t Timing) MergeGap() time.Duration {
	return time.Duration(t.MergeGapMS) * time.Millisecond
}

// Timeout returns the per-phrase annotation budget.
func (a Annotator) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// RequestTimeout returns the per-request processing budget for the HTTP server.
func (s Server) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

func seconds(value float64) time.Duration {
	return time.Duration(math.Round(value*1000)) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
