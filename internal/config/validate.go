package config

import (
	"errors"
	"fmt"
)

// ErrNegativeLeadIn is returned when timing.lead_in_offset_seconds is below zero.
var ErrNegativeLeadIn = errors.New("timing.lead_in_offset_seconds must be >= 0")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateReflow(); err != nil {
		return err
	}
	if err := c.validateTiming(); err != nil {
		return err
	}
	if err := c.validateAnnotator(); err != nil {
		return err
	}
	if err := c.validateIntegrity(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateReflow() error {
	if c.Reflow.MaxLineLength < 8 {
		return fmt.Errorf("reflow.max_line_length must be at least 8 (got %d)", c.Reflow.MaxLineLength)
	}
	switch c.Reflow.Strategy {
	case "greedy", "discourse":
		return nil
	default:
		return fmt.Errorf("reflow.strategy: unsupported value %q (use greedy or discourse)", c.Reflow.Strategy)
	}
}

func (c *Config) validateTiming() error {
	t := c.Timing
	switch t.Strategy {
	case "regenerate", "adjust":
	default:
		return fmt.Errorf("timing.strategy: unsupported value %q (use regenerate or adjust)", t.Strategy)
	}
	if t.ReadingSpeedCPS <= 0 {
		return errors.New("timing.reading_speed_cps must be positive")
	}
	if t.MinDurationSeconds <= 0 {
		return errors.New("timing.min_duration_seconds must be positive")
	}
	if t.MaxDurationSeconds < t.MinDurationSeconds {
		return fmt.Errorf("timing.max_duration_seconds (%.3f) must be >= timing.min_duration_seconds (%.3f)", t.MaxDurationSeconds, t.MinDurationSeconds)
	}
	if t.TransitionGapMS < 0 {
		return errors.New("timing.transition_gap_ms must be >= 0")
	}
	if t.LeadInOffsetSeconds < 0 {
		return fmt.Errorf("%w (got %.3f)", ErrNegativeLeadIn, t.LeadInOffsetSeconds)
	}
	if t.MergeGapMS < 0 {
		return errors.New("timing.merge_gap_ms must be >= 0")
	}
	if t.ShortTextLength < 0 {
		return errors.New("timing.short_text_len must be >= 0")
	}
	return nil
}

func (c *Config) validateAnnotator() error {
	switch c.Annotator.Backend {
	case "prose", "spacy":
	default:
		return fmt.Errorf("annotator.backend: unsupported value %q (use prose or spacy)", c.Annotator.Backend)
	}
	if c.Annotator.TimeoutSeconds < 0 {
		return errors.New("annotator.timeout_seconds must be positive")
	}
	if c.Annotator.Workers < 1 {
		return errors.New("annotator.workers must be at least 1")
	}
	return nil
}

func (c *Config) validateIntegrity() error {
	switch c.Integrity.Mode {
	case "fast", "detailed":
		return nil
	default:
		return fmt.Errorf("integrity.mode: unsupported value %q (use fast or detailed)", c.Integrity.Mode)
	}
}

func (c *Config) validateServer() error {
	if c.Server.MaxBodyBytes < 0 {
		return errors.New("server.max_body_bytes must be positive")
	}
	if c.Server.RequestTimeoutSeconds < 0 {
		return errors.New("server.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
