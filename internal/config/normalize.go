package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeReflow()
	c.normalizeTiming()
	c.normalizeAnnotator()
	c.normalizeIntegrity()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LedgerPath, err = expandPath(strings.TrimSpace(c.Paths.LedgerPath)); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if c.Paths.MetricsTextfile, err = expandPath(strings.TrimSpace(c.Paths.MetricsTextfile)); err != nil {
		return fmt.Errorf("paths.metrics_textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeReflow() {
	c.Reflow.Strategy = lowerOr(c.Reflow.Strategy, defaultReflowStrategy)
	if c.Reflow.MaxLineLength == 0 {
		c.Reflow.MaxLineLength = defaultMaxLineLength
	}
}

func (c *Config) normalizeTiming() {
	c.Timing.Strategy = lowerOr(c.Timing.Strategy, defaultTimingStrategy)
	if c.Timing.ReadingSpeedCPS == 0 {
		c.Timing.ReadingSpeedCPS = defaultReadingSpeedCPS
	}
	minDefault, maxDefault := defaultMinDurationSeconds, defaultMaxDurationSeconds
	if c.Timing.Strategy == "adjust" {
		minDefault, maxDefault = adjustMinDurationSeconds, adjustMaxDurationSeconds
	}
	if c.Timing.MinDurationSeconds == 0 {
		c.Timing.MinDurationSeconds = minDefault
	}
	if c.Timing.MaxDurationSeconds == 0 {
		c.Timing.MaxDurationSeconds = maxDefault
	}
	if c.Timing.ShortTextLength == 0 {
		c.Timing.ShortTextLength = c.Reflow.MaxLineLength
	}
}

func (c *Config) normalizeAnnotator() {
	c.Annotator.Backend = lowerOr(c.Annotator.Backend, defaultAnnotatorBackend)
	c.Annotator.SpacyModel = strings.TrimSpace(c.Annotator.SpacyModel)
	if c.Annotator.SpacyModel == "" {
		c.Annotator.SpacyModel = defaultSpacyModel
	}
	c.Annotator.Python = strings.TrimSpace(c.Annotator.Python)
	if c.Annotator.Python == "" {
		c.Annotator.Python = defaultPython
	}
	if c.Annotator.TimeoutSeconds == 0 {
		c.Annotator.TimeoutSeconds = defaultAnnotatorTimeout
	}
	if c.Annotator.Workers == 0 {
		c.Annotator.Workers = defaultAnnotatorWorkers
	}
}

func (c *Config) normalizeIntegrity() {
	c.Integrity.Mode = lowerOr(c.Integrity.Mode, defaultIntegrityMode)
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaultServerMaxBodyBytes
	}
	if c.Server.RequestTimeoutSeconds == 0 {
		c.Server.RequestTimeoutSeconds = defaultServerRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = lowerOr(c.Logging.Format, defaultLogFormat)
	c.Logging.Level = lowerOr(c.Logging.Level, defaultLogLevel)
}

func lowerOr(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}
