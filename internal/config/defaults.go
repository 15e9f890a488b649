package config

const (
	defaultMaxLineLength        = 42
	defaultReflowStrategy       = "greedy"
	defaultTimingStrategy       = "regenerate"
	defaultReadingSpeedCPS      = 20.0
	defaultMinDurationSeconds   = 1.0
	defaultMaxDurationSeconds   = 6.0
	adjustMinDurationSeconds    = 0.833
	adjustMaxDurationSeconds    = 7.0
	defaultTransitionGapMS      = 120
	defaultMergeGapMS           = 1000
	defaultShortTextLength      = 42
	defaultAnnotatorBackend     = "prose"
	defaultSpacyModel           = "en_core_web_md"
	defaultPython               = "python3"
	defaultAnnotatorTimeout     = 10
	defaultAnnotatorWorkers     = 4
	defaultIntegrityMode        = "detailed"
	defaultLogDir               = "~/.local/share/subreflow/logs"
	defaultServerBind           = "127.0.0.1:7488"
	defaultServerMaxBodyBytes   = 8 << 20
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultConfigPath           = "~/.config/subreflow/config.toml"
	defaultProjectConfigName    = "subreflow.toml"
	defaultServerRequestTimeout = 60
)

// Default returns a Config populated with repository defaults. Duration limits
// are left unset so normalization can pick the values that match the timing
// strategy.
func Default() Config {
	return Config{
		Reflow: Reflow{
			MaxLineLength: defaultMaxLineLength,
			Strategy:      defaultReflowStrategy,
		},
		Timing: Timing{
			Strategy:        defaultTimingStrategy,
			ReadingSpeedCPS: defaultReadingSpeedCPS,
			TransitionGapMS: defaultTransitionGapMS,
			MergeGapMS:      defaultMergeGapMS,
			ShortTextLength: defaultShortTextLength,
		},
		Annotator: Annotator{
			Backend:        defaultAnnotatorBackend,
			SpacyModel:     defaultSpacyModel,
			Python:         defaultPython,
			TimeoutSeconds: defaultAnnotatorTimeout,
			Workers:        defaultAnnotatorWorkers,
		},
		Integrity: Integrity{
			Mode: defaultIntegrityMode,
		},
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Server: Server{
			Bind:                  defaultServerBind,
			MaxBodyBytes:          defaultServerMaxBodyBytes,
			RequestTimeoutSeconds: defaultServerRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
