package timing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"subreflow/internal/config"
)

// Params holds the timing constraints shared by both strategies.
type Params struct {
	ReadingSpeed    float64
	MinDuration     time.Duration
	MaxDuration     time.Duration
	TransitionGap   time.Duration
	MergeGap        time.Duration
	LeadIn          time.Duration
	ShortTextLength int
	MaxLineLength   int
}

// ParamsFromConfig copies the timing and reflow settings out of cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		ReadingSpeed:    cfg.Timing.ReadingSpeedCPS,
		MinDuration:     cfg.Timing.MinDuration(),
		MaxDuration:     cfg.Timing.MaxDuration(),
		TransitionGap:   cfg.Timing.TransitionGap(),
		MergeGap:        cfg.Timing.MergeGap(),
		LeadIn:          cfg.Timing.LeadIn(),
		ShortTextLength: cfg.Timing.ShortTextLength,
		MaxLineLength:   cfg.Reflow.MaxLineLength,
	}
}

func (p Params) Validate() error {
	switch {
	case p.ReadingSpeed <= 0:
		return errors.New("reading speed must be positive")
	case p.MinDuration <= 0:
		return errors.New("minimum duration must be positive")
	case p.MaxDuration < p.MinDuration:
		return fmt.Errorf("maximum duration %s is below minimum %s", p.MaxDuration, p.MinDuration)
	case p.TransitionGap < 0:
		return errors.New("transition gap must not be negative")
	case p.LeadIn < 0:
		return config.ErrNegativeLeadIn
	case p.MaxLineLength <= 0:
		return errors.New("max line length must be positive")
	}
	return nil
}

// Duration returns clamp(length/ReadingSpeed, MinDuration, MaxDuration)
// rounded to the millisecond.
func (p Params) Duration(length int) time.Duration {
	seconds := float64(length) / p.ReadingSpeed
	d := time.Duration(math.Round(seconds*1000)) * time.Millisecond
	return min(max(d, p.MinDuration), p.MaxDuration)
}
