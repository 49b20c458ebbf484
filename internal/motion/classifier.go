package motion

import (
	"fmt"
	"math"
)

// Default calibration for the MPU6050 sketch at ±2g, in m/s².
const (
	DefaultBaseline         = 9.82
	DefaultIdleAccelRange   = 0.05
	DefaultIdleStdMax       = 0.03
	DefaultIdleGyroMax      = 0.05
	DefaultWalkThresholdMin = 10.3
	DefaultWalkThresholdMax = 14.0
	DefaultRunThreshold     = 14.0
)

// ClassifierConfig holds the window size and decision thresholds for one
// classifier instance.
type ClassifierConfig struct {
	WindowSize       int     `json:"window_size"`
	Baseline         float64 `json:"baseline"`
	IdleAccelRange   float64 `json:"idle_accel_range"`
	IdleStdMax       float64 `json:"idle_std_max"`
	IdleGyroMax      float64 `json:"idle_gyro_max"`
	WalkThresholdMin float64 `json:"walk_threshold_min"`
	WalkThresholdMax float64 `json:"walk_threshold_max"`
	RunThreshold     float64 `json:"run_threshold"`
}

// DefaultClassifierConfig returns the calibrated defaults.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		WindowSize:       DefaultWindowSize,
		Baseline:         DefaultBaseline,
		IdleAccelRange:   DefaultIdleAccelRange,
		IdleStdMax:       DefaultIdleStdMax,
		IdleGyroMax:      DefaultIdleGyroMax,
		WalkThresholdMin: DefaultWalkThresholdMin,
		WalkThresholdMax: DefaultWalkThresholdMax,
		RunThreshold:     DefaultRunThreshold,
	}
}

// Validate checks the thresholds are usable.
func (c ClassifierConfig) Validate() error {
	if c.WindowSize < 2 {
		return fmt.Errorf("window_size must be at least 2, got %d", c.WindowSize)
	}
	if c.IdleAccelRange < 0 || c.IdleStdMax < 0 || c.IdleGyroMax < 0 {
		return fmt.Errorf("idle thresholds must be non-negative")
	}
	if c.WalkThresholdMin > c.WalkThresholdMax {
		return fmt.Errorf("walk_threshold_min (%.2f) exceeds walk_threshold_max (%.2f)", c.WalkThresholdMin, c.WalkThresholdMax)
	}
	return nil
}

// MinSamples is the fill level below which the classifier reports
// StateCollecting.
func (c ClassifierConfig) MinSamples() int {
	return c.WindowSize / 2
}

// Classifier performs threshold-based motion classification over a window
// of samples. It holds no mutable state.
type Classifier struct {
	Config ClassifierConfig
}

// NewClassifier creates a classifier with the given configuration.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	return &Classifier{Config: cfg}
}

// Classify returns the instantaneous label for the buffer contents, or
// StateCollecting when the buffer is less than half full.
func (c *Classifier) Classify(buf *SampleBuffer) Label {
	label, _ := c.ClassifyWindow(buf.Samples())
	return label
}

// ClassifyWindow classifies samples directly and also returns the features
// the decision was based on.
func (c *Classifier) ClassifyWindow(samples []Sample) (Label, Features) {
	if len(samples) < c.Config.MinSamples() {
		return StateCollecting, Features{SampleCount: len(samples)}
	}
	f := ExtractFeatures(samples)
	return c.ClassifyFeatures(f), f
}

// ClassifyFeatures applies the decision rules in priority order; the first
// match wins.
//
// Failing the resting check with an in-range mean (too much jitter or
// rotation) lands in the same idle bucket as unclassified movement; the two
// cases are not distinguished.
func (c *Classifier) ClassifyFeatures(f Features) Label {
	// 1. Resting: at gravity baseline, steady, not rotating
	if c.isResting(f) {
		return LabelResting
	}

	// 2. Running: high sustained acceleration
	if f.AccelMean > c.Config.RunThreshold {
		return LabelRunning
	}

	// 3. Walking: moderate sustained acceleration
	if f.AccelMean > c.Config.WalkThresholdMin && f.AccelMean < c.Config.WalkThresholdMax {
		return LabelWalking
	}

	// 4. Anything else
	return LabelIdle
}

func (c *Classifier) isResting(f Features) bool {
	return math.Abs(f.AccelMean-c.Config.Baseline) < c.Config.IdleAccelRange &&
		f.AccelStd < c.Config.IdleStdMax &&
		f.GyroMean < c.Config.IdleGyroMax
}
