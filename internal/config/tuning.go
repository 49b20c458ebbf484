package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for tuning parameters.
// The same JSON is served by /api/config so a running recorder can be
// inspected and the file reproduced.
type TuningConfig struct {
	// Online classifier params
	WindowSize       *int     `json:"window_size,omitempty"`
	Baseline         *float64 `json:"baseline,omitempty"`
	IdleAccelRange   *float64 `json:"idle_accel_range,omitempty"`
	IdleStdMax       *float64 `json:"idle_std_max,omitempty"`
	IdleGyroMax      *float64 `json:"idle_gyro_max,omitempty"`
	WalkThresholdMin *float64 `json:"walk_threshold_min,omitempty"`
	WalkThresholdMax *float64 `json:"walk_threshold_max,omitempty"`
	RunThreshold     *float64 `json:"run_threshold,omitempty"`

	// Debounce and diagnostics
	DebounceSteps   *int    `json:"debounce_steps,omitempty"`
	OutputFrequency *int    `json:"output_frequency,omitempty"`
	DebugFeatures   *bool   `json:"debug_features,omitempty"`
	StatusInterval  *string `json:"status_interval,omitempty"` // duration string like "500ms"

	// Segment analysis params
	SegmentDuration   *string `json:"segment_duration,omitempty"` // duration string like "15s"
	SegmentMinSamples *int    `json:"segment_min_samples,omitempty"`
	HistoryMinutes    *int    `json:"history_minutes,omitempty"`
	RecentSegments    *int    `json:"recent_segments,omitempty"`

	// Ordered pattern table; nil uses the built-in table.
	Patterns segment.PatternTable `json:"patterns,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// built-in default.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		WindowSize:        ptrInt(motion.DefaultWindowSize),
		Baseline:          ptrFloat64(motion.DefaultBaseline),
		IdleAccelRange:    ptrFloat64(motion.DefaultIdleAccelRange),
		IdleStdMax:        ptrFloat64(motion.DefaultIdleStdMax),
		IdleGyroMax:       ptrFloat64(motion.DefaultIdleGyroMax),
		WalkThresholdMin:  ptrFloat64(motion.DefaultWalkThresholdMin),
		WalkThresholdMax:  ptrFloat64(motion.DefaultWalkThresholdMax),
		RunThreshold:      ptrFloat64(motion.DefaultRunThreshold),
		DebounceSteps:     ptrInt(motion.DefaultDebounceSteps),
		OutputFrequency:   ptrInt(motion.DefaultOutputFrequency),
		DebugFeatures:     ptrBool(true),
		StatusInterval:    ptrString("500ms"),
		SegmentDuration:   ptrString("15s"),
		SegmentMinSamples: ptrInt(segment.DefaultMinSamples),
		HistoryMinutes:    ptrInt(60),
		RecentSegments:    ptrInt(segment.DefaultRecentSegments),
		Patterns:          segment.DefaultPatternTable(),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,       // from cmd/
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if err := c.ClassifierConfig().Validate(); err != nil {
		return err
	}

	if c.DebounceSteps != nil && *c.DebounceSteps < 1 {
		return fmt.Errorf("debounce_steps must be at least 1, got %d", *c.DebounceSteps)
	}
	if c.OutputFrequency != nil && *c.OutputFrequency < 1 {
		return fmt.Errorf("output_frequency must be at least 1, got %d", *c.OutputFrequency)
	}

	if c.StatusInterval != nil && *c.StatusInterval != "" {
		if _, err := time.ParseDuration(*c.StatusInterval); err != nil {
			return fmt.Errorf("invalid status_interval '%s': %w", *c.StatusInterval, err)
		}
	}
	if c.SegmentDuration != nil && *c.SegmentDuration != "" {
		d, err := time.ParseDuration(*c.SegmentDuration)
		if err != nil {
			return fmt.Errorf("invalid segment_duration '%s': %w", *c.SegmentDuration, err)
		}
		if d <= 0 {
			return fmt.Errorf("segment_duration must be positive, got %s", d)
		}
	}

	if c.SegmentMinSamples != nil && *c.SegmentMinSamples < 1 {
		return fmt.Errorf("segment_min_samples must be at least 1, got %d", *c.SegmentMinSamples)
	}
	if c.HistoryMinutes != nil && *c.HistoryMinutes < 1 {
		return fmt.Errorf("history_minutes must be at least 1, got %d", *c.HistoryMinutes)
	}
	if c.RecentSegments != nil && *c.RecentSegments < 0 {
		return fmt.Errorf("recent_segments must be non-negative, got %d", *c.RecentSegments)
	}

	if err := c.Patterns.Validate(); err != nil {
		return fmt.Errorf("invalid patterns: %w", err)
	}
	return nil
}

// GetWindowSize returns the window_size value or the default.
func (c *TuningConfig) GetWindowSize() int {
	if c.WindowSize == nil {
		return motion.DefaultWindowSize
	}
	return *c.WindowSize
}

// GetBaseline returns the baseline value or the default.
func (c *TuningConfig) GetBaseline() float64 {
	if c.Baseline == nil {
		return motion.DefaultBaseline
	}
	return *c.Baseline
}

// GetIdleAccelRange returns the idle_accel_range value or the default.
func (c *TuningConfig) GetIdleAccelRange() float64 {
	if c.IdleAccelRange == nil {
		return motion.DefaultIdleAccelRange
	}
	return *c.IdleAccelRange
}

// GetIdleStdMax returns the idle_std_max value or the default.
func (c *TuningConfig) GetIdleStdMax() float64 {
	if c.IdleStdMax == nil {
		return motion.DefaultIdleStdMax
	}
	return *c.IdleStdMax
}

// GetIdleGyroMax returns the idle_gyro_max value or the default.
func (c *TuningConfig) GetIdleGyroMax() float64 {
	if c.IdleGyroMax == nil {
		return motion.DefaultIdleGyroMax
	}
	return *c.IdleGyroMax
}

// GetWalkThresholdMin returns the walk_threshold_min value or the default.
func (c *TuningConfig) GetWalkThresholdMin() float64 {
	if c.WalkThresholdMin == nil {
		return motion.DefaultWalkThresholdMin
	}
	return *c.WalkThresholdMin
}

// GetWalkThresholdMax returns the walk_threshold_max value or the default.
func (c *TuningConfig) GetWalkThresholdMax() float64 {
	if c.WalkThresholdMax == nil {
		return motion.DefaultWalkThresholdMax
	}
	return *c.WalkThresholdMax
}

// GetRunThreshold returns the run_threshold value or the default.
func (c *TuningConfig) GetRunThreshold() float64 {
	if c.RunThreshold == nil {
		return motion.DefaultRunThreshold
	}
	return *c.RunThreshold
}

// GetDebounceSteps returns the debounce_steps value or the default.
func (c *TuningConfig) GetDebounceSteps() int {
	if c.DebounceSteps == nil {
		return motion.DefaultDebounceSteps
	}
	return *c.DebounceSteps
}

// GetOutputFrequency returns the output_frequency value or the default.
func (c *TuningConfig) GetOutputFrequency() int {
	if c.OutputFrequency == nil {
		return motion.DefaultOutputFrequency
	}
	return *c.OutputFrequency
}

// GetDebugFeatures returns the debug_features value or the default.
func (c *TuningConfig) GetDebugFeatures() bool {
	if c.DebugFeatures == nil {
		return true // default
	}
	return *c.DebugFeatures
}

// GetStatusInterval parses and returns the StatusInterval as a time.Duration.
func (c *TuningConfig) GetStatusInterval() time.Duration {
	if c.StatusInterval == nil || *c.StatusInterval == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.StatusInterval)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetSegmentDuration parses and returns the SegmentDuration as a time.Duration.
func (c *TuningConfig) GetSegmentDuration() time.Duration {
	if c.SegmentDuration == nil || *c.SegmentDuration == "" {
		return segment.DefaultDuration
	}
	d, err := time.ParseDuration(*c.SegmentDuration)
	if err != nil || d <= 0 {
		return segment.DefaultDuration
	}
	return d
}

// GetSegmentMinSamples returns the segment_min_samples value or the default.
func (c *TuningConfig) GetSegmentMinSamples() int {
	if c.SegmentMinSamples == nil {
		return segment.DefaultMinSamples
	}
	return *c.SegmentMinSamples
}

// GetHistoryMinutes returns the history_minutes value or the default.
func (c *TuningConfig) GetHistoryMinutes() int {
	if c.HistoryMinutes == nil {
		return 60 // default
	}
	return *c.HistoryMinutes
}

// GetRecentSegments returns the recent_segments value or the default.
func (c *TuningConfig) GetRecentSegments() int {
	if c.RecentSegments == nil {
		return segment.DefaultRecentSegments
	}
	return *c.RecentSegments
}

// ClassifierConfig builds the online classifier configuration.
func (c *TuningConfig) ClassifierConfig() motion.ClassifierConfig {
	return motion.ClassifierConfig{
		WindowSize:       c.GetWindowSize(),
		Baseline:         c.GetBaseline(),
		IdleAccelRange:   c.GetIdleAccelRange(),
		IdleStdMax:       c.GetIdleStdMax(),
		IdleGyroMax:      c.GetIdleGyroMax(),
		WalkThresholdMin: c.GetWalkThresholdMin(),
		WalkThresholdMax: c.GetWalkThresholdMax(),
		RunThreshold:     c.GetRunThreshold(),
	}
}

// RecognizerConfig builds the full online pipeline configuration.
func (c *TuningConfig) RecognizerConfig() motion.RecognizerConfig {
	return motion.RecognizerConfig{
		Classifier:      c.ClassifierConfig(),
		DebounceSteps:   c.GetDebounceSteps(),
		OutputFrequency: c.GetOutputFrequency(),
		Debug:           c.GetDebugFeatures(),
	}
}

// SegmentConfig builds the bucketing configuration.
func (c *TuningConfig) SegmentConfig() segment.Config {
	return segment.Config{
		Duration:   c.GetSegmentDuration(),
		MinSamples: c.GetSegmentMinSamples(),
	}
}

// PatternTable returns the configured table or the built-in one.
func (c *TuningConfig) PatternTable() segment.PatternTable {
	if c.Patterns == nil {
		return segment.DefaultPatternTable()
	}
	return c.Patterns
}

// NewAnalyzer builds a segment analyzer from the tuning values.
func (c *TuningConfig) NewAnalyzer() (*segment.Analyzer, error) {
	engine, err := segment.NewRuleEngine(c.PatternTable())
	if err != nil {
		return nil, err
	}
	return segment.NewAnalyzer(c.SegmentConfig(), engine), nil
}
