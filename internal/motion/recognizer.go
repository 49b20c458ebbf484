package motion

import (
	"fmt"

	"github.com/banshee-data/motion.report/internal/monitoring"
)

// DefaultOutputFrequency is how often (in calls) the recogniser logs its
// window features when Debug is set.
const DefaultOutputFrequency = 5

// RecognizerConfig configures the online pipeline.
type RecognizerConfig struct {
	Classifier      ClassifierConfig
	DebounceSteps   int
	OutputFrequency int
	Debug           bool
}

// DefaultRecognizerConfig returns the calibrated defaults with feature
// logging enabled.
func DefaultRecognizerConfig() RecognizerConfig {
	return RecognizerConfig{
		Classifier:      DefaultClassifierConfig(),
		DebounceSteps:   DefaultDebounceSteps,
		OutputFrequency: DefaultOutputFrequency,
		Debug:           true,
	}
}

// Result is the outcome of feeding one sample to a Recognizer.
type Result struct {
	Raw       Label    `json:"raw"`
	Confirmed Label    `json:"confirmed"`
	Previous  Label    `json:"previous"`
	Changed   bool     `json:"changed"`
	Features  Features `json:"features"`
}

// Snapshot is a copy of the recogniser state.
type Snapshot struct {
	DebounceState
	Buffered  int              `json:"buffered"`
	Processed int              `json:"processed"`
	LastRaw   Label            `json:"last_raw"`
	Features  Features         `json:"features"`
	Config    ClassifierConfig `json:"config"`
}

// Recognizer owns the classifier state for one sensor: the sample window,
// the debounce state and the output throttle. It is not safe for concurrent
// use; one ingestion loop drives it.
type Recognizer struct {
	cfg        RecognizerConfig
	buffer     *SampleBuffer
	classifier *Classifier
	debouncer  *Debouncer
	throttle   *monitoring.Throttle

	lastRaw      Label
	lastFeatures Features
}

// NewRecognizer builds a Recognizer after validating the configuration.
func NewRecognizer(cfg RecognizerConfig) (*Recognizer, error) {
	if err := cfg.Classifier.Validate(); err != nil {
		return nil, fmt.Errorf("invalid classifier config: %w", err)
	}
	if cfg.OutputFrequency <= 0 {
		cfg.OutputFrequency = DefaultOutputFrequency
	}
	return &Recognizer{
		cfg:        cfg,
		buffer:     NewSampleBuffer(cfg.Classifier.WindowSize),
		classifier: NewClassifier(cfg.Classifier),
		debouncer:  NewDebouncer(cfg.DebounceSteps),
		throttle:   monitoring.NewThrottle(cfg.OutputFrequency),
		lastRaw:    StateCollecting,
	}, nil
}

// Add validates s, pushes it into the window, classifies and debounces.
// A malformed sample is rejected with ErrMalformedSample and leaves the
// state unchanged.
func (r *Recognizer) Add(s Sample) (Result, error) {
	if err := s.Validate(); err != nil {
		return Result{}, err
	}
	r.buffer.Push(s)

	emit := r.throttle.Allow()
	raw, f := r.classifier.ClassifyWindow(r.buffer.Samples())
	if raw != StateCollecting && r.cfg.Debug && emit {
		monitoring.Logf("features: accel_mean=%.2f accel_std=%.2f accel_max=%.2f gyro_mean=%.2f change=%.2f",
			f.AccelMean, f.AccelStd, f.AccelMax, f.GyroMean, f.MeanAccelChange)
	}

	previous := r.debouncer.State().Confirmed
	confirmed, changed := r.debouncer.Update(raw)

	r.lastRaw = raw
	r.lastFeatures = f
	return Result{
		Raw:       raw,
		Confirmed: confirmed,
		Previous:  previous,
		Changed:   changed,
		Features:  f,
	}, nil
}

// Confirmed returns the current confirmed label.
func (r *Recognizer) Confirmed() Label { return r.debouncer.State().Confirmed }

// Snapshot returns a copy of the current state.
func (r *Recognizer) Snapshot() Snapshot {
	return Snapshot{
		DebounceState: r.debouncer.State(),
		Buffered:      r.buffer.Len(),
		Processed:     r.throttle.Count(),
		LastRaw:       r.lastRaw,
		Features:      r.lastFeatures,
		Config:        r.cfg.Classifier,
	}
}
