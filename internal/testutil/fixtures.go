package testutil

import (
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

// SampleInterval matches the sensor sketch's 10 Hz output.
const SampleInterval = 100 * time.Millisecond

// FixtureStart is a fixed, bucket-aligned start time for fixtures.
var FixtureStart = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// RestingSample is a still sensor lying flat at the default baseline.
func RestingSample(ts time.Time) motion.Sample {
	return motion.Sample{AccelZ: motion.DefaultBaseline, Timestamp: ts}
}

// SampleWithMagnitude returns a sample whose acceleration magnitude is
// accel and whose gyroscope reads gyro on the x axis.
func SampleWithMagnitude(accel, gyro float64, ts time.Time) motion.Sample {
	return motion.Sample{AccelZ: accel, GyroX: gyro, Timestamp: ts}
}

// Samples returns count samples spaced SampleInterval apart from start,
// each produced by gen.
func Samples(start time.Time, count int, gen func(time.Time) motion.Sample) []motion.Sample {
	out := make([]motion.Sample, count)
	for i := range out {
		out[i] = gen(start.Add(time.Duration(i) * SampleInterval))
	}
	return out
}

// LabeledSeries returns labeled samples spaced SampleInterval apart.
func LabeledSeries(start time.Time, labels ...motion.Label) []segment.LabeledSample {
	out := make([]segment.LabeledSample, len(labels))
	for i, l := range labels {
		out[i] = segment.LabeledSample{Timestamp: start.Add(time.Duration(i) * SampleInterval), Label: l}
	}
	return out
}

// Repeat returns label repeated count times.
func Repeat(label motion.Label, count int) []motion.Label {
	out := make([]motion.Label, count)
	for i := range out {
		out[i] = label
	}
	return out
}

// SessionHistory returns a minute of labeled samples: 15s resting, 15s
// running, 15s walking with idle pauses, and 15s idle.
func SessionHistory(start time.Time) []segment.LabeledSample {
	var mixed []motion.Label
	for len(mixed) < 150 {
		mixed = append(mixed, motion.LabelWalking, motion.LabelWalking, motion.LabelIdle)
	}
	var out []segment.LabeledSample
	out = append(out, LabeledSeries(start, Repeat(motion.LabelResting, 150)...)...)
	out = append(out, LabeledSeries(start.Add(15*time.Second), Repeat(motion.LabelRunning, 150)...)...)
	out = append(out, LabeledSeries(start.Add(30*time.Second), mixed...)...)
	out = append(out, LabeledSeries(start.Add(45*time.Second), Repeat(motion.LabelIdle, 150)...)...)
	return out
}
