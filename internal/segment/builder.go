package segment

import (
	"sort"
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
)

const (
	// DefaultDuration is the width of one analysis bucket.
	DefaultDuration = 15 * time.Second
	// DefaultMinSamples is the smallest bucket that is kept.
	DefaultMinSamples = 5
)

// LabeledSample is one stored classification: when it was taken and the
// confirmed label at that time.
type LabeledSample struct {
	Timestamp time.Time    `json:"timestamp"`
	Label     motion.Label `json:"label"`
}

// Config controls bucketing.
type Config struct {
	Duration   time.Duration `json:"duration"`
	MinSamples int           `json:"min_samples"`
}

// DefaultConfig returns 15 second buckets that need at least 5 samples.
func DefaultConfig() Config {
	return Config{Duration: DefaultDuration, MinSamples: DefaultMinSamples}
}

func (c Config) normalize() Config {
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
	if c.MinSamples <= 0 {
		c.MinSamples = DefaultMinSamples
	}
	return c
}

// Bucket is a retained group of samples sharing the same floored start time.
type Bucket struct {
	Start   time.Time
	End     time.Time
	Samples []LabeledSample
}

// Labels returns the bucket's labels in time order.
func (b Bucket) Labels() []motion.Label {
	out := make([]motion.Label, len(b.Samples))
	for i, s := range b.Samples {
		out[i] = s.Label
	}
	return out
}

// BucketStart floors t to a multiple of d counted from the Unix epoch, in UTC.
func BucketStart(t time.Time, d time.Duration) time.Time {
	ns := t.UnixNano()
	step := d.Nanoseconds()
	floored := ns - ns%step
	if ns%step < 0 {
		floored -= step
	}
	return time.Unix(0, floored).UTC()
}

// Build partitions samples into fixed-width buckets and drops the ones
// with fewer than cfg.MinSamples entries. The input is not modified; an
// unsorted input is ordered by timestamp (stable) first.
func Build(samples []LabeledSample, cfg Config) []Bucket {
	cfg = cfg.normalize()
	if len(samples) == 0 {
		return nil
	}

	ordered := samples
	if !sort.SliceIsSorted(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	}) {
		ordered = make([]LabeledSample, len(samples))
		copy(ordered, samples)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		})
	}

	var (
		out     []Bucket
		current Bucket
	)
	flush := func() {
		if len(current.Samples) >= cfg.MinSamples {
			out = append(out, current)
		}
	}

	for i, s := range ordered {
		start := BucketStart(s.Timestamp, cfg.Duration)
		if i == 0 || !start.Equal(current.Start) {
			if i > 0 {
				flush()
			}
			current = Bucket{Start: start, End: start.Add(cfg.Duration)}
		}
		current.Samples = append(current.Samples, s)
	}
	flush()
	return out
}
