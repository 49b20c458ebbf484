package segment

import "github.com/banshee-data/motion.report/internal/motion"

// Features are the per-bucket statistics the rule engine matches against.
type Features struct {
	// LabelPercentage is 0-100 per motion label, 0 when absent.
	LabelPercentage map[motion.Label]float64 `json:"label_percentage"`
	// MaxConsecutive is the longest run of each motion label.
	MaxConsecutive  map[motion.Label]int `json:"max_consecutive"`
	TransitionCount int                  `json:"transition_count"`
	SampleCount     int                  `json:"sample_count"`
}

// ExtractFeatures computes label shares, longest runs and the number of
// label changes over a time-ordered label sequence. Labels outside
// motion.Labels count toward the total but get no entry of their own.
func ExtractFeatures(labels []motion.Label) Features {
	f := Features{
		LabelPercentage: make(map[motion.Label]float64, len(motion.Labels)),
		MaxConsecutive:  make(map[motion.Label]int, len(motion.Labels)),
		SampleCount:     len(labels),
	}
	for _, l := range motion.Labels {
		f.LabelPercentage[l] = 0
		f.MaxConsecutive[l] = 0
	}
	if len(labels) == 0 {
		return f
	}

	counts := make(map[motion.Label]int, len(motion.Labels))
	var (
		run     int
		current motion.Label
	)
	closeRun := func() {
		if _, known := f.MaxConsecutive[current]; known && run > f.MaxConsecutive[current] {
			f.MaxConsecutive[current] = run
		}
	}

	for i, l := range labels {
		counts[l]++
		if i > 0 && l == current {
			run++
			continue
		}
		if i > 0 {
			closeRun()
			f.TransitionCount++
		}
		current = l
		run = 1
	}
	closeRun()

	total := float64(len(labels))
	for _, l := range motion.Labels {
		f.LabelPercentage[l] = float64(counts[l]) / total * 100
	}
	return f
}
