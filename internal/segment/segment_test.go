package segment

import (
	"testing"
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	r = motion.LabelResting
	i = motion.LabelIdle
	w = motion.LabelWalking
	n = motion.LabelRunning
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// series spaces labels 100ms apart starting at start.
func series(start time.Time, labels ...motion.Label) []LabeledSample {
	out := make([]LabeledSample, len(labels))
	for k, l := range labels {
		out[k] = LabeledSample{Timestamp: start.Add(time.Duration(k) * 100 * time.Millisecond), Label: l}
	}
	return out
}

func repeat(l motion.Label, count int) []motion.Label {
	out := make([]motion.Label, count)
	for k := range out {
		out[k] = l
	}
	return out
}

func TestExtractFeatures_MaxConsecutive(t *testing.T) {
	f := ExtractFeatures([]motion.Label{r, r, i, r, r, r})

	assert.Equal(t, 3, f.MaxConsecutive[r])
	assert.Equal(t, 1, f.MaxConsecutive[i])
	assert.Equal(t, 0, f.MaxConsecutive[w])
	assert.Equal(t, 2, f.TransitionCount)
}

func TestExtractFeatures_TransitionCount(t *testing.T) {
	f := ExtractFeatures([]motion.Label{i, i, w, w, i})
	assert.Equal(t, 2, f.TransitionCount)
	assert.Equal(t, 5, f.SampleCount)
	assert.LessOrEqual(t, f.TransitionCount, f.SampleCount-1)
}

func TestExtractFeatures_Percentages(t *testing.T) {
	tests := []struct {
		name   string
		labels []motion.Label
	}{
		{"single label", repeat(r, 10)},
		{"thirds", []motion.Label{r, i, w, r, i, w, r, i, w}},
		{"sevenths", []motion.Label{r, r, r, i, w, w, n}},
		{"one each", []motion.Label{n, w, i, r}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ExtractFeatures(tt.labels)
			var sum float64
			for _, l := range motion.Labels {
				p, ok := f.LabelPercentage[l]
				require.True(t, ok, "missing entry for %s", l)
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 100.0)
				sum += p
			}
			assert.InDelta(t, 100.0, sum, 1e-9)
		})
	}
}

func TestExtractFeatures_UnknownLabelCountsTowardTotal(t *testing.T) {
	f := ExtractFeatures([]motion.Label{r, "jumping", r, r})

	assert.InDelta(t, 75.0, f.LabelPercentage[r], 1e-9)
	assert.Equal(t, 2, f.MaxConsecutive[r])
	_, ok := f.MaxConsecutive["jumping"]
	assert.False(t, ok)
	assert.Equal(t, 2, f.TransitionCount)
}

func TestExtractFeatures_Empty(t *testing.T) {
	f := ExtractFeatures(nil)
	assert.Equal(t, 0, f.SampleCount)
	assert.Equal(t, 0, f.TransitionCount)
	assert.Len(t, f.LabelPercentage, len(motion.Labels))
}

func TestBuild(t *testing.T) {
	var samples []LabeledSample
	samples = append(samples, series(t0, repeat(r, 10)...)...)
	// Only four samples in the 12:00:15 bucket, so it is dropped.
	samples = append(samples, series(t0.Add(15*time.Second), r, r, r, r)...)
	samples = append(samples, series(t0.Add(31*time.Second), repeat(w, 5)...)...)

	buckets := Build(samples, DefaultConfig())
	require.Len(t, buckets, 2)

	assert.True(t, buckets[0].Start.Equal(t0))
	assert.True(t, buckets[0].End.Equal(t0.Add(15*time.Second)))
	assert.Len(t, buckets[0].Samples, 10)

	assert.True(t, buckets[1].Start.Equal(t0.Add(30*time.Second)))
	assert.Equal(t, repeat(w, 5), buckets[1].Labels())
}

func TestBuild_SortsUnorderedInput(t *testing.T) {
	in := series(t0, r, i, w, n, r)
	shuffled := []LabeledSample{in[3], in[0], in[4], in[1], in[2]}

	buckets := Build(shuffled, DefaultConfig())
	require.Len(t, buckets, 1)
	if diff := cmp.Diff(in, buckets[0].Samples); diff != "" {
		t.Errorf("samples not in time order (-want +got):\n%s", diff)
	}
	assert.Equal(t, n, shuffled[0].Label, "input must not be reordered")
}

func TestBucketStart(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 29, 999, time.FixedZone("X", 3600))
	got := BucketStart(ts, 15*time.Second)
	want := time.Date(2025, 3, 1, 11, 0, 15, 0, time.UTC)
	assert.True(t, got.Equal(want), "got %v want %v", got, want)
	assert.Equal(t, time.UTC, got.Location())

	pre := time.Unix(-7, 0)
	assert.Equal(t, int64(-15), BucketStart(pre, 15*time.Second).Unix())
}

func TestRuleEngine_RoundTripStationary(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	segs := a.Analyze(series(t0, repeat(r, 10)...))
	require.Len(t, segs, 1)

	s := segs[0]
	assert.Equal(t, 100.0, s.LabelPercentage[r])
	for _, l := range []motion.Label{i, w, n} {
		assert.Equal(t, 0.0, s.LabelPercentage[l], "%s", l)
	}
	assert.Equal(t, PatternStationary, s.Pattern)
	assert.Equal(t, 10, s.SampleCount)
}

func TestRuleEngine_TableOrderBreaksTies(t *testing.T) {
	// Satisfies both active (62.5% walking, run of 3) and mixed (100%
	// walking+idle, 5 transitions).
	f := ExtractFeatures([]motion.Label{w, w, w, i, w, i, w, i})

	e, err := NewRuleEngine(DefaultPatternTable())
	require.NoError(t, err)
	assert.Equal(t, PatternActive, e.AssignPattern(f))

	def := DefaultPatternTable()
	reversed := PatternTable{def[2], def[1], def[0]}
	e, err = NewRuleEngine(reversed)
	require.NoError(t, err)
	assert.Equal(t, PatternMixed, e.AssignPattern(f))
}

func TestRuleEngine_Unknown(t *testing.T) {
	e, err := NewRuleEngine(nil)
	require.NoError(t, err)

	// Half resting, half running, alternating: no rule holds.
	f := ExtractFeatures([]motion.Label{r, n, r, n, r, n})
	assert.Equal(t, PatternUnknown, e.AssignPattern(f))
}

func TestRuleEngine_Patterns(t *testing.T) {
	e, err := NewRuleEngine(nil)
	require.NoError(t, err)

	tests := []struct {
		name   string
		labels []motion.Label
		want   string
	}{
		{"running", repeat(n, 10), PatternActive},
		{"walking too short", []motion.Label{w, w, i, w, w, r, r, r, r, r}, PatternMixed},
		{"idle", repeat(i, 8), PatternStationary},
		{"stationary needs a run of five", []motion.Label{r, r, r, r, i, r, r, r, r, r}, PatternStationary},
		{"choppy rest with idle reads as mixed", []motion.Label{r, i, r, i, r, i, r, i}, PatternMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.AssignPattern(ExtractFeatures(tt.labels)))
		})
	}
}

func TestPatternRule_EmptyMotions(t *testing.T) {
	rule := PatternRule{MinPercentage: floatPtr(0.9), MinConsecutive: intPtr(100), MinTransitions: intPtr(2)}

	assert.True(t, rule.Matches(ExtractFeatures([]motion.Label{r, i, r})))
	assert.False(t, rule.Matches(ExtractFeatures([]motion.Label{r, i, i})))
}

func TestPatternTable_Validate(t *testing.T) {
	require.NoError(t, DefaultPatternTable().Validate())

	tests := []struct {
		name  string
		table PatternTable
	}{
		{"empty name", PatternTable{{Name: ""}}},
		{"reserved name", PatternTable{{Name: PatternUnknown}}},
		{"duplicate", PatternTable{{Name: "a"}, {Name: "a"}}},
		{"bad motion", PatternTable{{Name: "a", Rules: []PatternRule{{Motions: []motion.Label{"flying"}}}}}},
		{"percentage above one", PatternTable{{Name: "a", Rules: []PatternRule{{MinPercentage: floatPtr(40)}}}}},
		{"negative run", PatternTable{{Name: "a", Rules: []PatternRule{{MinConsecutive: intPtr(-1)}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.table.Validate())
			_, err := NewRuleEngine(tt.table)
			assert.Error(t, err)
		})
	}
}

func TestAnalyzer_Idempotent(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	labels := []motion.Label{w, w, w, i, w, i, w, i, r, r}

	f1 := ExtractFeatures(labels)
	f2 := ExtractFeatures(labels)
	if diff := cmp.Diff(f1, f2); diff != "" {
		t.Errorf("ExtractFeatures not idempotent:\n%s", diff)
	}
	assert.Equal(t, a.Engine().AssignPattern(f1), a.Engine().AssignPattern(f2))

	in := series(t0, labels...)
	if diff := cmp.Diff(a.Analyze(in), a.Analyze(in)); diff != "" {
		t.Errorf("Analyze not idempotent:\n%s", diff)
	}
}

func TestAnalyzer_Summarize(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	var samples []LabeledSample
	for k, labels := range [][]motion.Label{
		repeat(r, 10), repeat(n, 10), repeat(r, 10), {r, n, r, n, r, n}, repeat(i, 10),
	} {
		samples = append(samples, series(t0.Add(time.Duration(k)*15*time.Second), labels...)...)
	}

	segs := a.Analyze(samples)
	require.Len(t, segs, 5)

	sum := a.Summarize(segs, 0)
	assert.Equal(t, 5, sum.Total)
	want := []PatternCount{
		{Pattern: PatternStationary, Count: 3, Share: 60},
		{Pattern: PatternActive, Count: 1, Share: 20},
		{Pattern: PatternUnknown, Count: 1, Share: 20},
	}
	if diff := cmp.Diff(want, sum.Patterns); diff != "" {
		t.Errorf("pattern counts (-want +got):\n%s", diff)
	}

	require.Len(t, sum.Recent, DefaultRecentSegments)
	assert.True(t, sum.Recent[0].StartTime.Equal(t0.Add(60*time.Second)))
	assert.Equal(t, PatternStationary, sum.Recent[0].Pattern)
	assert.Equal(t, PatternUnknown, sum.Recent[1].Pattern)
	assert.Equal(t, PatternStationary, sum.Recent[2].Pattern)

	assert.Equal(t, Summary{}, a.Summarize(nil, 3))
}
