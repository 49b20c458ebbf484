package segment

import (
	"sort"
	"time"
)

// DefaultRecentSegments is how many segments Summarize reports in detail.
const DefaultRecentSegments = 3

// Segment is one analysed bucket with its assigned pattern.
type Segment struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Features
	Pattern string `json:"pattern"`
}

// Analyzer runs Build, ExtractFeatures and AssignPattern over a sample
// history. It holds no mutable state.
type Analyzer struct {
	cfg    Config
	engine *RuleEngine
}

// NewAnalyzer creates an Analyzer. A nil engine uses the default table.
func NewAnalyzer(cfg Config, engine *RuleEngine) *Analyzer {
	if engine == nil {
		engine, _ = NewRuleEngine(nil)
	}
	return &Analyzer{cfg: cfg.normalize(), engine: engine}
}

// Config returns the bucketing configuration.
func (a *Analyzer) Config() Config { return a.cfg }

// Engine returns the rule engine.
func (a *Analyzer) Engine() *RuleEngine { return a.engine }

// Analyze returns one Segment per retained bucket, in time order.
func (a *Analyzer) Analyze(samples []LabeledSample) []Segment {
	buckets := Build(samples, a.cfg)
	out := make([]Segment, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, a.segment(b))
	}
	return out
}

func (a *Analyzer) segment(b Bucket) Segment {
	f := ExtractFeatures(b.Labels())
	return Segment{
		StartTime: b.Start,
		EndTime:   b.End,
		Features:  f,
		Pattern:   a.engine.AssignPattern(f),
	}
}

// PatternCount is the number and share of segments with one pattern.
type PatternCount struct {
	Pattern string  `json:"pattern"`
	Count   int     `json:"count"`
	Share   float64 `json:"share"` // percent of all segments
}

// Summary condenses an analysis run.
type Summary struct {
	Total    int            `json:"total"`
	Patterns []PatternCount `json:"patterns"`
	Recent   []Segment      `json:"recent"`
}

// Summarize counts patterns (most common first, ties in table order, zero
// counts omitted) and picks the k segments with the latest end time,
// newest first. A non-positive k uses DefaultRecentSegments.
func (a *Analyzer) Summarize(segments []Segment, k int) Summary {
	if k <= 0 {
		k = DefaultRecentSegments
	}
	s := Summary{Total: len(segments)}
	if len(segments) == 0 {
		return s
	}

	names := a.engine.Table().Names()
	order := make(map[string]int, len(names))
	for i, n := range names {
		order[n] = i
	}

	counts := map[string]int{}
	for _, seg := range segments {
		if _, ok := order[seg.Pattern]; !ok {
			order[seg.Pattern] = len(order)
		}
		counts[seg.Pattern]++
	}
	for p, c := range counts {
		s.Patterns = append(s.Patterns, PatternCount{
			Pattern: p,
			Count:   c,
			Share:   float64(c) / float64(len(segments)) * 100,
		})
	}
	sort.Slice(s.Patterns, func(i, j int) bool {
		if s.Patterns[i].Count != s.Patterns[j].Count {
			return s.Patterns[i].Count > s.Patterns[j].Count
		}
		return order[s.Patterns[i].Pattern] < order[s.Patterns[j].Pattern]
	})

	recent := make([]Segment, len(segments))
	copy(recent, segments)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].EndTime.After(recent[j].EndTime)
	})
	if len(recent) > k {
		recent = recent[:k]
	}
	s.Recent = recent
	return s
}
