// Package report renders analysed segments as text, HTML charts and PNG
// charts.
package report

import (
	"sort"
	"time"

	"github.com/banshee-data/motion.report/internal/segment"
)

// TimeFormat is used for segment boundaries on axes and in text output.
const TimeFormat = "15:04:05"

// Options controls presentation. The zero value renders in local time with
// the echarts default asset host.
type Options struct {
	Title      string
	AssetsHost string
	Location   *time.Location
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

func (o Options) title(def string) string {
	if o.Title == "" {
		return def
	}
	return o.Title
}

func (o Options) clock(t time.Time) string {
	return t.In(o.location()).Format(TimeFormat)
}

// byStart returns a copy of segments sorted by start time.
func byStart(segments []segment.Segment) []segment.Segment {
	out := make([]segment.Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// patternNames lists the distinct patterns present, sorted by name. This
// is the order of the timeline's pattern axis.
func patternNames(segments []segment.Segment) []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range segments {
		if !seen[s.Pattern] {
			seen[s.Pattern] = true
			names = append(names, s.Pattern)
		}
	}
	sort.Strings(names)
	return names
}
