package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

// WriteSummary prints the pattern summary and the most recent segments.
func WriteSummary(w io.Writer, s segment.Summary, o Options) error {
	var b strings.Builder
	if s.Total == 0 {
		b.WriteString("No valid segments found in the data.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString("\n===== MOTION PATTERN SUMMARY =====\n")
	for _, pc := range s.Patterns {
		fmt.Fprintf(&b, "%s: %d segments (%.1f%%)\n", pc.Pattern, pc.Count, pc.Share)
	}

	b.WriteString("\n===== MOST RECENT SEGMENTS =====\n")
	for i, seg := range s.Recent {
		fmt.Fprintf(&b, "\nSegment %d (%s - %s):\n", i+1, o.clock(seg.StartTime), o.clock(seg.EndTime))
		fmt.Fprintf(&b, "  Pattern: %s\n", seg.Pattern)

		pct := make([]string, len(motion.Labels))
		runs := make([]string, len(motion.Labels))
		for j, l := range motion.Labels {
			pct[j] = fmt.Sprintf("%.1f%% %s", seg.LabelPercentage[l], l)
			runs[j] = fmt.Sprintf("%d %s", seg.MaxConsecutive[l], l)
		}
		fmt.Fprintf(&b, "  Motion breakdown: %s\n", strings.Join(pct, ", "))
		fmt.Fprintf(&b, "  Longest sequences: %s\n", strings.Join(runs, ", "))
		fmt.Fprintf(&b, "  Motion transitions: %d\n", seg.TransitionCount)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteFetchSummary reports how much history was loaded and its label mix.
func WriteFetchSummary(w io.Writer, samples []segment.LabeledSample, window time.Duration) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d data points from the last %s.\n", len(samples), window)
	writeDistribution(&b, "Motion label distribution in recent data:", countLabels(samples))
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteDiagnostics explains an empty analysis window: how much data the
// store holds and how stale it is.
func WriteDiagnostics(w io.Writer, d db.Diagnostics, since, now time.Time, o Options) error {
	var b strings.Builder
	loc := o.location()
	fmt.Fprintf(&b, "No data found since %s\n", since.In(loc).Format(time.DateTime))

	if d.TotalRows == 0 {
		b.WriteString("No data found in the database at all.\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Total records in database: %d\n", d.TotalRows)
	fmt.Fprintf(&b, "Most recent record timestamp: %s\n", d.Latest.In(loc).Format(time.DateTime))
	fmt.Fprintf(&b, "Current time: %s\n", now.In(loc).Format(time.DateTime))
	fmt.Fprintf(&b, "Data is %.1f minutes old\n", d.Age(now).Minutes())

	writeDistribution(&b, "Motion label distribution:", d.Labels)

	_, err := io.WriteString(w, b.String())
	return err
}

func countLabels(samples []segment.LabeledSample) []db.LabelCount {
	n := map[string]int64{}
	for _, s := range samples {
		n[string(s.Label)]++
	}
	out := make([]db.LabelCount, 0, len(n))
	for l, c := range n {
		out = append(out, db.LabelCount{Label: l, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func writeDistribution(b *strings.Builder, heading string, counts []db.LabelCount) {
	b.WriteString(heading + "\n")
	for _, c := range counts {
		fmt.Fprintf(b, "  %s: %d records\n", c.Label, c.Count)
	}
}
