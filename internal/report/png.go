package report

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

// ErrNoSegments is returned when asked to plot an empty analysis.
var ErrNoSegments = errors.New("no segments to plot")

// Chart sizes follow the original 12x6 and 12x3 inch figures.
const (
	chartWidth      = 12 * vg.Inch
	breakdownHeight = 6 * vg.Inch
	timelineHeight  = 3 * vg.Inch
)

// BreakdownPlot builds the stacked motion breakdown as proportions 0-1.
func BreakdownPlot(segments []segment.Segment, o Options) (*plot.Plot, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	sorted := byStart(segments)

	p := plot.New()
	p.Title.Text = o.title("Motion Breakdown by Time Segment")
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Percentage"
	p.Y.Min = 0
	p.Y.Max = 1

	labels := make([]string, len(sorted))
	for i, s := range sorted {
		labels[i] = o.clock(s.StartTime)
	}

	var below *plotter.BarChart
	for _, l := range motion.Labels {
		values := make(plotter.Values, len(sorted))
		for i, s := range sorted {
			values[i] = s.LabelPercentage[l] / 100
		}
		bars, err := plotter.NewBarChart(values, vg.Points(20))
		if err != nil {
			return nil, fmt.Errorf("bar chart for %s: %w", l, err)
		}
		bars.Color = rgba(MotionColor(l))
		bars.LineStyle.Width = 0
		if below != nil {
			bars.StackOn(below)
		}
		below = bars

		p.Add(bars)
		p.Legend.Add(string(l), bars)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	p.NominalX(labels...)
	return p, nil
}

// TimelinePlot draws each segment as a thick horizontal line on its
// pattern's row, patterns sorted by name.
func TimelinePlot(segments []segment.Segment, o Options) (*plot.Plot, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	sorted := byStart(segments)
	names := patternNames(sorted)
	row := make(map[string]int, len(names))
	for i, n := range names {
		row[n] = i
	}

	p := plot.New()
	p.Title.Text = o.title("Motion Patterns Timeline")
	p.X.Label.Text = "Time"
	p.X.Tick.Marker = plot.TimeTicks{Format: TimeFormat, Time: func(t float64) time.Time {
		return time.Unix(int64(t), 0).In(o.location())
	}}

	for _, s := range sorted {
		y := float64(row[s.Pattern])
		line, err := plotter.NewLine(plotter.XYs{
			{X: float64(s.StartTime.Unix()), Y: y},
			{X: float64(s.EndTime.Unix()), Y: y},
		})
		if err != nil {
			return nil, fmt.Errorf("timeline segment at %s: %w", s.StartTime, err)
		}
		line.Color = rgba(PatternColor(s.Pattern))
		line.Width = vg.Points(10)
		p.Add(line)
	}
	p.NominalY(names...)
	p.Y.Min = -0.5
	p.Y.Max = float64(len(names)) - 0.5
	return p, nil
}

// WriteBreakdownPNG renders the breakdown chart as PNG to w.
func WriteBreakdownPNG(w io.Writer, segments []segment.Segment, o Options) error {
	p, err := BreakdownPlot(segments, o)
	if err != nil {
		return err
	}
	return writePNG(w, p, chartWidth, breakdownHeight)
}

// WriteTimelinePNG renders the timeline chart as PNG to w.
func WriteTimelinePNG(w io.Writer, segments []segment.Segment, o Options) error {
	p, err := TimelinePlot(segments, o)
	if err != nil {
		return err
	}
	return writePNG(w, p, chartWidth, timelineHeight)
}

// SavePNG creates path and writes a chart into it with render.
func SavePNG(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("png canvas: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}
