package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
)

// BreakdownChart builds a stacked bar per segment showing the share of each
// motion label.
func BreakdownChart(segments []segment.Segment, o Options) *charts.Bar {
	sorted := byStart(segments)
	x := make([]string, len(sorted))
	for i, s := range sorted {
		x[i] = o.clock(s.StartTime)
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Motion breakdown", Width: "100%", Height: "520px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.title("Motion Breakdown by Time Segment"), Subtitle: fmt.Sprintf("segments=%d", len(sorted))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Percentage", Min: 0, Max: 100}),
	)
	bar.SetXAxis(x)

	for _, l := range motion.Labels {
		data := make([]opts.BarData, len(sorted))
		for i, s := range sorted {
			data[i] = opts.BarData{Value: s.LabelPercentage[l]}
		}
		bar.AddSeries(string(l), data,
			charts.WithBarChartOpts(opts.BarChart{Stack: "motion"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: MotionColor(l)}),
		)
	}
	return bar
}

// TimelineChart places each segment on its pattern's row, patterns sorted
// by name.
func TimelineChart(segments []segment.Segment, o Options) *charts.Scatter {
	sorted := byStart(segments)
	x := make([]string, len(sorted))
	for i, s := range sorted {
		x[i] = o.clock(s.StartTime)
	}
	names := patternNames(sorted)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Motion patterns", Width: "100%", Height: "300px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.title("Motion Patterns Timeline")}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time", Type: "category", Data: x}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: names}),
	)

	for _, name := range names {
		var data []opts.ScatterData
		for i, s := range sorted {
			if s.Pattern == name {
				data = append(data, opts.ScatterData{Value: []interface{}{x[i], name}, Symbol: "rect"})
			}
		}
		scatter.AddSeries(name, data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 18}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: PatternColor(name)}),
		)
	}
	return scatter
}

// RenderBreakdown writes the breakdown chart as a standalone HTML page.
func RenderBreakdown(w io.Writer, segments []segment.Segment, o Options) error {
	if err := BreakdownChart(segments, o).Render(w); err != nil {
		return fmt.Errorf("render breakdown: %w", err)
	}
	return nil
}

// RenderTimeline writes the timeline chart as a standalone HTML page.
func RenderTimeline(w io.Writer, segments []segment.Segment, o Options) error {
	if err := TimelineChart(segments, o).Render(w); err != nil {
		return fmt.Errorf("render timeline: %w", err)
	}
	return nil
}

// RenderDashboard writes both charts on one page.
func RenderDashboard(w io.Writer, segments []segment.Segment, o Options) error {
	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	page.PageTitle = o.title("Motion report")
	page.AddCharts(BreakdownChart(segments, o), TimelineChart(segments, o))
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}
