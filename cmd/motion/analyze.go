package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/publish"
	"github.com/banshee-data/motion.report/internal/report"
	"github.com/banshee-data/motion.report/internal/segment"
)

// Output file names, written under --out.
const (
	breakdownPNG  = "motion_breakdown.png"
	timelinePNG   = "pattern_timeline.png"
	dashboardHTML = "motion_report.html"
)

// historyStore is what analyze reads.
type historyStore interface {
	LabeledSamplesSince(ctx context.Context, since time.Time) ([]segment.LabeledSample, error)
	Diagnostics(ctx context.Context) (db.Diagnostics, error)
}

type analyzeOptions struct {
	minutes int
	recent  int
	outDir  string
	png     bool
	html    bool
	report  report.Options
}

func runAnalyze(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	dbPath := fs.String("db", db.DefaultPath, "SQLite database path")
	tuningPath := fs.String("config", "", "Tuning JSON file (default: built-in values)")
	minutes := fs.Int("minutes", 0, "Minutes of history to analyse (default: history_minutes from the tuning config)")
	recent := fs.Int("recent", 0, "Number of recent segments to detail (default: recent_segments from the tuning config)")
	outDir := fs.String("out", ".", "Directory for chart files")
	png := fs.Bool("png", true, "Write PNG charts")
	html := fs.Bool("html", true, "Write the HTML chart page")
	title := fs.String("title", "", "Chart title")
	tz := fs.String("tz", "", "IANA timezone for report times (default: local)")
	mqtt := addMQTTFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	tuning, err := loadTuning(*tuningPath)
	if err != nil {
		return err
	}
	loc, err := loadLocation(*tz)
	if err != nil {
		return err
	}
	opts := analyzeOptions{
		minutes: *minutes,
		recent:  *recent,
		outDir:  *outDir,
		png:     *png,
		html:    *html,
		report:  report.Options{Title: *title, Location: loc},
	}

	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	pub, err := mqtt.publisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	return analyze(ctx, database, tuning, pub, time.Now(), opts, out)
}

// analyze loads the window ending at now, prints the summary and writes
// the chart files. An empty window prints database diagnostics instead.
func analyze(ctx context.Context, store historyStore, tuning *config.TuningConfig, pub publish.Publisher,
	now time.Time, opts analyzeOptions, out io.Writer) error {
	if opts.minutes <= 0 {
		opts.minutes = tuning.GetHistoryMinutes()
	}
	if opts.recent <= 0 {
		opts.recent = tuning.GetRecentSegments()
	}
	analyzer, err := tuning.NewAnalyzer()
	if err != nil {
		return err
	}

	window := time.Duration(opts.minutes) * time.Minute
	since := now.Add(-window)
	samples, err := store.LabeledSamplesSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	if len(samples) == 0 {
		d, err := store.Diagnostics(ctx)
		if err != nil {
			return fmt.Errorf("failed to read diagnostics: %w", err)
		}
		return report.WriteDiagnostics(out, d, since, now, opts.report)
	}

	if err := report.WriteFetchSummary(out, samples, window); err != nil {
		return err
	}
	segments := analyzer.Analyze(samples)
	summary := analyzer.Summarize(segments, opts.recent)
	if err := report.WriteSummary(out, summary, opts.report); err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}

	if err := pub.PublishSummary(summary); err != nil {
		log.Printf("failed to publish summary: %v", err)
	}
	return writeCharts(segments, opts, out)
}

func writeCharts(segments []segment.Segment, opts analyzeOptions, out io.Writer) error {
	if opts.png {
		files := []struct {
			name   string
			render func(io.Writer, []segment.Segment, report.Options) error
		}{
			{breakdownPNG, report.WriteBreakdownPNG},
			{timelinePNG, report.WriteTimelinePNG},
		}
		for _, f := range files {
			path := filepath.Join(opts.outDir, f.name)
			err := report.SavePNG(path, func(w io.Writer) error {
				return f.render(w, segments, opts.report)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
		}
	}
	if opts.html {
		path := filepath.Join(opts.outDir, dashboardHTML)
		fh, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		if err := report.RenderDashboard(fh, segments, opts.report); err != nil {
			fh.Close()
			return err
		}
		if err := fh.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote %s\n", path)
	}
	return nil
}
