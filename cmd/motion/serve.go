package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/motion.report/internal/api"
	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/report"
	"github.com/banshee-data/motion.report/internal/serialmux"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

// runServe serves stored history without a sensor attached.
func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", ":8080", "Listen address")
	dbPath := fs.String("db", db.DefaultPath, "SQLite database path")
	tuningPath := fs.String("config", "", "Tuning JSON file (default: built-in values)")
	tz := fs.String("tz", "", "IANA timezone for chart times (default: local)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *listen == "" {
		return fmt.Errorf("listen address is required")
	}

	tuning, err := loadTuning(*tuningPath)
	if err != nil {
		return err
	}
	loc, err := loadLocation(*tz)
	if err != nil {
		return err
	}
	database, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	// No sensor: admin routes still mount and /command answers 503.
	sensor := serialmux.NewDisabledSerialMux()
	defer sensor.Close()

	srv, err := api.NewServer(api.Options{
		Store:  database,
		Tuning: tuning,
		Serial: sensor,
		Clock:  timeutil.RealClock{},
		Report: report.Options{Location: loc},
	})
	if err != nil {
		return err
	}
	mux := srv.ServeMux()
	sensor.AttachAdminRoutes(mux)
	if err := database.AttachAdminRoutes(mux); err != nil {
		return err
	}

	serveHTTP(ctx, *listen, api.LoggingMiddleware(mux))
	return nil
}

func runMigrate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", db.DefaultPath, "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return db.RunMigrateCommand(fs.Args(), *dbPath, out)
}
