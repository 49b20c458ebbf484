package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/motion.report/internal/api"
	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/recorder"
	"github.com/banshee-data/motion.report/internal/serialmux"
	"github.com/banshee-data/motion.report/internal/timeutil"
	"github.com/banshee-data/motion.report/internal/version"
)

// mockPhaseSamples is the length of each phase of the simulated session.
const mockPhaseSamples = 150

type recordFlags struct {
	port       string
	baud       int
	framing    string
	portOpts   serialmux.PortOptions
	mock       bool
	dbPath     string
	tuningPath string
	listen     string
	mqtt       mqttFlags
}

func parseRecordFlags(args []string) (recordFlags, error) {
	var f recordFlags
	fs := flag.NewFlagSet("record", flag.ContinueOnError)
	fs.StringVar(&f.port, "port", "/dev/ttyACM0", "Serial port the sensor is attached to (ignored with --mock)")
	fs.IntVar(&f.baud, "baud", serialmux.DefaultBaudRate, "Serial baud rate")
	fs.StringVar(&f.framing, "framing", serialmux.DefaultFraming, "Serial framing as <data bits><parity><stop bits>")
	fs.BoolVar(&f.mock, "mock", false, "Use a simulated sensor instead of a serial port")
	fs.StringVar(&f.dbPath, "db", db.DefaultPath, "SQLite database path")
	fs.StringVar(&f.tuningPath, "config", "", "Tuning JSON file (default: built-in values)")
	fs.StringVar(&f.listen, "listen", "", "Serve the HTTP API on this address while recording (disabled when empty)")
	f.mqtt = addMQTTFlags(fs)
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if !f.mock && f.port == "" {
		return f, errors.New("--port is required unless --mock is set")
	}
	opts, err := serialmux.ParsePortOptions(f.baud, f.framing)
	if err != nil {
		return f, fmt.Errorf("invalid --framing: %w", err)
	}
	f.portOpts = opts
	return f, nil
}

func openSensor(f recordFlags) (serialmux.SerialMuxInterface, string, error) {
	if f.mock {
		return serialmux.NewMockSerialMux(serialmux.SimulatedSession(mockPhaseSamples), 100*time.Millisecond), "mock", nil
	}
	m, err := serialmux.NewRealSerialMux(f.port, f.portOpts)
	if err != nil {
		return nil, "", err
	}
	return m, fmt.Sprintf("%s (%s)", f.port, f.portOpts), nil
}

func runRecord(ctx context.Context, args []string) error {
	f, err := parseRecordFlags(args)
	if err != nil {
		return err
	}
	tuning, err := loadTuning(f.tuningPath)
	if err != nil {
		return err
	}
	recognizer, err := motion.NewRecognizer(tuning.RecognizerConfig())
	if err != nil {
		return err
	}

	sensor, source, err := openSensor(f)
	if err != nil {
		return err
	}
	defer sensor.Close()

	database, err := db.NewDB(f.dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	pub, err := f.mqtt.publisher()
	if err != nil {
		return err
	}
	defer pub.Close()

	clock := timeutil.RealClock{}
	sessionID := uuid.NewString()
	if err := database.StartSession(ctx, sessionID, source, clock.Now()); err != nil {
		return err
	}
	defer func() {
		if err := database.EndSession(context.Background(), sessionID, clock.Now()); err != nil {
			log.Printf("failed to end session %s: %v", sessionID, err)
		}
	}()
	log.Printf("%s: recording session %s from %s into %s", version.String(), sessionID, source, f.dbPath)

	live := api.NewLive(sessionID)
	rec, err := recorder.New(recorder.Options{
		SessionID:      sessionID,
		Recognizer:     recognizer,
		Store:          database,
		Publisher:      pub,
		Live:           live,
		Clock:          clock,
		StatusInterval: tuning.GetStatusInterval(),
	})
	if err != nil {
		return err
	}

	var handler http.Handler
	if f.listen != "" {
		srv, err := api.NewServer(api.Options{
			Store:  database,
			Tuning: tuning,
			Live:   live,
			Serial: sensor,
			Clock:  clock,
		})
		if err != nil {
			return err
		}
		mux := srv.ServeMux()
		sensor.AttachAdminRoutes(mux)
		if err := database.AttachAdminRoutes(mux); err != nil {
			return err
		}
		handler = api.LoggingMiddleware(mux)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		if err := sensor.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rec.Run(ctx, sensor); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("recorder error: %v", err)
		}
	}()

	if handler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveHTTP(ctx, f.listen, handler)
		}()
	}

	wg.Wait()
	stored, skipped := rec.Stats()
	log.Printf("Graceful shutdown complete: %d samples stored, %d lines skipped", stored, skipped)
	return nil
}

// serveHTTP runs an HTTP server until ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, h http.Handler) {
	server := &http.Server{
		Addr:    addr,
		Handler: h,
	}

	// Start server in a goroutine so it doesn't block
	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		log.Printf("failed to start server: %v", err)
		return
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		// Force close the server if graceful shutdown fails
		if err := server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
}
