package api

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/httputil"
	"github.com/banshee-data/motion.report/internal/report"
	"github.com/banshee-data/motion.report/internal/segment"
	"github.com/banshee-data/motion.report/internal/serialmux"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxHistoryMinutes caps ?minutes= at one week.
const maxHistoryMinutes = 7 * 24 * 60

// Store is the history the server reads from. *db.DB implements it.
type Store interface {
	LabeledSamplesSince(ctx context.Context, since time.Time) ([]segment.LabeledSample, error)
	Diagnostics(ctx context.Context) (db.Diagnostics, error)
	Sessions(ctx context.Context, limit int) ([]db.Session, error)
}

// Options configures a Server. Store and Tuning are required; the rest
// may be nil.
type Options struct {
	Store  Store
	Tuning *config.TuningConfig
	Live   *Live
	Serial serialmux.SerialMuxInterface
	Clock  timeutil.Clock
	Report report.Options
}

type Server struct {
	store    Store
	tuning   *config.TuningConfig
	analyzer *segment.Analyzer
	live     *Live
	m        serialmux.SerialMuxInterface
	clock    timeutil.Clock
	report   report.Options
}

func NewServer(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("api: store is required")
	}
	if opts.Tuning == nil {
		opts.Tuning = config.DefaultTuningConfig()
	}
	analyzer, err := opts.Tuning.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Server{
		store:    opts.Store,
		tuning:   opts.Tuning,
		analyzer: analyzer,
		live:     opts.Live,
		m:        opts.Serial,
		clock:    opts.Clock,
		report:   opts.Report,
	}, nil
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack passes through to the underlying writer so /api/live can upgrade.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	lrw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (lrw *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return lrw.ResponseWriter
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.showState)
	mux.HandleFunc("/api/live", s.streamLive)
	mux.HandleFunc("/api/segments", s.listSegments)
	mux.HandleFunc("/api/summary", s.showSummary)
	mux.HandleFunc("/api/diagnostics", s.showDiagnostics)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/charts/breakdown", s.chartHandler(report.RenderBreakdown, "text/html; charset=utf-8"))
	mux.HandleFunc("/charts/timeline", s.chartHandler(report.RenderTimeline, "text/html; charset=utf-8"))
	mux.HandleFunc("/charts/breakdown.png", s.chartHandler(report.WriteBreakdownPNG, "image/png"))
	mux.HandleFunc("/charts/timeline.png", s.chartHandler(report.WriteTimelinePNG, "image/png"))
	mux.HandleFunc("/charts/dashboard", s.chartHandler(report.RenderDashboard, "text/html; charset=utf-8"))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/charts/dashboard", http.StatusFound)
	})
	return mux
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.m == nil {
		http.Error(w, "Serial port not attached", http.StatusServiceUnavailable)
		return
	}

	command := r.FormValue("command")
	if command == "" {
		http.Error(w, "Missing command", http.StatusBadRequest)
		return
	}
	if err := s.m.SendCommand(command); err != nil {
		if errors.Is(err, serialmux.ErrNoSensor) {
			http.Error(w, "No sensor attached", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, "Failed to send command", http.StatusInternalServerError)
		return
	}
	io.WriteString(w, "Command sent successfully")
}

func (s *Server) showState(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	if s.live == nil {
		httputil.WriteJSONOK(w, LiveState{})
		return
	}
	httputil.WriteJSONOK(w, s.live.State())
}

// analyzeWindow loads the last ?minutes= of history and segments it.
func (s *Server) analyzeWindow(r *http.Request) ([]segment.Segment, error) {
	minutes, err := httputil.QueryInt(r, "minutes", s.tuning.GetHistoryMinutes(), 1, maxHistoryMinutes)
	if err != nil {
		return nil, errBadRequest{err}
	}
	since, _ := timeutil.Window(s.clock, time.Duration(minutes)*time.Minute)
	samples, err := s.store.LabeledSamplesSince(r.Context(), since)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return s.analyzer.Analyze(samples), nil
}

type errBadRequest struct{ error }

func writeWindowError(w http.ResponseWriter, err error) {
	if _, ok := err.(errBadRequest); ok {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.InternalServerError(w, err.Error())
}

func (s *Server) listSegments(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	segments, err := s.analyzeWindow(r)
	if err != nil {
		writeWindowError(w, err)
		return
	}
	httputil.WriteJSONOK(w, segments)
}

func (s *Server) showSummary(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	recent, err := httputil.QueryInt(r, "recent", s.tuning.GetRecentSegments(), 1, 1000)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	segments, err := s.analyzeWindow(r)
	if err != nil {
		writeWindowError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.analyzer.Summarize(segments, recent))
}

func (s *Server) showDiagnostics(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	d, err := s.store.Diagnostics(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to read diagnostics: %v", err))
		return
	}
	httputil.WriteJSONOK(w, struct {
		db.Diagnostics
		AgeMinutes float64 `json:"age_minutes"`
	}{d, d.Age(s.clock.Now()).Minutes()})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	limit, err := httputil.QueryInt(r, "limit", 50, 1, 1000)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sessions, err := s.store.Sessions(r.Context(), limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list sessions: %v", err))
		return
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if !httputil.RequireGet(w, r) {
		return
	}
	httputil.WriteJSONOK(w, s.tuning)
}

type renderFunc func(io.Writer, []segment.Segment, report.Options) error

func (s *Server) chartHandler(render renderFunc, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !httputil.RequireGet(w, r) {
			return
		}
		segments, err := s.analyzeWindow(r)
		if err != nil {
			writeWindowError(w, err)
			return
		}
		if len(segments) == 0 {
			httputil.NotFound(w, "no segments in the requested window")
			return
		}

		var buf bytes.Buffer
		if err := render(&buf, segments, s.report); err != nil {
			httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(buf.Bytes())
	}
}
