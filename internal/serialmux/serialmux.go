// Serialmux provides an abstraction over a serial port with the ability for
// multiple clients to subscribe to lines from the serial port and send
// commands to a single serial port device.
package serialmux

import (
	"bufio"
	"bytes"
	"context"
	crand "crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"tailscale.com/tsweb"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// SubscriberBuffer is the number of lines a slow subscriber may fall behind
// before lines are dropped for it.
const SubscriberBuffer = 64

//go:embed templates/*
var adminTemplateFS embed.FS

var sendCommandTemplate = template.Must(template.ParseFS(adminTemplateFS, "templates/send-command.html.tmpl"))

// SerialMux multiplexes the sensor's line stream: every subscriber sees
// every non-empty line, and commands from any caller are written one at a
// time.
type SerialMux[T SerialPorter] struct {
	port T

	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool

	writeMu sync.Mutex

	lines    atomic.Uint64
	dropped  atomic.Uint64
	commands atomic.Uint64
}

// SerialMuxInterface is what the recorder and HTTP layers need from a sensor
// connection.
type SerialMuxInterface interface {
	// Subscribe returns a new channel of lines and the ID that releases it.
	Subscribe() (string, chan string)
	// Unsubscribe closes and forgets the channel with this ID.
	Unsubscribe(string)
	// SendCommand writes one newline-terminated command to the sensor.
	SendCommand(string) error
	// Monitor reads lines until the port ends, fails, or ctx is done.
	Monitor(context.Context) error
	// Close closes every subscriber and then the port.
	Close() error

	// AttachAdminRoutes registers the /debug/ sensor pages. tsweb limits
	// them to loopback and tailnet callers.
	AttachAdminRoutes(*http.ServeMux)
}

// NewSerialMux creates a SerialMux instance backed by the given port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]chan string),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) Subscribe() (string, chan string) {
	id, ch := randomID(), make(chan string, SubscriberBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		close(ch)
		return id, ch
	}
	s.subscribers[id] = ch
	return id, ch
}

func (s *SerialMux[T]) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

func (s *SerialMux[T]) SendCommand(command string) error {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	n, err := io.WriteString(s.port, command)
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	s.commands.Add(1)
	return nil
}

// publish hands line to every subscriber that has room. It reports false
// once the mux is closing.
func (s *SerialMux[T]) publish(line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.lines.Add(1)
	for _, ch := range s.subscribers {
		select {
		case ch <- line:
		default:
			s.dropped.Add(1)
		}
	}
	return true
}

// Monitor reads lines from the port and fans them out. The sketch ends
// lines with CRLF, so surrounding whitespace is trimmed and blank lines are
// skipped. A clean EOF returns nil.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	// Scan blocks, so it runs apart from the select on ctx.
	go func() {
		defer close(lines)
		scan := bufio.NewScanner(s.port)
		for scan.Scan() {
			select {
			case lines <- scan.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scan.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if !s.publish(line) {
				return nil
			}
		}
	}
}

func (s *SerialMux[T]) Close() error {
	s.mu.Lock()
	s.closing = true
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
	s.mu.Unlock()
	return s.port.Close()
}

// Status reports the line counters for /debug/sensor.
func (s *SerialMux[T]) Status() SensorStatus {
	s.mu.Lock()
	subs := len(s.subscribers)
	s.mu.Unlock()
	return SensorStatus{
		Attached:    true,
		Subscribers: subs,
		Lines:       s.lines.Load(),
		Dropped:     s.dropped.Load(),
		Commands:    s.commands.Load(),
	}
}

func (s *SerialMux[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)

	// Basic command / live tail monitor interface using the below two API endpoints.
	debug.HandleFunc("send-command", "send a command to the sensor", func(w http.ResponseWriter, r *http.Request) {
		buf := bytes.NewBuffer(nil)
		if err := sendCommandTemplate.Execute(buf, nil); err != nil {
			http.Error(w, "Failed to render template", http.StatusInternalServerError)
			return
		}
		io.Copy(w, buf)
	})

	debug.HandleSilentFunc("send-command-api", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		command := strings.TrimSpace(r.FormValue("command"))
		if command == "" {
			http.Error(w, "Missing command", http.StatusBadRequest)
			return
		}
		if err := s.SendCommand(command); err != nil {
			http.Error(w, "Failed to write command", http.StatusInternalServerError)
			return
		}
		io.WriteString(w, fmt.Sprintf("Wrote command %q to serial port", command))
	})

	// Server-Sent Events stream of raw lines from the serial port.
	debug.HandleSilentFunc("tail", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		serveTail(w, r, s)
	})

	debug.HandleSilentFunc("tail.js", serveTailJS)

	debug.HandleFunc("sensor", "line counters for the sensor connection", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, s.Status())
	})
}

type subscriber interface {
	Subscribe() (string, chan string)
	Unsubscribe(string)
}

func serveTail(w http.ResponseWriter, r *http.Request, s subscriber) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable buffering for nginx

	id, c := s.Subscribe()
	defer s.Unsubscribe(id)

	// Send initial ping to establish connection
	w.Write([]byte(": ping\n\n"))
	flusher.Flush()

	for {
		select {
		case payload, ok := <-c:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func serveTailJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "no-cache")

	f, err := adminTemplateFS.Open("templates/tail.js")
	if err != nil {
		http.Error(w, "Failed to open tail.js", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	io.Copy(w, f)
}
