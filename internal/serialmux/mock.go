package serialmux

import (
	"bytes"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
)

// MockSerialPort implements SerialPorter for the simulated sensor.
type MockSerialPort struct {
	io.Reader
	io.WriteCloser
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	return m.WriteCloser.Write(p)
}

type discardCloser struct{}

func (discardCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardCloser) Close() error                { return nil }

// NewMockSerialMux creates a SerialMux backed by a simulated sensor that
// writes lines in order, one every interval, looping forever. Commands
// written to it are discarded.
func NewMockSerialMux(lines []string, interval time.Duration) *SerialMux[*MockSerialPort] {
	r, w := io.Pipe()

	mockPort := &MockSerialPort{
		Reader:      r,
		WriteCloser: discardCloser{},
	}

	go func() {
		defer w.Close()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			<-ticker.C
			if len(lines) == 0 {
				continue
			}
			if _, err := io.WriteString(w, lines[i%len(lines)]+"\r\n"); err != nil {
				return
			}
		}
	}()

	return NewSerialMux(mockPort)
}

// SimulatedSession returns sensor lines for a scripted session at 10 Hz:
// a rest, a walk, a run and a pause, each of perPhase samples.
func SimulatedSession(perPhase int) []string {
	type phase struct {
		accel, swing, gyro float64
	}
	phases := []phase{
		{accel: motion.DefaultBaseline},             // resting
		{accel: 12.0, swing: 1.2, gyro: 0.8},        // walking
		{accel: 16.5, swing: 3.0, gyro: 2.5},        // running
		{accel: motion.DefaultBaseline, swing: 0.4}, // fidgeting
	}

	var (
		out    []string
		millis int64
	)
	for _, p := range phases {
		for i := 0; i < perPhase; i++ {
			wave := math.Sin(float64(i) * math.Pi / 5)
			out = append(out, FormatSampleLine(Reading{
				DeviceMillis: millis,
				Sample: motion.Sample{
					AccelZ: p.accel + p.swing*wave,
					GyroX:  p.gyro * math.Abs(wave),
				},
				TemperatureC: 24.5,
			}))
			millis += 100
		}
	}
	return out
}

// TestableSerialPort implements SerialPorter with configurable behaviour for testing.
// It provides fine-grained control over reads, writes and errors.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// ShortWrite makes Write report one byte fewer than requested
	ShortWrite bool

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// BlockReads causes Read to block until data is added or Close is called
	BlockReads bool

	readCond *sync.Cond
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	tsp := &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
	tsp.readCond = sync.NewCond(&tsp.mu)
	return tsp
}

// Read reads from the read buffer, optionally simulating errors.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.BlockReads {
		for !t.Closed && t.ReadBuffer.Len() == 0 {
			t.readCond.Wait()
		}
		if t.Closed {
			return 0, errors.New("serial port closed")
		}
	}

	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	n, err = t.WriteBuffer.Write(p)
	if t.ShortWrite && n > 0 {
		n--
	}
	return n, err
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.readCond.Broadcast()

	return t.CloseError
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
	t.readCond.Signal()
}

// GetWrittenData returns all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]byte(nil), t.WriteBuffer.Bytes()...)
}
