package serialmux

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
)

// ErrNoSensor is returned by commands sent while no sensor is attached.
var ErrNoSensor = errors.New("no sensor attached")

// DisabledSerialMux stands in for the sensor when `motion serve` runs
// against a database alone. It never produces lines; subscriber channels
// are closed on Unsubscribe or Close so readers unblock during shutdown.
type DisabledSerialMux struct {
	mu          sync.Mutex
	subscribers map[string]chan string
	closing     bool
}

func NewDisabledSerialMux() *DisabledSerialMux {
	return &DisabledSerialMux{subscribers: make(map[string]chan string)}
}

func (d *DisabledSerialMux) Subscribe() (string, chan string) {
	id, ch := randomID(), make(chan string)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		close(ch)
		return id, ch
	}
	d.subscribers[id] = ch
	return id, ch
}

func (d *DisabledSerialMux) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ch, ok := d.subscribers[id]; ok {
		close(ch)
		delete(d.subscribers, id)
	}
}

func (d *DisabledSerialMux) SendCommand(string) error { return ErrNoSensor }

// Monitor blocks until ctx is done.
func (d *DisabledSerialMux) Monitor(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d *DisabledSerialMux) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closing {
		return nil
	}
	d.closing = true
	for id, ch := range d.subscribers {
		close(ch)
		delete(d.subscribers, id)
	}
	return nil
}

// SensorStatus is reported at /debug/sensor.
type SensorStatus struct {
	Attached    bool   `json:"attached"`
	Subscribers int    `json:"subscribers"`
	Lines       uint64 `json:"lines"`
	Dropped     uint64 `json:"dropped"`
	Commands    uint64 `json:"commands"`
}

func writeStatus(w http.ResponseWriter, st SensorStatus) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(st)
}

func (d *DisabledSerialMux) status() SensorStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return SensorStatus{Subscribers: len(d.subscribers)}
}

func (d *DisabledSerialMux) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/sensor", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, d.status())
	})
}
