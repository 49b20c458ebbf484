// Package recorder drives one live recording session: sensor lines in,
// confirmed motion labels out to the database, the live state holder and
// an optional publisher.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/banshee-data/motion.report/internal/api"
	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/publish"
	"github.com/banshee-data/motion.report/internal/serialmux"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

// Store receives one row per classified sample.
type Store interface {
	RecordSample(ctx context.Context, r db.SensorRecord) error
}

// Options configures a Recorder. Recognizer, Store and SessionID are
// required. A zero StatusInterval disables the status log.
type Options struct {
	SessionID      string
	Recognizer     *motion.Recognizer
	Store          Store
	Publisher      publish.Publisher
	Live           *api.Live
	Clock          timeutil.Clock
	StatusInterval time.Duration
}

// Recorder is not safe for concurrent use; Run owns it.
type Recorder struct {
	opts Options

	last    motion.Result
	stored  int
	skipped int
}

func New(opts Options) (*Recorder, error) {
	if opts.Recognizer == nil || opts.Store == nil {
		return nil, errors.New("recorder: recognizer and store are required")
	}
	if opts.SessionID == "" {
		return nil, errors.New("recorder: session id is required")
	}
	if opts.Publisher == nil {
		opts.Publisher = publish.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Recorder{opts: opts}, nil
}

// Stats returns the number of stored rows and of lines that were skipped
// because they failed to parse, classify or store.
func (r *Recorder) Stats() (stored, skipped int) { return r.stored, r.skipped }

// HandleLine processes one line from the sensor. Errors describe the single
// line; the caller logs them and carries on.
func (r *Recorder) HandleLine(ctx context.Context, payload string) error {
	err := serialmux.HandleEvent(payload, r.opts.Clock.Now(), func(reading serialmux.Reading) error {
		return r.handleReading(ctx, reading)
	})
	if err != nil {
		r.skipped++
	}
	return err
}

func (r *Recorder) handleReading(ctx context.Context, reading serialmux.Reading) error {
	res, err := r.opts.Recognizer.Add(reading.Sample)
	if err != nil {
		return err
	}
	at := reading.Sample.Timestamp

	if r.opts.Live != nil {
		r.opts.Live.Update(res, at)
	}
	if res.Changed {
		log.Printf("MOTION CHANGED: %s -> %s", res.Previous, res.Confirmed)
		change := publish.Change{
			SessionID: r.opts.SessionID,
			Previous:  res.Previous,
			Label:     res.Confirmed,
			Raw:       res.Raw,
			Time:      at,
			Features:  res.Features,
		}
		if err := r.opts.Publisher.PublishChange(change); err != nil {
			log.Printf("failed to publish motion change: %v", err)
		}
	}
	r.last = res

	if !res.Confirmed.Valid() {
		return nil
	}
	if err := r.opts.Store.RecordSample(ctx, db.SensorRecord{
		SessionID:    r.opts.SessionID,
		DeviceMillis: reading.DeviceMillis,
		Sample:       reading.Sample,
		TemperatureC: reading.TemperatureC,
		Label:        res.Confirmed,
	}); err != nil {
		return fmt.Errorf("failed to store sample: %w", err)
	}
	r.stored++
	return nil
}

// Status is the periodic "current motion" line.
func (r *Recorder) Status() string {
	if r.last.Raw == "" {
		return "Current motion: waiting for samples"
	}
	return fmt.Sprintf("Current motion: %s (raw: %s)", r.last.Confirmed, r.last.Raw)
}

// Run consumes lines from m until ctx is cancelled or the subscription
// closes.
func (r *Recorder) Run(ctx context.Context, m serialmux.SerialMuxInterface) error {
	id, lines := m.Subscribe()
	defer m.Unsubscribe(id)
	if r.opts.Live != nil {
		defer r.opts.Live.Stop()
	}

	var status <-chan time.Time
	if r.opts.StatusInterval > 0 {
		ticker := r.opts.Clock.NewTicker(r.opts.StatusInterval)
		defer ticker.Stop()
		status = ticker.C()
	}

	for {
		select {
		case <-status:
			log.Print(r.Status())
		case payload, ok := <-lines:
			if !ok {
				return nil
			}
			if err := r.HandleLine(ctx, payload); err != nil {
				log.Printf("error handling event: %v", err)
			}
		case <-ctx.Done():
			log.Printf("recorder stopped: %d samples stored, %d lines skipped", r.stored, r.skipped)
			return ctx.Err()
		}
	}
}
