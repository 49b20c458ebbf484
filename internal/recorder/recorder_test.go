package recorder

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/api"
	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/publish"
	"github.com/banshee-data/motion.report/internal/segment"
	"github.com/banshee-data/motion.report/internal/serialmux"
	"github.com/banshee-data/motion.report/internal/testutil"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

type memStore struct {
	rows []db.SensorRecord
	err  error
}

func (m *memStore) RecordSample(_ context.Context, r db.SensorRecord) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, r)
	return nil
}

type memPublisher struct {
	publish.Nop
	changes []publish.Change
	err     error
}

func (p *memPublisher) PublishChange(c publish.Change) error {
	p.changes = append(p.changes, c)
	return p.err
}

func (p *memPublisher) PublishSummary(segment.Summary) error { return nil }

type linesMux struct {
	*serialmux.DisabledSerialMux
	lines chan string
}

func (m *linesMux) Subscribe() (string, chan string) { return "lines", m.lines }
func (m *linesMux) Unsubscribe(string)               {}

func newRecorder(t *testing.T, store Store, pub publish.Publisher, live *api.Live) (*Recorder, *timeutil.MockClock) {
	t.Helper()
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(log.Printf) })

	rec, err := motion.NewRecognizer(motion.DefaultRecognizerConfig())
	require.NoError(t, err)
	clock := timeutil.NewMockClock(testutil.FixtureStart)
	r, err := New(Options{
		SessionID:      "session-1",
		Recognizer:     rec,
		Store:          store,
		Publisher:      pub,
		Live:           live,
		Clock:          clock,
		StatusInterval: time.Second,
	})
	require.NoError(t, err)
	return r, clock
}

func TestNewValidates(t *testing.T) {
	rec, err := motion.NewRecognizer(motion.DefaultRecognizerConfig())
	require.NoError(t, err)

	_, err = New(Options{Recognizer: rec, Store: &memStore{}})
	assert.Error(t, err, "missing session id")
	_, err = New(Options{SessionID: "x", Store: &memStore{}})
	assert.Error(t, err, "missing recognizer")
	_, err = New(Options{SessionID: "x", Recognizer: rec})
	assert.Error(t, err, "missing store")
}

func TestHandleLineRestingSession(t *testing.T) {
	store := &memStore{}
	pub := &memPublisher{}
	live := api.NewLive("session-1")
	r, clock := newRecorder(t, store, pub, live)
	ctx := context.Background()

	lines := serialmux.SimulatedSession(20)[:20]
	for _, line := range lines {
		require.NoError(t, r.HandleLine(ctx, line))
		clock.Advance(testutil.SampleInterval)
	}

	require.Len(t, store.rows, 20)
	assert.Equal(t, motion.LabelIdle, store.rows[0].Label, "confirmed starts idle")
	assert.Equal(t, motion.LabelResting, store.rows[19].Label)
	assert.Equal(t, "session-1", store.rows[0].SessionID)
	assert.Equal(t, int64(100), store.rows[1].DeviceMillis)
	assert.Equal(t, testutil.FixtureStart, store.rows[0].Sample.Timestamp)

	require.Len(t, pub.changes, 1)
	c := pub.changes[0]
	assert.Equal(t, motion.LabelIdle, c.Previous)
	assert.Equal(t, motion.LabelResting, c.Label)
	// Ten samples fill half the window, then three resting readings confirm.
	assert.Equal(t, testutil.FixtureStart.Add(11*testutil.SampleInterval), c.Time)

	st := live.State()
	assert.Equal(t, motion.LabelResting, st.Confirmed)
	assert.Equal(t, 20, st.Processed)

	stored, skipped := r.Stats()
	assert.Equal(t, 20, stored)
	assert.Zero(t, skipped)
	assert.Equal(t, "Current motion: resting (raw: resting)", r.Status())
}

func TestStatusBeforeSamples(t *testing.T) {
	r, _ := newRecorder(t, &memStore{}, nil, nil)
	assert.Equal(t, "Current motion: waiting for samples", r.Status())
}

func TestHandleLineSkipsBadLines(t *testing.T) {
	store := &memStore{}
	r, _ := newRecorder(t, store, nil, nil)
	ctx := context.Background()

	require.NoError(t, r.HandleLine(ctx, "MPU6050 Found!"))
	require.NoError(t, r.HandleLine(ctx, ""))

	err := r.HandleLine(ctx, "1,2,3")
	assert.ErrorIs(t, err, serialmux.ErrMalformedLine)

	err = r.HandleLine(ctx, "100,NaN,0,9.8,0,0,0,24.5")
	assert.Error(t, err)

	assert.Empty(t, store.rows)
	_, skipped := r.Stats()
	assert.Equal(t, 2, skipped)
}

func TestHandleLineStoreError(t *testing.T) {
	store := &memStore{err: errors.New("database is locked")}
	r, _ := newRecorder(t, store, nil, nil)

	err := r.HandleLine(context.Background(), serialmux.SimulatedSession(1)[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store sample")
	assert.ErrorIs(t, err, store.err)
}

func TestPublishErrorDoesNotStopStorage(t *testing.T) {
	store := &memStore{}
	pub := &memPublisher{err: publish.ErrTimeout}
	r, _ := newRecorder(t, store, pub, nil)

	for _, line := range serialmux.SimulatedSession(20)[:20] {
		require.NoError(t, r.HandleLine(context.Background(), line))
	}
	assert.Len(t, pub.changes, 1)
	assert.Len(t, store.rows, 20)
}

func TestRun(t *testing.T) {
	store := &memStore{}
	live := api.NewLive("session-1")
	r, _ := newRecorder(t, store, nil, live)

	m := &linesMux{DisabledSerialMux: serialmux.NewDisabledSerialMux(), lines: make(chan string, 4)}
	m.lines <- serialmux.SimulatedSession(1)[0]
	m.lines <- "garbage,line"
	m.lines <- serialmux.SimulatedSession(1)[0]
	close(m.lines)

	require.NoError(t, r.Run(context.Background(), m))
	assert.Len(t, store.rows, 2)
	assert.False(t, live.State().Running, "live state stops with the recorder")
}

func TestRunCancelled(t *testing.T) {
	r, _ := newRecorder(t, &memStore{}, nil, nil)
	m := &linesMux{DisabledSerialMux: serialmux.NewDisabledSerialMux(), lines: make(chan string)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Run(ctx, m), context.Canceled)
}
