package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/config"
	"github.com/banshee-data/motion.report/internal/db"
	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/segment"
	"github.com/banshee-data/motion.report/internal/serialmux"
	"github.com/banshee-data/motion.report/internal/testutil"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

type fakeStore struct {
	samples  []segment.LabeledSample
	diag     db.Diagnostics
	sessions []db.Session
	err      error

	since time.Time
	limit int
}

func (f *fakeStore) LabeledSamplesSince(_ context.Context, since time.Time) ([]segment.LabeledSample, error) {
	f.since = since
	if f.err != nil {
		return nil, f.err
	}
	var out []segment.LabeledSample
	for _, s := range f.samples {
		if !s.Timestamp.Before(since) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) Diagnostics(context.Context) (db.Diagnostics, error) {
	return f.diag, f.err
}

func (f *fakeStore) Sessions(_ context.Context, limit int) ([]db.Session, error) {
	f.limit = limit
	return f.sessions, f.err
}

type recordingMux struct {
	*serialmux.DisabledSerialMux
	commands []string
	err      error
}

func (m *recordingMux) SendCommand(c string) error {
	m.commands = append(m.commands, c)
	return m.err
}

var testNow = testutil.FixtureStart.Add(2 * time.Minute)

func newTestServer(t *testing.T, store *fakeStore, live *Live, m serialmux.SerialMuxInterface) *Server {
	t.Helper()
	s, err := NewServer(Options{
		Store:  store,
		Tuning: config.DefaultTuningConfig(),
		Live:   live,
		Serial: m,
		Clock:  timeutil.NewMockClock(testNow),
	})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewServerRequiresStore(t *testing.T) {
	_, err := NewServer(Options{})
	assert.Error(t, err)
}

func TestListSegments(t *testing.T) {
	store := &fakeStore{samples: testutil.SessionHistory(testutil.FixtureStart)}
	s := newTestServer(t, store, nil, nil)

	rec := do(t, s, http.MethodGet, "/api/segments")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, testNow.Add(-time.Hour), store.since)

	var segs []segment.Segment
	testutil.DecodeJSON(t, rec, &segs)
	require.Len(t, segs, 4)
	want := []string{segment.PatternStationary, segment.PatternActive, segment.PatternMixed, segment.PatternStationary}
	for i, seg := range segs {
		assert.Equal(t, want[i], seg.Pattern, "segment %d", i)
	}
}

func TestListSegmentsWindow(t *testing.T) {
	store := &fakeStore{samples: testutil.SessionHistory(testutil.FixtureStart)}
	s := newTestServer(t, store, nil, nil)

	rec := do(t, s, http.MethodGet, "/api/segments?minutes=1")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var segs []segment.Segment
	testutil.DecodeJSON(t, rec, &segs)
	assert.Empty(t, segs, "fixture ends a minute before the window")

	for _, q := range []string{"minutes=0", "minutes=abc", "minutes=20000"} {
		rec := do(t, s, http.MethodGet, "/api/segments?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestShowSummary(t *testing.T) {
	store := &fakeStore{samples: testutil.SessionHistory(testutil.FixtureStart)}
	s := newTestServer(t, store, nil, nil)

	rec := do(t, s, http.MethodGet, "/api/summary?recent=2")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var sum segment.Summary
	testutil.DecodeJSON(t, rec, &sum)
	assert.Equal(t, 4, sum.Total)
	require.Len(t, sum.Patterns, 3)
	assert.Equal(t, segment.PatternStationary, sum.Patterns[0].Pattern)
	assert.Equal(t, 2, sum.Patterns[0].Count)
	assert.InDelta(t, 50.0, sum.Patterns[0].Share, 1e-9)
	assert.Equal(t, segment.PatternActive, sum.Patterns[1].Pattern)
	assert.Len(t, sum.Recent, 2)

	rec = do(t, s, http.MethodGet, "/api/summary?recent=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreErrors(t *testing.T) {
	store := &fakeStore{err: errors.New("disk on fire")}
	s := newTestServer(t, store, nil, nil)

	for _, path := range []string{"/api/segments", "/api/summary", "/api/diagnostics", "/api/sessions", "/charts/breakdown"} {
		rec := do(t, s, http.MethodGet, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "disk on fire", path)
	}
}

func TestShowDiagnostics(t *testing.T) {
	store := &fakeStore{diag: db.Diagnostics{
		TotalRows: 3,
		Latest:    testNow.Add(-30 * time.Minute),
		Labels:    []db.LabelCount{{Label: "idle", Count: 3}},
	}}
	s := newTestServer(t, store, nil, nil)

	rec := do(t, s, http.MethodGet, "/api/diagnostics")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var got struct {
		AgeMinutes float64 `json:"age_minutes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.InDelta(t, 30.0, got.AgeMinutes, 1e-9)
}

func TestListSessions(t *testing.T) {
	store := &fakeStore{sessions: []db.Session{{ID: "a", Source: "mock", StartedAt: testutil.FixtureStart, Samples: 10}}}
	s := newTestServer(t, store, nil, nil)

	rec := do(t, s, http.MethodGet, "/api/sessions?limit=5")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, 5, store.limit)

	var got []db.Session
	testutil.DecodeJSON(t, rec, &got)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestShowConfig(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil, nil)

	rec := do(t, s, http.MethodGet, "/api/config")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	var cfg config.TuningConfig
	testutil.DecodeJSON(t, rec, &cfg)
	assert.Equal(t, motion.DefaultWindowSize, cfg.GetWindowSize())
	assert.Equal(t, 60, cfg.GetHistoryMinutes())
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil, nil)
	for _, path := range []string{"/api/state", "/api/segments", "/api/config", "/charts/timeline"} {
		rec := do(t, s, http.MethodPost, path)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
	rec := do(t, s, http.MethodGet, "/command")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestShowState(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil, nil)
	rec := do(t, s, http.MethodGet, "/api/state")
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)

	live := NewLive("abc")
	live.Update(motion.Result{Raw: motion.LabelWalking, Confirmed: motion.LabelIdle}, testNow)
	s = newTestServer(t, &fakeStore{}, live, nil)
	rec = do(t, s, http.MethodGet, "/api/state")

	var st LiveState
	testutil.DecodeJSON(t, rec, &st)
	assert.Equal(t, "abc", st.SessionID)
	assert.Equal(t, motion.LabelWalking, st.Raw)
	assert.Equal(t, 1, st.Processed)
}

func TestSendCommand(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil, nil)
	post := func(s *Server, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		s.ServeMux().ServeHTTP(rec, req)
		return rec
	}

	rec := post(s, url.Values{"command": {"R"}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	m := &recordingMux{DisabledSerialMux: serialmux.NewDisabledSerialMux()}
	s = newTestServer(t, &fakeStore{}, nil, m)

	rec = post(s, url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(s, url.Values{"command": {"R"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"R"}, m.commands)

	m.err = serialmux.ErrWriteFailed
	rec = post(s, url.Values{"command": {"R"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	s = newTestServer(t, &fakeStore{}, nil, serialmux.NewDisabledSerialMux())
	rec = post(s, url.Values{"command": {"R"}})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCharts(t *testing.T) {
	store := &fakeStore{samples: testutil.SessionHistory(testutil.FixtureStart)}
	s := newTestServer(t, store, nil, nil)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/charts/breakdown", "text/html; charset=utf-8", "Motion Breakdown by Time Segment"},
		{"/charts/timeline", "text/html; charset=utf-8", "Motion Patterns Timeline"},
		{"/charts/dashboard", "text/html; charset=utf-8", "Motion Patterns Timeline"},
		{"/charts/breakdown.png", "image/png", "\x89PNG"},
		{"/charts/timeline.png", "image/png", "\x89PNG"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.path)
			testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}

	empty := newTestServer(t, &fakeStore{}, nil, nil)
	rec := do(t, empty, http.MethodGet, "/charts/breakdown.png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRootRedirect(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil, nil)

	rec := do(t, s, http.MethodGet, "/")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/charts/dashboard", rec.Header().Get("Location"))

	rec = do(t, s, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLiveUnavailable(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, nil, nil)
	rec := do(t, s, http.MethodGet, "/api/live")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStreamLive(t *testing.T) {
	live := NewLive("ws")
	s := newTestServer(t, &fakeStore{}, live, nil)
	srv := httptest.NewServer(LoggingMiddleware(s.ServeMux()))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/live", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first LiveState
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "ws", first.SessionID)
	assert.Equal(t, motion.LabelIdle, first.Confirmed)

	live.Update(motion.Result{Raw: motion.LabelRunning, Confirmed: motion.LabelRunning, Changed: true}, testNow)

	var next LiveState
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, motion.LabelRunning, next.Confirmed)
	assert.Equal(t, testNow, next.ChangedAt.UTC())

	live.Stop()
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Contains(t, statusCodeColor(200), "200")
	assert.Contains(t, statusCodeColor(302), colorYellow)
	assert.Contains(t, statusCodeColor(500), colorBoldRed)
	assert.Equal(t, "101", statusCodeColor(101))
}
