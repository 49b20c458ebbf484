package api

import (
	"sync"
	"time"

	"github.com/banshee-data/motion.report/internal/motion"
)

// LiveState is what the recorder last saw.
type LiveState struct {
	SessionID string          `json:"session_id"`
	Running   bool            `json:"running"`
	Confirmed motion.Label    `json:"confirmed"`
	Raw       motion.Label    `json:"raw"`
	Processed int             `json:"processed"`
	Features  motion.Features `json:"features"`
	UpdatedAt time.Time       `json:"updated_at,omitempty"`
	ChangedAt time.Time       `json:"changed_at,omitempty"`
}

// liveBuffer bounds each subscriber's backlog; slow readers miss changes
// rather than block the recorder.
const liveBuffer = 16

// Live holds the recorder's current state for the HTTP surface and fans
// confirmed changes out to subscribers. It is safe for concurrent use.
type Live struct {
	mu    sync.RWMutex
	state LiveState
	subs  map[int]chan LiveState
	next  int
}

// NewLive returns a holder for a session whose confirmed state starts idle.
func NewLive(sessionID string) *Live {
	return &Live{
		state: LiveState{
			SessionID: sessionID,
			Running:   true,
			Confirmed: motion.InitialDebounceState().Confirmed,
			Raw:       motion.StateCollecting,
		},
		subs: make(map[int]chan LiveState),
	}
}

// Update records one recogniser result. Subscribers are notified only when
// the confirmed label changed.
func (l *Live) Update(res motion.Result, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Confirmed = res.Confirmed
	l.state.Raw = res.Raw
	l.state.Features = res.Features
	l.state.Processed++
	l.state.UpdatedAt = at
	if !res.Changed {
		return
	}
	l.state.ChangedAt = at
	for _, ch := range l.subs {
		select {
		case ch <- l.state:
		default:
		}
	}
}

// Stop marks the session finished and closes every subscriber.
func (l *Live) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Running = false
	for id, ch := range l.subs {
		close(ch)
		delete(l.subs, id)
	}
}

// State returns a copy of the current state.
func (l *Live) State() LiveState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Subscribe returns a channel of confirmed changes. A subscription to a
// stopped holder is closed immediately.
func (l *Live) Subscribe() (int, <-chan LiveState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := make(chan LiveState, liveBuffer)
	if !l.state.Running {
		close(ch)
		return -1, ch
	}
	id := l.next
	l.next++
	l.subs[id] = ch
	return id, ch
}

func (l *Live) Unsubscribe(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ch, ok := l.subs[id]; ok {
		close(ch)
		delete(l.subs, id)
	}
}
