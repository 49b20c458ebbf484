// Package timeutil lets the recorder and the HTTP handlers read time through
// an interface so tests can pin "now" and drive status tickers by hand.
package timeutil

import (
	"sync"
	"time"
)

// Clock is the time source used for history windows and status ticks.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTicker(d time.Duration) Ticker
}

// Ticker is the part of time.Ticker the recorder uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Window returns the start of the trailing window of length d ending at
// c.Now(), along with that now.
func Window(c Clock, d time.Duration) (since, now time.Time) {
	now = c.Now()
	return now.Add(-d), now
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// MockClock only moves when told to. Advance delivers at most one pending
// tick per ticker, like a time.Ticker whose reader fell behind.
type MockClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*MockTicker
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Since(t time.Time) time.Duration { return c.Now().Sub(t) }

// Set jumps to t without firing tickers.
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d and fires every ticker that came due.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*MockTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, t := range tickers {
		t.fire(now)
	}
}

func (c *MockClock) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("timeutil: non-positive interval for NewTicker")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &MockTicker{ch: make(chan time.Time, 1), every: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// MockTicker is created by MockClock.NewTicker.
type MockTicker struct {
	mu      sync.Mutex
	ch      chan time.Time
	every   time.Duration
	next    time.Time
	stopped bool
}

func (t *MockTicker) C() <-chan time.Time { return t.ch }

func (t *MockTicker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
}

func (t *MockTicker) fire(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || now.Before(t.next) {
		return
	}
	for !t.next.After(now) {
		t.next = t.next.Add(t.every)
	}
	select {
	case t.ch <- now:
	default:
	}
}
