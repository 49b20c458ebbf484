package timeutil

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRealClock(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	if now.Before(before) || now.After(time.Now()) {
		t.Errorf("Now() = %v, expected close to the system clock", now)
	}
	if d := clock.Since(time.Now().Add(-time.Second)); d < time.Second {
		t.Errorf("Since() = %v, expected >= 1s", d)
	}

	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Error("ticker did not fire")
	}
}

func TestWindow(t *testing.T) {
	since, now := Window(NewMockClock(epoch), time.Hour)
	if !now.Equal(epoch) {
		t.Errorf("now = %v, want %v", now, epoch)
	}
	if want := epoch.Add(-time.Hour); !since.Equal(want) {
		t.Errorf("since = %v, want %v", since, want)
	}
}

func TestMockClock_AdvanceAndSet(t *testing.T) {
	clock := NewMockClock(epoch)

	clock.Advance(90 * time.Second)
	if got := clock.Since(epoch); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}

	later := epoch.Add(time.Hour)
	clock.Set(later)
	if !clock.Now().Equal(later) {
		t.Errorf("Now() = %v, want %v", clock.Now(), later)
	}
}

func TestMockClock_Ticker(t *testing.T) {
	clock := NewMockClock(epoch)
	ticker := clock.NewTicker(500 * time.Millisecond)

	tests := []struct {
		advance  time.Duration
		wantTick bool
	}{
		{200 * time.Millisecond, false},
		{300 * time.Millisecond, true},
		{499 * time.Millisecond, false},
		{time.Millisecond, true},
		// Falling behind by several intervals yields a single tick.
		{2 * time.Second, true},
		{100 * time.Millisecond, false},
	}
	for i, tt := range tests {
		clock.Advance(tt.advance)
		select {
		case <-ticker.C():
			if !tt.wantTick {
				t.Errorf("step %d: unexpected tick", i)
			}
		default:
			if tt.wantTick {
				t.Errorf("step %d: missing tick", i)
			}
		}
	}

	ticker.Stop()
	clock.Advance(time.Minute)
	select {
	case <-ticker.C():
		t.Error("stopped ticker fired")
	default:
	}
}
