package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/motion"
	"github.com/banshee-data/motion.report/internal/testutil"
)

func TestNewLive(t *testing.T) {
	l := NewLive("s1")
	st := l.State()
	assert.Equal(t, "s1", st.SessionID)
	assert.True(t, st.Running)
	assert.Equal(t, motion.LabelIdle, st.Confirmed)
	assert.Equal(t, motion.StateCollecting, st.Raw)
	assert.Zero(t, st.Processed)
}

func TestLiveUpdateNotifiesOnChangeOnly(t *testing.T) {
	l := NewLive("s1")
	id, ch := l.Subscribe()
	defer l.Unsubscribe(id)

	at := testutil.FixtureStart
	l.Update(motion.Result{Raw: motion.LabelWalking, Confirmed: motion.LabelIdle}, at)
	select {
	case st := <-ch:
		t.Fatalf("unexpected notification %+v", st)
	default:
	}

	l.Update(motion.Result{
		Raw:       motion.LabelWalking,
		Confirmed: motion.LabelWalking,
		Previous:  motion.LabelIdle,
		Changed:   true,
	}, at.Add(time.Second))

	select {
	case st := <-ch:
		assert.Equal(t, motion.LabelWalking, st.Confirmed)
		assert.Equal(t, 2, st.Processed)
		assert.Equal(t, at.Add(time.Second), st.ChangedAt)
	default:
		t.Fatal("no notification for a confirmed change")
	}

	st := l.State()
	assert.Equal(t, at.Add(time.Second), st.UpdatedAt)
}

func TestLiveSlowSubscriberDoesNotBlock(t *testing.T) {
	l := NewLive("s1")
	id, ch := l.Subscribe()
	defer l.Unsubscribe(id)

	for i := 0; i < liveBuffer*2; i++ {
		l.Update(motion.Result{Confirmed: motion.LabelRunning, Changed: true}, testutil.FixtureStart)
	}
	assert.Len(t, ch, liveBuffer)
	assert.Equal(t, liveBuffer*2, l.State().Processed)
}

func TestLiveStopClosesSubscribers(t *testing.T) {
	l := NewLive("s1")
	_, ch := l.Subscribe()
	l.Stop()

	_, ok := <-ch
	assert.False(t, ok, "channel closed on stop")
	assert.False(t, l.State().Running)

	id, late := l.Subscribe()
	assert.Equal(t, -1, id)
	_, ok = <-late
	assert.False(t, ok, "subscribing after stop yields a closed channel")

	l.Unsubscribe(id)
}

func TestLiveUnsubscribe(t *testing.T) {
	l := NewLive("s1")
	id, ch := l.Subscribe()
	l.Unsubscribe(id)
	_, ok := <-ch
	require.False(t, ok)

	// Second call is a no-op.
	l.Unsubscribe(id)
	l.Update(motion.Result{Confirmed: motion.LabelWalking, Changed: true}, testutil.FixtureStart)
}
