package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock_AfterFunc(t *testing.T) {
	clock := RealClock{}
	done := make(chan struct{})
	clock.AfterFunc(5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("AfterFunc callback did not run")
	}
}

func TestRealClock_NewTicker(t *testing.T) {
	ticker := RealClock{}.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
}

func TestMockClock_TickerFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	ticker := clock.NewTicker(time.Second)

	clock.Advance(500 * time.Millisecond)
	select {
	case <-ticker.C():
		t.Fatal("ticker fired early")
	default:
	}

	clock.Advance(500 * time.Millisecond)
	select {
	case got := <-ticker.C():
		assert.Equal(t, start.Add(time.Second), got)
	default:
		t.Fatal("ticker did not fire at deadline")
	}
}

func TestMockClock_StoppedTickerIsNotCounted(t *testing.T) {
	clock := NewMockClock(time.Time{})
	a := clock.NewTicker(time.Second)
	clock.NewTicker(time.Second)
	require.Equal(t, 2, clock.ActiveTickers())

	a.Stop()
	assert.Equal(t, 1, clock.ActiveTickers())

	clock.Advance(time.Second)
	select {
	case <-a.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockClock_AfterFunc(t *testing.T) {
	clock := NewMockClock(time.Time{})
	var calls int
	clock.AfterFunc(100*time.Millisecond, func() { calls++ })
	cancelled := clock.AfterFunc(100*time.Millisecond, func() { calls += 10 })

	require.Equal(t, 2, clock.PendingTimers())
	assert.True(t, cancelled.Stop())
	assert.False(t, cancelled.Stop())

	clock.Advance(99 * time.Millisecond)
	assert.Equal(t, 0, calls)

	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, clock.PendingTimers())

	clock.Advance(time.Second)
	assert.Equal(t, 1, calls, "timer must fire once")
}

func TestMockClock_AfterFuncCanScheduleAnother(t *testing.T) {
	clock := NewMockClock(time.Time{})
	var order []string
	clock.AfterFunc(10*time.Millisecond, func() {
		order = append(order, "first")
		clock.AfterFunc(10*time.Millisecond, func() { order = append(order, "second") })
	})

	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"first"}, order)

	clock.Advance(10 * time.Millisecond)
	assert.Equal(t, []string{"first", "second"}, order)
}
