package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFromPadsToTarget(t *testing.T) {
	var slept time.Duration
	td := NewTimingDelay(200*time.Millisecond, 0)
	td.sleep = func(d time.Duration) { slept = d }

	td.WaitFrom(time.Now())

	assert.Greater(t, slept, 150*time.Millisecond)
	assert.LessOrEqual(t, slept, 200*time.Millisecond)
}

func TestTimingDelay_NoSleepWhenAlreadySlow(t *testing.T) {
	called := false
	td := NewTimingDelay(10*time.Millisecond, 0)
	td.sleep = func(time.Duration) { called = true }

	td.WaitFrom(time.Now().Add(-time.Second))

	assert.False(t, called)
}

func TestTimingDelay_JitterBounded(t *testing.T) {
	td := NewTimingDelay(100*time.Millisecond, 50*time.Millisecond)
	for i := 0; i < 100; i++ {
		d := td.target()
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 150*time.Millisecond)
	}
}

func TestTimingDelay_NilIsNoop(t *testing.T) {
	var td *TimingDelay
	assert.NotPanics(t, func() { td.WaitFrom(time.Now()) })
}
