package screen

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_RunsAfterQuietPeriod(t *testing.T) {
	var called atomic.Int32
	d := NewDebouncer(30 * time.Millisecond)

	d.Trigger(func() { called.Add(1) })
	assert.True(t, d.Pending())
	assert.Equal(t, int32(0), called.Load(), "nothing runs before the quiet period")

	assert.Eventually(t, func() bool { return called.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, d.Pending())
}

func TestDebouncer_BurstKeepsLastCall(t *testing.T) {
	var called, last atomic.Int32
	d := NewDebouncer(40 * time.Millisecond)

	for i := int32(1); i <= 10; i++ {
		d.Trigger(func() {
			last.Store(i)
			called.Add(1)
		})
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return called.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), called.Load())
	assert.Equal(t, int32(10), last.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	var called atomic.Int32
	d := NewDebouncer(30 * time.Millisecond)

	d.Trigger(func() { called.Add(1) })
	d.Stop()
	assert.False(t, d.Pending())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), called.Load())
}

func TestDebouncer_FlushRunsNowAndDropsScheduled(t *testing.T) {
	var scheduled, flushed atomic.Int32
	d := NewDebouncer(30 * time.Millisecond)

	d.Trigger(func() { scheduled.Add(1) })
	d.Flush(func() { flushed.Add(1) })
	assert.Equal(t, int32(1), flushed.Load(), "Flush runs in the caller's goroutine")

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(0), scheduled.Load())
}

func TestDebouncer_FiredTimerRetiredByLaterTrigger(t *testing.T) {
	var first, second atomic.Int32
	d := NewDebouncer(time.Millisecond)

	// Hold the lock until the first timer has fired and is waiting to claim.
	d.Trigger(func() { first.Add(1) })
	d.mu.Lock()
	time.Sleep(20 * time.Millisecond)
	d.retireLocked()
	d.mu.Unlock()

	d.Trigger(func() { second.Add(1) })
	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}
