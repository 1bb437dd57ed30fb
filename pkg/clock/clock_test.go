package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFake_AdvanceFiresDueTimers(t *testing.T) {
	f := NewFake(time.Unix(1000, 0))

	var fired []string
	f.AfterFunc(5*time.Second, func() { fired = append(fired, "b") })
	f.AfterFunc(2*time.Second, func() { fired = append(fired, "a") })
	f.AfterFunc(10*time.Second, func() { fired = append(fired, "c") })

	f.Advance(6 * time.Second)

	assert.Equal(t, []string{"a", "b"}, fired)

	f.Advance(4 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
}

func TestFake_StopPreventsFiring(t *testing.T) {
	f := NewFake(time.Unix(1000, 0))

	fired := false
	timer := f.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	f.Advance(2 * time.Second)

	assert.False(t, fired)
	assert.False(t, timer.Stop(), "second stop reports already stopped")
}

func TestFake_CallbackMaySchedule(t *testing.T) {
	f := NewFake(time.Unix(1000, 0))

	count := 0
	f.AfterFunc(time.Second, func() {
		count++
		f.AfterFunc(time.Second, func() { count++ })
	})

	f.Advance(3 * time.Second)
	assert.Equal(t, 2, count)
}

func TestFake_NowAdvances(t *testing.T) {
	start := time.Unix(1000, 0)
	f := NewFake(start)

	f.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), f.Now())
}
