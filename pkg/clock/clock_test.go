package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AdvanceFiresInDeadlineOrder(t *testing.T) {
	clk := NewFake(epoch)
	var fired []string

	clk.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "c") })
	clk.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "a") })
	clk.AfterFunc(20*time.Millisecond, func() { fired = append(fired, "b") })

	clk.Advance(25 * time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, epoch.Add(25*time.Millisecond), clk.Now())
	assert.Equal(t, 1, clk.Pending())

	clk.Advance(5 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
	assert.Equal(t, 0, clk.Pending())
}

func TestFake_StopPreventsCallback(t *testing.T) {
	clk := NewFake(epoch)
	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop(), "second Stop must report already stopped")

	clk.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestFake_CallbackSeesDeadlineTime(t *testing.T) {
	clk := NewFake(epoch)
	var seen time.Time
	clk.AfterFunc(100*time.Millisecond, func() { seen = clk.Now() })

	clk.Advance(time.Second)
	assert.Equal(t, epoch.Add(100*time.Millisecond), seen)
	assert.Equal(t, epoch.Add(time.Second), clk.Now())
}

func TestFake_NestedTimersInsideWindow(t *testing.T) {
	clk := NewFake(epoch)
	count := 0
	clk.AfterFunc(10*time.Millisecond, func() {
		count++
		clk.AfterFunc(10*time.Millisecond, func() { count++ })
	})

	clk.Advance(15 * time.Millisecond)
	assert.Equal(t, 1, count)

	clk.Advance(5 * time.Millisecond)
	assert.Equal(t, 2, count)
}

func TestReal_AfterFunc(t *testing.T) {
	clk := Real()
	done := make(chan struct{})
	clk.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
