package ratelimit

import (
	"testing"
	"time"

	"github.com/Sternrassler/storefront-feed/pkg/clock"
)

func TestThrottler_LeadingEdge(t *testing.T) {
	clk := clock.NewFake(epoch)
	var got []string
	th := NewThrottler(clk, 500*time.Millisecond, func(v string) {
		got = append(got, v)
	})

	if !th.Call("first") {
		t.Error("first call should execute")
	}
	clk.Advance(200 * time.Millisecond)
	if th.Call("second") {
		t.Error("call inside the window should be dropped")
	}

	if len(got) != 1 || got[0] != "first" {
		t.Fatalf("got %v, want [first]", got)
	}

	clk.Advance(300 * time.Millisecond)
	if !th.Call("third") {
		t.Error("call after the window should execute")
	}

	want := []string{"first", "third"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestThrottler_WindowMeasuredFromLastExecution(t *testing.T) {
	clk := clock.NewFake(epoch)
	count := 0
	th := NewThrottler(clk, 100*time.Millisecond, func(struct{}) { count++ })

	th.Call(struct{}{})
	// Dropped calls must not extend the window.
	for i := 0; i < 4; i++ {
		clk.Advance(20 * time.Millisecond)
		th.Call(struct{}{})
	}
	clk.Advance(20 * time.Millisecond)
	th.Call(struct{}{})

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestThrottler_Reset(t *testing.T) {
	clk := clock.NewFake(epoch)
	count := 0
	th := NewThrottler(clk, time.Second, func(struct{}) { count++ })

	th.Call(struct{}{})
	th.Reset()
	th.Call(struct{}{})

	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}
