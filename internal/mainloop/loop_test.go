package mainloop

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"
)

func newManualLoop() (*Loop, *ManualClock) {
	clock := NewManualClock(time.Unix(1000, 0))
	return New(WithClock(clock)), clock
}

func TestPostRunsInOrder(t *testing.T) {
	l, _ := newManualLoop()
	var got []int
	for i := 0; i < 3; i++ {
		l.Post(func() { got = append(got, i) })
	}

	if n := l.RunPending(); n != 3 {
		t.Errorf("RunPending() = %d, want 3", n)
	}
	if !slices.Equal(got, []int{0, 1, 2}) {
		t.Errorf("order = %v, want [0 1 2]", got)
	}
	if n := l.RunPending(); n != 0 {
		t.Errorf("second RunPending() = %d, want 0", n)
	}
}

func TestPostFromCallbackRunsInSamePass(t *testing.T) {
	l, _ := newManualLoop()
	var got []string
	l.Post(func() {
		got = append(got, "outer")
		l.Post(func() { got = append(got, "inner") })
	})

	if n := l.RunPending(); n != 2 {
		t.Errorf("RunPending() = %d, want 2", n)
	}
	if !slices.Equal(got, []string{"outer", "inner"}) {
		t.Errorf("order = %v", got)
	}
}

func TestAfterWaitsForClock(t *testing.T) {
	l, clock := newManualLoop()
	fired := 0
	l.After(20*time.Millisecond, func() { fired++ })

	l.RunPending()
	if fired != 0 {
		t.Fatal("timer fired before its deadline")
	}

	clock.Advance(19 * time.Millisecond)
	l.RunPending()
	if fired != 0 {
		t.Fatal("timer fired 1ms early")
	}

	clock.Advance(time.Millisecond)
	l.RunPending()
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestAfterStop(t *testing.T) {
	l, clock := newManualLoop()
	fired := false
	stop := l.After(time.Millisecond, func() { fired = true })

	if !stop() {
		t.Error("first stop() = false")
	}
	if stop() {
		t.Error("second stop() = true")
	}

	clock.Advance(time.Second)
	l.RunPending()
	if fired {
		t.Error("stopped timer fired")
	}
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	l, clock := newManualLoop()
	var got []string
	l.After(30*time.Millisecond, func() { got = append(got, "late") })
	l.After(10*time.Millisecond, func() { got = append(got, "early") })
	l.After(10*time.Millisecond, func() { got = append(got, "early2") })

	clock.Advance(time.Second)
	l.RunPending()
	if want := []string{"early", "early2", "late"}; !slices.Equal(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestDeferredDebounces(t *testing.T) {
	l, clock := newManualLoop()
	d := NewDeferred(l)
	var calls []string

	d.Arm(20*time.Millisecond, func() { calls = append(calls, "first") })
	clock.Advance(10 * time.Millisecond)
	l.RunPending()
	d.Arm(20*time.Millisecond, func() { calls = append(calls, "second") })
	if !d.Pending() {
		t.Error("Pending() = false after re-arm")
	}

	clock.Advance(15 * time.Millisecond)
	l.RunPending()
	if len(calls) != 0 {
		t.Fatalf("calls = %v before the re-armed deadline", calls)
	}

	clock.Advance(5 * time.Millisecond)
	l.RunPending()
	if !slices.Equal(calls, []string{"second"}) {
		t.Errorf("calls = %v, want [second]", calls)
	}
	if d.Pending() {
		t.Error("Pending() = true after firing")
	}
}

func TestDeferredCancel(t *testing.T) {
	l, clock := newManualLoop()
	d := NewDeferred(l)
	fired := false

	d.Arm(time.Millisecond, func() { fired = true })
	if !d.Cancel() {
		t.Error("first Cancel() = false")
	}
	if d.Cancel() {
		t.Error("second Cancel() = true")
	}

	clock.Advance(time.Second)
	l.RunPending()
	if fired {
		t.Error("cancelled callback fired")
	}
}

func TestRunAndCall(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = l.Run(ctx)
	}()

	value := 0
	if err := l.Call(ctx, func() { value = 42 }); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if value != 42 {
		t.Errorf("value = %d, want 42", value)
	}

	timerDone := make(chan struct{})
	l.After(5*time.Millisecond, func() { close(timerDone) })
	select {
	case <-timerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	cancel()
	wg.Wait()
}
