package gosched

import "testing"

func TestSyncHostAdapter_PumpRunsPendingOnce(t *testing.T) {
	a := NewSyncHostAdapter()
	if a.HasPendingCallback() {
		t.Fatal("fresh adapter should have no pending callback")
	}

	calls := 0
	a.RequestHostCallback(func(hasTimeRemaining bool, nowMs int64) bool {
		calls++
		return false
	})
	if !a.HasPendingCallback() {
		t.Fatal("RequestHostCallback should arm a pending continuation")
	}

	more, ran := a.Pump(0)
	if !ran || more {
		t.Fatalf("Pump() = (%v, %v), want (false, true)", more, ran)
	}
	if calls != 1 {
		t.Fatalf("work invoked %d times, want 1", calls)
	}
	if a.HasPendingCallback() {
		t.Fatal("Pump should clear the pending continuation")
	}

	_, ran = a.Pump(0)
	if ran {
		t.Fatal("Pump with nothing pending should report ran=false")
	}
}

func TestSyncHostAdapter_PumpHonoursRearm(t *testing.T) {
	a := NewSyncHostAdapter()
	step := 0
	var work func(bool, int64) bool
	work = func(hasTimeRemaining bool, nowMs int64) bool {
		step++
		if step < 3 {
			a.RequestHostCallback(work)
			return true
		}
		return false
	}
	a.RequestHostCallback(work)

	for i := 0; i < 3; i++ {
		if !a.HasPendingCallback() {
			t.Fatalf("iteration %d: expected a pending callback", i)
		}
		a.Pump(0)
	}
	if step != 3 {
		t.Fatalf("step = %d, want 3", step)
	}
}

func TestSyncHostAdapter_Timer(t *testing.T) {
	a := NewSyncHostAdapter()
	if a.TimerActive() {
		t.Fatal("fresh adapter should have no active timer")
	}

	fired := false
	timer := a.RequestHostTimeout(0, func() { fired = true })
	if !a.TimerActive() {
		t.Fatal("RequestHostTimeout should arm the timer latch")
	}

	timer.Cancel()
	if a.TimerActive() {
		t.Fatal("Cancel should clear the timer latch")
	}
	if a.FireTimer() {
		t.Fatal("a cancelled timer must not fire")
	}
	if fired {
		t.Fatal("cancelled timer callback must not run")
	}

	a.RequestHostTimeout(0, func() { fired = true })
	if !a.FireTimer() {
		t.Fatal("FireTimer should report true for an active timer")
	}
	if !fired {
		t.Fatal("FireTimer should invoke the callback")
	}
	if a.TimerActive() {
		t.Fatal("FireTimer should clear the latch after firing")
	}
}
