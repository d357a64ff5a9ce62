package cascade

import "testing"

func TestScheduleRefreshArmsCountdown(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	z.ScheduleRefresh(3600)
	if z.refresh.kind != timerRefresh || z.refresh.remaining != 3600 || z.refresh.period != 3600 {
		t.Fatalf("unexpected refresh state: %+v", z.refresh)
	}
}

func TestScheduleRetryArmsCountdown(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	z.ScheduleRetry(600)
	if z.refresh.kind != timerRetry || z.refresh.remaining != 600 {
		t.Fatalf("unexpected retry state: %+v", z.refresh)
	}
}

// TestClampRefresh checks the Open Question resolution: a pathologically
// small or zero SOA Refresh/Retry value is clamped to DefaultRefreshClamp
// so the scheduler can never busy-loop.
func TestClampRefresh(t *testing.T) {
	cases := []uint32{0, 1, 29, DefaultRefreshClamp - 1}
	for _, c := range cases {
		if got := clampRefresh(c); got != DefaultRefreshClamp {
			t.Errorf("clampRefresh(%d) = %d, want %d", c, got, DefaultRefreshClamp)
		}
	}
	if got := clampRefresh(DefaultRefreshClamp + 10); got != DefaultRefreshClamp+10 {
		t.Errorf("clampRefresh should pass through values at/above the floor unchanged, got %d", got)
	}
}

func TestTickDecrementsAndFires(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	z.ScheduleRefresh(DefaultRefreshClamp)
	for i := uint32(0); i < DefaultRefreshClamp-1; i++ {
		if due, _ := z.tick(); due {
			t.Fatalf("tick fired early at iteration %d", i)
		}
	}
	due, reload := z.tick()
	if !due {
		t.Fatalf("expected tick to fire after period elapsed")
	}
	if reload {
		t.Errorf("a plain refresh fire should not request an unconditional reload")
	}
	if z.refresh.remaining != int32(DefaultRefreshClamp) {
		t.Errorf("timerRefresh should re-arm to its period, got remaining=%d", z.refresh.remaining)
	}
}

func TestTickRetryFiresOnceThenDisables(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	z.ScheduleRetry(DefaultRefreshClamp)
	for i := uint32(0); i < DefaultRefreshClamp; i++ {
		z.tick()
	}
	if z.refresh.kind != timerDisabled {
		t.Fatalf("timerRetry must disable itself after firing once, got kind=%v", z.refresh.kind)
	}
}

// TestEnqueueRefreshCoalescesToReload mirrors the RFC 1996 §4.4 scenario:
// several non-reload enqueues followed by one reload enqueue while a
// refresh is already counting down collapse into a single, immediate,
// reload-flagged fire.
func TestEnqueueRefreshCoalescesToReload(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	z.ScheduleRefresh(3600)

	z.EnqueueRefresh(false)
	z.EnqueueRefresh(false)
	z.EnqueueRefresh(false)
	z.EnqueueRefresh(true)

	if z.refresh.remaining != 1 {
		t.Fatalf("expected countdown collapsed to 1, got %d", z.refresh.remaining)
	}

	due, reload := z.tick()
	if !due || !reload {
		t.Fatalf("expected an immediate reload-flagged fire, got due=%v reload=%v", due, reload)
	}

	// a second tick must not still report the coalesced reload.
	for i := 0; i < 3599; i++ {
		z.tick()
	}
	due2, reload2 := z.tick()
	if !due2 {
		t.Fatalf("expected the re-armed refresh to fire after a full period")
	}
	if reload2 {
		t.Errorf("the re-armed refresh must not carry over the earlier reload flag")
	}
}

func TestEnqueueRefreshNoOpWhenDisabled(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	z.DisableRefresh()
	z.EnqueueRefresh(false)
	if z.refresh.kind != timerDisabled {
		t.Fatalf("enqueueing a refresh on a disabled timer must not re-arm it")
	}
}

// TestScheduleRetryThenRefresh walks the failed-then-successful refresh
// scenario: a failed refresh arms Retry; a subsequent successful refresh
// re-arms Refresh at the (possibly new) SOA period.
func TestScheduleRetryThenRefresh(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	z.ScheduleRefresh(3600)

	z.ScheduleRetry(600)
	if z.refresh.kind != timerRetry || z.refresh.remaining != 600 {
		t.Fatalf("expected Retry armed at 600, got %+v", z.refresh)
	}

	z.ScheduleRefresh(7200)
	if z.refresh.kind != timerRefresh || z.refresh.remaining != 7200 || z.refresh.period != 7200 {
		t.Fatalf("expected Refresh re-armed at the new period, got %+v", z.refresh)
	}
}

// TestRefreshStatusDistinguishesPendingFromInProgress walks the five-way
// status split: Disabled, then Pending once armed, then the corresponding
// InProgress while a fire is being serviced, then NotifyInProgress when
// that fire was NOTIFY-triggered.
func TestRefreshStatusDistinguishesPendingFromInProgress(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	if got := z.RefreshStatus(); got != RefreshDisabled {
		t.Fatalf("expected RefreshDisabled on a fresh zone, got %v", got)
	}

	z.ScheduleRefresh(3600)
	if got := z.RefreshStatus(); got != RefreshPending {
		t.Fatalf("expected RefreshPending once armed, got %v", got)
	}

	z.beginRefreshInFlight(false)
	if got := z.RefreshStatus(); got != RefreshInProgress {
		t.Fatalf("expected RefreshInProgress while a fire is being serviced, got %v", got)
	}
	z.endRefreshInFlight()
	if got := z.RefreshStatus(); got != RefreshPending {
		t.Fatalf("expected RefreshPending again once the fire completes, got %v", got)
	}

	z.ScheduleRetry(600)
	z.beginRefreshInFlight(false)
	if got := z.RefreshStatus(); got != RetryInProgress {
		t.Fatalf("expected RetryInProgress during a retry fire, got %v", got)
	}
	z.endRefreshInFlight()

	z.beginRefreshInFlight(true)
	if got := z.RefreshStatus(); got != NotifyInProgress {
		t.Fatalf("expected NotifyInProgress for a NOTIFY-triggered fire, got %v", got)
	}
	z.endRefreshInFlight()
}
