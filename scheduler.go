package cascade

import (
	"log"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// refreshKind distinguishes what a zone's countdown timer means: SOA
// REFRESH (normal polling cadence) or SOA RETRY (faster cadence entered
// after a failed refresh), following the teacher's RefreshEngine
// (refreshengine.go), which keeps a per-zone RefreshCounter and
// decrements it once a second via a shared ticker rather than arming one
// timer.AfterFunc per zone.
type refreshKind uint8

const (
	timerDisabled refreshKind = iota
	timerRefresh
	timerRetry
)

// refreshTimer is the countdown state embedded in Zone. remaining is in
// whole seconds, matching the teacher's RefreshCounter.CurRefresh
// countdown driven by a 1-second ticker.
type refreshTimer struct {
	kind      refreshKind
	remaining int32
	period    uint32 // the clamped SOA Refresh or Retry value this countdown restarts to

	// pendingReload records that a NOTIFY or operator request arrived
	// asking for a reload. The flag is handed to the due callback and
	// reported as NotifyInProgress; Engine.refreshOnce performs the same
	// full AXFR for a reload as for a plain refresh, and neither compares
	// the upstream SOA serial with the local copy first.
	// RFC 1996 §4.4: repeated NOTIFYs for a zone already pending refresh
	// collapse into the single strongest request seen.
	pendingReload bool

	// inFlight and inFlightNotify distinguish a countdown merely armed
	// (Pending) from one whose fire is actively being serviced by a
	// spawned load (InProgress), and separate an ordinary timer fire from
	// one triggered by NOTIFY, mirroring the five-way RefreshPending /
	// RefreshInProgress / RetryPending / RetryInProgress / NotifyInProgress
	// distinction the original zone-maintenance status model makes.
	inFlight       bool
	inFlightNotify bool
}

// RefreshStatus names where a zone's refresh cadence currently stands, for
// operator-facing status reporting (status.go).
type RefreshStatus string

const (
	RefreshDisabled   RefreshStatus = "Disabled"
	RefreshPending    RefreshStatus = "RefreshPending"
	RefreshInProgress RefreshStatus = "RefreshInProgress"
	RetryPending      RefreshStatus = "RetryPending"
	RetryInProgress   RefreshStatus = "RetryInProgress"
	NotifyInProgress  RefreshStatus = "NotifyInProgress"
)

// refreshStatus derives the current RefreshStatus from the timer state.
// Callers must hold z.mu.
func (t refreshTimer) refreshStatus() RefreshStatus {
	if t.inFlight {
		switch {
		case t.inFlightNotify:
			return NotifyInProgress
		case t.kind == timerRetry:
			return RetryInProgress
		default:
			return RefreshInProgress
		}
	}
	switch t.kind {
	case timerRetry:
		return RetryPending
	case timerRefresh:
		return RefreshPending
	default:
		return RefreshDisabled
	}
}

// clampRefresh enforces DefaultRefreshClamp as a floor, so a zone whose
// upstream SOA advertises a pathologically small Refresh/Retry cannot
// turn the scheduler into a busy-loop (spec §9 Open Question resolution).
func clampRefresh(seconds uint32) uint32 {
	if seconds < DefaultRefreshClamp {
		return DefaultRefreshClamp
	}
	return seconds
}

// ScheduleRefresh (re)arms the timer at the zone's SOA Refresh interval.
func (z *Zone) ScheduleRefresh(soaRefresh uint32) {
	z.mu.Lock()
	defer z.mu.Unlock()
	p := clampRefresh(soaRefresh)
	z.refresh = refreshTimer{kind: timerRefresh, remaining: int32(p), period: p}
}

// ScheduleRetry arms the faster RETRY cadence, entered after a failed
// refresh attempt (spec §7, ErrRefreshFailure is soft by default).
func (z *Zone) ScheduleRetry(soaRetry uint32) {
	z.mu.Lock()
	defer z.mu.Unlock()
	p := clampRefresh(soaRetry)
	z.refresh = refreshTimer{kind: timerRetry, remaining: int32(p), period: p}
}

// DisableRefresh stops the countdown entirely (zone has no Source, or is
// hard-halted).
func (z *Zone) DisableRefresh() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.refresh = refreshTimer{kind: timerDisabled}
}

// EnqueueRefresh records an incoming NOTIFY or operator-initiated refresh
// request (spec §6's enqueue_refresh). If reload is true the next fire
// is flagged as a reload (see pendingReload); multiple calls while a fire
// is already pending coalesce into one, consistent with RFC 1996 §4.4.
// A disabled timer is armed to fire on the next tick, unless the zone has
// no Source or is hard-halted.
func (z *Zone) EnqueueRefresh(reload bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if reload {
		z.refresh.pendingReload = true
	}
	if z.refresh.kind == timerDisabled {
		if z.conf.Source.Kind == SourceNone || z.halt.Hard {
			return
		}
		z.refresh.kind = timerRefresh
		z.refresh.period = DefaultRefreshClamp
		z.refresh.remaining = 1
		return
	}
	// Collapse the wait down to an immediate fire on the next tick
	// rather than stacking up redundant refreshes.
	if z.refresh.remaining > 1 {
		z.refresh.remaining = 1
	}
}

// beginRefreshInFlight marks the countdown as actively being serviced, so
// status() reports *InProgress instead of *Pending while onRefreshDue's
// spawned goroutine is running. notify is true when the fire was triggered
// by EnqueueRefresh(reload=true) rather than the ordinary timer.
func (z *Zone) beginRefreshInFlight(notify bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.refresh.inFlight = true
	z.refresh.inFlightNotify = notify
}

// endRefreshInFlight clears the in-flight marker once onRefreshDue's
// goroutine has returned, regardless of outcome.
func (z *Zone) endRefreshInFlight() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.refresh.inFlight = false
	z.refresh.inFlightNotify = false
}

// RefreshStatus reports the zone's current refresh/retry/notify status.
func (z *Zone) RefreshStatus() RefreshStatus {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.refresh.refreshStatus()
}

// tick decrements the countdown by one second and reports whether it
// fired, along with whether the fire should be treated as an
// unconditional reload. Firing resets remaining to period (timerRefresh)
// or leaves the zone at timerDisabled (timerRetry fires exactly once;
// the caller re-arms via ScheduleRefresh/ScheduleRetry once it knows the
// outcome).
func (z *Zone) tick() (due bool, reload bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if z.refresh.kind == timerDisabled {
		return false, false
	}
	z.refresh.remaining--
	if z.refresh.remaining > 0 {
		return false, false
	}
	reload = z.refresh.pendingReload
	z.refresh.pendingReload = false
	if z.refresh.kind == timerRefresh {
		z.refresh.remaining = int32(z.refresh.period)
	} else {
		z.refresh.kind = timerDisabled
	}
	return true, reload
}

// TickAll decrements every registered zone's countdown by one second and
// invokes due for each zone whose timer fired. Called from a 1-second
// ticker goroutine owned by the Engine (engine.go), mirroring the
// teacher's RefreshEngine ticker loop over its refreshCounters map
// (refreshengine.go), generalized here to a concurrent-map of *Zone
// rather than a side table of RefreshCounter.
func TickAll(zones cmap.ConcurrentMap[string, *Zone], due func(apex string, z *Zone, reload bool)) {
	for apex, z := range zones.Items() {
		if fired, reload := z.tick(); fired {
			log.Printf("cascade: scheduler: zone %s refresh timer fired (reload=%v)", apex, reload)
			due(apex, z, reload)
		}
	}
}
