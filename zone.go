package cascade

import (
	"context"
	"fmt"
	"log"
	"sync"
)

// ZoneConfig carries the operator-facing configuration for one zone: its
// name, where it loads from, who it notifies, and the policy flags that
// gate optional behavior. It mirrors the teacher's ZoneConf (config.go)
// but only the fields the core subsystems consume directly; notification
// targets, TSIG key references, and DNSSEC policy selection stay here,
// the parsed policy itself lives in Config (config.go).
type ZoneConfig struct {
	Apex                string
	Source              Source
	Downstreams         []string
	PassThroughSigning  bool // Open Question resolution: gates the PendingWhole* path
	OnlineSigning       bool
}

// backgroundTask is a cancel-on-drop handle to a goroutine spawned by a
// state transition that needs to do I/O (persist, clean, sign) outside
// the zone lock. Dropping it aborts the task (spec §5, "Cancellation and
// timeouts").
type backgroundTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (t *backgroundTask) abort() {
	if t == nil {
		return
	}
	t.cancel()
}

// wait blocks until the task's goroutine has returned. Used by tests and
// by remove_zone to ensure no stray goroutine outlives the Zone.
func (t *backgroundTask) wait() {
	if t == nil {
		return
	}
	<-t.done
}

// Zone identifies a DNS zone by apex name and owns exactly one
// zoneStorage, one lifecycle-FSM state value, zero or one active
// backgroundTask, and refresh scheduling state (spec §3). Its mutex
// guards only the FSM state and bookkeeping fields below; zoneStorage
// itself is never locked (see data.go).
type Zone struct {
	mu    sync.Mutex
	Apex  string
	conf  ZoneConfig
	store *zoneStorage
	state fsmState
	halt  haltState

	refresh   refreshTimer
	diffChain []*Diff // bounded chain of historical diffs, for IXFR (spec §6)

	task *backgroundTask

	// notify is invoked (without the zone lock held) whenever a
	// transition completes that the engine cares about: successful
	// unsigned load, successful sign, zone idle again. Set by the
	// Engine at registration time (engine.go); nil-safe.
	notify func(ZoneEvent)

	// RefreshCount counts successful scheduled refreshes; the Engine's
	// onRefreshDue increments it under mu.
	RefreshCount int
}

// NewZone constructs a Zone in the Passive state with two empty unsigned
// slots and two empty signed slots. This is the only state a Zone is ever
// restored into from the persistence layer (spec §6: "always restorable
// to Passive plus the authoritative instance"); the authoritative
// instance, if any, is loaded into U0/S0 by the caller immediately after.
func NewZone(conf ZoneConfig) *Zone {
	z := &Zone{
		Apex:  conf.Apex,
		conf:  conf,
		store: newZoneStorage(),
	}
	z.state = passiveState{curUnsigned: slotU0, curSigned: slotS0}
	z.refresh = refreshTimer{kind: timerDisabled}
	return z
}

// restoreAuthoritative seeds U0/S0 with a previously-persisted
// authoritative instance, used once at startup after NewZone. It must
// only be called before any transition has been attempted.
func (z *Zone) restoreAuthoritative(unsigned, signed InstanceData) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.store.set(slotU0, unsigned)
	z.store.set(slotS0, signed)
}

// withState extracts the current state into the Poisoned sentinel,
// applies fn to the extracted value, and writes fn's result back. This
// realizes the by-value "extract into Poisoned, transform, write back"
// discipline spec.md §4.2 requires: a panic or early return inside fn
// leaves the zone visibly Poisoned rather than silently re-entrant, and
// observing Poisoned from outside withState is always a bug (§8
// invariant 1 is enforced by never returning it to a caller that isn't
// fsm.go itself).
//
// z.mu is held for the entire call, including fn: fn only does
// synchronous, non-blocking validation/diff work (it never acquires z.mu
// itself, and never does I/O — persisting/signing happens in a spawned
// backgroundTask after the transition returns), so the critical section
// stays short-lived per spec §5, and two concurrent transitions can never
// interleave their extract/write-back halves and leave the zone
// permanently Poisoned.
func (z *Zone) withState(fn func(fsmState) (fsmState, error)) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	cur := z.state
	z.state = poisonedState{}

	next, err := fn(cur)

	if next == nil {
		// fn refused the transition (e.g. wrong source state); restore
		// the original state unchanged rather than leaving Poisoned.
		z.state = cur
		return err
	}
	z.state = next
	return err
}

// currentState returns the live state for read-only inspection (status
// reporting). It must never be stored past the lock being released.
func (z *Zone) currentState() fsmState {
	z.mu.Lock()
	defer z.mu.Unlock()
	if _, ok := z.state.(poisonedState); ok {
		log.Printf("cascade: BUG: zone %s observed in Poisoned state", z.Apex)
	}
	return z.state
}

// spawn launches fn as a cancel-on-drop background task and records its
// handle on the zone. Any previous task is expected to have already
// completed; spawn does not cancel it implicitly, since exactly one
// background operation is in flight per zone at a time by FSM
// construction (spec §4.2 invariant 1 extends to "at most one spawned
// task per zone").
func (z *Zone) spawn(parent context.Context, fn func(context.Context)) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	z.task = &backgroundTask{cancel: cancel, done: done}
	go func() {
		defer close(done)
		fn(ctx)
	}()
}

// fireEvent is the single funnel every transition-completion path uses to
// reach the Engine: it forwards to notify, which the Engine wires at
// registration time (AddZone) to its own handleEvent.
func (z *Zone) fireEvent(ev ZoneEvent) {
	if z.notify != nil {
		z.notify(ev)
	}
}

// pushDiff appends d to the bounded diff chain used to serve IXFR,
// discarding the oldest entry once DefaultDiffChainDepth is exceeded.
func (z *Zone) pushDiff(d *Diff) {
	if d.Empty() {
		return
	}
	z.diffChain = append(z.diffChain, d)
	if len(z.diffChain) > DefaultDiffChainDepth {
		z.diffChain = z.diffChain[len(z.diffChain)-DefaultDiffChainDepth:]
	}
}

// SetError puts the zone into a halted state, following the teacher's
// ErrorType/SetError pattern (enums.go) but distinguishing hard vs. soft
// per spec §7.
func (z *Zone) SetError(hard bool, format string, args ...interface{}) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.halt = haltState{Hard: hard, Reason: fmt.Sprintf(format, args...)}
}

// ClearError drops any halted state, allowing transitions to resume.
func (z *Zone) ClearError() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.halt = haltState{}
}

// source returns a snapshot of the zone's current Source, safe to call
// concurrently with SetSource (engine.go).
func (z *Zone) source() Source {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.conf.Source
}

func (z *Zone) downstreams() []string {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.conf.Downstreams
}

func (z *Zone) haltedError() error {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.halt.error()
}
