package cascade

import (
	"errors"
	"fmt"
)

// Error categories produced by the core (spec §7). Each is a sentinel
// that call sites wrap with context via fmt.Errorf("...: %w", ErrXxx),
// matching the teacher's ErrorType/SetError taxonomy in enums.go, but
// expressed as errors.Is-compatible values instead of a struct field on
// ZoneData, since most of these need to travel back through an ordinary
// Go error return rather than sit on the zone as ambient state.
var (
	// ErrInconsistency: a prepared instance violates invariants (missing
	// SOA, out-of-order records, duplicate records, apex mismatch).
	ErrInconsistency = errors.New("inconsistent instance")

	// ErrRefreshFailure: network or protocol error during AXFR/IXFR.
	ErrRefreshFailure = errors.New("refresh failed")

	// ErrPersistFailure: disk write failed.
	ErrPersistFailure = errors.New("persist failed")

	// ErrBusy: a new operation was requested while the FSM was
	// mid-transition. Not an operator-facing error; callers should
	// enqueue and wait for an idle notification.
	ErrBusy = errors.New("zone busy")

	// ErrPoisoned: the FSM was observed in its sentinel state. This is
	// an implementation bug, never a recoverable condition.
	ErrPoisoned = errors.New("fsm observed in poisoned state")

	// ErrHardHalted: the zone has an unrecoverable configuration issue
	// (e.g. missing key material) and refuses all transitions.
	ErrHardHalted = errors.New("zone hard-halted")

	// ErrSoftHalted: the zone has a resolvable issue (e.g. unreachable
	// primary) and will continue to retry.
	ErrSoftHalted = errors.New("zone soft-halted")

	// ErrUnknownZone is returned by Engine operations that name a zone
	// not present in the registry.
	ErrUnknownZone = errors.New("unknown zone")
)

// haltState records why a zone stopped accepting transitions, and
// whether the condition is expected to resolve itself.
type haltState struct {
	Hard   bool
	Reason string
}

func (h haltState) error() error {
	if h.Reason == "" {
		return nil
	}
	if h.Hard {
		return fmt.Errorf("%w: %s", ErrHardHalted, h.Reason)
	}
	return fmt.Errorf("%w: %s", ErrSoftHalted, h.Reason)
}
