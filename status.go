package cascade

// StatusSnapshot is the read-only view of a zone's lifecycle state
// exposed through the external interface (spec §6: "status(zone) -
// returns FSM state, refresh timer, last error"). It is constructed
// fresh on every call rather than cached, matching the teacher's pattern
// of deriving API responses directly from ZoneData at request time
// (apihandler_zone.go).
type StatusSnapshot struct {
	Apex          string
	State         string
	RefreshCount  int
	RefreshStatus RefreshStatus
	Halted        bool
	HaltHard      bool
	HaltReason    string
}

// Status reports a single zone's current lifecycle state.
func (e *Engine) Status(apex string) (StatusSnapshot, error) {
	z, err := e.Zone(apex)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return z.status(), nil
}

// StatusAll reports every registered zone's status, for "cascadectl
// status" without --zone and the HTTP control plane's status endpoint.
func (e *Engine) StatusAll() []StatusSnapshot {
	out := make([]StatusSnapshot, 0, e.zones.Count())
	for apex, z := range e.zones.Items() {
		_ = apex
		out = append(out, z.status())
	}
	return out
}

func (z *Zone) status() StatusSnapshot {
	z.mu.Lock()
	halt := z.halt
	refreshCount := z.RefreshCount
	refreshStatus := z.refresh.refreshStatus()
	z.mu.Unlock()
	return StatusSnapshot{
		Apex:          z.Apex,
		State:         z.currentState().stateName(),
		RefreshCount:  refreshCount,
		RefreshStatus: refreshStatus,
		Halted:        halt.Reason != "",
		HaltHard:      halt.Hard,
		HaltReason:    halt.Reason,
	}
}
