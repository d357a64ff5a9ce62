package cascade

import (
	"errors"
	"testing"
)

func buildAndFinishUnsigned(t *testing.T, z *Zone, soa SOARecord, recs []Record) *Reviewer {
	t.Helper()
	b, err := z.StartLoad()
	if err != nil {
		t.Fatalf("StartLoad: %v", err)
	}
	b.SetSOA(soa)
	b.BuildRecords(recs)
	rv, err := z.FinishUnsigned(b)
	if err != nil {
		t.Fatalf("FinishUnsigned: %v", err)
	}
	return rv
}

// TestFreshLoadToPassive walks the full split-review lifecycle with
// signing disabled: Passive -> Building -> PendingUnsignedReview ->
// Reviewing -> Persisting -> Switching -> PendingClean -> Cleaning ->
// Passive, checking the state name at each step.
func TestFreshLoadToPassive(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	recs := []Record{
		mustRecord(t, "a.example.test. 60 IN A 1.2.3.4"),
		mustRecord(t, "b.example.test. 60 IN A 1.2.3.5"),
	}

	rv := buildAndFinishUnsigned(t, z, soa, recs)
	if got := z.currentState().stateName(); got != "PendingUnsignedReview" {
		t.Fatalf("expected PendingUnsignedReview, got %q", got)
	}
	if rv.Diff() == nil {
		t.Fatalf("expected FinishUnsigned to produce a diff")
	}

	if _, err := z.StartReviewUnsigned(); err != nil {
		t.Fatalf("StartReviewUnsigned: %v", err)
	}
	if got := z.currentState().stateName(); got != "ReviewingUnsigned" {
		t.Fatalf("expected ReviewingUnsigned, got %q", got)
	}

	p, err := z.MarkApprovedUnsigned()
	if err != nil {
		t.Fatalf("MarkApprovedUnsigned: %v", err)
	}
	if got := z.currentState().stateName(); got != "PersistingUnsigned" {
		t.Fatalf("expected PersistingUnsigned, got %q", got)
	}
	if u := p.ReadUnsigned(); u == nil {
		t.Fatalf("Persister.ReadUnsigned returned nil")
	}

	if _, err := z.PersistUnsignedDone(true, nil); err != nil {
		t.Fatalf("PersistUnsignedDone: %v", err)
	}
	if got := z.currentState().stateName(); got != "SwitchingUnsignedOnly" {
		t.Fatalf("expected SwitchingUnsignedOnly (online signing disabled), got %q", got)
	}

	v, err := z.Switch()
	if err != nil {
		t.Fatalf("Switch: %v", err)
	}
	if got := z.currentState().stateName(); got != "PendingClean" {
		t.Fatalf("expected PendingClean, got %q", got)
	}
	gotSOA, err := v.ReadUnsigned().SOA()
	if err != nil || gotSOA.Serial != 1 {
		t.Fatalf("Viewer did not see the switched-in instance: %+v, %v", gotSOA, err)
	}

	c, err := z.ReleaseViewer()
	if err != nil {
		t.Fatalf("ReleaseViewer: %v", err)
	}
	if got := z.currentState().stateName(); got != "Cleaning" {
		t.Fatalf("expected Cleaning, got %q", got)
	}
	cleaned := c.Clean()

	if err := z.MarkComplete(cleaned); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if got := z.currentState().stateName(); got != "Passive" {
		t.Fatalf("expected Passive after MarkComplete, got %q", got)
	}
}

// TestFinishUnsignedRejectsUnsortedRecords checks that handing the
// Builder out-of-order records fails the transition with ErrInconsistency
// and routes the zone to Cleaning rather than PendingUnsignedReview.
func TestFinishUnsignedRejectsUnsortedRecords(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	b, err := z.StartLoad()
	if err != nil {
		t.Fatalf("StartLoad: %v", err)
	}
	b.SetSOA(mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300"))
	b.BuildRecords([]Record{
		mustRecord(t, "b.example.test. 60 IN A 1.2.3.4"),
		mustRecord(t, "a.example.test. 60 IN A 1.2.3.5"),
	})

	_, err = z.FinishUnsigned(b)
	if !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency, got %v", err)
	}
	if got := z.currentState().stateName(); got != "Cleaning" {
		t.Fatalf("a failed finish must route to Cleaning, got %q", got)
	}
}

func TestStartLoadRejectedWhenNotPassive(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	if _, err := z.StartLoad(); err != nil {
		t.Fatalf("first StartLoad: %v", err)
	}
	if _, err := z.StartLoad(); !errors.Is(err, ErrBusy) {
		t.Fatalf("a second concurrent StartLoad must fail with ErrBusy, got %v", err)
	}
}

func TestGiveUpFromBuildingUnsignedReturnsToCleaningThenPassive(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	if _, err := z.StartLoad(); err != nil {
		t.Fatalf("StartLoad: %v", err)
	}
	c, err := z.GiveUp()
	if err != nil {
		t.Fatalf("GiveUp: %v", err)
	}
	if got := z.currentState().stateName(); got != "Cleaning" {
		t.Fatalf("expected Cleaning after GiveUp, got %q", got)
	}
	cleaned := c.Clean()
	if err := z.MarkComplete(cleaned); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}
	if got := z.currentState().stateName(); got != "Passive" {
		t.Fatalf("expected Passive, got %q", got)
	}
}

// TestConcurrentViewerDuringSwitch checks that a Viewer issued by Switch
// keeps reading its originally-assigned slots even after the zone has
// moved on to Cleaning: slot disjointness means the retired slots are not
// cleared until ReleaseViewer+Clean, and nothing in between mutates the
// slots the Viewer names.
func TestConcurrentViewerDuringSwitch(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	buildAndFinishUnsigned(t, z, soa, nil)
	if _, err := z.StartReviewUnsigned(); err != nil {
		t.Fatalf("StartReviewUnsigned: %v", err)
	}
	if _, err := z.MarkApprovedUnsigned(); err != nil {
		t.Fatalf("MarkApprovedUnsigned: %v", err)
	}
	if _, err := z.PersistUnsignedDone(true, nil); err != nil {
		t.Fatalf("PersistUnsignedDone: %v", err)
	}
	v, err := z.Switch()
	if err != nil {
		t.Fatalf("Switch: %v", err)
	}

	// the zone has moved to PendingClean; the Viewer must still see the
	// newly-authoritative instance regardless.
	s, err := v.ReadUnsigned().SOA()
	if err != nil || s.Serial != 1 {
		t.Fatalf("Viewer lost its instance after the state moved on: %+v, %v", s, err)
	}

	if _, err := z.ReleaseViewer(); err != nil {
		t.Fatalf("ReleaseViewer: %v", err)
	}

	// even after the retired slot is scheduled for cleaning, the Viewer's
	// own (still-authoritative) slot must be untouched.
	s2, err := v.ReadUnsigned().SOA()
	if err != nil || s2.Serial != 1 {
		t.Fatalf("Viewer's authoritative slot was disturbed by cleaning the retired slot: %+v, %v", s2, err)
	}
}

func TestStartResignRequiresOnlineSigning(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	if _, err := z.StartResign(); err == nil {
		t.Fatalf("expected StartResign to fail when OnlineSigning is false")
	}
}

func TestStartLoadWholeRequiresPassThroughSigning(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	if _, err := z.StartLoadWhole(); err == nil {
		t.Fatalf("expected StartLoadWhole to fail when PassThroughSigning is false")
	}
}

func TestHaltedZoneRejectsStartLoad(t *testing.T) {
	z := NewZone(ZoneConfig{Apex: "example.test."})
	z.SetError(true, "missing key material")
	if _, err := z.StartLoad(); !errors.Is(err, ErrHardHalted) {
		t.Fatalf("expected ErrHardHalted, got %v", err)
	}
}
