package cascade

import (
	"errors"
	"testing"
)

func TestBuilderFinishUnsignedRejectsUnsortedRecords(t *testing.T) {
	zs := newZoneStorage()
	b := newZoneBuilder(zs, "example.test.", slotU1, slotS1)
	b.SetSOA(mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300"))
	b.BuildRecords([]Record{
		mustRecord(t, "b.example.test. 60 IN A 1.2.3.4"),
		mustRecord(t, "a.example.test. 60 IN A 1.2.3.5"),
	})

	if _, err := b.FinishUnsigned(); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency for out-of-order input, got %v", err)
	}
}

func TestBuilderFinishRejectsDuplicateRecords(t *testing.T) {
	zs := newZoneStorage()
	b := newZoneBuilder(zs, "example.test.", slotU1, slotS1)
	b.SetSOA(mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300"))
	rec := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	b.BuildRecords([]Record{rec, rec})

	if _, err := b.FinishUnsigned(); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency for duplicate input, got %v", err)
	}
}

func TestBuilderFinishRejectsApexMismatch(t *testing.T) {
	zs := newZoneStorage()
	b := newZoneBuilder(zs, "example.test.", slotU1, slotS1)
	b.SetSOA(mustSOA(t, "other.test. 3600 IN SOA ns.other.test. hostmaster.other.test. 1 3600 600 86400 300"))

	if _, err := b.FinishUnsigned(); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency for apex mismatch, got %v", err)
	}
}

func TestBuilderFinishUnsignedAcceptsSortedRecords(t *testing.T) {
	zs := newZoneStorage()
	b := newZoneBuilder(zs, "example.test.", slotU1, slotS1)
	b.SetSOA(mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300"))
	b.BuildRecords([]Record{
		mustRecord(t, "a.example.test. 60 IN A 1.2.3.4"),
		mustRecord(t, "b.example.test. 60 IN A 1.2.3.5"),
	})

	built, err := b.FinishUnsigned()
	if err != nil {
		t.Fatalf("FinishUnsigned: unexpected error: %v", err)
	}
	if built.apex != "example.test." {
		t.Errorf("Built witness carries wrong apex: %q", built.apex)
	}

	r := newReader(zs, slotU1)
	recs := r.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 committed records, got %d", len(recs))
	}
}

func TestBuilderFinishCommitsBothSlots(t *testing.T) {
	zs := newZoneStorage()
	b := newZoneBuilder(zs, "example.test.", slotU1, slotS1)
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	rec := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	b.SetSOA(soa)
	b.SetSignedSOA(soa)
	b.BuildRecords([]Record{rec})
	b.BuildSignedRecords([]Record{rec})

	if _, err := b.Finish(); err != nil {
		t.Fatalf("Finish: unexpected error: %v", err)
	}

	if s, err := newReader(zs, slotU1).SOA(); err != nil || s.Serial != 1 {
		t.Errorf("unsigned slot not committed: soa=%+v err=%v", s, err)
	}
	if s, err := newReader(zs, slotS1).SOA(); err != nil || s.Serial != 1 {
		t.Errorf("signed slot not committed: soa=%+v err=%v", s, err)
	}
}

func TestCleanerIdempotent(t *testing.T) {
	zs := newZoneStorage()
	zs.set(slotU1, InstanceData{SOA: ptrSOA(mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300"))})

	u := slotU1
	c := newZoneCleaner(zs, &u, nil)
	c.Clean()
	d := zs.get(slotU1)
	if d.SOA != nil || len(d.Records) != 0 {
		t.Fatalf("expected slot reset to the empty instance, got %+v", d)
	}

	// cleaning an already-clean slot must be a no-op, not an error.
	c2 := newZoneCleaner(zs, &u, nil)
	c2.Clean()
	d2 := zs.get(slotU1)
	if d2.SOA != nil || len(d2.Records) != 0 {
		t.Fatalf("re-cleaning an empty slot must remain empty, got %+v", d2)
	}
}

func TestReaderRejectsMissingSOA(t *testing.T) {
	zs := newZoneStorage()
	r := newReader(zs, slotU0)
	if _, err := r.SOA(); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency reading SOA off an empty slot, got %v", err)
	}
}

func TestViewerReadsBothSides(t *testing.T) {
	zs := newZoneStorage()
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	zs.set(slotU0, InstanceData{SOA: &soa})
	zs.set(slotS0, InstanceData{SOA: &soa})

	v := newViewer(zs, slotU0, slotS0)
	uSOA, err := v.ReadUnsigned().SOA()
	if err != nil || uSOA.Serial != 1 {
		t.Errorf("Viewer.ReadUnsigned: got %+v, %v", uSOA, err)
	}
	sSOA, err := v.ReadSigned().SOA()
	if err != nil || sSOA.Serial != 1 {
		t.Errorf("Viewer.ReadSigned: got %+v, %v", sSOA, err)
	}
}

func TestReviewerReadSignedAbsent(t *testing.T) {
	zs := newZoneStorage()
	rv := newReviewer(zs, slotU1, nil, &Diff{})
	if _, ok := rv.ReadSigned(); ok {
		t.Errorf("ReadSigned should report false when no signed slot was supplied")
	}
	if rv.Diff() == nil {
		t.Errorf("Diff() should return the cached diff")
	}
}

func ptrSOA(s SOARecord) *SOARecord { return &s }
