package cascade

import (
	"errors"
	"testing"
)

func TestInstanceCompleteRequiresSOA(t *testing.T) {
	d := InstanceData{}
	if d.Complete() {
		t.Errorf("an instance with no SOA must not be Complete")
	}
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	d.SOA = &soa
	if !d.Complete() {
		t.Errorf("an instance with an SOA must be Complete")
	}
}

func TestInstanceValidateRejectsMissingSOA(t *testing.T) {
	d := InstanceData{Records: []Record{mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")}}
	if err := d.validate("example.test."); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency for missing SOA, got %v", err)
	}
}

func TestInstanceValidateAcceptsSOAOnly(t *testing.T) {
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	d := InstanceData{SOA: &soa}
	if err := d.validate("example.test."); err != nil {
		t.Fatalf("a zero-record SOA-only instance must validate (spec §8 boundary behavior): %v", err)
	}
}

func TestInstanceValidateRejectsApexMismatch(t *testing.T) {
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	d := InstanceData{SOA: &soa}
	if err := d.validate("other.test."); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency for apex mismatch, got %v", err)
	}
}

func TestInstanceValidateRejectsOutOfOrderRecords(t *testing.T) {
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	b := mustRecord(t, "b.example.test. 60 IN A 1.2.3.4")
	a := mustRecord(t, "a.example.test. 60 IN A 1.2.3.5")
	d := InstanceData{SOA: &soa, Records: []Record{b, a}}
	if err := d.validate("example.test."); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency for out-of-order records, got %v", err)
	}
}

func TestInstanceValidateRejectsDuplicateRecords(t *testing.T) {
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	a := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	d := InstanceData{SOA: &soa, Records: []Record{a, a}}
	if err := d.validate("example.test."); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency for duplicate records, got %v", err)
	}
}

func TestInstanceValidateRejectsOutOfZoneRecord(t *testing.T) {
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	foreign := mustRecord(t, "a.other.test. 60 IN A 1.2.3.4")
	d := InstanceData{SOA: &soa, Records: []Record{foreign}}
	if err := d.validate("example.test."); !errors.Is(err, ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency for a record outside the zone apex, got %v", err)
	}
}

func TestInstanceClonePreventsAliasing(t *testing.T) {
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	rec := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	d := InstanceData{SOA: &soa, Records: []Record{rec}}

	clone := d.clone()
	clone.SOA.Serial = 999
	clone.Records[0].TTL = 1

	if d.SOA.Serial == 999 {
		t.Errorf("mutating the clone's SOA must not affect the original")
	}
	if d.Records[0].TTL == 1 {
		t.Errorf("mutating the clone's Records must not affect the original")
	}
}
