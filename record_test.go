package cascade

import (
	"testing"

	"github.com/miekg/dns"
)

func mustRecord(t *testing.T, rrtext string) Record {
	t.Helper()
	rr, err := dns.NewRR(rrtext)
	if err != nil {
		t.Fatalf("dns.NewRR(%q): %v", rrtext, err)
	}
	r, err := NewRecord(rr)
	if err != nil {
		t.Fatalf("NewRecord(%q): %v", rrtext, err)
	}
	return r
}

func mustSOA(t *testing.T, rrtext string) SOARecord {
	t.Helper()
	rr, err := dns.NewRR(rrtext)
	if err != nil {
		t.Fatalf("dns.NewRR(%q): %v", rrtext, err)
	}
	soa, ok := rr.(*dns.SOA)
	if !ok {
		t.Fatalf("%q did not parse as SOA", rrtext)
	}
	return NewSOARecord(soa)
}

func TestReverseLabels(t *testing.T) {
	cases := map[string]string{
		"a.example.test.": "test.example.a",
		"example.test.":   "test.example",
		"test.":           "test",
	}
	for in, want := range cases {
		if got := ReverseLabels(in); got != want {
			t.Errorf("ReverseLabels(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestRecordCompareCanonicalOrder checks that parent names sort before
// their children's unrelated siblings once reversed, per spec §3's
// "byte-lexicographic comparison of reversed owner names yields
// canonical DNS ordering".
func TestRecordCompareCanonicalOrder(t *testing.T) {
	a := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	b := mustRecord(t, "b.example.test. 60 IN A 1.2.3.5")
	apex := mustRecord(t, "example.test. 60 IN A 1.2.3.6")

	if apex.Compare(a) >= 0 {
		t.Errorf("expected apex to sort before a.example.test., got Compare=%d", apex.Compare(a))
	}
	if a.Compare(b) >= 0 {
		t.Errorf("expected a.example.test. to sort before b.example.test., got Compare=%d", a.Compare(b))
	}
	if a.Compare(a) != 0 {
		t.Errorf("expected a record to compare equal to itself")
	}
}

func TestRecordCompareByTypeThenTTL(t *testing.T) {
	a4 := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	aaaa := mustRecord(t, "a.example.test. 60 IN AAAA ::1")
	if a4.Compare(aaaa) >= 0 {
		t.Errorf("expected A (type 1) to sort before AAAA (type 28)")
	}

	loTTL := mustRecord(t, "a.example.test. 30 IN A 1.2.3.4")
	hiTTL := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	if loTTL.Compare(hiTTL) >= 0 {
		t.Errorf("expected lower TTL to sort first when owner/type/rdata tie on rdata differences")
	}
}

func TestSortRecordsProducesCanonicalOrder(t *testing.T) {
	recs := []Record{
		mustRecord(t, "c.example.test. 60 IN A 1.2.3.4"),
		mustRecord(t, "a.example.test. 60 IN A 1.2.3.4"),
		mustRecord(t, "b.example.test. 60 IN A 1.2.3.4"),
	}
	sortRecords(recs)
	if !isSortedNoDup(recs) {
		t.Fatalf("sortRecords did not produce a strictly increasing sequence: %v", recs)
	}
}

func TestSortRecordsLargeVectorUsesParallelPath(t *testing.T) {
	recs := make([]Record, 0, 5000)
	for i := 0; i < 5000; i++ {
		recs = append(recs, mustRecord(t, "a.example.test. 60 IN TXT \"x\""))
		recs[len(recs)-1].TTL = uint32(5000 - i) // force distinct, reverse-ordered records
	}
	sortRecords(recs)
	if !isSortedNoDup(recs) {
		t.Fatalf("sortRecords (parallel path, len=%d) did not produce a strictly increasing sequence", len(recs))
	}
}

func TestDedupSortedRemovesAdjacentDuplicates(t *testing.T) {
	r := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	recs := []Record{r, r, r}
	out := dedupSorted(recs)
	if len(out) != 1 {
		t.Fatalf("dedupSorted: got %d records, want 1", len(out))
	}
}

func TestIsSortedNoDupRejectsDuplicates(t *testing.T) {
	r := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	if isSortedNoDup([]Record{r, r}) {
		t.Errorf("isSortedNoDup should reject adjacent duplicates")
	}
}

func TestIsSortedNoDupRejectsInversion(t *testing.T) {
	a := mustRecord(t, "a.example.test. 60 IN A 1.2.3.4")
	b := mustRecord(t, "b.example.test. 60 IN A 1.2.3.4")
	if isSortedNoDup([]Record{b, a}) {
		t.Errorf("isSortedNoDup should reject an out-of-order pair")
	}
}

func TestSOARecordEqualIncludesSerial(t *testing.T) {
	soa1 := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	soa2 := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 2 3600 600 86400 300")
	if soa1.Equal(soa2) {
		t.Errorf("SOAs differing only by serial must not compare equal (spec §4.4)")
	}
}

func TestSOARecordRoundTripsThroughRR(t *testing.T) {
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	back := NewSOARecord(soa.RR())
	if !soa.Equal(back) {
		t.Errorf("SOARecord -> RR -> SOARecord round trip changed value: %+v != %+v", soa, back)
	}
}
