package cascade

import "testing"

func instanceRecordsEqual(t *testing.T, a, b InstanceData) {
	t.Helper()
	if (a.SOA == nil) != (b.SOA == nil) {
		t.Fatalf("SOA presence differs: %v vs %v", a.SOA, b.SOA)
	}
	if a.SOA != nil && !a.SOA.Equal(*b.SOA) {
		t.Fatalf("SOA differs: %+v vs %+v", a.SOA, b.SOA)
	}
	if len(a.Records) != len(b.Records) {
		t.Fatalf("record count differs: %d vs %d", len(a.Records), len(b.Records))
	}
	for i := range a.Records {
		if !a.Records[i].Equal(b.Records[i]) {
			t.Fatalf("record %d differs: %+v vs %+v", i, a.Records[i], b.Records[i])
		}
	}
}

// TestComputeDiffExampleFromSpec reproduces the worked example: instance A
// at serial 1 holds {R1, R2}, instance B at serial 2 holds {R2, R3}. The
// diff from A to B must remove R1 and add R3, leaving R2 untouched.
func TestComputeDiffExampleFromSpec(t *testing.T) {
	soaA := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	soaB := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 2 3600 600 86400 300")
	r1 := mustRecord(t, "a.example.test. 60 IN A 1.2.3.1")
	r2 := mustRecord(t, "b.example.test. 60 IN A 1.2.3.2")
	r3 := mustRecord(t, "c.example.test. 60 IN A 1.2.3.3")

	a := InstanceData{SOA: &soaA, Records: []Record{r1, r2}}
	b := InstanceData{SOA: &soaB, Records: []Record{r2, r3}}

	d := ComputeDiff(a, b)

	if d.Empty() {
		t.Fatalf("expected a non-empty diff")
	}
	if d.RemovedSOA == nil || d.RemovedSOA.Serial != 1 {
		t.Errorf("expected RemovedSOA serial 1, got %+v", d.RemovedSOA)
	}
	if d.AddedSOA == nil || d.AddedSOA.Serial != 2 {
		t.Errorf("expected AddedSOA serial 2, got %+v", d.AddedSOA)
	}
	if len(d.Removed) != 1 || !d.Removed[0].Equal(r1) {
		t.Errorf("expected Removed=[R1], got %+v", d.Removed)
	}
	if len(d.Added) != 1 || !d.Added[0].Equal(r3) {
		t.Errorf("expected Added=[R3], got %+v", d.Added)
	}
}

func TestDiffEmptyForIdenticalInstances(t *testing.T) {
	soa := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	r := mustRecord(t, "a.example.test. 60 IN A 1.2.3.1")
	inst := InstanceData{SOA: &soa, Records: []Record{r}}

	d := ComputeDiff(inst, inst)
	if !d.Empty() {
		t.Fatalf("diff between identical instances must be Empty, got %+v", d)
	}
}

func TestApplyRoundTrip(t *testing.T) {
	soaA := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	soaB := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 2 3600 600 86400 300")
	r1 := mustRecord(t, "a.example.test. 60 IN A 1.2.3.1")
	r2 := mustRecord(t, "b.example.test. 60 IN A 1.2.3.2")
	r3 := mustRecord(t, "c.example.test. 60 IN A 1.2.3.3")

	a := InstanceData{SOA: &soaA, Records: []Record{r1, r2}}
	b := InstanceData{SOA: &soaB, Records: []Record{r2, r3}}

	d := ComputeDiff(a, b)
	got := Apply(a, d)
	instanceRecordsEqual(t, b, got)
}

func TestReverseRoundTrip(t *testing.T) {
	soaA := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	soaB := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 2 3600 600 86400 300")
	r1 := mustRecord(t, "a.example.test. 60 IN A 1.2.3.1")
	r2 := mustRecord(t, "b.example.test. 60 IN A 1.2.3.2")
	r3 := mustRecord(t, "c.example.test. 60 IN A 1.2.3.3")

	a := InstanceData{SOA: &soaA, Records: []Record{r1, r2}}
	b := InstanceData{SOA: &soaB, Records: []Record{r2, r3}}

	d := ComputeDiff(a, b)
	back := Apply(b, Reverse(d))
	instanceRecordsEqual(t, a, back)
}

func TestReverseSwapsRemovedAndAdded(t *testing.T) {
	soaA := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 1 3600 600 86400 300")
	soaB := mustSOA(t, "example.test. 3600 IN SOA ns.example.test. hostmaster.example.test. 2 3600 600 86400 300")
	r1 := mustRecord(t, "a.example.test. 60 IN A 1.2.3.1")
	r3 := mustRecord(t, "c.example.test. 60 IN A 1.2.3.3")

	a := InstanceData{SOA: &soaA, Records: []Record{r1}}
	b := InstanceData{SOA: &soaB, Records: []Record{r3}}

	d := ComputeDiff(a, b)
	r := Reverse(d)

	if len(r.Removed) != 1 || !r.Removed[0].Equal(r3) {
		t.Errorf("reversed diff should remove what the forward diff added")
	}
	if len(r.Added) != 1 || !r.Added[0].Equal(r1) {
		t.Errorf("reversed diff should add what the forward diff removed")
	}
	if r.RemovedSOA.Serial != 2 || r.AddedSOA.Serial != 1 {
		t.Errorf("reversed diff should swap SOA serials, got removed=%v added=%v", r.RemovedSOA, r.AddedSOA)
	}
}
