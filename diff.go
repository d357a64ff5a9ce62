package cascade

// Diff represents the difference between a base instance B and a target
// instance T (spec §4.4): an optional removed/added SOA pair, plus sorted
// removed/added record vectors. A Diff is immutable once constructed and
// is safe to share by reference across concurrently-held Reviewer and
// Persister handles.
type Diff struct {
	RemovedSOA *SOARecord
	AddedSOA   *SOARecord
	Removed    []Record
	Added      []Record
}

// Empty reports whether this diff represents no change at all: both SOA
// fields absent and both record vectors empty (spec §4.4).
func (d *Diff) Empty() bool {
	return d == nil || (d.RemovedSOA == nil && d.AddedSOA == nil && len(d.Removed) == 0 && len(d.Added) == 0)
}

// ComputeDiff merges base and target's sorted record vectors with a
// ternary merge: at each position the smaller of the two current heads is
// in-base-only or in-target-only (appended to Removed/Added
// respectively); equal heads are in-both and skipped. Because both
// inputs are already unique and sorted (InstanceData's standing
// invariant), this runs in O(len(base)+len(target)) with no intermediate
// set, unlike the teacher's ixfr.DiffSequence.getDifference, which
// multiset-subtracts via a map keyed on owner+rtype because its inputs
// arrive as unordered AXFR/IXFR record streams.
func ComputeDiff(base, target InstanceData) *Diff {
	d := &Diff{}

	if base.SOA != nil && target.SOA != nil {
		if !base.SOA.Equal(*target.SOA) {
			b, t := *base.SOA, *target.SOA
			d.RemovedSOA = &b
			d.AddedSOA = &t
		}
	} else if base.SOA != nil {
		b := *base.SOA
		d.RemovedSOA = &b
	} else if target.SOA != nil {
		t := *target.SOA
		d.AddedSOA = &t
	}

	i, j := 0, 0
	for i < len(base.Records) && j < len(target.Records) {
		c := base.Records[i].Compare(target.Records[j])
		switch {
		case c < 0:
			d.Removed = append(d.Removed, base.Records[i])
			i++
		case c > 0:
			d.Added = append(d.Added, target.Records[j])
			j++
		default:
			i++
			j++
		}
	}
	for ; i < len(base.Records); i++ {
		d.Removed = append(d.Removed, base.Records[i])
	}
	for ; j < len(target.Records); j++ {
		d.Added = append(d.Added, target.Records[j])
	}

	return d
}

// Apply reconstructs target from base and d, satisfying the round-trip
// property spec §8 invariant 4: apply(prev, diff(prev,next)) == next.
func Apply(base InstanceData, d *Diff) InstanceData {
	out := InstanceData{SOA: base.SOA}
	if d.AddedSOA != nil {
		soa := *d.AddedSOA
		out.SOA = &soa
	} else if d.RemovedSOA != nil {
		// base had an SOA that was removed with nothing replacing it:
		// this only happens when target never had one, which no valid
		// instance lifecycle produces, but we honor it literally.
		out.SOA = nil
	}

	removed := make(map[string]bool, len(d.Removed))
	for _, r := range d.Removed {
		removed[string(recordKey(r))] = true
	}
	merged := make([]Record, 0, len(base.Records)+len(d.Added))
	for _, r := range base.Records {
		if !removed[string(recordKey(r))] {
			merged = append(merged, r)
		}
	}
	merged = append(merged, d.Added...)
	sortRecords(merged)
	out.Records = merged
	return out
}

// Reverse returns the diff that undoes d: apply(apply(B,D), reverse(D))
// == B (spec §8 invariant 5).
func Reverse(d *Diff) *Diff {
	return &Diff{
		RemovedSOA: d.AddedSOA,
		AddedSOA:   d.RemovedSOA,
		Removed:    d.Added,
		Added:      d.Removed,
	}
}

func recordKey(r Record) []byte {
	key := make([]byte, 0, len(r.Owner)+len(r.RData)+6)
	key = append(key, []byte(r.Owner)...)
	key = append(key, byte(r.Type>>8), byte(r.Type))
	key = append(key, byte(r.TTL>>24), byte(r.TTL>>16), byte(r.TTL>>8), byte(r.TTL))
	key = append(key, r.RData...)
	return key
}
