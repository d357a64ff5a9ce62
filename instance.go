package cascade

import "fmt"

// InstanceData is the unsigned or signed component of one instance of a
// zone: an optional SOA plus a sorted, deduplicated vector of regular
// records (spec §3). The SOA is never included in Records.
//
// complete (SOA present) and sorted (strict canonical order, no dups) are
// invariants enforced at construction time by Builder.finish(); an
// InstanceData zero value is "incomplete" and must never be exposed to a
// Reader.
type InstanceData struct {
	SOA     *SOARecord
	Records []Record
}

// Complete reports whether this instance has an SOA, per spec §3's
// `complete` invariant.
func (d InstanceData) Complete() bool {
	return d.SOA != nil
}

// validate checks that the instance is complete (has an SOA), the
// sorted/no-duplicate invariant and, when apex is non-empty, that the SOA
// owner equals the apex and every record is at or below it. It does not
// mutate d.
func (d InstanceData) validate(apex string) error {
	if !d.Complete() {
		return fmt.Errorf("%w: instance has no SOA", ErrInconsistency)
	}
	if apex != "" && dnsCanonical(d.SOA.Owner) != dnsCanonical(apex) {
		return fmt.Errorf("%w: SOA owner %q does not match apex %q", ErrInconsistency, d.SOA.Owner, apex)
	}
	if !isSortedNoDup(d.Records) {
		return fmt.Errorf("%w: records are not in strict canonical order, or contain duplicates", ErrInconsistency)
	}
	if apex != "" {
		reversedApex := ReverseLabels(dnsCanonical(apex))
		for _, r := range d.Records {
			if !isSubdomainOwner(r.Owner, reversedApex) {
				return fmt.Errorf("%w: record %s is not contained in zone %s", ErrInconsistency, r.Name, apex)
			}
		}
	}
	return nil
}

// isSubdomainOwner reports whether reversedOwner is equal to, or a
// reversed-label child of, reversedApex. Both arguments must already be
// in reversed-label canonical form (see ReverseLabels).
func isSubdomainOwner(reversedOwner, reversedApex string) bool {
	if reversedOwner == reversedApex {
		return true
	}
	if len(reversedOwner) <= len(reversedApex) {
		return false
	}
	return reversedOwner[:len(reversedApex)] == reversedApex && reversedOwner[len(reversedApex)] == '.'
}

func dnsCanonical(name string) string {
	if name == "" {
		return name
	}
	if name[len(name)-1] != '.' {
		return name + "."
	}
	return name
}

// emptyInstance returns the cleared InstanceData a Cleaner leaves behind:
// no SOA, no records.
func emptyInstance() InstanceData {
	return InstanceData{}
}

// clone returns a deep-enough copy of d suitable for a Viewer/Reader to
// hold independent of subsequent Builder writes to the same slot. Record
// structs are copied by value; the underlying RData/RR are not mutated
// in place anywhere in this package, so a shallow slice copy is sufficient
// to prevent a writer's append from being observed by an existing reader.
func (d InstanceData) clone() InstanceData {
	out := InstanceData{}
	if d.SOA != nil {
		soa := *d.SOA
		out.SOA = &soa
	}
	if len(d.Records) > 0 {
		out.Records = make([]Record, len(d.Records))
		copy(out.Records, d.Records)
	}
	return out
}
