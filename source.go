package cascade

import (
	"fmt"
	"sort"

	"github.com/miekg/dns"
)

// Source describes where a zone's unsigned content comes from (spec §3's
// Source type). Only one of Primary/LocalFile is meaningful at a time;
// None means the zone accepts no automatic refresh and must be loaded
// entirely through the operator-facing Builder API.
type Source struct {
	Kind     SourceKind
	Primary  string // upstream "addr:port" for AXFR/IXFR, grounded on ZoneTransferIn (dnsutils.go)
	Path     string // zonefile path, for SourceLocalFile
	TSIGName string // key name in the TSIG store (tsig.go), empty if unauthenticated
}

type SourceKind uint8

const (
	SourceNone SourceKind = iota
	SourcePrimary
	SourceLocalFile
)

// TransferFull performs an AXFR against src.Primary and returns the
// complete instance it carries, sorted and deduplicated. It is the
// direct descendant of the teacher's ZoneData.ZoneTransferIn
// (dnsutils.go), adapted from the teacher's map-of-owners zone store to
// this package's flat, pre-sorted Record vector.
func TransferFull(apex string, src Source) (InstanceData, error) {
	if src.Kind != SourcePrimary {
		return InstanceData{}, fmt.Errorf("cascade: source for %s is not a primary", apex)
	}
	msg := new(dns.Msg)
	msg.SetAxfr(dns.Fqdn(apex))

	transfer := new(dns.Transfer)
	if src.TSIGName != "" {
		// Only the key name is registered, with an empty secret; no TSIG
		// record is added to msg, so the request goes out unsigned.
		transfer.TsigSecret = map[string]string{src.TSIGName: ""}
	}
	answerChan, err := transfer.In(msg, src.Primary)
	if err != nil {
		return InstanceData{}, fmt.Errorf("cascade: axfr %s from %s: %w", apex, src.Primary, err)
	}

	var soa *SOARecord
	var recs []Record
	for envelope := range answerChan {
		if envelope.Error != nil {
			return InstanceData{}, fmt.Errorf("cascade: axfr %s from %s: %w", apex, src.Primary, envelope.Error)
		}
		for _, rr := range envelope.RR {
			if s, ok := rr.(*dns.SOA); ok {
				// The first SOA opens the transfer; the closing copy
				// is not a regular record.
				if soa == nil {
					v := NewSOARecord(s)
					soa = &v
				}
				continue
			}
			rec, err := NewRecord(rr)
			if err != nil {
				return InstanceData{}, fmt.Errorf("cascade: axfr %s: %w", apex, err)
			}
			recs = append(recs, rec)
		}
	}
	sortRecords(recs)
	recs = dedupSorted(recs)
	return InstanceData{SOA: soa, Records: recs}, nil
}

// TransferIncremental performs an IXFR against src.Primary starting from
// sinceSerial and returns the list of per-version diffs the upstream
// sent, oldest first. If the upstream falls back to a full AXFR (no
// history available for sinceSerial), ok is false and the caller should
// use TransferFull instead.
func TransferIncremental(apex string, src Source, sinceSerial uint32) (diffs []*Diff, ok bool, err error) {
	if src.Kind != SourcePrimary {
		return nil, false, fmt.Errorf("cascade: source for %s is not a primary", apex)
	}
	msg := new(dns.Msg)
	msg.SetIxfr(dns.Fqdn(apex), sinceSerial, "", "")

	transfer := new(dns.Transfer)
	answerChan, err := transfer.In(msg, src.Primary)
	if err != nil {
		return nil, false, fmt.Errorf("cascade: ixfr %s from %s: %w", apex, src.Primary, err)
	}

	var envelopes [][]dns.RR
	for envelope := range answerChan {
		if envelope.Error != nil {
			return nil, false, fmt.Errorf("cascade: ixfr %s from %s: %w", apex, src.Primary, envelope.Error)
		}
		envelopes = append(envelopes, envelope.RR)
	}
	return parseIxfrEnvelopes(apex, envelopes)
}

// parseIxfrEnvelopes interprets the classic IXFR wire shape: an initial
// SOA, then alternating (old-SOA, removed..., new-SOA, added...) runs
// until the final record repeats the initial SOA. A stream that is just
// [SOA, full-zone...] is a server-side AXFR fallback, reported as ok=false.
func parseIxfrEnvelopes(apex string, envelopes [][]dns.RR) ([]*Diff, bool, error) {
	var all []dns.RR
	for _, e := range envelopes {
		all = append(all, e...)
	}
	if len(all) < 2 {
		return nil, false, fmt.Errorf("cascade: ixfr %s: response too short", apex)
	}
	firstSOA, ok := all[0].(*dns.SOA)
	if !ok {
		return nil, false, fmt.Errorf("cascade: ixfr %s: response does not start with SOA", apex)
	}
	if _, ok := all[1].(*dns.SOA); !ok {
		// AXFR fallback: this is not an IXFR delta sequence at all.
		return nil, false, nil
	}

	var diffs []*Diff
	i := 1
	// The last record is the closing copy of the initial SOA.
	for i < len(all)-1 {
		oldSOA, ok := all[i].(*dns.SOA)
		if !ok {
			return nil, false, fmt.Errorf("cascade: ixfr %s: expected old SOA at record %d", apex, i)
		}
		i++
		var removed []Record
		for i < len(all) {
			if s, ok := all[i].(*dns.SOA); ok {
				_ = s
				break
			}
			r, err := NewRecord(all[i])
			if err != nil {
				return nil, false, err
			}
			removed = append(removed, r)
			i++
		}
		newSOA, ok := all[i].(*dns.SOA)
		if !ok {
			return nil, false, fmt.Errorf("cascade: ixfr %s: expected new SOA at record %d", apex, i)
		}
		i++
		var added []Record
		for i < len(all) {
			if s, ok := all[i].(*dns.SOA); ok && s.Serial == firstSOA.Serial && i == len(all)-1 {
				break
			}
			if _, ok := all[i].(*dns.SOA); ok {
				break
			}
			r, err := NewRecord(all[i])
			if err != nil {
				return nil, false, err
			}
			added = append(added, r)
			i++
		}
		sort.Sort(recordSlice(removed))
		sort.Sort(recordSlice(added))
		oldv, newv := NewSOARecord(oldSOA), NewSOARecord(newSOA)
		diffs = append(diffs, &Diff{RemovedSOA: &oldv, AddedSOA: &newv, Removed: removed, Added: added})
	}
	return diffs, true, nil
}
