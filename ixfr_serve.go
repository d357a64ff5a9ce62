package cascade

import (
	"fmt"

	"github.com/miekg/dns"
)

// BuildIXFRAnswer renders a chain of Diffs (oldest first, as returned by
// ZoneStore.LoadDiffChain) into the wire-format answer section of an IXFR
// response: the current SOA, then for each diff its removed run (bracketed by the
// diff's own before/after SOA) and added run, ending on the current
// authoritative SOA. This is the server side of the envelope format the
// teacher's client-side parser (ixfr package, since folded into
// parseIxfrEnvelopes in source.go) consumes; the two are deliberately
// symmetric.
//
// If diffs is empty, or any diff lacks SOA information, the caller should
// fall back to a full AXFR (spec §6, "a transfer source too stale to
// serve incrementally falls back to AXFR").
func BuildIXFRAnswer(current SOARecord, diffs []*Diff) ([]dns.RR, error) {
	if len(diffs) == 0 {
		return nil, fmt.Errorf("cascade: ixfr: no diffs to serve")
	}
	for _, d := range diffs {
		if d.RemovedSOA == nil || d.AddedSOA == nil {
			return nil, fmt.Errorf("cascade: ixfr: diff missing SOA bracket, fall back to AXFR")
		}
	}

	answer := []dns.RR{current.RR()}
	for _, d := range diffs {
		answer = append(answer, d.RemovedSOA.RR())
		for _, r := range d.Removed {
			answer = append(answer, r.RR)
		}
		answer = append(answer, d.AddedSOA.RR())
		for _, r := range d.Added {
			answer = append(answer, r.RR)
		}
	}
	answer = append(answer, current.RR())
	return answer, nil
}

// ServeIXFR answers an inbound IXFR query (req.Question[0].Qtype ==
// dns.TypeIXFR) against a zone's stored diff chain, falling back to a
// plain AXFR envelope when the requested serial isn't covered by the
// retained chain. Grounded on the teacher's AXFR-fallback detection in
// IxfrFromResponse (ixfr/ixfr.go): here the fallback is the server
// deciding to send one, rather than the client detecting one it received.
func ServeIXFR(req *dns.Msg, current InstanceData, diffs []*Diff, sinceSerial uint32) (*dns.Msg, error) {
	if current.SOA == nil {
		return nil, fmt.Errorf("cascade: ixfr: zone has no SOA")
	}

	resp := new(dns.Msg)
	resp.SetReply(req)

	covering := coveringDiffs(diffs, sinceSerial)
	if covering == nil {
		// Fall back to AXFR: SOA, all records, SOA.
		resp.Answer = append(resp.Answer, current.SOA.RR())
		for _, r := range current.Records {
			resp.Answer = append(resp.Answer, r.RR)
		}
		resp.Answer = append(resp.Answer, current.SOA.RR())
		return resp, nil
	}

	answer, err := BuildIXFRAnswer(*current.SOA, covering)
	if err != nil {
		return nil, err
	}
	resp.Answer = answer
	return resp, nil
}

// coveringDiffs returns the suffix of diffs (oldest-first) whose first
// entry's RemovedSOA.Serial equals sinceSerial, or nil if sinceSerial
// isn't the base of any retained diff (the chain has rolled past it, or
// the client is already caught up in a way the chain can't express).
func coveringDiffs(diffs []*Diff, sinceSerial uint32) []*Diff {
	for i, d := range diffs {
		if d.RemovedSOA != nil && d.RemovedSOA.Serial == sinceSerial {
			return diffs[i:]
		}
	}
	return nil
}
