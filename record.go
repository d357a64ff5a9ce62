package cascade

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/miekg/dns"
	"github.com/twotwotwo/sorts"
)

// Record is the canonical representation of one owned DNS resource record:
// an (owner, rtype, ttl) triple plus opaque, already-wire-formatted rdata.
// Owner names are stored in DNSSEC-canonical reversed-label form so that
// byte-lexicographic comparison of Owner yields canonical DNS zone order.
type Record struct {
	Owner string // reversed, lower-cased labels, e.g. "test.example.a" for a.example.test.
	Name  string // the original (non-reversed) owner name, for display and wire encoding
	Type  uint16
	TTL   uint32
	RData []byte // the whole RR packed to wire format (header and rdata, uncompressed), used for ordering, equality and persistence
	RR    dns.RR // the parsed record, kept for signing/transfer; may be nil for synthetic records
}

// ReverseLabels turns "a.example.test." into "test.example.a" so that
// byte-lexicographic ordering of the result matches canonical DNS zone
// ordering (parent labels sort before their children's siblings).
func ReverseLabels(name string) string {
	labels := dns.SplitDomainName(name)
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	out := ""
	for i, l := range labels {
		if i > 0 {
			out += "."
		}
		out += l
	}
	return out
}

// NewRecord builds a Record from a parsed dns.RR, deriving the canonical
// owner key and caching the packed wire form of the RR used for ordering.
func NewRecord(rr dns.RR) (Record, error) {
	if rr == nil {
		return Record{}, fmt.Errorf("cascade: NewRecord: nil RR")
	}
	hdr := rr.Header()
	buf := make([]byte, dns.MaxMsgSize)
	off, err := dns.PackRR(rr, buf, 0, nil, false)
	if err != nil {
		return Record{}, fmt.Errorf("cascade: NewRecord: pack %s: %w", hdr.Name, err)
	}
	return Record{
		Owner: ReverseLabels(dns.CanonicalName(hdr.Name)),
		Name:  dns.CanonicalName(hdr.Name),
		Type:  hdr.Rrtype,
		TTL:   hdr.Ttl,
		RData: buf[:off],
		RR:    rr,
	}, nil
}

// Compare implements the total order from spec §3: (owner, rtype, ttl,
// canonical-rdata). It returns <0, 0, >0 the way bytes.Compare does.
func (r Record) Compare(o Record) int {
	if c := bytes.Compare([]byte(r.Owner), []byte(o.Owner)); c != 0 {
		return c
	}
	if r.Type != o.Type {
		if r.Type < o.Type {
			return -1
		}
		return 1
	}
	if r.TTL != o.TTL {
		if r.TTL < o.TTL {
			return -1
		}
		return 1
	}
	return bytes.Compare(r.RData, o.RData)
}

func (r Record) Equal(o Record) bool {
	return r.Compare(o) == 0
}

func (r Record) String() string {
	if r.RR != nil {
		return r.RR.String()
	}
	return fmt.Sprintf("%s %d %s <%d bytes>", r.Name, r.TTL, dns.TypeToString[r.Type], len(r.RData))
}

// recordSlice adapts []Record to both sort.Interface (for sort.Sort
// fallback) and the twotwotwo/sorts concurrent quicksort, which requires
// the same Len/Less/Swap trio.
type recordSlice []Record

func (s recordSlice) Len() int           { return len(s) }
func (s recordSlice) Less(i, j int) bool { return s[i].Compare(s[j]) < 0 }
func (s recordSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// sortRecords sorts records into canonical order in place. Large zones
// dominate signing/review latency on load, so we reach for the parallel
// quicksort the teacher's zone-signing code pulls in for name/type
// ordering (sign.go's sort.Ints/sort.Strings calls are the single-zone
// analogue); for zones under a few thousand records the parallelism
// overhead isn't worth it and we fall through to sort.Sort.
func sortRecords(recs []Record) {
	if len(recs) < 4096 {
		sort.Sort(recordSlice(recs))
		return
	}
	sorts.Quicksort(recordSlice(recs))
}

// dedupSorted removes adjacent duplicates from an already-sorted slice,
// returning the deduplicated prefix. Used by TransferFull and the
// Engine's signing step before a Builder's finish checks the "sorted"
// invariant's no-duplicates clause.
func dedupSorted(recs []Record) []Record {
	if len(recs) == 0 {
		return recs
	}
	out := recs[:1]
	for _, r := range recs[1:] {
		if !r.Equal(out[len(out)-1]) {
			out = append(out, r)
		}
	}
	return out
}

// isSortedNoDup reports whether recs is strictly increasing under
// Compare, i.e. sorted with no adjacent duplicates. Scanning for adjacent
// inversions is the validation strategy spec.md §4.1 explicitly permits
// for Builder.finish().
func isSortedNoDup(recs []Record) bool {
	for i := 1; i < len(recs); i++ {
		if recs[i-1].Compare(recs[i]) >= 0 {
			return false
		}
	}
	return true
}

// SOARecord is the SOA record, stored apart from the regular record
// vector in every instance (spec §3). It carries the same owner/ttl
// framing as Record but its payload is parsed into named fields rather
// than kept opaque, since the lifecycle FSM and refresh scheduler need
// direct field access.
type SOARecord struct {
	Owner   string // canonical apex name
	TTL     uint32
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// NewSOARecord converts a parsed *dns.SOA into a SOARecord.
func NewSOARecord(rr *dns.SOA) SOARecord {
	return SOARecord{
		Owner:   dns.CanonicalName(rr.Hdr.Name),
		TTL:     rr.Hdr.Ttl,
		MName:   rr.Ns,
		RName:   rr.Mbox,
		Serial:  rr.Serial,
		Refresh: rr.Refresh,
		Retry:   rr.Retry,
		Expire:  rr.Expire,
		Minimum: rr.Minttl,
	}
}

// RR renders the SOARecord back into a *dns.SOA for transfer/signing.
func (s SOARecord) RR() *dns.SOA {
	return &dns.SOA{
		Hdr: dns.RR_Header{
			Name:   s.Owner,
			Rrtype: dns.TypeSOA,
			Class:  dns.ClassINET,
			Ttl:    s.TTL,
		},
		Ns:     s.MName,
		Mbox:   s.RName,
		Serial: s.Serial,
		Refresh: s.Refresh,
		Retry:   s.Retry,
		Expire:  s.Expire,
		Minttl:  s.Minimum,
	}
}

// Equal compares all SOA fields, including Serial: spec §4.4 requires
// that a diff records both SOAs as changed "by any field, including
// serial".
func (s SOARecord) Equal(o SOARecord) bool {
	return s == o
}
