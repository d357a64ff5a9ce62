package cascade

import (
	"time"

	"github.com/miekg/dns"
	"golang.org/x/exp/rand"
)

// Signer is the contract the lifecycle FSM depends on for the
// BuildingSigned/ResignBuilding transitions (spec §1 lists "the
// cryptographic signer workers (RRSIG generation, NSEC/NSEC3 chains)" as
// an out-of-scope external collaborator, referenced only by its
// contract). An Engine wires a concrete Signer in; this package ships
// only the interface plus a pass-through stub for tests and for zones
// configured without DNSSEC.
type Signer interface {
	// Sign produces the signed record set for unsigned (including
	// RRSIGs and, where applicable, a freshly walked NSEC/NSEC3 chain)
	// and returns it unsorted; the caller (the Engine) sorts and
	// deduplicates it before SignedZoneBuilder.Finish validates it.
	Sign(apex string, soa SOARecord, unsigned []Record) (SOARecord, []Record, error)
}

// sigJitter spreads RRSIG inception/expiration across a window to avoid
// every record in a zone expiring at the exact same instant, the same
// technique as the teacher's sigLifetime (sign.go), reusing
// golang.org/x/exp/rand rather than math/rand for consistency with the
// rest of the pack.
func sigJitter(now time.Time, validity time.Duration) (inception, expiration uint32) {
	jitter := time.Duration(rand.Intn(61)) * time.Second
	inception = uint32(now.Add(-jitter).Add(-60 * time.Second).Unix())
	expiration = uint32(now.Add(validity).Add(jitter).Unix())
	return
}

// PassThroughSigner is a Signer that performs no cryptographic operation
// at all: it returns the unsigned records unchanged. It exists so the
// lifecycle FSM and its tests can exercise the BuildingSigned/Resign*
// states end-to-end without depending on the out-of-scope HSM/KMIP
// client or a real key store. The Engine calls the Signer only for zones
// with OnlineSigning enabled.
type PassThroughSigner struct{}

func (PassThroughSigner) Sign(apex string, soa SOARecord, unsigned []Record) (SOARecord, []Record, error) {
	out := make([]Record, len(unsigned))
	copy(out, unsigned)
	return soa, out, nil
}

// newRRSIGHeader builds the RR header a real Signer implementation would
// attach to each generated RRSIG, grounded on the teacher's SignMsg
// (sign.go) use of dns.SIG/dns.RRSIG with a 5-minute default validity.
func newRRSIGHeader(owner string, ttl uint32) dns.RR_Header {
	return dns.RR_Header{Name: owner, Rrtype: dns.TypeRRSIG, Class: dns.ClassINET, Ttl: ttl}
}
