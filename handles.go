package cascade

import "fmt"

// Handles encode an access discipline that replaces locks with unique
// ownership of mutable access to specific slots (spec §4.1). Every handle
// below carries a reference to the zone's storage plus the slot indices
// it was issued for; none of them take a lock, because the FSM (fsm.go,
// fsm_states.go) guarantees that the slots named in a live handle are
// disjoint from every other live handle's slots. Constructing a handle
// outside of an fsmState transition is the contract violation spec.md
// §4.1 calls "an implementation bug".

// Built is the witness returned by a successful Builder.finish()/
// finish_unsigned(): proof that the target instance satisfied the
// complete+sorted invariants at the moment it was checked.
type Built struct {
	apex string
}

// Cleaned is the witness returned by a successful Cleaner.clean(): proof
// that the targeted slot(s) were reset to the empty instance.
type Cleaned struct{}

// Persisted is the witness returned by a successful Persister.persist().
type Persisted struct {
	Serial uint32
}

// ZoneBuilder holds exclusive mutable access to one unsigned slot and one
// signed slot — the pair that will become the new upcoming instance.
type ZoneBuilder struct {
	zs        *zoneStorage
	apex      string
	unsigned  slotID
	signed    slotID
	unsignedW InstanceData
	signedW   InstanceData
}

func newZoneBuilder(zs *zoneStorage, apex string, unsigned, signed slotID) *ZoneBuilder {
	return &ZoneBuilder{zs: zs, apex: apex, unsigned: unsigned, signed: signed}
}

// SetSOA sets the SOA for the unsigned target slot.
func (b *ZoneBuilder) SetSOA(soa SOARecord) {
	b.unsignedW.SOA = &soa
}

// SetSignedSOA sets the SOA for the signed target slot.
func (b *ZoneBuilder) SetSignedSOA(soa SOARecord) {
	b.signedW.SOA = &soa
}

// BuildRecords consumes a pre-sorted iterator (here: a slice, since Go
// lacks a standard lazy iterator for this vintage of the codebase) and
// writes it into the unsigned target slot. The caller is responsible for
// pre-sorting in canonical order; finish() re-validates this rather than
// trusting the caller, per spec.md §4.1.
func (b *ZoneBuilder) BuildRecords(recs []Record) {
	b.unsignedW.Records = append(b.unsignedW.Records[:0], recs...)
}

// BuildSignedRecords is the signed-side equivalent of BuildRecords, used
// by the signer once RRSIGs/NSEC(3) records have been produced.
func (b *ZoneBuilder) BuildSignedRecords(recs []Record) {
	b.signedW.Records = append(b.signedW.Records[:0], recs...)
}

// ClearSigned zeroes the signed component, for callers that only
// produced an unsigned instance (pass-through signing not in effect).
func (b *ZoneBuilder) ClearSigned() {
	b.signedW = emptyInstance()
}

// FinishUnsigned validates only the unsigned half and commits it,
// leaving the signed slot untouched (the PendingUnsignedReview path).
// Per spec §4.1, BuildRecords' input must already be pre-sorted; finish
// re-validates by scanning for adjacent inversions and duplicates rather
// than sorting on the caller's behalf, so a Builder fed out-of-order or
// duplicate records is rejected instead of silently corrected.
func (b *ZoneBuilder) FinishUnsigned() (Built, error) {
	if err := b.unsignedW.validate(b.apex); err != nil {
		return Built{}, err
	}
	b.zs.set(b.unsigned, b.unsignedW)
	return Built{apex: b.apex}, nil
}

// Finish validates both halves and commits them (the PendingWholeReview,
// pass-through-signing path).
func (b *ZoneBuilder) Finish() (Built, error) {
	if err := b.unsignedW.validate(b.apex); err != nil {
		return Built{}, err
	}
	if err := b.signedW.validate(b.apex); err != nil {
		return Built{}, err
	}
	b.zs.set(b.unsigned, b.unsignedW)
	b.zs.set(b.signed, b.signedW)
	return Built{apex: b.apex}, nil
}

// GiveUp discards the in-progress write without touching the slots; the
// caller (fsm.go) transitions to Cleaning regardless, since the slots may
// already hold a partially-written previous attempt.
func (b *ZoneBuilder) GiveUp() {}

// SignedZoneBuilder holds exclusive mutable access to a single signed
// slot: the re-sign path, which never touches the unsigned side.
type SignedZoneBuilder struct {
	zs     *zoneStorage
	apex   string
	signed slotID
	w      InstanceData
}

func newSignedZoneBuilder(zs *zoneStorage, apex string, signed slotID) *SignedZoneBuilder {
	return &SignedZoneBuilder{zs: zs, apex: apex, signed: signed}
}

func (b *SignedZoneBuilder) SetSOA(soa SOARecord)     { b.w.SOA = &soa }
func (b *SignedZoneBuilder) BuildRecords(r []Record)  { b.w.Records = append(b.w.Records[:0], r...) }

func (b *SignedZoneBuilder) Finish() (Built, error) {
	if err := b.w.validate(b.apex); err != nil {
		return Built{}, err
	}
	b.zs.set(b.signed, b.w)
	return Built{apex: b.apex}, nil
}

func (b *SignedZoneBuilder) GiveUp() {}

// ZoneCleaner holds exclusive mutable access to the slot(s) being retired
// after a switch, or abandoned after a failed build.
type ZoneCleaner struct {
	zs       *zoneStorage
	unsigned *slotID
	signed   *slotID
}

func newZoneCleaner(zs *zoneStorage, unsigned, signed *slotID) *ZoneCleaner {
	return &ZoneCleaner{zs: zs, unsigned: unsigned, signed: signed}
}

// Clean truncates the targeted slot(s) back to the empty instance.
// Cleaning an already-clean slot is defined to be a no-op (spec §8).
func (c *ZoneCleaner) Clean() Cleaned {
	if c.unsigned != nil {
		c.zs.clear(*c.unsigned)
	}
	if c.signed != nil {
		c.zs.clear(*c.signed)
	}
	return Cleaned{}
}

// SignedZoneCleaner is the signed-only variant used by the Resign* family.
type SignedZoneCleaner struct {
	zs     *zoneStorage
	signed slotID
}

func newSignedZoneCleaner(zs *zoneStorage, signed slotID) *SignedZoneCleaner {
	return &SignedZoneCleaner{zs: zs, signed: signed}
}

func (c *SignedZoneCleaner) Clean() Cleaned {
	c.zs.clear(c.signed)
	return Cleaned{}
}

// Reader holds shared read access to a single instance slot.
type Reader struct {
	zs   *zoneStorage
	slot slotID
}

func newReader(zs *zoneStorage, slot slotID) *Reader {
	return &Reader{zs: zs, slot: slot}
}

// SOA returns the instance's SOA. Per invariant 3 (spec §8), a Reader
// exposed to callers is always backed by a complete instance; SOA is
// non-nil whenever the Reader was obtained through normal FSM channels.
func (r *Reader) SOA() (SOARecord, error) {
	d := r.zs.get(r.slot)
	if d.SOA == nil {
		return SOARecord{}, fmt.Errorf("%w: instance %s has no SOA", ErrInconsistency, r.slot)
	}
	return *d.SOA, nil
}

// Records returns the sorted, deduplicated record vector. The returned
// slice must not be mutated by the caller; it aliases the stored data.
func (r *Reader) Records() []Record {
	return r.zs.get(r.slot).Records
}

// Viewer holds shared read access to the current authoritative unsigned
// and signed slots as of the moment it was issued. Per spec §5's
// ordering guarantee, a Viewer's view is monotonic: obtaining
// read_unsigned()/read_signed() always returns the same committed
// instance, even if the zone switches to a newer one later — the caller
// must obtain a new Viewer to observe the switch.
type Viewer struct {
	zs             *zoneStorage
	unsigned       slotID
	signed         slotID
}

func newViewer(zs *zoneStorage, unsigned, signed slotID) *Viewer {
	return &Viewer{zs: zs, unsigned: unsigned, signed: signed}
}

func (v *Viewer) ReadUnsigned() *Reader { return newReader(v.zs, v.unsigned) }
func (v *Viewer) ReadSigned() *Reader   { return newReader(v.zs, v.signed) }

// Reviewer holds shared read access to the upcoming (not yet
// authoritative) slot(s) plus the diff against the previous authoritative
// instance, computed once at issuance and cached.
type Reviewer struct {
	zs       *zoneStorage
	unsigned slotID
	signed   *slotID // nil for unsigned-only review
	diff     *Diff
}

func newReviewer(zs *zoneStorage, unsigned slotID, signed *slotID, diff *Diff) *Reviewer {
	return &Reviewer{zs: zs, unsigned: unsigned, signed: signed, diff: diff}
}

func (rv *Reviewer) ReadUnsigned() *Reader { return newReader(rv.zs, rv.unsigned) }

func (rv *Reviewer) ReadSigned() (*Reader, bool) {
	if rv.signed == nil {
		return nil, false
	}
	return newReader(rv.zs, *rv.signed), true
}

// Diff returns the cached diff against the previous authoritative
// instance (spec §4.1: Reviewer has "add read + diff access").
func (rv *Reviewer) Diff() *Diff { return rv.diff }

// Persister holds shared read access to the slots that are about to be
// written to disk. It never mutates zoneStorage; persistence is an I/O
// side effect recorded by the caller via persistence.go.
type Persister struct {
	zs       *zoneStorage
	unsigned slotID
	signed   *slotID
	diff     *Diff
}

func newPersister(zs *zoneStorage, unsigned slotID, signed *slotID, diff *Diff) *Persister {
	return &Persister{zs: zs, unsigned: unsigned, signed: signed, diff: diff}
}

func (p *Persister) ReadUnsigned() *Reader { return newReader(p.zs, p.unsigned) }

func (p *Persister) ReadSigned() (*Reader, bool) {
	if p.signed == nil {
		return nil, false
	}
	return newReader(p.zs, *p.signed), true
}

func (p *Persister) Diff() *Diff { return p.diff }

// Persist hands the instance(s) and diff to store, which is expected to
// write them durably (persistence.go's sqliteStore.SaveInstance). The
// contract (spec §4.1) is only that, after Persist returns a Persisted
// witness, the same instance can be reconstructed from the persistence
// directory after a process restart; the on-disk layout itself is
// opaque to this package.
func (p *Persister) Persist(store ZoneStore, apex string) (Persisted, error) {
	u := p.ReadUnsigned()
	soa, err := u.SOA()
	if err != nil {
		return Persisted{}, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	var signedReader *Reader
	if s, ok := p.ReadSigned(); ok {
		signedReader = s
	}
	if err := store.SaveInstance(apex, u, signedReader, p.diff); err != nil {
		return Persisted{}, fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	return Persisted{Serial: soa.Serial}, nil
}
