package cascade

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"log"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/miekg/dns"
)

// ZoneStore is the persistence contract a Persister hands its instance(s)
// and diff to (handles.go's Persister.Persist). Implemented here by
// sqliteStore, grounded on the teacher's KeyDB (db.go), but storing
// signed zone instances and their diff chain instead of key material.
type ZoneStore interface {
	SaveInstance(apex string, unsigned *Reader, signed *Reader, diff *Diff) error
	LoadInstance(apex string) (unsigned, signed InstanceData, err error)
	LoadDiffChain(apex string, limit int) ([]*Diff, error)
	Close() error
}

// storeTables mirrors the teacher's DefaultTables map (db.go): one entry
// per table, created with CREATE TABLE IF NOT EXISTS at startup.
var storeTables = map[string]string{
	"zone_instances": `CREATE TABLE IF NOT EXISTS 'zone_instances' (
id		INTEGER PRIMARY KEY,
apex		TEXT NOT NULL,
side		TEXT NOT NULL,
serial		INTEGER,
wire		BLOB,
UNIQUE (apex, side)
)`,

	"zone_diffs": `CREATE TABLE IF NOT EXISTS 'zone_diffs' (
id		INTEGER PRIMARY KEY,
apex		TEXT NOT NULL,
seq		INTEGER NOT NULL,
removed_soa	BLOB,
added_soa	BLOB,
removed		BLOB,
added		BLOB,
UNIQUE (apex, seq)
)`,

	"tsig_keys": `CREATE TABLE IF NOT EXISTS 'tsig_keys' (
id		INTEGER PRIMARY KEY,
name		TEXT NOT NULL,
algorithm	TEXT NOT NULL,
secret		TEXT NOT NULL,
UNIQUE (name)
)`,
}

type sqliteStore struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the sqlite database at dbfile
// and ensures storeTables exist, following NewKeyDB's setup sequence
// (db.go) including its use of database/sql + mattn/go-sqlite3.
func OpenStore(dbfile string) (ZoneStore, error) {
	if dbfile == "" {
		return nil, fmt.Errorf("cascade: persistence: db filename unspecified")
	}
	if _, err := os.Stat(dbfile); err == nil {
		if err := os.Chmod(dbfile, 0664); err != nil {
			return nil, fmt.Errorf("cascade: persistence: %s not writable: %w", dbfile, err)
		}
	}
	db, err := sql.Open("sqlite3", dbfile)
	if err != nil {
		return nil, fmt.Errorf("cascade: persistence: sql.Open: %w", err)
	}
	for name, schema := range storeTables {
		if _, err := db.Exec(schema); err != nil {
			return nil, fmt.Errorf("cascade: persistence: creating table %s: %w", name, err)
		}
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

// SaveInstance persists the unsigned side (always present) and, if
// signed is non-nil, the signed side, plus the diff against the previous
// authoritative instance for IXFR replay after a restart.
func (s *sqliteStore) SaveInstance(apex string, unsigned *Reader, signed *Reader, diff *Diff) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistFailure, err)
	}
	defer tx.Rollback()

	if err := saveSide(tx, apex, "unsigned", unsigned); err != nil {
		return err
	}
	if signed != nil {
		if err := saveSide(tx, apex, "signed", signed); err != nil {
			return err
		}
	}
	if diff != nil && !diff.Empty() {
		seq, err := nextDiffSeq(tx, apex)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersistFailure, err)
		}
		if err := saveDiff(tx, apex, seq, diff); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistFailure, err)
	}
	return nil
}

func saveSide(tx *sql.Tx, apex, side string, r *Reader) error {
	soa, err := r.SOA()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	wire, err := encodeInstance(soa, r.Records())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	_, err = tx.Exec(`INSERT INTO zone_instances (apex, side, serial, wire) VALUES (?,?,?,?)
ON CONFLICT(apex, side) DO UPDATE SET serial=excluded.serial, wire=excluded.wire`,
		apex, side, soa.Serial, wire)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	return nil
}

func nextDiffSeq(tx *sql.Tx, apex string) (int64, error) {
	var max sql.NullInt64
	if err := tx.QueryRow(`SELECT MAX(seq) FROM zone_diffs WHERE apex=?`, apex).Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 1, nil
	}
	return max.Int64 + 1, nil
}

func saveDiff(tx *sql.Tx, apex string, seq int64, d *Diff) error {
	rsoa, err := encodeOptionalSOA(d.RemovedSOA)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	asoa, err := encodeOptionalSOA(d.AddedSOA)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	removed, err := encodeRecords(d.Removed)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	added, err := encodeRecords(d.Added)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	_, err = tx.Exec(`INSERT INTO zone_diffs (apex, seq, removed_soa, added_soa, removed, added) VALUES (?,?,?,?,?,?)`,
		apex, seq, rsoa, asoa, removed, added)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailure, err)
	}
	return nil
}

// LoadInstance reconstructs both sides of a zone's authoritative
// instance at process startup, restoring it into a fresh Zone via
// Zone.restoreAuthoritative.
func (s *sqliteStore) LoadInstance(apex string) (unsigned, signed InstanceData, err error) {
	unsigned, err = loadSide(s.db, apex, "unsigned")
	if err != nil {
		return InstanceData{}, InstanceData{}, err
	}
	signed, err = loadSide(s.db, apex, "signed")
	if err != nil {
		return InstanceData{}, InstanceData{}, err
	}
	return unsigned, signed, nil
}

func loadSide(db *sql.DB, apex, side string) (InstanceData, error) {
	var wire []byte
	err := db.QueryRow(`SELECT wire FROM zone_instances WHERE apex=? AND side=?`, apex, side).Scan(&wire)
	if err == sql.ErrNoRows {
		return emptyInstance(), nil
	}
	if err != nil {
		return InstanceData{}, fmt.Errorf("cascade: persistence: load %s/%s: %w", apex, side, err)
	}
	return decodeInstance(wire)
}

// LoadDiffChain returns up to limit of the most recent diffs for apex,
// oldest first, used to prime Zone.diffChain for IXFR after a restart.
func (s *sqliteStore) LoadDiffChain(apex string, limit int) ([]*Diff, error) {
	rows, err := s.db.Query(`SELECT removed_soa, added_soa, removed, added FROM zone_diffs
WHERE apex=? ORDER BY seq DESC LIMIT ?`, apex, limit)
	if err != nil {
		return nil, fmt.Errorf("cascade: persistence: load diff chain %s: %w", apex, err)
	}
	defer rows.Close()

	var out []*Diff
	for rows.Next() {
		var rsoa, asoa, removed, added []byte
		if err := rows.Scan(&rsoa, &asoa, &removed, &added); err != nil {
			return nil, fmt.Errorf("cascade: persistence: scan diff %s: %w", apex, err)
		}
		d := &Diff{}
		if d.RemovedSOA, err = decodeOptionalSOA(rsoa); err != nil {
			return nil, err
		}
		if d.AddedSOA, err = decodeOptionalSOA(asoa); err != nil {
			return nil, err
		}
		if d.Removed, err = decodeRecords(removed); err != nil {
			return nil, err
		}
		if d.Added, err = decodeRecords(added); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	// reverse to oldest-first, since the query was DESC for LIMIT to keep
	// the most recent N
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

// --- wire encoding -------------------------------------------------
//
// Each instance/record is stored as length-prefixed wire-format RRs via
// dns.PackRR/dns.UnpackRR (github.com/miekg/dns), the same primitive
// record.go's NewRecord uses to derive RData. This keeps the on-disk
// format a straight serialization of what miekg/dns already parses,
// rather than inventing a second schema for the same data.

func encodeInstance(soa SOARecord, recs []Record) ([]byte, error) {
	var buf []byte
	soaBuf, err := packRR(soa.RR())
	if err != nil {
		return nil, err
	}
	buf = appendChunk(buf, soaBuf)
	for _, r := range recs {
		buf = appendChunk(buf, r.RData)
	}
	return buf, nil
}

func decodeInstance(wire []byte) (InstanceData, error) {
	if len(wire) == 0 {
		return emptyInstance(), nil
	}
	chunks, err := splitChunks(wire)
	if err != nil {
		return InstanceData{}, err
	}
	if len(chunks) == 0 {
		return emptyInstance(), nil
	}
	soaRR, _, err := dns.UnpackRR(chunks[0], 0)
	if err != nil {
		return InstanceData{}, fmt.Errorf("cascade: persistence: unpack soa: %w", err)
	}
	soa, ok := soaRR.(*dns.SOA)
	if !ok {
		return InstanceData{}, fmt.Errorf("cascade: persistence: first record is not SOA")
	}
	soaVal := NewSOARecord(soa)
	recs := make([]Record, 0, len(chunks)-1)
	for _, c := range chunks[1:] {
		rr, _, err := dns.UnpackRR(c, 0)
		if err != nil {
			return InstanceData{}, fmt.Errorf("cascade: persistence: unpack record: %w", err)
		}
		rec, err := NewRecord(rr)
		if err != nil {
			return InstanceData{}, err
		}
		recs = append(recs, rec)
	}
	return InstanceData{SOA: &soaVal, Records: recs}, nil
}

func encodeRecords(recs []Record) ([]byte, error) {
	var buf []byte
	for _, r := range recs {
		buf = appendChunk(buf, r.RData)
	}
	return buf, nil
}

func decodeRecords(wire []byte) ([]Record, error) {
	chunks, err := splitChunks(wire)
	if err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(chunks))
	for _, c := range chunks {
		rr, _, err := dns.UnpackRR(c, 0)
		if err != nil {
			return nil, fmt.Errorf("cascade: persistence: unpack record: %w", err)
		}
		rec, err := NewRecord(rr)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func encodeOptionalSOA(s *SOARecord) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	return packRR(s.RR())
}

func decodeOptionalSOA(wire []byte) (*SOARecord, error) {
	if len(wire) == 0 {
		return nil, nil
	}
	rr, _, err := dns.UnpackRR(wire, 0)
	if err != nil {
		return nil, fmt.Errorf("cascade: persistence: unpack soa: %w", err)
	}
	soa, ok := rr.(*dns.SOA)
	if !ok {
		return nil, fmt.Errorf("cascade: persistence: expected SOA")
	}
	v := NewSOARecord(soa)
	return &v, nil
}

func packRR(rr dns.RR) ([]byte, error) {
	buf := make([]byte, dns.Len(rr)+64)
	n, err := dns.PackRR(rr, buf, 0, nil, false)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func appendChunk(buf, chunk []byte) []byte {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(chunk)))
	buf = append(buf, length[:]...)
	buf = append(buf, chunk...)
	return buf
}

func splitChunks(wire []byte) ([][]byte, error) {
	var chunks [][]byte
	for len(wire) > 0 {
		if len(wire) < 4 {
			return nil, fmt.Errorf("cascade: persistence: truncated chunk header")
		}
		n := binary.BigEndian.Uint32(wire[:4])
		wire = wire[4:]
		if uint32(len(wire)) < n {
			return nil, fmt.Errorf("cascade: persistence: truncated chunk body")
		}
		chunks = append(chunks, wire[:n])
		wire = wire[n:]
	}
	return chunks, nil
}

func logPersistenceReady(dbfile string) {
	log.Printf("cascade: persistence: using sqlite db %s", dbfile)
}
