// Package kvrecord is a worked Table descriptor for pkg/memtable: string
// keys, byte-slice payloads, checksummed with xxhash. It gives the generic
// mutable table a concrete instantiation to build and test against.
package kvrecord

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"lsmtable/pkg/tabledescriptor"
)

// Record is the value type: a key, a payload, a deletion marker, and a
// checksum of the payload guarding against a corrupted round-trip.
type Record struct {
	Key      string
	Payload  []byte
	Deleted  bool
	Checksum uint64
}

// NewRecord builds a live Record, stamping it with the xxhash checksum of
// payload.
func NewRecord(key string, payload []byte) Record {
	return Record{
		Key:      key,
		Payload:  payload,
		Checksum: xxhash.Sum64(payload),
	}
}

// Valid reports whether Payload's checksum still matches Checksum.
// Tombstones (empty payload, Checksum == 0) are always valid.
func (r Record) Valid() bool {
	if r.Deleted {
		return true
	}
	return xxhash.Sum64(r.Payload) == r.Checksum
}

// Descriptor implements tabledescriptor.Descriptor[string, Record].
// DataValueCountMax/DataBlockCountMax mirror the disk-block layout of a
// single downstream data file: valueCountMax values per block, blockCountMax
// blocks total.
type Descriptor struct {
	ValueCountMaxPerBlock int
	BlockCountMax         int
}

var _ tabledescriptor.Descriptor[string, Record] = Descriptor{}

func (Descriptor) KeyOf(v Record) string { return v.Key }

func (Descriptor) Compare(a, b string) tabledescriptor.Ordering {
	switch c := strings.Compare(a, b); {
	case c < 0:
		return tabledescriptor.Less
	case c > 0:
		return tabledescriptor.Greater
	default:
		return tabledescriptor.Equal
	}
}

func (Descriptor) TombstoneOf(k string) Record {
	return Record{Key: k, Deleted: true}
}

func (Descriptor) IsTombstone(v Record) bool { return v.Deleted }

func (d Descriptor) DataValueCountMax() int { return d.ValueCountMaxPerBlock }
func (d Descriptor) DataBlockCountMax() int { return d.BlockCountMax }
