// Package tabledescriptor defines the dependency surface the mutable table
// consumes generically: key extraction, key ordering, tombstone
// construction, and the disk-block capacity constants of the immutable
// table downstream. The mutable table never implements these itself — it
// holds a Descriptor as an interface value and calls it at run time (see
// pkg/memtable).
package tabledescriptor

// Ordering is the three-way result of Compare.
type Ordering int

const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Descriptor supplies everything the mutable table needs to stay agnostic
// of the concrete key/value representation. K must be comparable because
// the mutable table stores values in a native Go map keyed by K: that map
// is already a hash container whose hash/equality depend only on the key,
// with no newtype wrapper required.
type Descriptor[K comparable, V any] interface {
	// KeyOf extracts the key embedded in a value.
	KeyOf(v V) K

	// Compare defines the total order over keys used to sort a drained
	// table. Ties never occur: the mutable table holds at most one value
	// per key.
	Compare(a, b K) Ordering

	// TombstoneOf constructs the sentinel value representing a deletion
	// of k. Whether a value is a tombstone must be recoverable from the
	// value itself; the mutable table never calls back to ask.
	TombstoneOf(k K) V

	// IsTombstone reports whether v is a deletion record. The mutable
	// table itself never calls this — it is part of the descriptor's
	// contract for callers (the host, tests) that need to tell a live
	// value from a tombstone after a Get or a drain.
	IsTombstone(v V) bool

	// DataValueCountMax is the number of values a single on-disk data
	// block of the immutable table can hold.
	DataValueCountMax() int

	// DataBlockCountMax is the maximum number of data blocks the target
	// immutable table may contain. A mutable table's value_count_max,
	// translated to data blocks, must never exceed this.
	DataBlockCountMax() int
}
