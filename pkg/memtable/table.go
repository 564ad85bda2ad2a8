// Package memtable implements the mutable table: the capacity-bounded,
// key-coalescing write buffer at the top of an LSM tree. It is generic over
// the key and value types and takes a Table descriptor (pkg/tabledescriptor)
// supplying key extraction, key ordering, and tombstone construction. The
// descriptor is held as an interface value, so Put, Remove and the sort in
// SortIntoValuesAndClear call it through dynamic dispatch; Get does not call
// it.
package memtable

import (
	"fmt"
	"slices"

	"lsmtable/pkg/dberrors"
	"lsmtable/pkg/tabledescriptor"
)

// Allocator models the mutable table's one external, fallible dependency:
// reserving backing storage up front for value_count_max entries. Go's
// native map can't itself report an allocation failure the way a
// systems-language allocator would, so this collaborator exists to make
// that failure path real and testable; NoopAllocator never refuses.
type Allocator interface {
	// Reserve is called exactly once, during New, with value_count_max.
	// A non-nil error aborts construction; no partial state is kept.
	Reserve(valueCountMax int) error
}

// NoopAllocator always succeeds. Use it when the caller has no quota to
// enforce.
type NoopAllocator struct{}

func (NoopAllocator) Reserve(int) error { return nil }

// Table is the mutable table, parameterised by a Table descriptor. It
// holds at most valueCountMax values, one per distinct key, coalescing
// puts and removes by key as they arrive.
type Table[K comparable, V any] struct {
	desc          tabledescriptor.Descriptor[K, V]
	values        map[K]V
	valueCountMax int
}

// New constructs an empty mutable table sized for commitCountMax values per
// client commit and batchMultiple accumulated commits before a mandatory
// flush. It asserts the construction-time block-count invariant against the
// descriptor's disk-block constants: the buffer must never be able to hold
// more values than the immutable table it drains into can absorb.
//
// A commitCountMax or batchMultiple of zero is a programming error and
// fails fast via dberrors.Assert, not via a returned error.
func New[K comparable, V any](
	alloc Allocator,
	desc tabledescriptor.Descriptor[K, V],
	commitCountMax int,
	batchMultiple int,
) (*Table[K, V], error) {
	dberrors.Assert(commitCountMax > 0, "memtable: commit_count_max must be > 0, got %d", commitCountMax)
	dberrors.Assert(batchMultiple > 0, "memtable: batch_multiple must be > 0, got %d", batchMultiple)

	valueCountMax := commitCountMax * batchMultiple

	dataBlockCount := ceilDiv(valueCountMax, desc.DataValueCountMax())
	dberrors.Assert(
		dataBlockCount <= desc.DataBlockCountMax(),
		"memtable: value_count_max %d needs %d data blocks, exceeding data_block_count_max %d",
		valueCountMax, dataBlockCount, desc.DataBlockCountMax(),
	)

	if alloc == nil {
		alloc = NoopAllocator{}
	}
	if err := alloc.Reserve(valueCountMax); err != nil {
		return nil, fmt.Errorf("%w: %v", dberrors.ErrAllocation, err)
	}

	return &Table[K, V]{
		desc:          desc,
		values:        make(map[K]V, valueCountMax),
		valueCountMax: valueCountMax,
	}, nil
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}

// ValueCountMax returns the capacity computed at construction.
func (t *Table[K, V]) ValueCountMax() int {
	return t.valueCountMax
}

// Get returns a copy of the stored value for k, if any; later mutations of
// the table do not change it. The returned value may itself
// be a tombstone: callers inspect it via desc.IsTombstone to distinguish a
// live hit from a deletion record.
func (t *Table[K, V]) Get(k K) (V, bool) {
	v, ok := t.values[k]
	return v, ok
}

// Put coalesces v into the table under desc.KeyOf(v): a put over an
// existing key overwrites it, and a put following a remove replaces the
// tombstone.
func (t *Table[K, V]) Put(v V) {
	k := t.desc.KeyOf(v)
	t.values[k] = v
	t.assertWithinCapacity()
}

// Remove replaces whatever is stored for k, if anything, with a tombstone.
// count() does not change if k was already present.
func (t *Table[K, V]) Remove(k K) {
	t.values[k] = t.desc.TombstoneOf(k)
	t.assertWithinCapacity()
}

func (t *Table[K, V]) assertWithinCapacity() {
	dberrors.Assert(
		len(t.values) <= t.valueCountMax,
		"memtable: count %d exceeds value_count_max %d", len(t.values), t.valueCountMax,
	)
}

// CannotCommitBatch reports whether committing n more distinct keys would
// overflow value_count_max. The host is expected to consult this before
// applying a batch, rather than relying on Put/Remove to reject it.
func (t *Table[K, V]) CannotCommitBatch(n int) bool {
	dberrors.Assert(n <= t.valueCountMax, "memtable: batch size %d exceeds value_count_max %d", n, t.valueCountMax)
	return len(t.values)+n > t.valueCountMax
}

// Count returns the number of distinct keys currently held.
func (t *Table[K, V]) Count() int {
	return len(t.values)
}

// Clear empties the table without releasing its backing storage. Clearing
// an already-empty table is a programming error.
func (t *Table[K, V]) Clear() {
	dberrors.Assert(len(t.values) > 0, "memtable: Clear called on an empty table")
	clear(t.values)
}

// SortIntoValuesAndClear is the flush primitive. out must be a scratch
// slice of exactly ValueCountMax() elements; the table copies its stored
// values into out's prefix, sorts that prefix ascending by key under
// desc.Compare, clears itself, and returns the sorted prefix as a view over
// the caller-owned scratch.
//
// The returned slice aliases out and is only valid until the caller next
// writes to or frees out — typically until the next call to
// SortIntoValuesAndClear for any table sharing the same scratch buffer.
// Draining an empty table is a programming error.
func (t *Table[K, V]) SortIntoValuesAndClear(out []V) []V {
	dberrors.Assert(len(t.values) > 0, "memtable: SortIntoValuesAndClear called on an empty table")
	dberrors.Assert(
		len(out) == t.valueCountMax,
		"memtable: scratch slice must have length %d, got %d", t.valueCountMax, len(out),
	)

	n := 0
	for _, v := range t.values {
		out[n] = v
		n++
	}
	prefix := out[:n]

	slices.SortFunc(prefix, func(a, b V) int {
		return int(t.desc.Compare(t.desc.KeyOf(a), t.desc.KeyOf(b)))
	})

	clear(t.values)
	return prefix
}
