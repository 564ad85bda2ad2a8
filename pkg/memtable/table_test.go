package memtable

import (
	"testing"

	"lsmtable/pkg/tabledescriptor"
)

// testValue is the fixture value type: K = uint64, V = {key, tombstone,
// payload}.
type testValue struct {
	key       uint64
	tombstone bool
	payload   uint64
}

type testDescriptor struct {
	dataValueCountMax int
	dataBlockCountMax int
}

func (testDescriptor) KeyOf(v testValue) uint64 { return v.key }

func (testDescriptor) Compare(a, b uint64) tabledescriptor.Ordering {
	switch {
	case a < b:
		return tabledescriptor.Less
	case a > b:
		return tabledescriptor.Greater
	default:
		return tabledescriptor.Equal
	}
}

func (testDescriptor) TombstoneOf(k uint64) testValue {
	return testValue{key: k, tombstone: true}
}

func (testDescriptor) IsTombstone(v testValue) bool { return v.tombstone }

func (d testDescriptor) DataValueCountMax() int { return d.dataValueCountMax }
func (d testDescriptor) DataBlockCountMax() int { return d.dataBlockCountMax }

// newTestTable builds a table with value_count_max == 4.
func newTestTable(t *testing.T) *Table[uint64, testValue] {
	t.Helper()
	desc := testDescriptor{dataValueCountMax: 4, dataBlockCountMax: 1}
	tbl, err := New[uint64, testValue](nil, desc, 4, 1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return tbl
}

func TestNew_ZeroCommitCountMaxPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for commit_count_max == 0")
		}
	}()
	desc := testDescriptor{dataValueCountMax: 4, dataBlockCountMax: 1}
	_, _ = New[uint64, testValue](nil, desc, 0, 1)
}

func TestNew_BlockCountInvariant(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when value_count_max needs too many data blocks")
		}
	}()
	// commit_count_max * batch_multiple == 100 values, 4 per block == 25
	// blocks, exceeding data_block_count_max of 1.
	desc := testDescriptor{dataValueCountMax: 4, dataBlockCountMax: 1}
	_, _ = New[uint64, testValue](nil, desc, 100, 1)
}

func TestNew_AllocatorFailureSurfaces(t *testing.T) {
	desc := testDescriptor{dataValueCountMax: 4, dataBlockCountMax: 1}
	refusing := allocatorFunc(func(int) error { return errAllocQuota })
	_, err := New[uint64, testValue](refusing, desc, 4, 1)
	if err == nil {
		t.Fatal("expected allocation error")
	}
}

func TestSortIntoValuesAndClear_EmptyPanics(t *testing.T) {
	tbl := newTestTable(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic draining an empty table")
		}
	}()
	out := make([]testValue, tbl.ValueCountMax())
	tbl.SortIntoValuesAndClear(out)
}

func TestPut_CoalescesByKey(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Put(testValue{key: 3, payload: 10})
	tbl.Put(testValue{key: 3, payload: 20})
	tbl.Put(testValue{key: 7, payload: 5})

	if got := tbl.Count(); got != 2 {
		t.Fatalf("Count() = %d, want 2", got)
	}

	out := make([]testValue, tbl.ValueCountMax())
	drained := tbl.SortIntoValuesAndClear(out)
	want := []testValue{{key: 3, payload: 20}, {key: 7, payload: 5}}
	assertValuesEqual(t, drained, want)
}

func TestRemove_OverwritesPut(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Put(testValue{key: 1, payload: 9})
	tbl.Remove(1)

	got, ok := tbl.Get(1)
	if !ok {
		t.Fatal("expected key 1 present")
	}
	if !got.tombstone {
		t.Fatalf("expected tombstone, got %+v", got)
	}
	if tbl.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", tbl.Count())
	}
}

func TestPut_OverwritesTombstone(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Remove(2)
	tbl.Put(testValue{key: 2, payload: 42})

	got, ok := tbl.Get(2)
	if !ok || got.tombstone || got.payload != 42 {
		t.Fatalf("Get(2) = %+v, %v; want {2 false 42}, true", got, ok)
	}

	out := make([]testValue, tbl.ValueCountMax())
	drained := tbl.SortIntoValuesAndClear(out)
	assertValuesEqual(t, drained, []testValue{{key: 2, payload: 42}})
}

func TestCannotCommitBatch(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Put(testValue{key: 1})
	tbl.Put(testValue{key: 2})
	tbl.Put(testValue{key: 3})

	if tbl.CannotCommitBatch(1) {
		t.Fatal("CannotCommitBatch(1) = true, want false at count 3/4")
	}
	if !tbl.CannotCommitBatch(2) {
		t.Fatal("CannotCommitBatch(2) = false, want true at count 3/4")
	}
}

func TestSortIntoValuesAndClear_OrdersTombstonesWithLiveValues(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Put(testValue{key: 5})
	tbl.Remove(2)
	tbl.Put(testValue{key: 9})
	tbl.Remove(4)

	out := make([]testValue, tbl.ValueCountMax())
	drained := tbl.SortIntoValuesAndClear(out)

	wantKeys := []uint64{2, 4, 5, 9}
	wantTombstones := []bool{true, true, false, false}
	if len(drained) != len(wantKeys) {
		t.Fatalf("drained %d values, want %d", len(drained), len(wantKeys))
	}
	for i, v := range drained {
		if v.key != wantKeys[i] {
			t.Fatalf("drained[%d].key = %d, want %d", i, v.key, wantKeys[i])
		}
		if v.tombstone != wantTombstones[i] {
			t.Fatalf("drained[%d].tombstone = %v, want %v", i, v.tombstone, wantTombstones[i])
		}
	}

	// Draining must leave the table empty.
	if got := tbl.Count(); got != 0 {
		t.Fatalf("Count() after drain = %d, want 0", got)
	}
}

func TestPut_RoundTrip(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Put(testValue{key: 1, payload: 100})
	got, ok := tbl.Get(1)
	if !ok || got.payload != 100 {
		t.Fatalf("Get(1) = %+v, %v; want payload 100", got, ok)
	}

	tbl.Put(testValue{key: 1, payload: 200})
	got, ok = tbl.Get(1)
	if !ok || got.payload != 200 {
		t.Fatalf("Get(1) after second put = %+v, %v; want payload 200", got, ok)
	}
}

// Capacity must hold across a Clear and a subsequent refill.
func TestCapacityNeverExceeded(t *testing.T) {
	tbl := newTestTable(t)
	for i := uint64(0); i < 4; i++ {
		tbl.Put(testValue{key: i})
	}
	if tbl.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", tbl.Count())
	}
	tbl.Clear()
	if tbl.Count() != 0 {
		t.Fatalf("Count() after Clear = %d, want 0", tbl.Count())
	}
	for i := uint64(10); i < 14; i++ {
		tbl.Put(testValue{key: i})
	}
	if tbl.Count() != 4 {
		t.Fatalf("Count() = %d, want 4", tbl.Count())
	}
}

func TestClear_EmptyPanics(t *testing.T) {
	tbl := newTestTable(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic clearing an empty table")
		}
	}()
	tbl.Clear()
}

func TestSortIntoValuesAndClear_WrongScratchSizePanics(t *testing.T) {
	tbl := newTestTable(t)
	tbl.Put(testValue{key: 1})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for wrongly sized scratch slice")
		}
	}()
	tbl.SortIntoValuesAndClear(make([]testValue, tbl.ValueCountMax()-1))
}

func assertValuesEqual(t *testing.T, got, want []testValue) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d (got=%+v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

type allocatorFunc func(valueCountMax int) error

func (f allocatorFunc) Reserve(valueCountMax int) error { return f(valueCountMax) }

var errAllocQuota = &quotaError{}

type quotaError struct{}

func (*quotaError) Error() string { return "quota exceeded" }
