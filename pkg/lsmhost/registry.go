package lsmhost

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zhangyunhao116/skipmap"
	"github.com/zhangyunhao116/skipset"
)

// FlushedRun is one drained-and-sorted mutable table, kept in memory as the
// in-scope stand-in for an immutable table — writing it to disk is out of
// scope for this repository.
type FlushedRun[V any] struct {
	ID     uuid.UUID
	Values []V
}

// Registry tracks flushed runs in flush order and which runs are still in
// flight (submitted to the flush pool but not yet committed), the same
// ordered-registry-plus-membership-set shape a concurrent skiplist-backed
// memtable would use for its own committed-segment bookkeeping, applied
// here to where ordering is actually a host concern: listing flush history
// oldest-first.
type Registry[V any] struct {
	runs     *skipmap.FuncMap[uuid.UUID, FlushedRun[V]]
	inFlight *skipset.FuncSet[uuid.UUID]
	seq      *skipmap.FuncMap[int64, uuid.UUID]
	nextSeq  atomic.Uint64
}

func NewRegistry[V any]() *Registry[V] {
	uuidLess := func(a, b uuid.UUID) bool { return a.String() < b.String() }
	int64Less := func(a, b int64) bool { return a < b }
	return &Registry[V]{
		runs:     skipmap.NewFunc[uuid.UUID, FlushedRun[V]](uuidLess),
		inFlight: skipset.NewFunc[uuid.UUID](uuidLess),
		seq:      skipmap.NewFunc[int64, uuid.UUID](int64Less),
	}
}

// MarkInFlight records that runID has been submitted to the flush pool.
func (r *Registry[V]) MarkInFlight(runID uuid.UUID) {
	r.inFlight.Add(runID)
}

// ClearInFlight records that runID is no longer pending.
func (r *Registry[V]) ClearInFlight(runID uuid.UUID) {
	r.inFlight.Remove(runID)
}

// InFlightCount reports how many flushes are currently submitted but not
// yet committed to the registry.
func (r *Registry[V]) InFlightCount() int {
	return r.inFlight.Len()
}

// Commit records a completed flushed run. The sequence number is drawn
// from Registry's own atomic counter so concurrent flush-pool workers can
// commit without Registry needing a mutex.
func (r *Registry[V]) Commit(runID uuid.UUID, values []V) {
	r.runs.Store(runID, FlushedRun[V]{ID: runID, Values: values})
	r.seq.Store(int64(r.nextSeq.Add(1)), runID)
}

// Len returns the number of committed flushed runs.
func (r *Registry[V]) Len() uint64 {
	return uint64(r.runs.Len())
}

// InOrder walks committed runs oldest-first, stopping early if f returns
// false.
func (r *Registry[V]) InOrder(f func(FlushedRun[V]) bool) {
	r.seq.Range(func(_ int64, runID uuid.UUID) bool {
		run, ok := r.runs.Load(runID)
		if !ok {
			return true
		}
		return f(run)
	})
}
