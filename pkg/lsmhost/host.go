// Package lsmhost is the LSM tree host: it owns a set of mutable tables,
// supplies the scratch buffer they drain into, and funnels client writes
// into them in batches. It is where the worker pool, the flushed-run
// registry, and the debug server live, keeping the mutable table itself
// free of all of that.
package lsmhost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/zhangyunhao116/fastrand"

	"lsmtable/pkg/batch"
	"lsmtable/pkg/dberrors"
	"lsmtable/pkg/memtable"
	"lsmtable/pkg/metrics"
	"lsmtable/pkg/tabledescriptor"
)

// flushEvent is emitted once per completed flush, carrying what the
// background event listener needs to log it. Metrics are recorded by
// flushShard itself.
type flushEvent struct {
	shard    int
	runID    uuid.UUID
	count    int
	duration time.Duration
}

// ShardFunc assigns a key to one of the host's shards.
type ShardFunc[K comparable] func(k K, shardCount int) int

// Host owns shardCount independent mutable tables, each sized identically
// from the same commit_count_max/batch_multiple, so they can safely share
// one scratch buffer for draining: the returned slice is invalidated
// whenever it's called for any shard.
type Host[K comparable, V any] struct {
	desc     tabledescriptor.Descriptor[K, V]
	shardOf  ShardFunc[K]
	metrics  metrics.Collector
	flushPool *ants.Pool

	mu     sync.Mutex
	shards []*memtable.Table[K, V]
	scratch []V

	registry *Registry[V]

	events   chan flushEvent
	eventLog *flushEventLog

	tickerCancel context.CancelFunc
	tickerWG     sync.WaitGroup
}

// Options configures a Host.
type Options[K comparable, V any] struct {
	Descriptor     tabledescriptor.Descriptor[K, V]
	ShardFunc      ShardFunc[K]
	ShardCount     int
	CommitCountMax int
	BatchMultiple  int
	FlushWorkers   int
	Metrics        metrics.Collector
	Allocator      memtable.Allocator
}

// New builds a Host with shardCount independently-capacity-bounded mutable
// tables and a bounded goroutine pool to drive their flushes.
func New[K comparable, V any](opts Options[K, V]) (*Host[K, V], error) {
	if opts.ShardCount <= 0 {
		return nil, fmt.Errorf("%w: shard count must be > 0, got %d", dberrors.ErrInvalidArgument, opts.ShardCount)
	}
	if opts.ShardFunc == nil {
		return nil, fmt.Errorf("%w: shard func is required", dberrors.ErrInvalidArgument)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}

	pool, err := ants.NewPool(opts.FlushWorkers, ants.WithPreAlloc(true))
	if err != nil {
		return nil, fmt.Errorf("lsmhost: create flush pool: %w", err)
	}

	h := &Host[K, V]{
		desc:      opts.Descriptor,
		shardOf:   opts.ShardFunc,
		metrics:   opts.Metrics,
		flushPool: pool,
		shards:    make([]*memtable.Table[K, V], opts.ShardCount),
		registry:  NewRegistry[V](),
		events:    make(chan flushEvent, opts.ShardCount),
	}
	h.eventLog = newFlushEventLog(h.events, h.handleFlushEvent)
	h.eventLog.Start(context.Background())

	for i := range h.shards {
		tbl, err := memtable.New[K, V](opts.Allocator, opts.Descriptor, opts.CommitCountMax, opts.BatchMultiple)
		if err != nil {
			pool.Release()
			return nil, fmt.Errorf("lsmhost: construct shard %d: %w", i, err)
		}
		h.shards[i] = tbl
	}
	h.scratch = make([]V, h.shards[0].ValueCountMax())

	return h, nil
}

// Put routes v to its shard and applies it directly (a one-value commit).
// Use Commit for an actual batch.
func (h *Host[K, V]) Put(v V) {
	k := h.desc.KeyOf(v)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shards[h.shardOf(k, len(h.shards))].Put(v)
}

// Delete routes a tombstone for k to its shard.
func (h *Host[K, V]) Delete(k K) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.shards[h.shardOf(k, len(h.shards))].Remove(k)
}

// Get looks k up in the one shard ShardFunc assigns it to; only that shard
// can ever hold it.
func (h *Host[K, V]) Get(k K) (V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shards[h.shardOf(k, len(h.shards))].Get(k)
}

// Commit applies an entire batch to its keys' shards, first gating every
// affected shard with CannotCommitBatch so a batch that would overflow any
// one shard is rejected before any of it is applied.
func (h *Host[K, V]) Commit(b *batch.Slice[K, V]) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	perShard := make(map[int]int, len(h.shards))
	for _, v := range b.Items() {
		perShard[h.shardOf(h.desc.KeyOf(v), len(h.shards))]++
	}
	for shard, n := range perShard {
		tbl := h.shards[shard]
		if n > tbl.ValueCountMax() || tbl.CannotCommitBatch(n) {
			return fmt.Errorf("lsmhost: shard %d cannot accept a batch of %d values", shard, n)
		}
	}

	for _, v := range b.Items() {
		h.shards[h.shardOf(h.desc.KeyOf(v), len(h.shards))].Put(v)
	}
	return nil
}

// Stats is a point-in-time snapshot of shard occupancy.
type Stats struct {
	ShardCount    int
	Counts        []int
	ValueCountMax int
	FlushCount    uint64
}

func (h *Host[K, V]) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	counts := make([]int, len(h.shards))
	for i, s := range h.shards {
		counts[i] = s.Count()
	}
	return Stats{
		ShardCount:    len(h.shards),
		Counts:        counts,
		ValueCountMax: h.scratchCap(),
		FlushCount:    h.registry.Len(),
	}
}

func (h *Host[K, V]) scratchCap() int {
	return len(h.scratch)
}

// FlushShard drains shard idx through the shared scratch buffer and hands
// the sorted snapshot to the flush worker pool, which copies it into the
// flushed-run registry (the in-memory stand-in for writing an immutable
// table — actual disk I/O is out of scope). The drain runs synchronously in
// the caller; the registry write runs on the pool, and FlushShard waits for
// it to finish unless ctx is done first.
func (h *Host[K, V]) FlushShard(ctx context.Context, idx int) error {
	return h.flushShard(ctx, idx)
}

// FlushAll drains every non-empty shard.
func (h *Host[K, V]) FlushAll(ctx context.Context) error {
	h.mu.Lock()
	n := len(h.shards)
	h.mu.Unlock()

	for i := 0; i < n; i++ {
		if err := h.flushShard(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host[K, V]) flushShard(ctx context.Context, idx int) error {
	h.mu.Lock()
	if h.shards[idx].Count() == 0 {
		h.mu.Unlock()
		return nil
	}
	start := time.Now()
	sorted := h.shards[idx].SortIntoValuesAndClear(h.scratch)
	run := make([]V, len(sorted))
	copy(run, sorted)
	h.mu.Unlock()

	runID := uuid.New()
	h.registry.MarkInFlight(runID)

	done := make(chan error, 1)
	err := h.flushPool.Submit(func() {
		h.registry.Commit(runID, run)
		h.registry.ClearInFlight(runID)
		done <- nil
	})
	if err != nil {
		h.registry.ClearInFlight(runID)
		return fmt.Errorf("lsmhost: submit flush %s: %w", runID, err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	dur := time.Since(start)
	h.metrics.IncCounter("lsmhost_flushes_total", map[string]string{"shard": fmt.Sprint(idx)}, 1)
	h.metrics.ObserveHistogram("lsmhost_flush_seconds", map[string]string{"shard": fmt.Sprint(idx)}, dur.Seconds())

	select {
	case h.events <- flushEvent{shard: idx, runID: runID, count: len(run), duration: dur}:
	default:
	}
	return nil
}

// handleFlushEvent is the background listener's handler: it logs each
// completed flush. A full events channel drops the event rather than
// blocking a flush, since this is observability, not correctness.
func (h *Host[K, V]) handleFlushEvent(ev flushEvent) error {
	slog.Info("flush committed",
		"shard", ev.shard,
		"run_id", ev.runID,
		"values", ev.count,
		"duration", ev.duration,
	)
	return nil
}

// StartSoftFlushTicker periodically flushes every shard whose population
// has reached threshold, jittering the interval with fastrand so that several
// hosts (or, in a single process, the ticker and a burst of client writes)
// don't contend in lockstep.
func (h *Host[K, V]) StartSoftFlushTicker(ctx context.Context, interval time.Duration, threshold int) {
	ctx, cancel := context.WithCancel(ctx)
	h.tickerCancel = cancel
	h.tickerWG.Add(1)

	go func() {
		defer h.tickerWG.Done()
		for {
			jitter := time.Duration(fastrand.Uint32n(uint32(interval / 4)))
			timer := time.NewTimer(interval + jitter)

			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			h.mu.Lock()
			due := make([]int, 0, len(h.shards))
			for i, s := range h.shards {
				if s.Count() >= threshold {
					due = append(due, i)
				}
			}
			h.mu.Unlock()

			for _, idx := range due {
				_ = h.flushShard(ctx, idx)
			}
		}
	}()
}

// Close stops the soft-flush ticker, the flush-event listener, and
// releases the flush worker pool.
func (h *Host[K, V]) Close() {
	if h.tickerCancel != nil {
		h.tickerCancel()
		h.tickerWG.Wait()
	}
	h.eventLog.Stop()
	h.flushPool.Release()
}
