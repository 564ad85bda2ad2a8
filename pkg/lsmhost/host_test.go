package lsmhost

import (
	"context"
	"hash/fnv"
	"testing"
	"time"

	"lsmtable/pkg/batch"
	"lsmtable/pkg/kvrecord"
)

func shardByFNV(k string, shardCount int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k))
	return int(h.Sum32()) % shardCount
}

func newTestHost(t *testing.T) *Host[string, kvrecord.Record] {
	t.Helper()
	desc := kvrecord.Descriptor{ValueCountMaxPerBlock: 4, BlockCountMax: 16}
	h, err := New[string, kvrecord.Record](Options[string, kvrecord.Record]{
		Descriptor:     desc,
		ShardFunc:      shardByFNV,
		ShardCount:     2,
		CommitCountMax: 4,
		BatchMultiple:  1,
		FlushWorkers:   2,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(h.Close)
	return h
}

func TestHost_PutGet(t *testing.T) {
	h := newTestHost(t)
	h.Put(kvrecord.NewRecord("alpha", []byte("1")))

	got, ok := h.Get("alpha")
	if !ok || string(got.Payload) != "1" {
		t.Fatalf("Get(alpha) = %+v, %v; want payload 1", got, ok)
	}
}

func TestHost_DeleteLeavesTombstone(t *testing.T) {
	h := newTestHost(t)
	h.Put(kvrecord.NewRecord("alpha", []byte("1")))
	h.Delete("alpha")

	got, ok := h.Get("alpha")
	if !ok || !got.Deleted {
		t.Fatalf("Get(alpha) after delete = %+v, %v; want a tombstone", got, ok)
	}
}

func TestHost_FlushAllPopulatesRegistry(t *testing.T) {
	h := newTestHost(t)
	h.Put(kvrecord.NewRecord("alpha", []byte("1")))
	h.Put(kvrecord.NewRecord("beta", []byte("2")))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll failed: %v", err)
	}

	stats := h.Stats()
	for i, c := range stats.Counts {
		if c != 0 {
			t.Fatalf("shard %d count = %d after flush, want 0", i, c)
		}
	}
	if stats.FlushCount == 0 {
		t.Fatal("expected at least one committed flushed run")
	}

	var total int
	h.registry.InOrder(func(run FlushedRun[kvrecord.Record]) bool {
		total += len(run.Values)
		return true
	})
	if total != 2 {
		t.Fatalf("registry holds %d values total, want 2", total)
	}
}

func TestHost_CommitGatesOnCapacity(t *testing.T) {
	h := newTestHost(t)
	desc := kvrecord.Descriptor{}
	b := batch.NewSlice[string, kvrecord.Record](desc)
	for i := 0; i < 10; i++ {
		b.Put(kvrecord.NewRecord(string(rune('a'+i)), []byte("x")))
	}

	if err := h.Commit(b); err == nil {
		t.Fatal("expected Commit to refuse a batch that overflows a shard's capacity")
	}
}
