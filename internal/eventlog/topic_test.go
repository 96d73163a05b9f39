package eventlog

import (
	"context"
	"fmt"
	"testing"
)

func newTestTopic(t *testing.T, partitions int) *Topic {
	t.Helper()
	topic, err := OpenTopic(newTestDB(t), "social", "events", partitions)
	if err != nil {
		t.Fatalf("open topic: %v", err)
	}
	return topic
}

func TestPartitionForIsDeterministic(t *testing.T) {
	topic := newTestTopic(t, 16)
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("event-%d", i)
		first := topic.PartitionFor(key)
		for j := 0; j < 5; j++ {
			if got := topic.PartitionFor(key); got != first {
				t.Fatalf("routing not deterministic for %q: %d vs %d", key, got, first)
			}
		}
	}
}

func TestPartitionForSpreadsKeys(t *testing.T) {
	topic := newTestTopic(t, 8)
	seen := map[uint32]bool{}
	for i := 0; i < 500; i++ {
		seen[topic.PartitionFor(fmt.Sprintf("key-%d", i))] = true
	}
	if len(seen) < 4 {
		t.Fatalf("expected high-entropy keys to hit several partitions, got %d", len(seen))
	}
}

func TestAppendBatchPreservesInputOrderPositions(t *testing.T) {
	topic := newTestTopic(t, 4)
	recs := make([]KeyedRecord, 10)
	for i := range recs {
		recs[i] = KeyedRecord{PartitionKey: fmt.Sprintf("k%d", i), Payload: []byte(fmt.Sprintf("p%d", i))}
	}
	positions, err := topic.AppendBatch(context.Background(), recs)
	if err != nil {
		t.Fatalf("append batch: %v", err)
	}
	if len(positions) != len(recs) {
		t.Fatalf("want %d positions, got %d", len(recs), len(positions))
	}
	for i, pos := range positions {
		if want := topic.PartitionFor(recs[i].PartitionKey); pos.Partition != want {
			t.Fatalf("record %d routed to %d, want %d", i, pos.Partition, want)
		}
		if pos.Seq == 0 {
			t.Fatalf("record %d has zero seq", i)
		}
	}
}

func TestSameKeyStaysOrderedWithinPartition(t *testing.T) {
	topic := newTestTopic(t, 4)
	ctx := context.Background()
	var lastSeq uint64
	for i := 0; i < 5; i++ {
		pos, err := topic.Append(ctx, KeyedRecord{PartitionKey: "same-key", Payload: []byte(fmt.Sprintf("v%d", i))})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if pos.Seq <= lastSeq {
			t.Fatalf("seq not increasing for same key: %d <= %d", pos.Seq, lastSeq)
		}
		lastSeq = pos.Seq
	}
}
