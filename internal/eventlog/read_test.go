package eventlog

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func appendN(t *testing.T, l *Log, n int) []uint64 {
	t.Helper()
	recs := make([]AppendRecord, n)
	for i := range recs {
		recs[i] = AppendRecord{Payload: []byte(fmt.Sprintf("p%d", i))}
	}
	seqs, err := l.Append(context.Background(), recs)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return seqs
}

func TestReadAfterToken(t *testing.T) {
	l := newTestLog(t)
	seqs := appendN(t, l, 5)

	items := l.Read(ReadOptions{After: TokenFromSeq(seqs[1]), Limit: 10})
	if len(items) != 3 {
		t.Fatalf("want 3 items after seq %d, got %d", seqs[1], len(items))
	}
	if items[0].Seq != seqs[2] {
		t.Fatalf("want first seq %d, got %d", seqs[2], items[0].Seq)
	}
}

func TestReadLimit(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 5)
	items := l.Read(ReadOptions{Limit: 2})
	if len(items) != 2 {
		t.Fatalf("want 2, got %d", len(items))
	}
}

func TestReadReverse(t *testing.T) {
	l := newTestLog(t)
	seqs := appendN(t, l, 3)
	items := l.Read(ReadOptions{Limit: 2, Reverse: true})
	if len(items) != 2 {
		t.Fatalf("want 2, got %d", len(items))
	}
	if items[0].Seq != seqs[2] {
		t.Fatalf("reverse should start at newest")
	}
}

func TestFetchBatchReturnsPartialAfterWindow(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 2)
	start := time.Now()
	items := l.FetchBatch(context.Background(), Token{}, 10, 50*time.Millisecond)
	if len(items) != 2 {
		t.Fatalf("want partial batch of 2, got %d", len(items))
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Fatalf("returned before wait window elapsed")
	}
}

func TestFetchBatchFillsFromConcurrentAppend(t *testing.T) {
	l := newTestLog(t)
	appendN(t, l, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = l.Append(context.Background(), []AppendRecord{{Payload: []byte("late")}})
	}()
	items := l.FetchBatch(context.Background(), Token{}, 2, 2*time.Second)
	if len(items) != 2 {
		t.Fatalf("want full batch of 2, got %d", len(items))
	}
}
