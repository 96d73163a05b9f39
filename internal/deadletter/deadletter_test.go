package deadletter

import (
	"context"
	"errors"
	"testing"

	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
)

func newTestQueue(t *testing.T, group string) *Queue {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db, "social", group, nil)
}

func TestSendListTake(t *testing.T) {
	q := newTestQueue(t, "cache-sync")
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Send(ctx, Entry{ID: id, Payload: []byte(id), Attempts: 3, Reason: "handler failed"}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	entries, err := q.List(0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 || entries[0].ID != "a" || entries[0].FailedAt.IsZero() {
		t.Fatalf("entries: %+v", entries)
	}

	e, err := q.Take(ctx, "b")
	if err != nil || string(e.Payload) != "b" {
		t.Fatalf("take: %+v err=%v", e, err)
	}
	entries, _ = q.List(0)
	if len(entries) != 2 {
		t.Fatalf("after take: %d", len(entries))
	}
	if _, err := q.Take(ctx, "b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double take: %v", err)
	}
}

func TestListLimit(t *testing.T) {
	q := newTestQueue(t, "g")
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := q.Send(ctx, Entry{ID: id}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}
	entries, err := q.List(2)
	if err != nil || len(entries) != 2 {
		t.Fatalf("limited list: %d err=%v", len(entries), err)
	}
}

func TestPurge(t *testing.T) {
	q := newTestQueue(t, "g")
	ctx := context.Background()
	if err := q.Send(ctx, Entry{ID: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := q.Purge(ctx, "x"); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if err := q.Purge(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGroupsAreIsolated(t *testing.T) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	a := New(db, "social", "group-a", nil)
	b := New(db, "social", "group-b", nil)
	if err := a.Send(context.Background(), Entry{ID: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	entries, _ := b.List(0)
	if len(entries) != 0 {
		t.Fatalf("group-b sees group-a entries: %+v", entries)
	}
}
