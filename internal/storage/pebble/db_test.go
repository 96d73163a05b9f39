package pebblestore

import (
	"sync"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(Options{DataDir: t.TempDir(), Fsync: FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSetGetDelete(t *testing.T) {
	db := openTestDB(t)
	if err := db.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("got %q", got)
	}
	if err := db.Delete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get([]byte("k")); err == nil {
		t.Fatalf("expected not found after delete")
	}
}

func TestMergeAddAccumulates(t *testing.T) {
	db := openTestDB(t)
	key := []byte("counter/u1/followers")
	for _, d := range []int64{1, 1, 1, -1} {
		if err := db.MergeAdd(key, d); err != nil {
			t.Fatalf("merge add: %v", err)
		}
	}
	got, err := db.ReadCounter(key)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if got != 2 {
		t.Fatalf("want 2, got %d", got)
	}
}

func TestReadCounterMissingIsZero(t *testing.T) {
	db := openTestDB(t)
	got, err := db.ReadCounter([]byte("counter/none"))
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if got != 0 {
		t.Fatalf("want 0, got %d", got)
	}
}

func TestMergeAddConcurrent(t *testing.T) {
	db := openTestDB(t)
	key := []byte("counter/u2/followers")
	const workers = 8
	const perWorker = 100
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := db.MergeAdd(key, 1); err != nil {
					t.Errorf("merge add: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	got, err := db.ReadCounter(key)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if got != workers*perWorker {
		t.Fatalf("lost updates: want %d, got %d", workers*perWorker, got)
	}
}
