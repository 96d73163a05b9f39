package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/step2this/social-media-app-sub010/internal/pagination"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
)

func newTestDB(t *testing.T) *pebblestore.DB {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// recordingFeed captures emitted change records.
type recordingFeed struct {
	recs []ChangeRecord
}

func (f *recordingFeed) Emit(_ context.Context, rec ChangeRecord) error {
	f.recs = append(f.recs, rec)
	return nil
}

func newTestStore(t *testing.T) (*Store, *recordingFeed) {
	t.Helper()
	feed := &recordingFeed{}
	return New(newTestDB(t), "social", feed, nil), feed
}

func TestProfileRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.PutProfile(Profile{UserID: "u1", Username: "alice"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	p, err := s.GetProfile("u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Username != "alice" || p.CreatedAt.IsZero() {
		t.Fatalf("profile: %+v", p)
	}
	if _, err := s.GetProfile("nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	created, err := s.CreatePost("p1", "u1", "hello")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.SortKey == "" {
		t.Fatalf("post missing sort key")
	}
	got, err := s.GetPost("p1")
	if err != nil || got.Content != "hello" {
		t.Fatalf("get: %+v err=%v", got, err)
	}
	if err := s.DeletePost("p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetPost("p1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeletePost("p1"); err != nil {
		t.Fatalf("double delete should be a no-op: %v", err)
	}
}

func TestPostsByAuthorPaged(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 7; i++ {
		if _, err := s.CreatePost(fmt.Sprintf("p%d", i), "u1", "x"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := s.CreatePost("other", "u2", "x"); err != nil {
		t.Fatalf("create: %v", err)
	}

	page1, hasMore, err := s.PostsByAuthor("u1", nil, 3)
	if err != nil {
		t.Fatalf("page1: %v", err)
	}
	if len(page1) != 3 || !hasMore {
		t.Fatalf("page1: %d posts hasMore=%v", len(page1), hasMore)
	}
	// newest first
	if page1[0].PostID != "p6" || page1[2].PostID != "p4" {
		t.Fatalf("page1 order: %s..%s", page1[0].PostID, page1[2].PostID)
	}

	cur := &pagination.Cursor{ID: page1[2].PostID, SortKey: page1[2].SortKey}
	page2, hasMore, err := s.PostsByAuthor("u1", cur, 3)
	if err != nil {
		t.Fatalf("page2: %v", err)
	}
	if len(page2) != 3 || !hasMore || page2[0].PostID != "p3" {
		t.Fatalf("page2: %+v hasMore=%v", page2, hasMore)
	}

	cur = &pagination.Cursor{ID: page2[2].PostID, SortKey: page2[2].SortKey}
	page3, hasMore, err := s.PostsByAuthor("u1", cur, 3)
	if err != nil {
		t.Fatalf("page3: %v", err)
	}
	if len(page3) != 1 || hasMore || page3[0].PostID != "p0" {
		t.Fatalf("page3: %+v hasMore=%v", page3, hasMore)
	}
}

func TestFollowEmitsOnce(t *testing.T) {
	s, feed := newTestStore(t)
	ctx := context.Background()
	if err := s.Follow(ctx, "u1", "u2"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := s.Follow(ctx, "u1", "u2"); err != nil {
		t.Fatalf("repeat follow: %v", err)
	}
	if len(feed.recs) != 1 {
		t.Fatalf("expected one change record, got %d", len(feed.recs))
	}
	rec := feed.recs[0]
	if rec.Op != OpInsert || rec.PK != "USER#u1" || rec.SK != "FOLLOWS#USER#u2" || rec.Relation != RelationFollow {
		t.Fatalf("change record: %+v", rec)
	}
	following, err := s.IsFollowing("u1", "u2")
	if err != nil || !following {
		t.Fatalf("is following: %v %v", following, err)
	}
}

func TestUnfollowEmitsRemove(t *testing.T) {
	s, feed := newTestStore(t)
	ctx := context.Background()
	if err := s.Unfollow(ctx, "u1", "u2"); err != nil {
		t.Fatalf("unfollow absent edge: %v", err)
	}
	if len(feed.recs) != 0 {
		t.Fatalf("absent edge must not emit")
	}
	if err := s.Follow(ctx, "u1", "u2"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	if err := s.Unfollow(ctx, "u1", "u2"); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	if len(feed.recs) != 2 || feed.recs[1].Op != OpRemove {
		t.Fatalf("records: %+v", feed.recs)
	}
	following, _ := s.IsFollowing("u1", "u2")
	if following {
		t.Fatalf("edge should be gone")
	}
}

func TestSelfFollowRejected(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Follow(context.Background(), "u1", "u1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLikeUnlike(t *testing.T) {
	s, feed := newTestStore(t)
	ctx := context.Background()
	if err := s.Like(ctx, "u1", "p1"); err != nil {
		t.Fatalf("like: %v", err)
	}
	liked, err := s.HasLiked("u1", "p1")
	if err != nil || !liked {
		t.Fatalf("has liked: %v %v", liked, err)
	}
	if err := s.Unlike(ctx, "u1", "p1"); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if len(feed.recs) != 2 {
		t.Fatalf("records: %+v", feed.recs)
	}
	if feed.recs[0].PK != "POST#p1" || feed.recs[0].SK != "LIKED_BY#USER#u1" || feed.recs[0].Relation != RelationLike {
		t.Fatalf("like record: %+v", feed.recs[0])
	}
}

func TestCounters(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 3; i++ {
		if err := s.AtomicAdd("USER#u1", CounterFollowers, 1); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := s.AtomicAdd("USER#u1", CounterFollowers, -1); err != nil {
		t.Fatalf("add: %v", err)
	}
	n, err := s.Counter("USER#u1", CounterFollowers)
	if err != nil || n != 2 {
		t.Fatalf("counter: %d err=%v", n, err)
	}
	n, err = s.Counter("USER#u1", CounterFollowing)
	if err != nil || n != 0 {
		t.Fatalf("absent counter: %d err=%v", n, err)
	}
}

func TestParseEntityKey(t *testing.T) {
	kind, id, err := ParseEntityKey("USER#u1")
	if err != nil || kind != KindUser || id != "u1" {
		t.Fatalf("parse: %s %s %v", kind, id, err)
	}
	for _, bad := range []string{"", "USER", "USER#", "#u1", "USER#a#b"} {
		if _, _, err := ParseEntityKey(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestChangeRecordRoundTrip(t *testing.T) {
	s, feed := newTestStore(t)
	if err := s.Follow(context.Background(), "u1", "u2"); err != nil {
		t.Fatalf("follow: %v", err)
	}
	b, err := feed.recs[0].Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalChange(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Op != OpInsert || got.PK != "USER#u1" {
		t.Fatalf("round trip: %+v", got)
	}
	if _, err := UnmarshalChange([]byte(`{"sk":"x"}`)); err == nil {
		t.Fatalf("expected error for missing op/pk")
	}
	if _, err := UnmarshalChange([]byte("garbage")); err == nil {
		t.Fatalf("expected error for garbage")
	}
}
