package consumer

import (
	"context"
	"errors"
	"testing"

	"github.com/step2this/social-media-app-sub010/internal/cache"
	"github.com/step2this/social-media-app-sub010/internal/event"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	"github.com/step2this/social-media-app-sub010/internal/store"
)

func newProjectorFixture(t *testing.T) (*Projector, *store.Store, *cache.Cache) {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := store.New(db, "social", nil, nil)
	views := cache.New(db, "social", nil)
	return NewProjector(s, views, nil), s, views
}

func TestProjectPostCreated(t *testing.T) {
	p, s, views := newProjectorFixture(t)
	ctx := context.Background()
	ev := event.New(event.PostCreated{PostID: "p1", AuthorID: "u1", Content: "hi"})
	if err := p.Handle(ctx, ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if _, err := s.GetPost("p1"); err != nil {
		t.Fatalf("post not stored: %v", err)
	}
	cached, err := views.GetPost("p1")
	if err != nil || cached.Content != "hi" {
		t.Fatalf("cached post: %+v err=%v", cached, err)
	}
	preview, err := views.GetPreview("u1")
	if err != nil || len(preview) != 1 || preview[0].PostID != "p1" {
		t.Fatalf("preview: %+v err=%v", preview, err)
	}
}

func TestProjectPostDeleted(t *testing.T) {
	p, s, views := newProjectorFixture(t)
	ctx := context.Background()
	if err := p.Handle(ctx, event.New(event.PostCreated{PostID: "p1", AuthorID: "u1", Content: "hi"})); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.Handle(ctx, event.New(event.PostDeleted{PostID: "p1", AuthorID: "u1"})); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetPost("p1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("post should be gone: %v", err)
	}
	if _, err := views.GetPost("p1"); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("cached post should be gone: %v", err)
	}
	preview, _ := views.GetPreview("u1")
	if len(preview) != 0 {
		t.Fatalf("preview should be empty: %+v", preview)
	}
}

func TestProjectLikeFlow(t *testing.T) {
	p, s, views := newProjectorFixture(t)
	ctx := context.Background()
	if err := p.Handle(ctx, event.New(event.PostCreated{PostID: "p1", AuthorID: "u1", Content: "hi"})); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := p.Handle(ctx, event.New(event.PostLiked{PostID: "p1", UserID: "u2"})); err != nil {
		t.Fatalf("like: %v", err)
	}
	liked, err := s.HasLiked("u2", "p1")
	if err != nil || !liked {
		t.Fatalf("relationship row missing: %v %v", liked, err)
	}
	cached, _ := views.GetPost("p1")
	if cached.LikeCount != 1 {
		t.Fatalf("cached like count: %d", cached.LikeCount)
	}
	if err := p.Handle(ctx, event.New(event.PostUnliked{PostID: "p1", UserID: "u2"})); err != nil {
		t.Fatalf("unlike: %v", err)
	}
	liked, _ = s.HasLiked("u2", "p1")
	if liked {
		t.Fatalf("like row should be gone")
	}
	cached, _ = views.GetPost("p1")
	if cached.LikeCount != 0 {
		t.Fatalf("cached like count after unlike: %d", cached.LikeCount)
	}
}

func TestProjectFollowRefreshesStats(t *testing.T) {
	p, s, views := newProjectorFixture(t)
	ctx := context.Background()
	// counters are maintained out of band; seed them to observe the refresh
	if err := s.AtomicAdd("USER#u2", store.CounterFollowers, 5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := p.Handle(ctx, event.New(event.UserFollowed{SubjectID: "u1", ObjectID: "u2"})); err != nil {
		t.Fatalf("follow: %v", err)
	}
	following, err := s.IsFollowing("u1", "u2")
	if err != nil || !following {
		t.Fatalf("follow row: %v %v", following, err)
	}
	stats, err := views.GetProfileStats("u2")
	if err != nil || stats.Followers != 5 {
		t.Fatalf("stats: %+v err=%v", stats, err)
	}
	if err := p.Handle(ctx, event.New(event.UserUnfollowed{SubjectID: "u1", ObjectID: "u2"})); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	following, _ = s.IsFollowing("u1", "u2")
	if following {
		t.Fatalf("follow row should be gone")
	}
}
