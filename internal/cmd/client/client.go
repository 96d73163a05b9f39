package clientcmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cfgpkg "github.com/step2this/social-media-app-sub010/internal/config"
	"github.com/step2this/social-media-app-sub010/internal/event"
	"github.com/step2this/social-media-app-sub010/internal/pagination"
	"github.com/step2this/social-media-app-sub010/internal/pipeline"
	"github.com/step2this/social-media-app-sub010/internal/runtime"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	"github.com/step2this/social-media-app-sub010/internal/store"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// drainWindow bounds how long one-shot commands keep the pipeline running
// so freshly published events get processed before the process exits.
const drainWindow = 2 * time.Second

// Session is an embedded runtime plus pipeline for one-shot CLI commands.
type Session struct {
	rt *runtime.Runtime
	p  *pipeline.Pipeline
}

// OpenSession opens the node's data directory the way the server does.
func OpenSession(dataDir string, cfg cfgpkg.Config) (*Session, error) {
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}
	rt, err := runtime.Open(runtime.Options{
		DataDir: filepath.Join(dataDir, "store"),
		Fsync:   pebblestore.FsyncModeAlways,
		Config:  cfg,
		Logger:  logpkg.NewNopLogger(),
	})
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(rt)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	return &Session{rt: rt, p: p}, nil
}

// Close shuts the session down.
func (s *Session) Close() error {
	s.p.Stop()
	return s.rt.Close()
}

// Runtime exposes the underlying runtime.
func (s *Session) Runtime() *runtime.Runtime { return s.rt }

// publishAndDrain ships events and runs the pipeline briefly so the command
// leaves the node consistent.
func (s *Session) publishAndDrain(ctx context.Context, events ...event.Event) error {
	res, err := s.rt.Publisher().PublishBatch(ctx, events)
	if err != nil {
		return err
	}
	if res.FailedCount > 0 {
		return fmt.Errorf("%d of %d events failed to publish", res.FailedCount, len(events))
	}
	s.Drain(ctx)
	return nil
}

// Drain runs the pipeline for the drain window.
func (s *Session) Drain(ctx context.Context) {
	dctx, cancel := context.WithTimeout(ctx, drainWindow)
	defer cancel()
	s.p.Start(dctx)
	<-dctx.Done()
	s.p.Stop()
}

// CreatePost publishes a post.created event.
func (s *Session) CreatePost(ctx context.Context, postID, authorID, content string) error {
	return s.publishAndDrain(ctx, event.New(event.PostCreated{PostID: postID, AuthorID: authorID, Content: content}))
}

// DeletePost publishes a post.deleted event.
func (s *Session) DeletePost(ctx context.Context, postID, authorID string) error {
	return s.publishAndDrain(ctx, event.New(event.PostDeleted{PostID: postID, AuthorID: authorID}))
}

// Like publishes a post.liked event.
func (s *Session) Like(ctx context.Context, userID, postID string) error {
	return s.publishAndDrain(ctx, event.New(event.PostLiked{PostID: postID, UserID: userID}))
}

// Unlike publishes a post.unliked event.
func (s *Session) Unlike(ctx context.Context, userID, postID string) error {
	return s.publishAndDrain(ctx, event.New(event.PostUnliked{PostID: postID, UserID: userID}))
}

// Follow publishes a user.followed event.
func (s *Session) Follow(ctx context.Context, subjectID, objectID string) error {
	return s.publishAndDrain(ctx, event.New(event.UserFollowed{SubjectID: subjectID, ObjectID: objectID}))
}

// Unfollow publishes a user.unfollowed event.
func (s *Session) Unfollow(ctx context.Context, subjectID, objectID string) error {
	return s.publishAndDrain(ctx, event.New(event.UserUnfollowed{SubjectID: subjectID, ObjectID: objectID}))
}

// PrintPosts writes one page of an author's posts as a JSON connection.
func (s *Session) PrintPosts(authorID, cursorToken string, limit int) error {
	var after *pagination.Cursor
	cur, ok, err := pagination.Decode(cursorToken)
	if err != nil {
		return err
	}
	if ok {
		after = &cur
	}
	posts, hasMore, err := s.rt.Store().PostsByAuthor(authorID, after, limit)
	if err != nil {
		return err
	}
	conn := pagination.Build(posts, hasMore, after != nil, func(p store.Post) pagination.Cursor {
		return pagination.Cursor{ID: p.PostID, SortKey: p.SortKey}
	})
	return printJSON(conn)
}

// PrintCounters writes an entity's counters as JSON.
func (s *Session) PrintCounters(entity string) error {
	if _, _, err := store.ParseEntityKey(entity); err != nil {
		return err
	}
	out := map[string]int64{}
	for _, name := range []string{store.CounterFollowers, store.CounterFollowing, store.CounterLikes, store.CounterLikesGiven} {
		n, err := s.rt.Store().Counter(entity, name)
		if err != nil {
			return err
		}
		if n != 0 {
			out[name] = n
		}
	}
	return printJSON(out)
}

// PrintPreview writes a user's cached preview list as JSON.
func (s *Session) PrintPreview(userID string) error {
	preview, err := s.rt.Views().GetPreview(userID)
	if err != nil {
		return err
	}
	return printJSON(preview)
}

// PrintDeadLetters writes the dead-letter queue as JSON.
func (s *Session) PrintDeadLetters(max int) error {
	entries, err := s.rt.DeadLetters().List(max)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

// RequeueDeadLetter takes one entry out of the dead-letter queue and
// redelivers it through the consumer.
func (s *Session) RequeueDeadLetter(ctx context.Context, id string) error {
	entry, err := s.rt.DeadLetters().Take(ctx, id)
	if err != nil {
		return err
	}
	cons, err := s.rt.NewConsumer()
	if err != nil {
		return err
	}
	if err := cons.ProcessPayload(ctx, entry.Payload); err != nil {
		// put it back so the entry is not lost
		_ = s.rt.DeadLetters().Send(ctx, entry)
		return fmt.Errorf("redelivery failed, entry kept: %w", err)
	}
	s.Drain(ctx)
	return nil
}

// PurgeDeadLetter drops one entry for good.
func (s *Session) PurgeDeadLetter(ctx context.Context, id string) error {
	return s.rt.DeadLetters().Purge(ctx, id)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
