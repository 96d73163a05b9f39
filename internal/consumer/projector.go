package consumer

import (
	"context"
	"fmt"

	"github.com/step2this/social-media-app-sub010/internal/cache"
	"github.com/step2this/social-media-app-sub010/internal/event"
	"github.com/step2this/social-media-app-sub010/internal/store"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// Domain is the slice of the store the projector mutates.
type Domain interface {
	CreatePost(postID, authorID, content string) (store.Post, error)
	DeletePost(postID string) error
	Like(ctx context.Context, userID, postID string) error
	Unlike(ctx context.Context, userID, postID string) error
	Follow(ctx context.Context, subjectID, objectID string) error
	Unfollow(ctx context.Context, subjectID, objectID string) error
	Counter(entity, counter string) (int64, error)
}

// Projector applies each domain event to the store and the read cache.
// Relationship writes feed the change stream, which in turn drives the
// counter maintainer; the projector never touches counters directly.
type Projector struct {
	domain Domain
	views  *cache.Cache
	logger logpkg.Logger
}

// NewProjector builds the event-to-state projector.
func NewProjector(domain Domain, views *cache.Cache, logger logpkg.Logger) *Projector {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Projector{domain: domain, views: views, logger: logger.WithComponent("projector")}
}

// Handle implements Handler.
func (p *Projector) Handle(ctx context.Context, ev event.Event) error {
	switch payload := ev.Payload.(type) {
	case event.PostCreated:
		post, err := p.domain.CreatePost(payload.PostID, payload.AuthorID, payload.Content)
		if err != nil {
			return fmt.Errorf("create post %s: %w", payload.PostID, err)
		}
		summary := cache.PostSummary{
			PostID:    post.PostID,
			AuthorID:  post.AuthorID,
			Content:   post.Content,
			CreatedAt: post.CreatedAt,
		}
		if err := p.views.UpsertPost(summary, ev.OccurredAt); err != nil {
			return err
		}
		return p.views.PrependPreview(post.AuthorID, summary, ev.OccurredAt)

	case event.PostDeleted:
		if err := p.domain.DeletePost(payload.PostID); err != nil {
			return fmt.Errorf("delete post %s: %w", payload.PostID, err)
		}
		if err := p.views.DeletePost(payload.PostID); err != nil {
			return err
		}
		return p.views.RemoveFromPreview(payload.AuthorID, payload.PostID, ev.OccurredAt)

	case event.PostLiked:
		if err := p.domain.Like(ctx, payload.UserID, payload.PostID); err != nil {
			return fmt.Errorf("like post %s: %w", payload.PostID, err)
		}
		return p.views.AdjustPostLikes(payload.PostID, 1, ev.OccurredAt)

	case event.PostUnliked:
		if err := p.domain.Unlike(ctx, payload.UserID, payload.PostID); err != nil {
			return fmt.Errorf("unlike post %s: %w", payload.PostID, err)
		}
		return p.views.AdjustPostLikes(payload.PostID, -1, ev.OccurredAt)

	case event.UserFollowed:
		if err := p.domain.Follow(ctx, payload.SubjectID, payload.ObjectID); err != nil {
			return fmt.Errorf("follow %s -> %s: %w", payload.SubjectID, payload.ObjectID, err)
		}
		return p.refreshStats(ev, payload.SubjectID, payload.ObjectID)

	case event.UserUnfollowed:
		if err := p.domain.Unfollow(ctx, payload.SubjectID, payload.ObjectID); err != nil {
			return fmt.Errorf("unfollow %s -> %s: %w", payload.SubjectID, payload.ObjectID, err)
		}
		return p.refreshStats(ev, payload.SubjectID, payload.ObjectID)
	}
	p.logger.Warn("no projection for event type", logpkg.Str("event_type", string(ev.Type)))
	return nil
}

// refreshStats rebuilds the cached stats documents for the affected users
// from the authoritative counters. The maintainer may still be catching up;
// the next follow event converges the cache.
func (p *Projector) refreshStats(ev event.Event, userIDs ...string) error {
	for _, userID := range userIDs {
		entity := store.EntityKey(store.KindUser, userID)
		followers, err := p.domain.Counter(entity, store.CounterFollowers)
		if err != nil {
			return err
		}
		following, err := p.domain.Counter(entity, store.CounterFollowing)
		if err != nil {
			return err
		}
		likesGiven, err := p.domain.Counter(entity, store.CounterLikesGiven)
		if err != nil {
			return err
		}
		stats := cache.ProfileStats{
			UserID:     userID,
			Followers:  followers,
			Following:  following,
			LikesGiven: likesGiven,
		}
		if err := p.views.UpsertProfileStats(stats, ev.OccurredAt); err != nil {
			return err
		}
	}
	return nil
}
