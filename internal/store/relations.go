package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// Relationship sort-key prefixes.
const (
	skFollows = "FOLLOWS#"
	skLikedBy = "LIKED_BY#"
)

// Follow records subject following object and emits an INSERT on the change
// feed. Following an already-followed user is a no-op, so replays never
// double-emit.
func (s *Store) Follow(ctx context.Context, subjectID, objectID string) error {
	if subjectID == objectID {
		return errors.New("store: cannot follow self")
	}
	pk := EntityKey(KindUser, subjectID)
	sk := skFollows + EntityKey(KindUser, objectID)
	return s.putRelation(ctx, pk, sk, RelationFollow)
}

// Unfollow removes the follow edge and emits a REMOVE. Unknown edges are a
// no-op.
func (s *Store) Unfollow(ctx context.Context, subjectID, objectID string) error {
	pk := EntityKey(KindUser, subjectID)
	sk := skFollows + EntityKey(KindUser, objectID)
	return s.deleteRelation(ctx, pk, sk, RelationFollow)
}

// Like records user liking post and emits an INSERT on the change feed.
func (s *Store) Like(ctx context.Context, userID, postID string) error {
	pk := EntityKey(KindPost, postID)
	sk := skLikedBy + EntityKey(KindUser, userID)
	return s.putRelation(ctx, pk, sk, RelationLike)
}

// Unlike removes the like edge and emits a REMOVE.
func (s *Store) Unlike(ctx context.Context, userID, postID string) error {
	pk := EntityKey(KindPost, postID)
	sk := skLikedBy + EntityKey(KindUser, userID)
	return s.deleteRelation(ctx, pk, sk, RelationLike)
}

// IsFollowing reports whether the follow edge exists.
func (s *Store) IsFollowing(subjectID, objectID string) (bool, error) {
	return s.hasRelation(EntityKey(KindUser, subjectID), skFollows+EntityKey(KindUser, objectID))
}

// HasLiked reports whether the like edge exists.
func (s *Store) HasLiked(userID, postID string) (bool, error) {
	return s.hasRelation(EntityKey(KindPost, postID), skLikedBy+EntityKey(KindUser, userID))
}

func (s *Store) putRelation(ctx context.Context, pk, sk, relation string) error {
	exists, err := s.hasRelation(pk, sk)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	row := relationRow{PK: pk, SK: sk, Relation: relation, CreatedAt: time.Now().UTC()}
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	if err := s.db.Set(keyRelation(s.ns, pk, sk), b); err != nil {
		return err
	}
	return s.emit(ctx, ChangeRecord{Op: OpInsert, PK: pk, SK: sk, Relation: relation, OccurredAt: row.CreatedAt})
}

func (s *Store) deleteRelation(ctx context.Context, pk, sk, relation string) error {
	exists, err := s.hasRelation(pk, sk)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := s.db.Delete(keyRelation(s.ns, pk, sk)); err != nil {
		return err
	}
	return s.emit(ctx, ChangeRecord{Op: OpRemove, PK: pk, SK: sk, Relation: relation, OccurredAt: time.Now().UTC()})
}

func (s *Store) hasRelation(pk, sk string) (bool, error) {
	_, err := s.db.Get(keyRelation(s.ns, pk, sk))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) emit(ctx context.Context, rec ChangeRecord) error {
	if err := s.feed.Emit(ctx, rec); err != nil {
		s.logger.Error("change feed emit failed",
			logpkg.Str("pk", rec.PK),
			logpkg.Str("sk", rec.SK),
			logpkg.Err(err))
		return err
	}
	return nil
}
