package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/step2this/social-media-app-sub010/internal/pagination"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	"github.com/step2this/social-media-app-sub010/pkg/id"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// ErrNotFound reports a missing entity.
var ErrNotFound = errors.New("store: not found")

// Profile is a user row.
type Profile struct {
	UserID      string    `json:"userId"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Post is a post row. SortKey is a time-ordered identifier used by the
// author feed index and exposed through pagination cursors.
type Post struct {
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	SortKey   string    `json:"sortKey"`
	CreatedAt time.Time `json:"createdAt"`
}

// relationRow is the persisted shape of a relationship edge.
type relationRow struct {
	PK        string    `json:"pk"`
	SK        string    `json:"sk"`
	Relation  string    `json:"relation"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store is the single-table entity and relationship layer. Relationship
// mutations emit change records on the attached feed; entity writes do not.
type Store struct {
	db     *pebblestore.DB
	ns     string
	feed   ChangeFeed
	gen    *id.Generator
	logger logpkg.Logger
}

// New builds a Store over db in the given namespace. A nil feed disables
// change emission.
func New(db *pebblestore.DB, namespace string, feed ChangeFeed, logger logpkg.Logger) *Store {
	if feed == nil {
		feed = NopFeed{}
	}
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Store{
		db:     db,
		ns:     namespace,
		feed:   feed,
		gen:    id.NewGenerator(),
		logger: logger.WithComponent("store"),
	}
}

// PutProfile creates or replaces a user profile.
func (s *Store) PutProfile(p Profile) error {
	if p.UserID == "" || p.Username == "" {
		return fmt.Errorf("store: profile requires userId and username")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Set(keyEntity(s.ns, EntityKey(KindUser, p.UserID)), b)
}

// GetProfile loads a user profile.
func (s *Store) GetProfile(userID string) (Profile, error) {
	var p Profile
	if err := s.getJSON(keyEntity(s.ns, EntityKey(KindUser, userID)), &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// CreatePost persists a post and its author-feed index entry. The sort key
// is minted here so the feed orders by creation time.
func (s *Store) CreatePost(postID, authorID, content string) (Post, error) {
	if postID == "" || authorID == "" {
		return Post{}, fmt.Errorf("store: post requires postId and authorId")
	}
	p := Post{
		PostID:    postID,
		AuthorID:  authorID,
		Content:   content,
		SortKey:   s.gen.Next().String(),
		CreatedAt: time.Now().UTC(),
	}
	b, err := json.Marshal(p)
	if err != nil {
		return Post{}, err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Set(keyEntity(s.ns, EntityKey(KindPost, p.PostID)), b, nil); err != nil {
		return Post{}, err
	}
	if err := batch.Set(keyAuthorIndex(s.ns, authorID, p.SortKey), []byte(p.PostID), nil); err != nil {
		return Post{}, err
	}
	if err := s.db.CommitBatch(context.Background(), batch); err != nil {
		return Post{}, err
	}
	return p, nil
}

// GetPost loads a post.
func (s *Store) GetPost(postID string) (Post, error) {
	var p Post
	if err := s.getJSON(keyEntity(s.ns, EntityKey(KindPost, postID)), &p); err != nil {
		return Post{}, err
	}
	return p, nil
}

// DeletePost removes a post and its author index entry. Missing posts are a
// no-op.
func (s *Store) DeletePost(postID string) error {
	p, err := s.GetPost(postID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := batch.Delete(keyEntity(s.ns, EntityKey(KindPost, postID)), nil); err != nil {
		return err
	}
	if err := batch.Delete(keyAuthorIndex(s.ns, p.AuthorID, p.SortKey), nil); err != nil {
		return err
	}
	return s.db.CommitBatch(context.Background(), batch)
}

// PostsByAuthor pages through an author's posts, newest first. It reads one
// row past limit to learn whether another page exists.
func (s *Store) PostsByAuthor(authorID string, after *pagination.Cursor, limit int) ([]Post, bool, error) {
	if limit <= 0 {
		limit = 20
	}
	prefix := keyAuthorIndexPrefix(s.ns, authorID)
	upper := prefixUpperBound(prefix)
	if after != nil {
		// resume strictly below the cursor position
		upper = keyAuthorIndex(s.ns, authorID, after.SortKey)
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, false, err
	}
	defer iter.Close()

	var posts []Post
	hasMore := false
	for ok := iter.Last(); ok; ok = iter.Prev() {
		if len(posts) == limit {
			hasMore = true
			break
		}
		postID := string(iter.Value())
		p, err := s.GetPost(postID)
		if errors.Is(err, ErrNotFound) {
			continue // index entry for a concurrently deleted post
		}
		if err != nil {
			return nil, false, err
		}
		posts = append(posts, p)
	}
	return posts, hasMore, iter.Error()
}

func (s *Store) getJSON(key []byte, out any) error {
	b, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return json.Unmarshal(b, out)
}
