package cache

import (
	"encoding/json"
	"errors"
	"time"

	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// ErrNotFound reports a missing cache document.
var ErrNotFound = errors.New("cache: not found")

// DefaultPreviewLimit bounds per-author preview lists.
const DefaultPreviewLimit = 10

// PostSummary is the denormalized post document kept for fast reads.
type PostSummary struct {
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	LikeCount int64     `json:"likeCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileStats is the denormalized per-user counter document.
type ProfileStats struct {
	UserID     string `json:"userId"`
	Followers  int64  `json:"followers"`
	Following  int64  `json:"following"`
	LikesGiven int64  `json:"likesGiven"`
}

// envelope wraps every cached document with its write time for
// last-writer-wins conflict resolution on redelivery.
type envelope struct {
	UpdatedAt time.Time       `json:"updatedAt"`
	Doc       json.RawMessage `json:"doc"`
}

// Cache is the read-optimized document layer fed by the stream consumer.
// All writes carry the source event's timestamp; stale writes lose.
type Cache struct {
	db           *pebblestore.DB
	ns           string
	previewLimit int
	logger       logpkg.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithPreviewLimit overrides the preview list bound.
func WithPreviewLimit(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.previewLimit = n
		}
	}
}

// New builds a Cache over db in the given namespace.
func New(db *pebblestore.DB, namespace string, logger logpkg.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	c := &Cache{db: db, ns: namespace, previewLimit: DefaultPreviewLimit, logger: logger.WithComponent("cache")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) keyPost(postID string) []byte {
	return []byte("sg/" + c.ns + "/cache/post/" + postID)
}

func (c *Cache) keyStats(userID string) []byte {
	return []byte("sg/" + c.ns + "/cache/stats/" + userID)
}

func (c *Cache) keyPreview(authorID string) []byte {
	return []byte("sg/" + c.ns + "/cache/preview/" + authorID)
}

// put writes doc at key unless a newer write is already there.
func (c *Cache) put(key []byte, doc any, at time.Time) error {
	if cur, err := c.db.Get(key); err == nil {
		var env envelope
		if json.Unmarshal(cur, &env) == nil && env.UpdatedAt.After(at) {
			c.logger.Debug("dropping stale cache write", logpkg.Str("key", string(key)))
			return nil
		}
	} else if !errors.Is(err, pebblestore.ErrNotFound) {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	b, err := json.Marshal(envelope{UpdatedAt: at, Doc: raw})
	if err != nil {
		return err
	}
	return c.db.Set(key, b)
}

func (c *Cache) get(key []byte, out any) error {
	b, err := c.db.Get(key)
	if err != nil {
		if errors.Is(err, pebblestore.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	return json.Unmarshal(env.Doc, out)
}

// UpsertPost writes a post document, last writer wins.
func (c *Cache) UpsertPost(p PostSummary, at time.Time) error {
	return c.put(c.keyPost(p.PostID), p, at)
}

// GetPost loads a cached post document.
func (c *Cache) GetPost(postID string) (PostSummary, error) {
	var p PostSummary
	if err := c.get(c.keyPost(postID), &p); err != nil {
		return PostSummary{}, err
	}
	return p, nil
}

// DeletePost removes a post document. Missing documents are a no-op.
func (c *Cache) DeletePost(postID string) error {
	err := c.db.Delete(c.keyPost(postID))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return nil
	}
	return err
}

// AdjustPostLikes shifts the cached like count by delta, clamped at zero.
func (c *Cache) AdjustPostLikes(postID string, delta int64, at time.Time) error {
	p, err := c.GetPost(postID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	p.LikeCount += delta
	if p.LikeCount < 0 {
		p.LikeCount = 0
	}
	return c.put(c.keyPost(postID), p, at)
}

// UpsertProfileStats writes a per-user stats document, last writer wins.
func (c *Cache) UpsertProfileStats(s ProfileStats, at time.Time) error {
	return c.put(c.keyStats(s.UserID), s, at)
}

// GetProfileStats loads a cached stats document.
func (c *Cache) GetProfileStats(userID string) (ProfileStats, error) {
	var s ProfileStats
	if err := c.get(c.keyStats(userID), &s); err != nil {
		return ProfileStats{}, err
	}
	return s, nil
}

// PrependPreview pushes a post onto the front of the author's preview list,
// dropping duplicates and trimming to the configured bound.
func (c *Cache) PrependPreview(authorID string, p PostSummary, at time.Time) error {
	list, err := c.GetPreview(authorID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	next := make([]PostSummary, 0, len(list)+1)
	next = append(next, p)
	for _, cur := range list {
		if cur.PostID == p.PostID {
			continue
		}
		next = append(next, cur)
	}
	if len(next) > c.previewLimit {
		next = next[:c.previewLimit]
	}
	return c.put(c.keyPreview(authorID), next, at)
}

// RemoveFromPreview drops a post from the author's preview list.
func (c *Cache) RemoveFromPreview(authorID, postID string, at time.Time) error {
	list, err := c.GetPreview(authorID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	next := list[:0]
	for _, cur := range list {
		if cur.PostID != postID {
			next = append(next, cur)
		}
	}
	return c.put(c.keyPreview(authorID), next, at)
}

// GetPreview loads the author's preview list, newest first.
func (c *Cache) GetPreview(authorID string) ([]PostSummary, error) {
	var list []PostSummary
	if err := c.get(c.keyPreview(authorID), &list); err != nil {
		return nil, err
	}
	return list, nil
}
