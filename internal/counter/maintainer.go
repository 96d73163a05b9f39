package counter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/step2this/social-media-app-sub010/internal/store"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// CounterStore is the adjustment surface the maintainer writes through.
type CounterStore interface {
	AtomicAdd(entity, counter string, delta int64) error
}

// Stats counts maintainer outcomes. Read with the atomic accessors.
type Stats struct {
	Applied  atomic.Int64
	Skipped  atomic.Int64
	Modified atomic.Int64
	Failed   atomic.Int64
}

// Maintainer folds relationship-row change records into denormalized
// counters. Every countable change becomes exactly two independent counter
// adjustments; a failure on one side does not roll back the other.
type Maintainer struct {
	store  CounterStore
	logger logpkg.Logger
	stats  Stats
}

// New builds a Maintainer writing through cs.
func New(cs CounterStore, logger logpkg.Logger) *Maintainer {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Maintainer{store: cs, logger: logger.WithComponent("counter")}
}

// Stats exposes the outcome counters.
func (m *Maintainer) Stats() *Stats { return &m.stats }

// adjustment is one (entity, counter, delta) target derived from a change.
type adjustment struct {
	entity  string
	counter string
	delta   int64
}

// targets maps a change record to its two counter adjustments. A nil slice
// with nil error means the change is intentionally not counted.
func targets(rec store.ChangeRecord) ([]adjustment, error) {
	var delta int64
	switch rec.Op {
	case store.OpInsert:
		delta = 1
	case store.OpRemove:
		delta = -1
	case store.OpModify:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown op %q", rec.Op)
	}

	switch {
	case strings.HasPrefix(rec.SK, "FOLLOWS#"):
		subjectKind, subjectID, err := store.ParseEntityKey(rec.PK)
		if err != nil {
			return nil, err
		}
		objectKind, objectID, err := store.ParseEntityKey(strings.TrimPrefix(rec.SK, "FOLLOWS#"))
		if err != nil {
			return nil, err
		}
		if subjectKind != store.KindUser || objectKind != store.KindUser {
			return nil, fmt.Errorf("follow edge between non-users: %s -> %s", rec.PK, rec.SK)
		}
		return []adjustment{
			{entity: store.EntityKey(store.KindUser, subjectID), counter: store.CounterFollowing, delta: delta},
			{entity: store.EntityKey(store.KindUser, objectID), counter: store.CounterFollowers, delta: delta},
		}, nil

	case strings.HasPrefix(rec.SK, "LIKED_BY#"):
		postKind, postID, err := store.ParseEntityKey(rec.PK)
		if err != nil {
			return nil, err
		}
		userKind, userID, err := store.ParseEntityKey(strings.TrimPrefix(rec.SK, "LIKED_BY#"))
		if err != nil {
			return nil, err
		}
		if postKind != store.KindPost || userKind != store.KindUser {
			return nil, fmt.Errorf("like edge with wrong kinds: %s -> %s", rec.PK, rec.SK)
		}
		return []adjustment{
			{entity: store.EntityKey(store.KindPost, postID), counter: store.CounterLikes, delta: delta},
			{entity: store.EntityKey(store.KindUser, userID), counter: store.CounterLikesGiven, delta: delta},
		}, nil
	}

	return nil, fmt.Errorf("not a relationship row: sk=%q", rec.SK)
}

// Apply folds one change record into counters. Changes that are not
// countable (MODIFY, non-relationship rows, malformed keys) are skipped with
// a log line and a nil return; only storage failures surface as errors.
func (m *Maintainer) Apply(ctx context.Context, rec store.ChangeRecord) error {
	if rec.Op == store.OpModify {
		m.stats.Modified.Add(1)
		m.logger.Debug("ignoring modify", logpkg.Str("pk", rec.PK), logpkg.Str("sk", rec.SK))
		return nil
	}
	adjs, err := targets(rec)
	if err != nil {
		m.stats.Skipped.Add(1)
		m.logger.Warn("skipping uncountable change",
			logpkg.Str("pk", rec.PK),
			logpkg.Str("sk", rec.SK),
			logpkg.Str("op", string(rec.Op)),
			logpkg.Err(err))
		return nil
	}

	var errs []error
	for _, adj := range adjs {
		if err := m.store.AtomicAdd(adj.entity, adj.counter, adj.delta); err != nil {
			errs = append(errs, fmt.Errorf("adjust %s/%s by %d: %w", adj.entity, adj.counter, adj.delta, err))
		}
	}
	if len(errs) > 0 {
		m.stats.Failed.Add(1)
		return errors.Join(errs...)
	}
	m.stats.Applied.Add(1)
	return nil
}

// ApplyPayload decodes a raw change-feed payload and applies it. Malformed
// payloads are skipped with a log line, never retried.
func (m *Maintainer) ApplyPayload(ctx context.Context, payload []byte) error {
	rec, err := store.UnmarshalChange(payload)
	if err != nil {
		m.stats.Skipped.Add(1)
		m.logger.Warn("skipping malformed change payload",
			logpkg.Int("bytes", len(payload)),
			logpkg.Err(err))
		return nil
	}
	return m.Apply(ctx, rec)
}

// ApplyBatch applies each record independently. One bad record never blocks
// the rest; the first storage error is returned after the whole batch ran.
func (m *Maintainer) ApplyBatch(ctx context.Context, recs []store.ChangeRecord) error {
	var errs []error
	for _, rec := range recs {
		if err := m.Apply(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
