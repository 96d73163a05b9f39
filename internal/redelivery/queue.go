package redelivery

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// Item is a payload scheduled for redelivery.
type Item struct {
	ID        string    `json:"id"`
	Payload   []byte    `json:"payload"`
	Attempts  uint32    `json:"attempts"`
	LastError string    `json:"lastError,omitempty"`
	FirstSeen time.Time `json:"firstSeen"`
}

// Queue is a delay-indexed redelivery schedule. Keys sort by ready time so
// due items are a single prefix scan from the front.
type Queue struct {
	db     *pebblestore.DB
	ns     string
	group  string
	policy RetryPolicy
	logger logpkg.Logger
}

// New opens the redelivery queue for a consumer group.
func New(db *pebblestore.DB, namespace, group string, policy RetryPolicy, logger logpkg.Logger) *Queue {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Queue{db: db, ns: namespace, group: group, policy: policy, logger: logger.WithComponent("redelivery")}
}

// Policy returns the queue's retry policy.
func (q *Queue) Policy() RetryPolicy { return q.policy }

func (q *Queue) prefix() []byte {
	return []byte("sg/" + q.ns + "/retry/" + q.group + "/")
}

func (q *Queue) key(readyAtMs int64, id string) []byte {
	k := q.prefix()
	k = append(k, make([]byte, 8)...)
	binary.BigEndian.PutUint64(k[len(k)-8:], uint64(readyAtMs))
	return append(k, id...)
}

// Schedule enqueues item to become due after the policy backoff for its
// attempt count. The returned time is when the item becomes due.
func (q *Queue) Schedule(ctx context.Context, item Item, now time.Time) (time.Time, error) {
	if item.FirstSeen.IsZero() {
		item.FirstSeen = now.UTC()
	}
	delay := ComputeBackoff(q.policy, item.Attempts)
	readyAt := now.Add(delay)
	b, err := json.Marshal(item)
	if err != nil {
		return time.Time{}, err
	}
	if err := q.db.Set(q.key(readyAt.UnixMilli(), item.ID), b); err != nil {
		return time.Time{}, err
	}
	q.logger.Debug("scheduled redelivery",
		logpkg.Str("id", item.ID),
		logpkg.Int("attempts", int(item.Attempts)),
		logpkg.Dur("delay", delay))
	return readyAt, nil
}

// Due removes and returns up to max items whose ready time has passed.
func (q *Queue) Due(ctx context.Context, now time.Time, max int) ([]Item, error) {
	prefix := q.prefix()
	upper := q.key(now.UnixMilli()+1, "")
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	batch := q.db.NewBatch()
	defer batch.Close()

	var items []Item
	for ok := iter.First(); ok; ok = iter.Next() {
		if max > 0 && len(items) == max {
			break
		}
		var item Item
		if err := json.Unmarshal(iter.Value(), &item); err != nil {
			q.logger.Error("corrupt redelivery entry", logpkg.Str("key", string(iter.Key())), logpkg.Err(err))
			_ = batch.Delete(append([]byte(nil), iter.Key()...), nil)
			continue
		}
		items = append(items, item)
		_ = batch.Delete(append([]byte(nil), iter.Key()...), nil)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	if batch.Count() > 0 {
		if err := q.db.CommitBatch(ctx, batch); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// Pending counts scheduled items, due or not.
func (q *Queue) Pending() (int, error) {
	prefix := q.prefix()
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	return n, iter.Error()
}
