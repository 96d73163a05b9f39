package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// ErrNotFound reports a missing dead-letter entry.
var ErrNotFound = errors.New("deadletter: not found")

// Entry is a message parked after exhausting its retry budget.
type Entry struct {
	ID       string    `json:"id"`
	Payload  []byte    `json:"payload"`
	Attempts uint32    `json:"attempts"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failedAt"`
}

// Queue is a per-group dead-letter store. Entries stay until inspected and
// requeued or purged by an operator.
type Queue struct {
	db     *pebblestore.DB
	ns     string
	group  string
	logger logpkg.Logger
}

// New opens the dead-letter queue for a consumer group.
func New(db *pebblestore.DB, namespace, group string, logger logpkg.Logger) *Queue {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Queue{db: db, ns: namespace, group: group, logger: logger.WithComponent("deadletter")}
}

func (q *Queue) key(id string) []byte {
	return []byte("sg/" + q.ns + "/dlq/" + q.group + "/" + id)
}

func (q *Queue) prefix() []byte {
	return []byte("sg/" + q.ns + "/dlq/" + q.group + "/")
}

// Send parks an entry. Re-sending the same ID overwrites the previous entry.
func (q *Queue) Send(ctx context.Context, e Entry) error {
	if e.FailedAt.IsZero() {
		e.FailedAt = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := q.db.Set(q.key(e.ID), b); err != nil {
		return err
	}
	q.logger.Warn("dead-lettered message",
		logpkg.Str("id", e.ID),
		logpkg.Str("group", q.group),
		logpkg.Int("attempts", int(e.Attempts)),
		logpkg.Str("reason", e.Reason))
	return nil
}

// List returns up to max entries in ID order. max <= 0 means all.
func (q *Queue) List(max int) ([]Entry, error) {
	prefix := q.prefix()
	upper := append(append([]byte(nil), prefix...), 0xff)
	iter, err := q.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	for ok := iter.First(); ok; ok = iter.Next() {
		if max > 0 && len(entries) == max {
			break
		}
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			q.logger.Error("corrupt dead-letter entry", logpkg.Str("key", string(iter.Key())), logpkg.Err(err))
			continue
		}
		entries = append(entries, e)
	}
	return entries, iter.Error()
}

// Take removes and returns one entry so the caller can requeue it.
func (q *Queue) Take(ctx context.Context, id string) (Entry, error) {
	raw, err := q.db.Get(q.key(id))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, err
	}
	if err := q.db.Delete(q.key(id)); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Purge drops an entry without requeueing it.
func (q *Queue) Purge(ctx context.Context, id string) error {
	_, err := q.db.Get(q.key(id))
	if errors.Is(err, pebblestore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return q.db.Delete(q.key(id))
}
