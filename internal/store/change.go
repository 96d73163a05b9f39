package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/step2this/social-media-app-sub010/internal/eventlog"
)

// Change feed operation kinds, mirroring the storage engine's row-level
// change stream.
type Op string

const (
	OpInsert Op = "INSERT"
	OpRemove Op = "REMOVE"
	OpModify Op = "MODIFY"
)

// Relation names carried on relationship rows.
const (
	RelationFollow = "FOLLOW"
	RelationLike   = "LIKE"
)

// ChangeRecord describes one row-level mutation on the change feed.
type ChangeRecord struct {
	Op         Op        `json:"op"`
	PK         string    `json:"pk"`
	SK         string    `json:"sk"`
	Relation   string    `json:"relation,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Marshal encodes the change record for the feed.
func (c ChangeRecord) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalChange decodes a change-feed payload.
func UnmarshalChange(b []byte) (ChangeRecord, error) {
	var c ChangeRecord
	if err := json.Unmarshal(b, &c); err != nil {
		return ChangeRecord{}, fmt.Errorf("decode change record: %w", err)
	}
	if c.Op == "" || c.PK == "" {
		return ChangeRecord{}, fmt.Errorf("decode change record: missing op or pk")
	}
	return c, nil
}

// ChangeFeed receives row-level mutations as they are committed.
type ChangeFeed interface {
	Emit(ctx context.Context, rec ChangeRecord) error
}

// TopicFeed publishes change records to an event log topic, keyed by the
// row's partition key so all changes to one row stay ordered.
type TopicFeed struct {
	Topic *eventlog.Topic
}

// Emit implements ChangeFeed.
func (f TopicFeed) Emit(ctx context.Context, rec ChangeRecord) error {
	payload, err := rec.Marshal()
	if err != nil {
		return err
	}
	header := make([]byte, 8)
	binary.BigEndian.PutUint64(header, uint64(rec.OccurredAt.UnixMilli()))
	_, err = f.Topic.AppendBatch(ctx, []eventlog.KeyedRecord{{
		PartitionKey: rec.PK,
		Header:       header,
		Payload:      payload,
	}})
	return err
}

// NopFeed drops all change records. Used where no maintainer is attached.
type NopFeed struct{}

func (NopFeed) Emit(context.Context, ChangeRecord) error { return nil }
