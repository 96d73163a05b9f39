package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/step2this/social-media-app-sub010/internal/event"
	"github.com/step2this/social-media-app-sub010/internal/eventlog"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// DefaultChunkSize is the transport's per-call record cap.
const DefaultChunkSize = 500

// EventLog is the write-side transport contract. AppendBatch returns one
// error slot per record (nil on success) plus a call-level error when the
// whole submission failed.
type EventLog interface {
	AppendBatch(ctx context.Context, recs []eventlog.KeyedRecord) ([]error, error)
}

// TopicLog adapts an eventlog.Topic to the EventLog contract. The local log
// commits a chunk atomically per partition, so per-record errors are all nil
// on success and the call-level error covers failures.
type TopicLog struct {
	Topic *eventlog.Topic
}

// AppendBatch implements EventLog.
func (t TopicLog) AppendBatch(ctx context.Context, recs []eventlog.KeyedRecord) ([]error, error) {
	if _, err := t.Topic.AppendBatch(ctx, recs); err != nil {
		return nil, err
	}
	return make([]error, len(recs)), nil
}

// PublishError wraps a transport failure for a single event.
type PublishError struct {
	EventID string
	Err     error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish event %s: %v", e.EventID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// FailedEvent pairs an event with the reason it was not shipped, so the
// caller can retry exactly that subset.
type FailedEvent struct {
	Event event.Event
	Err   error
}

// BatchResult is the first-class partial-failure shape of PublishBatch.
type BatchResult struct {
	SuccessCount int
	FailedCount  int
	FailedEvents []FailedEvent
}

// Publisher validates and batches domain events into the event log.
type Publisher struct {
	log       EventLog
	logger    logpkg.Logger
	chunkSize int
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithChunkSize overrides the transport chunk cap (mainly for tests).
func WithChunkSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// New returns a Publisher writing to sink.
func New(sink EventLog, logger logpkg.Logger, opts ...Option) *Publisher {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	p := &Publisher{log: sink, logger: logger.WithComponent("publisher"), chunkSize: DefaultChunkSize}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish validates and ships a single event, keyed by its event ID so
// retries of the same logical event land on the same partition.
func (p *Publisher) Publish(ctx context.Context, ev event.Event) error {
	start := time.Now()
	if err := ev.Validate(); err != nil {
		return err
	}
	payload, err := ev.Marshal()
	if err != nil {
		return &event.ValidationError{EventID: ev.ID, Reason: err.Error()}
	}
	perRecord, err := p.log.AppendBatch(ctx, []eventlog.KeyedRecord{{
		PartitionKey: ev.ID,
		Header:       ev.EncodeHeader(),
		Payload:      payload,
	}})
	if err == nil && len(perRecord) == 1 && perRecord[0] != nil {
		err = perRecord[0]
	}
	if err != nil {
		return &PublishError{EventID: ev.ID, Err: err}
	}
	p.logger.Debug("published event",
		logpkg.Operation("publish"),
		logpkg.Str("event_id", ev.ID),
		logpkg.Str("event_type", string(ev.Type)),
		logpkg.Dur("duration", time.Since(start)))
	return nil
}

// PublishBatch validates every event up front (fail fast, before any network
// I/O), then ships the batch in chunks of at most the transport cap. Chunk
// failures become per-event entries in the result; PublishBatch itself only
// errors on invalid input, never on transport trouble.
func (p *Publisher) PublishBatch(ctx context.Context, events []event.Event) (BatchResult, error) {
	start := time.Now()
	if len(events) == 0 {
		return BatchResult{}, nil
	}

	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return BatchResult{}, err
		}
	}

	recs := make([]eventlog.KeyedRecord, len(events))
	for i, ev := range events {
		payload, err := ev.Marshal()
		if err != nil {
			return BatchResult{}, &event.ValidationError{EventID: ev.ID, Reason: err.Error()}
		}
		recs[i] = eventlog.KeyedRecord{PartitionKey: ev.ID, Header: ev.EncodeHeader(), Payload: payload}
	}

	var result BatchResult
	for off := 0; off < len(recs); off += p.chunkSize {
		end := off + p.chunkSize
		if end > len(recs) {
			end = len(recs)
		}
		chunkEvents := events[off:end]
		perRecord, err := p.log.AppendBatch(ctx, recs[off:end])
		if err != nil {
			// whole chunk failed; every event in it is retryable by the caller
			for _, ev := range chunkEvents {
				result.FailedEvents = append(result.FailedEvents, FailedEvent{Event: ev, Err: &PublishError{EventID: ev.ID, Err: err}})
			}
			result.FailedCount += len(chunkEvents)
			continue
		}
		for i, ev := range chunkEvents {
			if i < len(perRecord) && perRecord[i] != nil {
				result.FailedEvents = append(result.FailedEvents, FailedEvent{Event: ev, Err: &PublishError{EventID: ev.ID, Err: perRecord[i]}})
				result.FailedCount++
				continue
			}
			result.SuccessCount++
		}
	}

	p.logger.Info("published batch",
		logpkg.Operation("publishBatch"),
		logpkg.Int("events", len(events)),
		logpkg.Int("success", result.SuccessCount),
		logpkg.Int("failed", result.FailedCount),
		logpkg.Dur("duration", time.Since(start)))
	return result, nil
}
