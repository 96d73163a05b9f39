package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/step2this/social-media-app-sub010/internal/event"
	"github.com/step2this/social-media-app-sub010/internal/eventlog"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// Handler processes one decoded event.
type Handler interface {
	Handle(ctx context.Context, ev event.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev event.Event) error

func (f HandlerFunc) Handle(ctx context.Context, ev event.Event) error { return f(ctx, ev) }

// Failure describes one record the batch could not process. Raw carries the
// undecodable payload so it survives into the dead-letter queue verbatim.
type Failure struct {
	Seq      uint64          `json:"seq"`
	EventID  string          `json:"eventId,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
	Reason   string          `json:"reason"`
	Terminal bool            `json:"terminal"`
	Payload  []byte          `json:"-"`
}

// Report is the outcome of one batch: how many records landed, how many the
// filter dropped, and exactly which records failed.
type Report struct {
	Processed int
	Filtered  int
	Failures  []Failure
}

// Consumer drains event batches into a handler, isolating per-record
// failures so one poison record never stalls the stream.
type Consumer struct {
	handler Handler
	filter  Filter
	logger  logpkg.Logger
}

// New builds a Consumer around handler.
func New(handler Handler, filter Filter, logger logpkg.Logger) *Consumer {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Consumer{handler: handler, filter: filter, logger: logger.WithComponent("consumer")}
}

// ProcessBatch runs every record through decode, filter, and handler.
// Malformed payloads are terminal failures carrying the raw bytes; handler
// errors are retryable. The report lists each failure with its sequence so
// the caller can route retries precisely.
func (c *Consumer) ProcessBatch(ctx context.Context, items []eventlog.Item) Report {
	start := time.Now()
	var report Report
	for _, item := range items {
		ev, err := event.Unmarshal(item.Payload)
		if err != nil {
			report.Failures = append(report.Failures, Failure{
				Seq:      item.Seq,
				Raw:      append(json.RawMessage(nil), item.Payload...),
				Reason:   err.Error(),
				Terminal: true,
				Payload:  item.Payload,
			})
			c.logger.Warn("malformed event payload",
				logpkg.Uint64("seq", item.Seq),
				logpkg.Int("bytes", len(item.Payload)),
				logpkg.Err(err))
			continue
		}
		if !c.filter.Eval(int(item.Partition), item.Seq, item.Header, item.Payload, string(ev.Type), ev.ID) {
			report.Filtered++
			continue
		}
		if err := c.handle(ctx, ev); err != nil {
			report.Failures = append(report.Failures, Failure{
				Seq:     item.Seq,
				EventID: ev.ID,
				Reason:  err.Error(),
				Payload: item.Payload,
			})
			c.logger.Warn("event handler failed",
				logpkg.Uint64("seq", item.Seq),
				logpkg.Str("event_id", ev.ID),
				logpkg.Str("event_type", string(ev.Type)),
				logpkg.Err(err))
			continue
		}
		report.Processed++
	}
	c.logger.Debug("processed batch",
		logpkg.Operation("processBatch"),
		logpkg.Int("items", len(items)),
		logpkg.Int("processed", report.Processed),
		logpkg.Int("filtered", report.Filtered),
		logpkg.Int("failed", len(report.Failures)),
		logpkg.Dur("duration", time.Since(start)))
	return report
}

// ProcessPayload redelivers one previously failed payload.
func (c *Consumer) ProcessPayload(ctx context.Context, payload []byte) error {
	ev, err := event.Unmarshal(payload)
	if err != nil {
		return err
	}
	return c.handle(ctx, ev)
}

// handle shields the loop from handler panics; a panicking handler is a
// failed record, not a dead partition.
func (c *Consumer) handle(ctx context.Context, ev event.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, ev)
}
