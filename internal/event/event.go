package event

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable fact describing something that happened on the write
// path. ID doubles as the partition and dedup key: a retried publish of the
// same logical event must carry the same ID.
type Event struct {
	ID         string
	Type       Type
	OccurredAt time.Time
	Payload    Payload
}

// New mints an event for a payload with a fresh UUID and the current time.
func New(payload Payload) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       payload.EventType(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Validate checks the event against its schema. A nil return means the event
// is safe to serialize and publish.
func (e Event) Validate() error {
	if e.ID == "" {
		return &ValidationError{Reason: "missing event id"}
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return &ValidationError{EventID: e.ID, Reason: "event id is not a UUID"}
	}
	if e.Payload == nil {
		return &ValidationError{EventID: e.ID, Reason: "missing payload"}
	}
	if e.Type != e.Payload.EventType() {
		return &ValidationError{EventID: e.ID, Reason: fmt.Sprintf("type %q does not match payload type %q", e.Type, e.Payload.EventType())}
	}
	if e.OccurredAt.IsZero() {
		return &ValidationError{EventID: e.ID, Reason: "missing occurredAt"}
	}
	if err := e.Payload.validate(); err != nil {
		return &ValidationError{EventID: e.ID, Reason: err.Error()}
	}
	return nil
}

// envelope is the wire form. Payload stays raw on decode until the type is
// known.
type envelope struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// Marshal serializes the event envelope as JSON.
func (e Event) Marshal() ([]byte, error) {
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("event: marshal payload: %w", err)
	}
	return json.Marshal(envelope{ID: e.ID, Type: e.Type, OccurredAt: e.OccurredAt, Payload: raw})
}

// Unmarshal decodes an envelope, dispatching the payload by type.
func Unmarshal(b []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Event{}, &ValidationError{Reason: fmt.Sprintf("malformed envelope: %v", err)}
	}
	payload, err := newPayload(env.Type)
	if err != nil {
		return Event{}, &ValidationError{EventID: env.ID, Reason: err.Error()}
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return Event{}, &ValidationError{EventID: env.ID, Reason: fmt.Sprintf("malformed %s payload: %v", env.Type, err)}
	}
	return Event{ID: env.ID, Type: env.Type, OccurredAt: env.OccurredAt, Payload: deref(payload)}, nil
}

// Header encoding for log records: 8-byte big-endian ms timestamp followed by
// the event ID bytes. The timestamp prefix feeds retention trims.

// EncodeHeader builds a record header for the event.
func (e Event) EncodeHeader() []byte {
	out := make([]byte, 8, 8+len(e.ID))
	binary.BigEndian.PutUint64(out, uint64(e.OccurredAt.UnixMilli()))
	return append(out, e.ID...)
}

// HeaderTimestamp extracts the ms timestamp from a record header.
func HeaderTimestamp(header []byte) (int64, bool) {
	if len(header) < 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(header[:8])), true
}

// HeaderEventID extracts the event ID from a record header.
func HeaderEventID(header []byte) (string, bool) {
	if len(header) <= 8 {
		return "", false
	}
	return string(header[8:]), true
}
