package consumer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/step2this/social-media-app-sub010/internal/event"
	"github.com/step2this/social-media-app-sub010/internal/eventlog"
)

// recordingHandler captures handled events and fails or panics on demand.
type recordingHandler struct {
	handled []event.Event
	failID  string
	panicID string
}

func (h *recordingHandler) Handle(_ context.Context, ev event.Event) error {
	if ev.ID == h.panicID {
		panic("boom")
	}
	if ev.ID == h.failID {
		return errors.New("handler rejected event")
	}
	h.handled = append(h.handled, ev)
	return nil
}

func itemFor(t *testing.T, seq uint64, ev event.Event) eventlog.Item {
	t.Helper()
	payload, err := ev.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return eventlog.Item{Partition: 0, Seq: seq, Header: ev.EncodeHeader(), Payload: payload}
}

func TestProcessBatchAllSucceed(t *testing.T) {
	h := &recordingHandler{}
	c := New(h, Filter{}, nil)
	items := []eventlog.Item{
		itemFor(t, 1, event.New(event.PostLiked{PostID: "p1", UserID: "u1"})),
		itemFor(t, 2, event.New(event.UserFollowed{SubjectID: "u1", ObjectID: "u2"})),
	}
	report := c.ProcessBatch(context.Background(), items)
	if report.Processed != 2 || report.Filtered != 0 || len(report.Failures) != 0 {
		t.Fatalf("report: %+v", report)
	}
	if len(h.handled) != 2 {
		t.Fatalf("handled: %d", len(h.handled))
	}
}

func TestProcessBatchCapturesMalformedPayload(t *testing.T) {
	h := &recordingHandler{}
	c := New(h, Filter{}, nil)
	good := event.New(event.PostLiked{PostID: "p1", UserID: "u1"})
	items := []eventlog.Item{
		{Seq: 1, Payload: []byte("not json at all")},
		itemFor(t, 2, good),
	}
	report := c.ProcessBatch(context.Background(), items)
	if report.Processed != 1 || len(report.Failures) != 1 {
		t.Fatalf("report: %+v", report)
	}
	f := report.Failures[0]
	if !f.Terminal || f.Seq != 1 {
		t.Fatalf("failure: %+v", f)
	}
	if string(f.Raw) != "not json at all" {
		t.Fatalf("raw payload not captured: %q", f.Raw)
	}
}

func TestProcessBatchIsolatesHandlerFailures(t *testing.T) {
	bad := event.New(event.PostLiked{PostID: "p2", UserID: "u1"})
	h := &recordingHandler{failID: bad.ID}
	c := New(h, Filter{}, nil)
	items := []eventlog.Item{
		itemFor(t, 1, event.New(event.PostLiked{PostID: "p1", UserID: "u1"})),
		itemFor(t, 2, bad),
		itemFor(t, 3, event.New(event.PostLiked{PostID: "p3", UserID: "u1"})),
	}
	report := c.ProcessBatch(context.Background(), items)
	if report.Processed != 2 || len(report.Failures) != 1 {
		t.Fatalf("report: %+v", report)
	}
	f := report.Failures[0]
	if f.Terminal || f.Seq != 2 || f.EventID != bad.ID {
		t.Fatalf("failure: %+v", f)
	}
	if !strings.Contains(f.Reason, "rejected") {
		t.Fatalf("reason: %q", f.Reason)
	}
}

func TestProcessBatchRecoversHandlerPanic(t *testing.T) {
	bad := event.New(event.PostLiked{PostID: "p1", UserID: "u1"})
	h := &recordingHandler{panicID: bad.ID}
	c := New(h, Filter{}, nil)
	report := c.ProcessBatch(context.Background(), []eventlog.Item{itemFor(t, 1, bad)})
	if len(report.Failures) != 1 {
		t.Fatalf("report: %+v", report)
	}
	if !strings.Contains(report.Failures[0].Reason, "panic") {
		t.Fatalf("reason: %q", report.Failures[0].Reason)
	}
}

func TestFilterDropsNonMatching(t *testing.T) {
	filter, err := NewFilter(`event_type == "post.liked"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	h := &recordingHandler{}
	c := New(h, filter, nil)
	items := []eventlog.Item{
		itemFor(t, 1, event.New(event.PostLiked{PostID: "p1", UserID: "u1"})),
		itemFor(t, 2, event.New(event.UserFollowed{SubjectID: "u1", ObjectID: "u2"})),
	}
	report := c.ProcessBatch(context.Background(), items)
	if report.Processed != 1 || report.Filtered != 1 {
		t.Fatalf("report: %+v", report)
	}
	if h.handled[0].Type != event.TypePostLiked {
		t.Fatalf("wrong event passed filter: %s", h.handled[0].Type)
	}
}

func TestFilterOnPayloadFields(t *testing.T) {
	filter, err := NewFilter(`json.payload.postId == "p1"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	h := &recordingHandler{}
	c := New(h, filter, nil)
	items := []eventlog.Item{
		itemFor(t, 1, event.New(event.PostLiked{PostID: "p1", UserID: "u1"})),
		itemFor(t, 2, event.New(event.PostLiked{PostID: "p2", UserID: "u1"})),
	}
	report := c.ProcessBatch(context.Background(), items)
	if report.Processed != 1 || report.Filtered != 1 {
		t.Fatalf("report: %+v", report)
	}
}

func TestNewFilterRejectsBadExpression(t *testing.T) {
	if _, err := NewFilter("this is not cel ==="); err == nil {
		t.Fatalf("expected compile error")
	}
}

func TestEmptyFilterMatchesEverything(t *testing.T) {
	filter, err := NewFilter("   ")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if !filter.Eval(0, 1, nil, []byte("anything"), "t", "id") {
		t.Fatalf("disabled filter must match")
	}
}
