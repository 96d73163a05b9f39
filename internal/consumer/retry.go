package consumer

import (
	"context"
	"strconv"
	"time"

	"github.com/step2this/social-media-app-sub010/internal/deadletter"
	"github.com/step2this/social-media-app-sub010/internal/redelivery"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// Router moves failed records onto the redelivery schedule until their
// budget runs out, then parks them in the dead-letter queue. The budget
// counts redeliveries, not total deliveries: with budget 2 a record gets its
// initial delivery plus two redeliveries, so it reaches the dead-letter
// queue after its third failed delivery. Terminal failures skip redelivery
// entirely.
type Router struct {
	budget  uint32
	retries *redelivery.Queue
	dlq     *deadletter.Queue
	logger  logpkg.Logger
}

// NewRouter builds a Router with the given redelivery budget.
func NewRouter(budget uint32, retries *redelivery.Queue, dlq *deadletter.Queue, logger logpkg.Logger) *Router {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Router{budget: budget, retries: retries, dlq: dlq, logger: logger.WithComponent("router")}
}

// Route decides the fate of one failed delivery. attempts counts failed
// deliveries including this one; the record is dead-lettered once attempts
// exceeds the budget.
func (r *Router) Route(ctx context.Context, id string, payload []byte, attempts uint32, reason string, terminal bool, now time.Time) error {
	if terminal || attempts > r.budget {
		return r.dlq.Send(ctx, deadletter.Entry{
			ID:       id,
			Payload:  payload,
			Attempts: attempts,
			Reason:   reason,
			FailedAt: now.UTC(),
		})
	}
	_, err := r.retries.Schedule(ctx, redelivery.Item{
		ID:        id,
		Payload:   payload,
		Attempts:  attempts,
		LastError: reason,
	}, now)
	return err
}

// RouteFailures applies Route to every failure in a batch report. IDs fall
// back to the record sequence when the payload never decoded.
func (r *Router) RouteFailures(ctx context.Context, failures []Failure, now time.Time) error {
	for _, f := range failures {
		id := f.EventID
		if id == "" {
			id = seqID(f.Seq)
		}
		if err := r.Route(ctx, id, f.Payload, 1, f.Reason, f.Terminal, now); err != nil {
			return err
		}
	}
	return nil
}

// RunDue drains due redeliveries through the consumer, bumping attempts on
// repeat failures. Returns how many items were attempted.
func (r *Router) RunDue(ctx context.Context, c *Consumer, now time.Time, max int) (int, error) {
	items, err := r.retries.Due(ctx, now, max)
	if err != nil {
		return 0, err
	}
	for _, item := range items {
		if err := c.ProcessPayload(ctx, item.Payload); err != nil {
			if routeErr := r.Route(ctx, item.ID, item.Payload, item.Attempts+1, err.Error(), false, now); routeErr != nil {
				return len(items), routeErr
			}
			continue
		}
		r.logger.Info("redelivery succeeded",
			logpkg.Str("id", item.ID),
			logpkg.Int("attempts", int(item.Attempts)))
	}
	return len(items), nil
}

func seqID(seq uint64) string {
	return "seq-" + strconv.FormatUint(seq, 10)
}
