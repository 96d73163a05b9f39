package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/step2this/social-media-app-sub010/internal/consumer"
	"github.com/step2this/social-media-app-sub010/internal/deadletter"
	"github.com/step2this/social-media-app-sub010/internal/event"
	"github.com/step2this/social-media-app-sub010/internal/eventlog"
	"github.com/step2this/social-media-app-sub010/internal/runtime"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

const (
	retrySweepInterval = 250 * time.Millisecond
	retentionInterval  = time.Minute
	errorPause         = 500 * time.Millisecond

	// counterApplyAttempts bounds storage retries for one change record
	// before the maintainer parks it and moves on.
	counterApplyAttempts = 3
)

// Pipeline runs the asynchronous loops of one node: per-partition stream
// consumers over the events topic, per-partition counter maintainers over
// the change feed, the redelivery sweeper, and log retention.
type Pipeline struct {
	rt         *runtime.Runtime
	cons       *consumer.Consumer
	router     *consumer.Router
	counterDLQ *deadletter.Queue
	logger     logpkg.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the pipeline for a runtime.
func New(rt *runtime.Runtime) (*Pipeline, error) {
	cons, err := rt.NewConsumer()
	if err != nil {
		return nil, err
	}
	cfg := rt.Config()
	return &Pipeline{
		rt:         rt,
		cons:       cons,
		router:     rt.NewRouter(),
		counterDLQ: deadletter.New(rt.DB(), cfg.Namespace, cfg.Consumer.Group+"-counters", rt.Logger()),
		logger:     rt.Logger().WithComponent("pipeline"),
	}, nil
}

// CounterDeadLetters returns the maintainer's dead-letter queue.
func (p *Pipeline) CounterDeadLetters() *deadletter.Queue { return p.counterDLQ }

// Start launches every loop. Call Stop to shut down.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	events := p.rt.Events()
	for i := 0; i < events.Partitions(); i++ {
		part := events.Partition(uint32(i))
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.consumeLoop(ctx, part)
		}()
	}

	feed := p.rt.ChangeFeed()
	for i := 0; i < feed.Partitions(); i++ {
		part := feed.Partition(uint32(i))
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.maintainLoop(ctx, part)
		}()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.retryLoop(ctx)
	}()

	cfg := p.rt.Config()
	if cfg.Log.RetentionMaxAgeMs > 0 || cfg.Log.RetentionMaxBytes > 0 {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.retentionLoop(ctx)
		}()
	}

	p.logger.Info("pipeline started",
		logpkg.Int("event_partitions", events.Partitions()),
		logpkg.Int("feed_partitions", feed.Partitions()))
}

// Stop cancels the loops and waits for them to drain.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
	p.logger.Info("pipeline stopped")
}

// consumeLoop drains one events partition: fetch, process, route failures,
// commit. The cursor only advances after failures are safely routed, so a
// crash re-reads the batch instead of losing it.
func (p *Pipeline) consumeLoop(ctx context.Context, log *eventlog.Log) {
	cfg := p.rt.Config()
	group := cfg.Consumer.Group
	maxWait := time.Duration(cfg.Consumer.FetchMaxWaitMs) * time.Millisecond
	after, _ := log.GetCursor(group)

	for ctx.Err() == nil {
		items := log.FetchBatch(ctx, after, cfg.Consumer.FetchMaxRecords, maxWait)
		if len(items) == 0 {
			continue
		}
		report := p.cons.ProcessBatch(ctx, items)
		if err := p.router.RouteFailures(ctx, report.Failures, time.Now()); err != nil {
			p.logger.Error("routing batch failures",
				logpkg.Uint64("partition", uint64(log.Partition())),
				logpkg.Err(err))
			p.pause(ctx)
			continue
		}
		after = eventlog.TokenFromSeq(items[len(items)-1].Seq)
		if err := log.CommitCursor(group, after); err != nil {
			p.logger.Error("committing cursor",
				logpkg.Uint64("partition", uint64(log.Partition())),
				logpkg.Err(err))
			p.pause(ctx)
		}
	}
}

// maintainLoop folds one change-feed partition into counters. A record whose
// adjustments keep failing is parked in the counters dead-letter queue so the
// rest of the partition keeps flowing; the cursor only stops short when even
// parking fails.
func (p *Pipeline) maintainLoop(ctx context.Context, log *eventlog.Log) {
	cfg := p.rt.Config()
	group := cfg.Consumer.Group + "-counters"
	maxWait := time.Duration(cfg.Consumer.FetchMaxWaitMs) * time.Millisecond
	maintainer := p.rt.Maintainer()
	after, _ := log.GetCursor(group)

	for ctx.Err() == nil {
		items := log.FetchBatch(ctx, after, cfg.Consumer.FetchMaxRecords, maxWait)
		if len(items) == 0 {
			continue
		}
		applied, err := p.maintainBatch(ctx, maintainer, log.Partition(), items)
		if applied > 0 {
			committed := eventlog.TokenFromSeq(items[applied-1].Seq)
			if cErr := log.CommitCursor(group, committed); cErr != nil {
				p.logger.Error("committing maintainer cursor",
					logpkg.Uint64("partition", uint64(log.Partition())),
					logpkg.Err(cErr))
				p.pause(ctx)
				continue
			}
			after = committed
		}
		if err != nil {
			p.pause(ctx)
		}
	}
}

// changeApplier is the slice of the counter maintainer the batch walk needs.
type changeApplier interface {
	ApplyPayload(ctx context.Context, payload []byte) error
}

// maintainBatch applies change records in order. Each record gets up to
// counterApplyAttempts tries; a record still failing after that is sent to
// the counters dead-letter queue and its neighbors proceed. Returns how many
// leading records are safe to commit past. Only a dead-letter write failure
// stops the batch early, so the record is re-read instead of lost.
func (p *Pipeline) maintainBatch(ctx context.Context, applier changeApplier, partition uint32, items []eventlog.Item) (int, error) {
	for i, item := range items {
		var err error
		for attempt := 0; attempt < counterApplyAttempts; attempt++ {
			if err = applier.ApplyPayload(ctx, item.Payload); err == nil {
				break
			}
		}
		if err == nil {
			continue
		}
		p.logger.Error("parking change record",
			logpkg.Uint64("partition", uint64(partition)),
			logpkg.Uint64("seq", item.Seq),
			logpkg.Err(err))
		dlqErr := p.counterDLQ.Send(ctx, deadletter.Entry{
			ID:       fmt.Sprintf("change-%d-%d", partition, item.Seq),
			Payload:  item.Payload,
			Attempts: counterApplyAttempts,
			Reason:   err.Error(),
			FailedAt: time.Now().UTC(),
		})
		if dlqErr != nil {
			return i, dlqErr
		}
	}
	return len(items), nil
}

// retryLoop periodically redelivers due failures.
func (p *Pipeline) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(retrySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.router.RunDue(ctx, p.cons, time.Now(), 0); err != nil {
				p.logger.Error("redelivery sweep", logpkg.Err(err))
			}
		}
	}
}

// retentionLoop trims old log entries on both topics.
func (p *Pipeline) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.TrimNow(ctx); err != nil {
				p.logger.Error("log retention", logpkg.Err(err))
			}
		}
	}
}

// TrimNow applies the configured retention bounds to every partition of
// both topics.
func (p *Pipeline) TrimNow(ctx context.Context) error {
	cfg := p.rt.Config()
	for _, topic := range []*eventlog.Topic{p.rt.Events(), p.rt.ChangeFeed()} {
		for i := 0; i < topic.Partitions(); i++ {
			part := topic.Partition(uint32(i))
			if cfg.Log.RetentionMaxAgeMs > 0 {
				cutoff := time.Now().UnixMilli() - cfg.Log.RetentionMaxAgeMs
				if _, err := part.TrimOlderThan(ctx, cutoff, 1024, 0, event.HeaderTimestamp); err != nil {
					return err
				}
			}
			if cfg.Log.RetentionMaxBytes > 0 {
				if _, err := part.TrimToMaxBytes(ctx, cfg.Log.RetentionMaxBytes, 1024, 0); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Pipeline) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(errorPause):
	}
}
