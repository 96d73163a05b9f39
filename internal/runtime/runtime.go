package runtime

import (
	"context"
	"errors"

	"github.com/step2this/social-media-app-sub010/internal/cache"
	cfgpkg "github.com/step2this/social-media-app-sub010/internal/config"
	"github.com/step2this/social-media-app-sub010/internal/consumer"
	"github.com/step2this/social-media-app-sub010/internal/counter"
	"github.com/step2this/social-media-app-sub010/internal/deadletter"
	"github.com/step2this/social-media-app-sub010/internal/eventlog"
	"github.com/step2this/social-media-app-sub010/internal/publisher"
	"github.com/step2this/social-media-app-sub010/internal/redelivery"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	"github.com/step2this/social-media-app-sub010/internal/store"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	Logger  logpkg.Logger
}

// Runtime wires storage, topics, and the pipeline components for a
// single-node instance. Components share one Pebble store.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
	logger logpkg.Logger

	events     *eventlog.Topic
	changeFeed *eventlog.Topic
	store      *store.Store
	views      *cache.Cache
	publisher  *publisher.Publisher
	maintainer *counter.Maintainer
	dlq        *deadletter.Queue
	retries    *redelivery.Queue
}

// Open initializes storage and wires every component.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync})
	if err != nil {
		return nil, err
	}
	cfg := opts.Config
	ns := cfg.Namespace

	events, err := eventlog.OpenTopic(db, ns, cfg.EventsTopic, cfg.Partitions)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	changeFeed, err := eventlog.OpenTopic(db, ns, cfg.ChangeFeedTopic, cfg.Partitions)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	st := store.New(db, ns, store.TopicFeed{Topic: changeFeed}, logger)
	views := cache.New(db, ns, logger, cache.WithPreviewLimit(cfg.Cache.PreviewLimit))
	pub := publisher.New(publisher.TopicLog{Topic: events}, logger,
		publisher.WithChunkSize(cfg.Publisher.ChunkSize))
	maintainer := counter.New(st, logger)

	policy := redelivery.DefaultRetryPolicy()
	policy.MaxAttempts = uint32(cfg.Consumer.RetryBudget)
	redelivery.ApplyPolicyEnv(&policy)

	return &Runtime{
		db:         db,
		config:     cfg,
		logger:     logger,
		events:     events,
		changeFeed: changeFeed,
		store:      st,
		views:      views,
		publisher:  pub,
		maintainer: maintainer,
		dlq:        deadletter.New(db, ns, cfg.Consumer.Group, logger),
		retries:    redelivery.New(db, ns, cfg.Consumer.Group, policy, logger),
	}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth verifies the store answers reads.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// NewConsumer builds a stream consumer projecting into this runtime's store
// and cache, honoring the configured record filter.
func (r *Runtime) NewConsumer() (*consumer.Consumer, error) {
	filter, err := consumer.NewFilter(r.config.Consumer.Filter)
	if err != nil {
		return nil, err
	}
	projector := consumer.NewProjector(r.store, r.views, r.logger)
	return consumer.New(projector, filter, r.logger), nil
}

// NewRouter builds the failure router for the configured consumer group.
func (r *Runtime) NewRouter() *consumer.Router {
	return consumer.NewRouter(uint32(r.config.Consumer.RetryBudget), r.retries, r.dlq, r.logger)
}

// Events returns the domain event topic.
func (r *Runtime) Events() *eventlog.Topic { return r.events }

// ChangeFeed returns the row-change topic.
func (r *Runtime) ChangeFeed() *eventlog.Topic { return r.changeFeed }

// Store returns the entity store.
func (r *Runtime) Store() *store.Store { return r.store }

// Views returns the read cache.
func (r *Runtime) Views() *cache.Cache { return r.views }

// Publisher returns the event publisher.
func (r *Runtime) Publisher() *publisher.Publisher { return r.publisher }

// Maintainer returns the counter maintainer.
func (r *Runtime) Maintainer() *counter.Maintainer { return r.maintainer }

// DeadLetters returns the consumer group's dead-letter queue.
func (r *Runtime) DeadLetters() *deadletter.Queue { return r.dlq }

// Retries returns the consumer group's redelivery queue.
func (r *Runtime) Retries() *redelivery.Queue { return r.retries }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the runtime logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }
