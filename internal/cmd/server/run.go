package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	cfgpkg "github.com/step2this/social-media-app-sub010/internal/config"
	"github.com/step2this/social-media-app-sub010/internal/pipeline"
	"github.com/step2this/social-media-app-sub010/internal/runtime"
	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
	logpkg "github.com/step2this/social-media-app-sub010/pkg/log"
)

// Options configures a server run.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Config  cfgpkg.Config
	Logger  logpkg.Logger
}

// Run opens the runtime, starts the pipeline loops, and blocks until the
// context is cancelled or a termination signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger(
			logpkg.WithLevel(logpkg.InfoLevel),
			logpkg.WithFormatter(&logpkg.TextFormatter{}),
			logpkg.WithOutput(logpkg.NewConsoleOutput()),
		)
	}
	logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(runtime.Options{
		DataDir: filepath.Join(opts.DataDir, "store"),
		Fsync:   opts.Fsync,
		Config:  opts.Config,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	p, err := pipeline.New(rt)
	if err != nil {
		return err
	}

	logger.Info("starting socialsync",
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("namespace", opts.Config.Namespace),
		logpkg.Int("partitions", opts.Config.Partitions),
		logpkg.Str("group", opts.Config.Consumer.Group))

	p.Start(sctx)
	<-sctx.Done()
	p.Stop()
	return nil
}
