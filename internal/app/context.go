package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kk-code-lab/rthumb/internal/config"
	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
	"github.com/kk-code-lab/rthumb/internal/logging"
	"github.com/kk-code-lab/rthumb/internal/metrics"
	"github.com/kk-code-lab/rthumb/internal/thumbnail"
	"go.uber.org/zap"
)

// Context owns the services of one rthumb session: the file item cache and
// the thumbnail generator working on it.
type Context struct {
	Config     *config.Config
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	FS         *fsutil.FileSystem
	Thumbnails *thumbnail.Generator
}

// NewContext builds the services described by cfg.
func NewContext(cfg *config.Config, opts ...thumbnail.Option) (*Context, error) {
	if cfg == nil {
		return nil, errors.New("missing configuration")
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogFile,
	})
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	m := metrics.New()
	fsys := fsutil.New(fsutil.WithLogger(logger.Named("fs")))

	genOpts := []thumbnail.Option{
		thumbnail.WithMaxWorkers(cfg.Workers),
		thumbnail.WithLogger(logger.Named("thumbnail")),
		thumbnail.WithMetrics(m),
	}
	gen := thumbnail.NewGenerator(append(genOpts, opts...)...)

	logger.Info("session started",
		zap.Int("workers", gen.MaxWorkers()),
		zap.String("start", cfg.StartPath),
	)

	return &Context{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		FS:         fsys,
		Thumbnails: gen,
	}, nil
}

// Close stops the thumbnail workers and drops the item cache. Workers still
// busy when ctx expires finish in the background.
func (c *Context) Close(ctx context.Context) error {
	err := c.Thumbnails.Shutdown(ctx)
	if err != nil {
		c.Logger.Warn("thumbnail workers did not stop in time", zap.Error(err))
	}
	c.FS.Close()
	_ = c.Logger.Sync()
	return err
}
