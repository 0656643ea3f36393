package thumbnail

import (
	"context"
	"runtime"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/kk-code-lab/rthumb/internal/fs"
	"github.com/kk-code-lab/rthumb/internal/metrics"
	"github.com/kk-code-lab/rthumb/internal/queue"
	"go.uber.org/zap"
)

// DefaultMaxWorkers leaves one CPU for the UI goroutine.
func DefaultMaxWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Generator schedules thumbnail jobs on a bounded set of workers.
//
// GenerateThumbnail, CheckWorkers and StopAllWorkers are meant to be called
// from the UI goroutine only.
type Generator struct {
	queue *queue.Queue[*WorkItem]

	workersMu    sync.Mutex
	workers      []*Worker
	nextWorkerID int

	maxWorkers int
	opener     Opener
	flags      LoadFlags
	p          *pipeline
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxWorkers bounds the worker pool; values below 1 keep the default.
func WithMaxWorkers(n int) Option {
	return func(g *Generator) {
		if n >= 1 {
			g.maxWorkers = n
		}
	}
}

// WithOpener replaces the document loader.
func WithOpener(o Opener) Option {
	return func(g *Generator) {
		if o != nil {
			g.opener = o
		}
	}
}

// WithRenderer replaces the renderer.
func WithRenderer(r Renderer) Option {
	return func(g *Generator) {
		if r != nil {
			g.p.renderer = r
		}
	}
}

// WithSurfaceFactory replaces the surface factory.
func WithSurfaceFactory(f SurfaceFactory) Option {
	return func(g *Generator) {
		if f != nil {
			g.p.surfaces = f
		}
	}
}

// WithLoadFlags replaces the flags passed to the opener.
func WithLoadFlags(flags LoadFlags) Option {
	return func(g *Generator) { g.flags = flags | LoadSingleFrame }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.p.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.p.metrics = m }
}

// NewGenerator creates a scheduler with no running workers.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		queue:      queue.New[*WorkItem](),
		maxWorkers: DefaultMaxWorkers(),
		opener:     OpenImage,
		flags:      LoadSingleFrame | LoadPreserveColorProfile,
		p: &pipeline{
			renderer: NewImagingRenderer(),
			surfaces: RGBASurfaceFactory{},
			logger:   zap.NewNop(),
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxWorkers returns the pool bound.
func (g *Generator) MaxWorkers() int { return g.maxWorkers }

// QueueLen returns the number of jobs waiting for a worker.
func (g *Generator) QueueLen() int { return g.queue.Len() }

// LiveWorkers returns the number of workers that have not drained yet.
func (g *Generator) LiveWorkers() int {
	g.workersMu.Lock()
	defer g.workersMu.Unlock()
	return g.liveLocked()
}

func (g *Generator) liveLocked() int {
	n := 0
	for _, w := range g.workers {
		if !w.Drained() {
			n++
		}
	}
	return n
}

// GenerateThumbnail requests a thumbnail for item. Items already done, failed
// or being loaded are left alone. An item still waiting in the queue is moved
// to its front.
func (g *Generator) GenerateThumbnail(item *fs.Item) {
	if item == nil || !item.NeedThumbnail() {
		return
	}

	switch item.ThumbnailState() {
	case fs.ThumbClaimed:
		g.queue.Prioritize(func(wi *WorkItem) bool { return wi.Item == item })
		if g.LiveWorkers() == 0 {
			g.ensureWorker()
		}
		return
	case fs.ThumbNotRequested:
	default:
		return
	}

	job := uuid.New()
	if !item.ClaimThumbnail(job) {
		return
	}

	op, err := g.opener(item.FileName(), g.flags)
	if err != nil {
		item.FailThumbnail(job)
		g.p.metrics.RecordThumbnail(metrics.ResultFailed, 0)
		g.p.logger.Debug("thumbnail not available", zap.String("path", item.FileName()), zap.Error(err))
		return
	}

	wi := &WorkItem{ID: job, Item: item, Op: op}
	g.queue.Push(wi)
	g.p.metrics.SetQueueDepth(g.queue.Len())
	g.p.logger.Debug("thumbnail queued", zap.String("job", wi.ID.String()), zap.String("path", item.FileName()))
	g.ensureWorker()
}

// ensureWorker starts a worker unless the pool is full.
func (g *Generator) ensureWorker() {
	g.workersMu.Lock()
	defer g.workersMu.Unlock()
	g.reapLocked()
	if len(g.workers) >= g.maxWorkers {
		return
	}
	g.startLocked()
}

func (g *Generator) startLocked() {
	g.nextWorkerID++
	g.workers = append(g.workers, startWorker(g.nextWorkerID, g.queue, g.p))
	g.p.metrics.SetWorkersLive(len(g.workers))
}

// reapLocked forgets workers whose goroutine has finished.
func (g *Generator) reapLocked() {
	g.workers = slices.DeleteFunc(g.workers, func(w *Worker) bool {
		if !w.Drained() {
			return false
		}
		<-w.done
		return true
	})
}

// CheckWorkers publishes worker progress onto their items, reaps drained
// workers and reports whether any worker is still running. The UI keeps
// polling while it returns true.
func (g *Generator) CheckWorkers() bool {
	g.workersMu.Lock()
	defer g.workersMu.Unlock()

	for _, w := range g.workers {
		if wi, progress, ok := w.Progress(); ok {
			wi.Item.SetThumbnailProgress(wi.ID, progress)
		}
	}
	g.reapLocked()

	// A worker may have drained right after a push saw it alive.
	if len(g.workers) < g.maxWorkers && !g.queue.Empty() {
		g.startLocked()
	}

	g.p.metrics.SetWorkersLive(len(g.workers))
	g.p.metrics.SetQueueDepth(g.queue.Len())
	return len(g.workers) > 0
}

// StopAllWorkers discards every queued job, making its item requestable
// again, and asks running loads to stop. It does not wait for workers;
// CheckWorkers reaps them later.
func (g *Generator) StopAllWorkers() {
	discarded := g.queue.Drain()
	for _, wi := range discarded {
		wi.Item.ResetThumbnail(wi.ID)
		wi.Op.Stop()
		wi.Op.ReleaseDocument()
		g.p.metrics.RecordThumbnail(metrics.ResultCanceled, 0)
	}
	if len(discarded) > 0 {
		g.p.logger.Debug("discarded queued thumbnails", zap.Int("count", len(discarded)))
	}

	g.workersMu.Lock()
	for _, w := range g.workers {
		w.Stop()
	}
	g.workersMu.Unlock()
	g.p.metrics.SetQueueDepth(0)
}

// Close stops everything and waits for every worker goroutine to exit. It
// blocks until each in-flight load reaches a cancellation checkpoint.
func (g *Generator) Close() {
	g.StopAllWorkers()

	g.workersMu.Lock()
	workers := g.workers
	g.workers = nil
	g.workersMu.Unlock()

	for _, w := range workers {
		w.Close()
	}
	g.p.metrics.SetWorkersLive(0)
}

// Shutdown is Close without blocking past ctx. Workers keep shutting down in
// the background when ctx expires first.
func (g *Generator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.Close()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
