package thumbnail

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kk-code-lab/rthumb/internal/fs"
	"github.com/kk-code-lab/rthumb/internal/metrics"
	"github.com/kk-code-lab/rthumb/internal/queue"
	"go.uber.org/zap"
)

// WorkItem is a queued request: the item to fill and the load that feeds it.
type WorkItem struct {
	ID   uuid.UUID
	Item *fs.Item
	Op   LoadOperation
}

// pipeline holds what a worker needs to turn a loaded document into a
// surface.
type pipeline struct {
	renderer Renderer
	surfaces SurfaceFactory
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// Worker drains the shared queue on its own goroutine and exits once the
// queue is seen empty twice in a row.
type Worker struct {
	id    int
	queue *queue.Queue[*WorkItem]
	p     *pipeline

	mu      sync.Mutex
	current *WorkItem

	drained atomic.Bool
	done    chan struct{}
}

func startWorker(id int, q *queue.Queue[*WorkItem], p *pipeline) *Worker {
	w := &Worker{
		id:    id,
		queue: q,
		p:     p,
		done:  make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	defer w.drained.Store(true)

	w.p.logger.Debug("thumbnail worker started", zap.Int("worker", w.id))
	emptyObservations := 0
	for {
		wi, ok := w.queue.TryPop()
		if !ok {
			if w.queue.Empty() {
				emptyObservations++
				if emptyObservations >= 2 {
					w.p.logger.Debug("thumbnail worker drained", zap.Int("worker", w.id))
					return
				}
			} else {
				emptyObservations = 0
			}
			runtime.Gosched()
			continue
		}
		emptyObservations = 0
		w.process(wi)
	}
}

func (w *Worker) process(wi *WorkItem) {
	w.mu.Lock()
	w.current = wi
	w.mu.Unlock()

	start := time.Now()
	log := w.p.logger.With(
		zap.Int("worker", w.id),
		zap.String("job", wi.ID.String()),
		zap.String("path", wi.Item.FileName()),
	)

	defer func() {
		w.mu.Lock()
		w.current = nil
		w.mu.Unlock()
		wi.Op.ReleaseDocument()
	}()

	if wi.Item.Removed() || !wi.Item.StartThumbnail(wi.ID) {
		wi.Item.ResetThumbnail(wi.ID)
		log.Debug("thumbnail request withdrawn")
		w.p.metrics.RecordThumbnail(metrics.ResultCanceled, time.Since(start))
		return
	}

	guard(wi.Op, "load", func() {
		if err := wi.Op.Operate(); err != nil {
			wi.Op.SetError("cannot load %s: %v", wi.Item.FileName(), err)
		}
	})

	var surface Surface
	if doc := wi.Op.Document(); doc != nil && !wi.Op.IsStop() {
		guard(wi.Op, "render", func() {
			s, err := w.p.thumbnailFor(doc, wi.Op.Flags())
			if err != nil {
				wi.Op.SetError("cannot render %s: %v", wi.Item.FileName(), err)
				return
			}
			surface = s
		})
	}

	switch {
	case wi.Item.Removed():
		wi.Item.ResetThumbnail(wi.ID)
		w.p.metrics.RecordThumbnail(metrics.ResultCanceled, time.Since(start))
		log.Debug("item removed while loading, dropping result")
	case surface != nil:
		if !wi.Item.SetThumbnail(wi.ID, surface) {
			w.p.metrics.RecordThumbnail(metrics.ResultCanceled, time.Since(start))
			log.Debug("item claimed by another job, dropping result")
			return
		}
		w.p.metrics.RecordThumbnail(metrics.ResultDone, time.Since(start))
		log.Debug("thumbnail ready",
			zap.Int("width", surface.Width()),
			zap.Int("height", surface.Height()),
			zap.Duration("elapsed", time.Since(start)))
	case wi.Op.IsStop():
		// An interrupted load is final; the item is not queued again.
		wi.Item.FailThumbnail(wi.ID)
		w.p.metrics.RecordThumbnail(metrics.ResultCanceled, time.Since(start))
		log.Debug("thumbnail canceled")
	default:
		wi.Item.FailThumbnail(wi.ID)
		w.p.metrics.RecordThumbnail(metrics.ResultFailed, time.Since(start))
		log.Warn("thumbnail failed", zap.Error(wi.Op.Err()))
	}
}

// guard runs fn and records a panic as an error on op, so nothing escapes the
// worker goroutine.
func guard(op LoadOperation, stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			op.SetError("%s panicked: %v", stage, r)
		}
	}()
	fn()
}

func (p *pipeline) thumbnailFor(doc *Document, flags LoadFlags) (Surface, error) {
	w, h := doc.Size()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty document %dx%d", w, h)
	}
	prepareDocument(doc)

	tw, th := ThumbnailSize(w, h)
	bitmap, err := p.renderer.Render(doc, RenderOptions{
		Frame:                 0,
		Width:                 tw,
		Height:                th,
		TransparentBackground: true,
		ConvertToSRGB:         flags.Has(LoadPreserveColorProfile),
	})
	if err != nil {
		return nil, err
	}
	return p.surfaces.Convert(bitmap, doc.Palette)
}

// Progress returns the job the worker holds and the progress of its load.
func (w *Worker) Progress() (*WorkItem, float64, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil, 0, false
	}
	return w.current, w.current.Op.Progress(), true
}

// Stop asks the in-flight load to stop at its next checkpoint. The goroutine
// keeps draining the queue.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		w.current.Op.Stop()
	}
}

// Close stops the in-flight load and waits for the goroutine to exit. It
// blocks until the load reaches a cancellation checkpoint.
func (w *Worker) Close() {
	w.Stop()
	<-w.done
}

// Drained reports whether the goroutine has finished.
func (w *Worker) Drained() bool { return w.drained.Load() }

// ID returns the worker number used in logs.
func (w *Worker) ID() int { return w.id }
