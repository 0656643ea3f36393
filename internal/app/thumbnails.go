package app

import (
	"slices"
	"time"

	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
	"github.com/kk-code-lab/rthumb/internal/metrics"
	"github.com/kk-code-lab/rthumb/internal/thumbnail"
	"go.uber.org/zap"
)

const (
	// monitorInterval is the tick period while thumbnail work is outstanding.
	monitorInterval = 50 * time.Millisecond
	// launchBudget caps the time one tick spends requesting thumbnails.
	launchBudget = 200 * time.Millisecond
	// selectionDelay postpones the selected item so quick scrolling does not
	// queue every item passed over.
	selectionDelay = 200 * time.Millisecond
)

// thumbnailScheduler feeds the generator from the UI loop. All methods must be
// called from that loop.
type thumbnailScheduler struct {
	gen     *thumbnail.Generator
	fs      *fsutil.FileSystem
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	pending  []*fsutil.Item
	selected *fsutil.Item
	selectAt time.Time

	unsubscribe func()
}

func newThumbnailScheduler(ctx *Context) *thumbnailScheduler {
	s := &thumbnailScheduler{
		gen:     ctx.Thumbnails,
		fs:      ctx.FS,
		metrics: ctx.Metrics,
		logger:  ctx.Logger.Named("scheduler"),
		now:     time.Now,
	}
	s.unsubscribe = ctx.FS.OnItemRemoved(s.forget)
	return s
}

// Request queues items for generation on the next tick. Only items never
// requested before are taken; folders and unsupported files are skipped.
func (s *thumbnailScheduler) Request(items []*fsutil.Item) {
	for _, item := range items {
		if !wantsThumbnail(item) || item.ThumbnailState() != fsutil.ThumbNotRequested || slices.Contains(s.pending, item) {
			continue
		}
		s.pending = append(s.pending, item)
	}
}

// Select marks item as the one the user is looking at. It jumps the queue once
// it stayed selected for selectionDelay.
func (s *thumbnailScheduler) Select(item *fsutil.Item) {
	if !wantsThumbnail(item) {
		s.selected = nil
		return
	}
	s.selected = item
	s.selectAt = s.now().Add(selectionDelay)
}

// Reset abandons all requested work, e.g. after leaving a folder.
func (s *thumbnailScheduler) Reset() {
	s.gen.StopAllWorkers()
	s.pending = nil
	s.selected = nil
}

// Active reports whether ticks are still needed.
func (s *thumbnailScheduler) Active() bool {
	return len(s.pending) > 0 || s.selected != nil || s.gen.LiveWorkers() > 0 || s.gen.QueueLen() > 0
}

// Pending returns the number of requests not yet handed to the generator.
func (s *thumbnailScheduler) Pending() int { return len(s.pending) }

// Tick launches due requests within launchBudget and publishes worker
// progress. It returns Active().
func (s *thumbnailScheduler) Tick() bool {
	start := s.now()

	if s.selected != nil && !start.Before(s.selectAt) {
		item := s.selected
		s.selected = nil
		// The second call moves the item to the front when it was already
		// queued by the first one or by an earlier request.
		s.gen.GenerateThumbnail(item)
		s.gen.GenerateThumbnail(item)
		s.drop(item)
	}

	launched := 0
	deadline := start.Add(launchBudget)
	for len(s.pending) > 0 && s.now().Before(deadline) {
		item := s.pending[0]
		s.pending = s.pending[1:]
		s.gen.GenerateThumbnail(item)
		launched++
	}
	if launched > 0 {
		s.logger.Debug("thumbnails requested", zap.Int("count", launched), zap.Int("left", len(s.pending)))
	}

	s.gen.CheckWorkers()
	s.metrics.SetItemsCached(s.fs.Len())
	return s.Active()
}

// forget drops a request for an item leaving the cache.
func (s *thumbnailScheduler) forget(item *fsutil.Item) {
	s.drop(item)
	if s.selected == item {
		s.selected = nil
	}
}

func (s *thumbnailScheduler) drop(item *fsutil.Item) {
	s.pending = slices.DeleteFunc(s.pending, func(it *fsutil.Item) bool { return it == item })
}

func (s *thumbnailScheduler) close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func wantsThumbnail(item *fsutil.Item) bool {
	return item != nil && item.NeedThumbnail() && thumbnail.SupportedFormat(item.FileName())
}
