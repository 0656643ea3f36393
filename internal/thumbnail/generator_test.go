package thumbnail

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kk-code-lab/rthumb/internal/fs"
	"github.com/kk-code-lab/rthumb/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

func newTestGenerator(t *testing.T, loader *fakeLoader, workers int, opts ...Option) *Generator {
	t.Helper()
	opts = append([]Option{
		WithMaxWorkers(workers),
		WithOpener(loader.open),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	g := NewGenerator(opts...)
	t.Cleanup(func() {
		loader.release()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return g
}

func waitState(t *testing.T, item *fs.Item, want fs.ThumbState) {
	t.Helper()
	waitFor(t, item.DisplayName()+" "+want.String(), func() bool {
		return item.ThumbnailState() == want
	})
}

func TestGenerateThumbnailClaimsOnce(t *testing.T) {
	_, items := makeItems(t, 1)
	item := items[0]
	loader := newFakeLoader(10, 10)
	loader.blocked = true
	g := newTestGenerator(t, loader, 1)

	g.GenerateThumbnail(item)
	g.GenerateThumbnail(item)
	g.GenerateThumbnail(item)

	if got := loader.openedCount(); got != 1 {
		t.Fatalf("expected one load operation, got %d", got)
	}
	if got := g.QueueLen(); got > 1 {
		t.Fatalf("expected at most one queued job, got %d", got)
	}

	waitState(t, item, fs.ThumbInProgress)
	g.GenerateThumbnail(item)
	if got := loader.openedCount(); got != 1 {
		t.Fatalf("in-progress item was requested again: %d loads", got)
	}

	loader.release()
	waitIdle(t, g)
	if item.ThumbnailState() != fs.ThumbDone {
		t.Fatalf("expected done, got %s", item.ThumbnailState())
	}
}

func TestGenerateThumbnailBoundsWorkers(t *testing.T) {
	const bound = 2
	_, items := makeItems(t, 10*bound)
	loader := newFakeLoader(8, 8)
	loader.blocked = true
	g := newTestGenerator(t, loader, bound)

	for _, item := range items {
		g.GenerateThumbnail(item)
		if live := g.LiveWorkers(); live > bound {
			t.Fatalf("live workers %d exceed bound %d", live, bound)
		}
	}
	for i := 0; i < 20; i++ {
		g.CheckWorkers()
		if live := g.LiveWorkers(); live > bound {
			t.Fatalf("live workers %d exceed bound %d", live, bound)
		}
	}

	deadline := time.Now().Add(5 * time.Second)
	for g.CheckWorkers() {
		loader.release()
		if live := g.LiveWorkers(); live > bound {
			t.Fatalf("live workers %d exceed bound %d", live, bound)
		}
		if time.Now().After(deadline) {
			t.Fatalf("workers still live after deadline")
		}
		time.Sleep(time.Millisecond)
	}

	for _, item := range items {
		if item.ThumbnailState() != fs.ThumbDone {
			t.Fatalf("%s: expected done, got %s", item.DisplayName(), item.ThumbnailState())
		}
	}
}

func TestCheckWorkersProgressIsMonotonic(t *testing.T) {
	_, items := makeItems(t, 1)
	item := items[0]
	loader := newFakeLoader(16, 16)
	loader.blocked = true
	g := newTestGenerator(t, loader, 1)

	g.GenerateThumbnail(item)
	if got := item.ThumbnailProgress(); got != fs.ClaimedProgress {
		t.Fatalf("expected claimed progress, got %v", got)
	}
	waitState(t, item, fs.ThumbInProgress)
	op := loader.op(item.FileName())

	last := item.ThumbnailProgress()
	for _, p := range []float64{0.2, 0.1, 0.5, 0.4, 0.9, 1.0} {
		op.advance <- p
		g.CheckWorkers()
		got := item.ThumbnailProgress()
		if got < last {
			t.Fatalf("progress went back from %v to %v", last, got)
		}
		if got >= 1 {
			t.Fatalf("progress reached %v before completion", got)
		}
		last = got
	}

	op.open()
	waitIdle(t, g)
	if got := item.ThumbnailProgress(); got != 1 {
		t.Fatalf("expected terminal progress 1, got %v", got)
	}
}

func TestGenerateThumbnailTerminalIsNoop(t *testing.T) {
	_, items := makeItems(t, 2)
	done, unreadable := items[0], items[1]
	loader := newFakeLoader(4, 4)
	loader.openErr[unreadable.FileName()] = errUnreadable
	g := newTestGenerator(t, loader, 1)

	g.GenerateThumbnail(done)
	g.GenerateThumbnail(unreadable)
	waitIdle(t, g)

	if done.ThumbnailState() != fs.ThumbDone {
		t.Fatalf("expected done, got %s", done.ThumbnailState())
	}
	if unreadable.ThumbnailState() != fs.ThumbFailed || unreadable.Thumbnail() != nil {
		t.Fatalf("expected failed without thumbnail, got %s", unreadable.ThumbnailState())
	}

	thumb := done.Thumbnail()
	opened := loader.openedCount()
	for i := 0; i < 3; i++ {
		g.GenerateThumbnail(done)
		g.GenerateThumbnail(unreadable)
	}
	if got := g.QueueLen(); got != 0 {
		t.Fatalf("expected empty queue, got %d", got)
	}
	if got := loader.openedCount(); got != opened {
		t.Fatalf("terminal items were loaded again: %d -> %d", opened, got)
	}
	if done.Thumbnail() != thumb || done.ThumbnailState() != fs.ThumbDone {
		t.Fatalf("done item changed")
	}
	if unreadable.ThumbnailState() != fs.ThumbFailed {
		t.Fatalf("failed item changed to %s", unreadable.ThumbnailState())
	}
}

func TestGenerateThumbnailPrioritizesClaimedItem(t *testing.T) {
	_, items := makeItems(t, 4)
	busy, b, c, a := items[0], items[1], items[2], items[3]
	loader := newFakeLoader(4, 4)
	loader.blocked = true
	g := newTestGenerator(t, loader, 1)

	g.GenerateThumbnail(busy)
	waitState(t, busy, fs.ThumbInProgress)

	for _, item := range []*fs.Item{b, c, a} {
		g.GenerateThumbnail(item)
	}
	g.GenerateThumbnail(a)

	queued := g.queue.Snapshot()
	if len(queued) != 3 {
		t.Fatalf("expected 3 queued jobs, got %d", len(queued))
	}
	want := []*fs.Item{a, b, c}
	for i, wi := range queued {
		if wi.Item != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i].DisplayName(), wi.Item.DisplayName())
		}
	}
	if got := loader.openedCount(); got != 4 {
		t.Fatalf("re-request created a second load: %d loads", got)
	}
}

func TestStopAllWorkersResetsQueuedItems(t *testing.T) {
	_, items := makeItems(t, 6)
	busy, queued := items[0], items[1:]
	loader := newFakeLoader(4, 4)
	loader.blocked = true
	g := newTestGenerator(t, loader, 1)

	g.GenerateThumbnail(busy)
	waitState(t, busy, fs.ThumbInProgress)
	for _, item := range queued {
		g.GenerateThumbnail(item)
	}

	g.StopAllWorkers()

	if got := g.QueueLen(); got != 0 {
		t.Fatalf("expected drained queue, got %d", got)
	}
	for _, item := range queued {
		if item.ThumbnailProgress() != 0 || item.ThumbnailState() != fs.ThumbNotRequested {
			t.Fatalf("%s: expected reset, got %s %v", item.DisplayName(), item.ThumbnailState(), item.ThumbnailProgress())
		}
		op := loader.op(item.FileName())
		if !op.IsStop() || !op.released.Load() {
			t.Fatalf("%s: discarded operation not stopped and released", item.DisplayName())
		}
	}

	waitIdle(t, g)
	if busy.ThumbnailState() != fs.ThumbFailed || busy.Thumbnail() != nil {
		t.Fatalf("interrupted load should end failed, got %s", busy.ThumbnailState())
	}
	opened := loader.openedCount()
	g.GenerateThumbnail(busy)
	if got := loader.openedCount(); got != opened || g.QueueLen() != 0 {
		t.Fatalf("interrupted item was queued again")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if live := g.LiveWorkers(); live != 0 {
		t.Fatalf("expected no live workers, got %d", live)
	}
}

func TestGenerateThumbnailAfterStopRestarts(t *testing.T) {
	_, items := makeItems(t, 3)
	loader := newFakeLoader(4, 4)
	loader.blocked = true
	g := newTestGenerator(t, loader, 1)

	for _, item := range items {
		g.GenerateThumbnail(item)
	}
	waitState(t, items[0], fs.ThumbInProgress)
	g.StopAllWorkers()
	waitIdle(t, g)

	loader.blocked = false
	for _, item := range items {
		g.GenerateThumbnail(item)
	}
	waitIdle(t, g)
	if state := items[0].ThumbnailState(); state != fs.ThumbFailed {
		t.Fatalf("interrupted item: expected failed, got %s", state)
	}
	for _, item := range items[1:] {
		if item.ThumbnailState() != fs.ThumbDone {
			t.Fatalf("%s: expected done after re-request, got %s", item.DisplayName(), item.ThumbnailState())
		}
	}
}

func TestWorkerFailures(t *testing.T) {
	_, items := makeItems(t, 2)
	panicky, broken := items[0], items[1]
	loader := newFakeLoader(4, 4)
	loader.panicsOn[panicky.FileName()] = true
	loader.failErr[broken.FileName()] = errUnreadable
	g := newTestGenerator(t, loader, 2)

	g.GenerateThumbnail(panicky)
	g.GenerateThumbnail(broken)
	waitIdle(t, g)

	for _, item := range items {
		if item.ThumbnailState() != fs.ThumbFailed || item.Thumbnail() != nil {
			t.Fatalf("%s: expected failed, got %s", item.DisplayName(), item.ThumbnailState())
		}
		if item.ThumbnailProgress() != 1 {
			t.Fatalf("%s: expected terminal progress, got %v", item.DisplayName(), item.ThumbnailProgress())
		}
	}
	if err := loader.op(panicky.FileName()).Err(); err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("expected recorded panic, got %v", err)
	}
	if err := loader.op(broken.FileName()).Err(); err == nil || !strings.Contains(err.Error(), errUnreadable.Error()) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestWorkerDropsResultForRemovedItem(t *testing.T) {
	fsys, items := makeItems(t, 1)
	item := items[0]
	loader := newFakeLoader(4, 4)
	loader.blocked = true
	g := newTestGenerator(t, loader, 1)

	g.GenerateThumbnail(item)
	waitState(t, item, fs.ThumbInProgress)

	if err := fsys.Remove(item); !errors.Is(err, fs.ErrThumbnailPending) {
		t.Fatalf("expected ErrThumbnailPending, got %v", err)
	}

	if err := os.Remove(item.FileName()); err != nil {
		t.Fatalf("remove file: %v", err)
	}
	fsys.Refresh()
	if children := item.Parent().Children(); len(children) != 0 {
		t.Fatalf("expected pruned folder, got %d children", len(children))
	}
	if !item.Removed() {
		t.Fatalf("expected item marked removed")
	}

	loader.release()
	waitIdle(t, g)
	if item.Thumbnail() != nil {
		t.Fatalf("removed item received a thumbnail")
	}
	if item.ThumbnailState().Pending() {
		t.Fatalf("removed item left pending: %s", item.ThumbnailState())
	}
}

func TestShutdownHonorsContext(t *testing.T) {
	_, items := makeItems(t, 1)
	loader := newFakeLoader(4, 4)
	loader.blocked = true
	loader.ignoreStop = true
	// The worker outlives the test body, so it must not log through t.
	g := NewGenerator(WithMaxWorkers(1), WithOpener(loader.open))

	g.GenerateThumbnail(items[0])
	waitState(t, items[0], fs.ThumbInProgress)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := g.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	op := loader.op(items[0].FileName())
	loader.release()
	waitFor(t, "load exit", op.finished.Load)
}

func TestGeneratorRecordsMetrics(t *testing.T) {
	_, items := makeItems(t, 2)
	loader := newFakeLoader(4, 4)
	loader.openErr[items[1].FileName()] = errUnreadable
	m := metrics.New()
	g := newTestGenerator(t, loader, 1, WithMetrics(m))

	g.GenerateThumbnail(items[0])
	g.GenerateThumbnail(items[1])
	waitIdle(t, g)

	const want = `
# HELP rthumb_thumbnails_total Thumbnail jobs finished, by result
# TYPE rthumb_thumbnails_total counter
rthumb_thumbnails_total{result="done"} 1
rthumb_thumbnails_total{result="failed"} 1
# HELP rthumb_workers_live Number of live thumbnail workers
# TYPE rthumb_workers_live gauge
rthumb_workers_live 0
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want),
		"rthumb_thumbnails_total", "rthumb_workers_live"); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateThumbnailSkipsFolders(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	fsys := fs.New()
	folder := fsys.ItemFromPath(filepath.Join(dir, "sub"))
	loader := newFakeLoader(4, 4)
	g := newTestGenerator(t, loader, 1)

	g.GenerateThumbnail(folder)
	g.GenerateThumbnail(nil)
	if loader.openedCount() != 0 || g.QueueLen() != 0 {
		t.Fatalf("folders must not be queued")
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0x40, A: 0xff})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

func TestGenerateThumbnailEndToEnd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wide.png")
	writePNG(t, path, 400, 100)

	fsys := fs.New()
	item := fsys.ItemFromPath(path)
	if item == nil {
		t.Fatalf("item not resolved")
	}
	g := NewGenerator(WithMaxWorkers(1), WithLogger(zaptest.NewLogger(t)))
	defer g.Close()

	g.GenerateThumbnail(item)
	waitIdle(t, g)

	thumb := item.Thumbnail()
	if thumb == nil {
		t.Fatalf("expected a thumbnail, state %s", item.ThumbnailState())
	}
	b := thumb.Bounds()
	if b.Dx() != 128 || b.Dy() != 32 {
		t.Fatalf("expected 128x32, got %dx%d", b.Dx(), b.Dy())
	}
	if !opaque(thumb.At(64, 16)) {
		t.Fatalf("expected opaque pixels")
	}
	if item.ThumbnailProgress() != 1 || item.ThumbnailState() != fs.ThumbDone {
		t.Fatalf("expected terminal state, got %s %v", item.ThumbnailState(), item.ThumbnailProgress())
	}
}
