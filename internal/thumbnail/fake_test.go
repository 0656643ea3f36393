package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kk-code-lab/rthumb/internal/fs"
)

// fakeOp is a scripted LoadOperation. A blocked op publishes every value
// sent on advance as its progress and finishes once gate is closed; an
// unblocked one finishes immediately.
type fakeOp struct {
	path       string
	flags      LoadFlags
	doc        *Document
	failErr    error
	panics     bool
	ignoreStop bool
	advance    chan float64
	gate       chan struct{}

	gateOnce sync.Once
	stopOnce sync.Once
	stopCh   chan struct{}
	stopped  atomic.Bool
	released atomic.Bool
	operated atomic.Int32
	finished atomic.Bool
	progress atomic.Uint64

	mu  sync.Mutex
	err error
}

func solidDocument(w, h int) *Document {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0xff, 0x80, 0x00, 0xff
	}
	return &Document{
		Frames:           []image.Image{img},
		ColorMode:        ColorModeRGB,
		TransparentIndex: -1,
		Profile:          SRGB,
	}
}

func (op *fakeOp) Operate() error {
	op.operated.Add(1)
	if op.panics {
		panic("decoder exploded")
	}
	if op.gate != nil {
		stop := op.stopCh
		if op.ignoreStop {
			stop = nil
		}
		for {
			select {
			case p := <-op.advance:
				op.progress.Store(math.Float64bits(p))
			case <-op.gate:
				return op.finish()
			case <-stop:
				return ErrStopped
			}
		}
	}
	if op.IsStop() {
		return ErrStopped
	}
	return op.finish()
}

func (op *fakeOp) finish() error {
	defer op.finished.Store(true)
	if op.failErr != nil {
		return op.failErr
	}
	op.progress.Store(math.Float64bits(1))
	return nil
}

// open lets a blocked op finish.
func (op *fakeOp) open() {
	if op.gate != nil {
		op.gateOnce.Do(func() { close(op.gate) })
	}
}

func (op *fakeOp) IsStop() bool { return op.stopped.Load() }

func (op *fakeOp) Stop() {
	op.stopOnce.Do(func() {
		op.stopped.Store(true)
		close(op.stopCh)
	})
}

func (op *fakeOp) SetError(format string, args ...any) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.err == nil {
		op.err = fmt.Errorf(format, args...)
	}
}

func (op *fakeOp) HasError() bool { return op.Err() != nil }

func (op *fakeOp) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.err
}

func (op *fakeOp) Progress() float64 { return math.Float64frombits(op.progress.Load()) }

func (op *fakeOp) Document() *Document {
	if op.failErr != nil || op.panics || op.IsStop() || !op.finished.Load() {
		return nil
	}
	return op.doc
}

func (op *fakeOp) ReleaseDocument() { op.released.Store(true) }

func (op *fakeOp) Flags() LoadFlags { return op.flags }

// fakeLoader hands out fakeOps and remembers the latest one per path.
type fakeLoader struct {
	w, h       int
	blocked    bool
	ignoreStop bool

	mu       sync.Mutex
	ops      map[string]*fakeOp
	opened   int
	openErr  map[string]error
	failErr  map[string]error
	panicsOn map[string]bool
}

func newFakeLoader(w, h int) *fakeLoader {
	return &fakeLoader{
		w:        w,
		h:        h,
		ops:      make(map[string]*fakeOp),
		openErr:  make(map[string]error),
		failErr:  make(map[string]error),
		panicsOn: make(map[string]bool),
	}
}

func (l *fakeLoader) open(path string, flags LoadFlags) (LoadOperation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, ok := l.openErr[path]; ok {
		return nil, err
	}
	l.opened++
	op := &fakeOp{
		path:       path,
		flags:      flags,
		doc:        solidDocument(l.w, l.h),
		failErr:    l.failErr[path],
		panics:     l.panicsOn[path],
		ignoreStop: l.ignoreStop,
		stopCh:     make(chan struct{}),
	}
	if l.blocked {
		op.advance = make(chan float64)
		op.gate = make(chan struct{})
	}
	l.ops[path] = op
	return op, nil
}

func (l *fakeLoader) op(path string) *fakeOp {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ops[path]
}

func (l *fakeLoader) openedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opened
}

// release lets every op handed out so far finish.
func (l *fakeLoader) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, op := range l.ops {
		op.open()
	}
}

var errUnreadable = errors.New("unreadable")

// makeItems creates n files in a temp folder and returns their items.
func makeItems(t *testing.T, n int) (*fs.FileSystem, []*fs.Item) {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < n; i++ {
		name := filepath.Join(dir, fmt.Sprintf("img%03d.png", i))
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	fsys := fs.New()
	items := fsys.ItemFromPath(dir).Children()
	if len(items) != n {
		t.Fatalf("expected %d items, got %d", n, len(items))
	}
	return fsys, items
}

// waitIdle polls CheckWorkers until no worker is live.
func waitIdle(t *testing.T, g *Generator) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for g.CheckWorkers() {
		if time.Now().After(deadline) {
			t.Fatalf("workers still live after deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func opaque(c color.Color) bool {
	_, _, _, a := c.RGBA()
	return a == 0xffff
}
