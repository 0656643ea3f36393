package app

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kk-code-lab/rthumb/internal/config"
	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
	"github.com/kk-code-lab/rthumb/internal/thumbnail"
)

// gatedOp delays a real image load until its gate opens. It still honours
// Stop while waiting.
type gatedOp struct {
	thumbnail.LoadOperation
	gate <-chan struct{}
}

func (op *gatedOp) Operate() error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-op.gate:
			return op.LoadOperation.Operate()
		case <-ticker.C:
			if op.IsStop() {
				return thumbnail.ErrStopped
			}
		}
	}
}

// gates hands out one gate per file name.
type gates struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	once  map[string]*sync.Once
}

func newGates() *gates {
	return &gates{gates: make(map[string]chan struct{}), once: make(map[string]*sync.Once)}
}

func (g *gates) get(name string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[name]
	if !ok {
		ch = make(chan struct{})
		g.gates[name] = ch
		g.once[name] = &sync.Once{}
	}
	return ch
}

func (g *gates) open(name string) {
	ch := g.get(name)
	g.mu.Lock()
	once := g.once[name]
	g.mu.Unlock()
	once.Do(func() { close(ch) })
}

func (g *gates) openAll() {
	g.mu.Lock()
	names := make([]string, 0, len(g.gates))
	for name := range g.gates {
		names = append(names, name)
	}
	g.mu.Unlock()
	for _, name := range names {
		g.open(name)
	}
}

func (g *gates) opener(path string, flags thumbnail.LoadFlags) (thumbnail.LoadOperation, error) {
	op, err := thumbnail.OpenImage(path, flags)
	if err != nil {
		return nil, err
	}
	return &gatedOp{LoadOperation: op, gate: g.get(filepath.Base(path))}, nil
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0x20, G: 0x80, B: 0xc0, A: 0xff})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

// newFolder creates a folder holding sub/, the given PNG files and a text
// file.
func newFolder(t *testing.T, images ...string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range images {
		writePNG(t, filepath.Join(dir, name), 64, 32)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestContext(t *testing.T, dir string, workers int, opts ...thumbnail.Option) *Context {
	t.Helper()
	ctx, err := NewContext(&config.Config{StartPath: dir, Workers: workers, LogLevel: "info", LogFormat: "json"}, opts...)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ctx.Close(shutdownCtx); err != nil {
			t.Errorf("close context: %v", err)
		}
	})
	return ctx
}

func childByName(t *testing.T, folder *fsutil.Item, name string) *fsutil.Item {
	t.Helper()
	for _, child := range folder.Children() {
		if child.DisplayName() == name {
			return child
		}
	}
	t.Fatalf("%s not found in %s", name, folder.FileName())
	return nil
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

func waitState(t *testing.T, item *fsutil.Item, want fsutil.ThumbState) {
	t.Helper()
	waitFor(t, item.DisplayName()+" "+want.String(), func() bool { return item.ThumbnailState() == want })
}
