package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrThumbnailPending is returned when removing a subtree that still has a
	// queued or running thumbnail job.
	ErrThumbnailPending = errors.New("thumbnail generation pending")
	// ErrRootItem is returned when removing the root item.
	ErrRootItem = errors.New("cannot remove root item")
)

// FileSystem owns the key -> item map and the tree rooted at Root. Tree
// mutation is meant for the UI goroutine; workers only touch thumbnail state.
type FileSystem struct {
	mu      sync.Mutex
	items   map[string]*Item
	root    *Item
	version atomic.Uint64

	rootPath string
	docsPath string
	logger   *zap.Logger

	listenersMu sync.Mutex
	listeners   map[int]func(*Item)
	nextID      int
}

// Option configures a FileSystem.
type Option func(*FileSystem)

// WithRootPath overrides the platform root.
func WithRootPath(path string) Option {
	return func(fsys *FileSystem) { fsys.rootPath = path }
}

// WithDocumentsPath overrides the folder resolved for an empty path.
func WithDocumentsPath(path string) Option {
	return func(fsys *FileSystem) { fsys.docsPath = path }
}

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(fsys *FileSystem) {
		if l != nil {
			fsys.logger = l
		}
	}
}

// New creates the file item cache and its root item.
func New(opts ...Option) *FileSystem {
	fsys := &FileSystem{
		items:     make(map[string]*Item),
		rootPath:  defaultRootPath(),
		logger:    zap.NewNop(),
		listeners: make(map[int]func(*Item)),
	}
	for _, opt := range opts {
		opt(fsys)
	}
	if fsys.docsPath == "" {
		fsys.docsPath = defaultDocumentsPath()
	}
	fsys.version.Store(1)
	fsys.Root()
	return fsys
}

// Close drops every cached item.
func (fsys *FileSystem) Close() {
	fsys.mu.Lock()
	for _, item := range fsys.items {
		item.removed.Store(true)
	}
	fsys.items = make(map[string]*Item)
	fsys.root = nil
	fsys.mu.Unlock()
}

// Version returns the current file system version.
func (fsys *FileSystem) Version() uint64 { return fsys.version.Load() }

// Refresh invalidates every cached children list lazily.
func (fsys *FileSystem) Refresh() {
	fsys.version.Add(1)
}

// Len returns the number of cached items.
func (fsys *FileSystem) Len() int {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	return len(fsys.items)
}

// Root returns the root item, creating it on first use.
func (fsys *FileSystem) Root() *Item {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if fsys.root != nil {
		return fsys.root
	}

	root := &Item{
		fs:          fsys,
		fileName:    fsys.rootPath,
		displayName: fsys.rootPath,
		version:     fsys.version.Load(),
	}
	root.isFolder.Store(true)
	root.key = KeyForPath(root.fileName)
	fsys.items[root.key] = root
	fsys.root = root
	return root
}

// ItemFromPath resolves path to an item, creating intermediate items as
// needed. An empty path resolves to the documents folder. It returns nil when
// the path does not exist.
func (fsys *FileSystem) ItemFromPath(path string) *Item {
	if path == "" {
		path = fsys.docsPath
	}
	path = trimTrailingSeparator(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil
	}
	return fsys.itemByPath(abs, true)
}

func (fsys *FileSystem) itemByPath(path string, create bool) *Item {
	if path == "" {
		return fsys.Root()
	}
	path = filepath.Clean(path)
	key := KeyForPath(path)

	root := fsys.Root()
	if key == root.key {
		return root
	}

	if item := fsys.lookup(key); item != nil {
		if item.IsExistent() {
			return item
		}
		fsys.removeSubtree(item)
		return nil
	}
	if !create {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil
	}

	var parent *Item
	if parentPath := filepath.Dir(path); parentPath != path && !isRootPath(path) {
		parent = fsys.itemByPath(parentPath, true)
	}
	if parent == nil {
		// Outside the configured root: hang the item directly below it.
		parent = root
	}

	item := fsys.newItem(parent, path, filepath.Base(path), info.IsDir())
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if existing, ok := fsys.items[item.key]; ok {
		return existing
	}
	fsys.items[item.key] = item
	return item
}

func (fsys *FileSystem) newItem(parent *Item, path, name string, isFolder bool) *Item {
	item := &Item{
		fs:          fsys,
		key:         KeyForPath(path),
		fileName:    path,
		displayName: norm.NFC.String(name),
		parent:      parent,
		version:     fsys.version.Load(),
	}
	item.isFolder.Store(isFolder)
	return item
}

func (fsys *FileSystem) lookup(key string) *Item {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	return fsys.items[key]
}

// Children returns the sorted children of a folder, reading the disk on first
// use and again after Refresh. Entries that vanished since the last read are
// removed from the cache.
func (it *Item) Children() []*Item {
	if it.fs == nil || !it.IsFolder() {
		return nil
	}
	fsys := it.fs
	current := fsys.Version()

	fsys.mu.Lock()
	if it.loaded && it.version >= current {
		out := slices.Clone(it.children)
		fsys.mu.Unlock()
		return out
	}
	fsys.mu.Unlock()

	entries, err := os.ReadDir(it.fileName)
	if err != nil {
		fsys.logger.Debug("read directory failed", zap.String("path", it.fileName), zap.Error(err))
	}

	seen := make(map[*Item]struct{}, len(entries))
	fresh := make([]*Item, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		full := filepath.Join(it.fileName, name)
		if protectedEntry(full, name) {
			continue
		}

		child := fsys.lookup(KeyForPath(full))
		if child == nil {
			isFolder := e.IsDir()
			if e.Type()&os.ModeSymlink != 0 {
				if target, statErr := os.Stat(full); statErr == nil {
					isFolder = target.IsDir()
				}
			}
			child = fsys.newItem(it, full, name, isFolder)
			fsys.mu.Lock()
			fsys.items[child.key] = child
			fsys.mu.Unlock()
		}
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}
		fresh = append(fresh, child)
	}
	slices.SortFunc(fresh, func(a, b *Item) int { return a.compare(b) })

	fsys.mu.Lock()
	var vanished []*Item
	for _, child := range it.children {
		if _, ok := seen[child]; !ok {
			vanished = append(vanished, child)
		}
	}
	for _, child := range fresh {
		child.parent = it
	}
	it.children = fresh
	fsys.mu.Unlock()

	for _, child := range vanished {
		fsys.logger.Debug("pruning vanished item", zap.String("path", child.fileName))
		fsys.removeSubtree(child)
	}

	fsys.mu.Lock()
	it.loaded = true
	it.version = current
	out := slices.Clone(it.children)
	fsys.mu.Unlock()
	return out
}

// CreateDirectory creates name inside the folder and invalidates its children.
func (it *Item) CreateDirectory(name string) error {
	if !it.IsFolder() {
		return fmt.Errorf("cannot create %s: %s is not a folder", name, it.fileName)
	}
	if err := os.Mkdir(filepath.Join(it.fileName, name), 0o755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", name, err)
	}
	if it.fs != nil {
		it.fs.mu.Lock()
		it.version = 0
		it.fs.mu.Unlock()
	}
	return nil
}

// OnItemRemoved registers fn to be called right before an item is detached.
// The returned function unregisters it.
func (fsys *FileSystem) OnItemRemoved(fn func(*Item)) func() {
	fsys.listenersMu.Lock()
	id := fsys.nextID
	fsys.nextID++
	fsys.listeners[id] = fn
	fsys.listenersMu.Unlock()

	return func() {
		fsys.listenersMu.Lock()
		delete(fsys.listeners, id)
		fsys.listenersMu.Unlock()
	}
}

func (fsys *FileSystem) notifyRemoved(item *Item) {
	fsys.listenersMu.Lock()
	fns := make([]func(*Item), 0, len(fsys.listeners))
	for _, fn := range fsys.listeners {
		fns = append(fns, fn)
	}
	fsys.listenersMu.Unlock()

	for _, fn := range fns {
		fn(item)
	}
}

// Remove detaches item and its whole subtree from the cache. It refuses while
// any node of the subtree still has a pending thumbnail job.
func (fsys *FileSystem) Remove(item *Item) error {
	if item == nil {
		return nil
	}
	if item == fsys.Root() {
		return ErrRootItem
	}
	if pending := fsys.findPending(item); pending != nil {
		return fmt.Errorf("remove %s: %w (%s)", item.fileName, ErrThumbnailPending, pending.fileName)
	}
	fsys.removeSubtree(item)
	return nil
}

func (fsys *FileSystem) findPending(item *Item) *Item {
	if item.ThumbnailState().Pending() {
		return item
	}
	fsys.mu.Lock()
	children := slices.Clone(item.children)
	fsys.mu.Unlock()
	for _, child := range children {
		if p := fsys.findPending(child); p != nil {
			return p
		}
	}
	return nil
}

// removeSubtree notifies listeners, then unlinks item from its parent and the
// map and recurses into its children. A worker still holding a removed item
// sees Removed() and drops its result.
func (fsys *FileSystem) removeSubtree(item *Item) {
	fsys.notifyRemoved(item)

	fsys.mu.Lock()
	if parent := item.parent; parent != nil {
		if idx := slices.Index(parent.children, item); idx >= 0 {
			parent.children = slices.Delete(parent.children, idx, idx+1)
		}
	}
	if fsys.items[item.key] == item {
		delete(fsys.items, item.key)
	}
	children := item.children
	item.children = nil
	item.parent = nil
	item.removed.Store(true)
	fsys.mu.Unlock()

	for _, child := range children {
		fsys.mu.Lock()
		child.parent = nil
		fsys.mu.Unlock()
		fsys.removeSubtree(child)
	}
}
