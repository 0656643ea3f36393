package fs

import (
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ThumbState is the lifecycle of an item's thumbnail.
type ThumbState int

const (
	// ThumbNotRequested means nobody asked for a thumbnail yet (or a queued
	// request was discarded).
	ThumbNotRequested ThumbState = iota
	// ThumbClaimed means a request sits in the queue but no worker picked it up.
	ThumbClaimed
	// ThumbInProgress means a worker is loading the item.
	ThumbInProgress
	// ThumbDone means a thumbnail was produced.
	ThumbDone
	// ThumbFailed means generation was attempted and gave up for good.
	ThumbFailed
)

// ClaimedProgress is the numeric progress reported for ThumbClaimed items.
const ClaimedProgress = 0.00001

func (s ThumbState) String() string {
	switch s {
	case ThumbNotRequested:
		return "not-requested"
	case ThumbClaimed:
		return "claimed"
	case ThumbInProgress:
		return "in-progress"
	case ThumbDone:
		return "done"
	case ThumbFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further automatic work happens in this state.
func (s ThumbState) Terminal() bool {
	return s == ThumbDone || s == ThumbFailed
}

// Pending reports whether a work item references the owner of this state.
func (s ThumbState) Pending() bool {
	return s == ThumbClaimed || s == ThumbInProgress
}

// Item is one node of the in-memory mirror of the host file system.
//
// Names and tree links are owned by the UI goroutine. Thumbnail state may be
// written by a worker and is guarded by its own mutex.
type Item struct {
	fs *FileSystem

	key         string
	fileName    string
	displayName string
	isFolder    atomic.Bool
	removed     atomic.Bool

	// guarded by fs.mu
	parent   *Item
	children []*Item
	loaded   bool
	version  uint64

	thumbMu       sync.Mutex
	thumbState    ThumbState
	thumbJob      uuid.UUID
	thumbProgress float64
	thumbnail     image.Image
}

// Key returns the normalized identity of the item.
func (it *Item) Key() string { return it.key }

// FileName returns the full path of the item.
func (it *Item) FileName() string { return it.fileName }

// DisplayName returns the name shown to the user.
func (it *Item) DisplayName() string { return it.displayName }

// IsFolder reports whether the item is a directory.
func (it *Item) IsFolder() bool { return it.isFolder.Load() }

// IsBrowsable reports whether the UI can descend into the item.
func (it *Item) IsBrowsable() bool { return it.IsFolder() }

// IsHidden reports whether the item is hidden on this platform.
func (it *Item) IsHidden() bool {
	if it.fs != nil && it == it.fs.root {
		return false
	}
	return hiddenEntry(it.fileName, it.displayName)
}

// IsExistent re-checks the disk and refreshes the folder flag.
func (it *Item) IsExistent() bool {
	info, err := os.Stat(it.fileName)
	if err != nil {
		return false
	}
	it.isFolder.Store(info.IsDir())
	return true
}

// Removed reports whether the item was detached from the tree.
func (it *Item) Removed() bool { return it.removed.Load() }

// HasExtension reports whether the file name ends with one of exts. Dots and
// case are ignored.
func (it *Item) HasExtension(exts ...string) bool {
	ext := strings.TrimPrefix(filepath.Ext(it.fileName), ".")
	if ext == "" {
		return false
	}
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.EqualFold(strings.TrimPrefix(e, "."), ext)
	})
}

// Parent returns the parent item, or nil for the root.
func (it *Item) Parent() *Item {
	if it.fs == nil {
		return nil
	}
	it.fs.mu.Lock()
	defer it.fs.mu.Unlock()
	return it.parent
}

// Thumbnail returns the generated thumbnail, or nil when none exists.
func (it *Item) Thumbnail() image.Image {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	return it.thumbnail
}

// ThumbnailProgress returns the numeric view of the thumbnail state: 0 when
// not requested, ClaimedProgress when claimed, the load progress while in
// progress and 1 once terminal.
func (it *Item) ThumbnailProgress() float64 {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	return it.thumbProgress
}

// ThumbnailState returns the current thumbnail state.
func (it *Item) ThumbnailState() ThumbState {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	return it.thumbState
}

// NeedThumbnail reports whether a thumbnail could still be generated.
func (it *Item) NeedThumbnail() bool {
	if it.IsBrowsable() {
		return false
	}
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	return it.thumbnail == nil && !it.thumbState.Terminal()
}

// ClaimThumbnail moves a not-requested item into the claimed state on behalf
// of job. Every later transition must name the same job.
func (it *Item) ClaimThumbnail(job uuid.UUID) bool {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	if it.thumbState != ThumbNotRequested {
		return false
	}
	it.thumbState = ThumbClaimed
	it.thumbJob = job
	it.thumbProgress = ClaimedProgress
	return true
}

// ThumbnailJob returns the job holding the current claim, or uuid.Nil.
func (it *Item) ThumbnailJob() uuid.UUID {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	return it.thumbJob
}

// StartThumbnail moves a claimed item into the in-progress state. It fails
// when the claim was withdrawn or handed to another job in the meantime.
func (it *Item) StartThumbnail(job uuid.UUID) bool {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	if it.thumbState != ThumbClaimed || it.thumbJob != job {
		return false
	}
	it.thumbState = ThumbInProgress
	return true
}

// SetThumbnailProgress raises the progress of an item job is loading. Lower
// values are ignored and the value never reaches 1 before completion.
func (it *Item) SetThumbnailProgress(job uuid.UUID, p float64) {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	if it.thumbState != ThumbInProgress || it.thumbJob != job {
		return
	}
	if p >= 1 {
		p = 0.99999
	}
	if p > it.thumbProgress {
		it.thumbProgress = p
	}
}

// SetThumbnail installs img and marks the item done. A nil img marks it
// failed. It reports false when job no longer owns the item.
func (it *Item) SetThumbnail(job uuid.UUID, img image.Image) bool {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	if it.thumbJob != job || it.thumbState.Terminal() {
		return false
	}
	it.thumbnail = img
	it.thumbProgress = 1
	if img == nil {
		it.thumbState = ThumbFailed
		return true
	}
	it.thumbState = ThumbDone
	return true
}

// FailThumbnail marks the item failed unless a thumbnail already exists or
// job no longer owns it.
func (it *Item) FailThumbnail(job uuid.UUID) {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	if it.thumbnail != nil || it.thumbJob != job {
		return
	}
	it.thumbState = ThumbFailed
	it.thumbProgress = 1
}

// ResetThumbnail withdraws the pending request of job so the item can be
// asked for again later. Terminal states and newer claims are left untouched.
func (it *Item) ResetThumbnail(job uuid.UUID) {
	it.thumbMu.Lock()
	defer it.thumbMu.Unlock()
	if !it.thumbState.Pending() || it.thumbJob != job {
		return
	}
	it.thumbState = ThumbNotRequested
	it.thumbJob = uuid.Nil
	it.thumbProgress = 0
}

// compare orders folders first, then by natural file name.
func (it *Item) compare(other *Item) int {
	a, b := it.IsFolder(), other.IsFolder()
	switch {
	case a && !b:
		return -1
	case !a && b:
		return 1
	}
	return CompareFileNames(it.displayName, other.displayName)
}
