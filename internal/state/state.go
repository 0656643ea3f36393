package state

import (
	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
)

// chromeRows is the number of screen rows not used by the item list: the
// header on top plus the path and help lines at the bottom.
const chromeRows = 3

// headerRows is the number of rows above the item list.
const headerRows = 1

// ThumbnailStatus summarises the thumbnail workers for the status line.
type ThumbnailStatus struct {
	Live   int
	Max    int
	Queued int
}

// AppState is the single source of truth
type AppState struct {
	// Navigation
	Folder *fsutil.Item
	Items  []*fsutil.Item // children of Folder, sorted, hidden ones dropped unless ShowHidden

	// Selection & viewport
	SelectedIndex int
	ScrollOffset  int

	ShowHidden  bool
	HelpVisible bool

	// Dimensions
	ScreenWidth  int
	ScreenHeight int

	Thumbnails ThumbnailStatus

	// Error state
	LastError error
}

// CurrentItem returns the selected item or nil.
func (s *AppState) CurrentItem() *fsutil.Item {
	if s.SelectedIndex < 0 || s.SelectedIndex >= len(s.Items) {
		return nil
	}
	return s.Items[s.SelectedIndex]
}

// CurrentPath returns the path of the open folder.
func (s *AppState) CurrentPath() string {
	if s.Folder == nil {
		return ""
	}
	return s.Folder.FileName()
}

// CurrentFilePath returns the path of the selected item, or of the folder
// when nothing is selected.
func (s *AppState) CurrentFilePath() string {
	if item := s.CurrentItem(); item != nil {
		return item.FileName()
	}
	return s.CurrentPath()
}

// ListHeight returns how many items fit on screen.
func (s *AppState) ListHeight() int {
	if h := s.ScreenHeight - chromeRows; h > 0 {
		return h
	}
	return 1
}

// VisibleItems returns the items currently scrolled into view.
func (s *AppState) VisibleItems() []*fsutil.Item {
	start := s.ScrollOffset
	if start < 0 || start >= len(s.Items) {
		return nil
	}
	end := min(start+s.ListHeight(), len(s.Items))
	return s.Items[start:end]
}

// ItemIndexAtRow maps a screen row to an index into Items, or -1 when the row
// shows no item.
func (s *AppState) ItemIndexAtRow(y int) int {
	row := y - headerRows
	if row < 0 || row >= s.ListHeight() {
		return -1
	}
	idx := s.ScrollOffset + row
	if idx >= len(s.Items) {
		return -1
	}
	return idx
}

// IndexOf returns the position of item in Items or -1.
func (s *AppState) IndexOf(item *fsutil.Item) int {
	for i, it := range s.Items {
		if it == item {
			return i
		}
	}
	return -1
}

func (s *AppState) clampSelection() {
	if len(s.Items) == 0 {
		s.SelectedIndex = 0
		s.ScrollOffset = 0
		return
	}
	if s.SelectedIndex < 0 {
		s.SelectedIndex = 0
	}
	if s.SelectedIndex >= len(s.Items) {
		s.SelectedIndex = len(s.Items) - 1
	}
}

func (s *AppState) updateScrollVisibility() {
	s.clampSelection()
	visibleLines := s.ListHeight()

	if s.SelectedIndex < s.ScrollOffset {
		s.ScrollOffset = s.SelectedIndex
	} else if s.SelectedIndex >= s.ScrollOffset+visibleLines {
		s.ScrollOffset = s.SelectedIndex - visibleLines + 1
	}

	maxOffset := max(len(s.Items)-visibleLines, 0)
	if s.ScrollOffset < 0 {
		s.ScrollOffset = 0
	}
	if s.ScrollOffset > maxOffset {
		s.ScrollOffset = maxOffset
	}
}

func (s *AppState) centerScrollOnSelection() {
	s.clampSelection()
	visibleLines := s.ListHeight()
	s.ScrollOffset = s.SelectedIndex - visibleLines/2

	maxOffset := max(len(s.Items)-visibleLines, 0)
	if s.ScrollOffset < 0 {
		s.ScrollOffset = 0
	}
	if s.ScrollOffset > maxOffset {
		s.ScrollOffset = maxOffset
	}
}
