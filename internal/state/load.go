package state

import (
	"fmt"

	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
)

// LoadFolder opens folder and selects its first item.
func LoadFolder(state *AppState, folder *fsutil.Item) error {
	if folder == nil {
		return fmt.Errorf("cannot open folder: not found")
	}
	if !folder.IsBrowsable() {
		return fmt.Errorf("cannot open %s: not a folder", folder.FileName())
	}

	state.Folder = folder
	state.reloadItems()
	state.SelectedIndex = 0
	state.ScrollOffset = 0
	return nil
}

// reloadItems rereads the children of the open folder, keeping the selected
// item selected when it still exists.
func (s *AppState) reloadItems() {
	selected := s.CurrentItem()

	children := s.Folder.Children()
	items := make([]*fsutil.Item, 0, len(children))
	for _, child := range children {
		if !s.ShowHidden && child.IsHidden() {
			continue
		}
		items = append(items, child)
	}
	s.Items = items

	if idx := s.IndexOf(selected); idx >= 0 {
		s.SelectedIndex = idx
	}
	s.updateScrollVisibility()
}
