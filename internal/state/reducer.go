package state

import (
	"fmt"

	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
)

// StateReducer applies actions to an AppState.
type StateReducer struct {
	fs *fsutil.FileSystem
}

// NewStateReducer creates a reducer resolving paths through fsys.
func NewStateReducer(fsys *fsutil.FileSystem) *StateReducer {
	return &StateReducer{fs: fsys}
}

// Reduce applies action to state. State is mutated in place and returned for
// convenience.
func (r *StateReducer) Reduce(state *AppState, action Action) (*AppState, error) {
	switch a := action.(type) {

	// ===== NAVIGATION =====

	case NavigateDownAction:
		if state.SelectedIndex >= len(state.Items)-1 {
			return state, nil
		}
		state.SelectedIndex++
		state.updateScrollVisibility()
		return state, nil

	case NavigateUpAction:
		if state.SelectedIndex <= 0 {
			return state, nil
		}
		state.SelectedIndex--
		state.updateScrollVisibility()
		return state, nil

	case SelectIndexAction:
		if a.Index < 0 || a.Index >= len(state.Items) {
			return state, nil
		}
		state.SelectedIndex = a.Index
		state.updateScrollVisibility()
		return state, nil

	case EnterFolderAction:
		item := state.CurrentItem()
		if item == nil || !item.IsBrowsable() {
			return state, nil
		}
		if err := LoadFolder(state, item); err != nil {
			return state, err
		}
		state.LastError = nil
		return state, nil

	case GoUpAction:
		if state.Folder == nil {
			return state, nil
		}
		child := state.Folder
		parent := child.Parent()
		if parent == nil {
			return state, nil
		}
		if err := LoadFolder(state, parent); err != nil {
			return state, err
		}
		if idx := state.IndexOf(child); idx >= 0 {
			state.SelectedIndex = idx
			state.centerScrollOnSelection()
		}
		state.LastError = nil
		return state, nil

	case GoToPathAction:
		folder := r.fs.ItemFromPath(a.Path)
		if folder == nil {
			return state, fmt.Errorf("cannot open %s: not found", a.Path)
		}
		if err := LoadFolder(state, folder); err != nil {
			return state, err
		}
		state.LastError = nil
		return state, nil

	// ===== SCROLL =====

	case ScrollPageDownAction:
		state.SelectedIndex += state.ListHeight()
		state.updateScrollVisibility()
		return state, nil

	case ScrollPageUpAction:
		state.SelectedIndex -= state.ListHeight()
		state.updateScrollVisibility()
		return state, nil

	case ScrollHomeAction:
		state.SelectedIndex = 0
		state.updateScrollVisibility()
		return state, nil

	case ScrollEndAction:
		state.SelectedIndex = len(state.Items) - 1
		state.updateScrollVisibility()
		return state, nil

	// ===== VIEW =====

	case ResizeAction:
		state.ScreenWidth = a.Width
		state.ScreenHeight = a.Height
		state.updateScrollVisibility()
		return state, nil

	case ToggleHiddenFilesAction:
		state.ShowHidden = !state.ShowHidden
		if state.Folder != nil {
			state.reloadItems()
		}
		return state, nil

	case ToggleHelpAction:
		state.HelpVisible = !state.HelpVisible
		return state, nil

	case RefreshAction:
		return state, r.refresh(state)
	}

	return state, nil
}

// refresh drops cached listings and reloads the open folder. When the folder
// itself vanished, the closest existing ancestor is opened instead.
func (r *StateReducer) refresh(state *AppState) error {
	r.fs.Refresh()
	if state.Folder == nil {
		return nil
	}

	folder := state.Folder
	for folder != nil && !folder.IsExistent() {
		folder = folder.Parent()
	}
	if folder == nil {
		folder = r.fs.ItemFromPath("")
	}
	if folder != state.Folder {
		return LoadFolder(state, folder)
	}
	state.reloadItems()
	return nil
}
