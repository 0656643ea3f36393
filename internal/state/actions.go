package state

// Action is the base interface for all state mutations
type Action interface{}

// ===== NAVIGATION ACTIONS =====

type NavigateUpAction struct{}
type NavigateDownAction struct{}
type EnterFolderAction struct{}
type GoUpAction struct{}
type GoToPathAction struct {
	Path string
}

// SelectIndexAction selects the item at Index, e.g. after a mouse click.
type SelectIndexAction struct {
	Index int
}

// ===== SCROLL ACTIONS =====

type ScrollPageUpAction struct{}
type ScrollPageDownAction struct{}
type ScrollHomeAction struct{}
type ScrollEndAction struct{}

// ===== VIEW ACTIONS =====

type ResizeAction struct {
	Width  int
	Height int
}

type RefreshAction struct{}
type ToggleHiddenFilesAction struct{}
type ToggleHelpAction struct{}

// ===== APPLICATION ACTIONS =====

type QuitAction struct{}
type SuspendAction struct{}
