package render

import (
	"path/filepath"
	"sync"

	"github.com/gdamore/tcell/v2"
	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
	statepkg "github.com/kk-code-lab/rthumb/internal/state"
	textutil "github.com/kk-code-lab/rthumb/internal/textutil"
)

// Renderer handles all UI rendering
type Renderer struct {
	screen           tcell.Screen
	theme            ColorTheme
	runeWidthCache   [128]int // ASCII cache (0-127)
	runeWidthCacheMu sync.RWMutex
	runeWidthWide    sync.Map // For non-ASCII runes
}

// NewRenderer creates a new renderer
func NewRenderer(screen tcell.Screen) *Renderer {
	return &Renderer{
		screen: screen,
		theme:  GetColorTheme(),
	}
}

// Render draws the entire UI based on state
func (r *Renderer) Render(state *statepkg.AppState) {
	r.screen.Clear()

	w, h := r.screen.Size()
	if state == nil || w <= 0 || h <= 0 {
		r.screen.Show()
		return
	}

	if state.HelpVisible {
		r.drawHelpOverlay(state, w, h)
		r.screen.Show()
		return
	}

	layout := computeLayout(w)

	r.drawHeader(state, w)
	r.drawFileList(state, layout, h)
	if layout.showPreview {
		sepX := layout.previewStart - layout.separatorWidth
		for y := listTop; y < h-2; y++ {
			r.screen.SetContent(sepX, y, '│', nil, tcell.StyleDefault.Foreground(r.theme.QueuedFg))
		}
		r.drawPreviewPanel(state, layout, h)
	}
	r.drawStatusLine(state, w, h)

	r.screen.Show()
}

// drawHeader renders the top bar with the title and the open folder. The
// folder name is bold; when the path does not fit it loses its beginning.
func (r *Renderer) drawHeader(state *statepkg.AppState, w int) {
	headerStyle := tcell.StyleDefault.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg)

	endX := r.drawTextLine(0, 0, w, "rthumb ", headerStyle.Bold(true))
	available := w - endX

	path := textutil.SanitizeTerminalText(state.CurrentPath())
	if path == "" {
		path = "/"
	}

	if available > 0 {
		if r.measureTextWidth(path) <= available {
			dir, base := filepath.Split(path)
			if base == "" {
				dir, base = "", path
			}
			endX = r.drawTextLine(endX, 0, available, dir, headerStyle)
			endX = r.drawTextLine(endX, 0, w-endX, base, headerStyle.Bold(true))
		} else {
			endX = r.drawTextLine(endX, 0, available, textutil.TruncateLeft(path, available), headerStyle.Bold(true))
		}
	}

	r.fillRow(endX, 0, w, headerStyle)
}

// drawFileList renders the visible items with their thumbnail indicators.
func (r *Renderer) drawFileList(state *statepkg.AppState, layout layoutMetrics, h int) {
	baseStyle := tcell.StyleDefault.Background(r.theme.Background).Foreground(r.theme.Foreground)
	panelWidth := layout.listWidth
	bottomLimit := h - 2

	indicatorWidth := 0
	if panelWidth >= minListWidth {
		indicatorWidth = thumbIndicatorWidth + 1
	}

	y := listTop
	for i, item := range state.VisibleItems() {
		if y >= bottomLimit {
			break
		}
		idx := state.ScrollOffset + i
		isSelected := idx == state.SelectedIndex

		var rowStyle tcell.Style
		switch {
		case isSelected:
			rowStyle = tcell.StyleDefault.Background(r.theme.SelectionBg).Foreground(r.theme.SelectionFg)
		case item.IsFolder():
			rowStyle = baseStyle.Foreground(r.theme.FolderFg)
		default:
			rowStyle = baseStyle.Foreground(r.theme.FileFg)
		}
		if item.IsHidden() && !isSelected {
			rowStyle = rowStyle.Foreground(r.theme.HiddenFg)
		}

		icon := " "
		if item.IsFolder() {
			icon = "/"
		}
		prefix := " " + icon + " "
		nameWidth := panelWidth - r.measureTextWidth(prefix) - indicatorWidth
		displayName := ""
		if nameWidth > 0 {
			displayName = r.truncateTextToWidth(textutil.SanitizeTerminalText(item.DisplayName()), nameWidth)
		}

		endX := r.drawTextLine(0, y, panelWidth, prefix+displayName, rowStyle)
		r.fillRow(endX, y, panelWidth, rowStyle)

		if indicatorWidth > 0 {
			r.drawThumbIndicator(item, panelWidth-thumbIndicatorWidth-1, y, rowStyle, isSelected)
		}
		y++
	}

	for ; y < bottomLimit; y++ {
		r.fillRow(0, y, panelWidth, baseStyle)
	}
}

// drawThumbIndicator right-aligns the thumbnail label of item in a column
// thumbIndicatorWidth cells wide starting at x.
func (r *Renderer) drawThumbIndicator(item *fsutil.Item, x, y int, rowStyle tcell.Style, selected bool) {
	label, kind := formatThumbnailLabel(item)
	if label == "" {
		return
	}

	style := rowStyle
	if !selected {
		switch kind {
		case thumbLabelQueued:
			style = style.Foreground(r.theme.QueuedFg)
		case thumbLabelProgress:
			style = style.Foreground(r.theme.ProgressFg)
		case thumbLabelDone:
			style = style.Foreground(r.theme.DoneFg)
		case thumbLabelFailed:
			style = style.Foreground(r.theme.FailedFg)
		}
	}

	pad := thumbIndicatorWidth - r.measureTextWidth(label)
	r.drawTextLine(x+max(pad, 0), y, thumbIndicatorWidth, label, style)
}

// drawStatusLine renders the selected path and the help line below it.
// Errors replace the help text until the next successful navigation.
func (r *Renderer) drawStatusLine(state *statepkg.AppState, w, h int) {
	normalStyle := tcell.StyleDefault.Background(r.theme.FooterBg).Foreground(r.theme.FooterFg)

	if pathY := h - 2; pathY >= listTop {
		pathText := textutil.SanitizeTerminalText(state.CurrentFilePath())
		pathText = textutil.TruncateLeft(pathText, w)
		endX := r.drawTextLine(0, pathY, w, pathText, normalStyle)
		r.fillRow(endX, pathY, w, normalStyle)
	}

	helpY := h - 1
	workers := formatWorkerStatus(state.Thumbnails)
	workersWidth := 0
	if workers != "" {
		workers = " " + workers + " "
		workersWidth = r.measureTextWidth(workers)
		if workersWidth > w {
			workers, workersWidth = "", 0
		}
	}

	leftWidth := w - workersWidth
	leftStyle := normalStyle
	leftText := buildFooterHelpText(state)
	if state.LastError != nil {
		leftStyle = normalStyle.Foreground(r.theme.ErrorFg)
		leftText = " " + state.LastError.Error()
	}
	leftText = r.truncateTextToWidth(textutil.SanitizeTerminalText(leftText), leftWidth)

	endX := r.drawTextLine(0, helpY, leftWidth, leftText, leftStyle)
	r.fillRow(endX, helpY, leftWidth, normalStyle)
	if workers != "" {
		r.drawTextLine(leftWidth, helpY, workersWidth, workers, normalStyle.Foreground(r.theme.ProgressFg))
	}
}
