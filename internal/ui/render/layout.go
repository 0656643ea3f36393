package render

import "github.com/kk-code-lab/rthumb/internal/thumbnail"

type layoutMetrics struct {
	listWidth      int
	separatorWidth int
	previewStart   int
	previewWidth   int
	showPreview    bool
}

const (
	minListWidth            = 30
	minPreviewPanelWidth    = 20
	minPreviewTerminalWidth = 60
	previewWidthRatio       = 0.45
	previewInnerPadding     = 1
	// One thumbnail pixel per column, so a full-size thumbnail fits.
	previewWidthCap = thumbnail.MaxThumbnailSize + previewInnerPadding*2

	// Rows between the header and the two status lines.
	listTop = 1
)

func computeLayout(w int) layoutMetrics {
	layout := layoutMetrics{listWidth: max(w, 0)}
	if w < minPreviewTerminalWidth {
		return layout
	}

	const separatorWidth = 1
	preview := int(float64(w) * previewWidthRatio)
	preview = min(max(preview, minPreviewPanelWidth), previewWidthCap)
	list := w - preview - separatorWidth
	if list < minListWidth {
		list = minListWidth
		preview = w - list - separatorWidth
	}
	if preview < minPreviewPanelWidth {
		return layout
	}

	layout.listWidth = list
	layout.separatorWidth = separatorWidth
	layout.previewStart = list + separatorWidth
	layout.previewWidth = preview
	layout.showPreview = true
	return layout
}

// ListWidth returns how many columns the item list occupies on a screen w
// columns wide.
func ListWidth(w int) int {
	return computeLayout(w).listWidth
}
