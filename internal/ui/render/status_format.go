package render

import (
	"fmt"
	"math"
	"strings"

	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
	statepkg "github.com/kk-code-lab/rthumb/internal/state"
)

type thumbLabelKind int

const (
	thumbLabelNone thumbLabelKind = iota
	thumbLabelQueued
	thumbLabelProgress
	thumbLabelDone
	thumbLabelFailed
)

const (
	progressBarWidth = 6
	// Bar, a space and a right-aligned percentage.
	thumbIndicatorWidth = progressBarWidth + 5
)

// formatThumbnailLabel describes the thumbnail state of item in at most
// thumbIndicatorWidth cells.
func formatThumbnailLabel(item *fsutil.Item) (string, thumbLabelKind) {
	if item == nil || item.IsFolder() {
		return "", thumbLabelNone
	}
	switch item.ThumbnailState() {
	case fsutil.ThumbClaimed:
		return "queued", thumbLabelQueued
	case fsutil.ThumbInProgress:
		p := item.ThumbnailProgress()
		return progressBar(p, progressBarWidth) + " " + formatPercent(p), thumbLabelProgress
	case fsutil.ThumbDone:
		img := item.Thumbnail()
		if img == nil {
			return "", thumbLabelNone
		}
		b := img.Bounds()
		return fmt.Sprintf("%dx%d", b.Dx(), b.Dy()), thumbLabelDone
	case fsutil.ThumbFailed:
		return "n/a", thumbLabelFailed
	default:
		return "", thumbLabelNone
	}
}

// progressBar draws p in [0, 1] as a bar width cells wide. A cell is only
// filled once its whole share is reached, so the bar is full only at 1.
func progressBar(p float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(clampUnit(p) * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%3d%%", int(clampUnit(p)*100))
}

func clampUnit(p float64) float64 {
	switch {
	case p < 0 || math.IsNaN(p):
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// formatWorkerStatus summarises the thumbnail pool for the footer.
func formatWorkerStatus(status statepkg.ThumbnailStatus) string {
	if status.Max == 0 {
		return ""
	}
	parts := []string{fmt.Sprintf("workers %d/%d", status.Live, status.Max)}
	if status.Queued > 0 {
		parts = append(parts, fmt.Sprintf("queued %d", status.Queued))
	}
	return strings.Join(parts, " · ")
}
