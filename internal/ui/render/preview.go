package render

import (
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"
	fsutil "github.com/kk-code-lab/rthumb/internal/fs"
	statepkg "github.com/kk-code-lab/rthumb/internal/state"
	"github.com/kk-code-lab/rthumb/internal/textutil"
	"github.com/kk-code-lab/rthumb/internal/thumbnail"
	"github.com/lucasb-eyer/go-colorful"
)

// checkerSize is the edge of one checkerboard square in thumbnail pixels.
const checkerSize = 4

// drawPreviewPanel shows the selected item's thumbnail, or a short note on
// why there is none yet.
func (r *Renderer) drawPreviewPanel(state *statepkg.AppState, layout layoutMetrics, h int) {
	baseStyle := tcell.StyleDefault.Background(r.theme.PreviewBg).Foreground(r.theme.PreviewFg)
	startX := layout.previewStart
	maxX := startX + layout.previewWidth
	bottom := h - 2
	for y := listTop; y < bottom; y++ {
		r.fillRow(startX, y, maxX, baseStyle)
	}

	item := state.CurrentItem()
	if item == nil || bottom <= listTop {
		return
	}

	innerX := startX + previewInnerPadding
	innerWidth := layout.previewWidth - previewInnerPadding*2
	if innerWidth <= 0 {
		return
	}

	title := textutil.Truncate(textutil.SanitizeTerminalText(item.DisplayName()), innerWidth)
	r.drawTextLine(innerX, listTop, innerWidth, title, baseStyle.Bold(true))

	noteY := listTop + 1
	if noteY >= bottom {
		return
	}
	note := func(text string, fg tcell.Color) {
		r.drawTextLine(innerX, noteY, innerWidth, r.truncateTextToWidth(text, innerWidth), baseStyle.Foreground(fg))
	}

	switch {
	case item.IsFolder():
		note("folder", r.theme.FolderFg)
		return
	case !thumbnail.SupportedFormat(item.FileName()):
		note("no preview", r.theme.QueuedFg)
		return
	}

	switch item.ThumbnailState() {
	case fsutil.ThumbClaimed:
		note("queued", r.theme.QueuedFg)
	case fsutil.ThumbInProgress:
		p := item.ThumbnailProgress()
		barWidth := max(innerWidth-5, 1)
		note(progressBar(p, barWidth)+" "+formatPercent(p), r.theme.ProgressFg)
	case fsutil.ThumbFailed:
		note("thumbnail unavailable", r.theme.FailedFg)
	case fsutil.ThumbDone:
		if img := item.Thumbnail(); img != nil {
			r.drawThumbnail(img, innerX, noteY, innerWidth, bottom-noteY)
		}
	}
}

// drawThumbnail paints img with one pixel per column and two per row using
// upper half blocks. Images larger than the area are scaled down with
// nearest sampling; smaller ones are never scaled up.
func (r *Renderer) drawThumbnail(img image.Image, x0, y0, cols, rows int) {
	b := img.Bounds()
	iw, ih := b.Dx(), b.Dy()
	if iw <= 0 || ih <= 0 || cols <= 0 || rows <= 0 {
		return
	}

	dw, dh := fitWithin(iw, ih, cols, rows*2)
	x0 += (cols - dw) / 2
	bg := r.theme.PreviewBg

	for cy := 0; cy*2 < dh; cy++ {
		top := cy * 2
		for cx := 0; cx < dw; cx++ {
			sx := b.Min.X + cx*iw/dw
			fg := r.blendPixel(img.At(sx, b.Min.Y+top*ih/dh), cx, top)
			style := tcell.StyleDefault.Foreground(fg).Background(bg)
			if bottom := top + 1; bottom < dh {
				style = style.Background(r.blendPixel(img.At(sx, b.Min.Y+bottom*ih/dh), cx, bottom))
			}
			r.screen.SetContent(x0+cx, y0+cy, '▀', nil, style)
		}
	}
}

// fitWithin scales w×h down to fit maxW×maxH keeping the aspect ratio.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	if w*maxH > h*maxW {
		return maxW, max(h*maxW/w, 1)
	}
	return max(w*maxH/h, 1), maxH
}

// blendPixel composites c over the checkerboard square at (x, y).
func (r *Renderer) blendPixel(c color.Color, x, y int) tcell.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	if n.A == 0xff {
		return tcell.NewRGBColor(int32(n.R), int32(n.G), int32(n.B))
	}

	fg := colorful.Color{R: float64(n.R) / 255, G: float64(n.G) / 255, B: float64(n.B) / 255}
	out := r.checkerColor(x, y).BlendRgb(fg, float64(n.A)/255)
	cr, cg, cb := out.RGB255()
	return tcell.NewRGBColor(int32(cr), int32(cg), int32(cb))
}

func (r *Renderer) checkerColor(x, y int) colorful.Color {
	tc := r.theme.CheckerLight
	if (x/checkerSize+y/checkerSize)%2 == 1 {
		tc = r.theme.CheckerDark
	}
	cr, cg, cb := tc.RGB()
	return colorful.Color{R: float64(cr) / 255, G: float64(cg) / 255, B: float64(cb) / 255}
}
