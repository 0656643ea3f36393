package thumbnail

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// MaxThumbnailSize bounds the larger side of every thumbnail.
const MaxThumbnailSize = 128

// RenderOptions describe one render of a document frame.
type RenderOptions struct {
	Frame                 int
	Width                 int
	Height                int
	TransparentBackground bool
	ConvertToSRGB         bool
}

// Renderer draws a document frame into a bitmap of the requested size.
type Renderer interface {
	Render(doc *Document, opts RenderOptions) (*image.NRGBA, error)
}

// ThumbnailSize returns the thumbnail dimensions for a w x h source: the
// larger side becomes min(max(w, h), MaxThumbnailSize), the other side keeps
// the aspect ratio rounded down, and neither side drops below 1.
func ThumbnailSize(w, h int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w >= h {
		tw := min(w, MaxThumbnailSize)
		return tw, max(1, h*tw/w)
	}
	th := min(h, MaxThumbnailSize)
	return max(1, w*th/h), th
}

// ImagingRenderer is the default Renderer, backed by disintegration/imaging.
type ImagingRenderer struct {
	Filter imaging.ResampleFilter
}

// NewImagingRenderer returns a renderer using Lanczos resampling.
func NewImagingRenderer() *ImagingRenderer {
	return &ImagingRenderer{Filter: imaging.Lanczos}
}

func (r *ImagingRenderer) Render(doc *Document, opts RenderOptions) (*image.NRGBA, error) {
	if doc == nil {
		return nil, errors.New("render: no document")
	}
	if opts.Frame < 0 || opts.Frame >= len(doc.Frames) || doc.Frames[opts.Frame] == nil {
		return nil, fmt.Errorf("render: frame %d out of range", opts.Frame)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("render: invalid size %dx%d", opts.Width, opts.Height)
	}

	src := doc.Frames[opts.Frame]
	b := src.Bounds()
	var canvas *image.NRGBA
	if b.Dx() == opts.Width && b.Dy() == opts.Height {
		canvas = imaging.Clone(src)
	} else {
		canvas = imaging.Resize(src, opts.Width, opts.Height, r.Filter)
	}
	if !opts.TransparentBackground {
		white := imaging.New(opts.Width, opts.Height, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
		canvas = imaging.Overlay(white, canvas, image.Point{}, 1.0)
	}

	if opts.ConvertToSRGB && doc.Profile != nil && !doc.Profile.IsSRGB() {
		convertToSRGB(canvas, doc.Profile)
	}
	return canvas, nil
}

func convertToSRGB(img *image.NRGBA, profile ColorProfile) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		c := profile.ToSRGB(color.NRGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2], A: img.Pix[i+3]})
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
}

// prepareDocument makes the mask colour of an indexed document without a
// background layer fully transparent.
func prepareDocument(doc *Document) {
	if doc.ColorMode != ColorModeIndexed || doc.HasBackgroundLayer {
		return
	}
	idx := doc.TransparentIndex
	if idx < 0 {
		return
	}
	clearAlpha := func(p color.Palette) {
		if idx >= len(p) {
			return
		}
		c := color.NRGBAModel.Convert(p[idx]).(color.NRGBA)
		c.A = 0
		p[idx] = c
	}
	clearAlpha(doc.Palette)
	for _, frame := range doc.Frames {
		if pm, ok := frame.(*image.Paletted); ok {
			clearAlpha(pm.Palette)
		}
	}
}
