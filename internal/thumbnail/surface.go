package thumbnail

import (
	"errors"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// Surface is a displayable bitmap handed to the UI.
type Surface interface {
	image.Image
	Width() int
	Height() int
}

// SurfaceFactory allocates surfaces and converts rendered bitmaps into them.
type SurfaceFactory interface {
	NewSurface(w, h int) Surface
	Convert(img image.Image, palette color.Palette) (Surface, error)
}

// RGBASurface is a premultiplied RGBA surface.
type RGBASurface struct {
	*image.RGBA
}

func (s *RGBASurface) Width() int  { return s.Bounds().Dx() }
func (s *RGBASurface) Height() int { return s.Bounds().Dy() }

// RGBASurfaceFactory produces RGBASurface values.
type RGBASurfaceFactory struct{}

func (RGBASurfaceFactory) NewSurface(w, h int) Surface {
	return &RGBASurface{RGBA: image.NewRGBA(image.Rect(0, 0, w, h))}
}

// Convert copies img into a new surface. For paletted input, palette replaces
// the image palette when given.
func (f RGBASurfaceFactory) Convert(img image.Image, palette color.Palette) (Surface, error) {
	if img == nil {
		return nil, errors.New("convert: nil image")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("convert: empty image")
	}
	if pm, ok := img.(*image.Paletted); ok && len(palette) > 0 {
		img = &image.Paletted{Pix: pm.Pix, Stride: pm.Stride, Rect: pm.Rect, Palette: palette}
	}

	s := f.NewSurface(b.Dx(), b.Dy()).(*RGBASurface)
	xdraw.Draw(s.RGBA, s.Bounds(), img, b.Min, xdraw.Src)
	return s, nil
}
