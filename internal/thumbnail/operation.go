// Package thumbnail generates preview images for file items on a bounded pool
// of background workers.
package thumbnail

import (
	"errors"
	"image"
	"image/color"
)

var (
	// ErrStopped is reported by a load that observed a stop request.
	ErrStopped = errors.New("load stopped")
	// ErrUnsupportedFormat is returned for files no decoder understands.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrImageTooLarge is returned for sources above MaxSourcePixels.
	ErrImageTooLarge = errors.New("image too large")
)

// LoadFlags tune a load operation.
type LoadFlags uint8

const (
	// LoadSingleFrame decodes only the first frame.
	LoadSingleFrame LoadFlags = 1 << iota
	// LoadPreserveColorProfile keeps the embedded profile so the renderer
	// can convert pixels into sRGB.
	LoadPreserveColorProfile
)

// Has reports whether all bits of f are set.
func (l LoadFlags) Has(f LoadFlags) bool { return l&f == f }

// LoadOperation is a cancelable, stateful "load a document" job. Operate
// blocks; Stop may be called from any goroutine and is observed at the next
// internal checkpoint.
type LoadOperation interface {
	Operate() error
	IsStop() bool
	Stop()
	SetError(format string, args ...any)
	HasError() bool
	Err() error
	Progress() float64
	Document() *Document
	ReleaseDocument()
	Flags() LoadFlags
}

// Opener creates the load operation for path. Returning an error marks the
// item as permanently without thumbnail.
type Opener func(path string, flags LoadFlags) (LoadOperation, error)

// ColorMode is the pixel format of a decoded document.
type ColorMode int

const (
	ColorModeRGB ColorMode = iota
	ColorModeGrayscale
	ColorModeIndexed
)

// ColorProfile converts colours of a document into sRGB.
type ColorProfile interface {
	Name() string
	IsSRGB() bool
	ToSRGB(c color.NRGBA) color.NRGBA
}

type srgbProfile struct{}

func (srgbProfile) Name() string                      { return "sRGB" }
func (srgbProfile) IsSRGB() bool                      { return true }
func (srgbProfile) ToSRGB(c color.NRGBA) color.NRGBA { return c }

// SRGB is the profile assumed when a file declares none.
var SRGB ColorProfile = srgbProfile{}

// Document is a decoded file ready for rendering.
type Document struct {
	Frames    []image.Image
	ColorMode ColorMode
	Palette   color.Palette
	// TransparentIndex is the palette entry used as mask colour, -1 if none.
	TransparentIndex   int
	HasBackgroundLayer bool
	Profile            ColorProfile
}

// Size returns the dimensions of the first frame.
func (d *Document) Size() (int, int) {
	if d == nil || len(d.Frames) == 0 || d.Frames[0] == nil {
		return 0, 0
	}
	b := d.Frames[0].Bounds()
	return b.Dx(), b.Dy()
}
