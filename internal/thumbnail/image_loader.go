package thumbnail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxSourcePixels caps the pixel count of a decoded frame. Larger sources
// fail instead of being decoded.
const MaxSourcePixels = 64 << 20

var imageExtensions = map[string]struct{}{
	".bmp":  {},
	".gif":  {},
	".jpeg": {},
	".jpg":  {},
	".png":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// SupportedFormat reports whether path has an extension OpenImage decodes.
func SupportedFormat(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// OpenImage is the default Opener. It rejects folders, unreadable files and
// unknown extensions before anything is queued.
func OpenImage(path string, flags LoadFlags) (LoadOperation, error) {
	if !SupportedFormat(path) {
		return nil, fmt.Errorf("open %s: %w", path, ErrUnsupportedFormat)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open %s: is a directory", path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &imageLoadOp{
		path:   path,
		flags:  flags,
		size:   info.Size(),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

type imageLoadOp struct {
	path   string
	flags  LoadFlags
	size   int64
	ctx    context.Context
	cancel context.CancelFunc
	read   atomic.Int64

	mu  sync.Mutex
	err error
	doc *Document
}

func (op *imageLoadOp) Operate() error {
	f, err := os.Open(op.path)
	if err != nil {
		op.setErr(err)
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if err := checkDimensions(f); err != nil {
		op.setErr(err)
		return err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		op.setErr(err)
		return err
	}

	r := bufio.NewReader(&progressReader{ctx: op.ctx, r: f, n: &op.read})

	var doc *Document
	if !op.flags.Has(LoadSingleFrame) && strings.EqualFold(filepath.Ext(op.path), ".gif") {
		doc, err = decodeAnimatedGIF(r)
	} else {
		doc, err = decodeFirstFrame(r)
	}
	if err != nil {
		if op.IsStop() {
			err = ErrStopped
		}
		op.setErr(err)
		return err
	}

	if orientation := readOrientation(op.path); orientation > 1 {
		for i, frame := range doc.Frames {
			doc.Frames[i] = applyOrientation(frame, orientation)
		}
	}

	op.mu.Lock()
	op.doc = doc
	op.mu.Unlock()
	return nil
}

func (op *imageLoadOp) IsStop() bool { return op.ctx.Err() != nil }

func (op *imageLoadOp) Stop() { op.cancel() }

func (op *imageLoadOp) SetError(format string, args ...any) {
	op.setErr(fmt.Errorf(format, args...))
}

func (op *imageLoadOp) setErr(err error) {
	op.mu.Lock()
	if op.err == nil {
		op.err = err
	}
	op.mu.Unlock()
}

func (op *imageLoadOp) HasError() bool { return op.Err() != nil }

func (op *imageLoadOp) Err() error {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.err
}

func (op *imageLoadOp) Progress() float64 {
	if op.size <= 0 {
		return 0
	}
	p := float64(op.read.Load()) / float64(op.size)
	if p > 1 {
		p = 1
	}
	return p
}

func (op *imageLoadOp) Document() *Document {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.doc
}

func (op *imageLoadOp) ReleaseDocument() {
	op.mu.Lock()
	op.doc = nil
	op.mu.Unlock()
}

func (op *imageLoadOp) Flags() LoadFlags { return op.flags }

// progressReader counts bytes and is the cancellation checkpoint of a load.
type progressReader struct {
	ctx context.Context
	r   io.Reader
	n   *atomic.Int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	if p.ctx.Err() != nil {
		return 0, ErrStopped
	}
	n, err := p.r.Read(b)
	p.n.Add(int64(n))
	return n, err
}

// checkDimensions reads the image header and rejects sources whose frames
// would not fit under MaxSourcePixels.
func checkDimensions(r io.Reader) error {
	cfg, _, err := image.DecodeConfig(bufio.NewReader(r))
	if err != nil {
		return err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrImageTooLarge)
	}
	return nil
}

func decodeFirstFrame(r io.Reader) (*Document, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return newDocument([]image.Image{img}), nil
}

func decodeAnimatedGIF(r io.Reader) (*Document, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	if len(g.Image) == 0 {
		return nil, errors.New("gif has no frames")
	}
	frames := make([]image.Image, len(g.Image))
	for i, frame := range g.Image {
		frames[i] = frame
	}
	return newDocument(frames), nil
}

func newDocument(frames []image.Image) *Document {
	doc := &Document{
		Frames:           frames,
		TransparentIndex: -1,
		Profile:          SRGB,
	}
	switch src := frames[0].(type) {
	case *image.Paletted:
		doc.ColorMode = ColorModeIndexed
		doc.Palette = src.Palette
		doc.TransparentIndex = transparentIndex(src.Palette)
	case *image.Gray, *image.Gray16:
		doc.ColorMode = ColorModeGrayscale
	default:
		doc.ColorMode = ColorModeRGB
	}
	return doc
}

func transparentIndex(p color.Palette) int {
	for i, c := range p {
		if _, _, _, a := c.RGBA(); a == 0 {
			return i
		}
	}
	return -1
}

// readOrientation returns the EXIF orientation of a JPEG, or 1.
func readOrientation(path string) int {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return 1
	}
	f, err := os.Open(path)
	if err != nil {
		return 1
	}
	defer func() {
		_ = f.Close()
	}()

	x, err := exif.Decode(f)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return 1
	}
	return v
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
