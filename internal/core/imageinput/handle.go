package imageinput

import (
	"image"
	"image/color"
	"time"

	"visionkit/internal/core/geometry"
)

// Kind names the representation behind a Handle
type Kind uint8

// Handle kinds
const (
	KindBitmap Kind = iota + 1
	KindNative
	KindSample
	KindPixels
	KindEncoded
)

// String returns the kind name used in logs
func (k Kind) String() string {
	switch k {
	case KindBitmap:
		return "bitmap"
	case KindNative:
		return "native"
	case KindSample:
		return "sample"
	case KindPixels:
		return "pixels"
	case KindEncoded:
		return "encoded"
	default:
		return "unknown"
	}
}

// Handle is the framework-consumable form of an Input.
// Facade callers treat it as opaque; framework adapters read it through the accessors.
type Handle struct {
	kind        Kind
	size        geometry.Size
	orientation Orientation
	img         image.Image
	buffer      Buffer
	pixels      Pixels
	encoded     []byte
	format      string
	timestamp   time.Duration
}

// Kind returns the source representation
func (h Handle) Kind() Kind { return h.kind }

// Size returns the oriented image size in pixels
func (h Handle) Size() geometry.Size { return h.size }

// Orientation returns the bitmap orientation (Up for every other kind)
func (h Handle) Orientation() Orientation {
	if h.orientation == 0 {
		return OrientationUp
	}
	return h.orientation
}

// Timestamp returns the sample presentation time, zero for stills
func (h Handle) Timestamp() time.Duration { return h.timestamp }

// Buffer returns the native buffer for Native and Sample handles
func (h Handle) Buffer() (Buffer, bool) { return h.buffer, h.buffer != nil }

// Encoded returns the compressed bytes and their format name for Encoded handles
func (h Handle) Encoded() ([]byte, string, bool) {
	return h.encoded, h.format, h.kind == KindEncoded
}

// Image returns a read-only image view for Bitmap and Pixels handles.
// Native buffers that also implement image.Image are returned as-is.
func (h Handle) Image() (image.Image, bool) {
	switch h.kind {
	case KindBitmap:
		return h.img, true
	case KindPixels:
		return pixelView(h.pixels), true
	case KindNative, KindSample:
		if img, ok := h.buffer.(image.Image); ok {
			return img, true
		}
	}
	return nil, false
}

// pixelView wraps p without copying
func pixelView(p Pixels) image.Image {
	r := image.Rect(0, 0, p.Width, p.Height)
	switch p.Format {
	case FormatRGBA32:
		return &image.RGBA{Pix: p.Pix, Stride: p.Stride, Rect: r}
	case FormatGray8:
		return &image.Gray{Pix: p.Pix, Stride: p.Stride, Rect: r}
	default:
		return bgraImage{p: p}
	}
}

// bgraImage reads BGRA bytes in place
type bgraImage struct{ p Pixels }

func (b bgraImage) ColorModel() color.Model { return color.RGBAModel }

func (b bgraImage) Bounds() image.Rectangle { return image.Rect(0, 0, b.p.Width, b.p.Height) }

func (b bgraImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(b.Bounds()) {
		return color.RGBA{}
	}
	i := y*b.p.Stride + x*4
	s := b.p.Pix[i : i+4 : i+4]
	return color.RGBA{R: s[2], G: s[1], B: s[0], A: s[3]}
}
