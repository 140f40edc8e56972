package imageinput

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	perr "visionkit/internal/platform/errors"
)

type fakeBuffer struct{ w, h int }

func (b fakeBuffer) Dimensions() (int, int) { return b.w, b.h }

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalize_ValidInputs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   Input
		kind Kind
		w, h float64
	}{
		{"bitmap", Bitmap{Image: image.NewRGBA(image.Rect(0, 0, 40, 30))}, KindBitmap, 40, 30},
		{"bitmap pointer", &Bitmap{Image: image.NewGray(image.Rect(0, 0, 8, 2))}, KindBitmap, 8, 2},
		{"bitmap rotated", Bitmap{Image: image.NewRGBA(image.Rect(0, 0, 40, 30)), Orientation: OrientationRight}, KindBitmap, 30, 40},
		{"native", Native{Buffer: fakeBuffer{1920, 1080}}, KindNative, 1920, 1080},
		{"sample", Sample{Buffer: fakeBuffer{640, 480}, Timestamp: time.Second}, KindSample, 640, 480},
		{"pixels", Pixels{Pix: make([]byte, 4*4*3), Width: 4, Height: 3, Stride: 16}, KindPixels, 4, 3},
		{"pixels gray padded", Pixels{Pix: make([]byte, 8*2), Width: 5, Height: 2, Stride: 8, Format: FormatGray8}, KindPixels, 5, 2},
		{"encoded png", Encoded{Data: pngBytes(t, 12, 7)}, KindEncoded, 12, 7},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h, size, err := Normalize(c.in)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if h.Kind() != c.kind {
				t.Fatalf("kind = %s, want %s", h.Kind(), c.kind)
			}
			if size.Width != c.w || size.Height != c.h {
				t.Fatalf("size = %+v, want %gx%g", size, c.w, c.h)
			}
			if h.Size() != size {
				t.Fatalf("handle size %+v differs from returned %+v", h.Size(), size)
			}
		})
	}
}

func TestNormalize_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   Input
	}{
		{"nil input", nil},
		{"bitmap without data", Bitmap{}},
		{"nil bitmap pointer", (*Bitmap)(nil)},
		{"zero width bitmap", Bitmap{Image: image.NewRGBA(image.Rect(0, 0, 0, 10))}},
		{"native without buffer", Native{}},
		{"zero height native", Native{Buffer: fakeBuffer{10, 0}}},
		{"sample without image", Sample{Timestamp: time.Second}},
		{"short pixels", Pixels{Pix: make([]byte, 10), Width: 4, Height: 3, Stride: 16}},
		{"narrow stride", Pixels{Pix: make([]byte, 64), Width: 4, Height: 3, Stride: 8}},
		{"zero pixels", Pixels{Width: 0, Height: 0}},
		{"empty encoded", Encoded{}},
		{"garbage encoded", Encoded{Data: []byte("not an image")}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, _, err := Normalize(c.in)
			if !perr.IsCode(err, perr.ErrorCodeInvalidInput) {
				t.Fatalf("want invalid input, got %v", err)
			}
		})
	}
}

func TestHandle_ImageViews(t *testing.T) {
	t.Parallel()

	// one BGRA pixel: b=1 g=2 r=3 a=4
	h, _, err := Normalize(Pixels{Pix: []byte{1, 2, 3, 4}, Width: 1, Height: 1, Stride: 4})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	img, ok := h.Image()
	if !ok {
		t.Fatalf("pixels handle should expose an image")
	}
	if got := img.At(0, 0); got != (color.RGBA{R: 3, G: 2, B: 1, A: 4}) {
		t.Fatalf("At(0,0) = %v", got)
	}
	if got := img.At(5, 5); got != (color.RGBA{}) {
		t.Fatalf("out of bounds At = %v", got)
	}

	nh, _, _ := Normalize(Native{Buffer: fakeBuffer{2, 2}})
	if _, ok := nh.Image(); ok {
		t.Fatalf("opaque native buffer should not expose an image")
	}
	if b, ok := nh.Buffer(); !ok || b == nil {
		t.Fatalf("native handle should expose its buffer")
	}

	eh, _, _ := Normalize(Encoded{Data: pngBytes(t, 3, 3)})
	data, format, ok := eh.Encoded()
	if !ok || format != "png" || len(data) == 0 {
		t.Fatalf("Encoded() = %d bytes, %q, %v", len(data), format, ok)
	}
	if eh.Orientation() != OrientationUp {
		t.Fatalf("default orientation = %s", eh.Orientation())
	}
}

func TestNormalize_NoPixelCopy(t *testing.T) {
	t.Parallel()

	pix := make([]byte, 4)
	h, _, err := Normalize(Pixels{Pix: pix, Width: 1, Height: 1, Stride: 4, Format: FormatRGBA32})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	pix[0] = 200
	img, _ := h.Image()
	if r, _, _, _ := img.At(0, 0).RGBA(); r>>8 != 200 {
		t.Fatalf("handle should share caller pixels, got r=%d", r>>8)
	}
}
