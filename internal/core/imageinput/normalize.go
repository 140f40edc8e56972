package imageinput

import (
	"bytes"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"

	"visionkit/internal/core/geometry"
	perr "visionkit/internal/platform/errors"
)

// Normalize validates in and returns its framework handle and oriented pixel size.
// It fails with an invalid input error when the representation cannot back a
// handle or either dimension is zero.
func Normalize(in Input) (Handle, geometry.Size, error) {
	h, err := handleOf(in)
	if err != nil {
		return Handle{}, geometry.Size{}, err
	}
	if h.size.IsZero() {
		return Handle{}, geometry.Size{}, perr.InvalidInputf("image has zero size (%gx%g)", h.size.Width, h.size.Height)
	}
	return h, h.size, nil
}

func handleOf(in Input) (Handle, error) {
	switch v := in.(type) {
	case Bitmap:
		return bitmapHandle(v)
	case *Bitmap:
		if v == nil {
			return Handle{}, perr.InvalidInputf("nil bitmap")
		}
		return bitmapHandle(*v)
	case Native:
		if v.Buffer == nil {
			return Handle{}, perr.InvalidInputf("native input has no buffer")
		}
		w, h := v.Buffer.Dimensions()
		return Handle{kind: KindNative, buffer: v.Buffer, size: geometry.SizeOf(w, h)}, nil
	case Sample:
		if v.Buffer == nil {
			return Handle{}, perr.InvalidInputf("sample carries no image buffer")
		}
		w, h := v.Buffer.Dimensions()
		return Handle{kind: KindSample, buffer: v.Buffer, timestamp: v.Timestamp, size: geometry.SizeOf(w, h)}, nil
	case Pixels:
		return pixelsHandle(v)
	case Encoded:
		return encodedHandle(v)
	case nil:
		return Handle{}, perr.InvalidInputf("no input")
	default:
		return Handle{}, perr.InvalidInputf("unsupported input %T", in)
	}
}

func bitmapHandle(b Bitmap) (Handle, error) {
	if b.Image == nil {
		return Handle{}, perr.InvalidInputf("bitmap has no pixel data")
	}
	r := b.Image.Bounds()
	w, h := r.Dx(), r.Dy()
	if b.Orientation.Transposed() {
		w, h = h, w
	}
	return Handle{
		kind:        KindBitmap,
		img:         b.Image,
		orientation: b.Orientation,
		size:        geometry.SizeOf(w, h),
	}, nil
}

func pixelsHandle(p Pixels) (Handle, error) {
	if p.Width < 0 || p.Height < 0 {
		return Handle{}, perr.InvalidInputf("negative pixel dimensions %dx%d", p.Width, p.Height)
	}
	if p.Stride < p.Width*p.Format.BytesPerPixel() {
		return Handle{}, perr.InvalidInputf("stride %d too small for %d %s pixels", p.Stride, p.Width, p.Format)
	}
	if len(p.Pix) < p.Stride*p.Height {
		return Handle{}, perr.InvalidInputf("pixel buffer holds %d bytes, need %d", len(p.Pix), p.Stride*p.Height)
	}
	return Handle{kind: KindPixels, pixels: p, size: geometry.SizeOf(p.Width, p.Height)}, nil
}

func encodedHandle(e Encoded) (Handle, error) {
	if len(e.Data) == 0 {
		return Handle{}, perr.InvalidInputf("encoded image is empty")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(e.Data))
	if err != nil {
		return Handle{}, perr.Wrap(err, perr.ErrorCodeInvalidInput, "cannot read encoded image header")
	}
	return Handle{
		kind:    KindEncoded,
		encoded: e.Data,
		format:  format,
		size:    geometry.SizeOf(cfg.Width, cfg.Height),
	}, nil
}
