// Package imageinput turns the image representations callers hold into a
// single opaque Handle the detection framework can consume.
//
// Normalization never copies pixel data. It only validates that the input can
// back a handle and reads its dimensions.
package imageinput

import (
	"image"
	"time"
)

// Input is one of Bitmap, Native, Sample, Pixels or Encoded
type Input interface{ isInput() }

// Orientation mirrors EXIF orientation for in-memory bitmaps
type Orientation uint8

// Orientations, numbered like EXIF
const (
	OrientationUp Orientation = iota + 1
	OrientationUpMirrored
	OrientationDown
	OrientationDownMirrored
	OrientationLeftMirrored
	OrientationRight
	OrientationRightMirrored
	OrientationLeft
)

// Transposed reports whether the displayed image swaps width and height
func (o Orientation) Transposed() bool {
	switch o {
	case OrientationLeft, OrientationLeftMirrored, OrientationRight, OrientationRightMirrored:
		return true
	default:
		return false
	}
}

// String returns the lower-case EXIF name
func (o Orientation) String() string {
	switch o {
	case OrientationUpMirrored:
		return "up_mirrored"
	case OrientationDown:
		return "down"
	case OrientationDownMirrored:
		return "down_mirrored"
	case OrientationLeftMirrored:
		return "left_mirrored"
	case OrientationRight:
		return "right"
	case OrientationRightMirrored:
		return "right_mirrored"
	case OrientationLeft:
		return "left"
	default:
		return "up"
	}
}

// Buffer is a device-native image buffer owned by the caller
type Buffer interface {
	Dimensions() (width, height int)
}

// Bitmap is an in-memory decoded image. A nil Image has no pixel data.
type Bitmap struct {
	Image       image.Image
	Orientation Orientation
}

// Native wraps a device-native buffer
type Native struct {
	Buffer Buffer
}

// Sample is one video sample; Buffer is nil when the sample carries no image
type Sample struct {
	Buffer    Buffer
	Timestamp time.Duration
}

// Pixels is a raw pixel buffer laid out row by row
type Pixels struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
	Format PixelFormat
}

// Encoded holds compressed image bytes (jpeg or png)
type Encoded struct {
	Data []byte
}

func (Bitmap) isInput()  {}
func (Native) isInput()  {}
func (Sample) isInput()  {}
func (Pixels) isInput()  {}
func (Encoded) isInput() {}

// PixelFormat describes the byte layout of Pixels
type PixelFormat uint8

// Supported pixel formats
const (
	FormatBGRA32 PixelFormat = iota
	FormatRGBA32
	FormatGray8
)

// BytesPerPixel returns the width of one pixel in bytes
func (f PixelFormat) BytesPerPixel() int {
	if f == FormatGray8 {
		return 1
	}
	return 4
}

// String returns the format name
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA32:
		return "rgba32"
	case FormatGray8:
		return "gray8"
	default:
		return "bgra32"
	}
}
