// Package geometry converts between the framework's normalized, bottom-left
// origin coordinates and pixel, top-left origin coordinates.
//
// Normalized values live in the unit square with y growing upward. Pixel
// values are scaled by the image size with y growing downward.
package geometry

import "math"

// Size is an image size in pixels
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SizeOf builds a Size from integer dimensions
func SizeOf(w, h int) Size { return Size{Width: float64(w), Height: float64(h)} }

// IsZero reports whether either dimension is zero or negative
func (s Size) IsZero() bool { return s.Width <= 0 || s.Height <= 0 }

// Point is a 2D point; normalized or pixel depending on context
type Point struct {
	X float64 `json:"x" toml:"x"`
	Y float64 `json:"y" toml:"y"`
}

// InUnit reports whether p lies inside [0,1]x[0,1]
func (p Point) InUnit() bool { return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1 }

// Vector3 is a position in meters
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rect is an axis aligned rectangle anchored at its minimum corner
type Rect struct {
	X      float64 `json:"x" toml:"x"`
	Y      float64 `json:"y" toml:"y"`
	Width  float64 `json:"width" toml:"width"`
	Height float64 `json:"height" toml:"height"`
}

// MinX returns the left edge
func (r Rect) MinX() float64 { return r.X }

// MinY returns the low edge
func (r Rect) MinY() float64 { return r.Y }

// MaxX returns the right edge
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the high edge
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// IsZero reports whether r is the zero rect
func (r Rect) IsZero() bool { return r == Rect{} }

// InUnitSquare reports whether r lies inside [0,1]x[0,1] with a positive area
func (r Rect) InUnitSquare() bool {
	if r.Width <= 0 || r.Height <= 0 {
		return false
	}
	return r.X >= 0 && r.Y >= 0 && r.MaxX() <= 1 && r.MaxY() <= 1
}

// ToPixelRect flips a normalized rect into pixel space: (x*W, (1-y-h)*H, w*W, h*H)
func ToPixelRect(n Rect, size Size) Rect {
	return Rect{
		X:      n.X * size.Width,
		Y:      (1 - n.Y - n.Height) * size.Height,
		Width:  n.Width * size.Width,
		Height: n.Height * size.Height,
	}
}

// ToNormalizedRect is the inverse of ToPixelRect; a zero size yields the zero rect
func ToNormalizedRect(p Rect, size Size) Rect {
	if size.IsZero() {
		return Rect{}
	}
	h := p.Height / size.Height
	return Rect{
		X:      p.X / size.Width,
		Y:      1 - p.Y/size.Height - h,
		Width:  p.Width / size.Width,
		Height: h,
	}
}

// ToPixelPoint flips a normalized point into pixel space: (x*W, (1-y)*H)
func ToPixelPoint(p Point, size Size) Point {
	return Point{X: p.X * size.Width, Y: (1 - p.Y) * size.Height}
}

// ToPixelPointIn converts a point normalized inside box, itself normalized in
// the image, into pixel space. Landmark regions are reported this way.
func ToPixelPointIn(p Point, box Rect, size Size) Point {
	frame := ToPixelRect(box, size)
	return Point{
		X: frame.MinX() + p.X*frame.Width,
		Y: frame.MinY() + (1-p.Y)*frame.Height,
	}
}

// QuadFrame converts four normalized corners and returns their pixel bounding frame
func QuadFrame(topLeft, topRight, bottomLeft, bottomRight Point, size Size) Rect {
	return BoundingFrame([]Point{
		ToPixelPoint(topLeft, size),
		ToPixelPoint(topRight, size),
		ToPixelPoint(bottomLeft, size),
		ToPixelPoint(bottomRight, size),
	})
}

// BoundingFrame returns the min/max frame of points; empty input gives the zero rect
func BoundingFrame(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// BoundingFrameOf is BoundingFrame over the values of a named point set
func BoundingFrameOf[K comparable](points map[K]Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	ps := make([]Point, 0, len(points))
	for _, p := range points {
		ps = append(ps, p)
	}
	return BoundingFrame(ps)
}
