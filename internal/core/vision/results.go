package vision

import (
	"math"
	"time"

	"visionkit/internal/core/geometry"
)

// Result types. Frames and points are in pixels with a top-left origin.

// FaceRect is a detected face
type FaceRect struct {
	Frame      geometry.Rect `json:"frame"`
	Confidence float64       `json:"confidence"`
	Roll       *float64      `json:"roll,omitempty"`
	Yaw        *float64      `json:"yaw,omitempty"`
	Pitch      *float64      `json:"pitch,omitempty"`
}

// FaceLandmarks is a face with its landmark regions
type FaceLandmarks struct {
	Frame      geometry.Rect               `json:"frame"`
	Confidence float64                     `json:"confidence"`
	Regions    map[string][]geometry.Point `json:"regions"`
}

// AllPoints flattens every region in LandmarkRegions order
func (f FaceLandmarks) AllPoints() []geometry.Point {
	var out []geometry.Point
	for _, name := range LandmarkRegions {
		out = append(out, f.Regions[name]...)
	}
	return out
}

// LandmarkRegions lists the face regions reported by face_landmarks
var LandmarkRegions = []string{
	"left_eye", "right_eye", "left_eyebrow", "right_eyebrow",
	"nose", "nose_crest", "median_line", "outer_lips", "inner_lips",
	"face_contour", "left_pupil", "right_pupil",
}

// FaceQuality is a face with its capture quality in [0,1], when the framework reports one
type FaceQuality struct {
	Frame      geometry.Rect `json:"frame"`
	Confidence float64       `json:"confidence"`
	Quality    *float64      `json:"quality,omitempty"`
}

// Level buckets Quality into low, medium or high; unknown when absent
func (f FaceQuality) Level() string {
	switch {
	case f.Quality == nil:
		return "unknown"
	case *f.Quality < 0.3:
		return "low"
	case *f.Quality < 0.7:
		return "medium"
	default:
		return "high"
	}
}

// Rectangle is a detected quadrilateral and its bounding frame
type Rectangle struct {
	Frame      geometry.Rect    `json:"frame"`
	Corners    []geometry.Point `json:"corners"` // tl, tr, br, bl
	Confidence float64          `json:"confidence"`
}

// Text is one recognized line
type Text struct {
	Frame      geometry.Rect `json:"frame"`
	Text       string        `json:"text"`
	Confidence float64       `json:"confidence"`
	Candidates []string      `json:"candidates"`
}

// TextRect is a text region, optionally with character boxes
type TextRect struct {
	Frame      geometry.Rect   `json:"frame"`
	Confidence float64         `json:"confidence"`
	Characters []geometry.Rect `json:"characters,omitempty"`
}

// Pose is a set of named joints; Frame bounds the joints
type Pose struct {
	Frame       geometry.Rect             `json:"frame"`
	Points      map[string]geometry.Point `json:"points"`
	Confidences map[string]float64        `json:"confidences"`
}

// Classification is an image-level label
type Classification struct {
	Identifier string  `json:"identifier"`
	Confidence float64 `json:"confidence"`
}

// Label is one ranked label of an object
type Label struct {
	Identifier string  `json:"identifier"`
	Confidence float64 `json:"confidence"`
}

// Animal is a recognized animal; Identifier is the best label
type Animal struct {
	Frame      geometry.Rect `json:"frame"`
	Identifier string        `json:"identifier"`
	Confidence float64       `json:"confidence"`
	Labels     []Label       `json:"labels"`
}

// HumanRect is a detected person
type HumanRect struct {
	Frame      geometry.Rect `json:"frame"`
	Confidence float64       `json:"confidence"`
}

// Barcode is a decoded barcode
type Barcode struct {
	Frame      geometry.Rect `json:"frame"`
	Symbology  string        `json:"symbology"`
	Payload    *string       `json:"payload,omitempty"`
	Confidence float64       `json:"confidence"`
}

// Horizon is the angle of the detected horizon
type Horizon struct {
	AngleRadians float64 `json:"angle_radians"`
}

// AngleDegrees converts the angle to degrees
func (h Horizon) AngleDegrees() float64 { return h.AngleRadians * 180 / math.Pi }

// Salient is one salient region
type Salient struct {
	Frame      geometry.Rect `json:"frame"`
	Confidence float64       `json:"confidence"`
}

// Trajectory is a path followed across frames
type Trajectory struct {
	Points     []geometry.Point `json:"points"`
	Normalized []geometry.Point `json:"normalized"`
	Start      time.Duration    `json:"start"`
	Duration   time.Duration    `json:"duration"`
	Confidence float64          `json:"confidence"`
}

// ContourSet is every contour of an image in pixels, parents before children
type ContourSet struct {
	Count int                `json:"count"`
	Paths [][]geometry.Point `json:"paths"`
}

// Aesthetics scores an image; OverallScore is in [-1,1]
type Aesthetics struct {
	OverallScore float64 `json:"overall_score"`
	// IsUtility marks screenshots, receipts and similar non-memorable images
	IsUtility bool `json:"is_utility"`
}

// Pose3D is a body in meters relative to its root joint. Projected holds the
// joints the framework placed in the image, in pixels.
type Pose3D struct {
	Frame        geometry.Rect               `json:"frame"`
	Joints       map[string]geometry.Vector3 `json:"joints"`
	Projected    map[string]geometry.Point   `json:"projected"`
	BodyHeight   float64                     `json:"body_height"`
	CameraOrigin [16]float64                 `json:"camera_origin"` // column major
}

// Tracked is where a tracker found its target in one frame
type Tracked struct {
	Frame      geometry.Rect `json:"frame"`
	Confidence float64       `json:"confidence"`
}
