package native

import (
	"time"

	"visionkit/internal/core/geometry"
)

// Observation is one raw framework result; coordinates are normalized, origin bottom-left
type Observation interface {
	ObservationType() string
}

// FaceObservation is produced by the face kinds
type FaceObservation struct {
	BoundingBox geometry.Rect `json:"bounding_box"`
	Confidence  float64       `json:"confidence"`
	Roll        *float64      `json:"roll,omitempty"`
	Yaw         *float64      `json:"yaw,omitempty"`
	Pitch       *float64      `json:"pitch,omitempty"`

	// CaptureQuality is set by face_quality
	CaptureQuality *float64 `json:"capture_quality,omitempty"`

	// Landmarks maps region name to points normalized inside BoundingBox
	Landmarks map[string][]geometry.Point `json:"landmarks,omitempty"`
}

// RectangleObservation is a detected quadrilateral
type RectangleObservation struct {
	BoundingBox geometry.Rect  `json:"bounding_box"`
	TopLeft     geometry.Point `json:"top_left"`
	TopRight    geometry.Point `json:"top_right"`
	BottomLeft  geometry.Point `json:"bottom_left"`
	BottomRight geometry.Point `json:"bottom_right"`
	Confidence  float64        `json:"confidence"`
}

// TextCandidate is one recognition hypothesis
type TextCandidate struct {
	String     string  `json:"string"`
	Confidence float64 `json:"confidence"`
}

// TextObservation is produced by text and text_rectangles
type TextObservation struct {
	BoundingBox    geometry.Rect          `json:"bounding_box"`
	Confidence     float64                `json:"confidence"`
	Candidates     []TextCandidate        `json:"candidates,omitempty"`      // best first
	CharacterBoxes []RectangleObservation `json:"character_boxes,omitempty"`
}

// RecognizedPoint is one named joint
type RecognizedPoint struct {
	Location   geometry.Point `json:"location"`
	Confidence float64        `json:"confidence"`
}

// PointsObservation is produced by the pose kinds
type PointsObservation struct {
	Points     map[string]RecognizedPoint `json:"points,omitempty"`
	Confidence float64                    `json:"confidence"`
}

// ClassificationObservation is one label for the whole image or an object
type ClassificationObservation struct {
	Identifier string  `json:"identifier"`
	Confidence float64 `json:"confidence"`
}

// ObjectObservation is a located object with ranked labels
type ObjectObservation struct {
	BoundingBox geometry.Rect               `json:"bounding_box"`
	Confidence  float64                     `json:"confidence"`
	Labels      []ClassificationObservation `json:"labels,omitempty"` // best first
}

// BarcodeObservation is a decoded barcode
type BarcodeObservation struct {
	BoundingBox geometry.Rect `json:"bounding_box"`
	Symbology   string        `json:"symbology"`
	Payload     *string       `json:"payload,omitempty"`
	Confidence  float64       `json:"confidence"`
}

// HorizonObservation carries the horizon angle
type HorizonObservation struct {
	Angle float64 `json:"angle"` // radians
}

// SaliencyObservation groups the salient regions of one image
type SaliencyObservation struct {
	SalientObjects []RectangleObservation `json:"salient_objects,omitempty"`
}

// TrajectoryObservation is a parabolic path seen across frames
type TrajectoryObservation struct {
	Points     []geometry.Point `json:"points,omitempty"`
	Start      time.Duration    `json:"start"`
	Duration   time.Duration    `json:"duration"`
	Confidence float64          `json:"confidence"`
}

// ContourPath is one contour with its nested children
type ContourPath struct {
	Points   []geometry.Point `json:"points,omitempty"`
	Children []ContourPath    `json:"children,omitempty"`
}

// ContoursObservation holds the contour tree of one image
type ContoursObservation struct {
	ContourCount int           `json:"contour_count"`
	TopLevel     []ContourPath `json:"top_level,omitempty"`
}

// AestheticsObservation scores a whole image
type AestheticsObservation struct {
	OverallScore float64 `json:"overall_score"` // -1..1
	IsUtility    bool    `json:"is_utility"`
}

// Joint3D is one body joint; Position is relative to the root joint
type Joint3D struct {
	Position geometry.Vector3 `json:"position"`
	// InImage is the normalized projection, when the framework reports one
	InImage *geometry.Point `json:"in_image,omitempty"`
}

// Points3DObservation is produced by body_pose_3d
type Points3DObservation struct {
	Joints       map[string]Joint3D `json:"joints,omitempty"`
	BodyHeight   float64            `json:"body_height"` // meters
	CameraOrigin [16]float64        `json:"camera_origin"`
}

func (FaceObservation) ObservationType() string           { return "face" }
func (RectangleObservation) ObservationType() string      { return "rectangle" }
func (TextObservation) ObservationType() string           { return "text" }
func (PointsObservation) ObservationType() string         { return "points" }
func (ClassificationObservation) ObservationType() string { return "classification" }
func (ObjectObservation) ObservationType() string         { return "object" }
func (BarcodeObservation) ObservationType() string        { return "barcode" }
func (HorizonObservation) ObservationType() string        { return "horizon" }
func (SaliencyObservation) ObservationType() string       { return "saliency" }
func (TrajectoryObservation) ObservationType() string     { return "trajectory" }
func (ContoursObservation) ObservationType() string       { return "contours" }
func (AestheticsObservation) ObservationType() string     { return "aesthetics" }
func (Points3DObservation) ObservationType() string       { return "points_3d" }
