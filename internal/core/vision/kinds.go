package vision

import (
	"time"

	"visionkit/internal/core/geometry"
	"visionkit/internal/core/native"
	perr "visionkit/internal/platform/errors"
)

// Detection kinds
const (
	KindFaceRectangles  native.Kind = "face_rectangles"
	KindFaceLandmarks   native.Kind = "face_landmarks"
	KindFaceQuality     native.Kind = "face_quality"
	KindRectangles      native.Kind = "rectangles"
	KindText            native.Kind = "text"
	KindTextRectangles  native.Kind = "text_rectangles"
	KindBodyPose        native.Kind = "body_pose"
	KindHandPose        native.Kind = "hand_pose"
	KindAnimalPose      native.Kind = "animal_pose"
	KindClassify        native.Kind = "classify"
	KindAnimals         native.Kind = "animals"
	KindHumanRectangles native.Kind = "human_rectangles"
	KindBarcodes        native.Kind = "barcodes"
	KindHorizon         native.Kind = "horizon"
	KindSaliency        native.Kind = "saliency"
	KindTrajectories    native.Kind = "trajectories"
)

// Newer framework kinds; the trackers run on a sequence only
const (
	KindContours             native.Kind = "contours"
	KindAesthetics           native.Kind = "aesthetics"
	KindDocumentSegmentation native.Kind = "document_segmentation"
	KindBodyPose3D           native.Kind = "body_pose_3d"
	KindTrackObject          native.Kind = "track_object"
	KindTrackRectangle       native.Kind = "track_rectangle"
)

// sequentialKinds need a sequence tracker and fail on a still image
var sequentialKinds = map[native.Kind]bool{
	KindTrajectories:   true,
	KindTrackObject:    true,
	KindTrackRectangle: true,
}

// Options. Zero values and nil pointers keep framework defaults.

// RectanglesOptions tunes rectangle detection
type RectanglesOptions struct {
	MinAspectRatio      *float64 `json:"min_aspect_ratio,omitempty" toml:"min_aspect_ratio" validate:"omitempty,gte=0,lte=1"`
	MaxAspectRatio      *float64 `json:"max_aspect_ratio,omitempty" toml:"max_aspect_ratio" validate:"omitempty,gte=0,lte=1"`
	QuadratureTolerance *float64 `json:"quadrature_tolerance,omitempty" toml:"quadrature_tolerance" validate:"omitempty,gte=0,lte=45"`
	MinSize             *float64 `json:"min_size,omitempty" toml:"min_size" validate:"omitempty,gte=0,lte=1"`
	MinConfidence       *float64 `json:"min_confidence,omitempty" toml:"min_confidence" validate:"omitempty,gte=0,lte=1"`
	MaxObservations     int      `json:"max_observations,omitempty" toml:"max_observations" validate:"gte=0"`
}

func (o RectanglesOptions) check() error {
	if o.MinAspectRatio != nil && o.MaxAspectRatio != nil && *o.MinAspectRatio > *o.MaxAspectRatio {
		return perr.WithField(perr.Configurationf("min_aspect_ratio %g exceeds max_aspect_ratio %g",
			*o.MinAspectRatio, *o.MaxAspectRatio), "min_aspect_ratio")
	}
	return nil
}

// Text recognition levels
const (
	TextLevelFast     = "fast"
	TextLevelAccurate = "accurate"
)

// TextOptions tunes text recognition
type TextOptions struct {
	Level              string   `json:"level,omitempty" toml:"level" validate:"omitempty,oneof=fast accurate"`
	LanguageCorrection *bool    `json:"language_correction,omitempty" toml:"language_correction"`
	Languages          []string `json:"languages,omitempty" toml:"languages" validate:"omitempty,dive,bcp47"`
	CustomWords        []string `json:"custom_words,omitempty" toml:"custom_words" validate:"omitempty,dive,required"`
	MaxCandidates      int      `json:"max_candidates,omitempty" toml:"max_candidates" validate:"gte=0,lte=10"`
}

// TextRectanglesOptions tunes text region detection
type TextRectanglesOptions struct {
	CharacterBoxes bool `json:"character_boxes,omitempty" toml:"character_boxes"`
}

// HandPoseOptions tunes hand pose detection
type HandPoseOptions struct {
	MaxHands int `json:"max_hands,omitempty" toml:"max_hands" validate:"gte=0,lte=16"`
}

// ClassifyOptions filters image labels
type ClassifyOptions struct {
	MinConfidence float64 `json:"min_confidence,omitempty" toml:"min_confidence" validate:"gte=0,lte=1"`
}

// HumanRectanglesOptions tunes person detection
type HumanRectanglesOptions struct {
	UpperBodyOnly *bool `json:"upper_body_only,omitempty" toml:"upper_body_only"`
}

// BarcodesOptions restricts the symbologies searched
type BarcodesOptions struct {
	Symbologies []string `json:"symbologies,omitempty" toml:"symbologies" validate:"omitempty,dive,oneof=aztec codabar code39 code93 code128 datamatrix ean8 ean13 gs1databar i2of5 itf14 microqr micropdf417 pdf417 qr upce"`
}

// Saliency modes
const (
	SaliencyAttention  = "attention"
	SaliencyObjectness = "objectness"
)

// SaliencyOptions picks the saliency model
type SaliencyOptions struct {
	Mode string `json:"mode,omitempty" toml:"mode" validate:"omitempty,oneof=attention objectness"`
}

// TrajectoriesOptions tunes trajectory detection
type TrajectoriesOptions struct {
	MinRadius        *float64 `json:"min_radius,omitempty" toml:"min_radius" validate:"omitempty,gte=0,lte=1"`
	MaxRadius        *float64 `json:"max_radius,omitempty" toml:"max_radius" validate:"omitempty,gte=0,lte=1"`
	TrajectoryLength int      `json:"trajectory_length,omitempty" toml:"trajectory_length" validate:"omitempty,gte=5"`
	FrameSpacingMS   int      `json:"frame_spacing_ms,omitempty" toml:"frame_spacing_ms" validate:"gte=0"`
}

func (o TrajectoriesOptions) check() error {
	if o.MinRadius != nil && o.MaxRadius != nil && *o.MinRadius > *o.MaxRadius {
		return perr.WithField(perr.Configurationf("min_radius %g exceeds max_radius %g",
			*o.MinRadius, *o.MaxRadius), "min_radius")
	}
	return nil
}

// ContoursOptions tunes contour detection
type ContoursOptions struct {
	ContrastAdjustment *float64 `json:"contrast_adjustment,omitempty" toml:"contrast_adjustment" validate:"omitempty,gte=0,lte=3"`
	DetectsDarkOnLight *bool    `json:"detects_dark_on_light,omitempty" toml:"detects_dark_on_light"`
	MaxImageDimension  int      `json:"max_image_dimension,omitempty" toml:"max_image_dimension" validate:"omitempty,gte=64,lte=2048"`
}

// Tracking levels
const (
	TrackFast     = "fast"
	TrackAccurate = "accurate"
)

// TrackObjectOptions seeds the object tracker. Initial is normalized with a
// bottom-left origin; ToNormalizedRect converts a pixel frame.
type TrackObjectOptions struct {
	Initial geometry.Rect `json:"initial" toml:"initial"`
	Level   string        `json:"level,omitempty" toml:"level" validate:"omitempty,oneof=fast accurate"`
}

func (o TrackObjectOptions) check() error {
	if !o.Initial.InUnitSquare() {
		return perr.WithField(perr.Configurationf("initial %+v is not a normalized rect with an area", o.Initial), "initial")
	}
	return nil
}

// Quad is a normalized quadrilateral, origin bottom-left
type Quad struct {
	TopLeft     geometry.Point `json:"top_left" toml:"top_left"`
	TopRight    geometry.Point `json:"top_right" toml:"top_right"`
	BottomLeft  geometry.Point `json:"bottom_left" toml:"bottom_left"`
	BottomRight geometry.Point `json:"bottom_right" toml:"bottom_right"`
}

// TrackRectangleOptions seeds the rectangle tracker with its first corners
type TrackRectangleOptions struct {
	Initial Quad   `json:"initial" toml:"initial"`
	Level   string `json:"level,omitempty" toml:"level" validate:"omitempty,oneof=fast accurate"`
}

func (o TrackRectangleOptions) check() error {
	q := o.Initial
	if q == (Quad{}) {
		return perr.WithField(perr.Configurationf("initial corners are required"), "initial")
	}
	for _, p := range []geometry.Point{q.TopLeft, q.TopRight, q.BottomLeft, q.BottomRight} {
		if !p.InUnit() {
			return perr.WithField(perr.Configurationf("corner %+v is outside the unit square", p), "initial")
		}
	}
	return nil
}

// Constructors

// FaceRectangles detects face bounding boxes
func FaceRectangles(cfg Config) Request[FaceRect] {
	return newRequest(KindFaceRectangles, cfg, nil, func(o native.FaceObservation, size geometry.Size) (FaceRect, bool) {
		return FaceRect{
			Frame:      geometry.ToPixelRect(o.BoundingBox, size),
			Confidence: o.Confidence,
			Roll:       o.Roll,
			Yaw:        o.Yaw,
			Pitch:      o.Pitch,
		}, true
	})
}

// FaceLandmarksOf detects faces and their landmark regions
func FaceLandmarksOf(cfg Config) Request[FaceLandmarks] {
	return newRequest(KindFaceLandmarks, cfg, nil, func(o native.FaceObservation, size geometry.Size) (FaceLandmarks, bool) {
		regions := make(map[string][]geometry.Point, len(o.Landmarks))
		for name, pts := range o.Landmarks {
			conv := make([]geometry.Point, len(pts))
			for i, p := range pts {
				conv[i] = geometry.ToPixelPointIn(p, o.BoundingBox, size)
			}
			regions[name] = conv
		}
		return FaceLandmarks{
			Frame:      geometry.ToPixelRect(o.BoundingBox, size),
			Confidence: o.Confidence,
			Regions:    regions,
		}, true
	})
}

// FaceQualityOf scores face capture quality
func FaceQualityOf(cfg Config) Request[FaceQuality] {
	return newRequest(KindFaceQuality, cfg, nil, func(o native.FaceObservation, size geometry.Size) (FaceQuality, bool) {
		return FaceQuality{
			Frame:      geometry.ToPixelRect(o.BoundingBox, size),
			Confidence: o.Confidence,
			Quality:    o.CaptureQuality,
		}, true
	})
}

// Rectangles detects quadrilaterals
func Rectangles(cfg Config, opts RectanglesOptions) Request[Rectangle] {
	return newRequest(KindRectangles, cfg, opts, func(o native.RectangleObservation, size geometry.Size) (Rectangle, bool) {
		return rectangleOf(o, size), true
	})
}

func rectangleOf(o native.RectangleObservation, size geometry.Size) Rectangle {
	return Rectangle{
		Frame: geometry.QuadFrame(o.TopLeft, o.TopRight, o.BottomLeft, o.BottomRight, size),
		Corners: []geometry.Point{
			geometry.ToPixelPoint(o.TopLeft, size),
			geometry.ToPixelPoint(o.TopRight, size),
			geometry.ToPixelPoint(o.BottomRight, size),
			geometry.ToPixelPoint(o.BottomLeft, size),
		},
		Confidence: o.Confidence,
	}
}

// RecognizeText reads text lines; lines without candidates are dropped
func RecognizeText(cfg Config, opts TextOptions) Request[Text] {
	limit := opts.MaxCandidates
	if limit <= 0 {
		limit = 1
	}
	return newRequest(KindText, cfg, opts, func(o native.TextObservation, size geometry.Size) (Text, bool) {
		cands := o.Candidates
		if len(cands) > limit {
			cands = cands[:limit]
		}
		if len(cands) == 0 {
			return Text{}, false
		}
		strs := make([]string, len(cands))
		for i, c := range cands {
			strs[i] = c.String
		}
		return Text{
			Frame:      geometry.ToPixelRect(o.BoundingBox, size),
			Text:       cands[0].String,
			Confidence: cands[0].Confidence,
			Candidates: strs,
		}, true
	})
}

// TextRectangles finds text regions without reading them
func TextRectangles(cfg Config, opts TextRectanglesOptions) Request[TextRect] {
	return newRequest(KindTextRectangles, cfg, opts, func(o native.TextObservation, size geometry.Size) (TextRect, bool) {
		out := TextRect{
			Frame:      geometry.ToPixelRect(o.BoundingBox, size),
			Confidence: o.Confidence,
		}
		if len(o.CharacterBoxes) > 0 {
			out.Characters = make([]geometry.Rect, len(o.CharacterBoxes))
			for i, c := range o.CharacterBoxes {
				out.Characters[i] = geometry.QuadFrame(c.TopLeft, c.TopRight, c.BottomLeft, c.BottomRight, size)
			}
		}
		return out, true
	})
}

func poseOf(o native.PointsObservation, size geometry.Size) (Pose, bool) {
	points := make(map[string]geometry.Point, len(o.Points))
	confs := make(map[string]float64, len(o.Points))
	for name, p := range o.Points {
		points[name] = geometry.ToPixelPoint(p.Location, size)
		confs[name] = p.Confidence
	}
	return Pose{
		Frame:       geometry.BoundingFrameOf(points),
		Points:      points,
		Confidences: confs,
	}, true
}

// BodyPose detects human body joints
func BodyPose(cfg Config) Request[Pose] {
	return newRequest(KindBodyPose, cfg, nil, poseOf)
}

// HandPose detects hand joints
func HandPose(cfg Config, opts HandPoseOptions) Request[Pose] {
	return newRequest(KindHandPose, cfg, opts, poseOf)
}

// AnimalPose detects animal body joints
func AnimalPose(cfg Config) Request[Pose] {
	return newRequest(KindAnimalPose, cfg, nil, poseOf)
}

// Classify labels the whole image; labels under MinConfidence are dropped
func Classify(cfg Config, opts ClassifyOptions) Request[Classification] {
	return newRequest(KindClassify, cfg, opts, func(o native.ClassificationObservation, _ geometry.Size) (Classification, bool) {
		if o.Confidence < opts.MinConfidence {
			return Classification{}, false
		}
		return Classification{Identifier: o.Identifier, Confidence: o.Confidence}, true
	})
}

// RecognizeAnimals locates animals; objects without labels are dropped
func RecognizeAnimals(cfg Config) Request[Animal] {
	return newRequest(KindAnimals, cfg, nil, func(o native.ObjectObservation, size geometry.Size) (Animal, bool) {
		if len(o.Labels) == 0 {
			return Animal{}, false
		}
		labels := make([]Label, len(o.Labels))
		for i, l := range o.Labels {
			labels[i] = Label{Identifier: l.Identifier, Confidence: l.Confidence}
		}
		return Animal{
			Frame:      geometry.ToPixelRect(o.BoundingBox, size),
			Identifier: labels[0].Identifier,
			Confidence: labels[0].Confidence,
			Labels:     labels,
		}, true
	})
}

// HumanRectangles detects people
func HumanRectangles(cfg Config, opts HumanRectanglesOptions) Request[HumanRect] {
	return newRequest(KindHumanRectangles, cfg, opts, func(o native.ObjectObservation, size geometry.Size) (HumanRect, bool) {
		return HumanRect{Frame: geometry.ToPixelRect(o.BoundingBox, size), Confidence: o.Confidence}, true
	})
}

// Barcodes detects and decodes barcodes
func Barcodes(cfg Config, opts BarcodesOptions) Request[Barcode] {
	return newRequest(KindBarcodes, cfg, opts, func(o native.BarcodeObservation, size geometry.Size) (Barcode, bool) {
		return Barcode{
			Frame:      geometry.ToPixelRect(o.BoundingBox, size),
			Symbology:  o.Symbology,
			Payload:    o.Payload,
			Confidence: o.Confidence,
		}, true
	})
}

// DetectHorizon measures the horizon angle
func DetectHorizon(cfg Config) Request[Horizon] {
	return newRequest(KindHorizon, cfg, nil, func(o native.HorizonObservation, _ geometry.Size) (Horizon, bool) {
		return Horizon{AngleRadians: o.Angle}, true
	})
}

// Saliency finds salient regions; one observation expands to all its regions
func Saliency(cfg Config, opts SaliencyOptions) Request[Salient] {
	return newExpanding(KindSaliency, cfg, opts, func(o native.SaliencyObservation, size geometry.Size) []Salient {
		out := make([]Salient, 0, len(o.SalientObjects))
		for _, s := range o.SalientObjects {
			out = append(out, Salient{Frame: geometry.ToPixelRect(s.BoundingBox, size), Confidence: s.Confidence})
		}
		return out
	})
}

// Trajectories follows moving objects across the frames of a sequence
func Trajectories(cfg Config, opts TrajectoriesOptions) Request[Trajectory] {
	r := newRequest(KindTrajectories, cfg, opts, func(o native.TrajectoryObservation, size geometry.Size) (Trajectory, bool) {
		pts := make([]geometry.Point, len(o.Points))
		for i, p := range o.Points {
			pts[i] = geometry.ToPixelPoint(p, size)
		}
		return Trajectory{
			Points:     pts,
			Normalized: append([]geometry.Point(nil), o.Points...),
			Start:      o.Start,
			Duration:   o.Duration,
			Confidence: o.Confidence,
		}, true
	})
	r.sequential = true
	return r
}

// FrameSpacing returns the analysis spacing as a duration
func (o TrajectoriesOptions) FrameSpacing() time.Duration {
	return time.Duration(o.FrameSpacingMS) * time.Millisecond
}

// Contours traces image contours; nested contours follow their parent in Paths
func Contours(cfg Config, opts ContoursOptions) Request[ContourSet] {
	return newRequest(KindContours, cfg, opts, func(o native.ContoursObservation, size geometry.Size) (ContourSet, bool) {
		out := ContourSet{Count: o.ContourCount, Paths: [][]geometry.Point{}}
		var walk func(c native.ContourPath)
		walk = func(c native.ContourPath) {
			pts := make([]geometry.Point, len(c.Points))
			for i, p := range c.Points {
				pts[i] = geometry.ToPixelPoint(p, size)
			}
			out.Paths = append(out.Paths, pts)
			for _, child := range c.Children {
				walk(child)
			}
		}
		for _, c := range o.TopLevel {
			walk(c)
		}
		return out, true
	})
}

// AestheticsScores rates the whole image
func AestheticsScores(cfg Config) Request[Aesthetics] {
	return newRequest(KindAesthetics, cfg, nil, func(o native.AestheticsObservation, _ geometry.Size) (Aesthetics, bool) {
		return Aesthetics{OverallScore: o.OverallScore, IsUtility: o.IsUtility}, true
	})
}

// DocumentSegmentation finds the document quadrilateral
func DocumentSegmentation(cfg Config) Request[Rectangle] {
	return newRequest(KindDocumentSegmentation, cfg, nil, func(o native.RectangleObservation, size geometry.Size) (Rectangle, bool) {
		return rectangleOf(o, size), true
	})
}

// BodyPose3D detects body joints in meters; Frame bounds the projected joints
func BodyPose3D(cfg Config) Request[Pose3D] {
	return newRequest(KindBodyPose3D, cfg, nil, func(o native.Points3DObservation, size geometry.Size) (Pose3D, bool) {
		joints := make(map[string]geometry.Vector3, len(o.Joints))
		projected := make(map[string]geometry.Point, len(o.Joints))
		for name, j := range o.Joints {
			joints[name] = j.Position
			if j.InImage != nil {
				projected[name] = geometry.ToPixelPoint(*j.InImage, size)
			}
		}
		return Pose3D{
			Frame:        geometry.BoundingFrameOf(projected),
			Joints:       joints,
			Projected:    projected,
			BodyHeight:   o.BodyHeight,
			CameraOrigin: o.CameraOrigin,
		}, true
	})
}

// TrackObject follows the object seeded by opts.Initial across frames
func TrackObject(cfg Config, opts TrackObjectOptions) Request[Tracked] {
	r := newRequest(KindTrackObject, cfg, opts, func(o native.ObjectObservation, size geometry.Size) (Tracked, bool) {
		return Tracked{Frame: geometry.ToPixelRect(o.BoundingBox, size), Confidence: o.Confidence}, true
	})
	r.sequential = true
	return r
}

// TrackRectangle follows the quadrilateral seeded by opts.Initial across frames
func TrackRectangle(cfg Config, opts TrackRectangleOptions) Request[Tracked] {
	r := newRequest(KindTrackRectangle, cfg, opts, func(o native.RectangleObservation, size geometry.Size) (Tracked, bool) {
		return Tracked{
			Frame:      geometry.QuadFrame(o.TopLeft, o.TopRight, o.BottomLeft, o.BottomRight, size),
			Confidence: o.Confidence,
		}, true
	})
	r.sequential = true
	return r
}
