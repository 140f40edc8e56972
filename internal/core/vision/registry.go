package vision

import (
	"bytes"
	"cmp"
	"encoding/json"
	"slices"

	"visionkit/internal/core/native"
	perr "visionkit/internal/platform/errors"
)

// Decoder fills an options struct from some encoded form
type Decoder func(into any) error

// JSONDecoder decodes raw strictly; empty raw leaves the defaults
func JSONDecoder(raw json.RawMessage) Decoder {
	return func(into any) error {
		if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		return dec.Decode(into)
	}
}

// KindInfo describes one kind for discovery
type KindInfo struct {
	Kind       native.Kind `json:"kind"`
	Result     string      `json:"result"`
	Options    string      `json:"options,omitempty"`
	Sequential bool        `json:"sequential"`
}

type builder struct {
	info  KindInfo
	build func(cfg Config, dec Decoder) (Descriptor, error)
}

func noOpts(kind native.Kind, result string, sequential bool, fn func(Config) Descriptor) builder {
	return builder{
		info: KindInfo{Kind: kind, Result: result, Sequential: sequential},
		build: func(cfg Config, _ Decoder) (Descriptor, error) {
			return fn(cfg), nil
		},
	}
}

func withOpts[O any](kind native.Kind, result, options string, fn func(Config, O) Descriptor) builder {
	return builder{
		info: KindInfo{Kind: kind, Result: result, Options: options, Sequential: sequentialKinds[kind]},
		build: func(cfg Config, dec Decoder) (Descriptor, error) {
			var o O
			if dec != nil {
				if err := dec(&o); err != nil {
					return nil, perr.WithField(perr.Wrapf(err, perr.ErrorCodeConfiguration, "invalid %s options", kind), "options")
				}
			}
			return fn(cfg, o), nil
		},
	}
}

var registry = map[native.Kind]builder{
	KindFaceRectangles: noOpts(KindFaceRectangles, "FaceRect", false, func(c Config) Descriptor { return FaceRectangles(c) }),
	KindFaceLandmarks:  noOpts(KindFaceLandmarks, "FaceLandmarks", false, func(c Config) Descriptor { return FaceLandmarksOf(c) }),
	KindFaceQuality:    noOpts(KindFaceQuality, "FaceQuality", false, func(c Config) Descriptor { return FaceQualityOf(c) }),
	KindRectangles: withOpts(KindRectangles, "Rectangle", "RectanglesOptions", func(c Config, o RectanglesOptions) Descriptor {
		return Rectangles(c, o)
	}),
	KindText: withOpts(KindText, "Text", "TextOptions", func(c Config, o TextOptions) Descriptor {
		return RecognizeText(c, o)
	}),
	KindTextRectangles: withOpts(KindTextRectangles, "TextRect", "TextRectanglesOptions", func(c Config, o TextRectanglesOptions) Descriptor {
		return TextRectangles(c, o)
	}),
	KindBodyPose: noOpts(KindBodyPose, "Pose", false, func(c Config) Descriptor { return BodyPose(c) }),
	KindHandPose: withOpts(KindHandPose, "Pose", "HandPoseOptions", func(c Config, o HandPoseOptions) Descriptor {
		return HandPose(c, o)
	}),
	KindAnimalPose: noOpts(KindAnimalPose, "Pose", false, func(c Config) Descriptor { return AnimalPose(c) }),
	KindClassify: withOpts(KindClassify, "Classification", "ClassifyOptions", func(c Config, o ClassifyOptions) Descriptor {
		return Classify(c, o)
	}),
	KindAnimals: noOpts(KindAnimals, "Animal", false, func(c Config) Descriptor { return RecognizeAnimals(c) }),
	KindHumanRectangles: withOpts(KindHumanRectangles, "HumanRect", "HumanRectanglesOptions", func(c Config, o HumanRectanglesOptions) Descriptor {
		return HumanRectangles(c, o)
	}),
	KindBarcodes: withOpts(KindBarcodes, "Barcode", "BarcodesOptions", func(c Config, o BarcodesOptions) Descriptor {
		return Barcodes(c, o)
	}),
	KindHorizon: noOpts(KindHorizon, "Horizon", false, func(c Config) Descriptor { return DetectHorizon(c) }),
	KindSaliency: withOpts(KindSaliency, "Salient", "SaliencyOptions", func(c Config, o SaliencyOptions) Descriptor {
		return Saliency(c, o)
	}),
	KindTrajectories: withOpts(KindTrajectories, "Trajectory", "TrajectoriesOptions", func(c Config, o TrajectoriesOptions) Descriptor {
		return Trajectories(c, o)
	}),
	KindContours: withOpts(KindContours, "ContourSet", "ContoursOptions", func(c Config, o ContoursOptions) Descriptor {
		return Contours(c, o)
	}),
	KindAesthetics:           noOpts(KindAesthetics, "Aesthetics", false, func(c Config) Descriptor { return AestheticsScores(c) }),
	KindDocumentSegmentation: noOpts(KindDocumentSegmentation, "Rectangle", false, func(c Config) Descriptor { return DocumentSegmentation(c) }),
	KindBodyPose3D:           noOpts(KindBodyPose3D, "Pose3D", false, func(c Config) Descriptor { return BodyPose3D(c) }),
	KindTrackObject: withOpts(KindTrackObject, "Tracked", "TrackObjectOptions", func(c Config, o TrackObjectOptions) Descriptor {
		return TrackObject(c, o)
	}),
	KindTrackRectangle: withOpts(KindTrackRectangle, "Tracked", "TrackRectangleOptions", func(c Config, o TrackRectangleOptions) Descriptor {
		return TrackRectangle(c, o)
	}),
}

// Build makes a validated descriptor for kind; dec may be nil for default options
func Build(kind native.Kind, cfg Config, dec Decoder) (Descriptor, error) {
	b, ok := registry[kind]
	if !ok {
		return nil, perr.WithField(perr.Configurationf("unknown kind %q", kind), "kind")
	}
	d, err := b.build(cfg, dec)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Kinds lists every supported kind sorted by name
func Kinds() []KindInfo {
	out := make([]KindInfo, 0, len(registry))
	for _, b := range registry {
		out = append(out, b.info)
	}
	slices.SortFunc(out, func(a, b KindInfo) int { return cmp.Compare(a.Kind, b.Kind) })
	return out
}
