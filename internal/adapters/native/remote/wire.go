package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"io"

	"visionkit/internal/core/geometry"
	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	"visionkit/internal/core/vision"
	perr "visionkit/internal/platform/errors"
)

type wireImage struct {
	Format      string `json:"format"`
	Data        []byte `json:"data"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation int    `json:"orientation"`
	TimestampNS int64  `json:"timestamp_ns,omitempty"`
}

type wireRequest struct {
	Kind             native.Kind    `json:"kind"`
	Revision         int            `json:"revision,omitempty"`
	RegionOfInterest *geometry.Rect `json:"region_of_interest,omitempty"`
	CPUOnly          bool           `json:"cpu_only,omitempty"`
	PreferBackground bool           `json:"prefer_background"`
	Options          any            `json:"options,omitempty"`
}

type performBody struct {
	SequenceID string        `json:"sequence_id,omitempty"`
	Image      wireImage     `json:"image"`
	Requests   []wireRequest `json:"requests"`
}

type performReply struct {
	Results []wireResult `json:"results"`
}

type wireResult struct {
	Observations json.RawMessage `json:"observations"`
	Error        *RemoteError    `json:"error,omitempty"`
}

// RemoteError is a per-request failure reported by the sidecar
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements error
func (e *RemoteError) Error() string {
	if e.Code == "" {
		return "remote: " + e.Message
	}
	return fmt.Sprintf("remote %s: %s", e.Code, e.Message)
}

// encodeImage ships compressed inputs as-is and png-encodes pixel views
func encodeImage(h imageinput.Handle) (wireImage, error) {
	size := h.Size()
	w := wireImage{
		Width:       int(size.Width),
		Height:      int(size.Height),
		Orientation: int(h.Orientation()),
		TimestampNS: int64(h.Timestamp()),
	}
	if data, format, ok := h.Encoded(); ok {
		w.Format, w.Data = format, data
		return w, nil
	}
	img, ok := h.Image()
	if !ok {
		return w, perr.InvalidInputf("remote framework needs pixel access; %s handle has none", h.Kind())
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return w, perr.Wrap(err, perr.ErrorCodeInvalidInput, "encode frame for remote")
	}
	w.Format, w.Data = "png", buf.Bytes()
	return w, nil
}

func marshalPerform(seqID string, img wireImage, reqs []*native.Request) ([]byte, error) {
	body := performBody{SequenceID: seqID, Image: img, Requests: make([]wireRequest, len(reqs))}
	for i, r := range reqs {
		body.Requests[i] = wireRequest{
			Kind:             r.Kind,
			Revision:         r.Revision,
			RegionOfInterest: r.RegionOfInterest,
			CPUOnly:          r.CPUOnly,
			PreferBackground: r.PreferBackground,
			Options:          r.Options,
		}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeConfiguration, "encode remote request")
	}
	return b, nil
}

func decodeReply(r io.Reader) (performReply, error) {
	var reply performReply
	if err := json.NewDecoder(r).Decode(&reply); err != nil {
		return reply, perr.Wrap(err, perr.ErrorCodeNative, "remote reply undecodable")
	}
	return reply, nil
}

// observations decodes the list typed for kind; a null list stays nil
func (r wireResult) observations(kind native.Kind) ([]native.Observation, error) {
	if r.Error != nil {
		return nil, r.Error
	}
	dec, ok := decoders[kind]
	if !ok {
		return nil, fmt.Errorf("remote: no observation decoder for kind %q", kind)
	}
	obs, err := dec(r.Observations)
	if err != nil {
		return nil, fmt.Errorf("remote: decode %s observations: %w", kind, err)
	}
	return obs, nil
}

type decoder func(json.RawMessage) ([]native.Observation, error)

func decodeAs[O native.Observation](raw json.RawMessage) ([]native.Observation, error) {
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}
	var xs []O
	if err := json.Unmarshal(raw, &xs); err != nil {
		return nil, err
	}
	out := make([]native.Observation, len(xs))
	for i, x := range xs {
		out[i] = x
	}
	return out, nil
}

var decoders = map[native.Kind]decoder{
	vision.KindFaceRectangles:  decodeAs[native.FaceObservation],
	vision.KindFaceLandmarks:   decodeAs[native.FaceObservation],
	vision.KindFaceQuality:     decodeAs[native.FaceObservation],
	vision.KindRectangles:      decodeAs[native.RectangleObservation],
	vision.KindText:            decodeAs[native.TextObservation],
	vision.KindTextRectangles:  decodeAs[native.TextObservation],
	vision.KindBodyPose:        decodeAs[native.PointsObservation],
	vision.KindHandPose:        decodeAs[native.PointsObservation],
	vision.KindAnimalPose:      decodeAs[native.PointsObservation],
	vision.KindClassify:        decodeAs[native.ClassificationObservation],
	vision.KindAnimals:         decodeAs[native.ObjectObservation],
	vision.KindHumanRectangles: decodeAs[native.ObjectObservation],
	vision.KindBarcodes:        decodeAs[native.BarcodeObservation],
	vision.KindHorizon:         decodeAs[native.HorizonObservation],
	vision.KindSaliency:        decodeAs[native.SaliencyObservation],
	vision.KindTrajectories:    decodeAs[native.TrajectoryObservation],

	vision.KindContours:             decodeAs[native.ContoursObservation],
	vision.KindAesthetics:           decodeAs[native.AestheticsObservation],
	vision.KindDocumentSegmentation: decodeAs[native.RectangleObservation],
	vision.KindBodyPose3D:           decodeAs[native.Points3DObservation],
	vision.KindTrackObject:          decodeAs[native.ObjectObservation],
	vision.KindTrackRectangle:       decodeAs[native.RectangleObservation],
}
