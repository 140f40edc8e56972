// Package http provides the multipart HTTP transport for detections
package http

import (
	stdhttp "net/http"
	"strconv"

	"visionkit/internal/core/imageinput"
	"visionkit/internal/modkit/httpkit"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/net/http/bind"
	"visionkit/internal/platform/validate"
	"visionkit/internal/services/detect/domain"
)

// Form field names shared by the upload endpoints
const (
	FieldRequest = "request"
	FieldBatch   = "batch"
	FieldImage   = "image"
	FieldFrame   = "frame"
)

// Register mounts the detect endpoints; uploads are capped at maxBytes
func Register(r httpkit.Router, s domain.ServicePort, maxBytes int64) {
	h := &handlers{svc: s}

	httpkit.Upload(r, "/", maxBytes, h.detect)
	httpkit.Upload(r, "/batch", maxBytes, h.batch)
	httpkit.Upload(r, "/track", maxBytes, h.track)
	httpkit.Get(r, "/kinds", h.kinds)
	httpkit.Get(r, "/runs", h.runs)
}

type handlers struct{ svc domain.ServicePort }

// swagger:route POST /detect Detect detectOne
// @Summary Run one detection on an uploaded image
// @Tags Detect
// @Accept multipart/form-data
// @Produce json
// @Param request formData string true "RequestSpec as JSON"
// @Param image formData file true "jpeg or png"
// @Success 200 {object} domain.DetectOutput "ok"
// @Failure 400 {object} httpkit.Envelope "invalid request or options"
// @Failure 422 {object} httpkit.Envelope "undecodable image"
// @Failure 502 {object} httpkit.Envelope "framework failure"
// @Router /detect [post]
func (h *handlers) detect(r *stdhttp.Request) httpkit.Response {
	spec, err := bind.FormJSON[domain.RequestSpec](r, FieldRequest)
	if err != nil {
		return httpkit.Error(err)
	}
	img, err := bind.File(r, FieldImage)
	if err != nil {
		return httpkit.Error(err)
	}
	out, err := h.svc.Detect(r.Context(), spec, imageinput.Encoded{Data: img})
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.OK(out)
}

// batch keeps the completed entries as envelope data when one fails
//
// swagger:route POST /detect/batch Detect detectBatch
// @Summary Run several detections on one image in a single framework call
// @Tags Detect
// @Accept multipart/form-data
// @Produce json
// @Param batch formData string true "BatchInput as JSON"
// @Param image formData file true "jpeg or png"
// @Success 200 {object} domain.BatchOutput "ok"
// @Failure 502 {object} httpkit.Envelope "an entry failed; data holds the completed entries"
// @Router /detect/batch [post]
func (h *handlers) batch(r *stdhttp.Request) httpkit.Response {
	in, err := bind.FormJSON[domain.BatchInput](r, FieldBatch)
	if err != nil {
		return httpkit.Error(err)
	}
	img, err := bind.File(r, FieldImage)
	if err != nil {
		return httpkit.Error(err)
	}
	out, err := h.svc.DetectAll(r.Context(), in, imageinput.Encoded{Data: img})
	if err != nil {
		return httpkit.ErrorWith(err, out)
	}
	return httpkit.OK(out)
}

// track sends the repeated frame fields to one fresh tracker, in form order
//
// swagger:route POST /detect/track Detect detectTrack
// @Summary Run a sequential kind over ordered frames
// @Tags Detect
// @Accept multipart/form-data
// @Produce json
// @Param request formData string true "RequestSpec as JSON"
// @Param frame formData file true "repeated, one per frame, in order"
// @Success 200 {object} domain.TrackOutput "ok"
// @Router /detect/track [post]
func (h *handlers) track(r *stdhttp.Request) httpkit.Response {
	spec, err := bind.FormJSON[domain.RequestSpec](r, FieldRequest)
	if err != nil {
		return httpkit.Error(err)
	}
	raw, err := bind.Files(r, FieldFrame)
	if err != nil {
		return httpkit.Error(err)
	}
	frames := make([]imageinput.Input, len(raw))
	for i, b := range raw {
		frames[i] = imageinput.Encoded{Data: b}
	}
	out, err := h.svc.Track(r.Context(), spec, frames)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.OK(out)
}

// swagger:route GET /detect/kinds Detect detectKinds
// @Summary List the supported detection kinds
// @Tags Detect
// @Produce json
// @Success 200 {array} vision.KindInfo "ok"
// @Router /detect/kinds [get]
func (h *handlers) kinds(_ *stdhttp.Request) (any, error) {
	return h.svc.Kinds(), nil
}

// swagger:route GET /detect/runs Detect detectRuns
// @Summary Recent detection runs, newest first
// @Tags Detect
// @Produce json
// @Param limit query int false "1..500, default 50"
// @Success 200 {array} domain.Run "ok"
// @Failure 503 {object} httpkit.Envelope "journal disabled"
// @Router /detect/runs [get]
func (h *handlers) runs(r *stdhttp.Request) (any, error) {
	var in domain.RunsInput
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "limit must be an integer"), "limit")
		}
		in.Limit = n
	}
	if err := validate.Struct(in, perr.ErrorCodeValidation); err != nil {
		return nil, err
	}
	return h.svc.Runs(r.Context(), in)
}
