// Package domain holds DTOs and ports for the detect service
package domain

import (
	"encoding/json"
	"time"

	"visionkit/internal/core/vision"
)

// RequestSpec names one detection kind with its shared config and
// kind-specific options
type RequestSpec struct {
	Kind    string          `json:"kind" validate:"required" example:"face_rectangles"`
	Config  vision.Config   `json:"config"`
	Options json.RawMessage `json:"options,omitempty" swaggertype:"object"`
}

// BatchEntry is one identified request inside a batch
type BatchEntry struct {
	ID string `json:"id" validate:"required,max=64,printascii" example:"faces"`
	RequestSpec
}

// BatchInput is the batch payload, entries run together on one image
type BatchInput struct {
	Entries []BatchEntry `json:"entries" validate:"required,min=1,max=32,dive"`
}

// DetectOutput is the result of a single detection
type DetectOutput struct {
	RunID   string `json:"run_id" example:"7b0c7f5e-1f7e-4c55-8a3b-5b4c1b8f6a11"`
	Kind    string `json:"kind" example:"face_rectangles"`
	Count   int    `json:"count" example:"2"`
	Results any    `json:"results"`
}

// BatchOutput is the result of a batch; on failure Results holds the entries
// that finished before the first error
type BatchOutput struct {
	RunID    string         `json:"run_id"`
	Results  vision.Results `json:"results"`
	FailedID string         `json:"failed_id,omitempty"`
}

// TrackOutput holds one result list per submitted frame, in order
type TrackOutput struct {
	RunID  string `json:"run_id"`
	Kind   string `json:"kind"`
	Frames []any  `json:"frames"`
}

// RunsInput filters the journal listing
type RunsInput struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"50"`
}

// Op names the executor operation a run used
type Op string

// Operations recorded in the journal
const (
	OpDetect Op = "detect"
	OpBatch  Op = "batch"
	OpTrack  Op = "track"
)

// Run statuses
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one journaled executor call
type Run struct {
	ID         string        `json:"id"`
	Op         Op            `json:"op"`
	Kinds      []string      `json:"kinds"`
	Identities []string      `json:"identities,omitempty"`
	Inputs     int           `json:"inputs"`
	Count      int           `json:"count"`
	Status     string        `json:"status"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns" swaggertype:"integer"`
}
