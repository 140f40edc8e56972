package domain

import (
	"context"

	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/vision"
)

// ServicePort is the detect service contract shared by http, cli and other modules
type ServicePort interface {
	Detect(ctx context.Context, spec RequestSpec, in imageinput.Input) (DetectOutput, error)
	DetectAll(ctx context.Context, in BatchInput, img imageinput.Input) (BatchOutput, error)
	Track(ctx context.Context, spec RequestSpec, frames []imageinput.Input) (TrackOutput, error)
	Kinds() []vision.KindInfo
	Runs(ctx context.Context, in RunsInput) ([]Run, error)
}

// JournalPort persists run records; implementations must be safe for concurrent use
type JournalPort interface {
	Record(ctx context.Context, r Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

// Ports are dependencies injected into the detect module
type Ports struct {
	Executor *vision.Executor // required
	Journal  JournalPort      // optional, nil disables journaling
}
