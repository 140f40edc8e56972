// Package native defines the port to the external detection framework.
//
// A Framework runs a set of requests against one image handle and reports
// every request's outcome through its Completion callback. Implementations
// may call back synchronously, from other goroutines, or after Perform
// returns; they should call each completion once, but callers must tolerate more.
package native

import (
	"context"

	"visionkit/internal/core/geometry"
	"visionkit/internal/core/imageinput"
)

// Kind identifies a detection capability of the framework
type Kind string

// Completion receives the raw observations or the failure of one request
type Completion func(obs []Observation, err error)

// Request is one configured detection submitted to a framework
type Request struct {
	Kind     Kind
	Revision int // 0 = framework default

	// RegionOfInterest is normalized; nil = whole image
	RegionOfInterest *geometry.Rect

	CPUOnly          bool
	PreferBackground bool

	// Options is the kind specific option struct (e.g. TextOptions)
	Options any

	Completion Completion
}

// Framework performs still-image requests
type Framework interface {
	Perform(ctx context.Context, h imageinput.Handle, reqs []*Request) error
}

// Sequence is a stateful tracker fed one frame per Perform call, in order
type Sequence interface {
	Perform(ctx context.Context, h imageinput.Handle, reqs []*Request) error
	Close() error
}

// SequenceFramework opens independent trackers
type SequenceFramework interface {
	NewSequence(ctx context.Context) (Sequence, error)
}

// FrameworkFunc adapts a function to Framework
type FrameworkFunc func(ctx context.Context, h imageinput.Handle, reqs []*Request) error

// Perform calls f
func (f FrameworkFunc) Perform(ctx context.Context, h imageinput.Handle, reqs []*Request) error {
	return f(ctx, h, reqs)
}
