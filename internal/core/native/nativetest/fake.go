// Package nativetest provides a scriptable in-memory detection framework for tests
package nativetest

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"visionkit/internal/core/geometry"
	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
)

// ErrClosed is returned by a sequence used after Close
var ErrClosed = errors.New("nativetest: sequence closed")

// Outcome is what one request completes with
type Outcome struct {
	Obs []native.Observation
	Err error
}

// ScriptFunc decides the outcome of kind on the given 0-based frame.
// Still-image calls always see frame 0.
type ScriptFunc func(kind native.Kind, frame int) Outcome

// Fake implements native.Framework and native.SequenceFramework
type Fake struct {
	mu       sync.Mutex
	outcomes map[native.Kind]Outcome
	script   ScriptFunc

	// PerformErr makes Perform fail synchronously without calling any completion
	PerformErr error
	// Async delivers completions from a goroutine after Perform returns
	Async bool
	// Double calls every completion twice, the second time with an error
	Double bool
	// Reverse completes requests in the reverse of submission order
	Reverse bool
	// Silent never calls completions
	Silent bool

	calls     int
	submitted []*native.Request
	sizes     []geometry.Size
	sequences []*Sequence
	wg        sync.WaitGroup
}

// New returns an empty Fake; unscripted kinds complete with no observations
func New() *Fake {
	return &Fake{outcomes: map[native.Kind]Outcome{}}
}

// On scripts kind to complete with obs
func (f *Fake) On(kind native.Kind, obs ...native.Observation) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[kind] = Outcome{Obs: obs}
	return f
}

// OnNil scripts kind to complete with a nil observation list
func (f *Fake) OnNil(kind native.Kind) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[kind] = Outcome{}
	return f
}

// Fail scripts kind to complete with err
func (f *Fake) Fail(kind native.Kind, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[kind] = Outcome{Err: err}
	return f
}

// Script installs fn; it takes precedence over On and Fail
func (f *Fake) Script(fn ScriptFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = fn
	return f
}

// Perform implements native.Framework
func (f *Fake) Perform(ctx context.Context, h imageinput.Handle, reqs []*native.Request) error {
	f.mu.Lock()
	f.calls++
	f.submitted = append(f.submitted, reqs...)
	f.sizes = append(f.sizes, h.Size())
	f.mu.Unlock()

	if f.PerformErr != nil {
		return f.PerformErr
	}
	f.deliver(reqs, 0)
	return nil
}

func (f *Fake) outcome(kind native.Kind, frame int) Outcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.script != nil {
		return f.script(kind, frame)
	}
	if o, ok := f.outcomes[kind]; ok {
		return o
	}
	return Outcome{Obs: []native.Observation{}}
}

func (f *Fake) deliver(reqs []*native.Request, frame int) {
	if f.Silent {
		return
	}
	order := slices.Clone(reqs)
	if f.Reverse {
		slices.Reverse(order)
	}
	run := func() {
		for _, r := range order {
			o := f.outcome(r.Kind, frame)
			r.Completion(o.Obs, o.Err)
			if f.Double {
				r.Completion(nil, errors.New("nativetest: duplicate completion"))
			}
		}
	}
	if !f.Async {
		run()
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		run()
	}()
}

// Wait blocks until every async delivery finished
func (f *Fake) Wait() { f.wg.Wait() }

// Calls returns how many times Perform ran, sequences included
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Submitted returns every request handed to Perform, in order
func (f *Fake) Submitted() []*native.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.submitted)
}

// Sizes returns the handle size seen by each Perform call
func (f *Fake) Sizes() []geometry.Size {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sizes)
}

// NewSequence implements native.SequenceFramework
func (f *Fake) NewSequence(ctx context.Context) (native.Sequence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &Sequence{fake: f, id: len(f.sequences)}
	f.sequences = append(f.sequences, s)
	return s, nil
}

// Sequences returns every sequence opened so far
func (f *Fake) Sequences() []*Sequence {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.sequences)
}

// Sequence is a fake tracker that counts frames and records their timestamps
type Sequence struct {
	fake *Fake
	id   int

	mu         sync.Mutex
	frames     int
	timestamps []int64
	closed     bool
}

// Perform implements native.Sequence; each call advances the frame counter
func (s *Sequence) Perform(ctx context.Context, h imageinput.Handle, reqs []*native.Request) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	frame := s.frames
	s.frames++
	s.timestamps = append(s.timestamps, int64(h.Timestamp()))
	s.mu.Unlock()

	f := s.fake
	f.mu.Lock()
	f.calls++
	f.submitted = append(f.submitted, reqs...)
	f.sizes = append(f.sizes, h.Size())
	f.mu.Unlock()

	if f.PerformErr != nil {
		return f.PerformErr
	}
	f.deliver(reqs, frame)
	return nil
}

// Close implements native.Sequence
func (s *Sequence) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ID is the open order of the sequence, starting at 0
func (s *Sequence) ID() int { return s.id }

// Frames returns how many frames reached the tracker
func (s *Sequence) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Timestamps returns the sample timestamps in submission order (nanoseconds)
func (s *Sequence) Timestamps() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.timestamps)
}

// Closed reports whether Close was called
func (s *Sequence) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Buffer is a native buffer of fixed dimensions
type Buffer struct{ W, H int }

// Dimensions implements imageinput.Buffer
func (b Buffer) Dimensions() (int, int) { return b.W, b.H }

// Frame returns a video sample input of w x h at timestamp ts nanoseconds
func Frame(w, h int, ts int64) imageinput.Input {
	return imageinput.Sample{Buffer: Buffer{W: w, H: h}, Timestamp: time.Duration(ts)}
}
