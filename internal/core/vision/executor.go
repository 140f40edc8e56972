// Package vision is the typed request/result facade over a native detection framework.
//
// Detect runs one request against one image, DetectAll runs a batch keyed by
// identity against one image, and Track and Stream feed ordered frames to a
// sequence tracker. Every native completion goes through a one-shot guard so a
// framework that calls back twice, or after the caller gave up, cannot resolve
// an outcome a second time.
package vision

import (
	"context"
	"time"

	"visionkit/internal/core/geometry"
	"visionkit/internal/core/guard"
	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/logger"

	"github.com/rs/zerolog"
)

// Metrics receives executor telemetry
type Metrics interface {
	ObserveRequest(kind, outcome string, d time.Duration)
	GuardConflict(kind string)
	ObserveBatch(n int)
	ObserveFrame(kind string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveRequest(string, string, time.Duration) {}
func (nopMetrics) GuardConflict(string)                         {}
func (nopMetrics) ObserveBatch(int)                             {}
func (nopMetrics) ObserveFrame(string)                          {}

// Options configures an Executor; every field is optional
type Options struct {
	Logger  *logger.Logger
	Metrics Metrics
	// Sequences opens trackers for Track and Stream. When nil and the
	// framework implements native.SequenceFramework, the framework is used.
	Sequences native.SequenceFramework
}

// Executor runs requests against an injected framework
type Executor struct {
	fw      native.Framework
	seq     native.SequenceFramework
	log     *logger.Logger
	metrics Metrics
}

// New returns an Executor over fw
func New(fw native.Framework, opt Options) *Executor {
	ex := &Executor{fw: fw, seq: opt.Sequences, log: opt.Logger, metrics: opt.Metrics}
	if ex.log == nil {
		ex.log = logger.Named("vision")
	}
	if ex.metrics == nil {
		ex.metrics = nopMetrics{}
	}
	if ex.seq == nil {
		if sf, ok := fw.(native.SequenceFramework); ok {
			ex.seq = sf
		}
	}
	return ex
}

// Detect runs req against in. No observations is a success with an empty slice.
func Detect[R any](ctx context.Context, ex *Executor, req Request[R], in imageinput.Input) ([]R, error) {
	val, err := ex.DetectDescriptor(ctx, req, in)
	if err != nil {
		return nil, err
	}
	return val.([]R), nil
}

// DetectDescriptor is Detect for a type-erased request; the value is the kind's []R
func (ex *Executor) DetectDescriptor(ctx context.Context, d Descriptor, in imageinput.Input) (any, error) {
	log := ex.logFor(ctx, d.Kind())
	if d.Sequential() {
		err := perr.Configurationf("kind %s needs a sequence tracker; use Track or Stream", d.Kind())
		log.Error().Err(err).Msg("detection rejected")
		return nil, err
	}
	return ex.execute(ctx, log, d, in, ex.fw.Perform)
}

type outcome struct {
	val any
	n   int
	err error
}

type performFunc func(ctx context.Context, h imageinput.Handle, reqs []*native.Request) error

// execute normalizes in, submits d through perform and waits for the guarded outcome
func (ex *Executor) execute(ctx context.Context, log zerolog.Logger, d Descriptor, in imageinput.Input, perform performFunc) (any, error) {
	kind := string(d.Kind())
	start := time.Now()

	h, size, err := imageinput.Normalize(in)
	if err != nil {
		return nil, ex.failed(log, kind, start, err)
	}
	nr, err := nativeRequest(d)
	if err != nil {
		return nil, ex.failed(log, kind, start, err)
	}

	log.Debug().
		Str("input", h.Kind().String()).
		Float64("width", size.Width).
		Float64("height", size.Height).
		Msg("detection started")

	var g guard.Guard
	ch := make(chan outcome, 1)
	resolve := func(o outcome) {
		if !g.TryResolve() {
			ev := log.Warn()
			if o.err != nil {
				ev = ev.AnErr("late_error", o.err)
			}
			ev.Msg("completion after outcome resolved; ignored")
			ex.metrics.GuardConflict(kind)
			return
		}
		ch <- o
	}

	nr.Completion = func(obs []native.Observation, err error) {
		if err != nil {
			resolve(outcome{err: perr.Native(err)})
			return
		}
		val, n := ex.convert(log, d, obs, size)
		resolve(outcome{val: val, n: n})
	}

	if err := perform(ctx, h, []*native.Request{nr}); err != nil {
		resolve(outcome{err: perr.Native(err)})
	}

	o := await(ctx, &g, ch)
	if o.err != nil {
		return nil, ex.failed(log, kind, start, o.err)
	}
	ex.metrics.ObserveRequest(kind, "success", time.Since(start))
	log.Info().Int("count", o.n).Dur("took", time.Since(start)).Msg("detection succeeded")
	return o.val, nil
}

// await returns the delivered outcome or, when ctx ends first, a canceled outcome.
// Cancellation claims the guard so a late completion becomes a logged no-op.
func await(ctx context.Context, g *guard.Guard, ch <-chan outcome) outcome {
	select {
	case o := <-ch:
		return o
	case <-ctx.Done():
		if g.TryResolve() {
			return outcome{err: canceled(ctx)}
		}
		return <-ch
	}
}

func canceled(ctx context.Context) error {
	return perr.Wrap(ctx.Err(), perr.ErrorCodeCanceled, "detection canceled")
}

// convert maps observations and logs the degenerate lists
func (ex *Executor) convert(log zerolog.Logger, d Descriptor, obs []native.Observation, size geometry.Size) (any, int) {
	val, n, c := d.convertAny(obs, size)
	switch {
	case c.nilList:
		log.Debug().Msg("framework returned no results")
	case c.mismatch != "":
		log.Warn().
			Str("expected", c.expected).
			Str("got", c.mismatch).
			Msg("observation type mismatch; returning no results")
	}
	return val, n
}

func (ex *Executor) failed(log zerolog.Logger, kind string, start time.Time, err error) error {
	ex.metrics.ObserveRequest(kind, perr.CodeOf(err).String(), time.Since(start))
	log.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("detection failed")
	return err
}

func (ex *Executor) logFor(ctx context.Context, kind native.Kind) zerolog.Logger {
	return logger.From(ctx, ex.log).With().Str("kind", string(kind)).Logger()
}
