package vision

import (
	"context"
	"iter"
	"slices"

	"visionkit/internal/core/imageinput"
	perr "visionkit/internal/platform/errors"
)

// Track runs req over frames in order on a fresh tracker and returns one
// result slice per frame. The first failure aborts the run and no partial
// results are returned.
func Track[R any](ctx context.Context, ex *Executor, req Request[R], frames []imageinput.Input) ([][]R, error) {
	out := make([][]R, 0, len(frames))
	for res, err := range Stream(ctx, ex, req, slices.Values(frames)) {
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

// Stream lazily runs req over frames on a fresh tracker, yielding once per frame.
// A frame is pulled only after the previous one completed. Breaking out of the
// loop stops pulling frames and closes the tracker; an error is yielded once and
// ends the stream.
func Stream[R any](ctx context.Context, ex *Executor, req Request[R], frames iter.Seq[imageinput.Input]) iter.Seq2[[]R, error] {
	return func(yield func([]R, error) bool) {
		for val, err := range ex.StreamDescriptor(ctx, req, frames) {
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(val.([]R), nil) {
				return
			}
		}
	}
}

// TrackDescriptor is Track for a type-erased request; each element is the kind's []R
func (ex *Executor) TrackDescriptor(ctx context.Context, d Descriptor, frames []imageinput.Input) ([]any, error) {
	out := make([]any, 0, len(frames))
	for val, err := range ex.StreamDescriptor(ctx, d, slices.Values(frames)) {
		if err != nil {
			return nil, err
		}
		out = append(out, val)
	}
	return out, nil
}

// StreamDescriptor is Stream for a type-erased request; each value is the kind's []R
func (ex *Executor) StreamDescriptor(ctx context.Context, d Descriptor, frames iter.Seq[imageinput.Input]) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		log := ex.logFor(ctx, d.Kind()).With().Str("op", "sequence").Logger()

		if ex.seq == nil {
			yield(nil, perr.Configurationf("executor has no sequence framework"))
			return
		}
		if err := d.Validate(); err != nil {
			log.Error().Err(err).Msg("sequence rejected")
			yield(nil, err)
			return
		}

		seq, err := ex.seq.NewSequence(ctx)
		if err != nil {
			err = perr.Native(err)
			log.Error().Err(err).Msg("cannot open sequence")
			yield(nil, err)
			return
		}
		defer func() {
			if err := seq.Close(); err != nil {
				log.Warn().Err(err).Msg("closing sequence")
			}
		}()

		frame := 0
		for in := range frames {
			if err := ctx.Err(); err != nil {
				yield(nil, canceled(ctx))
				return
			}
			flog := log.With().Int("frame", frame).Logger()
			ex.metrics.ObserveFrame(string(d.Kind()))
			val, err := ex.execute(ctx, flog, d, in, seq.Perform)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(val, nil) {
				log.Debug().Int("frames", frame+1).Msg("sequence stopped by consumer")
				return
			}
			frame++
		}
		log.Debug().Int("frames", frame).Msg("sequence finished")
	}
}

// FramesFromChannel adapts a producer channel to a frame sequence. It ends when
// ch is closed or ctx is done.
func FramesFromChannel(ctx context.Context, ch <-chan imageinput.Input) iter.Seq[imageinput.Input] {
	return func(yield func(imageinput.Input) bool) {
		for {
			select {
			case <-ctx.Done():
				return
			case in, ok := <-ch:
				if !ok || !yield(in) {
					return
				}
			}
		}
	}
}

