package vision

import (
	"context"
	"errors"
	"iter"
	"slices"
	"testing"
	"time"

	"visionkit/internal/core/geometry"
	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	"visionkit/internal/core/native/nativetest"
	perr "visionkit/internal/platform/errors"
)

// trajectoryPerFrame reports one trajectory whose confidence is the tracker-local frame index
func trajectoryPerFrame(kind native.Kind, frame int) nativetest.Outcome {
	return nativetest.Outcome{Obs: []native.Observation{native.TrajectoryObservation{
		Points:     []geometry.Point{{X: 0.5, Y: 0.5}},
		Confidence: float64(frame),
	}}}
}

func frames(n int) []imageinput.Input {
	out := make([]imageinput.Input, n)
	for i := range out {
		out[i] = nativetest.Frame(64, 48, int64(i+1)*int64(time.Millisecond))
	}
	return out
}

func TestTrack_FramesInOrder(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().Script(trajectoryPerFrame)
	ex, _ := newTestExecutor(t, fake)

	got, err := Track(context.Background(), ex, Trajectories(Config{}, TrajectoriesOptions{}), frames(5))
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("frames = %d", len(got))
	}
	for i, r := range got {
		if len(r) != 1 || r[0].Confidence != float64(i) {
			t.Fatalf("frame %d = %+v", i, r)
		}
		if !pointClose(r[0].Points[0], geometry.Point{X: 32, Y: 24}) {
			t.Fatalf("frame %d point = %+v", i, r[0].Points[0])
		}
	}
	seqs := fake.Sequences()
	if len(seqs) != 1 || !seqs[0].Closed() {
		t.Fatalf("want one closed sequence, got %d", len(seqs))
	}
	ts := seqs[0].Timestamps()
	for i := range ts {
		if ts[i] != int64(i+1)*int64(time.Millisecond) {
			t.Fatalf("timestamps out of order: %v", ts)
		}
	}
}

func TestTrack_FailFastNoPartials(t *testing.T) {
	t.Parallel()

	boom := errors.New("tracker lost")
	fake := nativetest.New().Script(func(kind native.Kind, frame int) nativetest.Outcome {
		if frame == 2 {
			return nativetest.Outcome{Err: boom}
		}
		return trajectoryPerFrame(kind, frame)
	})
	ex, _ := newTestExecutor(t, fake)

	got, err := Track(context.Background(), ex, Trajectories(Config{}, TrajectoriesOptions{}), frames(5))
	if !errors.Is(err, boom) || !perr.IsCode(err, perr.ErrorCodeNative) {
		t.Fatalf("err = %v", err)
	}
	if got != nil {
		t.Fatalf("partial results returned: %v", got)
	}
	seq := fake.Sequences()[0]
	if seq.Frames() != 3 || !seq.Closed() {
		t.Fatalf("frames = %d closed = %v; want 3, true", seq.Frames(), seq.Closed())
	}
}

func TestTrack_InvalidFrameAborts(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().Script(trajectoryPerFrame)
	ex, _ := newTestExecutor(t, fake)
	in := frames(3)
	in[1] = imageinput.Sample{}

	_, err := Track(context.Background(), ex, Trajectories(Config{}, TrajectoriesOptions{}), in)
	if !perr.IsCode(err, perr.ErrorCodeInvalidInput) {
		t.Fatalf("want invalid input, got %v", err)
	}
	if seq := fake.Sequences()[0]; seq.Frames() != 1 || !seq.Closed() {
		t.Fatalf("frames = %d, closed = %v", seq.Frames(), seq.Closed())
	}
}

func TestTrack_IndependentSequences(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().Script(trajectoryPerFrame)
	ex, _ := newTestExecutor(t, fake)
	req := Trajectories(Config{}, TrajectoriesOptions{})

	first, err := Track(context.Background(), ex, req, frames(3))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := Track(context.Background(), ex, req, frames(2))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	// each run starts its own tracker at frame 0
	if first[0][0].Confidence != 0 || second[0][0].Confidence != 0 || second[1][0].Confidence != 1 {
		t.Fatalf("tracker state leaked: first=%v second=%v", first, second)
	}
	seqs := fake.Sequences()
	if len(seqs) != 2 || seqs[0].Frames() != 3 || seqs[1].Frames() != 2 {
		t.Fatalf("sequences = %d", len(seqs))
	}
}

func TestTrack_EmptyAndStillKinds(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().On(KindHorizon, native.HorizonObservation{Angle: 0.5})
	ex, _ := newTestExecutor(t, fake)

	got, err := Track(context.Background(), ex, DetectHorizon(Config{}), frames(2))
	if err != nil || len(got) != 2 || got[1][0].AngleRadians != 0.5 {
		t.Fatalf("got %v, %v", got, err)
	}
	empty, err := Track(context.Background(), ex, DetectHorizon(Config{}), nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty = %v, %v", empty, err)
	}
}

func TestStream_BreakStopsPullingAndCloses(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().Script(trajectoryPerFrame)
	ex, _ := newTestExecutor(t, fake)

	pulled := 0
	source := func(yield func(imageinput.Input) bool) {
		for i := 0; ; i++ {
			pulled++
			if !yield(nativetest.Frame(8, 8, int64(i))) {
				return
			}
		}
	}

	seen := 0
	for res, err := range Stream(context.Background(), ex, Trajectories(Config{}, TrajectoriesOptions{}), iter.Seq[imageinput.Input](source)) {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		if res[0].Confidence != float64(seen) {
			t.Fatalf("frame %d got %v", seen, res)
		}
		seen++
		if seen == 3 {
			break
		}
	}
	if pulled != 3 {
		t.Fatalf("pulled %d frames, want 3", pulled)
	}
	seq := fake.Sequences()[0]
	if !seq.Closed() || seq.Frames() != 3 {
		t.Fatalf("closed = %v frames = %d", seq.Closed(), seq.Frames())
	}
}

func TestStream_ErrorYieldedOnce(t *testing.T) {
	t.Parallel()

	fake := nativetest.New()
	fake.PerformErr = errors.New("gpu reset")
	ex, _ := newTestExecutor(t, fake)

	errs := 0
	items := 0
	for _, err := range Stream(context.Background(), ex, BodyPose(Config{}), slices.Values(frames(4))) {
		items++
		if err != nil {
			errs++
		}
	}
	if errs != 1 || items != 1 {
		t.Fatalf("items = %d errs = %d", items, errs)
	}
	if !fake.Sequences()[0].Closed() {
		t.Fatalf("sequence left open")
	}
}

func TestStream_NoSequenceFramework(t *testing.T) {
	t.Parallel()

	fw := native.FrameworkFunc(func(context.Context, imageinput.Handle, []*native.Request) error { return nil })
	ex, _ := newTestExecutor(t, fw)
	_, err := Track(context.Background(), ex, BodyPose(Config{}), frames(1))
	if !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("want configuration, got %v", err)
	}
}

func TestFramesFromChannel(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().Script(trajectoryPerFrame)
	ex, _ := newTestExecutor(t, fake)

	ch := make(chan imageinput.Input)
	go func() {
		defer close(ch)
		for _, f := range frames(4) {
			ch <- f
		}
	}()

	n := 0
	for res, err := range Stream(context.Background(), ex, Trajectories(Config{}, TrajectoriesOptions{}), FramesFromChannel(context.Background(), ch)) {
		if err != nil {
			t.Fatalf("stream: %v", err)
		}
		if res[0].Confidence != float64(n) {
			t.Fatalf("order broken at %d", n)
		}
		n++
	}
	if n != 4 {
		t.Fatalf("frames = %d", n)
	}
}

func TestFramesFromChannel_ContextEnds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ch := make(chan imageinput.Input)
	for range FramesFromChannel(ctx, ch) {
		t.Fatalf("no frame expected after cancel")
	}
}

func TestTrackObject_SeedSentEveryFrame(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().Script(func(_ native.Kind, frame int) nativetest.Outcome {
		x := 0.1 + 0.1*float64(frame)
		return nativetest.Outcome{Obs: []native.Observation{native.ObjectObservation{
			BoundingBox: geometry.Rect{X: x, Y: 0.5, Width: 0.25, Height: 0.25},
			Confidence:  0.9,
		}}}
	})
	ex, _ := newTestExecutor(t, fake)
	seed := geometry.Rect{X: 0.1, Y: 0.5, Width: 0.25, Height: 0.25}

	got, err := Track(context.Background(), ex, TrackObject(Config{}, TrackObjectOptions{Initial: seed}), frames(3))
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	for i, r := range got {
		// frames are 64x48
		want := geometry.Rect{X: (0.1 + 0.1*float64(i)) * 64, Y: 0.25 * 48, Width: 16, Height: 12}
		if len(r) != 1 || !rectClose(r[0].Frame, want) {
			t.Fatalf("frame %d = %+v, want %+v", i, r, want)
		}
	}
	for i, req := range fake.Submitted() {
		o, ok := req.Options.(TrackObjectOptions)
		if !ok || o.Initial != seed {
			t.Fatalf("request %d options = %#v", i, req.Options)
		}
	}

	_, err = Detect(context.Background(), ex, TrackObject(Config{}, TrackObjectOptions{Initial: seed}), frames(1)[0])
	if !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("tracker on a still: %v", err)
	}
}
