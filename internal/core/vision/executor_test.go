package vision

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"visionkit/internal/core/geometry"
	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	"visionkit/internal/core/native/nativetest"
	perr "visionkit/internal/platform/errors"
	kit "visionkit/internal/platform/testkit"
)

func still(w, h int) imageinput.Input {
	return imageinput.Bitmap{Image: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func newTestExecutor(t *testing.T, fw native.Framework) (*Executor, *kit.LogBuffer) {
	t.Helper()
	l, buf := kit.CaptureLogs(t)
	return New(fw, Options{Logger: l}), buf
}

func face(x, y, w, h float64) native.FaceObservation {
	return native.FaceObservation{BoundingBox: geometry.Rect{X: x, Y: y, Width: w, Height: h}, Confidence: 1}
}

func TestDetect_ConvertsWithImageSize(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().On(KindFaceRectangles, face(0.1, 0.2, 0.3, 0.4))
	ex, buf := newTestExecutor(t, fake)

	got, err := Detect(context.Background(), ex, FaceRectangles(Config{}), still(1000, 500))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 1 || !rectClose(got[0].Frame, geometry.Rect{X: 100, Y: 200, Width: 300, Height: 200}) {
		t.Fatalf("got %+v", got)
	}
	if fake.Calls() != 1 {
		t.Fatalf("calls = %d", fake.Calls())
	}
	kit.MustContain(t, buf.String(), "detection started")
	kit.MustContain(t, buf.String(), `"count":1`)
}

func TestDetect_ZeroDimensionNeverCallsFramework(t *testing.T) {
	t.Parallel()

	fake := nativetest.New()
	ex, buf := newTestExecutor(t, fake)

	for _, in := range []imageinput.Input{
		still(0, 10),
		imageinput.Native{Buffer: nativetest.Buffer{W: 10, H: 0}},
		imageinput.Sample{},
		imageinput.Bitmap{},
	} {
		_, err := Detect(context.Background(), ex, FaceRectangles(Config{}), in)
		if !perr.IsCode(err, perr.ErrorCodeInvalidInput) {
			t.Fatalf("want invalid input for %#v, got %v", in, err)
		}
	}
	if fake.Calls() != 0 {
		t.Fatalf("framework called %d times", fake.Calls())
	}
	kit.MustContain(t, buf.String(), "detection failed")
}

func TestDetect_ConfigurationErrorBeforeNativeCall(t *testing.T) {
	t.Parallel()

	fake := nativetest.New()
	ex, _ := newTestExecutor(t, fake)
	_, err := Detect(context.Background(), ex, RecognizeText(Config{}, TextOptions{Languages: []string{"??"}}), still(10, 10))
	if !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("want configuration, got %v", err)
	}
	_, err = Detect(context.Background(), ex, Trajectories(Config{}, TrajectoriesOptions{}), still(10, 10))
	if !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("sequential kind on Detect: want configuration, got %v", err)
	}
	if fake.Calls() != 0 {
		t.Fatalf("framework called %d times", fake.Calls())
	}
}

func TestDetect_EmptyIsSuccess(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().On(KindText)
	ex, _ := newTestExecutor(t, fake)
	got, err := Detect(context.Background(), ex, RecognizeText(Config{}, TextOptions{}), still(10, 10))
	if err != nil || got == nil || len(got) != 0 {
		t.Fatalf("got %v, %v; want empty non-nil slice", got, err)
	}
}

func TestDetect_NilListLogsDebug(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().OnNil(KindBarcodes)
	ex, buf := newTestExecutor(t, fake)
	got, err := Detect(context.Background(), ex, Barcodes(Config{}, BarcodesOptions{}), still(10, 10))
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	kit.MustContain(t, buf.String(), "framework returned no results")
}

func TestDetect_TypeMismatchIsEmptyWithWarning(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().On(KindFaceRectangles, native.HorizonObservation{Angle: 1})
	ex, buf := newTestExecutor(t, fake)
	got, err := Detect(context.Background(), ex, FaceRectangles(Config{}), still(10, 10))
	if err != nil || len(got) != 0 {
		t.Fatalf("got %v, %v", got, err)
	}
	if buf.Count("observation type mismatch") != 1 {
		t.Fatalf("expected one mismatch warning:\n%s", buf.String())
	}
	kit.MustContain(t, buf.String(), `"got":"horizon"`)
}

func TestDetect_NativeErrorKeepsCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("model unavailable")
	fake := nativetest.New().Fail(KindClassify, cause)
	ex, _ := newTestExecutor(t, fake)
	_, err := Detect(context.Background(), ex, Classify(Config{}, ClassifyOptions{}), still(10, 10))
	if !perr.IsCode(err, perr.ErrorCodeNative) || !errors.Is(err, cause) {
		t.Fatalf("want native error wrapping cause, got %v", err)
	}
}

func TestDetect_SynchronousPerformError(t *testing.T) {
	t.Parallel()

	cause := errors.New("handler refused")
	fake := nativetest.New()
	fake.PerformErr = cause
	ex, _ := newTestExecutor(t, fake)
	_, err := Detect(context.Background(), ex, DetectHorizon(Config{}), still(10, 10))
	if !perr.IsCode(err, perr.ErrorCodeNative) || !errors.Is(err, cause) {
		t.Fatalf("want native error, got %v", err)
	}
}

func TestDetect_DoubleCompletionSuppressed(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().On(KindFaceRectangles, face(0, 0, 1, 1))
	fake.Double = true
	ex, buf := newTestExecutor(t, fake)

	got, err := Detect(context.Background(), ex, FaceRectangles(Config{}), still(10, 10))
	if err != nil || len(got) != 1 {
		t.Fatalf("first completion should win: %v, %v", got, err)
	}
	if buf.Count("completion after outcome resolved") != 1 {
		t.Fatalf("expected one suppressed completion:\n%s", buf.String())
	}
}

func TestDetect_AsyncCompletion(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().On(KindAnimals, native.ObjectObservation{
		Labels: []native.ClassificationObservation{{Identifier: "Dog", Confidence: 0.8}},
	})
	fake.Async = true
	ex, _ := newTestExecutor(t, fake)

	got, err := Detect(context.Background(), ex, RecognizeAnimals(Config{}), still(10, 10))
	fake.Wait()
	if err != nil || len(got) != 1 || got[0].Identifier != "Dog" {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestDetect_CancelWinsOverLateCompletion(t *testing.T) {
	t.Parallel()

	fake := nativetest.New()
	fake.Silent = true
	ex, _ := newTestExecutor(t, fake)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := Detect(ctx, ex, FaceRectangles(Config{}), still(10, 10))
	if !perr.IsCode(err, perr.ErrorCodeCanceled) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want canceled, got %v", err)
	}

	// the framework answering afterwards is a logged no-op
	reqs := fake.Submitted()
	if len(reqs) != 1 {
		t.Fatalf("submitted = %d", len(reqs))
	}
	kit.MustNotPanic(t, func() { reqs[0].Completion([]native.Observation{face(0, 0, 1, 1)}, nil) })
}

type countingMetrics struct {
	nopMetrics
	conflicts int
	outcomes  map[string]int
}

func (m *countingMetrics) GuardConflict(string) { m.conflicts++ }

func (m *countingMetrics) ObserveRequest(_, outcome string, _ time.Duration) {
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

func TestDetect_Metrics(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().On(KindFaceRectangles, face(0, 0, 1, 1))
	fake.Double = true
	m := &countingMetrics{}
	l, _ := kit.CaptureLogs(t)
	ex := New(fake, Options{Logger: l, Metrics: m})

	if _, err := Detect(context.Background(), ex, FaceRectangles(Config{}), still(10, 10)); err != nil {
		t.Fatalf("Detect: %v", err)
	}
	_, _ = Detect(context.Background(), ex, FaceRectangles(Config{}), still(0, 0))

	if m.conflicts != 1 || m.outcomes["success"] != 1 || m.outcomes["invalid_input"] != 1 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestDetectDescriptor_ErasedValue(t *testing.T) {
	t.Parallel()

	fake := nativetest.New().On(KindHorizon, native.HorizonObservation{Angle: 0.25})
	ex, _ := newTestExecutor(t, fake)
	d, err := Build(KindHorizon, Config{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	val, err := ex.DetectDescriptor(context.Background(), d, still(10, 10))
	if err != nil {
		t.Fatalf("DetectDescriptor: %v", err)
	}
	hs, ok := val.([]Horizon)
	if !ok || len(hs) != 1 || hs[0].AngleRadians != 0.25 {
		t.Fatalf("val = %#v", val)
	}
}

func TestDetect_RequestCarriesConfig(t *testing.T) {
	t.Parallel()

	fake := nativetest.New()
	ex, _ := newTestExecutor(t, fake)
	roi := geometry.Rect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}
	rev := 2
	_, err := Detect(context.Background(), ex, RecognizeText(Config{Revision: &rev, RegionOfInterest: &roi, CPUOnly: true}, TextOptions{Level: TextLevelFast}), still(10, 10))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	nr := fake.Submitted()[0]
	if nr.Kind != KindText || nr.Revision != 2 || !nr.CPUOnly || !nr.PreferBackground || *nr.RegionOfInterest != roi {
		t.Fatalf("native request = %+v", nr)
	}
	if opts, ok := nr.Options.(TextOptions); !ok || opts.Level != TextLevelFast {
		t.Fatalf("options = %#v", nr.Options)
	}
}
