package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/vision"
	"visionkit/internal/modkit/swaggerkit"
	perr "visionkit/internal/platform/errors"
	phttp "visionkit/internal/platform/net/http"
	"visionkit/internal/services/detect/domain"

	"github.com/go-chi/chi/v5"
)

type fakeSvc struct {
	spec    domain.RequestSpec
	batch   domain.BatchInput
	images  []imageinput.Input
	limit   int
	err     error
	partial domain.BatchOutput
}

func (f *fakeSvc) Detect(_ context.Context, spec domain.RequestSpec, in imageinput.Input) (domain.DetectOutput, error) {
	f.spec, f.images = spec, []imageinput.Input{in}
	if f.err != nil {
		return domain.DetectOutput{}, f.err
	}
	return domain.DetectOutput{RunID: "r1", Kind: spec.Kind, Results: []int{}}, nil
}

func (f *fakeSvc) DetectAll(_ context.Context, in domain.BatchInput, img imageinput.Input) (domain.BatchOutput, error) {
	f.batch, f.images = in, []imageinput.Input{img}
	return f.partial, f.err
}

func (f *fakeSvc) Track(_ context.Context, spec domain.RequestSpec, frames []imageinput.Input) (domain.TrackOutput, error) {
	f.spec, f.images = spec, frames
	return domain.TrackOutput{RunID: "r3", Kind: spec.Kind, Frames: make([]any, len(frames))}, f.err
}

func (f *fakeSvc) Kinds() []vision.KindInfo { return vision.Kinds() }

func (f *fakeSvc) Runs(_ context.Context, in domain.RunsInput) ([]domain.Run, error) {
	f.limit = in.Limit
	return []domain.Run{{ID: "r1"}}, f.err
}

func serve(t *testing.T, svc domain.ServicePort, maxBytes int64) *chi.Mux {
	t.Helper()
	mux := chi.NewRouter()
	phttp.AdaptChi(mux).Route("/detect", func(r phttp.Router) { Register(r, svc, maxBytes) })
	return mux
}

type part struct {
	field, value string
	file         bool
}

func form(t *testing.T, path string, parts ...part) *stdhttp.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.file {
			fw, err := mw.CreateFormFile(p.field, p.field+".png")
			if err != nil {
				t.Fatalf("file part: %v", err)
			}
			_, _ = fw.Write([]byte(p.value))
			continue
		}
		if err := mw.WriteField(p.field, p.value); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	_ = mw.Close()
	req := httptest.NewRequest(stdhttp.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func TestDetect_BindsRequestAndImage(t *testing.T) {
	svc := &fakeSvc{}
	mux := serve(t, svc, 1<<20)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, form(t, "/detect",
		part{field: FieldRequest, value: `{"kind":"text","options":{"languages":["en-US"]}}`},
		part{field: FieldImage, value: "png-bytes", file: true},
	))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if svc.spec.Kind != "text" || string(svc.spec.Options) != `{"languages":["en-US"]}` {
		t.Fatalf("spec = %+v", svc.spec)
	}
	enc, ok := svc.images[0].(imageinput.Encoded)
	if !ok || string(enc.Data) != "png-bytes" {
		t.Fatalf("image = %#v", svc.images[0])
	}
}

func TestDetect_MissingParts(t *testing.T) {
	mux := serve(t, &fakeSvc{}, 1<<20)

	cases := map[string][]part{
		"no request": {{field: FieldImage, value: "x", file: true}},
		"no image":   {{field: FieldRequest, value: `{"kind":"text"}`}},
		"no kind":    {{field: FieldRequest, value: `{}`}, {field: FieldImage, value: "x", file: true}},
		"bad json":   {{field: FieldRequest, value: `{"kind":`}, {field: FieldImage, value: "x", file: true}},
	}
	for name, parts := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, form(t, "/detect", parts...))
		if rec.Code != stdhttp.StatusBadRequest {
			t.Fatalf("%s: status = %d body=%s", name, rec.Code, rec.Body.String())
		}
	}
}

func TestDetect_ServiceErrorMapsStatus(t *testing.T) {
	svc := &fakeSvc{err: perr.InvalidInputf("image has zero width")}
	mux := serve(t, svc, 1<<20)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, form(t, "/detect",
		part{field: FieldRequest, value: `{"kind":"horizon"}`},
		part{field: FieldImage, value: "x", file: true},
	))
	if rec.Code != stdhttp.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
	if env := decodeEnvelope(t, rec); env.Error == "" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestBatch_FailureKeepsPartialResults(t *testing.T) {
	svc := &fakeSvc{
		err: perr.Native(errors.New("decoder crashed")),
		partial: domain.BatchOutput{
			RunID:    "r2",
			Results:  vision.Results{"faces": []int{}},
			FailedID: "codes",
		},
	}
	mux := serve(t, svc, 1<<20)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, form(t, "/detect/batch",
		part{field: FieldBatch, value: `{"entries":[{"id":"faces","kind":"face_rectangles"},{"id":"codes","kind":"barcodes"}]}`},
		part{field: FieldImage, value: "x", file: true},
	))
	if rec.Code != stdhttp.StatusBadGateway {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	var env struct {
		Error string            `json:"error"`
		Data  domain.BatchOutput `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.FailedID != "codes" || env.Data.Results["faces"] == nil || env.Error == "" {
		t.Fatalf("envelope = %+v", env)
	}
	if len(svc.batch.Entries) != 2 || svc.batch.Entries[1].Kind != "barcodes" {
		t.Fatalf("batch = %+v", svc.batch)
	}
}

func TestBatch_ValidatesEntries(t *testing.T) {
	mux := serve(t, &fakeSvc{}, 1<<20)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, form(t, "/detect/batch",
		part{field: FieldBatch, value: `{"entries":[]}`},
		part{field: FieldImage, value: "x", file: true},
	))
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTrack_FramesInSubmissionOrder(t *testing.T) {
	svc := &fakeSvc{}
	mux := serve(t, svc, 1<<20)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, form(t, "/detect/track",
		part{field: FieldRequest, value: `{"kind":"trajectories"}`},
		part{field: FieldFrame, value: "f0", file: true},
		part{field: FieldFrame, value: "f1", file: true},
		part{field: FieldFrame, value: "f2", file: true},
	))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if len(svc.images) != 3 {
		t.Fatalf("frames = %d", len(svc.images))
	}
	for i, in := range svc.images {
		if got := string(in.(imageinput.Encoded).Data); got != "f"+string(rune('0'+i)) {
			t.Fatalf("frame %d = %q", i, got)
		}
	}
}

func TestUpload_TooLarge(t *testing.T) {
	mux := serve(t, &fakeSvc{}, 128)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, form(t, "/detect",
		part{field: FieldRequest, value: `{"kind":"horizon"}`},
		part{field: FieldImage, value: string(bytes.Repeat([]byte("p"), 2048)), file: true},
	))
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestKinds(t *testing.T) {
	mux := serve(t, &fakeSvc{}, 1<<20)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/detect/kinds", nil))
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var env struct {
		Data []vision.KindInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil || len(env.Data) != len(vision.Kinds()) {
		t.Fatalf("kinds = %d err=%v", len(env.Data), err)
	}
}

func TestRuns_Limit(t *testing.T) {
	svc := &fakeSvc{}
	mux := serve(t, svc, 1<<20)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/detect/runs?limit=7", nil))
	if rec.Code != stdhttp.StatusOK || svc.limit != 7 {
		t.Fatalf("status = %d limit=%d", rec.Code, svc.limit)
	}

	for _, q := range []string{"abc", "0", "501"} {
		rec = httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/detect/runs?limit="+q, nil))
		if rec.Code != stdhttp.StatusBadRequest {
			t.Fatalf("limit=%s status = %d", q, rec.Code)
		}
	}
}

func TestRuns_JournalDisabled(t *testing.T) {
	mux := serve(t, &fakeSvc{err: perr.Unavailablef("run journal is disabled")}, 1<<20)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/detect/runs", nil))
	if rec.Code != stdhttp.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDocsRegistered(t *testing.T) {
	paths, _ := swaggerkit.Build(swaggerkit.Options{})["paths"].(map[string]any)
	for path, method := range map[string]string{
		"/detect": "post", "/detect/batch": "post", "/detect/track": "post",
		"/detect/kinds": "get", "/detect/runs": "get",
	} {
		item, _ := paths[path].(map[string]any)
		if item[method] == nil {
			t.Fatalf("%s %s not documented", method, path)
		}
	}
}
