// Package service runs detections through the vision executor and journals each run
package service

import (
	"context"
	"reflect"
	"time"

	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	"visionkit/internal/core/vision"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/logger"
	"visionkit/internal/services/detect/domain"

	"github.com/google/uuid"
)

// Config tunes the service
type Config struct {
	// MaxFrames caps the frames accepted by one Track call, 0 means unlimited
	MaxFrames int
}

// Service implements domain.ServicePort
type Service struct {
	ex      *vision.Executor
	journal domain.JournalPort
	cfg     Config
	log     logger.Logger

	now   func() time.Time
	newID func() string
}

var _ domain.ServicePort = (*Service)(nil)

// New creates a detect service; journal may be nil
func New(ex *vision.Executor, journal domain.JournalPort, cfg Config, log *logger.Logger) *Service {
	if ex == nil {
		panic("detect.Service requires a non nil Executor")
	}
	if log == nil {
		log = logger.Named("detect")
	}
	return &Service{
		ex:      ex,
		journal: journal,
		cfg:     cfg,
		log:     log.With().Str("component", "detect").Logger(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Detect runs one request against one image
func (s *Service) Detect(ctx context.Context, spec domain.RequestSpec, in imageinput.Input) (domain.DetectOutput, error) {
	run, ctx := s.begin(ctx, domain.OpDetect, 1, spec.Kind)
	out := domain.DetectOutput{RunID: run.ID, Kind: spec.Kind}

	d, err := build(spec)
	if err != nil {
		s.finish(ctx, &run, 0, err)
		return out, err
	}
	vals, err := s.ex.DetectDescriptor(ctx, d, in)
	if err != nil {
		s.finish(ctx, &run, 0, err)
		return out, err
	}
	out.Results = vals
	out.Count = count(vals)
	s.finish(ctx, &run, out.Count, nil)
	return out, nil
}

// DetectAll runs every entry against one image. On failure the returned
// output still carries the entries that completed before the first error.
func (s *Service) DetectAll(ctx context.Context, in domain.BatchInput, img imageinput.Input) (domain.BatchOutput, error) {
	kinds := make([]string, 0, len(in.Entries))
	ids := make([]string, 0, len(in.Entries))
	for _, e := range in.Entries {
		kinds = append(kinds, e.Kind)
		ids = append(ids, e.ID)
	}
	run, ctx := s.begin(ctx, domain.OpBatch, 1, kinds...)
	run.Identities = ids
	out := domain.BatchOutput{RunID: run.ID}

	entries := make([]vision.Entry, 0, len(in.Entries))
	for _, e := range in.Entries {
		d, err := build(e.RequestSpec)
		if err != nil {
			err = perr.Wrapf(err, perr.CodeOf(err), "entry %q", e.ID)
			out.FailedID = e.ID
			s.finish(ctx, &run, 0, err)
			return out, err
		}
		entries = append(entries, vision.Entry{ID: e.ID, Request: d})
	}

	res, err := s.ex.DetectAll(ctx, entries, img)
	out.Results = res
	total := 0
	for _, v := range res {
		total += count(v)
	}
	if err != nil {
		out.FailedID, _ = vision.FailedEntry(err)
		s.finish(ctx, &run, total, err)
		return out, err
	}
	s.finish(ctx, &run, total, nil)
	return out, nil
}

// Track runs a sequential kind over frames on a fresh tracker
func (s *Service) Track(ctx context.Context, spec domain.RequestSpec, frames []imageinput.Input) (domain.TrackOutput, error) {
	run, ctx := s.begin(ctx, domain.OpTrack, len(frames), spec.Kind)
	out := domain.TrackOutput{RunID: run.ID, Kind: spec.Kind}

	if s.cfg.MaxFrames > 0 && len(frames) > s.cfg.MaxFrames {
		err := perr.WithField(perr.Configurationf("%d frames exceed the limit of %d", len(frames), s.cfg.MaxFrames), "frames")
		s.finish(ctx, &run, 0, err)
		return out, err
	}
	d, err := build(spec)
	if err != nil {
		s.finish(ctx, &run, 0, err)
		return out, err
	}
	vals, err := s.ex.TrackDescriptor(ctx, d, frames)
	if err != nil {
		s.finish(ctx, &run, 0, err)
		return out, err
	}
	total := 0
	for _, v := range vals {
		total += count(v)
	}
	out.Frames = vals
	s.finish(ctx, &run, total, nil)
	return out, nil
}

// Kinds lists every supported kind
func (s *Service) Kinds() []vision.KindInfo { return vision.Kinds() }

// Runs lists recent journaled runs, newest first
func (s *Service) Runs(ctx context.Context, in domain.RunsInput) ([]domain.Run, error) {
	if s.journal == nil {
		return nil, perr.Unavailablef("run journal is disabled")
	}
	return s.journal.Recent(ctx, in.Limit)
}

func build(spec domain.RequestSpec) (vision.Descriptor, error) {
	return vision.Build(native.Kind(spec.Kind), spec.Config, vision.JSONDecoder(spec.Options))
}

func (s *Service) begin(ctx context.Context, op domain.Op, inputs int, kinds ...string) (domain.Run, context.Context) {
	run := domain.Run{
		ID:        s.newID(),
		Op:        op,
		Kinds:     kinds,
		Inputs:    inputs,
		StartedAt: s.now().UTC(),
	}
	return run, logger.WithRun(ctx, run.ID)
}

// finish stamps the outcome and journals the run; journal failures are logged, never returned
func (s *Service) finish(ctx context.Context, run *domain.Run, n int, err error) {
	run.Duration = s.now().Sub(run.StartedAt)
	run.Count = n
	run.Status = domain.StatusOK
	if err != nil {
		run.Status = domain.StatusFailed
		run.ErrorCode = perr.CodeOf(err).String()
		run.Error = err.Error()
	}

	log := logger.From(ctx, &s.log)
	log.Debug().
		Str("op", string(run.Op)).
		Strs("kinds", run.Kinds).
		Str("status", run.Status).
		Int("count", n).
		Dur("took", run.Duration).
		Msg("run finished")

	if s.journal == nil {
		return
	}
	// journal even when the caller canceled
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if jerr := s.journal.Record(jctx, *run); jerr != nil {
		log.Warn().Err(jerr).Msg("journal write failed")
	}
}

// count reports the length of a kind's []R held as any
func count(v any) int {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return 0
	}
	return rv.Len()
}
