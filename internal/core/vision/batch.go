package vision

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"visionkit/internal/core/guard"
	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/logger"
)

// Entry is one identified request of a batch
type Entry struct {
	ID      string
	Request Descriptor
}

// Results maps entry identity to the kind's []R
type Results map[string]any

// ResultsOf returns the typed results stored under id
func ResultsOf[R any](res Results, id string) ([]R, bool) {
	v, ok := res[id]
	if !ok {
		return nil, false
	}
	out, ok := v.([]R)
	return out, ok
}

// EntryError names the entry whose completion failed a batch first.
// Batch-wide failures (framework submit errors, cancellation) are not wrapped.
type EntryError struct {
	ID  string
	Err error
}

func (e *EntryError) Error() string { return fmt.Sprintf("entry %q: %v", e.ID, e.Err) }

func (e *EntryError) Unwrap() error { return e.Err }

// FailedEntry returns the identity carried by an EntryError in err's chain
func FailedEntry(err error) (string, bool) {
	var ee *EntryError
	if errors.As(err, &ee) {
		return ee.ID, true
	}
	return "", false
}

// batch accumulates completions; every field is guarded by mu. Once sealed,
// completions are dropped.
type batch struct {
	mu       sync.Mutex
	ids      []string
	results  Results
	answered map[string]bool
	firstErr error
	failedID string
	sealed   bool
}

func newBatch(entries []Entry) *batch {
	b := &batch{
		ids:      make([]string, len(entries)),
		results:  make(Results, len(entries)),
		answered: make(map[string]bool, len(entries)),
	}
	for i, e := range entries {
		b.ids[i] = e.ID
	}
	return b
}

// complete records one entry's outcome and reports whether it was accepted
func (b *batch) complete(id string, val any, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return false
	}
	b.answered[id] = true
	if err != nil {
		if b.firstErr == nil {
			b.firstErr, b.failedID = err, id
		}
		return true
	}
	b.results[id] = val
	return true
}

// seal closes the batch. err is a batch-wide failure, kept only when no entry
// failed first. Entries that were never answered fail with ErrorCodeNative;
// the first of them in submission order surfaces when nothing else failed.
func (b *batch) seal(err error) (Results, string, []string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
	var missing []string
	for _, id := range b.ids {
		if !b.answered[id] {
			missing = append(missing, id)
		}
	}
	switch {
	case b.firstErr != nil:
	case err != nil:
		b.firstErr = err
	case len(missing) > 0:
		b.firstErr = perr.Newf(perr.ErrorCodeNative, "framework returned without completing the request")
		b.failedID = missing[0]
	}
	return maps.Clone(b.results), b.failedID, missing, b.firstErr
}

// DetectAll runs every entry against in with a single framework call and
// finishes when that call returns. The first error in completion order is
// returned together with the results of the entries that succeeded; an entry
// the framework never completed counts as failed with ErrorCodeNative.
func (ex *Executor) DetectAll(ctx context.Context, entries []Entry, in imageinput.Input) (Results, error) {
	log := logger.From(ctx, ex.log).With().Str("op", "batch").Logger()
	start := time.Now()

	if err := checkIdentities(entries); err != nil {
		log.Error().Err(err).Msg("batch rejected")
		return nil, err
	}

	h, size, err := imageinput.Normalize(in)
	if err != nil {
		log.Error().Err(err).Msg("batch rejected")
		return nil, err
	}
	if len(entries) == 0 {
		return Results{}, nil
	}

	reqs := make([]*native.Request, len(entries))
	for i, e := range entries {
		if e.Request.Sequential() {
			err := perr.WithField(perr.Configurationf("entry %q: kind %s needs a sequence tracker", e.ID, e.Request.Kind()), "id")
			log.Error().Err(err).Msg("batch rejected")
			return nil, err
		}
		nr, err := nativeRequest(e.Request)
		if err != nil {
			err = perr.Wrapf(err, perr.CodeOf(err), "entry %q", e.ID)
			log.Error().Err(err).Msg("batch rejected")
			return nil, err
		}
		reqs[i] = nr
	}

	b := newBatch(entries)
	for i, e := range entries {
		var g guard.Guard
		elog := log.With().Str("id", e.ID).Str("kind", string(e.Request.Kind())).Logger()
		d := e.Request
		id := e.ID
		reqs[i].Completion = func(obs []native.Observation, err error) {
			if !g.TryResolve() {
				elog.Warn().AnErr("late_error", err).Msg("completion after entry resolved; ignored")
				ex.metrics.GuardConflict(string(d.Kind()))
				return
			}
			if err != nil {
				err = perr.Native(err)
				if b.complete(id, nil, err) {
					elog.Error().Err(err).Msg("batch entry failed")
					return
				}
				elog.Warn().AnErr("late_error", err).Msg("completion after batch finished; ignored")
				return
			}
			val, n := ex.convert(elog, d, obs, size)
			if !b.complete(id, val, nil) {
				elog.Warn().Int("count", n).Msg("completion after batch finished; ignored")
				return
			}
			elog.Debug().Int("count", n).Msg("batch entry completed")
		}
	}

	ex.metrics.ObserveBatch(len(entries))
	log.Debug().Int("entries", len(entries)).Str("input", h.Kind().String()).Msg("batch started")

	performed := make(chan error, 1)
	go func() { performed <- ex.fw.Perform(ctx, h, reqs) }()

	var batchErr error
	select {
	case err := <-performed:
		switch {
		case ctx.Err() != nil:
			batchErr = canceled(ctx)
		case err != nil:
			batchErr = perr.Native(err)
		}
	case <-ctx.Done():
		batchErr = canceled(ctx)
	}

	res, failedID, missing, err := b.seal(batchErr)
	if len(missing) > 0 && batchErr == nil {
		log.Warn().Strs("missing", missing).Msg("framework returned without completing every entry")
	}
	if err != nil && failedID != "" {
		err = &EntryError{ID: failedID, Err: err}
	}
	if err != nil {
		ex.metrics.ObserveRequest("batch", perr.CodeOf(err).String(), time.Since(start))
		log.Error().Err(err).Str("failed_id", failedID).Int("succeeded", len(res)).Msg("batch failed")
		return res, err
	}
	ex.metrics.ObserveRequest("batch", "success", time.Since(start))
	log.Info().Int("entries", len(res)).Dur("took", time.Since(start)).Msg("batch succeeded")
	return res, nil
}

func checkIdentities(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return perr.WithField(perr.Configurationf("entry %d has an empty id", i), "id")
		}
		if e.Request == nil {
			return perr.WithField(perr.Configurationf("entry %q has no request", e.ID), "id")
		}
		if _, dup := seen[e.ID]; dup {
			return perr.WithField(perr.Configurationf("duplicate entry id %q", e.ID), "id")
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
