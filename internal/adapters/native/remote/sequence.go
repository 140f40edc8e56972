package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"visionkit/internal/core/imageinput"
	"visionkit/internal/core/native"
	perr "visionkit/internal/platform/errors"

	"github.com/google/uuid"
)

// ErrSequenceClosed is returned by a sequence used after Close
var ErrSequenceClosed = errors.New("remote: sequence closed")

// NewSequence implements native.SequenceFramework. The sidecar keeps one
// tracker per id until the sequence is closed.
func (c *Client) NewSequence(ctx context.Context) (native.Sequence, error) {
	id := uuid.NewString()
	body, _ := json.Marshal(map[string]string{"id": id})
	resp, err := c.do(ctx, http.MethodPost, "/v1/sequences", body, true)
	if err != nil {
		return nil, err
	}
	_ = drainAndClose(resp.Body)
	c.log.Debug().Str("sequence_id", id).Msg("remote sequence opened")
	return &sequence{c: c, id: id}, nil
}

type sequence struct {
	c  *Client
	id string

	mu     sync.Mutex
	closed bool
}

// Perform sends one frame; frames are never retried so the tracker sees each once
func (s *sequence) Perform(ctx context.Context, h imageinput.Handle, reqs []*native.Request) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSequenceClosed
	}
	return s.c.perform(ctx, s.id, h, reqs, false)
}

// Close releases the tracker on the sidecar; calling it twice is a no-op
func (s *sequence) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// the caller's context may already be gone when a stream ends
	resp, err := s.c.do(context.Background(), http.MethodDelete, "/v1/sequences/"+s.id, nil, true)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	s.c.log.Debug().Str("sequence_id", s.id).Msg("remote sequence closed")
	return drainAndClose(resp.Body)
}
