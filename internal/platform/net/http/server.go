package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"visionkit/internal/platform/config"
	"visionkit/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server owns the root chi mux and the listener
type Server struct {
	addr  string
	grace time.Duration
	mux   *chi.Mux
	srv   *http.Server
}

// NewServer reads API_PORT (":4000"), READ_HEADER_TIMEOUT (10s) and
// SHUTDOWN_GRACE (15s) from cfg
func NewServer(cfg config.Conf) *Server {
	m := chi.NewRouter()
	addr := cfg.MayString("API_PORT", ":4000")
	return &Server{
		addr:  addr,
		grace: cfg.MayDuration("SHUTDOWN_GRACE", 15*time.Second),
		mux:   m,
		srv: &http.Server{
			Addr:              addr,
			Handler:           m,
			ReadHeaderTimeout: cfg.MayDuration("READ_HEADER_TIMEOUT", 10*time.Second),
		},
	}
}

// Router is the Router seam over the root mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Handler serves the root mux, for tests and embedding
func (s *Server) Handler() http.Handler { return s.mux }

// Addr is the configured listen address
func (s *Server) Addr() string { return s.addr }

// Run listens on Addr and blocks. Canceling ctx stops accepting and drains
// in-flight requests for up to the shutdown grace.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logger.Named("http")
	log.Info().Str("addr", ln.Addr().String()).Msg("http listening")

	errc := make(chan error, 1)
	go func() { errc <- s.srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("grace", s.grace).Msg("http draining")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.grace)
	defer cancel()
	if err := s.srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown incomplete")
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
