// Package module wires the detect service into HTTP via modkit
package module

import (
	"context"
	"net/http"
	"time"

	"visionkit/internal/modkit"
	"visionkit/internal/modkit/httpkit"
	"visionkit/internal/modkit/repokit"
	"visionkit/internal/platform/logger"
	"visionkit/internal/services/detect/domain"

	detecthttp "visionkit/internal/services/detect/http"
	"visionkit/internal/services/detect/repo"
	"visionkit/internal/services/detect/service"
)

// Module implements the detect module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string
	opts   Options

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)

	svc *service.Service
}

// New constructs the detect module. The executor arrives through
// modkit.WithPorts(domain.Ports{...}); a missing executor panics.
// Without a journal port the run journal is bound to deps.Journal().
func New(deps modkit.Deps, o Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("detect"), modkit.WithPrefix("/detect")}, opts...)...)

	in, _ := b.Ports.(domain.Ports)
	if in.Executor == nil {
		panic("detect module requires domain.Ports with an Executor")
	}

	log := deps.Log.With().Str("module", "detect").Logger()
	journal := in.Journal
	if journal == nil && o.Journal {
		journal = openJournal(deps, &log)
	}

	svc := service.New(in.Executor, journal, service.Config{MaxFrames: o.MaxFrames}, &log)

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		opts:   o,
		mws:    b.Mw,
		svc:    svc,
	}
	m.ports = Ports{Service: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		detecthttp.Register(r, m.svc, m.opts.MaxUploadBytes)
		if external != nil {
			external(r)
		}
	}
	return m
}

// openJournal binds and migrates the run journal; failures disable journaling
func openJournal(deps modkit.Deps, log *logger.Logger) domain.JournalPort {
	tx, dialect := deps.Journal()
	if tx == nil {
		log.Info().Msg("no sql store configured; run journal disabled")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := repokit.MustBind(repo.New(dialect), tx)
	if err := r.Migrate(ctx); err != nil {
		log.Error().Err(err).Str("dialect", string(dialect)).Msg("journal migration failed; run journal disabled")
		return nil
	}
	log.Info().Str("dialect", string(dialect)).Msg("run journal ready")
	return r
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) { modkit.Mount(r, m.prefix, m.mws, m.register) }

// Name is the module name
func (m *Module) Name() string { return m.name }

// Prefix is the module route prefix
func (m *Module) Prefix() string { return m.prefix }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Service returns the wired service for in-process callers
func (m *Module) Service() domain.ServicePort { return m.svc }
