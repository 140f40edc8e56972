// Package module wires the meta endpoints into the API
package module

import (
	"time"

	"visionkit/internal/core/vision"
	"visionkit/internal/modkit"
	"visionkit/internal/modkit/httpkit"

	metahttp "visionkit/internal/services/api/meta/http"
)

// Ports carries what meta reports about the detection backend
type Ports struct {
	Framework string
	// FrameworkProbe, when set, joins the readiness checks
	FrameworkProbe metahttp.Pinger
}

// Module implements modkit.Module
type Module struct {
	b        modkit.Built
	register func(httpkit.Router)
}

// New builds the meta module; stores in deps that can Ping become readiness probes
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("meta"),
		modkit.WithPrefix("/meta"),
	}, opts...)...)

	in, _ := b.Ports.(Ports)
	pg, _ := deps.PG.(metahttp.Pinger)
	lite, _ := deps.Lite.(metahttp.Pinger)
	md := metahttp.Deps{
		ServiceName: "visionkit-api",
		StartedAt:   time.Now(),
		Probes: []metahttp.Probe{
			{Name: "pg", Pinger: pg},
			{Name: "lite", Pinger: lite},
			{Name: "framework", Pinger: in.FrameworkProbe},
		},
		ProbeTimeout: deps.Cfg.Prefix("CORE_META_").MayDuration("PROBE_TIMEOUT", 2*time.Second),
		Framework:    in.Framework,
		Kinds:        len(vision.Kinds()),
	}
	return &Module{
		b: b,
		register: func(r httpkit.Router) {
			metahttp.Register(r, md)
			if b.Register != nil {
				b.Register(r)
			}
		},
	}
}

func (m *Module) MountRoutes(r httpkit.Router) { modkit.Mount(r, m.b.Prefix, m.b.Mw, m.register) }

func (m *Module) Name() string { return m.b.Name }

func (m *Module) Prefix() string { return m.b.Prefix }

// Ports is nil; nothing looks meta up
func (m *Module) Ports() any { return nil }
