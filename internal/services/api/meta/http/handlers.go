// Package http serves the meta endpoints: liveness, readiness, build and
// framework info
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"visionkit/internal/core/version"
	"visionkit/internal/modkit/httpkit"
)

// Pinger is anything readiness can probe
type Pinger interface {
	Ping(context.Context) error
}

// Probe is one readiness check; a nil Pinger reports skipped
type Probe struct {
	Name   string
	Pinger Pinger
}

// Deps are what the meta endpoints report on
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Probes      []Probe
	// ProbeTimeout bounds each probe, default 2s
	ProbeTimeout time.Duration
	// Framework names the detection backend, e.g. the sidecar base url
	Framework string
	Kinds     int
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.ProbeTimeout <= 0 {
		d.ProbeTimeout = 2 * time.Second
	}
	h := &handlers{deps: d}
	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/framework", h.framework)
}

type handlers struct{ deps Deps }

// HealthResponse is the liveness payload
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Started string `json:"started"`
	// Uptime is in whole seconds
	Uptime int64  `json:"uptime"`
	Now    string `json:"now"`
}

// Check is one probe outcome: ok, fail or skipped
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
}

// ReadyResponse is ok only when no probe failed
type ReadyResponse struct {
	Status string  `json:"status"`
	Checks []Check `json:"checks"`
	Now    string  `json:"now"`
}

// FrameworkResponse names the detection backend next to the build
type FrameworkResponse struct {
	Framework string            `json:"framework"`
	Kinds     int               `json:"kinds"`
	Build     version.BuildInfo `json:"build"`
}

// swagger:route GET /meta/health Meta metaHealth
// @Summary Liveness, start time and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse "ok"
// @Router /meta/health [get]
func (h *handlers) health(*http.Request) (any, error) {
	now := time.Now()
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(now.Sub(h.deps.StartedAt) / time.Second),
		Now:     now.UTC().Format(time.RFC3339),
	}, nil
}

// ready runs every probe concurrently and answers 503 when any failed
//
// swagger:route GET /meta/ready Meta metaReady
// @Summary Readiness probes for the stores and the detection framework
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse "ok"
// @Failure 503 {object} ReadyResponse "a probe failed"
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	checks := make([]Check, len(h.deps.Probes))
	var wg sync.WaitGroup
	for i, p := range h.deps.Probes {
		if p.Pinger == nil {
			checks[i] = Check{Name: p.Name, Status: "skipped"}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = h.probe(r.Context(), p)
		}()
	}
	wg.Wait()

	out := ReadyResponse{Status: "ok", Checks: checks, Now: time.Now().UTC().Format(time.RFC3339)}
	for _, c := range checks {
		if c.Status == "fail" {
			out.Status = "fail"
			return httpkit.Response{Status: http.StatusServiceUnavailable, Body: out}, nil
		}
	}
	return out, nil
}

func (h *handlers) probe(ctx context.Context, p Probe) Check {
	ctx, cancel := context.WithTimeout(ctx, h.deps.ProbeTimeout)
	defer cancel()
	start := time.Now()
	err := p.Pinger.Ping(ctx)
	c := Check{Name: p.Name, Status: "ok", Elapsed: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		c.Status, c.Error = "fail", err.Error()
	}
	return c
}

// swagger:route GET /meta/version Meta metaVersion
// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo "ok"
// @Router /meta/version [get]
func (h *handlers) version(*http.Request) (any, error) {
	return version.Info(), nil
}

// swagger:route GET /meta/framework Meta metaFramework
// @Summary Detection backend and build
// @Tags Meta
// @Produce json
// @Success 200 {object} FrameworkResponse "ok"
// @Router /meta/framework [get]
func (h *handlers) framework(*http.Request) (any, error) {
	return FrameworkResponse{Framework: h.deps.Framework, Kinds: h.deps.Kinds, Build: version.Info()}, nil
}
