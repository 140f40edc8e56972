// Package api provides the HTTP API for the application
package api

import (
	"net/http"
	"time"

	"visionkit/internal/core/native"
	"visionkit/internal/core/version"
	"visionkit/internal/core/vision"
	"visionkit/internal/platform/config"
	"visionkit/internal/platform/logger"
	"visionkit/internal/platform/metrics"
	phttp "visionkit/internal/platform/net/http"
	"visionkit/internal/platform/store"

	"visionkit/internal/modkit"
	"visionkit/internal/modkit/httpkit"
	"visionkit/internal/modkit/swaggerkit"

	metahttp "visionkit/internal/services/api/meta/http"
	metamod "visionkit/internal/services/api/meta/module"
	detectdom "visionkit/internal/services/detect/domain"
	detectmod "visionkit/internal/services/detect/module"
)

// Options are the API options
type Options struct {
	Config config.Conf
	Store  *store.Store
	Logger *logger.Logger

	// Framework performs detections; FrameworkName is what /meta reports for it
	Framework     native.Framework
	FrameworkName string
	// Metrics, when nil, is created here; it backs the executor and /metrics
	Metrics *metrics.Metrics

	CORSOrigins []string
	// RequestTimeout bounds every versioned request, default 60s
	RequestTimeout time.Duration
	// SlowRequest marks access log lines at warn, default 2s
	SlowRequest    time.Duration
	EnableSwagger  bool
	EnableProfiler bool
	EnableMetrics  bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	log := opt.Logger
	if log == nil {
		log = logger.Named("api")
	}
	met := opt.Metrics
	if met == nil {
		met = metrics.New()
	}

	// shared deps for modules
	deps := modkit.Deps{
		Log: *log,
		Cfg: opt.Config,
	}
	if opt.Store != nil {
		deps.PG = opt.Store.PG
		deps.Lite = opt.Store.Lite
	}

	ex := vision.New(opt.Framework, vision.Options{Logger: log, Metrics: met})

	detect := detectmod.New(
		deps,
		detectmod.FromConfig(deps.Cfg),
		modkit.WithPorts(detectdom.Ports{Executor: ex}),
	)

	metaPorts := metamod.Ports{Framework: opt.FrameworkName}
	if p, ok := opt.Framework.(metahttp.Pinger); ok {
		metaPorts.FrameworkProbe = p
	}
	mods := []modkit.Module{
		metamod.New(deps, modkit.WithPorts(metaPorts)),
		detect,
	}

	// liveness for orchestrators, outside the versioned stack
	httpkit.Get(r, "/healthz", func(*http.Request) (any, error) { return "ok", nil })
	if opt.EnableMetrics {
		r.Handle("/metrics", met.Handler())
	}

	// versioned API with a common middleware stack
	stack := httpkit.CommonStack(httpkit.StackOptions{
		Origins: opt.CORSOrigins,
		Timeout: opt.RequestTimeout,
		Slow:    opt.SlowRequest,
		Log:     log,
	})
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		swaggerkit.Mount(r, swaggerkit.Options{
			Enabled: opt.EnableSwagger,
			Title:   "Visionkit API",
			Version: version.Info().Version,
		})
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			modkit.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}
