// @title         visionkit API
// @version       0.1.0
// @description   Detection requests against a remote vision framework
// @BasePath      /api/v1

// Command visionkit-api serves detection requests over HTTP against a remote
// inference sidecar
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"visionkit/internal/adapters/native/remote"
	"visionkit/internal/modkit/repokit"
	"visionkit/internal/platform/config"
	"visionkit/internal/platform/logger"
	phttp "visionkit/internal/platform/net/http"
	"visionkit/internal/platform/store"

	"visionkit/internal/services/api"

	"github.com/joho/godotenv"
)

//go:generate swag init --v3.1 -g main.go -d ./,../../internal/services -o ../../internal/services/api/docs --instanceName api --outputTypes go

func main() {
	// a local .env is optional; real env always wins
	_ = godotenv.Load()

	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// bring up logging early
	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// open the platform store (SERVICE_PGSQL_*, SERVICE_LITE_*); both backends
	// are optional and only feed the run journal
	st, err := store.Open(ctx, store.ConfigFrom(root, "visionkit-api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	// configured backends must answer before we take traffic
	repokit.MustGuard(ctx, st)
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	// detection framework (NATIVE_REMOTE_*)
	remoteOpts := remote.FromConfig(root)
	fw := remote.New(remoteOpts)

	// http server (CORE_API_API_PORT)
	srv := phttp.NewServer(apiCfg)

	// mount our API
	api.Mount(
		srv.Router(),
		api.Options{
			Config:         root,
			Store:          st,
			Logger:         l,
			Framework:      fw,
			FrameworkName:  remoteOpts.BaseURL,
			CORSOrigins:    apiCfg.MayCSV("CORS_ORIGINS", []string{"*"}),
			RequestTimeout: apiCfg.MayDuration("REQUEST_TIMEOUT", 2*time.Minute),
			SlowRequest:    apiCfg.MayDuration("SLOW_REQUEST", 2*time.Second),
			EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
			EnableProfiler: apiCfg.MayBool("PROFILER", false),
			EnableMetrics:  apiCfg.MayBool("METRICS", true),
		},
	)

	// run until SIGINT/SIGTERM, then drain
	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
	l.Info().Msg("bye")
}
