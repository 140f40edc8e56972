package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"visionkit/internal/platform/logger"
	"visionkit/internal/platform/net/middleware"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// StackOptions tunes CommonStack; zero values pick the defaults below
type StackOptions struct {
	// Origins feeds CORS; empty allows none
	Origins []string
	// Timeout cancels the request context, default 60s
	Timeout time.Duration
	// Slow marks access log lines at warn, default 2s
	Slow time.Duration
	Log  *logger.Logger
}

// CommonStack is the middleware chain for the versioned api scope, outermost first
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.Slow <= 0 {
		o.Slow = 2 * time.Second
	}
	return []func(http.Handler) http.Handler{
		chimw.RequestID,
		chimw.RealIP,
		middleware.Recover,
		chimw.NoCache,
		middleware.AccessLog(middleware.AccessLogOptions{Log: o.Log, Slow: o.Slow}),
		middleware.CORS(o.Origins...),
		chimw.Compress(flate.BestSpeed),
		chimw.StripSlashes,
		chimw.Timeout(o.Timeout),
	}
}
