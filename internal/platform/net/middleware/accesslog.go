// Package middleware holds the in house HTTP middlewares
package middleware

import (
	"net/http"
	"time"

	"visionkit/internal/platform/logger"
	pnet "visionkit/internal/platform/net"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// AccessLogOptions configures AccessLog
type AccessLogOptions struct {
	// Log receives the lines, nil uses logger.Named("http")
	Log *logger.Logger
	// Slow logs requests taking at least Slow at warn, 0 disables
	Slow time.Duration
	// Skip lists paths that are served but never logged
	Skip []string
}

// AccessLog logs one line per request and hands the request id to logger.C
// calls downstream, so mount it after chi's RequestID
func AccessLog(o AccessLogOptions) func(http.Handler) http.Handler {
	log := o.Log
	if log == nil {
		log = logger.Named("http")
	}
	skip := make(map[string]bool, len(o.Skip))
	for _, p := range o.Skip {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(logger.WithRequest(r.Context(), pnet.RequestID(r.Context())))
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			elapsed := time.Since(start)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.From(r.Context(), log).WithLevel(accessLevel(status, elapsed, o.Slow)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", elapsed).
				Str("remote", r.RemoteAddr).
				Msg("request")
		})
	}
}

// accessLevel is error for 5xx, warn for slow requests and info otherwise
func accessLevel(status int, elapsed, slow time.Duration) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case slow > 0 && elapsed >= slow:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}
