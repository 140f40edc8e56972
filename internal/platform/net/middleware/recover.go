package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/logger"
	pnet "visionkit/internal/platform/net"
	phttp "visionkit/internal/platform/net/http"
)

var panicked = phttp.Handle(func(*http.Request) phttp.Response {
	return phttp.Error(perr.PanicErrf("panic recovered"))
})

// Recover answers a panicking handler with the standard 500 envelope and
// logs the stack. http.ErrAbortHandler is re-raised for net/http.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}
			logger.Named("http").Error().
				Str("request_id", pnet.RequestID(r.Context())).
				Str("path", r.URL.Path).
				Interface("panic", v).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")
			panicked(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}
