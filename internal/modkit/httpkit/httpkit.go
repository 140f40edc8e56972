// Package httpkit is what service modules use to declare routes and reply,
// so they never import internal/platform/net/http directly
package httpkit

import (
	"net/http"
	"strings"

	phttp "visionkit/internal/platform/net/http"
	"visionkit/internal/platform/net/http/bind"
)

type (
	// Router is the routing seam modules register on
	Router = phttp.Router
	// Envelope is the JSON body of every reply
	Envelope = phttp.Envelope
	// Response is what handlers return
	Response = phttp.Response
	// Handler is a plain net/http handler func
	Handler = phttp.Handler
)

// OK is a 200 carrying data
func OK(data any) Response { return phttp.OK(data) }

// Error maps err to its status and envelope
func Error(err error) Response { return phttp.Error(err) }

// ErrorWith is Error keeping partial results as data
func ErrorWith(err error, partial any) Response { return phttp.ErrorWith(err, partial) }

// Get mounts a body-less handler; a returned Response is used as is,
// any other value is wrapped in OK
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.Handle(func(req *http.Request) Response {
		out, err := h(req)
		if err != nil {
			return Error(err)
		}
		if resp, ok := out.(Response); ok {
			return resp
		}
		return OK(out)
	}))
}

// Upload mounts a multipart POST handler. The body is capped at maxBytes and
// parsed before h runs; spilled temp files are removed afterwards.
func Upload(r Router, path string, maxBytes int64, h func(*http.Request) Response) {
	r.Post(path, func(w http.ResponseWriter, req *http.Request) {
		if err := bind.Multipart(w, req, maxBytes); err != nil {
			phttp.Handle(func(*http.Request) Response { return Error(err) })(w, req)
			return
		}
		defer func() { _ = req.MultipartForm.RemoveAll() }()
		phttp.Handle(h)(w, req)
	})
}

// MountAPI scopes mount under /api/{version} with the given middleware
func MountAPI(r Router, version string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route("/api/"+strings.TrimPrefix(version, "/"), func(api Router) {
		if len(mw) > 0 {
			api.Use(mw...)
		}
		mount(api)
	})
}

// MountAPIV1 is MountAPI for v1
func MountAPIV1(r Router, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountAPI(r, "v1", mw, mount)
}
