// Package net carries transport metadata, the request id, across layers
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// HeaderRequestID is read and echoed by the API and forwarded to the sidecar
const HeaderRequestID = "X-Request-ID"

// RequestID returns the request id on ctx, "" when there is none
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// WithRequestID stores id where RequestID finds it, for work that starts
// outside an HTTP request such as a CLI run
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, chimw.RequestIDKey, id)
}
