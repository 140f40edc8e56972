// Package modkit composes API modules: the dependencies they share, the
// contract api.Mount iterates over and a registry of their ports
package modkit

import (
	"net/http"

	"visionkit/internal/modkit/httpkit"
	"visionkit/internal/modkit/repokit"
	"visionkit/internal/platform/config"
	"visionkit/internal/platform/logger"
)

// Deps holds what every module may use; sql seams are nil when not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf

	PG   repokit.TxRunner
	Lite repokit.TxRunner
}

// Journal returns the sql seam the run journal binds to, postgres first
func (d Deps) Journal() (repokit.TxRunner, repokit.Dialect) {
	switch {
	case d.PG != nil:
		return d.PG, repokit.DialectPG
	case d.Lite != nil:
		return d.Lite, repokit.DialectLite
	}
	return nil, ""
}

// Module is one mountable slice of the API
type Module interface {
	Name() string
	Prefix() string
	MountRoutes(r httpkit.Router)
	// Ports is the module's port set for cross wiring, may be nil
	Ports() any
}

// Mount opens a subrouter at prefix, applies mws in order and lets register
// attach the endpoints
func Mount(r httpkit.Router, prefix string, mws []func(http.Handler) http.Handler, register func(httpkit.Router)) {
	r.Route(prefix, func(rr httpkit.Router) {
		for _, mw := range mws {
			rr.Use(mw)
		}
		if register != nil {
			register(rr)
		}
	})
}
