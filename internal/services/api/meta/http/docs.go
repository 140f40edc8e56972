package http

import (
	"net/http"

	"visionkit/internal/modkit/swaggerkit"
)

func init() {
	swaggerkit.Register(func(s swaggerkit.Spec) {
		s.Add(http.MethodGet, "/meta/health", swaggerkit.Operation{Tag: "Meta", Summary: "Liveness, start time and uptime"})
		s.Add(http.MethodGet, "/meta/ready", swaggerkit.Operation{
			Tag:       "Meta",
			Summary:   "Readiness probes for the stores and the detection framework",
			Responses: map[int]string{http.StatusServiceUnavailable: "a probe failed"},
		})
		s.Add(http.MethodGet, "/meta/version", swaggerkit.Operation{Tag: "Meta", Summary: "Build and version info"})
		s.Add(http.MethodGet, "/meta/framework", swaggerkit.Operation{Tag: "Meta", Summary: "Detection backend and build"})
	})
}
