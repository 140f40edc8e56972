package middleware

import (
	"net/http"

	pnet "visionkit/internal/platform/net"

	"github.com/go-chi/cors"
)

// CORS lets browsers on origins call the API; no origins allows none
func CORS(origins ...string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", pnet.HeaderRequestID},
		ExposedHeaders: []string{pnet.HeaderRequestID},
		MaxAge:         300,
	})
}
