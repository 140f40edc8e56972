//go:build !swag

package swaggerkit

import "net/http"

// serveDocJSON serves the document assembled from module registrations
func serveDocJSON(o Options) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeDoc(w, Build(o))
	}
}
