//go:build swag

package swaggerkit

import (
	"encoding/json"
	"net/http"

	"github.com/swaggo/swag/v2"

	// registers the document generated by swag init under the api instance
	_ "visionkit/internal/services/api/docs"
)

// docReader is a seam so tests can feed a broken document
var docReader = func() (string, error) { return swag.ReadDoc("api") }

// serveDocJSON serves the generated document; module registrations are not
// merged in, the annotations on the handlers are the source
func serveDocJSON(o Options) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		raw, err := docReader()
		if err != nil {
			http.Error(w, "spec read error", http.StatusInternalServerError)
			return
		}
		var spec Spec
		if err := json.Unmarshal([]byte(raw), &spec); err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}
		spec.normalize(o)
		writeDoc(w, spec)
	}
}
