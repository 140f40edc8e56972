package swaggerkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	phttp "visionkit/internal/platform/net/http"
	kit "visionkit/internal/platform/testkit"

	"github.com/go-chi/chi/v5"
)

func withMutators(t *testing.T, ms ...SpecMutator) {
	t.Helper()
	kit.Swap(t, &mutators, nil)
	for _, m := range ms {
		Register(m)
	}
}

func dig(t *testing.T, v any, keys ...string) any {
	t.Helper()
	for _, k := range keys {
		m, ok := v.(map[string]any)
		if !ok {
			t.Fatalf("%q: not an object: %#v", k, v)
		}
		v = m[k]
	}
	return v
}

func TestBuild_BaseDocument(t *testing.T) {
	withMutators(t)
	s := Build(Options{Version: "v1.2.3"})

	if s["openapi"] != "3.0.3" {
		t.Fatalf("openapi = %v", s["openapi"])
	}
	if dig(t, map[string]any(s), "info", "title") != "API" || dig(t, map[string]any(s), "info", "version") != "v1.2.3" {
		t.Fatalf("info = %v", s["info"])
	}
	servers, _ := s["servers"].([]any)
	if len(servers) != 1 || dig(t, servers[0], "url") != "/api/v1" {
		t.Fatalf("servers = %v", servers)
	}
	if dig(t, map[string]any(s), "components", "schemas", "Envelope", "type") != "object" {
		t.Fatalf("envelope schema missing")
	}
}

func TestBuild_AppliesMutatorsAndDefaults(t *testing.T) {
	withMutators(t,
		func(s Spec) {
			s.Add(http.MethodPost, "/detect", Operation{
				Summary: "Run one detection",
				Tag:     "Detect",
				Form: []Field{
					{Name: "request", Description: "spec as JSON", Required: true},
					{Name: "image", File: true, Required: true},
				},
				Responses: map[int]string{http.StatusBadGateway: "framework failure"},
			})
		},
		nil,
		func(s Spec) {
			s.Add(http.MethodGet, "/detect/runs", Operation{
				Summary: "Recent runs",
				Query:   []Field{{Name: "limit", Type: "integer"}},
			})
			s["info"].(map[string]any)["title"] = "Visionkit"
		},
	)
	s := map[string]any(Build(Options{Title: "ignored"}))

	if dig(t, map[string]any(s), "info", "title") != "Visionkit" {
		t.Fatalf("later mutator should win")
	}

	post := dig(t, map[string]any(s), "paths", "/detect", "post")
	if dig(t, post, "summary") != "Run one detection" {
		t.Fatalf("post = %v", post)
	}
	for _, code := range []string{"200", "502", "default"} {
		if dig(t, post, "responses", code) == nil {
			t.Fatalf("post response %s missing", code)
		}
	}
	schema := dig(t, post, "requestBody", "content", "multipart/form-data", "schema")
	if dig(t, schema, "properties", "image", "format") != "binary" {
		t.Fatalf("file field = %v", dig(t, schema, "properties", "image"))
	}
	if req, _ := dig(t, schema, "required").([]string); len(req) != 2 {
		t.Fatalf("required = %v", req)
	}

	get := dig(t, map[string]any(s), "paths", "/detect/runs", "get")
	params, _ := dig(t, get, "parameters").([]any)
	if len(params) != 1 || dig(t, params[0], "in") != "query" || dig(t, params[0], "schema", "type") != "integer" {
		t.Fatalf("params = %v", params)
	}
	if dig(t, get, "requestBody") != nil {
		t.Fatalf("get should have no body")
	}
}

func TestMount(t *testing.T) {
	withMutators(t, func(s Spec) { s.Add(http.MethodGet, "/meta/health", Operation{Summary: "Liveness"}) })

	t.Run("disabled", func(t *testing.T) {
		mux := chi.NewRouter()
		Mount(phttp.AdaptChi(mux), Options{})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("disabled docs = %d", rec.Code)
		}
	})

	mux := chi.NewRouter()
	Mount(phttp.AdaptChi(mux), Options{Enabled: true, Title: "Visionkit API", Version: "dev"})

	t.Run("redirect", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
		if rec.Code != http.StatusPermanentRedirect || rec.Header().Get("Location") != "/api/docs/" {
			t.Fatalf("redirect = %d %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("doc json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
		if rec.Code != http.StatusOK || rec.Header().Get("Cache-Control") != "no-store" {
			t.Fatalf("doc = %d %v", rec.Code, rec.Header())
		}
		var doc map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if dig(t, doc, "info", "title") != "Visionkit API" {
			t.Fatalf("title = %v", dig(t, doc, "info", "title"))
		}
		if dig(t, doc, "paths", "/meta/health", "get", "responses", "default") == nil {
			t.Fatalf("registered path missing from served doc")
		}
	})

	t.Run("ui", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/index.html", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("ui = %d", rec.Code)
		}
		kit.MustContain(t, rec.Body.String(), "/api/docs/doc.json")
	})
}

func TestNormalize_GeneratedDocument(t *testing.T) {
	t.Parallel()

	var s Spec
	raw := `{"openapi":"3.1.0","info":{"title":"visionkit API"},"paths":{"/detect":{"post":{"responses":{"200":{"description":"ok"}}}}}}`
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatal(err)
	}
	s.normalize(Options{})

	if s["openapi"] != "3.0.3" {
		t.Fatalf("openapi = %v", s["openapi"])
	}
	if dig(t, map[string]any(s), "servers") == nil {
		t.Fatalf("servers missing")
	}
	if dig(t, map[string]any(s), "components", "schemas", "Envelope") == nil {
		t.Fatalf("envelope schema missing")
	}
	if dig(t, map[string]any(s), "paths", "/detect", "post", "responses", "default") == nil {
		t.Fatalf("default error missing")
	}

	legacy := Spec{"swagger": "2.0"}
	legacy.normalize(Options{Server: "/v2"})
	if _, ok := legacy["swagger"]; ok || legacy["openapi"] != "3.0.3" {
		t.Fatalf("legacy = %v", legacy)
	}
	servers, _ := legacy["servers"].([]any)
	if len(servers) != 1 || dig(t, servers[0], "url") != "/v2" {
		t.Fatalf("servers = %v", legacy["servers"])
	}
}
