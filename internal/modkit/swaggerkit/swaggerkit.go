// Package swaggerkit assembles the OpenAPI document from what modules
// describe at init and serves it behind Swagger UI
package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	phttp "visionkit/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Field is one form or query parameter
type Field struct {
	Name        string
	Description string
	// Type is an OpenAPI scalar type, default string
	Type     string
	File     bool
	Required bool
}

// Operation documents one route
type Operation struct {
	Summary string
	Tag     string
	// Form fields make the body multipart/form-data
	Form  []Field
	Query []Field
	// Responses maps status to description; every operation also gets a
	// default error envelope
	Responses map[int]string
}

// Spec is the OpenAPI document under construction
type Spec map[string]any

// SpecMutator contributes paths or tweaks to the document
type SpecMutator func(Spec)

var (
	mu       sync.Mutex
	mutators []SpecMutator
)

// Register adds m to every document built after it; call from init
func Register(m SpecMutator) {
	if m == nil {
		return
	}
	mu.Lock()
	mutators = append(mutators, m)
	mu.Unlock()
}

// Options configures the served document
type Options struct {
	Enabled bool
	Title   string
	Version string
	// Server is the base url paths are relative to, default /api/v1
	Server string
}

// Build assembles the document from the registered mutators
func Build(o Options) Spec {
	if o.Title == "" {
		o.Title = "API"
	}
	if o.Server == "" {
		o.Server = "/api/v1"
	}
	s := Spec{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": o.Title, "version": o.Version},
		"servers": []any{map[string]any{"url": o.Server}},
		"paths":   map[string]any{},
		"components": map[string]any{
			"schemas": map[string]any{"Envelope": envelopeSchema()},
		},
	}

	mu.Lock()
	ms := append([]SpecMutator(nil), mutators...)
	mu.Unlock()
	for _, m := range ms {
		m(s)
	}
	s.addDefaultErrors()
	return s
}

// Add documents method on path, replacing an earlier entry
func (s Spec) Add(method, path string, op Operation) {
	paths, _ := s["paths"].(map[string]any)
	item, _ := paths[path].(map[string]any)
	if item == nil {
		item = map[string]any{}
		paths[path] = item
	}

	o := map[string]any{"summary": op.Summary, "responses": responses(op.Responses)}
	if op.Tag != "" {
		o["tags"] = []string{op.Tag}
	}
	if len(op.Query) > 0 {
		params := make([]any, 0, len(op.Query))
		for _, f := range op.Query {
			params = append(params, map[string]any{
				"name": f.Name, "in": "query", "required": f.Required,
				"description": f.Description, "schema": fieldSchema(f),
			})
		}
		o["parameters"] = params
	}
	if len(op.Form) > 0 {
		props := map[string]any{}
		var required []string
		for _, f := range op.Form {
			props[f.Name] = fieldSchema(f)
			if f.Required {
				required = append(required, f.Name)
			}
		}
		schema := map[string]any{"type": "object", "properties": props}
		if len(required) > 0 {
			schema["required"] = required
		}
		o["requestBody"] = map[string]any{
			"required": true,
			"content":  map[string]any{"multipart/form-data": map[string]any{"schema": schema}},
		}
	}
	item[strings.ToLower(method)] = o
}

func responses(in map[int]string) map[string]any {
	out := map[string]any{}
	if _, ok := in[http.StatusOK]; !ok {
		out["200"] = envelopeResponse("ok")
	}
	for code, desc := range in {
		out[strconv.Itoa(code)] = envelopeResponse(desc)
	}
	return out
}

func fieldSchema(f Field) map[string]any {
	switch {
	case f.File:
		return map[string]any{"type": "string", "format": "binary", "description": f.Description}
	case f.Type != "":
		return map[string]any{"type": f.Type, "description": f.Description}
	default:
		return map[string]any{"type": "string", "description": f.Description}
	}
}

func envelopeResponse(desc string) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/Envelope"},
			},
		},
	}
}

func envelopeSchema() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type":     "object",
		"required": []string{"status_code", "status"},
		"properties": map[string]any{
			"status_code": map[string]any{"type": "integer", "format": "int32"},
			"status":      str,
			"code":        map[string]any{"type": "string", "example": "invalid_input"},
			"error":       str,
			"field":       str,
			"request_id":  str,
			"data":        map[string]any{},
		},
	}
}

// addDefaultErrors gives every operation a default error response
func (s Spec) addDefaultErrors() {
	paths, _ := s["paths"].(map[string]any)
	for _, p := range paths {
		item, _ := p.(map[string]any)
		for _, v := range item {
			op, _ := v.(map[string]any)
			resp, _ := op["responses"].(map[string]any)
			if resp == nil {
				continue
			}
			if _, ok := resp["default"]; !ok {
				resp["default"] = envelopeResponse("error")
			}
		}
	}
}

// normalize prepares a generated document for the UI: OpenAPI 3.0.3, a
// servers entry, the envelope schema and default error responses
func (s Spec) normalize(o Options) {
	if _, ok := s["swagger"]; ok {
		delete(s, "swagger")
		s["openapi"] = "3.0.3"
	}
	if v, _ := s["openapi"].(string); v == "" || strings.HasPrefix(v, "3.1") {
		s["openapi"] = "3.0.3"
	}
	if _, ok := s["servers"]; !ok {
		server := o.Server
		if server == "" {
			server = "/api/v1"
		}
		s["servers"] = []any{map[string]any{"url": server}}
	}
	if _, ok := s["paths"].(map[string]any); !ok {
		s["paths"] = map[string]any{}
	}
	comps, _ := s["components"].(map[string]any)
	if comps == nil {
		comps = map[string]any{}
		s["components"] = comps
	}
	schemas, _ := comps["schemas"].(map[string]any)
	if schemas == nil {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["Envelope"]; !ok {
		schemas["Envelope"] = envelopeSchema()
	}
	s.addDefaultErrors()
}

func writeDoc(w http.ResponseWriter, s Spec) {
	b, err := json.Marshal(s)
	if err != nil {
		http.Error(w, "spec encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
}

// Mount serves Swagger UI at /api/docs/ and the document at /api/docs/doc.json
func Mount(r phttp.Router, o Options) {
	if !o.Enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON(o))
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
