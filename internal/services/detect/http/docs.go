package http

import (
	stdhttp "net/http"

	"visionkit/internal/modkit/swaggerkit"
)

func init() {
	swaggerkit.Register(func(s swaggerkit.Spec) {
		image := swaggerkit.Field{Name: FieldImage, File: true, Required: true, Description: "jpeg or png"}
		request := swaggerkit.Field{Name: FieldRequest, Required: true, Description: `{"kind", "config", "options"} as JSON`}

		s.Add(stdhttp.MethodPost, "/detect", swaggerkit.Operation{
			Tag:     "Detect",
			Summary: "Run one detection kind against an uploaded image",
			Form:    []swaggerkit.Field{request, image},
			Responses: map[int]string{
				stdhttp.StatusBadRequest:          "bad request or configuration",
				stdhttp.StatusUnprocessableEntity: "unreadable image",
				stdhttp.StatusBadGateway:          "framework failure",
			},
		})
		s.Add(stdhttp.MethodPost, "/detect/batch", swaggerkit.Operation{
			Tag:     "Detect",
			Summary: "Run several identified requests against one uploaded image",
			Form: []swaggerkit.Field{
				{Name: FieldBatch, Required: true, Description: `{"entries": [{"id", "kind", "config", "options"}]} as JSON`},
				image,
			},
			Responses: map[int]string{
				stdhttp.StatusBadRequest: "bad request, duplicate ids or sequential kinds",
				stdhttp.StatusBadGateway: "framework failure; data keeps the completed entries",
			},
		})
		s.Add(stdhttp.MethodPost, "/detect/track", swaggerkit.Operation{
			Tag:     "Detect",
			Summary: "Run a sequential kind over uploaded frames on a fresh tracker",
			Form: []swaggerkit.Field{
				request,
				{Name: FieldFrame, File: true, Required: true, Description: "one field per frame, in order"},
			},
			Responses: map[int]string{
				stdhttp.StatusBadRequest: "bad request or too many frames",
				stdhttp.StatusBadGateway: "framework failure",
			},
		})
		s.Add(stdhttp.MethodGet, "/detect/kinds", swaggerkit.Operation{Tag: "Detect", Summary: "List the supported detection kinds"})
		s.Add(stdhttp.MethodGet, "/detect/runs", swaggerkit.Operation{
			Tag:       "Detect",
			Summary:   "Recent journaled runs, newest first",
			Query:     []swaggerkit.Field{{Name: "limit", Type: "integer", Description: "1..500, default 50"}},
			Responses: map[int]string{stdhttp.StatusServiceUnavailable: "journal disabled"},
		})
	})
}
