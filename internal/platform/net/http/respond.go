package http

import (
	"encoding/json"
	"net/http"

	perr "visionkit/internal/platform/errors"
	pnet "visionkit/internal/platform/net"
)

// Envelope is the body of every JSON response
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	Field      string         `json:"field,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Response is what return style handlers produce
type Response struct {
	Status int
	// Body is the data, or an error that picks status and code
	Body any
	// Partial is kept as data next to an error, e.g. results gathered before it
	Partial any
	Header  http.Header
}

// OK is a 200 carrying data
func OK(data any) Response { return Response{Status: http.StatusOK, Body: data} }

// Error maps err to its status and error envelope
func Error(err error) Response { return Response{Body: err} }

// ErrorWith is Error that also keeps partial as the envelope data
func ErrorWith(err error, partial any) Response { return Response{Body: err, Partial: partial} }

// Handle adapts a return style handler to net/http
func Handle(h func(*http.Request) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { h(r).write(w, r) }
}

func (resp Response) write(w http.ResponseWriter, r *http.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	id := pnet.RequestID(r.Context())
	if id != "" {
		w.Header().Set(pnet.HeaderRequestID, id)
	}

	env := Envelope{StatusCode: resp.Status, RequestID: id, Data: resp.Body}
	if err, ok := resp.Body.(error); ok && err != nil {
		wire := perr.WireFrom(err)
		env.StatusCode = perr.HTTPStatus(err)
		env.Code, env.Error, env.Field = wire.Code, wire.Message, wire.Field
		env.Data = resp.Partial
	}
	if env.StatusCode == 0 {
		env.StatusCode = http.StatusOK
	}
	if env.StatusCode == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	env.Status = http.StatusText(env.StatusCode)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(env.StatusCode)
	_ = json.NewEncoder(w).Encode(env)
}
