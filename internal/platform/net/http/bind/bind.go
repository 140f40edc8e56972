// Package bind turns multipart uploads and JSON documents into validated
// values, failing with coded errors that name the offending field
package bind

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	perr "visionkit/internal/platform/errors"
	"visionkit/internal/platform/validate"
)

// memoryCap is how much of an upload stays in memory before spilling to disk
const memoryCap = 8 << 20

// Bytes decodes one JSON document into T and validates it. Unknown fields,
// trailing data and blank input are rejected.
func Bytes[T any](raw []byte) (T, error) {
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, perr.JSONErrf("empty document")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return out, perr.Wrapf(err, perr.ErrorCodeJSON, "invalid JSON")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return out, perr.JSONErrf("unexpected data after the JSON document")
	}
	if err := validate.Struct(out, perr.ErrorCodeValidation); err != nil {
		return out, err
	}
	return out, nil
}

// Multipart caps the body at maxBytes and parses it. Files over the memory
// share spill to temp files the caller releases with r.MultipartForm.RemoveAll.
func Multipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	mem := int64(memoryCap)
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		mem = min(maxBytes, mem)
	}
	err := r.ParseMultipartForm(mem)
	if err == nil {
		return nil
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return perr.Newf(perr.ErrorCodeValidation, "upload exceeds %d bytes", tooBig.Limit)
	}
	return perr.Wrapf(err, perr.ErrorCodeValidation, "invalid multipart body")
}

func required(field, what string) error {
	return perr.WithField(perr.Newf(perr.ErrorCodeValidation, "%s %s is required", field, what), field)
}

// FormJSON decodes the first value of a form field with Bytes
func FormJSON[T any](r *http.Request, field string) (T, error) {
	var zero T
	if r.MultipartForm == nil || len(r.MultipartForm.Value[field]) == 0 {
		return zero, required(field, "field")
	}
	out, err := Bytes[T]([]byte(r.MultipartForm.Value[field][0]))
	if err != nil {
		return zero, perr.WithField(err, field)
	}
	return out, nil
}

// File reads the first file uploaded under field
func File(r *http.Request, field string) ([]byte, error) {
	files, err := Files(r, field)
	if err != nil {
		return nil, err
	}
	return files[0], nil
}

// Files reads every file uploaded under field, in submission order
func Files(r *http.Request, field string) ([][]byte, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return nil, required(field, "file")
	}
	hdrs := r.MultipartForm.File[field]
	out := make([][]byte, len(hdrs))
	for i, fh := range hdrs {
		b, err := readPart(fh)
		if err != nil {
			return nil, perr.WithField(err, field)
		}
		out[i] = b
	}
	return out, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "open %s", fh.Filename)
	}
	defer func() { _ = f.Close() }()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "read %s", fh.Filename)
	}
	return b, nil
}
