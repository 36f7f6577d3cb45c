package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

var ErrInvalidPayload = errors.New("invalid payload")

const maxBodyBytes = 1 << 20

// DecodeBody reads a webhook request body as JSON or as a form. When the
// content type is missing or unfamiliar both are attempted, JSON first.
func DecodeBody(r *http.Request) (map[string]any, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return nil, ErrInvalidPayload
		}
		return flatten(r.MultipartForm.Value), nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, ErrInvalidPayload
	}

	switch mediaType {
	case "application/json":
		return decodeJSON(raw)
	case "application/x-www-form-urlencoded":
		return decodeForm(raw)
	}
	if out, err := decodeJSON(raw); err == nil {
		return out, nil
	}
	return decodeForm(raw)
}

func decodeJSON(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return nil, ErrInvalidPayload
	}
	return out, nil
}

func decodeForm(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrInvalidPayload
	}
	values, err := url.ParseQuery(strings.TrimSpace(string(raw)))
	if err != nil || len(values) == 0 {
		return nil, ErrInvalidPayload
	}
	return flatten(values), nil
}

func flatten(values map[string][]string) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
