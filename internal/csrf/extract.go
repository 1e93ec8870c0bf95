package csrf

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
)

const (
	DefaultHeaderName = "X-CSRF-Token"
	DefaultFieldName  = "_csrf_token"

	maxJSONBodyBytes = 1 << 20
)

// Extractor pulls a candidate token from a request. An empty result means the
// extractor found nothing.
type Extractor func(r *http.Request) string

// FromHeader reads the token from a request header.
func FromHeader(name string) Extractor {
	return func(r *http.Request) string {
		return strings.TrimSpace(r.Header.Get(name))
	}
}

// FromJSONField reads a top-level string field of a JSON body. The body is
// restored so later handlers can read it again.
func FromJSONField(field string) Extractor {
	return func(r *http.Request) string {
		if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
			return ""
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes))
		r.Body = restoreBody(raw, r.Body)
		if err != nil || len(raw) == 0 {
			return ""
		}

		var payload map[string]json.RawMessage
		if err := json.Unmarshal(raw, &payload); err != nil {
			return ""
		}
		value, ok := payload[field]
		if !ok {
			return ""
		}
		var token string
		if err := json.Unmarshal(value, &token); err != nil {
			return ""
		}
		return strings.TrimSpace(token)
	}
}

// FromQuery reads the token from a URL query parameter.
func FromQuery(name string) Extractor {
	return func(r *http.Request) string {
		if r.URL == nil {
			return ""
		}
		return strings.TrimSpace(r.URL.Query().Get(name))
	}
}

// DefaultExtractors returns header, JSON field and optionally query extraction
// in that order.
func DefaultExtractors(allowQuery bool) []Extractor {
	extractors := []Extractor{
		FromHeader(DefaultHeaderName),
		FromJSONField(DefaultFieldName),
	}
	if allowQuery {
		extractors = append(extractors, FromQuery(DefaultFieldName))
	}
	return extractors
}

// Extract returns the first non-empty token found by extractors.
func Extract(r *http.Request, extractors []Extractor) string {
	for _, extract := range extractors {
		if token := extract(r); token != "" {
			return token
		}
	}
	return ""
}

// RequiresCheck reports whether method changes state and must carry a token.
func RequiresCheck(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

type restoredBody struct {
	io.Reader
	closer io.Closer
}

func (b restoredBody) Close() error {
	return b.closer.Close()
}

func restoreBody(consumed []byte, rest io.ReadCloser) io.ReadCloser {
	return restoredBody{
		Reader: io.MultiReader(bytes.NewReader(consumed), rest),
		closer: rest,
	}
}
