package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Headers never forwarded to the function: connection plumbing and the
// gateway's own credentials.
var skipHeaders = map[string]bool{
	"host":           true,
	"connection":     true,
	"authorization":  true,
	"content-length": true,
}

// buildEvent synthesizes the event object handed to the handler as its
// first argument: the full HTTP context of the matched request.
func buildEvent(r *http.Request, path string, params map[string]string) map[string]any {
	query := map[string]string{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[len(vs)-1]
		}
	}

	headers := map[string]string{}
	for k, vs := range r.Header {
		lk := strings.ToLower(k)
		if skipHeaders[lk] || len(vs) == 0 {
			continue
		}
		headers[lk] = vs[len(vs)-1]
	}

	return map[string]any{
		"method":  r.Method,
		"path":    path,
		"params":  params,
		"query":   query,
		"headers": headers,
		"body":    readBody(r),
	}
}

// readBody parses the request body for methods that carry one: parsed
// JSON if it parses, the raw text if it is valid UTF-8, nil otherwise.
func readBody(r *http.Request) any {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil || len(raw) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return v
	}
	if utf8.Valid(raw) {
		return string(raw)
	}
	return nil
}
