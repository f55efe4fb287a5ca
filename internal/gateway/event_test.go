package gateway

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildEvent_FullContext(t *testing.T) {
	r := httptest.NewRequest("POST", "/ignored?a=1&a=2&b=3", strings.NewReader(`{"name":"Ada"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("X-Request-Id", "abc123")
	r.Header.Set("Authorization", "Bearer secret")
	r.Header.Set("Connection", "keep-alive")
	r.Header.Set("Content-Length", "14")

	event := buildEvent(r, "/hello", map[string]string{"id": "7"})

	assert.Equal(t, "POST", event["method"])
	assert.Equal(t, "/hello", event["path"])
	assert.Equal(t, map[string]string{"id": "7"}, event["params"])
	assert.Equal(t, map[string]string{"a": "2", "b": "3"}, event["query"])
	assert.Equal(t, map[string]string{
		"content-type": "application/json",
		"x-request-id": "abc123",
	}, event["headers"])
	assert.Equal(t, map[string]any{"name": "Ada"}, event["body"])
}

func TestBuildEvent_BodyForms(t *testing.T) {
	// GET never reads a body.
	r := httptest.NewRequest("GET", "/x", strings.NewReader(`{"a":1}`))
	event := buildEvent(r, "/x", map[string]string{})
	assert.Nil(t, event["body"])

	// Non-JSON text comes through as a string.
	r = httptest.NewRequest("POST", "/x", strings.NewReader("plain text"))
	event = buildEvent(r, "/x", map[string]string{})
	assert.Equal(t, "plain text", event["body"])

	// JSON arrays parse the same way objects do.
	r = httptest.NewRequest("PUT", "/x", strings.NewReader(`[1, 2]`))
	event = buildEvent(r, "/x", map[string]string{})
	assert.Equal(t, []any{float64(1), float64(2)}, event["body"])

	// Empty bodies and invalid UTF-8 become nil.
	r = httptest.NewRequest("POST", "/x", nil)
	event = buildEvent(r, "/x", map[string]string{})
	assert.Nil(t, event["body"])

	r = httptest.NewRequest("PATCH", "/x", bytes.NewReader([]byte{0xff, 0xfe, 0xfd}))
	event = buildEvent(r, "/x", map[string]string{})
	assert.Nil(t, event["body"])
}
