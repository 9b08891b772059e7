package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marketplace/backend/internal/interfaces/http/handler"
	"github.com/stretchr/testify/require"
)

// APICall is one request against the marketplace API
type APICall struct {
	Method         string
	Path           string
	Body           any
	Token          string // full Authorization header value
	IdempotencyKey string
}

// Do sends the call through h and returns the recorded response
func (c APICall) Do(t *testing.T, h http.Handler) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if c.Body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.Body))
	}
	req := httptest.NewRequest(c.Method, c.Path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", c.Token)
	}
	if c.IdempotencyKey != "" {
		req.Header.Set(handler.IdempotencyKeyHeader, c.IdempotencyKey)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode reads the response envelope with a typed data field
func Decode[T any](t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse[T] {
	t.Helper()
	var resp handler.APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}
