package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dynamock/dynamock/internal/config"
	"github.com/dynamock/dynamock/internal/storage"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0, MaxBodyBytes: 10 << 20}
	s := NewServer(cfg, testAPIKey, store, zerolog.Nop())
	return s.Handler()
}

func doRequest(h http.Handler, method, path, apiKey, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "OK", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestManagementRoutesRequireAPIKey(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/register"},
		{http.MethodGet, "/api/endpoints"},
		{http.MethodDelete, "/api/endpoints/api/foo"},
		{http.MethodGet, "/api/get/api/foo"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := doRequest(h, tt.method, tt.path, "", "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "Unauthorized", body["error"])
		})
	}

	w := doRequest(h, http.MethodGet, "/api/endpoints", "wrong-key", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid API Key", decodeBody(t, w)["message"])
}

func TestRegisterAndRoundTrip(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(h, http.MethodPost, "/api/register", testAPIKey,
		`{"url": "/api/foo", "methodHttp": "POST", "data": {"message": "Hello World", "status": "success"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Endpoint created successfully", body["message"])

	endpoint := body["endpoint"].(map[string]interface{})
	assert.Equal(t, "/api/foo", endpoint["url"])
	assert.Equal(t, "POST", endpoint["methodHttp"])
	assert.NotEmpty(t, endpoint["createdAt"])
	assert.NotEmpty(t, endpoint["updatedAt"])

	// The mapped payload is served verbatim, with no auth required.
	w = doRequest(h, http.MethodPost, "/api/foo", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "Hello World", "status": "success"}`, w.Body.String())

	// The mapping is method-aware: GET misses.
	w = doRequest(h, http.MethodGet, "/api/foo", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name        string
		body        string
		wantMessage string
	}{
		{
			name:        "missing data",
			body:        `{"url": "/api/foo"}`,
			wantMessage: "Both url and data are required",
		},
		{
			name:        "string payload",
			body:        `{"url": "/api/foo", "data": "a string"}`,
			wantMessage: "Data must be a valid JSON object",
		},
		{
			name:        "unsupported method",
			body:        `{"url": "/api/foo", "methodHttp": "TRACE", "data": {}}`,
			wantMessage: "Method must be one of GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(h, http.MethodPost, "/api/register", testAPIKey, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeBody(t, w)
			assert.Equal(t, "Bad Request", body["error"])
			assert.Equal(t, tt.wantMessage, body["message"])
		})
	}
}

func TestRegisterDefaultsMethodToGet(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(h, http.MethodPost, "/api/register", testAPIKey,
		`{"url": "api/users", "data": {"users": []}}`)
	require.Equal(t, http.StatusOK, w.Code)

	endpoint := decodeBody(t, w)["endpoint"].(map[string]interface{})
	assert.Equal(t, "GET", endpoint["methodHttp"])
	assert.Equal(t, "/api/users", endpoint["url"], "path gets a leading slash")

	w = doRequest(h, http.MethodGet, "/api/users", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users": []}`, w.Body.String())
}

func TestDynamicNotFound(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(h, http.MethodGet, "/api/never-registered", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, "Not Found", body["error"])
	assert.Contains(t, body["message"], "/api/never-registered")
}

func TestListEndpoints(t *testing.T) {
	h := newTestServer(t)

	for _, reg := range []string{
		`{"url": "/a", "data": {"n": 1}}`,
		`{"url": "/b", "methodHttp": "POST", "data": {"n": 2}}`,
	} {
		w := doRequest(h, http.MethodPost, "/api/register", testAPIKey, reg)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(h, http.MethodGet, "/api/endpoints", testAPIKey, "")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["endpoints"], 2)
}

func TestDeleteThenDispatch(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(h, http.MethodPost, "/api/register", testAPIKey,
		`{"url": "/api/foo", "methodHttp": "POST", "data": {"ok": true}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(h, http.MethodDelete, "/api/endpoints/api/foo", testAPIKey, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Endpoint deleted successfully", decodeBody(t, w)["message"])

	w = doRequest(h, http.MethodPost, "/api/foo", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(h, http.MethodDelete, "/api/endpoints/api/foo", testAPIKey, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Endpoint not found", decodeBody(t, w)["message"])
}

func TestGetByPathIgnoresMethod(t *testing.T) {
	h := newTestServer(t)

	w := doRequest(h, http.MethodPost, "/api/register", testAPIKey,
		`{"url": "/api/foo", "methodHttp": "POST", "data": {"via": "legacy"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(h, http.MethodGet, "/api/get/api/foo", testAPIKey, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"via": "legacy"}`, w.Body.String())

	w = doRequest(h, http.MethodGet, "/api/get/api/missing", testAPIKey, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestManagementRoutesAreNeverShadowed(t *testing.T) {
	h := newTestServer(t)

	// A mapping registered for a management route must not hijack it.
	w := doRequest(h, http.MethodPost, "/api/register", testAPIKey,
		`{"url": "/api/endpoints", "data": {"shadowed": true}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(h, http.MethodGet, "/api/endpoints", testAPIKey, "")
	assert.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotNil(t, body["endpoints"], "fixed route must answer, not the mock")
}

func TestDispatchAllMethods(t *testing.T) {
	h := newTestServer(t)

	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"} {
		w := doRequest(h, http.MethodPost, "/api/register", testAPIKey,
			`{"url": "/api/any", "methodHttp": "`+method+`", "data": {"method": "`+method+`"}}`)
		require.Equal(t, http.StatusOK, w.Code)

		w = doRequest(h, method, "/api/any", "", "")
		assert.Equal(t, http.StatusOK, w.Code, method)
		assert.JSONEq(t, `{"method": "`+method+`"}`, w.Body.String(), method)
	}
}
