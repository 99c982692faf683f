package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dynamock/dynamock/internal/dispatch"
	"github.com/dynamock/dynamock/internal/storage"
)

type MockHandler struct {
	dispatch *dispatch.Dispatcher
	log      zerolog.Logger
}

func NewMockHandler(disp *dispatch.Dispatcher, log zerolog.Logger) *MockHandler {
	return &MockHandler{dispatch: disp, log: log}
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (h *MockHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "OK",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Serve answers any request that missed the fixed routes by looking the
// (path, method) pair up among registered mappings.
func (h *MockHandler) Serve(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	data, err := h.dispatch.Resolve(r.Context(), path, r.Method)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not Found", fmt.Sprintf("No mock data found for endpoint: %s %s", r.Method, path))
			return
		}
		h.log.Error().Err(err).Str("method", r.Method).Str("path", path).Msg("failed to resolve mock endpoint")
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch mock data")
		return
	}

	writeRaw(w, http.StatusOK, data)
}
