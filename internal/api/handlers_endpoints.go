package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dynamock/dynamock/internal/dispatch"
	"github.com/dynamock/dynamock/internal/models"
	"github.com/dynamock/dynamock/internal/registry"
	"github.com/dynamock/dynamock/internal/storage"
)

type EndpointHandler struct {
	registry *registry.Service
	dispatch *dispatch.Dispatcher
	log      zerolog.Logger
}

func NewEndpointHandler(reg *registry.Service, disp *dispatch.Dispatcher, log zerolog.Logger) *EndpointHandler {
	return &EndpointHandler{registry: reg, dispatch: disp, log: log}
}

type registerRequest struct {
	URL        string          `json:"url"`
	MethodHTTP string          `json:"methodHttp"`
	Data       json.RawMessage `json:"data"`
}

type registerResponse struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Endpoint *models.Endpoint `json:"endpoint"`
}

func (h *EndpointHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	result, err := h.registry.Register(r.Context(), req.URL, req.MethodHTTP, req.Data)
	if err != nil {
		var verr *registry.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "Bad Request", verr.Message)
			return
		}
		h.log.Error().Err(err).Str("url", req.URL).Msg("failed to register endpoint")
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to register endpoint")
		return
	}

	message := "Endpoint updated successfully"
	if result.Created {
		message = "Endpoint created successfully"
	}

	writeJSON(w, http.StatusOK, registerResponse{
		Success:  true,
		Message:  message,
		Endpoint: result.Endpoint,
	})
}

type listResponse struct {
	Success   bool              `json:"success"`
	Endpoints []models.Endpoint `json:"endpoints"`
}

func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.registry.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list endpoints")
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch endpoints")
		return
	}
	if endpoints == nil {
		endpoints = []models.Endpoint{}
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Endpoints: endpoints})
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *EndpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	if err := h.registry.Remove(r.Context(), path); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not Found", "Endpoint not found")
			return
		}
		h.log.Error().Err(err).Str("path", path).Msg("failed to delete endpoint")
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to delete endpoint")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Endpoint deleted successfully"})
}

// GetByPath serves mock data by path alone, ignoring the method the
// mapping was registered under.
func (h *EndpointHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	path := registry.NormalizePath(chi.URLParam(r, "*"))

	data, err := h.dispatch.ResolveByPath(r.Context(), path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Not Found", fmt.Sprintf("No mock data found for endpoint: %s", path))
			return
		}
		h.log.Error().Err(err).Str("path", path).Msg("failed to fetch mock data")
		writeError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to fetch mock data")
		return
	}

	writeRaw(w, http.StatusOK, data)
}
