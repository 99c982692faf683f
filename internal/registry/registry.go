// Package registry validates and normalizes endpoint registrations
// before they reach storage.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dynamock/dynamock/internal/models"
	"github.com/dynamock/dynamock/internal/storage"
)

// Validation failure codes.
const (
	CodeMissingFields  = "missing-fields"
	CodeInvalidPath    = "invalid-path"
	CodeInvalidPayload = "invalid-payload"
	CodeInvalidMethod  = "invalid-method"
)

// ValidationError is a client-input problem. Message is safe to return
// to the caller verbatim.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

type RegisterResult struct {
	Endpoint *models.Endpoint
	Created  bool
}

type Service struct {
	store storage.Storage
}

func NewService(store storage.Storage) *Service {
	return &Service{store: store}
}

// Register validates and normalizes a registration and upserts it.
// A second registration for the same (url, method) overwrites the
// stored data rather than creating a duplicate.
func (s *Service) Register(ctx context.Context, rawURL, rawMethod string, data json.RawMessage) (*RegisterResult, error) {
	if rawURL == "" || data == nil {
		return nil, &ValidationError{Code: CodeMissingFields, Message: "Both url and data are required"}
	}

	url := strings.TrimSpace(rawURL)
	if url == "" {
		return nil, &ValidationError{Code: CodeInvalidPath, Message: "URL must be a non-empty string"}
	}

	if !isJSONObject(data) {
		return nil, &ValidationError{Code: CodeInvalidPayload, Message: "Data must be a valid JSON object"}
	}

	url = NormalizePath(url)

	method, err := normalizeMethod(rawMethod)
	if err != nil {
		return nil, err
	}

	ep, created, err := s.store.Upsert(ctx, url, method, data)
	if err != nil {
		return nil, fmt.Errorf("upsert endpoint: %w", err)
	}
	return &RegisterResult{Endpoint: ep, Created: created}, nil
}

// List returns every registered mapping, newest first.
func (s *Service) List(ctx context.Context) ([]models.Endpoint, error) {
	endpoints, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	return endpoints, nil
}

// Remove deletes every mapping stored under rawURL regardless of
// method. Returns storage.ErrNotFound when nothing matched.
func (s *Service) Remove(ctx context.Context, rawURL string) error {
	url := NormalizePath(rawURL)
	count, err := s.store.DeleteByPath(ctx, url)
	if err != nil {
		return fmt.Errorf("delete endpoint: %w", err)
	}
	if count == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// NormalizePath ensures a stored path always carries a leading slash,
// so "foo/bar" and "/foo/bar" address the same mapping.
func NormalizePath(p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	return "/" + p
}

func normalizeMethod(raw string) (string, error) {
	if raw == "" {
		return http.MethodGet, nil
	}
	m := strings.ToUpper(strings.TrimSpace(raw))
	if !models.ValidMethod(m) {
		return "", &ValidationError{
			Code:    CodeInvalidMethod,
			Message: "Method must be one of GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS",
		}
	}
	return m, nil
}

// isJSONObject accepts only object payloads. Scalars, arrays and null
// are rejected even though the data column could hold them.
func isJSONObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}
