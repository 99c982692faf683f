package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dynamock/dynamock/internal/models"
)

// ErrNotFound signals that no endpoint mapping exists for the requested
// key. Callers that need a user-facing message build it themselves.
var ErrNotFound = errors.New("endpoint not found")

type Storage interface {
	// Upsert inserts a mapping or, when (url, method) already exists,
	// overwrites its data and updated_at. The returned bool is true when
	// a new row was created.
	Upsert(ctx context.Context, url, method string, data json.RawMessage) (*models.Endpoint, bool, error)

	// FindOne does an exact (url, method) lookup. Returns (nil, nil) on miss.
	FindOne(ctx context.Context, url, method string) (*models.Endpoint, error)

	// FindOneByPath looks a mapping up by url alone, tolerating rows
	// registered under several methods. Returns (nil, nil) on miss.
	FindOneByPath(ctx context.Context, url string) (*models.Endpoint, error)

	// FindAll returns every mapping, newest first.
	FindAll(ctx context.Context) ([]models.Endpoint, error)

	// DeleteByPath removes all mappings for url regardless of method and
	// reports how many rows went away.
	DeleteByPath(ctx context.Context, url string) (int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
