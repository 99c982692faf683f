// Package dispatch resolves incoming requests against stored endpoint
// mappings at serve time.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dynamock/dynamock/internal/storage"
)

type Dispatcher struct {
	store storage.Storage
}

func NewDispatcher(store storage.Storage) *Dispatcher {
	return &Dispatcher{store: store}
}

// Resolve returns the payload registered for (path, method), verbatim.
// A miss yields storage.ErrNotFound.
func (d *Dispatcher) Resolve(ctx context.Context, path, method string) (json.RawMessage, error) {
	ep, err := d.store.FindOne(ctx, path, method)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w", method, path, err)
	}
	if ep == nil {
		return nil, storage.ErrNotFound
	}
	return ep.Data, nil
}

// ResolveByPath is the legacy lookup that ignores the method, kept for
// the /api/get/* convenience route and mappings registered before
// methods existed.
func (d *Dispatcher) ResolveByPath(ctx context.Context, path string) (json.RawMessage, error) {
	ep, err := d.store.FindOneByPath(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if ep == nil {
		return nil, storage.ErrNotFound
	}
	return ep.Data, nil
}
