package target

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Registry lookups for unknown target ids.
var ErrNotFound = errors.New("target not found")

// Registry is the read-only view of enabled monitoring targets,
// backed by the relational store.
type Registry interface {
	ListEnabledEndpoints(ctx context.Context) ([]*Endpoint, error)
	ListEnabledDatabases(ctx context.Context) ([]*Database, error)
	GetEndpoint(ctx context.Context, id string) (*Endpoint, error)
	GetDatabase(ctx context.Context, id string) (*Database, error)
}
