package schemas

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a schema or index has not been stored yet.
var ErrNotFound = errors.New("not found")

// Store persists schemas and indexes. Writes replace what was there; the
// last writer wins.
type Store interface {
	SaveSchema(ctx context.Context, config string, schema DatabaseSchema) error
	LoadSchema(ctx context.Context, config, name string) (DatabaseSchema, error)
	// LoadSchemaByID finds a stored schema by its Notion database id.
	LoadSchemaByID(ctx context.Context, config, id string) (DatabaseSchema, error)
	ListSchemas(ctx context.Context, config string) ([]string, error)
	ListConfigs(ctx context.Context) ([]string, error)
	SaveIndex(ctx context.Context, config string, index Index) error
	LoadIndex(ctx context.Context, config string) (Index, error)
}
