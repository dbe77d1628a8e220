package db

import (
	"time"

	"github.com/uptrace/bun"
)

// SchemaRow stores one database schema of one configuration.
type SchemaRow struct {
	bun.BaseModel `bun:"table:database_schemas"`

	Config     string         `bun:"config,pk"`
	Name       string         `bun:"name,pk"` // DatabaseSchema.Name
	DatabaseID string         `bun:"database_id"`
	Title      string         `bun:"title"`
	Properties map[string]any `bun:"properties,type:jsonb"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,default:now()"`
}

// IndexRow maps a database title to its id within a configuration.
type IndexRow struct {
	bun.BaseModel `bun:"table:database_index"`

	Config     string    `bun:"config,pk"`
	Title      string    `bun:"title,pk"`
	DatabaseID string    `bun:"database_id"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,default:now()"`
}
