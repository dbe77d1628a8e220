package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"github.com/roivaz/notion-chakra-mcp/internal/schemas"
)

// SchemaStore is the Postgres implementation of schemas.Store.
type SchemaStore struct {
	db *bun.DB
}

var _ schemas.Store = (*SchemaStore)(nil)

func NewSchemaStore(database *Database) *SchemaStore {
	return &SchemaStore{db: database.Bun()}
}

func (s *SchemaStore) SaveSchema(ctx context.Context, config string, schema schemas.DatabaseSchema) error {
	row, err := toSchemaRow(schemas.Key(config), schema)
	if err != nil {
		return err
	}
	if _, err := upsertSchemaQuery(s.db, row).Exec(ctx); err != nil {
		return fmt.Errorf("save schema %s/%s: %w", row.Config, row.Name, err)
	}
	return nil
}

func (s *SchemaStore) LoadSchema(ctx context.Context, config, name string) (schemas.DatabaseSchema, error) {
	row := new(SchemaRow)
	err := s.db.NewSelect().Model(row).
		Where("config = ?", schemas.Key(config)).
		Where("name = ?", schemas.Key(name)).
		Limit(1).
		Scan(ctx)
	return scanSchema(row, err)
}

func (s *SchemaStore) LoadSchemaByID(ctx context.Context, config, id string) (schemas.DatabaseSchema, error) {
	row := new(SchemaRow)
	err := schemaByIDQuery(s.db, row, schemas.Key(config), id).Scan(ctx)
	return scanSchema(row, err)
}

func scanSchema(row *SchemaRow, err error) (schemas.DatabaseSchema, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return schemas.DatabaseSchema{}, schemas.ErrNotFound
	}
	if err != nil {
		return schemas.DatabaseSchema{}, fmt.Errorf("load schema: %w", err)
	}
	return fromSchemaRow(row)
}

func upsertSchemaQuery(db bun.IDB, row *SchemaRow) *bun.InsertQuery {
	return db.NewInsert().Model(row).
		On("CONFLICT (config, name) DO UPDATE").
		Set("database_id = EXCLUDED.database_id").
		Set("title = EXCLUDED.title").
		Set("properties = EXCLUDED.properties").
		Set("updated_at = EXCLUDED.updated_at")
}

// schemaByIDQuery is served by database_schemas_database_id_idx.
func schemaByIDQuery(db bun.IDB, row *SchemaRow, config, id string) *bun.SelectQuery {
	return db.NewSelect().Model(row).
		Where("config = ?", config).
		Where("database_id = ?", id).
		OrderExpr("updated_at DESC").
		Limit(1)
}

func (s *SchemaStore) ListSchemas(ctx context.Context, config string) ([]string, error) {
	var names []string
	err := s.db.NewSelect().Model((*SchemaRow)(nil)).
		Column("name").
		Where("config = ?", schemas.Key(config)).
		OrderExpr("name ASC").
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	return names, nil
}

func (s *SchemaStore) ListConfigs(ctx context.Context) ([]string, error) {
	var configs []string
	err := s.db.NewSelect().Model((*SchemaRow)(nil)).
		ColumnExpr("DISTINCT config").
		OrderExpr("config ASC").
		Scan(ctx, &configs)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	return configs, nil
}

// SaveIndex replaces the whole index of config in one transaction.
func (s *SchemaStore) SaveIndex(ctx context.Context, config string, index schemas.Index) error {
	config = schemas.Key(config)
	now := time.Now().UTC()
	titles := make([]string, 0, len(index))
	for title := range index {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	rows := make([]IndexRow, 0, len(index))
	for _, title := range titles {
		rows = append(rows, IndexRow{Config: config, Title: title, DatabaseID: index[title], UpdatedAt: now})
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := clearIndexQuery(tx, config).Exec(ctx); err != nil {
			return fmt.Errorf("clear index %s: %w", config, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if _, err := insertIndexQuery(tx, rows).Exec(ctx); err != nil {
			return fmt.Errorf("save index %s: %w", config, err)
		}
		return nil
	})
}

func clearIndexQuery(db bun.IDB, config string) *bun.DeleteQuery {
	return db.NewDelete().Model((*IndexRow)(nil)).Where("config = ?", config)
}

func insertIndexQuery(db bun.IDB, rows []IndexRow) *bun.InsertQuery {
	return db.NewInsert().Model(&rows)
}

func (s *SchemaStore) LoadIndex(ctx context.Context, config string) (schemas.Index, error) {
	var rows []IndexRow
	err := s.db.NewSelect().Model(&rows).Where("config = ?", schemas.Key(config)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}
	if len(rows) == 0 {
		return nil, schemas.ErrNotFound
	}
	index := make(schemas.Index, len(rows))
	for _, r := range rows {
		index[r.Title] = r.DatabaseID
	}
	return index, nil
}
