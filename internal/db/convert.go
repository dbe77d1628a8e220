package db

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roivaz/notion-chakra-mcp/internal/schemas"
)

// Properties round trip through JSON so the jsonb column holds exactly what
// the file store would write.
func toSchemaRow(config string, s schemas.DatabaseSchema) (*SchemaRow, error) {
	data, err := json.Marshal(s.Properties)
	if err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	var props map[string]any
	if err := json.Unmarshal(data, &props); err != nil {
		return nil, fmt.Errorf("encode properties: %w", err)
	}
	return &SchemaRow{
		Config:     config,
		Name:       s.Name(),
		DatabaseID: s.ID,
		Title:      s.Title,
		Properties: props,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

func fromSchemaRow(row *SchemaRow) (schemas.DatabaseSchema, error) {
	s := schemas.DatabaseSchema{ID: row.DatabaseID, Title: row.Title}
	data, err := json.Marshal(row.Properties)
	if err != nil {
		return s, fmt.Errorf("decode properties: %w", err)
	}
	if err := json.Unmarshal(data, &s.Properties); err != nil {
		return s, fmt.Errorf("decode properties: %w", err)
	}
	return s, nil
}
