// Package schemas caches Notion database schemas and the title to id index
// used by the schema tools.
package schemas

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

// DatabaseSchema is the property layout of one Notion database.
type DatabaseSchema struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Properties map[string]Property `json:"properties"`
}

// Property is one database column: its type and the type specific
// configuration (select options, relation target, number format...).
type Property struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Index maps database titles to ids for one configuration.
type Index map[string]string

// Extract builds a DatabaseSchema from a GET /databases/{id} response.
func Extract(raw json.RawMessage) (DatabaseSchema, error) {
	if !gjson.ValidBytes(raw) {
		return DatabaseSchema{}, fmt.Errorf("database response is not valid JSON")
	}
	db := gjson.ParseBytes(raw)
	if obj := db.Get("object").String(); obj != "" && obj != "database" {
		return DatabaseSchema{}, fmt.Errorf("expected a database object, got %q", obj)
	}

	s := DatabaseSchema{
		ID:         db.Get("id").String(),
		Title:      notion.PlainTitle(db),
		Properties: map[string]Property{},
	}
	if id, err := notion.NormalizeID(s.ID); err == nil {
		s.ID = id
	}
	var err error
	db.Get("properties").ForEach(func(name, prop gjson.Result) bool {
		p := Property{Type: prop.Get("type").String()}
		if cfg := prop.Get(gjson.Escape(p.Type)); cfg.IsObject() {
			if err = json.Unmarshal([]byte(cfg.Raw), &p.Config); err != nil {
				err = fmt.Errorf("property %q: %w", name.String(), err)
				return false
			}
			if len(p.Config) == 0 {
				p.Config = nil
			}
		}
		s.Properties[name.String()] = p
		return true
	})
	if err != nil {
		return DatabaseSchema{}, err
	}
	return s, nil
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// Key turns a database title or configuration name into a file and row key.
func Key(name string) string {
	if k := sanitize(name); k != "" {
		return k
	}
	return "default"
}

// Name is the key the schema is stored under: its title key, or its id when
// the title has no usable characters.
func (s DatabaseSchema) Name() string {
	if k := sanitize(s.Title); k != "" {
		return k
	}
	if k := sanitize(s.ID); k != "" {
		return k
	}
	return "default"
}

func sanitize(name string) string {
	k := unsafeChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(k, "_")
}
