package notion

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeID accepts a Notion id with or without hyphens, or a Notion URL
// ending in one, and returns the canonical hyphenated form.
func NormalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	if i := strings.LastIndexAny(id, "/-"); i >= 0 && len(id)-i-1 == 32 {
		// https://www.notion.so/Page-Title-<32 hex>
		id = id[i+1:]
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return "", &ParamError{Message: "invalid Notion id " + quoteShort(id)}
	}
	return u.String(), nil
}

func quoteShort(s string) string {
	if len(s) > 64 {
		s = s[:64] + "..."
	}
	return `"` + s + `"`
}
