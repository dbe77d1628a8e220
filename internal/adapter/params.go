package adapter

import (
	"fmt"
	"math"
	"strings"

	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

// Params holds decoded JSON tool arguments. Values are one of string,
// float64, bool, []any, map[string]any or nil. Accessors enforce the
// expected variant and report mismatches as validation failures.
type Params map[string]any

func (p Params) has(name string) bool {
	v, ok := p[name]
	return ok && v != nil
}

func typeError(name, want string, got any) error {
	return &notion.ParamError{Param: name, Message: fmt.Sprintf("must be %s, got %T", want, got)}
}

// String returns an optional string parameter.
func (p Params) String(name string) (string, error) {
	if !p.has(name) {
		return "", nil
	}
	s, ok := p[name].(string)
	if !ok {
		return "", typeError(name, "a string", p[name])
	}
	return strings.TrimSpace(s), nil
}

// RequiredString returns a non-empty string parameter.
func (p Params) RequiredString(name string) (string, error) {
	s, err := p.String(name)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", &notion.ParamError{Param: name, Message: "is required"}
	}
	return s, nil
}

// ID returns a required Notion id normalized to its hyphenated form.
func (p Params) ID(name string) (string, error) {
	s, err := p.RequiredString(name)
	if err != nil {
		return "", err
	}
	id, err := notion.NormalizeID(s)
	if err != nil {
		return "", &notion.ParamError{Param: name, Message: err.Error()}
	}
	return id, nil
}

// Int returns an integral number parameter, or def when absent.
func (p Params) Int(name string, def int) (int, error) {
	if !p.has(name) {
		return def, nil
	}
	switch v := p[name].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, typeError(name, "an integer", v)
		}
		return int(v), nil
	case int:
		return v, nil
	default:
		return 0, typeError(name, "an integer", v)
	}
}

// Number returns a float parameter and whether it was present.
func (p Params) Number(name string) (float64, bool, error) {
	if !p.has(name) {
		return 0, false, nil
	}
	switch v := p[name].(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	default:
		return 0, false, typeError(name, "a number", v)
	}
}

// Bool returns an optional boolean; nil when absent.
func (p Params) Bool(name string) (*bool, error) {
	if !p.has(name) {
		return nil, nil
	}
	b, ok := p[name].(bool)
	if !ok {
		return nil, typeError(name, "a boolean", p[name])
	}
	return &b, nil
}

// Object returns an optional JSON object parameter.
func (p Params) Object(name string) (map[string]any, error) {
	if !p.has(name) {
		return nil, nil
	}
	m, ok := p[name].(map[string]any)
	if !ok {
		return nil, typeError(name, "an object", p[name])
	}
	return m, nil
}

// Array returns an optional JSON array parameter.
func (p Params) Array(name string) ([]any, error) {
	if !p.has(name) {
		return nil, nil
	}
	a, ok := p[name].([]any)
	if !ok {
		return nil, typeError(name, "an array", p[name])
	}
	return a, nil
}

// PageSize returns page_size bounded to what Notion accepts.
func (p Params) PageSize() (int, error) {
	n, err := p.Int("page_size", notion.MaxPageSize)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > notion.MaxPageSize {
		return 0, &notion.ParamError{Param: "page_size", Message: fmt.Sprintf("must be between 1 and %d", notion.MaxPageSize)}
	}
	return n, nil
}
