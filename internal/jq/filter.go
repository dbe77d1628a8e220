// Package jq applies jq expressions to tool result payloads.
package jq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

const DefaultTimeout = time.Second

// Filter runs expression over a JSON document. A single output is returned
// as is; several outputs are collected into an array.
type Filter struct {
	timeout time.Duration
}

func NewFilter(timeout time.Duration) *Filter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Filter{timeout: timeout}
}

// Validate compiles expression without running it.
func Validate(expression string) error {
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	return code, nil
}

// Apply evaluates expression against raw. An empty expression returns raw.
func (f *Filter) Apply(ctx context.Context, expression string, raw json.RawMessage) (json.RawMessage, error) {
	if expression == "" {
		return raw, nil
	}
	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, fmt.Errorf("decode jq input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	var results []any
	iter := code.RunWithContext(ctx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("jq execution timeout after %v", f.timeout)
			}
			return nil, fmt.Errorf("jq: %w", err)
		}
		results = append(results, v)
	}

	var out any
	switch len(results) {
	case 0:
		out = nil
	case 1:
		out = results[0]
	default:
		out = results
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode jq output: %w", err)
	}
	return data, nil
}
