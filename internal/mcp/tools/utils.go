package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

// Executor runs adapter operations; *adapter.Adapter satisfies it.
type Executor interface {
	Execute(ctx context.Context, req adapter.ToolRequest) adapter.ToolResult
}

// failurePayload is the JSON body of every error result.
type failurePayload struct {
	Operation string      `json:"operation,omitempty"`
	Kind      notion.Kind `json:"kind"`
	Message   string      `json:"message"`
	Attempts  int         `json:"attempts"`
}

func failureResult(operation string, f *adapter.Failure) *mcp.CallToolResult {
	return mcp.NewToolResultError(string(mustMarshal(failurePayload{
		Operation: operation,
		Kind:      f.Kind,
		Message:   f.Message,
		Attempts:  f.Attempts,
	})))
}

// errorResult reports a failure raised before any Notion call was made.
func errorResult(operation string, err error) *mcp.CallToolResult {
	var f *adapter.Failure
	if !errors.As(err, &f) {
		f = &adapter.Failure{Kind: notion.Classify(err), Message: err.Error()}
	}
	return failureResult(operation, f)
}

func jsonResult(v any) *mcp.CallToolResult {
	return mcp.NewToolResultText(string(mustMarshal(v)))
}

// arguments returns the call arguments as adapter.Params, never nil.
func arguments(req mcp.CallToolRequest) adapter.Params {
	args := req.GetArguments()
	p := make(adapter.Params, len(args))
	for k, v := range args {
		p[k] = v
	}
	return p
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
