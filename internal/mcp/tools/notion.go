package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/jq"
	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

// NotionHandler forwards a tool call to one adapter operation. Read tools
// accept an optional "jq" argument applied to a successful payload.
type NotionHandler struct {
	Executor  Executor
	Operation string
	Filter    *jq.Filter
}

func (h *NotionHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := arguments(req)
	expr, err := params.String("jq")
	if err != nil {
		return errorResult(h.Operation, err), nil
	}
	delete(params, "jq")
	if expr != "" {
		if h.Filter == nil {
			return errorResult(h.Operation, &notion.ParamError{Param: "jq", Message: "jq filtering is not available for this tool"}), nil
		}
		if err := jq.Validate(expr); err != nil {
			return errorResult(h.Operation, &notion.ParamError{Param: "jq", Message: err.Error()}), nil
		}
	}

	res := h.Executor.Execute(ctx, adapter.ToolRequest{Operation: h.Operation, Params: params})
	if !res.OK() {
		return failureResult(h.Operation, res.Failure), nil
	}

	payload := res.Payload
	if expr != "" {
		if payload, err = h.Filter.Apply(ctx, expr, payload); err != nil {
			return failureResult(h.Operation, &adapter.Failure{
				Kind:     notion.KindValidation,
				Message:  (&notion.ParamError{Param: "jq", Message: err.Error()}).Error(),
				Attempts: res.Attempts,
			}), nil
		}
	}
	return mcp.NewToolResultText(string(payload)), nil
}
