package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/notion"
	"github.com/roivaz/notion-chakra-mcp/internal/schemas"
)

// SchemaService is the part of schemas.Service the schema tools need.
type SchemaService interface {
	Fetch(ctx context.Context, config string) (schemas.FetchResult, error)
	Get(ctx context.Context, config, database string) (schemas.DatabaseSchema, error)
	List(ctx context.Context, config string) ([]string, error)
	Configs(ctx context.Context) ([]string, error)
}

type FetchSchemasHandler struct {
	Service SchemaService
}

func (h *FetchSchemasHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	config, err := arguments(req).String("config_name")
	if err != nil {
		return errorResult("", err), nil
	}
	res, err := h.Service.Fetch(ctx, config)
	if err != nil {
		return errorResult(adapter.OpListDatabases, err), nil
	}
	return jsonResult(res), nil
}

type GetSchemaHandler struct {
	Service SchemaService
}

func (h *GetSchemaHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	database, err := args.RequiredString("database_name")
	if err != nil {
		return errorResult("", err), nil
	}
	config, err := args.String("config_name")
	if err != nil {
		return errorResult("", err), nil
	}
	schema, err := h.Service.Get(ctx, config, database)
	if err != nil {
		return schemaError(database, err), nil
	}
	return jsonResult(schema), nil
}

type ListSchemasHandler struct {
	Service SchemaService
}

func (h *ListSchemasHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	config, err := arguments(req).String("config_name")
	if err != nil {
		return errorResult("", err), nil
	}
	names, err := h.Service.List(ctx, config)
	if err != nil {
		return errorResult("", err), nil
	}
	return jsonResult(map[string]any{"config": schemas.Key(config), "schemas": names}), nil
}

type ListConfigsHandler struct {
	Service SchemaService
}

func (h *ListConfigsHandler) ToolAdapter(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	configs, err := h.Service.Configs(ctx)
	if err != nil {
		return errorResult("", err), nil
	}
	return jsonResult(map[string]any{"configs": configs}), nil
}

func schemaError(database string, err error) *mcp.CallToolResult {
	if errors.Is(err, schemas.ErrNotFound) {
		return failureResult("", &adapter.Failure{
			Kind:    notion.KindNotFound,
			Message: fmt.Sprintf("no schema found for database %q", database),
		})
	}
	return errorResult("", err)
}
