package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

// Handlers for the task, project and OKR databases. Each builds a property
// map for its database and goes through the adapter's create_page, so retry
// and validation behave exactly like notion_create_page.

type CreateTaskHandler struct {
	Executor   Executor
	DatabaseID string
}

func (h *CreateTaskHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	props := map[string]any{}
	if err := setSelect(props, args, "status", "Status", "Not Started"); err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	if err := setSelect(props, args, "priority", "Priority", "P2"); err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	if err := setRelation(props, args, "project_id", "Project"); err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	if err := setDate(props, args, "due_date", "Due Date"); err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	return createInDatabase(ctx, h.Executor, h.DatabaseID, "NOTION_TASKS_DB", args, props), nil
}

type CreateProjectHandler struct {
	Executor   Executor
	DatabaseID string
}

func (h *CreateProjectHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	props := map[string]any{}
	steps := []func() error{
		func() error { return setSelect(props, args, "status", "Status", "Not Started") },
		func() error { return setSelect(props, args, "priority", "Priority", "P2") },
		func() error { return setRelation(props, args, "pillar_id", "Pillar") },
		func() error { return setRelation(props, args, "key_result_id", "Key Result") },
		func() error { return setDate(props, args, "due_date", "Due Date") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return errorResult(adapter.OpCreatePage, err), nil
		}
	}
	return createInDatabase(ctx, h.Executor, h.DatabaseID, "NOTION_PROJECTS_DB", args, props), nil
}

type CreatePillarHandler struct {
	Executor   Executor
	DatabaseID string
}

func (h *CreatePillarHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	props := map[string]any{}
	if err := setSelect(props, args, "status", "Status", "Active"); err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	desc, err := args.String("description")
	if err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	if desc != "" {
		props["Description"] = notion.RichTextProperty(desc)
	}
	return createInDatabase(ctx, h.Executor, h.DatabaseID, "NOTION_PILLARS_DB", args, props), nil
}

type CreateKeyResultHandler struct {
	Executor   Executor
	DatabaseID string
}

func (h *CreateKeyResultHandler) ToolAdapter(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(req)
	objective, err := args.ID("objective_id")
	if err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	target, ok, err := args.Number("target_value")
	if err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	if !ok {
		return errorResult(adapter.OpCreatePage, &notion.ParamError{Param: "target_value", Message: "is required"}), nil
	}
	current, _, err := args.Number("current_value")
	if err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}

	props := map[string]any{
		"Objective":     notion.RelationProperty(objective),
		"Target Value":  notion.NumberProperty(target),
		"Current Value": notion.NumberProperty(current),
	}
	if err := setSelect(props, args, "unit", "Unit", "%"); err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	if err := setSelect(props, args, "status", "Status", "Not Started"); err != nil {
		return errorResult(adapter.OpCreatePage, err), nil
	}
	return createInDatabase(ctx, h.Executor, h.DatabaseID, "NOTION_KEY_RESULTS_DB", args, props), nil
}

func createInDatabase(ctx context.Context, exec Executor, databaseID, envName string, args adapter.Params, props map[string]any) *mcp.CallToolResult {
	if databaseID == "" {
		return errorResult(adapter.OpCreatePage, &notion.ParamError{
			Param:   "database_id",
			Message: fmt.Sprintf("%s is not configured", envName),
		})
	}
	res := exec.Execute(ctx, adapter.ToolRequest{
		Operation: adapter.OpCreatePage,
		Params: adapter.Params{
			"database_id":    databaseID,
			"title":          args["title"],
			"title_property": "Name",
			"properties":     props,
		},
	})
	if !res.OK() {
		return failureResult(adapter.OpCreatePage, res.Failure)
	}
	return mcp.NewToolResultText(string(res.Payload))
}

func setSelect(props map[string]any, args adapter.Params, arg, property, def string) error {
	v, err := args.String(arg)
	if err != nil {
		return err
	}
	if v == "" {
		v = def
	}
	props[property] = notion.SelectProperty(v)
	return nil
}

func setRelation(props map[string]any, args adapter.Params, arg, property string) error {
	v, err := args.String(arg)
	if err != nil || v == "" {
		return err
	}
	id, err := args.ID(arg)
	if err != nil {
		return err
	}
	props[property] = notion.RelationProperty(id)
	return nil
}

func setDate(props map[string]any, args adapter.Params, arg, property string) error {
	v, err := args.String(arg)
	if err != nil || v == "" {
		return err
	}
	props[property] = notion.DateProperty(v)
	return nil
}
