package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
)

// Tool names as exposed to clients. Notion operations are mounted under
// notion_<operation>.
const (
	ToolCreateTask      = "tasks_create_task"
	ToolCreateProject   = "projects_create_project"
	ToolCreatePillar    = "okr_create_pillar"
	ToolCreateKeyResult = "okr_create_key_result"
	ToolFetchSchemas    = "schemas_fetch_schemas"
	ToolGetSchema       = "schemas_get_schema"
	ToolListSchemas     = "schemas_list_schemas"
	ToolListConfigs     = "schemas_list_configs"
	ToolTest            = "test_tool"
)

func NotionToolName(operation string) string {
	return "notion_" + operation
}

// readOperations accept the optional jq argument.
var readOperations = map[string]bool{
	adapter.OpQueryDatabase:     true,
	adapter.OpSearch:            true,
	adapter.OpListBlockChildren: true,
	adapter.OpListDatabases:     true,
	adapter.OpGetDatabase:       true,
	adapter.OpGetPage:           true,
	adapter.OpGetBlock:          true,
}

func jqOption() mcp.ToolOption {
	return mcp.WithString("jq",
		mcp.Description("Optional jq expression applied to the Notion response (e.g. '[.results[].id]')"),
	)
}

func pageSizeOption() mcp.ToolOption {
	return mcp.WithNumber("page_size",
		mcp.Description("Results per page, 1 to 100 (default: 100)"),
		mcp.Min(1),
		mcp.Max(100),
	)
}

func cursorOption() mcp.ToolOption {
	return mcp.WithString("start_cursor",
		mcp.Description("Cursor from a previous response's next_cursor"),
	)
}

func blockIDOption(desc string) mcp.ToolOption {
	return mcp.WithString("block_id", mcp.Required(), mcp.Description(desc))
}

func toolDefinitions() map[string]mcp.Tool {
	tools := map[string]mcp.Tool{
		NotionToolName(adapter.OpQueryDatabase): mcp.NewTool(NotionToolName(adapter.OpQueryDatabase),
			mcp.WithDescription("Query a Notion database. Returns matching pages exactly as the Notion API reports them; an empty results list is a success."),
			mcp.WithString("database_id",
				mcp.Required(),
				mcp.Description("Database id, with or without hyphens, or a Notion URL"),
			),
			mcp.WithObject("filter",
				mcp.Description("Notion filter object (see the Notion query database API)"),
			),
			mcp.WithArray("sorts",
				mcp.Description("Notion sort objects"),
				mcp.Items(map[string]any{"type": "object"}),
			),
			cursorOption(),
			pageSizeOption(),
		),
		NotionToolName(adapter.OpCreatePage): mcp.NewTool(NotionToolName(adapter.OpCreatePage),
			mcp.WithDescription("Create a page inside a database or under another page."),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Page title"),
			),
			mcp.WithString("database_id",
				mcp.Description("Parent database id; set exactly one of database_id or page_id"),
			),
			mcp.WithString("page_id",
				mcp.Description("Parent page id; set exactly one of database_id or page_id"),
			),
			mcp.WithString("title_property",
				mcp.Description("Name of the database title property (default: Name)"),
			),
			mcp.WithObject("properties",
				mcp.Description("Additional Notion property values keyed by property name"),
			),
			mcp.WithArray("children",
				mcp.Description("Content blocks, either Notion block objects or {type, content} shorthands (max 100)"),
				mcp.Items(map[string]any{"type": "object"}),
			),
			mcp.WithString("icon",
				mcp.Description("Emoji icon"),
			),
		),
		NotionToolName(adapter.OpUpdatePage): mcp.NewTool(NotionToolName(adapter.OpUpdatePage),
			mcp.WithDescription("Update page properties or archive a page."),
			mcp.WithString("page_id",
				mcp.Required(),
				mcp.Description("Page id"),
			),
			mcp.WithObject("properties",
				mcp.Description("Notion property values keyed by property name"),
			),
			mcp.WithBoolean("archived",
				mcp.Description("Archive (true) or restore (false) the page"),
			),
		),
		NotionToolName(adapter.OpSearch): mcp.NewTool(NotionToolName(adapter.OpSearch),
			mcp.WithDescription("Search pages and databases shared with the integration by title."),
			mcp.WithString("query",
				mcp.Description("Text to match against titles; empty returns everything"),
			),
			mcp.WithObject("filter",
				mcp.Description("Notion search filter, e.g. {\"property\":\"object\",\"value\":\"page\"}"),
			),
			mcp.WithObject("sort",
				mcp.Description("Notion search sort"),
			),
			cursorOption(),
			pageSizeOption(),
		),
		NotionToolName(adapter.OpListBlockChildren): mcp.NewTool(NotionToolName(adapter.OpListBlockChildren),
			mcp.WithDescription("List the child blocks of a page or block."),
			blockIDOption("Page or block id"),
			cursorOption(),
			pageSizeOption(),
		),
		NotionToolName(adapter.OpAppendBlockChildren): mcp.NewTool(NotionToolName(adapter.OpAppendBlockChildren),
			mcp.WithDescription("Append content blocks to a page or block."),
			blockIDOption("Page or block id"),
			mcp.WithArray("children",
				mcp.Required(),
				mcp.Description("Blocks to append, either Notion block objects or {type, content} shorthands (max 100)"),
				mcp.Items(map[string]any{"type": "object"}),
			),
			mcp.WithString("after",
				mcp.Description("Insert after this existing child block id"),
			),
		),
		NotionToolName(adapter.OpListDatabases): mcp.NewTool(NotionToolName(adapter.OpListDatabases),
			mcp.WithDescription("List databases shared with the integration."),
			cursorOption(),
			pageSizeOption(),
		),
		NotionToolName(adapter.OpGetDatabase): mcp.NewTool(NotionToolName(adapter.OpGetDatabase),
			mcp.WithDescription("Retrieve a database and its property schema."),
			mcp.WithString("database_id",
				mcp.Required(),
				mcp.Description("Database id"),
			),
		),
		NotionToolName(adapter.OpGetPage): mcp.NewTool(NotionToolName(adapter.OpGetPage),
			mcp.WithDescription("Retrieve a page and its property values."),
			mcp.WithString("page_id",
				mcp.Required(),
				mcp.Description("Page id"),
			),
		),
		NotionToolName(adapter.OpGetBlock): mcp.NewTool(NotionToolName(adapter.OpGetBlock),
			mcp.WithDescription("Retrieve a single block."),
			blockIDOption("Block id"),
		),
		NotionToolName(adapter.OpUpdateBlock): mcp.NewTool(NotionToolName(adapter.OpUpdateBlock),
			mcp.WithDescription("Replace the content of a block or archive it."),
			blockIDOption("Block id"),
			mcp.WithObject("block",
				mcp.Description("New content as a Notion block object or {type, content} shorthand"),
			),
			mcp.WithBoolean("archived",
				mcp.Description("Archive (true) or restore (false) the block"),
			),
		),
		NotionToolName(adapter.OpDeleteBlock): mcp.NewTool(NotionToolName(adapter.OpDeleteBlock),
			mcp.WithDescription("Delete (archive) a block."),
			blockIDOption("Block id"),
		),

		ToolCreateTask: mcp.NewTool(ToolCreateTask,
			mcp.WithDescription("Create a task in the tasks database."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Task name")),
			mcp.WithString("project_id", mcp.Description("Related project page id")),
			mcp.WithString("status", mcp.Description("Task status"), mcp.DefaultString("Not Started")),
			mcp.WithString("priority", mcp.Description("Task priority"), mcp.DefaultString("P2")),
			mcp.WithString("due_date", mcp.Description("Due date, ISO 8601")),
		),
		ToolCreateProject: mcp.NewTool(ToolCreateProject,
			mcp.WithDescription("Create a project in the projects database."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Project name")),
			mcp.WithString("pillar_id", mcp.Description("Related pillar page id")),
			mcp.WithString("key_result_id", mcp.Description("Related key result page id")),
			mcp.WithString("status", mcp.Description("Project status"), mcp.DefaultString("Not Started")),
			mcp.WithString("priority", mcp.Description("Project priority"), mcp.DefaultString("P2")),
			mcp.WithString("due_date", mcp.Description("Due date, ISO 8601")),
		),
		ToolCreatePillar: mcp.NewTool(ToolCreatePillar,
			mcp.WithDescription("Create a strategic pillar in the pillars database."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Pillar name")),
			mcp.WithString("description", mcp.Description("Pillar description")),
			mcp.WithString("status", mcp.Description("Pillar status"), mcp.DefaultString("Active")),
		),
		ToolCreateKeyResult: mcp.NewTool(ToolCreateKeyResult,
			mcp.WithDescription("Create a key result linked to an objective."),
			mcp.WithString("title", mcp.Required(), mcp.Description("Key result name")),
			mcp.WithString("objective_id", mcp.Required(), mcp.Description("Objective page id")),
			mcp.WithNumber("target_value", mcp.Required(), mcp.Description("Target value")),
			mcp.WithNumber("current_value", mcp.Description("Current value"), mcp.DefaultNumber(0)),
			mcp.WithString("unit", mcp.Description("Unit of measure"), mcp.DefaultString("%")),
			mcp.WithString("status", mcp.Description("Key result status"), mcp.DefaultString("Not Started")),
		),

		ToolFetchSchemas: mcp.NewTool(ToolFetchSchemas,
			mcp.WithDescription("Fetch the property schema of every database shared with the integration and store it under a configuration name."),
			mcp.WithString("config_name", mcp.Description("Configuration name (default: default)")),
		),
		ToolGetSchema: mcp.NewTool(ToolGetSchema,
			mcp.WithDescription("Return a stored database schema, fetching it from Notion when it is not stored yet."),
			mcp.WithString("database_name", mcp.Required(), mcp.Description("Database title or id")),
			mcp.WithString("config_name", mcp.Description("Configuration name (default: default)")),
		),
		ToolListSchemas: mcp.NewTool(ToolListSchemas,
			mcp.WithDescription("List stored schemas for a configuration."),
			mcp.WithString("config_name", mcp.Description("Configuration name (default: default)")),
		),
		ToolListConfigs: mcp.NewTool(ToolListConfigs,
			mcp.WithDescription("List configuration names that have stored schemas."),
		),
		ToolTest: mcp.NewTool(ToolTest,
			mcp.WithDescription("Check that the server is reachable."),
		),
	}

	for op := range readOperations {
		name := NotionToolName(op)
		tool := tools[name]
		jqOption()(&tool)
		tools[name] = tool
	}
	return tools
}
