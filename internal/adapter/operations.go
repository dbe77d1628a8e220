package adapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

// Operation names accepted in ToolRequest.Operation.
const (
	OpQueryDatabase       = "query_database"
	OpCreatePage          = "create_page"
	OpUpdatePage          = "update_page"
	OpSearch              = "search"
	OpListBlockChildren   = "list_block_children"
	OpAppendBlockChildren = "append_block_children"
	OpListDatabases       = "list_databases"
	OpGetDatabase         = "get_database"
	OpGetPage             = "get_page"
	OpGetBlock            = "get_block"
	OpUpdateBlock         = "update_block"
	OpDeleteBlock         = "delete_block"
)

// API is the Notion surface the adapter maps operations onto.
type API interface {
	Search(ctx context.Context, req notion.SearchRequest) (json.RawMessage, error)
	GetDatabase(ctx context.Context, databaseID string) (json.RawMessage, error)
	QueryDatabase(ctx context.Context, databaseID string, req notion.QueryDatabaseRequest) (json.RawMessage, error)
	CreatePage(ctx context.Context, req notion.CreatePageRequest) (json.RawMessage, error)
	GetPage(ctx context.Context, pageID string) (json.RawMessage, error)
	UpdatePage(ctx context.Context, pageID string, req notion.UpdatePageRequest) (json.RawMessage, error)
	GetBlock(ctx context.Context, blockID string) (json.RawMessage, error)
	UpdateBlock(ctx context.Context, blockID string, body map[string]any) (json.RawMessage, error)
	DeleteBlock(ctx context.Context, blockID string) (json.RawMessage, error)
	ListBlockChildren(ctx context.Context, blockID, startCursor string, pageSize int) (json.RawMessage, error)
	AppendBlockChildren(ctx context.Context, blockID string, req notion.AppendBlocksRequest) (json.RawMessage, error)
}

// call is one Notion request with its arguments already validated and bound.
type call func(ctx context.Context) (json.RawMessage, error)

// binder validates params and returns the call to run under retry.
type binder func(api API, p Params) (call, error)

var operations = map[string]binder{
	OpQueryDatabase:       bindQueryDatabase,
	OpCreatePage:          bindCreatePage,
	OpUpdatePage:          bindUpdatePage,
	OpSearch:              bindSearch,
	OpListBlockChildren:   bindListBlockChildren,
	OpAppendBlockChildren: bindAppendBlockChildren,
	OpListDatabases:       bindListDatabases,
	OpGetDatabase:         bindGetDatabase,
	OpGetPage:             bindGetPage,
	OpGetBlock:            bindGetBlock,
	OpUpdateBlock:         bindUpdateBlock,
	OpDeleteBlock:         bindDeleteBlock,
}

func bindQueryDatabase(api API, p Params) (call, error) {
	id, err := p.ID("database_id")
	if err != nil {
		return nil, err
	}
	req := notion.QueryDatabaseRequest{}
	filter, err := p.Object("filter")
	if err != nil {
		return nil, err
	}
	if filter != nil {
		req.Filter = filter
	}
	if req.Sorts, err = p.Array("sorts"); err != nil {
		return nil, err
	}
	if req.StartCursor, err = p.String("start_cursor"); err != nil {
		return nil, err
	}
	if req.PageSize, err = p.PageSize(); err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.QueryDatabase(ctx, id, req)
	}, nil
}

func bindCreatePage(api API, p Params) (call, error) {
	title, err := p.RequiredString("title")
	if err != nil {
		return nil, err
	}

	req := notion.CreatePageRequest{}
	databaseID, _ := p.String("database_id")
	pageID, _ := p.String("page_id")
	titleProp := "title"
	switch {
	case databaseID != "" && pageID != "":
		return nil, &notion.ParamError{Param: "parent", Message: "set only one of database_id or page_id"}
	case databaseID != "":
		if req.Parent.DatabaseID, err = p.ID("database_id"); err != nil {
			return nil, err
		}
		titleProp = "Name"
	case pageID != "":
		if req.Parent.PageID, err = p.ID("page_id"); err != nil {
			return nil, err
		}
	default:
		return nil, &notion.ParamError{Param: "parent", Message: "database_id or page_id is required"}
	}
	if s, err := p.String("title_property"); err != nil {
		return nil, err
	} else if s != "" {
		titleProp = s
	}

	props, err := p.Object("properties")
	if err != nil {
		return nil, err
	}
	req.Properties = make(map[string]any, len(props)+1)
	for k, v := range props {
		req.Properties[k] = v
	}
	if _, ok := req.Properties[titleProp]; !ok {
		req.Properties[titleProp] = notion.TitleProperty(title)
	}

	children, err := p.Array("children")
	if err != nil {
		return nil, err
	}
	if req.Children, err = buildChildren(children); err != nil {
		return nil, err
	}
	if emoji, err := p.String("icon"); err != nil {
		return nil, err
	} else if emoji != "" {
		req.Icon = map[string]any{"type": "emoji", "emoji": emoji}
	}

	return func(ctx context.Context) (json.RawMessage, error) {
		return api.CreatePage(ctx, req)
	}, nil
}

func bindUpdatePage(api API, p Params) (call, error) {
	id, err := p.ID("page_id")
	if err != nil {
		return nil, err
	}
	req := notion.UpdatePageRequest{}
	if req.Properties, err = p.Object("properties"); err != nil {
		return nil, err
	}
	if req.Archived, err = p.Bool("archived"); err != nil {
		return nil, err
	}
	if req.Properties == nil && req.Archived == nil {
		return nil, &notion.ParamError{Param: "properties", Message: "properties or archived is required"}
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.UpdatePage(ctx, id, req)
	}, nil
}

func bindSearch(api API, p Params) (call, error) {
	req := notion.SearchRequest{}
	var err error
	if req.Query, err = p.String("query"); err != nil {
		return nil, err
	}
	filter, err := p.Object("filter")
	if err != nil {
		return nil, err
	}
	if filter != nil {
		req.Filter = filter
	}
	sort, err := p.Object("sort")
	if err != nil {
		return nil, err
	}
	if sort != nil {
		req.Sort = sort
	}
	if req.StartCursor, err = p.String("start_cursor"); err != nil {
		return nil, err
	}
	if req.PageSize, err = p.PageSize(); err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.Search(ctx, req)
	}, nil
}

func bindListDatabases(api API, p Params) (call, error) {
	req := notion.SearchRequest{
		Filter: map[string]any{"property": "object", "value": "database"},
	}
	var err error
	if req.StartCursor, err = p.String("start_cursor"); err != nil {
		return nil, err
	}
	if req.PageSize, err = p.PageSize(); err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.Search(ctx, req)
	}, nil
}

func bindGetDatabase(api API, p Params) (call, error) {
	id, err := p.ID("database_id")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.GetDatabase(ctx, id)
	}, nil
}

func bindGetPage(api API, p Params) (call, error) {
	id, err := p.ID("page_id")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.GetPage(ctx, id)
	}, nil
}

func bindGetBlock(api API, p Params) (call, error) {
	id, err := p.ID("block_id")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.GetBlock(ctx, id)
	}, nil
}

func bindListBlockChildren(api API, p Params) (call, error) {
	id, err := p.ID("block_id")
	if err != nil {
		return nil, err
	}
	cursor, err := p.String("start_cursor")
	if err != nil {
		return nil, err
	}
	size, err := p.PageSize()
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.ListBlockChildren(ctx, id, cursor, size)
	}, nil
}

func bindAppendBlockChildren(api API, p Params) (call, error) {
	id, err := p.ID("block_id")
	if err != nil {
		return nil, err
	}
	raw, err := p.Array("children")
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &notion.ParamError{Param: "children", Message: "at least one block is required"}
	}
	children, err := buildChildren(raw)
	if err != nil {
		return nil, err
	}
	req := notion.AppendBlocksRequest{Children: children}
	if req.After, err = p.String("after"); err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.AppendBlockChildren(ctx, id, req)
	}, nil
}

func bindUpdateBlock(api API, p Params) (call, error) {
	id, err := p.ID("block_id")
	if err != nil {
		return nil, err
	}
	block, err := p.Object("block")
	if err != nil {
		return nil, err
	}
	archived, err := p.Bool("archived")
	if err != nil {
		return nil, err
	}
	if block == nil && archived == nil {
		return nil, &notion.ParamError{Param: "block", Message: "block or archived is required"}
	}

	body := map[string]any{}
	if block != nil {
		built, err := notion.BuildBlock(block)
		if err != nil {
			return nil, err
		}
		blockType := built["type"].(string)
		body[blockType] = built[blockType]
	}
	if archived != nil {
		body["archived"] = *archived
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.UpdateBlock(ctx, id, body)
	}, nil
}

func bindDeleteBlock(api API, p Params) (call, error) {
	id, err := p.ID("block_id")
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (json.RawMessage, error) {
		return api.DeleteBlock(ctx, id)
	}, nil
}

func buildChildren(raw []any) ([]any, error) {
	if len(raw) > notion.MaxBlocksPerAppend {
		return nil, &notion.ParamError{Param: "children", Message: fmt.Sprintf("at most %d blocks per request, got %d", notion.MaxBlocksPerAppend, len(raw))}
	}
	return notion.BuildBlocks(raw)
}
