package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

// Search runs POST /search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/search", req)
}

// GetDatabase runs GET /databases/{id}.
func (c *Client) GetDatabase(ctx context.Context, databaseID string) (json.RawMessage, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return nil, withParam("database_id", err)
	}
	return c.do(ctx, http.MethodGet, "/databases/"+id, nil)
}

// QueryDatabase runs POST /databases/{id}/query.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryDatabaseRequest) (json.RawMessage, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return nil, withParam("database_id", err)
	}
	return c.do(ctx, http.MethodPost, "/databases/"+id+"/query", req)
}

// CreatePage runs POST /pages.
func (c *Client) CreatePage(ctx context.Context, req CreatePageRequest) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/pages", req)
}

// GetPage runs GET /pages/{id}.
func (c *Client) GetPage(ctx context.Context, pageID string) (json.RawMessage, error) {
	id, err := NormalizeID(pageID)
	if err != nil {
		return nil, withParam("page_id", err)
	}
	return c.do(ctx, http.MethodGet, "/pages/"+id, nil)
}

// UpdatePage runs PATCH /pages/{id}.
func (c *Client) UpdatePage(ctx context.Context, pageID string, req UpdatePageRequest) (json.RawMessage, error) {
	id, err := NormalizeID(pageID)
	if err != nil {
		return nil, withParam("page_id", err)
	}
	return c.do(ctx, http.MethodPatch, "/pages/"+id, req)
}

// GetBlock runs GET /blocks/{id}.
func (c *Client) GetBlock(ctx context.Context, blockID string) (json.RawMessage, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, withParam("block_id", err)
	}
	return c.do(ctx, http.MethodGet, "/blocks/"+id, nil)
}

// UpdateBlock runs PATCH /blocks/{id} with a type keyed body such as
// {"paragraph": {...}}.
func (c *Client) UpdateBlock(ctx context.Context, blockID string, body map[string]any) (json.RawMessage, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, withParam("block_id", err)
	}
	return c.do(ctx, http.MethodPatch, "/blocks/"+id, body)
}

// DeleteBlock runs DELETE /blocks/{id}. Notion archives the block.
func (c *Client) DeleteBlock(ctx context.Context, blockID string) (json.RawMessage, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, withParam("block_id", err)
	}
	return c.do(ctx, http.MethodDelete, "/blocks/"+id, nil)
}

// ListBlockChildren runs GET /blocks/{id}/children.
func (c *Client) ListBlockChildren(ctx context.Context, blockID, startCursor string, pageSize int) (json.RawMessage, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, withParam("block_id", err)
	}
	q := url.Values{}
	if startCursor != "" {
		q.Set("start_cursor", startCursor)
	}
	if pageSize > 0 {
		q.Set("page_size", strconv.Itoa(pageSize))
	}
	path := "/blocks/" + id + "/children"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil)
}

// AppendBlockChildren runs PATCH /blocks/{id}/children.
func (c *Client) AppendBlockChildren(ctx context.Context, blockID string, req AppendBlocksRequest) (json.RawMessage, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, withParam("block_id", err)
	}
	if len(req.Children) > MaxBlocksPerAppend {
		return nil, &ParamError{Param: "children", Message: fmt.Sprintf("at most %d blocks per request, got %d", MaxBlocksPerAppend, len(req.Children))}
	}
	return c.do(ctx, http.MethodPatch, "/blocks/"+id+"/children", req)
}

// PlainTitle joins the plain_text of a database or page title array.
func PlainTitle(obj gjson.Result) string {
	var title string
	obj.Get("title").ForEach(func(_, part gjson.Result) bool {
		title += part.Get("plain_text").String()
		return true
	})
	return title
}

func withParam(param string, err error) error {
	if pe, ok := err.(*ParamError); ok {
		return &ParamError{Param: param, Message: pe.Message}
	}
	return err
}
