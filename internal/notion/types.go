package notion

// Parent references the page or database a page is created under.
type Parent struct {
	DatabaseID string `json:"database_id,omitempty"`
	PageID     string `json:"page_id,omitempty"`
}

// QueryDatabaseRequest is the body of POST /databases/{id}/query.
type QueryDatabaseRequest struct {
	Filter      any    `json:"filter,omitempty"`
	Sorts       []any  `json:"sorts,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query       string `json:"query,omitempty"`
	Filter      any    `json:"filter,omitempty"`
	Sort        any    `json:"sort,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

// CreatePageRequest is the body of POST /pages.
type CreatePageRequest struct {
	Parent     Parent         `json:"parent"`
	Properties map[string]any `json:"properties"`
	Children   []any          `json:"children,omitempty"`
	Icon       any            `json:"icon,omitempty"`
	Cover      any            `json:"cover,omitempty"`
}

// UpdatePageRequest is the body of PATCH /pages/{id}.
type UpdatePageRequest struct {
	Properties map[string]any `json:"properties,omitempty"`
	Archived   *bool          `json:"archived,omitempty"`
	Icon       any            `json:"icon,omitempty"`
	Cover      any            `json:"cover,omitempty"`
}

// AppendBlocksRequest is the body of PATCH /blocks/{id}/children.
type AppendBlocksRequest struct {
	Children []any  `json:"children"`
	After    string `json:"after,omitempty"`
}

// MaxPageSize is the largest page_size Notion accepts.
const MaxPageSize = 100

// MaxBlocksPerAppend is the most children one append request may carry.
const MaxBlocksPerAppend = 100
