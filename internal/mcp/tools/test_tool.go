package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// TestToolHandler answers without touching Notion; clients use it to check
// the connection.
type TestToolHandler struct{}

func (TestToolHandler) ToolAdapter(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("Test tool working!"), nil
}
