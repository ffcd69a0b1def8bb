package extension

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCPTool is a tool definition with its handler.
type MCPTool struct {
	Tool    mcp.Tool
	Handler MCPHandler
}

// MCPHandler serves one tool call. extCtx is built per call over the MCP
// server's service; tool argument errors go back as error results, not as
// a Go error.
type MCPHandler func(ctx context.Context, extCtx Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Tools collects the MCP tools of every registered extension in
// registration order. Two tools with one name are an error: the MCP
// server would silently keep only the last.
func Tools() ([]MCPTool, error) {
	var tools []MCPTool
	owner := make(map[string]string)
	for _, ext := range All() {
		for _, t := range ext.MCPTools() {
			if prev, ok := owner[t.Tool.Name]; ok {
				return nil, fmt.Errorf("MCP tool %s registered by both %s and %s", t.Tool.Name, prev, ext.Name())
			}
			owner[t.Tool.Name] = ext.Name()
			tools = append(tools, t)
		}
	}
	return tools, nil
}

// JSONResult returns v as an indented JSON text result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
