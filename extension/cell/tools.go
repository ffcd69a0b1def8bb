// tools.go exposes the maintenance operations the built-in MCP server
// lacks: ratio recalculation, statistics, deletion and restore.

package cell

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/internal/log"
)

// MCPTools returns the cell extension's MCP tools.
func (e *Extension) MCPTools() []extension.MCPTool {
	return []extension.MCPTool{
		{
			Tool: mcp.NewTool("cellrev_ratios",
				mcp.WithDescription("Recompute similarity ratio and status for cells after diff settings change"),
				mcp.WithString("prefix", mcp.Description("Only cells with this id prefix")),
			),
			Handler: ratiosTool,
		},
		{
			Tool: mcp.NewTool("cellrev_stats",
				mcp.WithDescription("Get totals for the store: cells, versions, ratios, approvals and comments"),
			),
			Handler: statsTool,
		},
		{
			Tool: mcp.NewTool("cellrev_delete",
				mcp.WithDescription("Soft-delete a cell (recoverable with cellrev_restore)"),
				mcp.WithString("id", mcp.Required(), mcp.Description("Cell id")),
				mcp.WithString("author", mcp.Required(), mcp.Description("Author attribution")),
			),
			Handler: deleteTool(false),
		},
		{
			Tool: mcp.NewTool("cellrev_restore",
				mcp.WithDescription("Restore a soft-deleted cell"),
				mcp.WithString("id", mcp.Required(), mcp.Description("Cell id")),
				mcp.WithString("author", mcp.Required(), mcp.Description("Author attribution")),
			),
			Handler: deleteTool(true),
		},
	}
}

func ratiosTool(ctx context.Context, extCtx extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := ""
	if args, ok := req.Params.Arguments.(map[string]any); ok {
		prefix, _ = args["prefix"].(string)
	}
	n, err := extCtx.Service().RecalculateRatios(ctx, prefix)

	log.Event("mcp:cellrev_ratios", "ratios").
		Author("mcp").
		Detail("prefix", prefix).
		Detail("updated", n).
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return extension.JSONResult(map[string]any{"prefix": prefix, "updated": n})
}

func statsTool(ctx context.Context, extCtx extension.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := extCtx.Service().Stats(ctx)

	log.Event("mcp:cellrev_stats", "read").
		Author("mcp").
		Write(err)

	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return extension.JSONResult(st)
}

func deleteTool(restore bool) extension.MCPHandler {
	name, action := "cellrev_delete", "delete"
	if restore {
		name, action = "cellrev_restore", "restore"
	}
	return func(ctx context.Context, extCtx extension.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		author, err := req.RequireString("author")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		svc := extCtx.Service()
		if restore {
			err = svc.Restore(ctx, id)
		} else {
			err = svc.Delete(ctx, id)
		}

		log.Event("mcp:"+name, action).
			Author(author).
			Cell(id).
			Write(err)

		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s %q: %v", action, id, err)), nil
		}
		return extension.JSONResult(map[string]any{"id": id, "deleted": !restore})
	}
}
