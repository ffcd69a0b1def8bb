// tools_util.go extracts typed parameters from MCP's generic argument map.
//
// Optional parameters are read permissively: a missing or mistyped value
// yields the default instead of failing the call, since LLMs often omit
// optional parameters or send "true" for true.

package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/cellrev/internal/store"
)

func args(req mcp.CallToolRequest) map[string]any {
	m, _ := req.Params.Arguments.(map[string]any)
	return m
}

// getString returns a string parameter or def.
func getString(req mcp.CallToolRequest, name, def string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return def
}

// getBool returns a boolean parameter or def.
func getBool(req mcp.CallToolRequest, name string, def bool) bool { //nolint:unparam
	if v, ok := args(req)[name].(bool); ok {
		return v
	}
	return def
}

// getInt returns an integer parameter or def. JSON numbers arrive as float64.
func getInt(req mcp.CallToolRequest, name string, def int) int { //nolint:unparam
	if v, ok := args(req)[name].(float64); ok {
		return int(v)
	}
	return def
}

// getFloat returns a number parameter, or nil when it is absent.
func getFloat(req mcp.CallToolRequest, name string) *float64 {
	if v, ok := args(req)[name].(float64); ok {
		return &v
	}
	return nil
}

// getStrings returns a string array parameter. Non-string elements are
// skipped; nil means the parameter was absent.
func getStrings(req mcp.CallToolRequest, name string) []string {
	arr, ok := args(req)[name].([]any)
	if !ok {
		return nil
	}
	result := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// jsonResult wraps v, pretty-printed, in a text result. LLMs parse
// indented JSON more reliably.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := store.MarshalJSON(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
