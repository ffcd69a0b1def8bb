package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerResources adds URI-based read access to cells.
func registerResources(s *server.MCPServer, h *handlers) {
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"cellrev://cells/{id}",
			"Cell",
			mcp.WithTemplateDescription("Read a cell's texts, diff, approvals and comment"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		h.readCellResource,
	)
	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"cellrev://cells/{id}/v/{version}",
			"Cell Version",
			mcp.WithTemplateDescription("Read a specific version of a cell"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		h.readCellResource,
	)
}

// registerTools exposes cellrev operations as MCP tools.
func registerTools(s *server.MCPServer, h *handlers) {
	// Init - works without existing store
	s.AddTool(
		mcp.NewTool("cellrev_init",
			mcp.WithDescription("Initialise a new cellrev store. Call this first if other tools return 'store not initialised'."),
			mcp.WithBoolean("local", mcp.Description("If true, database is gitignored (not committed to version control)")),
		),
		h.initStore,
	)

	s.AddTool(
		mcp.NewTool("cellrev_list",
			mcp.WithDescription("List cells with their similarity ratio and status (texts omitted)"),
			mcp.WithString("prefix", mcp.Description("Filter by cell id prefix")),
			mcp.WithString("query", mcp.Description("Substring of the primary or secondary text")),
			mcp.WithString("status", mcp.Description("same or different")),
			mcp.WithString("approval", mcp.Description("Approval marker to match: affirmed, caution, rejected or none")),
			mcp.WithString("column", mcp.Description("Column the approval filter applies to: primary or secondary (default secondary)")),
			mcp.WithNumber("min_ratio", mcp.Description("Minimum similarity ratio, inclusive")),
			mcp.WithNumber("max_ratio", mcp.Description("Maximum similarity ratio, inclusive")),
			mcp.WithString("sort", mcp.Description("row (default), id, ratio or -ratio")),
			mcp.WithNumber("limit", mcp.Description("Maximum cells to return")),
			mcp.WithNumber("offset", mcp.Description("Cells to skip")),
		),
		h.listCells,
	)

	s.AddTool(
		mcp.NewTool("cellrev_read",
			mcp.WithDescription("Read cells with their rendered diff, approvals and comment"),
			mcp.WithArray("ids", mcp.Required(), mcp.Description("Cell ids"), mcp.WithStringItems()),
			mcp.WithNumber("version", mcp.Description("Specific version to read (default: latest)")),
		),
		h.readCells,
	)

	s.AddTool(
		mcp.NewTool("cellrev_preview",
			mcp.WithDescription("Diff two texts and return the rendered pair without storing anything"),
			mcp.WithString("primary", mcp.Required(), mcp.Description("Source text")),
			mcp.WithString("secondary", mcp.Required(), mcp.Description("Text under review")),
		),
		h.preview,
	)

	s.AddTool(
		mcp.NewTool("cellrev_save",
			mcp.WithDescription("Store corrected secondary text for a cell as a new version"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Cell id")),
			mcp.WithString("text", mcp.Required(), mcp.Description("New secondary text")),
			mcp.WithString("author", mcp.Required(), mcp.Description("Author attribution")),
			mcp.WithString("message", mcp.Description("Version message")),
		),
		h.save,
	)

	s.AddTool(
		mcp.NewTool("cellrev_history",
			mcp.WithDescription("Get version history for a cell, newest first"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Cell id")),
			mcp.WithNumber("limit", mcp.Description("Maximum versions to return")),
			mcp.WithBoolean("include_deleted", mcp.Description("Include deleted versions")),
		),
		h.history,
	)

	s.AddTool(
		mcp.NewTool("cellrev_approve",
			mcp.WithDescription("Set or reset a cell's approval markers"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Cell id")),
			mcp.WithString("column", mcp.Description("primary or secondary (default secondary)")),
			mcp.WithString("status", mcp.Description("affirmed, caution, rejected or none (green, yellow and red also work)")),
			mcp.WithBoolean("reset", mcp.Description("Clear both markers instead of setting one")),
			mcp.WithString("author", mcp.Required(), mcp.Description("Author attribution")),
		),
		h.approve,
	)

	s.AddTool(
		mcp.NewTool("cellrev_comment",
			mcp.WithDescription("Read a cell's comment, or replace it when text is given (blank text removes it)"),
			mcp.WithString("id", mcp.Required(), mcp.Description("Cell id")),
			mcp.WithString("text", mcp.Description("New comment text")),
			mcp.WithString("author", mcp.Description("Author attribution, required when writing")),
		),
		h.comment,
	)

	s.AddTool(
		mcp.NewTool("cellrev_regenerate",
			mcp.WithDescription("Regenerate secondary text with the configured LLM and store it as a new version"),
			mcp.WithArray("ids", mcp.Required(), mcp.Description("Cell ids"), mcp.WithStringItems()),
			mcp.WithString("variant", mcp.Description("Prompt variant: default, alt1, alt2 or custom")),
			mcp.WithString("prompt", mcp.Description("Prompt template for the custom variant; may use {{ primary_text }}, {{ secondary_text }} and {{ auxiliary_text }}")),
			mcp.WithString("author", mcp.Required(), mcp.Description("Author attribution")),
		),
		h.regenerate,
	)

	s.AddTool(
		mcp.NewTool("cellrev_guide",
			mcp.WithDescription("Get help/guide content for cellrev commands"),
			mcp.WithString("topic", mcp.Description("Guide topic (e.g., 'save', 'regenerate') or empty for index")),
		),
		h.getGuide,
	)
}
