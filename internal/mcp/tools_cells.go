// tools_cells.go implements the MCP tools for reading and correcting cells.
//
// The tools return the same structured JSON the CLI prints with -o json.
// Failures are returned as tool error results so the LLM gets a message it
// can act on instead of a protocol error.

package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/cellrev/extension"
	"github.com/jpl-au/cellrev/guide"
	"github.com/jpl-au/cellrev/internal/cells"
	"github.com/jpl-au/cellrev/internal/generate"
	"github.com/jpl-au/cellrev/internal/log"
	"github.com/jpl-au/cellrev/internal/render"
	"github.com/jpl-au/cellrev/internal/store"
	"github.com/jpl-au/cellrev/internal/validate"
)

// cellView is one cell as the read tools return it.
type cellView struct {
	store.CellJSON
	Diff      render.Cell      `json:"diff"`
	Approvals *store.Approvals `json:"approvals,omitempty"`
	Comment   string           `json:"comment,omitempty"`
}

// view renders one cell. A specific version is rendered from its own
// texts; annotations belong to the cell, so only the latest carries them.
func (h *handlers) view(ctx context.Context, id string, version int) (*cellView, error) {
	if version > 0 {
		c, err := h.svc.Version(ctx, id, version)
		if err != nil {
			return nil, err
		}
		d, err := h.svc.Preview(ctx, c.Primary, c.Secondary)
		if err != nil {
			return nil, err
		}
		return &cellView{CellJSON: c.ToJSON(true), Diff: d}, nil
	}
	rd, err := h.svc.Render(ctx, id)
	if err != nil {
		return nil, err
	}
	return &cellView{
		CellJSON:  rd.Cell.ToJSON(true),
		Diff:      rd.Diff,
		Approvals: &rd.Approvals,
		Comment:   rd.Comment,
	}, nil
}

// initStore handles cellrev_init tool calls.
func (h *handlers) initStore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.svc != nil {
		return mcp.NewToolResultError("store already initialised"), nil
	}

	local := getBool(req, "local", false)
	err := cells.Init(false, h.db, local, "")
	log.Event("mcp:init", "init").Author(Author).Detail("local", local).Write(err)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	svc, err := cells.New(h.db)
	if err != nil {
		return mcp.NewToolResultError("init succeeded but failed to open store: " + err.Error()), nil
	}
	svc.SetExtensionContext(extension.NewContext(svc, svc.DB(), h.cfg))
	log.SetProject(svc.Dir())
	h.attach(ctx, svc)
	slog.Info("store initialised", "local", local)

	if local {
		return mcp.NewToolResultText("store initialised (local - gitignored)"), nil
	}
	return mcp.NewToolResultText("store initialised"), nil
}

// listCells handles cellrev_list tool calls.
func (h *handlers) listCells(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if result := h.requireInit(); result != nil {
		return result, nil
	}

	opts := store.ListOptions{
		Prefix:         getString(req, "prefix", ""),
		Query:          getString(req, "query", ""),
		Status:         getString(req, "status", ""),
		Approval:       getString(req, "approval", ""),
		ApprovalColumn: getString(req, "column", ""),
		MinRatio:       getFloat(req, "min_ratio"),
		MaxRatio:       getFloat(req, "max_ratio"),
		Sort:           getString(req, "sort", ""),
		Limit:          getInt(req, "limit", 0),
		Offset:         getInt(req, "offset", 0),
	}

	var err error
	l := log.Event("mcp:list", "list").Author(getString(req, "author", Author)).
		Detail("prefix", opts.Prefix).Detail("sort", opts.Sort)
	defer func() { l.Write(err) }()

	list, err := h.svc.List(ctx, opts)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	l.Detail("count", len(list))

	out := make([]store.CellJSON, len(list))
	for i := range list {
		out[i] = list[i].ToJSON(false)
	}
	return jsonResult(out)
}

// readCells handles cellrev_read tool calls. One id returns an object,
// several return an array.
func (h *handlers) readCells(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if result := h.requireInit(); result != nil {
		return result, nil
	}

	ids := getStrings(req, "ids")
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is required"), nil
	}
	version := getInt(req, "version", 0)

	l := log.Event("mcp:read", "read").Author(getString(req, "author", Author))
	if len(ids) == 1 {
		l.Cell(ids[0]).Version(version)
	} else {
		l.Detail("ids", ids)
	}

	views := make([]*cellView, 0, len(ids))
	for _, id := range ids {
		v, err := h.view(ctx, id, version)
		if err != nil {
			l.Write(err)
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", id, err)), nil
		}
		views = append(views, v)
	}
	l.Write(nil)

	if len(views) == 1 {
		return jsonResult(views[0])
	}
	return jsonResult(views)
}

// preview handles cellrev_preview tool calls.
func (h *handlers) preview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if result := h.requireInit(); result != nil {
		return result, nil
	}

	primary, err := req.RequireString("primary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	secondary, err := req.RequireString("secondary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out, err := h.svc.Preview(ctx, primary, secondary)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(out)
}

// save handles cellrev_save tool calls.
func (h *handlers) save(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if result := h.requireInit(); result != nil {
		return result, nil
	}

	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	msg := getString(req, "message", "")

	l := log.Event("mcp:save", "save").Author(author).Cell(id).Detail("message", msg)
	res, err := h.svc.Save(ctx, id, text, author, msg)
	if err != nil {
		l.Write(err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	l.ResultVersion(res.Version).Detail("status", res.Status()).Write(nil)
	return jsonResult(res)
}

// history handles cellrev_history tool calls.
func (h *handlers) history(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if result := h.requireInit(); result != nil {
		return result, nil
	}

	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	versions, err := h.svc.History(ctx, id, getInt(req, "limit", 0), getBool(req, "include_deleted", false))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := make([]store.CellJSON, len(versions))
	for i := range versions {
		out[i] = versions[i].ToJSON(true)
	}
	return jsonResult(out)
}

// approve handles cellrev_approve tool calls.
func (h *handlers) approve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if result := h.requireInit(); result != nil {
		return result, nil
	}

	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if getBool(req, "reset", false) {
		err = h.svc.ResetApproval(ctx, id, author)
	} else {
		status := getString(req, "status", "")
		if status == "" {
			return mcp.NewToolResultError("status is required unless reset is true"), nil
		}
		err = h.svc.Approve(ctx, id, getString(req, "column", validate.ColumnSecondary), status, author)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	a, err := h.svc.Approvals(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a)
}

// comment handles cellrev_comment tool calls.
func (h *handlers) comment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if result := h.requireInit(); result != nil {
		return result, nil
	}

	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if text, err := req.RequireString("text"); err == nil {
		author, err := req.RequireString("author")
		if err != nil {
			return mcp.NewToolResultError("author is required when writing a comment"), nil
		}
		if err := h.svc.SaveComment(ctx, id, text, author); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	c, err := h.svc.Comment(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]string{"id": id, "comment": c})
}

// regenerate handles cellrev_regenerate tool calls. Each id succeeds or
// fails on its own; a single failing id is reported as a tool error.
func (h *handlers) regenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if result := h.requireInit(); result != nil {
		return result, nil
	}
	if h.gen == nil {
		return mcp.NewToolResultError("regeneration disabled: no API key configured (set " + generate.EnvAPIKey + ")"), nil
	}

	ids := getStrings(req, "ids")
	if len(ids) == 0 {
		return mcp.NewToolResultError("ids is required"), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	v, err := generate.ParseVariant(getString(req, "variant", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results := h.gen.RegenerateAll(ctx, ids, generate.Request{
		Variant: v,
		Custom:  getString(req, "prompt", ""),
		Author:  author,
	})

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	if len(results) == 1 && failed == 1 {
		return mcp.NewToolResultError(results[0].Error), nil
	}
	return jsonResult(map[string]any{
		"succeeded": len(results) - failed,
		"failed":    failed,
		"results":   results,
	})
}

// getGuide handles cellrev_guide tool calls.
func (h *handlers) getGuide(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic := getString(req, "topic", "")

	content, err := guide.Get(topic)
	log.Event("mcp:guide", "read").Author(Author).Detail("topic", topic).Write(err)

	if err != nil {
		topics, listErr := guide.List()
		if listErr != nil {
			return nil, fmt.Errorf("listing guides: %w", listErr)
		}
		return jsonResult(map[string]any{
			"error":            err.Error(),
			"available_topics": topics,
		})
	}
	return mcp.NewToolResultText(content), nil
}
