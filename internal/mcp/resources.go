// resources.go serves cells as MCP resources so a client can load a cell
// into context without calling a tool.
//
// URIs are cellrev://cells/{id} for the latest version and
// cellrev://cells/{id}/v/{version} for an earlier one. Ids may be
// percent-encoded.

package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/jpl-au/cellrev/internal/store"
)

var (
	// ErrInvalidURI indicates a malformed resource URI.
	ErrInvalidURI = errors.New("invalid URI")
	// ErrEmptyID indicates a resource URI without a cell id.
	ErrEmptyID = errors.New("empty cell id")
)

const cellURIPrefix = "cellrev://cells/"

func (h *handlers) readCellResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if h.svc == nil {
		return nil, errors.New(ErrNotInitialised)
	}
	uri := req.Params.URI
	id, version, err := parseCellURI(uri)
	if err != nil {
		return nil, err
	}
	v, err := h.view(ctx, id, version)
	if err != nil {
		return nil, err
	}
	data, err := store.MarshalJSON(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// parseCellURI extracts the cell id and version (0 for latest).
func parseCellURI(uri string) (id string, version int, err error) {
	rest, ok := strings.CutPrefix(uri, cellURIPrefix)
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidURI, uri)
	}
	if i := strings.LastIndex(rest, "/v/"); i != -1 {
		vs := rest[i+3:]
		version, err = strconv.Atoi(vs)
		if err != nil || version < 1 {
			return "", 0, fmt.Errorf("%w: invalid version %s", ErrInvalidURI, vs)
		}
		rest = rest[:i]
	}
	id, err = url.PathUnescape(rest)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrInvalidURI, err)
	}
	if id == "" {
		return "", 0, ErrEmptyID
	}
	return id, version, nil
}
