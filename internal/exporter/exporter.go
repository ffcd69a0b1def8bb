// Package exporter writes cells to a YAML or JSON document that
// "cellrev import" reads back. Each record carries the cell's texts plus its
// ratio, status, version, approvals and comment; import ignores the extras.
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jpl-au/cellrev/internal/progress"
	"github.com/jpl-au/cellrev/internal/service"
	"github.com/jpl-au/cellrev/internal/store"
)

// ErrNoCells is returned when nothing matches the export filters.
var ErrNoCells = errors.New("no cells to export")

// Stdout as the destination writes the document to w instead of a file.
const Stdout = "-"

// Options configures an export.
type Options struct {
	Prefix   string
	Status   string
	Approval string // secondary column marker, "none" for unmarked
	Force    bool   // overwrite an existing file
	JSON     bool   // JSON instead of YAML; implied by a .json destination
}

// Result is the outcome of an export.
type Result struct {
	Exported int    `json:"exported"`
	Path     string `json:"path,omitempty"`
}

// Record is one exported cell.
type Record struct {
	store.CellInput `yaml:",inline"`
	Ratio           float64          `json:"ratio" yaml:"ratio"`
	Status          string           `json:"status" yaml:"status"`
	Version         int              `json:"version" yaml:"version"`
	Approvals       *store.Approvals `json:"approvals,omitempty" yaml:"approvals,omitempty"`
	Comment         string           `json:"comment,omitempty" yaml:"comment,omitempty"`
}

type document struct {
	Cells []Record `json:"cells" yaml:"cells"`
}

// Run exports the cells matching opts to dst. With dst Stdout the document
// goes to w; otherwise w gets a one-line summary.
func Run(ctx context.Context, w io.Writer, svc service.Service, dst string, opts Options) (Result, error) {
	var result Result

	list, err := svc.List(ctx, store.ListOptions{
		Prefix:   opts.Prefix,
		Status:   opts.Status,
		Approval: opts.Approval,
	})
	if err != nil {
		return result, err
	}
	if len(list) == 0 {
		return result, ErrNoCells
	}

	doc, err := collect(ctx, svc, list, dst != Stdout)
	if err != nil {
		return result, err
	}

	asJSON := opts.JSON || strings.EqualFold(filepath.Ext(dst), ".json")
	data, err := encode(doc, asJSON)
	if err != nil {
		return result, err
	}
	result.Exported = len(doc.Cells)

	if dst == Stdout {
		_, err := w.Write(data)
		return result, err
	}

	if err := writeFile(dst, data, opts.Force); err != nil {
		return result, err
	}
	result.Path = dst
	fmt.Fprintf(w, "Exported %d cells to %s\n", result.Exported, dst)
	return result, nil
}

func collect(ctx context.Context, svc service.Service, list []store.Cell, showProgress bool) (document, error) {
	doc := document{Cells: make([]Record, 0, len(list))}

	var prog *progress.Progress
	if showProgress {
		prog = progress.New("Exporting", len(list))
		defer prog.Done()
	}

	for _, c := range list {
		a, err := svc.Approvals(ctx, c.CellID)
		if err != nil {
			return doc, fmt.Errorf("approvals %s: %w", c.CellID, err)
		}
		comment, err := svc.Comment(ctx, c.CellID)
		if err != nil {
			return doc, fmt.Errorf("comment %s: %w", c.CellID, err)
		}

		r := Record{
			CellInput: store.CellInput{
				ID:        c.CellID,
				Row:       c.Row,
				Primary:   c.Primary,
				Secondary: c.Secondary,
				Auxiliary: c.Auxiliary,
			},
			Ratio:   c.Ratio,
			Status:  c.Status,
			Version: c.Version,
			Comment: comment,
		}
		if !a.Unmarked() {
			r.Approvals = &a
		}
		doc.Cells = append(doc.Cells, r)

		if prog != nil {
			prog.Step(nil)
		}
	}
	return doc, nil
}

func encode(doc document, asJSON bool) ([]byte, error) {
	if asJSON {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(doc)
}

// writeFile writes data to path through an os.Root on its directory so the
// name cannot escape it.
func writeFile(path string, data []byte, force bool) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return fmt.Errorf("opening destination: %w", err)
	}
	defer root.Close()

	if !force {
		if _, err := root.Stat(name); err == nil {
			return fmt.Errorf("file exists: %s (use --force to overwrite)", path)
		}
	}

	f, err := root.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
